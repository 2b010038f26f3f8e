package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qrave1/RehearsalHub/internal/domain/room"
)

func TestJoinEvents_AcceptStringOrObject(t *testing.T) {
	req := require.New(t)

	var band JoinBandEvent
	req.NoError(json.Unmarshal([]byte(`"b1"`), &band))
	req.Equal("b1", band.BandID)

	band = JoinBandEvent{}
	req.NoError(json.Unmarshal([]byte(`{"bandId":"b2"}`), &band))
	req.Equal("b2", band.BandID)

	var rehearsal JoinRehearsalEvent
	req.NoError(json.Unmarshal([]byte(` "r1"`), &rehearsal))
	req.Equal("r1", rehearsal.RehearsalID)

	rehearsal = JoinRehearsalEvent{}
	req.NoError(json.Unmarshal([]byte(`{"rehearsalId":"r2"}`), &rehearsal))
	req.Equal("r2", rehearsal.RehearsalID)

	req.Error(json.Unmarshal([]byte(`42`), &rehearsal))
}

func TestDecodeRoutable(t *testing.T) {
	t.Run("send-message", func(t *testing.T) {
		req := require.New(t)

		evt, ok, err := DecodeRoutable(Message{
			Type: TypeSendMessage,
			Data: json.RawMessage(`{"senderId":"u1","body":"hello","bandId":"b1"}`),
		})
		req.NoError(err)
		req.True(ok)
		req.Equal(ChatMessage{SenderID: "u1", Body: "hello", BandID: "b1"}, evt)
	})

	t.Run("send-message without data is still routable type", func(t *testing.T) {
		req := require.New(t)

		evt, ok, err := DecodeRoutable(Message{Type: TypeSendMessage})
		req.NoError(err)
		req.True(ok)
		req.Equal(ChatMessage{}, evt)
	})

	t.Run("update-rehearsal keeps snapshot verbatim", func(t *testing.T) {
		req := require.New(t)

		evt, ok, err := DecodeRoutable(Message{
			Type: TypeUpdateRehearsal,
			Data: json.RawMessage(`{"rehearsalId":"r1","bandId":"b1","snapshot":{"title":"Jam","location":{"name":"Studio"}}}`),
		})
		req.NoError(err)
		req.True(ok)

		update, isUpdate := evt.(RehearsalUpdate)
		req.True(isUpdate)
		req.JSONEq(`{"title":"Jam","location":{"name":"Studio"}}`, string(update.Snapshot))
	})

	t.Run("update-attendance validates status", func(t *testing.T) {
		req := require.New(t)

		_, ok, err := DecodeRoutable(Message{
			Type: TypeUpdateAttendance,
			Data: json.RawMessage(`{"rehearsalId":"r1","userId":"u1","status":"sleeping"}`),
		})
		req.True(ok)
		req.Error(err)

		evt, ok, err := DecodeRoutable(Message{
			Type: TypeUpdateAttendance,
			Data: json.RawMessage(`{"rehearsalId":"r1","userId":"u1","status":"declined"}`),
		})
		req.NoError(err)
		req.True(ok)
		req.Equal(AttendanceUpdate{RehearsalID: "r1", UserID: "u1", Status: "declined"}, evt)
	})

	t.Run("update-attendance accepts every rehearsal status", func(t *testing.T) {
		for _, status := range []string{"confirmed", "declined", "pending"} {
			t.Run(status, func(t *testing.T) {
				req := require.New(t)

				evt, ok, err := DecodeRoutable(Message{
					Type: TypeUpdateAttendance,
					Data: json.RawMessage(`{"rehearsalId":"r1","userId":"u1","status":"` + status + `"}`),
				})
				req.NoError(err)
				req.True(ok)

				targets, err := Route(evt)
				req.NoError(err)
				req.Len(targets, 1)
				req.Equal(room.Rehearsal("r1"), targets[0].Room)
				req.Equal(TypeAttendanceUpdated, targets[0].Type)
			})
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		req := require.New(t)

		_, ok, err := DecodeRoutable(Message{Type: TypeSendMessage, Data: json.RawMessage(`{"body":`)})
		req.True(ok)
		req.Error(err)
	})

	t.Run("not routable type", func(t *testing.T) {
		req := require.New(t)

		_, ok, err := DecodeRoutable(Message{Type: TypeJoinBand, Data: json.RawMessage(`"b1"`)})
		req.NoError(err)
		req.False(ok)
	})
}

func TestNewMessage(t *testing.T) {
	req := require.New(t)

	msg, err := NewMessage(TypeJoined, RoomEvent{Room: "band:b1"})
	req.NoError(err)
	req.Equal(TypeJoined, msg.Type)
	req.JSONEq(`{"room":"band:b1"}`, string(msg.Data))

	msg, err = NewMessage(TypePong, nil)
	req.NoError(err)
	raw, err := json.Marshal(msg)
	req.NoError(err)
	req.JSONEq(`{"type":"pong"}`, string(raw))
}
