package events

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Message - общий конверт события
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// client -> server
const (
	TypeJoinBand         = "join-band"
	TypeJoinRehearsal    = "join-rehearsal"
	TypeLeaveBand        = "leave-band"
	TypeLeaveRehearsal   = "leave-rehearsal"
	TypeSendMessage      = "send-message"
	TypeUpdateRehearsal  = "update-rehearsal"
	TypeUpdateAttendance = "update-attendance"
	TypePing             = "ping"
)

// server -> участники комнаты
const (
	TypeNewMessage        = "new-message"
	TypeRehearsalUpdated  = "rehearsal-updated"
	TypeAttendanceUpdated = "attendance-updated"
)

// server -> клиент
const (
	TypeConnected = "connected"
	TypeJoined    = "joined"
	TypeLeft      = "left"
	TypeError     = "error"
	TypePong      = "pong"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewMessage упаковывает data в конверт
func NewMessage(msgType string, data any) (Message, error) {
	if data == nil {
		return Message{Type: msgType}, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s data: %w", msgType, err)
	}

	return Message{Type: msgType, Data: raw}, nil
}

// JoinBandEvent - вход в комнату группы.
// data может быть объектом {"bandId": "..."} или просто строкой.
type JoinBandEvent struct {
	BandID string `json:"bandId"`
}

func (e *JoinBandEvent) UnmarshalJSON(data []byte) error {
	type plain JoinBandEvent
	return unmarshalIDOrObject(data, &e.BandID, (*plain)(e))
}

// JoinRehearsalEvent - вход в комнату репетиции
type JoinRehearsalEvent struct {
	RehearsalID string `json:"rehearsalId"`
}

func (e *JoinRehearsalEvent) UnmarshalJSON(data []byte) error {
	type plain JoinRehearsalEvent
	return unmarshalIDOrObject(data, &e.RehearsalID, (*plain)(e))
}

func unmarshalIDOrObject(data []byte, id *string, obj any) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, id)
	}

	return json.Unmarshal(data, obj)
}

// ConnectedEvent - приветствие после успешного подключения
type ConnectedEvent struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
}

// RoomEvent - подтверждение входа/выхода из комнаты
type RoomEvent struct {
	Room string `json:"room"`
}

// ErrorEvent - ошибка обработки события, отправляется только инициатору
type ErrorEvent struct {
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}
