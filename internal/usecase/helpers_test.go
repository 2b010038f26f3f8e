package usecase_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qrave1/RehearsalHub/internal/domain"
	"github.com/qrave1/RehearsalHub/internal/domain/events"
)

func newConn(userID string, buffer int) *domain.Connection {
	return domain.NewConnection(domain.Identity{UserID: userID}, buffer)
}

// drain забирает всё, что уже лежит в очереди соединения
func drain(t *testing.T, conn *domain.Connection) []events.Message {
	t.Helper()

	var out []events.Message
	for {
		select {
		case payload := <-conn.Outbound():
			var msg events.Message
			require.NoError(t, json.Unmarshal(payload, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func types(msgs []events.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, msg.Type)
	}
	return out
}
