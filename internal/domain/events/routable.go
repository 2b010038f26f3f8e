package events

import (
	"encoding/json"
	"fmt"
)

// RoutableEvent - событие с дискриминантом маршрутизации.
// Реализуется только ChatMessage, RehearsalUpdate и AttendanceUpdate.
type RoutableEvent interface {
	EventType() string
	routable()
}

// ChatMessage - сообщение в чат группы или репетиции
type ChatMessage struct {
	SenderID    string `json:"senderId"`
	Body        string `json:"body"`
	BandID      string `json:"bandId,omitempty"`
	RehearsalID string `json:"rehearsalId,omitempty"`
}

func (ChatMessage) EventType() string { return TypeSendMessage }
func (ChatMessage) routable()         {}

// RehearsalUpdate - изменение репетиции, Snapshot передаётся как есть
type RehearsalUpdate struct {
	RehearsalID string          `json:"rehearsalId"`
	BandID      string          `json:"bandId"`
	Snapshot    json.RawMessage `json:"snapshot,omitempty"`
}

func (RehearsalUpdate) EventType() string { return TypeUpdateRehearsal }
func (RehearsalUpdate) routable()         {}

// AttendanceUpdate - изменение статуса посещения репетиции
type AttendanceUpdate struct {
	RehearsalID string `json:"rehearsalId"`
	UserID      string `json:"userId" validate:"required"`
	Status      string `json:"status" validate:"required,oneof=confirmed declined pending"`
}

func (AttendanceUpdate) EventType() string { return TypeUpdateAttendance }
func (AttendanceUpdate) routable()         {}

// DecodeRoutable разбирает конверт клиента в RoutableEvent.
// ok == false, если тип конверта не маршрутизируемый.
func DecodeRoutable(msg Message) (evt RoutableEvent, ok bool, err error) {
	switch msg.Type {
	case TypeSendMessage:
		var chat ChatMessage
		if err = decodeData(msg, &chat); err != nil {
			return nil, true, err
		}
		return chat, true, nil

	case TypeUpdateRehearsal:
		var update RehearsalUpdate
		if err = decodeData(msg, &update); err != nil {
			return nil, true, err
		}
		return update, true, nil

	case TypeUpdateAttendance:
		var update AttendanceUpdate
		if err = decodeData(msg, &update); err != nil {
			return nil, true, err
		}
		if err = validate.Struct(update); err != nil {
			return nil, true, fmt.Errorf("validate %s: %w", msg.Type, err)
		}
		return update, true, nil

	default:
		return nil, false, nil
	}
}

func decodeData(msg Message, target any) error {
	if len(msg.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(msg.Data, target); err != nil {
		return fmt.Errorf("unmarshal %s: %w", msg.Type, err)
	}

	return nil
}
