package events

import (
	"fmt"

	"github.com/qrave1/RehearsalHub/internal/domain"
	"github.com/qrave1/RehearsalHub/internal/domain/room"
)

// Target - одна рассылка: комната, тип исходящего события и его данные
type Target struct {
	Room room.Key
	Type string
	Data any
}

// Route определяет комнаты назначения события.
// Чистая функция: только поля-дискриминанты, никакого I/O.
func Route(evt RoutableEvent) ([]Target, error) {
	switch e := evt.(type) {
	case ChatMessage:
		// rehearsalId важнее bandId
		if e.RehearsalID != "" {
			key, err := roomKey(room.KindRehearsal, e.RehearsalID)
			if err != nil {
				return nil, err
			}
			return []Target{{Room: key, Type: TypeNewMessage, Data: e}}, nil
		}

		if e.BandID != "" {
			key, err := roomKey(room.KindBand, e.BandID)
			if err != nil {
				return nil, err
			}
			return []Target{{Room: key, Type: TypeNewMessage, Data: e}}, nil
		}

		return nil, fmt.Errorf("chat message without bandId and rehearsalId: %w", domain.ErrUnroutableEvent)

	case RehearsalUpdate:
		rehearsalKey, err := roomKey(room.KindRehearsal, e.RehearsalID)
		if err != nil {
			return nil, err
		}

		bandKey, err := roomKey(room.KindBand, e.BandID)
		if err != nil {
			return nil, err
		}

		return []Target{
			{Room: rehearsalKey, Type: TypeRehearsalUpdated, Data: e},
			{Room: bandKey, Type: TypeRehearsalUpdated, Data: e},
		}, nil

	case AttendanceUpdate:
		key, err := roomKey(room.KindRehearsal, e.RehearsalID)
		if err != nil {
			return nil, err
		}
		return []Target{{Room: key, Type: TypeAttendanceUpdated, Data: e}}, nil

	default:
		return nil, fmt.Errorf("unknown event %T: %w", evt, domain.ErrUnroutableEvent)
	}
}

func roomKey(kind room.Kind, id string) (room.Key, error) {
	key, err := room.Parse(string(kind), id)
	if err != nil {
		return "", fmt.Errorf("%s id: %w: %w", kind, domain.ErrUnroutableEvent, err)
	}

	return key, nil
}
