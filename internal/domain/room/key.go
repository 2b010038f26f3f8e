package room

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrMalformedKey = errors.New("malformed room key")

type Kind string

const (
	KindBand      Kind = "band"
	KindRehearsal Kind = "rehearsal"
)

const separator = ":"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Key - имя комнаты вида band:<bandId> или rehearsal:<rehearsalId>
type Key string

func Band(bandID string) Key {
	return Key(string(KindBand) + separator + bandID)
}

func Rehearsal(rehearsalID string) Key {
	return Key(string(KindRehearsal) + separator + rehearsalID)
}

// Parse собирает ключ из вида комнаты и идентификатора с проверкой обоих.
func Parse(kind, id string) (Key, error) {
	k := Kind(kind)
	if k != KindBand && k != KindRehearsal {
		return "", fmt.Errorf("unknown room kind %q: %w", kind, ErrMalformedKey)
	}

	if err := ValidateID(id); err != nil {
		return "", err
	}

	return Key(kind + separator + id), nil
}

// ValidateID проверяет идентификатор группы или репетиции.
func ValidateID(id string) error {
	if err := validate.Var(id, "required,max=128,printascii"); err != nil {
		return fmt.Errorf("invalid room id %q: %w", id, ErrMalformedKey)
	}

	if strings.ContainsAny(id, " "+separator) {
		return fmt.Errorf("invalid room id %q: %w", id, ErrMalformedKey)
	}

	return nil
}

func (k Key) Kind() Kind {
	kind, _, _ := strings.Cut(string(k), separator)
	return Kind(kind)
}

func (k Key) ID() string {
	_, id, _ := strings.Cut(string(k), separator)
	return id
}

// Validate проверяет, что ключ построен из известного вида и корректного id.
func (k Key) Validate() error {
	kind, id, ok := strings.Cut(string(k), separator)
	if !ok {
		return fmt.Errorf("room key %q without kind: %w", string(k), ErrMalformedKey)
	}

	_, err := Parse(kind, id)
	return err
}

func (k Key) String() string { return string(k) }
