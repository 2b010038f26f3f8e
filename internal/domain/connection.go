package domain

import (
	"sync"

	"github.com/google/uuid"
)

type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

func (id ConnectionID) String() string { return string(id) }

// Identity - аутентифицированный пользователь соединения
type Identity struct {
	UserID string `json:"userId"`
}

// Connection - живое соединение одного клиента.
// Создаётся только после успешной проверки токена, поэтому Identity всегда заполнена.
type Connection struct {
	ID       ConnectionID
	Identity Identity

	outbound  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewConnection(identity Identity, sendBuffer int) *Connection {
	if sendBuffer <= 0 {
		sendBuffer = 1
	}

	return &Connection{
		ID:       NewConnectionID(),
		Identity: identity,
		outbound: make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

// Send ставит payload в очередь на отправку и никогда не блокируется.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.outbound <- payload:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrBackpressure
	}
}

// Outbound читает только writer соединения
func (c *Connection) Outbound() <-chan []byte {
	return c.outbound
}

func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Connection) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
