package memory

import (
	"sync"

	"github.com/samber/lo"

	"github.com/qrave1/RehearsalHub/internal/application/metric"
	"github.com/qrave1/RehearsalHub/internal/domain"
)

// ConnectionRepository интерфейс для работы с активными соединениями в памяти
type ConnectionRepository interface {
	Add(*domain.Connection)
	Remove(domain.ConnectionID)

	GetAllConnected() []*domain.Connection
	Count() int
}

type connectionRepository struct {
	// conns хранит map[connection_id]*domain.Connection
	conns map[domain.ConnectionID]*domain.Connection

	mu sync.RWMutex
}

func NewConnectionRepository() ConnectionRepository {
	return &connectionRepository{
		conns: make(map[domain.ConnectionID]*domain.Connection, 10),
	}
}

func (r *connectionRepository) Add(conn *domain.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[conn.ID]; exists {
		return
	}

	r.conns[conn.ID] = conn

	metric.IncrementWSActiveConnections()
}

func (r *connectionRepository) Remove(id domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Проверяем, существует ли соединение перед удалением
	if _, exists := r.conns[id]; exists {
		delete(r.conns, id)

		metric.DecrementWSActiveConnections()
	}
}

func (r *connectionRepository) GetAllConnected() []*domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Values(r.conns)
}

func (r *connectionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
