package memory

import (
	"sync"

	"github.com/samber/lo"

	"github.com/qrave1/RehearsalHub/internal/domain"
	"github.com/qrave1/RehearsalHub/internal/domain/room"
)

// RoomRegistry хранит членство соединений в комнатах.
// Комната существует, пока в ней есть хотя бы один участник.
type RoomRegistry interface {
	// Join идемпотентен: повторный вход - успех без второй записи
	Join(conn *domain.Connection, key room.Key) error

	// Leave для не-участника - успех
	Leave(conn *domain.Connection, key room.Key) error

	// LeaveAll вызывается при отключении, возвращает покинутые комнаты
	LeaveAll(conn *domain.Connection) []room.Key

	// Snapshot возвращает копию членства комнаты на один момент времени
	Snapshot(key room.Key) []*domain.Connection

	Rooms(conn *domain.Connection) []room.Key
	RoomCount() int
}

type roomMembers struct {
	mu      sync.RWMutex
	members map[domain.ConnectionID]*domain.Connection
	// dead выставляется, когда комната опустела и удаляется из реестра
	dead bool
}

type connRooms struct {
	mu    sync.Mutex
	rooms map[room.Key]struct{}
	dead  bool
}

type roomRegistry struct {
	// rooms хранит map[room_key]*roomMembers, mu защищает только саму map
	rooms map[room.Key]*roomMembers
	mu    sync.RWMutex

	// conns хранит map[connection_id]*connRooms для LeaveAll
	conns   map[domain.ConnectionID]*connRooms
	connsMu sync.RWMutex
}

func NewRoomRegistry() RoomRegistry {
	return &roomRegistry{
		rooms: make(map[room.Key]*roomMembers),
		conns: make(map[domain.ConnectionID]*connRooms),
	}
}

func (r *roomRegistry) Join(conn *domain.Connection, key room.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}

	if conn.IsClosed() {
		return nil
	}

	for {
		cr := r.connEntry(conn.ID)

		cr.mu.Lock()
		if cr.dead {
			// LeaveAll успел удалить запись, берём новую
			cr.mu.Unlock()
			continue
		}
		r.addMember(conn, key)
		cr.rooms[key] = struct{}{}
		cr.mu.Unlock()

		break
	}

	if conn.IsClosed() {
		// соединение закрылось во время Join, LeaveAll мог уже пройти
		r.LeaveAll(conn)
	}

	return nil
}

func (r *roomRegistry) Leave(conn *domain.Connection, key room.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}

	r.connsMu.RLock()
	cr, ok := r.conns[conn.ID]
	r.connsMu.RUnlock()

	if !ok {
		return nil
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	if _, member := cr.rooms[key]; cr.dead || !member {
		return nil
	}

	delete(cr.rooms, key)
	r.removeMember(conn.ID, key)

	return nil
}

func (r *roomRegistry) LeaveAll(conn *domain.Connection) []room.Key {
	r.connsMu.Lock()
	cr, ok := r.conns[conn.ID]
	delete(r.conns, conn.ID)
	r.connsMu.Unlock()

	if !ok {
		return nil
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	cr.dead = true
	keys := lo.Keys(cr.rooms)
	cr.rooms = nil

	for _, key := range keys {
		r.removeMember(conn.ID, key)
	}

	return keys
}

func (r *roomRegistry) Snapshot(key room.Key) []*domain.Connection {
	r.mu.RLock()
	rm, ok := r.rooms[key]
	r.mu.RUnlock()

	if !ok {
		return nil
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return lo.Values(rm.members)
}

func (r *roomRegistry) Rooms(conn *domain.Connection) []room.Key {
	r.connsMu.RLock()
	cr, ok := r.conns[conn.ID]
	r.connsMu.RUnlock()

	if !ok {
		return nil
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	return lo.Keys(cr.rooms)
}

func (r *roomRegistry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

func (r *roomRegistry) getOrCreateRoom(key room.Key) *roomMembers {
	r.mu.RLock()
	rm, ok := r.rooms[key]
	r.mu.RUnlock()

	if ok {
		return rm
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rm, ok = r.rooms[key]; ok {
		return rm
	}

	rm = &roomMembers{members: make(map[domain.ConnectionID]*domain.Connection)}
	r.rooms[key] = rm

	return rm
}

func (r *roomRegistry) addMember(conn *domain.Connection, key room.Key) {
	for {
		rm := r.getOrCreateRoom(key)

		rm.mu.Lock()
		if rm.dead {
			// комнату только что удалили, берём новую
			rm.mu.Unlock()
			continue
		}
		rm.members[conn.ID] = conn
		rm.mu.Unlock()

		return
	}
}

func (r *roomRegistry) removeMember(connID domain.ConnectionID, key room.Key) {
	r.mu.RLock()
	rm, ok := r.rooms[key]
	r.mu.RUnlock()

	if !ok {
		return
	}

	rm.mu.Lock()
	delete(rm.members, connID)
	empty := len(rm.members) == 0 && !rm.dead
	if empty {
		rm.dead = true
	}
	rm.mu.Unlock()

	if !empty {
		return
	}

	r.mu.Lock()
	if r.rooms[key] == rm {
		delete(r.rooms, key)
	}
	r.mu.Unlock()
}

func (r *roomRegistry) connEntry(id domain.ConnectionID) *connRooms {
	r.connsMu.Lock()
	defer r.connsMu.Unlock()

	cr, ok := r.conns[id]
	if !ok {
		cr = &connRooms{rooms: make(map[room.Key]struct{})}
		r.conns[id] = cr
	}

	return cr
}
