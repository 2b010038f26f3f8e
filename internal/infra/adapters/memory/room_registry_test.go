package memory

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qrave1/RehearsalHub/internal/domain"
	"github.com/qrave1/RehearsalHub/internal/domain/room"
)

func newConn(userID string) *domain.Connection {
	return domain.NewConnection(domain.Identity{UserID: userID}, 8)
}

func memberIDs(conns []*domain.Connection) []domain.ConnectionID {
	ids := make([]domain.ConnectionID, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestRoomRegistry_JoinIsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	conn := newConn("u1")

	req.NoError(registry.Join(conn, room.Band("b1")))
	req.NoError(registry.Join(conn, room.Band("b1")))

	snapshot := registry.Snapshot(room.Band("b1"))
	req.Len(snapshot, 1)
	req.Equal(conn.ID, snapshot[0].ID)
	req.ElementsMatch([]room.Key{room.Band("b1")}, registry.Rooms(conn))
}

func TestRoomRegistry_JoinRejectsMalformedKey(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()

	req.ErrorIs(registry.Join(newConn("u1"), room.Key("band:")), room.ErrMalformedKey)
	req.ErrorIs(registry.Join(newConn("u1"), room.Key("nokind")), room.ErrMalformedKey)
	req.Zero(registry.RoomCount())
}

func TestRoomRegistry_ConnectionInManyRooms(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	conn := newConn("u1")

	req.NoError(registry.Join(conn, room.Band("b1")))
	req.NoError(registry.Join(conn, room.Rehearsal("r1")))
	req.NoError(registry.Join(conn, room.Rehearsal("r2")))

	req.ElementsMatch(
		[]room.Key{room.Band("b1"), room.Rehearsal("r1"), room.Rehearsal("r2")},
		registry.Rooms(conn),
	)
	req.Equal(3, registry.RoomCount())
}

func TestRoomRegistry_LeaveNonMemberIsNoop(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	member := newConn("u1")
	stranger := newConn("u2")

	req.NoError(registry.Join(member, room.Band("b1")))

	req.NoError(registry.Leave(stranger, room.Band("b1")))
	req.NoError(registry.Leave(stranger, room.Band("unknown")))

	req.Equal([]domain.ConnectionID{member.ID}, memberIDs(registry.Snapshot(room.Band("b1"))))
}

func TestRoomRegistry_EmptyRoomIsCollected(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	a, b := newConn("u1"), newConn("u2")

	req.NoError(registry.Join(a, room.Rehearsal("r1")))
	req.NoError(registry.Join(b, room.Rehearsal("r1")))
	req.Equal(1, registry.RoomCount())

	req.NoError(registry.Leave(a, room.Rehearsal("r1")))
	req.Equal(1, registry.RoomCount())

	req.NoError(registry.Leave(b, room.Rehearsal("r1")))
	req.Zero(registry.RoomCount())
	req.Empty(registry.Snapshot(room.Rehearsal("r1")))

	// комната снова появляется при следующем входе
	req.NoError(registry.Join(a, room.Rehearsal("r1")))
	req.Equal([]domain.ConnectionID{a.ID}, memberIDs(registry.Snapshot(room.Rehearsal("r1"))))
}

func TestRoomRegistry_LeaveAll(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	leaving := newConn("u1")
	staying := newConn("u2")

	req.NoError(registry.Join(leaving, room.Band("b1")))
	req.NoError(registry.Join(leaving, room.Rehearsal("r1")))
	req.NoError(registry.Join(staying, room.Band("b1")))

	left := registry.LeaveAll(leaving)
	req.ElementsMatch([]room.Key{room.Band("b1"), room.Rehearsal("r1")}, left)

	req.Equal([]domain.ConnectionID{staying.ID}, memberIDs(registry.Snapshot(room.Band("b1"))))
	req.Empty(registry.Snapshot(room.Rehearsal("r1")))
	req.Empty(registry.Rooms(leaving))
	req.Equal(1, registry.RoomCount())

	req.Empty(registry.LeaveAll(leaving))
}

func TestRoomRegistry_JoinAfterCloseLeavesNothing(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	conn := newConn("u1")

	conn.Close()
	registry.LeaveAll(conn)

	req.NoError(registry.Join(conn, room.Band("b1")))
	req.Empty(registry.Snapshot(room.Band("b1")))
	req.Empty(registry.Rooms(conn))
	req.Zero(registry.RoomCount())
}

func TestRoomRegistry_ConcurrentJoinLeaveSnapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	key := room.Rehearsal("r1")

	conns := make([]*domain.Connection, 50)
	for i := range conns {
		conns[i] = newConn(fmt.Sprintf("u%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			conn := conns[i%len(conns)]
			if rand.Intn(2) == 0 {
				_ = registry.Join(conn, key)
			} else {
				_ = registry.Leave(conn, key)
			}

			_ = registry.Join(conn, room.Band(fmt.Sprintf("b%d", i%7)))
			_ = registry.Snapshot(key)
		}(i)
	}

	// снапшоты параллельно с мутациями
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			seen := make(map[domain.ConnectionID]struct{})
			for _, c := range registry.Snapshot(key) {
				_, dup := seen[c.ID]
				if dup {
					t.Errorf("duplicate member %s in snapshot", c.ID)
				}
				seen[c.ID] = struct{}{}
			}
		}
	}()

	wg.Wait()

	snapshot := registry.Snapshot(key)
	req.LessOrEqual(len(snapshot), len(conns))

	seen := make(map[domain.ConnectionID]struct{})
	for _, c := range snapshot {
		_, dup := seen[c.ID]
		req.False(dup)
		seen[c.ID] = struct{}{}

		req.Contains(registry.Rooms(c), key)
	}

	for _, c := range conns {
		registry.LeaveAll(c)
	}
	req.Zero(registry.RoomCount())
}
