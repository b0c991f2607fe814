package gateway

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type opKind int

const (
	opJoin opKind = iota
	opLeave
	opSend
	opStop
)

type groupOp struct {
	kind  opKind
	conn  *Connection
	data  []byte
	reply chan bool
}

// Group fans encoded messages out to every live connection in one room.
// A single goroutine owns the member set and consumes one mailbox, so
// join/leave/send are linearizable and sends are delivered to each member
// in the order Send was invoked for the room.
type Group struct {
	roomID  uuid.UUID
	ops     chan groupOp
	stopped chan struct{}

	// actionMu serializes a room's mutate-snapshot-broadcast sequences so two
	// clients' actions cannot interleave into a stale broadcast. It is never
	// held by the mailbox goroutine.
	actionMu sync.Mutex

	members atomic.Int64
}

func newGroup(roomID uuid.UUID) *Group {
	g := &Group{
		roomID:  roomID,
		ops:     make(chan groupOp),
		stopped: make(chan struct{}),
	}
	go g.run()
	return g
}

func (g *Group) run() {
	members := make(map[*Connection]struct{})

	for op := range g.ops {
		switch op.kind {
		case opJoin:
			members[op.conn] = struct{}{}
			g.members.Store(int64(len(members)))
			op.reply <- true

		case opLeave:
			delete(members, op.conn)
			g.members.Store(int64(len(members)))
			op.reply <- true

		case opSend:
			for conn := range members {
				if conn.trySend(op.data) {
					continue
				}
				// Slow or dead connection: drop it from the room rather than
				// blocking delivery to the others. close re-enters Leave, so
				// it must not run on this goroutine.
				delete(members, conn)
				g.members.Store(int64(len(members)))
				log.Warn().
					Str("connection_id", conn.id).
					Str("room_id", g.roomID.String()).
					Msg("send buffer full, dropping connection from room")
				go conn.close()
			}

		case opStop:
			if len(members) > 0 {
				op.reply <- false
				continue
			}
			close(g.stopped)
			op.reply <- true
			return
		}
	}
}

// Join adds a connection to the group. It returns false if the group was
// already stopped, in which case the caller must fetch a fresh group.
func (g *Group) Join(c *Connection) bool {
	op := groupOp{kind: opJoin, conn: c, reply: make(chan bool, 1)}
	select {
	case g.ops <- op:
		return <-op.reply
	case <-g.stopped:
		return false
	}
}

// Leave removes a connection from the group. Safe to call for connections
// that already left or never joined.
func (g *Group) Leave(c *Connection) {
	op := groupOp{kind: opLeave, conn: c, reply: make(chan bool, 1)}
	select {
	case g.ops <- op:
		<-op.reply
	case <-g.stopped:
	}
}

// Send delivers data to every current member, best effort per connection.
func (g *Group) Send(data []byte) {
	select {
	case g.ops <- groupOp{kind: opSend, data: data}:
	case <-g.stopped:
	}
}

// Members returns the current membership count
func (g *Group) Members() int {
	return int(g.members.Load())
}

// RoomID returns the room this group serves
func (g *Group) RoomID() uuid.UUID {
	return g.roomID
}

// tryStop shuts the group down if it has no members. A Join racing this call
// is serialized through the mailbox: whichever lands first wins, and a joiner
// that loses sees Join return false.
func (g *Group) tryStop() bool {
	op := groupOp{kind: opStop, reply: make(chan bool, 1)}
	select {
	case g.ops <- op:
		return <-op.reply
	case <-g.stopped:
		return true
	}
}
