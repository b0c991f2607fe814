package gateway

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestConn(buffer int) *Connection {
	return &Connection{
		id:   uuid.NewString(),
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func receive(t *testing.T, c *Connection) []byte {
	t.Helper()
	select {
	case data := <-c.send:
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestGroupFanOutInOrder(t *testing.T) {
	req := require.New(t)
	g := newGroup(uuid.New())

	c1 := newTestConn(8)
	c2 := newTestConn(8)
	req.True(g.Join(c1))
	req.True(g.Join(c2))
	req.Equal(2, g.Members())

	g.Send([]byte("first"))
	g.Send([]byte("second"))

	for _, c := range []*Connection{c1, c2} {
		req.Equal("first", string(receive(t, c)))
		req.Equal("second", string(receive(t, c)))
	}
}

func TestGroupDropsSlowConnection(t *testing.T) {
	req := require.New(t)
	g := newGroup(uuid.New())

	slow := newTestConn(1)
	ok := newTestConn(8)
	slow.group = g
	req.True(g.Join(slow))
	ok.group = g
	req.True(g.Join(ok))

	// The second send overflows the slow connection's buffer and drops it.
	g.Send([]byte("one"))
	g.Send([]byte("two"))

	req.Equal("one", string(receive(t, ok)))
	req.Equal("two", string(receive(t, ok)))

	req.Eventually(func() bool { return g.Members() == 1 }, time.Second, 10*time.Millisecond)

	g.Send([]byte("three"))
	req.Equal("three", string(receive(t, ok)))
}

func TestGroupDropClosesAndLeaves(t *testing.T) {
	req := require.New(t)
	g := newGroup(uuid.New())

	// The group reference is set before membership, as the connection
	// handler does, so the drop path can tear the member down fully.
	c := newTestConn(0)
	c.group = g
	req.True(g.Join(c))

	g.Send([]byte("overflow"))

	req.Eventually(func() bool { return g.Members() == 0 }, time.Second, 10*time.Millisecond)

	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("dropped connection was never closed")
	}
}

func TestGroupLeaveIsIdempotent(t *testing.T) {
	req := require.New(t)
	g := newGroup(uuid.New())

	c := newTestConn(8)
	req.True(g.Join(c))

	g.Leave(c)
	g.Leave(c)
	req.Equal(0, g.Members())
}

func TestGroupStopOnlyWhenEmpty(t *testing.T) {
	req := require.New(t)
	g := newGroup(uuid.New())

	c := newTestConn(8)
	req.True(g.Join(c))
	req.False(g.tryStop())

	g.Leave(c)
	req.True(g.tryStop())

	// A stopped group refuses new members; callers fetch a fresh one.
	req.False(g.Join(newTestConn(8)))
}
