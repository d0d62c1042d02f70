package notify

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripwise-dev/tripwise/internal/models"
)

type fakeConn struct {
	mu       sync.Mutex
	open     bool
	failWith error
	messages [][]byte
	closes   int
}

func newFakeConn() *fakeConn {
	return &fakeConn{open: true}
}

func (c *fakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.messages = append(c.messages, payload)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.closes++
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.messages...)
}

func sampleNotification() models.Notification {
	return models.Notification{
		ID:        7,
		UserID:    1,
		Title:     "Form approved",
		Message:   "Your trip to Berlin was approved",
		Type:      models.NotificationFormApproved,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHub_PushReachesEveryConnection(t *testing.T) {
	hub := NewHub()
	a, b := newFakeConn(), newFakeConn()
	hub.Register(1, a)
	hub.Register(1, b)

	delivered := hub.Push(1, sampleNotification())

	assert.Equal(t, 2, delivered)
	require.Len(t, a.received(), 1)
	require.Len(t, b.received(), 1)
	assert.Equal(t, a.received()[0], b.received()[0])
}

func TestHub_PushAfterOneCloses(t *testing.T) {
	hub := NewHub()
	a, b := newFakeConn(), newFakeConn()
	hub.Register(1, a)
	hub.Register(1, b)

	hub.Unregister(1, a)
	delivered := hub.Push(1, sampleNotification())

	assert.Equal(t, 1, delivered)
	assert.Empty(t, a.received())
	assert.Len(t, b.received(), 1)
}

func TestHub_RemovesEmptyEntries(t *testing.T) {
	hub := NewHub()
	a, b := newFakeConn(), newFakeConn()
	hub.Register(1, a)
	hub.Register(1, b)
	hub.Register(2, newFakeConn())

	hub.Unregister(1, a)
	assert.Equal(t, 1, hub.Connections(1))

	hub.Unregister(1, b)
	assert.Equal(t, 0, hub.Connections(1))
	assert.Equal(t, 1, hub.Users())

	hub.mu.RLock()
	_, exists := hub.clients[1]
	hub.mu.RUnlock()
	assert.False(t, exists)
}

func TestHub_UnregisterUnknownIsNoop(t *testing.T) {
	hub := NewHub()

	hub.Unregister(9, newFakeConn())

	assert.Equal(t, 0, hub.Users())
}

func TestHub_RegisterTwiceKeepsOneEntry(t *testing.T) {
	hub := NewHub()
	a := newFakeConn()

	hub.Register(1, a)
	hub.Register(1, a)

	assert.Equal(t, 1, hub.Connections(1))
}

func TestHub_PushWithoutConnections(t *testing.T) {
	hub := NewHub()

	assert.Equal(t, 0, hub.Push(1, sampleNotification()))
}

func TestHub_SkipsClosedConnections(t *testing.T) {
	hub := NewHub()
	closed, open := newFakeConn(), newFakeConn()
	closed.open = false
	hub.Register(1, closed)
	hub.Register(1, open)

	delivered := hub.Push(1, sampleNotification())

	assert.Equal(t, 1, delivered)
	assert.Empty(t, closed.received())
	assert.Len(t, open.received(), 1)
}

func TestHub_SendErrorDoesNotStopFanout(t *testing.T) {
	hub := NewHub()
	broken, healthy := newFakeConn(), newFakeConn()
	broken.failWith = errors.New("use of closed network connection")
	hub.Register(1, broken)
	hub.Register(1, healthy)

	delivered := hub.Push(1, sampleNotification())

	assert.Equal(t, 1, delivered)
	assert.Len(t, healthy.received(), 1)
}

func TestHub_SendErrorDropsConnection(t *testing.T) {
	hub := NewHub()
	broken, healthy := newFakeConn(), newFakeConn()
	broken.failWith = errors.New("i/o timeout")
	hub.Register(1, broken)
	hub.Register(1, healthy)

	hub.Push(1, sampleNotification())

	assert.Equal(t, 1, hub.Connections(1))
	assert.False(t, broken.IsOpen())
	assert.Equal(t, 1, broken.closes)

	// The session's own cleanup afterwards is a no-op.
	hub.Unregister(1, broken)
	assert.Equal(t, 1, hub.Connections(1))

	hub.Unregister(1, healthy)
	assert.Zero(t, hub.Users())
}

func TestHub_OnlyAddressedUserReceives(t *testing.T) {
	hub := NewHub()
	mine, theirs := newFakeConn(), newFakeConn()
	hub.Register(1, mine)
	hub.Register(2, theirs)

	hub.Push(1, sampleNotification())

	assert.Len(t, mine.received(), 1)
	assert.Empty(t, theirs.received())
}

func TestHub_WireShape(t *testing.T) {
	hub := NewHub()
	conn := newFakeConn()
	hub.Register(1, conn)

	hub.Push(1, sampleNotification())

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(conn.received()[0], &msg))

	assert.Equal(t, "notification", msg["type"])
	data, ok := msg["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(7), data["id"])
	assert.Equal(t, "Form approved", data["title"])
	assert.Equal(t, "Your trip to Berlin was approved", data["message"])
	assert.Equal(t, "form_approved", data["type"])
	assert.Equal(t, false, data["read"])
	assert.Equal(t, "2024-05-01T12:00:00Z", data["createdAt"])
	assert.NotContains(t, data, "userId")
}

func TestHub_ConcurrentRegisterAndPush(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := newFakeConn()
			hub.Register(1, c)
			hub.Unregister(1, c)
		}()
		go func() {
			defer wg.Done()
			hub.Push(1, sampleNotification())
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.Users())
}
