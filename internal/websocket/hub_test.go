package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"task-manager/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	failing  bool
	deadline time.Time
	// stall, when set, holds every write until it is closed
	stall chan struct{}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	if c.stall != nil {
		<-c.stall
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return nil
}

func (c *fakeConn) writeDeadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.messages...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestHubDeliversOnlyToOwner(t *testing.T) {
	hub, _ := startHub(t)
	alice, bob := uuid.New(), uuid.New()

	aliceConn, bobConn := &fakeConn{}, &fakeConn{}
	require.True(t, hub.Register(&Client{Owner: alice, Conn: aliceConn}))
	require.True(t, hub.Register(&Client{Owner: bob, Conn: bobConn}))

	task := models.Task{ID: uuid.New(), Description: "secret", Owner: alice}
	hub.NotifyTask(alice, "task.created", task)

	require.Eventually(t, func() bool { return len(aliceConn.received()) == 1 }, time.Second, 10*time.Millisecond)

	var event TaskEvent
	require.NoError(t, json.Unmarshal(aliceConn.received()[0], &event))
	assert.Equal(t, "task.created", event.Type)
	assert.Equal(t, task.ID, event.Task.ID)

	// a later event for bob proves alice's event was never queued for him
	hub.NotifyTask(bob, "task.deleted", models.Task{ID: uuid.New(), Owner: bob})
	require.Eventually(t, func() bool { return len(bobConn.received()) == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, json.Unmarshal(bobConn.received()[0], &event))
	assert.Equal(t, "task.deleted", event.Type)
	assert.Len(t, aliceConn.received(), 1)
}

func TestHubDropsFailingClient(t *testing.T) {
	hub, _ := startHub(t)
	owner := uuid.New()

	broken := &fakeConn{failing: true}
	require.True(t, hub.Register(&Client{Owner: owner, Conn: broken}))

	hub.NotifyTask(owner, "task.updated", models.Task{ID: uuid.New(), Owner: owner})
	require.Eventually(t, broken.isClosed, time.Second, 10*time.Millisecond)
}

func TestHubUnregisterClosesConn(t *testing.T) {
	hub, _ := startHub(t)
	conn := &fakeConn{}
	client := &Client{Owner: uuid.New(), Conn: conn}

	require.True(t, hub.Register(client))
	hub.Unregister(client)
	require.Eventually(t, conn.isClosed, time.Second, 10*time.Millisecond)

	// second unregister is a no-op
	hub.Unregister(client)
}

func TestHubStopsWithContext(t *testing.T) {
	hub, cancel := startHub(t)
	conn := &fakeConn{}
	require.True(t, hub.Register(&Client{Owner: uuid.New(), Conn: conn}))

	cancel()
	require.Eventually(t, conn.isClosed, time.Second, 10*time.Millisecond)

	assert.False(t, hub.Register(&Client{Owner: uuid.New(), Conn: &fakeConn{}}))
	hub.Unregister(&Client{Owner: uuid.New(), Conn: &fakeConn{}})
}

func TestHubSetsWriteDeadline(t *testing.T) {
	hub, _ := startHub(t)
	owner := uuid.New()
	conn := &fakeConn{}
	require.True(t, hub.Register(&Client{Owner: owner, Conn: conn}))

	before := time.Now()
	hub.NotifyTask(owner, "task.created", models.Task{ID: uuid.New(), Owner: owner})
	require.Eventually(t, func() bool { return len(conn.received()) == 1 }, time.Second, 10*time.Millisecond)
	assert.WithinDuration(t, before.Add(writeWait), conn.writeDeadline(), time.Second)
}

func TestHubStalledClientDoesNotBlockOthers(t *testing.T) {
	hub, _ := startHub(t)
	alice, bob := uuid.New(), uuid.New()

	stalled := &fakeConn{stall: make(chan struct{})}
	t.Cleanup(func() { close(stalled.stall) })
	bobConn := &fakeConn{}
	require.True(t, hub.Register(&Client{Owner: alice, Conn: stalled}))
	require.True(t, hub.Register(&Client{Owner: bob, Conn: bobConn}))

	hub.NotifyTask(alice, "task.created", models.Task{ID: uuid.New(), Owner: alice})
	hub.NotifyTask(bob, "task.created", models.Task{ID: uuid.New(), Owner: bob})

	require.Eventually(t, func() bool { return len(bobConn.received()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Empty(t, stalled.received())
}

func TestHubDropsClientThatFallsBehind(t *testing.T) {
	hub, _ := startHub(t)
	owner := uuid.New()

	slow := &fakeConn{stall: make(chan struct{})}
	require.True(t, hub.Register(&Client{Owner: owner, Conn: slow}))

	// one write in flight plus a full buffer, then one more
	for i := 0; i < sendBuffer+2; i++ {
		hub.NotifyTask(owner, "task.updated", models.Task{ID: uuid.New(), Owner: owner})
	}
	require.Eventually(t, func() bool { return len(hub.broadcast) == 0 }, time.Second, 10*time.Millisecond)
	// the loop handles one message at a time, so this returns once the last event was routed
	require.True(t, hub.Register(&Client{Owner: uuid.New(), Conn: &fakeConn{}}))

	close(slow.stall)
	require.Eventually(t, slow.isClosed, time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, len(slow.received()), sendBuffer+1)
}
