package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pos-inventory/internal/events"
	"go-pos-inventory/internal/model"
)

type fakeConn struct {
	mu      sync.Mutex
	frames  [][]byte
	closed  bool
	failing bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("broken pipe")
	}
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestHubBroadcastsBusEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	bus := events.NewBus()
	require.NoError(t, hub.Attach(bus))

	good := &fakeConn{}
	bad := &fakeConn{failing: true}
	require.True(t, hub.Register(good))
	require.True(t, hub.Register(bad))

	bus.Publish(events.TopicStockAlert, events.StockAlertEvent{Name: "Rice", Quantity: 0, Level: model.AlertCritical})
	bus.Wait()

	require.Eventually(t, func() bool { return good.count() == 1 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	var msg struct {
		Type    string                 `json:"type"`
		Data    events.StockAlertEvent `json:"data"`
		Message string                 `json:"message"`
	}
	good.mu.Lock()
	require.NoError(t, json.Unmarshal(good.frames[0], &msg))
	good.mu.Unlock()
	assert.Equal(t, events.TopicStockAlert, msg.Type)
	assert.Equal(t, model.AlertCritical, msg.Data.Level)
	assert.Contains(t, msg.Message, "Rice")
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	conn := &fakeConn{}
	require.True(t, hub.Register(conn))
	cancel()
	<-done

	assert.True(t, conn.closed)
	assert.Zero(t, hub.ClientCount())
}

func TestHubDoesNotBlockAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := 0; i < 200; i++ {
			hub.Send(Message{Type: events.TopicInventoryChanged})
		}
		conn := &fakeConn{}
		if hub.Register(conn) {
			t.Error("register succeeded on a stopped hub")
		}
		hub.Unregister(conn)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("hub calls blocked after Run returned")
	}
}

func TestHubSendDropsWhenQueueIsFull(t *testing.T) {
	hub := NewHub(nil)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		// Run is not started, so nothing drains the queue
		for i := 0; i < 200; i++ {
			hub.Send(Message{Type: events.TopicStockAlert})
		}
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked on a full queue")
	}
	assert.Len(t, hub.broadcast, cap(hub.broadcast))
}
