package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	var got []int
	require.NoError(t, bus.Subscribe(TopicInventoryChanged, func(ev InventoryEvent) {
		mu.Lock()
		got = append(got, ev.NewQuantity)
		mu.Unlock()
	}))

	for i := 0; i < 5; i++ {
		bus.Publish(TopicInventoryChanged, InventoryEvent{NewQuantity: i})
	}
	bus.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestBusIgnoresOtherTopics(t *testing.T) {
	bus := NewBus()
	called := false
	require.NoError(t, bus.Subscribe(TopicStockAlert, func(StockAlertEvent) { called = true }))

	bus.Publish(TopicSaleCommitted, SaleEvent{})
	bus.Wait()

	assert.False(t, called)
}
