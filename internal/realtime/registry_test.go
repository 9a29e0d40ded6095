package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySubscribeUnsubscribe(t *testing.T) {
	r := NewRegistry(nil)
	c := newFakeConn("c1")

	_, moved := r.Subscribe(7, c)
	assert.False(t, moved)
	require.Len(t, r.SubscribersOf(7), 1)

	eventID, ok := r.Unsubscribe(c)
	assert.True(t, ok)
	assert.Equal(t, int64(7), eventID)
	assert.Empty(t, r.SubscribersOf(7))
	assert.Zero(t, r.Events(), "empty event entries are removed")
}

func TestRegistryUnsubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	a, b := newFakeConn("a"), newFakeConn("b")
	r.Subscribe(7, a)
	r.Subscribe(7, b)

	_, ok := r.Unsubscribe(a)
	assert.True(t, ok)
	_, ok = r.Unsubscribe(a)
	assert.False(t, ok)

	assert.Equal(t, 1, r.Count(7))
	assert.Equal(t, 1, r.Events())
	assert.Equal(t, "b", r.SubscribersOf(7)[0].ID())
}

func TestRegistryResubscribeMovesConnection(t *testing.T) {
	r := NewRegistry(nil)
	c := newFakeConn("c1")
	r.Subscribe(7, c)

	prev, moved := r.Subscribe(12, c)
	assert.True(t, moved)
	assert.Equal(t, int64(7), prev)
	assert.Zero(t, r.Count(7))
	assert.Equal(t, 1, r.Count(12))
	assert.Equal(t, 1, r.Events())

	_, moved = r.Subscribe(12, c)
	assert.False(t, moved, "same event is not a move")
	assert.Equal(t, 1, r.Count(12))

	eventID, ok := r.EventOf(c)
	assert.True(t, ok)
	assert.Equal(t, int64(12), eventID)
}

func TestRegistrySnapshotIsDetached(t *testing.T) {
	r := NewRegistry(nil)
	a := newFakeConn("a")
	r.Subscribe(1, a)

	snap := r.SubscribersOf(1)
	r.Unsubscribe(a)

	assert.Len(t, snap, 1)
	assert.Empty(t, r.SubscribersOf(1))
}

func TestRegistryShutdownClosesConnections(t *testing.T) {
	r := NewRegistry(nil)
	a, b := newFakeConn("a"), newFakeConn("b")
	r.Subscribe(1, a)
	r.Subscribe(2, b)

	r.Shutdown()

	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Zero(t, r.Events())
	_, ok := r.EventOf(a)
	assert.False(t, ok)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newFakeConn(string(rune('A' + i)))
			r.Subscribe(int64(i%3), c)
			_ = r.SubscribersOf(int64(i % 3))
			if i%2 == 0 {
				r.Unsubscribe(c)
			}
		}(i)
	}
	wg.Wait()

	total := r.Count(0) + r.Count(1) + r.Count(2)
	assert.Equal(t, 25, total)
}
