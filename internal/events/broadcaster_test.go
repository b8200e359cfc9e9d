package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyReachesEverySubscriber(t *testing.T) {
	b := NewBroadcaster()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	a, cancelA := b.Subscribe(1)
	defer cancelA()
	c, cancelC := b.Subscribe(1)
	defer cancelC()

	b.Notify("/src/app")

	want := Change{Repo: "/src/app", Source: SourceEngine, At: fixed}
	assert.Equal(t, want, <-a)
	assert.Equal(t, want, <-c)
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for range 10 {
			b.Publish(Change{Repo: "r", Source: SourceWatcher})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked")
	}
	got := <-ch
	assert.Equal(t, SourceWatcher, got.Source)
	assert.Empty(t, ch)
}

func TestCancelUnsubscribesAndClosesOnce(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(0)
	require.Equal(t, 1, b.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, b.Subscribers())
	_, ok := <-ch
	assert.False(t, ok)

	b.Notify("r")
}

func TestCloseEndsSubscriptions(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(4)
	b.Close()
	b.Close()

	_, ok := <-ch
	assert.False(t, ok)
	cancel()

	late, _ := b.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)
	b.Notify("r")
}

func TestConcurrentUse(t *testing.T) {
	b := NewBroadcaster()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, cancel := b.Subscribe(2)
			b.Notify("r")
			<-ch
			cancel()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, b.Subscribers())
}
