// Package events fans repository change notifications out to subscribers.
package events

import (
	"sync"
	"time"
)

// Change says that repository state under Repo may have changed.
type Change struct {
	Repo   string    `json:"repo"`
	Source string    `json:"source"`
	At     time.Time `json:"at"`
}

// Sources of a Change.
const (
	SourceEngine  = "engine"
	SourceWatcher = "watcher"
)

// Broadcaster delivers each Change to every current subscriber. Sends never
// block: a subscriber whose buffer is full misses the change, and since a
// change only means "refresh", the pending one already covers it.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Change
	nextID int
	closed bool
	now    func() time.Time
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Change), now: time.Now}
}

// Subscribe registers a subscriber with the given buffer (minimum 1). The
// returned cancel func unregisters it and closes the channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Change, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Notify implements the engine's change notifier.
func (b *Broadcaster) Notify(repo string) {
	b.Publish(Change{Repo: repo, Source: SourceEngine})
}

// Publish sends c to every subscriber, stamping At when unset.
func (b *Broadcaster) Publish(c Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.At.IsZero() {
		c.At = b.now()
	}
	for _, ch := range b.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are dropped.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
