package cart

import "sync"

const (
	CartUpdated      = "cart-updated"
	QuoteCartUpdated = "quote-cart-updated"
)

type Source int

const (
	// SourceLocal events come from mutations made through this process's bus.
	SourceLocal Source = iota
	// SourceStorage events come from writes made by another view of the storage.
	SourceStorage
)

func (s Source) String() string {
	if s == SourceStorage {
		return "storage"
	}
	return "local"
}

type Event struct {
	Name   string `json:"name"`
	Key    string `json:"key"`
	Source Source `json:"-"`
}

// Bus delivers change notifications synchronously to subscribers, in
// subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscriber
}

type subscriber struct {
	id   int
	name string
	fn   func(Event)
}

func NewBus() *Bus { return &Bus{} }

// Subscribe registers fn for events called name; an empty name receives
// every event.
func (b *Bus) Subscribe(name string, fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscriber{id: id, name: name, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
		})
	}
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, s := range b.subs {
		if s.name == "" || s.name == e.Name {
			fns = append(fns, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
