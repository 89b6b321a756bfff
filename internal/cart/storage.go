package cart

import (
	"errors"
	"sync"
)

// ErrStorageUnavailable is what UnavailableStorage answers to everything.
var ErrStorageUnavailable = errors.New("cart storage unavailable")

// Storage is a string key/value area holding one snapshot per cart type.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Watcher is implemented by storages shared between several views. fn runs
// for writes made through other handles only, never for the watcher's own.
type Watcher interface {
	Watch(fn func(key string)) (stop func())
}

// SharedArea is an in-memory storage area shared by several views, each
// talking to it through its own Handle.
type SharedArea struct {
	mu       sync.Mutex
	data     map[string]string
	nextID   int
	watchers map[int]areaWatcher
}

type areaWatcher struct {
	owner *Handle
	fn    func(key string)
}

func NewSharedArea() *SharedArea {
	return &SharedArea{data: map[string]string{}, watchers: map[int]areaWatcher{}}
}

// Handle opens a new view on the area.
func (a *SharedArea) Handle() *Handle { return &Handle{area: a} }

func (a *SharedArea) write(from *Handle, key string, value *string) {
	a.mu.Lock()
	if value == nil {
		delete(a.data, key)
	} else {
		a.data[key] = *value
	}
	var notify []func(string)
	for _, w := range a.watchers {
		if w.owner != from {
			notify = append(notify, w.fn)
		}
	}
	a.mu.Unlock()

	for _, fn := range notify {
		fn(key)
	}
}

// Handle is one view's access to a SharedArea.
type Handle struct{ area *SharedArea }

func (h *Handle) Get(key string) (string, bool, error) {
	h.area.mu.Lock()
	defer h.area.mu.Unlock()
	v, ok := h.area.data[key]
	return v, ok, nil
}

func (h *Handle) Set(key, value string) error {
	h.area.write(h, key, &value)
	return nil
}

func (h *Handle) Remove(key string) error {
	h.area.write(h, key, nil)
	return nil
}

func (h *Handle) Watch(fn func(key string)) (stop func()) {
	a := h.area
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.watchers[id] = areaWatcher{owner: h, fn: fn}
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.watchers, id)
			a.mu.Unlock()
		})
	}
}

// UnavailableStorage stands in for a storage that refuses every call, like a
// browser in privacy mode.
type UnavailableStorage struct{}

func (UnavailableStorage) Get(string) (string, bool, error) { return "", false, ErrStorageUnavailable }
func (UnavailableStorage) Set(string, string) error         { return ErrStorageUnavailable }
func (UnavailableStorage) Remove(string) error              { return ErrStorageUnavailable }
