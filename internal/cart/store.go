package cart

import (
	"encoding/json"
	"time"

	"textilepro/internal/domain"
	applog "textilepro/internal/log"
)

// Line is the part shared by priced and quote line items. (SKU, Color, Size)
// identifies a line.
type Line struct {
	SKU             string `json:"sku"`
	Name            string `json:"name"`
	Brand           string `json:"brand,omitempty"`
	Image           string `json:"image,omitempty"`
	Color           string `json:"color"`
	ColorCode       string `json:"colorCode,omitempty"`
	Size            string `json:"size"`
	Quantity        int    `json:"quantity"`
	MarkingType     string `json:"markingType,omitempty"`
	MarkingLocation string `json:"markingLocation,omitempty"`
	MarkingNotes    string `json:"markingNotes,omitempty"`
	AddedAt         string `json:"addedAt,omitempty"`
}

func (l *Line) line() *Line { return l }

func (l *Line) matches(sku, color, size string) bool {
	return l.SKU == sku && l.Color == color && l.Size == size
}

type lineItem[T any] interface {
	*T
	line() *Line
}

// store keeps an ordered list of T as one JSON snapshot under key.
type store[T any, P lineItem[T]] struct {
	storage Storage
	key     string
	event   string
	bus     *Bus
	now     func() time.Time
}

// list never fails: a missing key, a storage error or a malformed snapshot
// all read as an empty list.
func (s *store[T, P]) list() []T {
	items := []T{}
	raw, ok, err := s.storage.Get(s.key)
	if err != nil || !ok || raw == "" {
		return items
	}
	var decoded []T
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return items
	}
	for _, it := range decoded {
		if P(&it).line().Quantity > 0 {
			items = append(items, it)
		}
	}
	return items
}

func (s *store[T, P]) save(items []T) {
	b, err := json.Marshal(items)
	if err == nil {
		err = s.storage.Set(s.key, string(b))
	}
	if err != nil {
		applog.Warn(nil, "cart.persist_failed", err, map[string]any{"key": s.key})
	}
	s.bus.Publish(Event{Name: s.event, Key: s.key, Source: SourceLocal})
}

func (s *store[T, P]) add(item T) {
	in := P(&item).line()
	if in.Quantity < 1 {
		in.Quantity = 1
	}
	items := s.list()
	for i := range items {
		l := P(&items[i]).line()
		if l.matches(in.SKU, in.Color, in.Size) {
			l.Quantity += in.Quantity
			s.save(items)
			return
		}
	}
	in.AddedAt = domain.FormatTime(s.now())
	s.save(append(items, item))
}

func (s *store[T, P]) update(sku, color, size string, qty int) {
	items := s.list()
	for i := range items {
		l := P(&items[i]).line()
		if !l.matches(sku, color, size) {
			continue
		}
		if qty <= 0 {
			items = append(items[:i], items[i+1:]...)
		} else {
			l.Quantity = qty
		}
		break
	}
	s.save(items)
}

func (s *store[T, P]) remove(sku, color, size string) {
	items := s.list()
	kept := items[:0]
	for _, it := range items {
		if !P(&it).line().matches(sku, color, size) {
			kept = append(kept, it)
		}
	}
	s.save(kept)
}

func (s *store[T, P]) clear() { s.save([]T{}) }

func (s *store[T, P]) count() int {
	n := 0
	for _, it := range s.list() {
		n += P(&it).line().Quantity
	}
	return n
}

// subscribe joins bus events for this store with writes other views make
// to the same key.
func (s *store[T, P]) subscribe(fn func(Event)) (unsubscribe func()) {
	stopBus := s.bus.Subscribe(s.event, fn)
	stopWatch := func() {}
	if w, ok := s.storage.(Watcher); ok {
		stopWatch = w.Watch(func(key string) {
			if key == s.key {
				fn(Event{Name: s.event, Key: key, Source: SourceStorage})
			}
		})
	}
	return func() {
		stopBus()
		stopWatch()
	}
}
