package store

import (
	"sync"

	"github.com/google/uuid"
)

// subscribers implements the store notification contract: Subscribe
// registers a callback invoked synchronously after each committed
// mutation and returns its removal handle. Embedded by every store.
type subscribers struct {
	subMu  sync.Mutex
	nextID int
	subs   map[int]func()
}

func (s *subscribers) Subscribe(fn func()) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]func())
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *subscribers) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// newID returns a prefixed time-ordered identifier. V7 UUIDs sort by
// creation time, so id order stays consistent with createdAt.
func newID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + "-" + id.String()
}
