package chat

import "sync"

// notifier mirrors the store notification contract for the chat-side
// stores: callbacks run synchronously after a state change commits.
type notifier struct {
	subMu  sync.Mutex
	nextID int
	subs   map[int]func()
}

func (n *notifier) Subscribe(fn func()) (unsubscribe func()) {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func())
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	return func() {
		n.subMu.Lock()
		defer n.subMu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier) notify() {
	n.subMu.Lock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
