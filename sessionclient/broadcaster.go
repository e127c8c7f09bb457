package sessionclient

import "sync"

// Listener receives the current user (nil when logged out) on every
// session state change.
type Listener func(user *User)

// broadcaster fans session changes out to subscribers. Delivery is
// synchronous and in registration order; subscribers must not block.
type broadcaster struct {
	lock      sync.Mutex
	nextID    int
	order     []int
	listeners map[int]Listener
}

func newBroadcaster() *broadcaster {
	return &broadcaster{listeners: make(map[int]Listener)}
}

// subscribe registers the listener and returns its removal function.
// The removal function is idempotent.
func (b *broadcaster) subscribe(fn Listener) func() {
	b.lock.Lock()
	defer b.lock.Unlock()

	id := b.nextID
	b.nextID++
	b.order = append(b.order, id)
	b.listeners[id] = fn

	return func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		delete(b.listeners, id)
	}
}

// notify calls every live listener with the current user, in the order
// they subscribed. Listeners are invoked outside the lock so they can
// subscribe, unsubscribe, or read client state without deadlocking.
func (b *broadcaster) notify(user *User) {
	b.lock.Lock()
	snapshot := make([]Listener, 0, len(b.listeners))
	compact := b.order[:0]
	for _, id := range b.order {
		if fn, ok := b.listeners[id]; ok {
			snapshot = append(snapshot, fn)
			compact = append(compact, id)
		}
	}
	b.order = compact
	b.lock.Unlock()

	for _, fn := range snapshot {
		fn(user)
	}
}
