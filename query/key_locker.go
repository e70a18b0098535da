package query

import "sync"

// keyLocker serializes work on a single key while letting different keys
// proceed in parallel. Lock state for a key is dropped once nobody holds or
// waits for it.
type keyLocker[Key comparable] struct {
	root  sync.Mutex
	locks map[Key]*keyLock
}

type keyLock struct {
	ref int
	m   sync.Mutex
}

func newKeyLocker[Key comparable]() *keyLocker[Key] {
	return &keyLocker[Key]{
		locks: map[Key]*keyLock{},
	}
}

// Lock blocks until key is free and returns the function releasing it.
// Calling the returned function more than once is a no-op.
func (l *keyLocker[Key]) Lock(key Key) (unlock func()) {
	l.root.Lock()
	item, ok := l.locks[key]
	if !ok {
		item = &keyLock{}
		l.locks[key] = item
	}
	item.ref++
	l.root.Unlock()

	item.m.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			item.m.Unlock()

			l.root.Lock()
			defer l.root.Unlock()
			item.ref--
			if item.ref <= 0 {
				delete(l.locks, key)
			}
		})
	}
}
