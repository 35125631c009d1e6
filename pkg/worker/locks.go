package worker

import "sync"

// bookLocks hands out one mutex per book. Entries are reference counted and
// dropped once nobody holds or waits on them.
type bookLocks struct {
	mu    sync.Mutex
	locks map[int]*bookLock
}

type bookLock struct {
	sync.Mutex
	refs int
}

func newBookLocks() *bookLocks {
	return &bookLocks{locks: map[int]*bookLock{}}
}

// Lock blocks until the caller holds the book's mutex and returns the
// matching unlock function.
func (l *bookLocks) Lock(bookID int) func() {
	l.mu.Lock()
	lock, ok := l.locks[bookID]
	if !ok {
		lock = &bookLock{}
		l.locks[bookID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.Lock()

	return func() {
		lock.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, bookID)
		}
		l.mu.Unlock()
	}
}

func (l *bookLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
