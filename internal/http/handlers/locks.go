package handlers

import "sync"

// EntryLocks marks entries with an operation in flight. A second request for the same entry is
// rejected instead of queued.
type EntryLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewEntryLocks() *EntryLocks {
	return &EntryLocks{held: map[string]struct{}{}}
}

// TryLock claims id and returns the function releasing it.
func (l *EntryLocks) TryLock(id string) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[id]; busy {
		return nil, false
	}
	l.held[id] = struct{}{}
	return func() {
		l.mu.Lock()
		delete(l.held, id)
		l.mu.Unlock()
	}, true
}
