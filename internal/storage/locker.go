package storage

import "sync"

// Locker serializes mutating operations per file path. Lock handles are
// created lazily and never removed, so every call site sharing a path shares
// one handle. Waiters blocked on the same path are served in arrival order;
// operations on distinct paths never contend. Read-only operations are
// expected to bypass the locker entirely.
type Locker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocker creates an empty lock registry.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]chan struct{})}
}

func (l *Locker) handle(path string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[path]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[path] = ch
	}
	return ch
}

// WithLock runs fn while holding the lock for path. The lock is released
// whether fn succeeds or fails; a failed mutation never leaves the path
// locked.
func (l *Locker) WithLock(path string, fn func() error) error {
	ch := l.handle(path)
	ch <- struct{}{}
	defer func() { <-ch }()
	return fn()
}
