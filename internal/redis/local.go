package redisclient

import (
	"context"
	"sync"
)

// LocalDayLocker serializes day keys inside one process. It is meant for a
// single api-server instance and for tests. Unlike the Redis locker it waits
// for the key instead of failing fast, bounded by ctx.
type LocalDayLocker struct {
	mu    sync.Mutex
	locks map[string]*dayLock
}

type dayLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalDayLocker() *LocalDayLocker {
	return &LocalDayLocker{locks: make(map[string]*dayLock)}
}

func (l *LocalDayLocker) WithDayLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	dl := l.acquireRef(key)
	defer l.releaseRef(key, dl)

	select {
	case dl.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-dl.ch }()

	return fn(ctx)
}

func (l *LocalDayLocker) acquireRef(key string) *dayLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	dl, ok := l.locks[key]
	if !ok {
		dl = &dayLock{ch: make(chan struct{}, 1)}
		l.locks[key] = dl
	}
	dl.refs++
	return dl
}

func (l *LocalDayLocker) releaseRef(key string, dl *dayLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dl.refs--
	if dl.refs == 0 {
		delete(l.locks, key)
	}
}

// held reports how many keys currently have waiters or holders.
func (l *LocalDayLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
