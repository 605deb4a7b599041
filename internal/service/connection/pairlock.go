package connection

import (
	"context"
	"sync"
)

// PairLocker serializes mutations of one user pair's active-request slot.
type PairLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LockArena hands out one mutex per pair key and forgets it once nobody holds
// or waits for it, so unrelated pairs never contend.
type LockArena struct {
	mu    sync.Mutex
	locks map[string]*pairLock
}

type pairLock struct {
	slot chan struct{}
	refs int
}

func NewLockArena() *LockArena {
	return &LockArena{locks: map[string]*pairLock{}}
}

func (a *LockArena) Lock(ctx context.Context, key string) (func(), error) {
	a.mu.Lock()
	l, ok := a.locks[key]
	if !ok {
		l = &pairLock{slot: make(chan struct{}, 1)}
		a.locks[key] = l
	}
	l.refs++
	a.mu.Unlock()

	select {
	case l.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.slot
				a.release(key, l)
			})
		}, nil
	case <-ctx.Done():
		a.release(key, l)
		return nil, ctx.Err()
	}
}

// Len reports how many pair locks are currently tracked.
func (a *LockArena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.locks)
}

func (a *LockArena) release(key string, l *pairLock) {
	a.mu.Lock()
	defer a.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(a.locks, key)
	}
}

// ChainLocker acquires every locker in order and releases them in reverse.
type ChainLocker []PairLocker

func (c ChainLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlocks := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, locker := range c {
		unlock, err := locker.Lock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return releaseAll, nil
}
