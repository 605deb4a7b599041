package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockArena_ForgetsReleasedKeys(t *testing.T) {
	arena := NewLockArena()

	unlock, err := arena.Lock(context.Background(), "a:b")
	require.NoError(t, err)
	assert.Equal(t, 1, arena.Len())

	unlock()
	unlock()
	assert.Equal(t, 0, arena.Len())
}

func TestLockArena_WaitHonoursContext(t *testing.T) {
	arena := NewLockArena()

	unlock, err := arena.Lock(context.Background(), "a:b")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = arena.Lock(ctx, "a:b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Другая пара не блокируется
	other, err := arena.Lock(context.Background(), "a:c")
	require.NoError(t, err)
	other()
	assert.Equal(t, 1, arena.Len())
}

func TestLockArena_HandsOverToWaiter(t *testing.T) {
	arena := NewLockArena()

	unlock, err := arena.Lock(context.Background(), "a:b")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := arena.Lock(context.Background(), "a:b")
		if err == nil {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string) (func(), error) {
	return nil, errors.New("redis unavailable")
}

func TestChainLocker_ReleasesOnFailure(t *testing.T) {
	arena := NewLockArena()
	chain := ChainLocker{arena, failingLocker{}}

	_, err := chain.Lock(context.Background(), "a:b")

	assert.EqualError(t, err, "redis unavailable")
	assert.Equal(t, 0, arena.Len())
}
