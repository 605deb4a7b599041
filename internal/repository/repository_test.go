package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPGRepositories(t *testing.T) {
	pool := &pgxpool.Pool{}
	assert.NotNil(t, NewPlanRepository(pool))
	assert.NotNil(t, NewConnectionRepository(pool))
	assert.NotNil(t, NewReviewRepository(pool))
}

func TestMemoryConnectionRepository_ActivePairIsUnique(t *testing.T) {
	repo := NewMemoryConnectionRepository()
	ctx := context.Background()

	first := &domain.ConnectionRequest{ID: "c1", SenderUserID: "a", ReceiverUserID: "b", Status: domain.ConnectionStatusPending}
	require.NoError(t, repo.Create(ctx, first))

	reverse := &domain.ConnectionRequest{ID: "c2", SenderUserID: "b", ReceiverUserID: "a", Status: domain.ConnectionStatusPending}
	err := repo.Create(ctx, reverse)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = repo.CompareAndSetStatus(ctx, "c1", domain.ConnectionStatusPending, domain.ConnectionStatusRejected)
	require.NoError(t, err)

	assert.NoError(t, repo.Create(ctx, reverse))
	active, err := repo.FindActive(ctx, "a", "b")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "c2", active.ID)
}

func TestMemoryConnectionRepository_CompareAndSetStatus(t *testing.T) {
	repo := NewMemoryConnectionRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.ConnectionRequest{ID: "c1", SenderUserID: "a", ReceiverUserID: "b", Status: domain.ConnectionStatusPending}))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := domain.ConnectionStatusAccepted
			if i%2 == 0 {
				to = domain.ConnectionStatusRejected
			}
			if _, err := repo.CompareAndSetStatus(ctx, "c1", domain.ConnectionStatusPending, to); err == nil {
				atomic.AddInt32(&wins, 1)
			} else {
				assert.ErrorIs(t, err, domain.ErrInvalidState)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)

	_, err := repo.CompareAndSetStatus(ctx, "missing", domain.ConnectionStatusPending, domain.ConnectionStatusAccepted)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryConnectionRepository_MarkRemoved(t *testing.T) {
	repo := NewMemoryConnectionRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.ConnectionRequest{ID: "c1", SenderUserID: "a", ReceiverUserID: "b", Status: domain.ConnectionStatusPending}))
	_, err := repo.CompareAndSetStatus(ctx, "c1", domain.ConnectionStatusPending, domain.ConnectionStatusAccepted)
	require.NoError(t, err)

	removed, err := repo.MarkRemoved(ctx, "c1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionStatusAccepted, removed.Status)
	assert.NotNil(t, removed.RemovedAt)

	_, err = repo.MarkRemoved(ctx, "c1", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	active, err := repo.FindActive(ctx, "a", "b")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestMemoryPlanRepository_AdvanceStatuses(t *testing.T) {
	repo := NewMemoryPlanRepository()
	ctx := context.Background()
	start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	plan := &domain.TravelPlan{ID: "p1", OwnerUserID: "owner", StartDate: start, EndDate: start.AddDate(0, 0, 9), Status: domain.PlanStatusUpcoming, Visibility: domain.VisibilityPublic}
	require.NoError(t, repo.Create(ctx, plan))

	changed, err := repo.AdvanceStatuses(ctx, start.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, domain.PlanStatusOngoing, changed[0].Status)

	changed, err = repo.AdvanceStatuses(ctx, start.AddDate(0, 0, 10))
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, domain.PlanStatusCompleted, changed[0].Status)
	assert.NotNil(t, changed[0].CompletedAt)

	changed, err = repo.AdvanceStatuses(ctx, start.AddDate(0, 0, 20))
	require.NoError(t, err)
	assert.Empty(t, changed)

	completed, err := repo.ListCompletedByOwner(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

func TestMemoryReviewRepository_OnePerAuthorAndPlan(t *testing.T) {
	repo := NewMemoryReviewRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.Review{ID: "r1", TravelPlanID: "p1", AuthorUserID: "a", Rating: 5}))

	err := repo.Create(ctx, &domain.Review{ID: "r2", TravelPlanID: "p1", AuthorUserID: "a", Rating: 4})
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, repo.Create(ctx, &domain.Review{ID: "r3", TravelPlanID: "p1", AuthorUserID: "b", Rating: 4}))

	ids, err := repo.ReviewedPlanIDs(ctx, "a")
	require.NoError(t, err)
	assert.Contains(t, ids, "p1")

	reviews, err := repo.ListByPlan(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
}
