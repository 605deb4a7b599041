package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *domain.TravelPlan) error
	Update(ctx context.Context, plan *domain.TravelPlan) error
	GetByID(ctx context.Context, id string) (*domain.TravelPlan, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.TravelPlan, error)
	ListDiscoverable(ctx context.Context) ([]domain.TravelPlan, error)
	ListCompletedByOwner(ctx context.Context, ownerID string) ([]domain.TravelPlan, error)
	AdvanceStatuses(ctx context.Context, now time.Time) ([]domain.TravelPlan, error)
}

type ConnectionRepository interface {
	// Create fails with domain.ErrConflict when the pair already has an active request.
	Create(ctx context.Context, req *domain.ConnectionRequest) error
	GetByID(ctx context.Context, id string) (*domain.ConnectionRequest, error)
	// FindActive returns nil, nil when the pair has no active request.
	FindActive(ctx context.Context, userA, userB string) (*domain.ConnectionRequest, error)
	// CompareAndSetStatus moves a non-removed request from one status to another and fails
	// with domain.ErrInvalidState when the stored status is not from.
	CompareAndSetStatus(ctx context.Context, id string, from, to domain.ConnectionStatus) (*domain.ConnectionRequest, error)
	// MarkRemoved stamps removed_at on an active request, domain.ErrInvalidState otherwise.
	MarkRemoved(ctx context.Context, id string, at time.Time) (*domain.ConnectionRequest, error)
	ListByUser(ctx context.Context, userID string, status *domain.ConnectionStatus) ([]domain.ConnectionRequest, error)
}

type ReviewRepository interface {
	// Create fails with domain.ErrConflict when the author already reviewed the plan.
	Create(ctx context.Context, review *domain.Review) error
	ListByPlan(ctx context.Context, planID string) ([]domain.Review, error)
	ReviewedPlanIDs(ctx context.Context, authorID string) (map[string]struct{}, error)
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
