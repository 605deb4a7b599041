package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const planColumns = `id, owner_user_id, title, destination, start_date, end_date, budget, travel_type, visibility, status, created_at, updated_at, completed_at`

type PGPlanRepository struct {
	db *pgxpool.Pool
}

func NewPlanRepository(db *pgxpool.Pool) PlanRepository {
	return &PGPlanRepository{db: db}
}

func (r *PGPlanRepository) Create(ctx context.Context, plan *domain.TravelPlan) error {
	return r.db.QueryRow(ctx, `INSERT INTO travel_plans (id, owner_user_id, title, destination, start_date, end_date, budget, travel_type, visibility, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		plan.ID, plan.OwnerUserID, plan.Title, plan.Destination, plan.StartDate, plan.EndDate, plan.Budget, plan.TravelType, plan.Visibility, plan.Status).
		Scan(&plan.CreatedAt, &plan.UpdatedAt)
}

func (r *PGPlanRepository) Update(ctx context.Context, plan *domain.TravelPlan) error {
	err := r.db.QueryRow(ctx, `UPDATE travel_plans
		SET title=$2, destination=$3, start_date=$4, end_date=$5, budget=$6, travel_type=$7, visibility=$8, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		plan.ID, plan.Title, plan.Destination, plan.StartDate, plan.EndDate, plan.Budget, plan.TravelType, plan.Visibility).
		Scan(&plan.UpdatedAt)
	if isNoRows(err) {
		return domain.NotFoundf("plan %s", plan.ID)
	}
	return err
}

func (r *PGPlanRepository) GetByID(ctx context.Context, id string) (*domain.TravelPlan, error) {
	plan, err := scanPlan(r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM travel_plans WHERE id=$1`, id))
	if isNoRows(err) {
		return nil, domain.NotFoundf("plan %s", id)
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *PGPlanRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.TravelPlan, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+planColumns+` FROM travel_plans WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return collectPlans(rows)
}

func (r *PGPlanRepository) ListDiscoverable(ctx context.Context) ([]domain.TravelPlan, error) {
	rows, err := r.db.Query(ctx, `SELECT `+planColumns+` FROM travel_plans
		WHERE visibility=$1 AND status IN ($2, $3)
		ORDER BY created_at DESC, id DESC`,
		domain.VisibilityPublic, domain.PlanStatusUpcoming, domain.PlanStatusOngoing)
	if err != nil {
		return nil, err
	}
	return collectPlans(rows)
}

func (r *PGPlanRepository) ListCompletedByOwner(ctx context.Context, ownerID string) ([]domain.TravelPlan, error) {
	rows, err := r.db.Query(ctx, `SELECT `+planColumns+` FROM travel_plans WHERE owner_user_id=$1 AND status=$2`, ownerID, domain.PlanStatusCompleted)
	if err != nil {
		return nil, err
	}
	return collectPlans(rows)
}

func (r *PGPlanRepository) AdvanceStatuses(ctx context.Context, now time.Time) ([]domain.TravelPlan, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `UPDATE travel_plans SET status=$1, completed_at=$2, updated_at=now()
		WHERE status <> $1 AND end_date + interval '1 day' <= $2
		RETURNING `+planColumns, domain.PlanStatusCompleted, now)
	if err != nil {
		return nil, err
	}
	completed, err := collectPlans(rows)
	if err != nil {
		return nil, err
	}

	rows, err = tx.Query(ctx, `UPDATE travel_plans SET status=$1, updated_at=now()
		WHERE status=$2 AND start_date <= $3
		RETURNING `+planColumns, domain.PlanStatusOngoing, domain.PlanStatusUpcoming, now)
	if err != nil {
		return nil, err
	}
	started, err := collectPlans(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return append(completed, started...), nil
}

func scanPlan(row pgx.Row) (*domain.TravelPlan, error) {
	var p domain.TravelPlan
	if err := row.Scan(&p.ID, &p.OwnerUserID, &p.Title, &p.Destination, &p.StartDate, &p.EndDate, &p.Budget, &p.TravelType, &p.Visibility, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPlans(rows pgx.Rows) ([]domain.TravelPlan, error) {
	defer rows.Close()

	var plans []domain.TravelPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

var _ PlanRepository = (*PGPlanRepository)(nil)
