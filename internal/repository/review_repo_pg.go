package repository

import (
	"context"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGReviewRepository struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) ReviewRepository {
	return &PGReviewRepository{db: db}
}

func (r *PGReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	err := r.db.QueryRow(ctx, `INSERT INTO reviews (id, travel_plan_id, author_user_id, rating, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		review.ID, review.TravelPlanID, review.AuthorUserID, review.Rating, review.Content).
		Scan(&review.CreatedAt)
	if isUniqueViolation(err) {
		return domain.Conflictf("user %s already reviewed plan %s", review.AuthorUserID, review.TravelPlanID)
	}
	return err
}

func (r *PGReviewRepository) ListByPlan(ctx context.Context, planID string) ([]domain.Review, error) {
	rows, err := r.db.Query(ctx, `SELECT id, travel_plan_id, author_user_id, rating, content, created_at
		FROM reviews WHERE travel_plan_id=$1 ORDER BY created_at DESC`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.TravelPlanID, &rv.AuthorUserID, &rv.Rating, &rv.Content, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (r *PGReviewRepository) ReviewedPlanIDs(ctx context.Context, authorID string) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx, `SELECT travel_plan_id FROM reviews WHERE author_user_id=$1`, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

var _ ReviewRepository = (*PGReviewRepository)(nil)
