package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const connectionColumns = `id, sender_user_id, receiver_user_id, related_plan_id, status, created_at, updated_at, removed_at`

type PGConnectionRepository struct {
	db *pgxpool.Pool
}

func NewConnectionRepository(db *pgxpool.Pool) ConnectionRepository {
	return &PGConnectionRepository{db: db}
}

func (r *PGConnectionRepository) Create(ctx context.Context, req *domain.ConnectionRequest) error {
	err := r.db.QueryRow(ctx, `INSERT INTO connection_requests (id, sender_user_id, receiver_user_id, related_plan_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		req.ID, req.SenderUserID, req.ReceiverUserID, req.RelatedPlanID, req.Status).
		Scan(&req.CreatedAt, &req.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.Conflictf("active connection already exists between %s and %s", req.SenderUserID, req.ReceiverUserID)
	}
	return err
}

func (r *PGConnectionRepository) GetByID(ctx context.Context, id string) (*domain.ConnectionRequest, error) {
	req, err := scanConnection(r.db.QueryRow(ctx, `SELECT `+connectionColumns+` FROM connection_requests WHERE id=$1`, id))
	if isNoRows(err) {
		return nil, domain.NotFoundf("connection %s", id)
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *PGConnectionRepository) FindActive(ctx context.Context, userA, userB string) (*domain.ConnectionRequest, error) {
	req, err := scanConnection(r.db.QueryRow(ctx, `SELECT `+connectionColumns+` FROM connection_requests
		WHERE ((sender_user_id=$1 AND receiver_user_id=$2) OR (sender_user_id=$2 AND receiver_user_id=$1))
		AND status IN ($3, $4) AND removed_at IS NULL`,
		userA, userB, domain.ConnectionStatusPending, domain.ConnectionStatusAccepted))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *PGConnectionRepository) CompareAndSetStatus(ctx context.Context, id string, from, to domain.ConnectionStatus) (*domain.ConnectionRequest, error) {
	req, err := scanConnection(r.db.QueryRow(ctx, `UPDATE connection_requests SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2 AND removed_at IS NULL
		RETURNING `+connectionColumns, id, from, to))
	if isNoRows(err) {
		return nil, domain.InvalidStatef("connection %s is no longer %s", id, from)
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *PGConnectionRepository) MarkRemoved(ctx context.Context, id string, at time.Time) (*domain.ConnectionRequest, error) {
	req, err := scanConnection(r.db.QueryRow(ctx, `UPDATE connection_requests SET removed_at=$2, updated_at=$2
		WHERE id=$1 AND removed_at IS NULL AND status IN ($3, $4)
		RETURNING `+connectionColumns, id, at, domain.ConnectionStatusPending, domain.ConnectionStatusAccepted))
	if isNoRows(err) {
		return nil, domain.InvalidStatef("connection %s is not active", id)
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *PGConnectionRepository) ListByUser(ctx context.Context, userID string, status *domain.ConnectionStatus) ([]domain.ConnectionRequest, error) {
	query := `SELECT ` + connectionColumns + ` FROM connection_requests WHERE (sender_user_id=$1 OR receiver_user_id=$1)`
	args := []any{userID}
	if status != nil {
		query += ` AND status=$2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.ConnectionRequest
	for rows.Next() {
		req, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *req)
	}
	return list, rows.Err()
}

func scanConnection(row pgx.Row) (*domain.ConnectionRequest, error) {
	var c domain.ConnectionRequest
	if err := row.Scan(&c.ID, &c.SenderUserID, &c.ReceiverUserID, &c.RelatedPlanID, &c.Status, &c.CreatedAt, &c.UpdatedAt, &c.RemovedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

var _ ConnectionRepository = (*PGConnectionRepository)(nil)
