package reviews

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/Domenick1991/tripmates/internal/repository"
)

type ObligationUseCase interface {
	GetNextObligation(ctx context.Context, sessionID, userID string) (*domain.TravelPlan, error)
	Dismiss(ctx context.Context, sessionID, userID, planID string) error
	CheckAfterSubmission(ctx context.Context, sessionID, userID, planID string) (*domain.TravelPlan, error)
	EndSession(ctx context.Context, sessionID string) error
}

// Tracker derives the review a user owes from completed plans, accepted
// connections and authored reviews. Only dismissals are stored, per session.
type Tracker struct {
	plans       repository.PlanRepository
	connections repository.ConnectionRepository
	reviews     repository.ReviewRepository
	suppressed  SuppressionStore
}

func NewTracker(
	plans repository.PlanRepository,
	connections repository.ConnectionRepository,
	reviews repository.ReviewRepository,
	suppressed SuppressionStore,
) *Tracker {
	if suppressed == nil {
		suppressed = NewMemorySuppressionStore()
	}
	return &Tracker{plans: plans, connections: connections, reviews: reviews, suppressed: suppressed}
}

// GetNextObligation returns the oldest completed plan the user took part in and
// has neither reviewed nor dismissed in this session.
func (t *Tracker) GetNextObligation(ctx context.Context, sessionID, userID string) (*domain.TravelPlan, error) {
	return t.next(ctx, sessionID, userID, "")
}

func (t *Tracker) Dismiss(ctx context.Context, sessionID, userID, planID string) error {
	if sessionID == "" {
		return domain.Validationf("session is required to dismiss a review prompt")
	}
	if userID == "" || planID == "" {
		return domain.Validationf("user and plan are required")
	}
	return t.suppressed.Suppress(ctx, sessionID, userID, planID)
}

// CheckAfterSubmission re-evaluates once planID has been reviewed so the next owed
// review, if any, can be prompted right away. planID itself is never returned.
func (t *Tracker) CheckAfterSubmission(ctx context.Context, sessionID, userID, planID string) (*domain.TravelPlan, error) {
	return t.next(ctx, sessionID, userID, planID)
}

func (t *Tracker) EndSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return t.suppressed.EndSession(ctx, sessionID)
}

func (t *Tracker) next(ctx context.Context, sessionID, userID, skipPlanID string) (*domain.TravelPlan, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.Validationf("user is required")
	}

	owed, err := t.owed(ctx, userID)
	if err != nil || len(owed) == 0 {
		return nil, err
	}

	dismissed := map[string]struct{}{}
	if sessionID != "" {
		if dismissed, err = t.suppressed.Suppressed(ctx, sessionID, userID); err != nil {
			return nil, err
		}
	}
	for _, plan := range owed {
		if plan.ID == skipPlanID {
			continue
		}
		if _, skip := dismissed[plan.ID]; skip {
			continue
		}
		next := plan
		return &next, nil
	}
	return nil, nil
}

// owed lists the user's unreviewed completed plans, oldest completion first.
func (t *Tracker) owed(ctx context.Context, userID string) ([]domain.TravelPlan, error) {
	owned, err := t.plans.ListCompletedByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	joinedIDs, err := joinedPlanIDs(ctx, t.connections, userID)
	if err != nil {
		return nil, err
	}
	joined, err := t.plans.GetByIDs(ctx, joinedIDs)
	if err != nil {
		return nil, err
	}

	reviewed, err := t.reviews.ReviewedPlanIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var out []domain.TravelPlan
	for _, plan := range append(owned, joined...) {
		if plan.Status != domain.PlanStatusCompleted {
			continue
		}
		if _, dup := seen[plan.ID]; dup {
			continue
		}
		seen[plan.ID] = struct{}{}
		if _, done := reviewed[plan.ID]; done {
			continue
		}
		out = append(out, plan)
	}

	sort.Slice(out, func(i, j int) bool {
		ci, cj := completedAt(out[i]), completedAt(out[j])
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// joinedPlanIDs lists plans tied to the user's accepted connections. A later
// removal does not undo having travelled together.
func joinedPlanIDs(ctx context.Context, connections repository.ConnectionRepository, userID string) ([]string, error) {
	accepted := domain.ConnectionStatusAccepted
	reqs, err := connections.ListByUser(ctx, userID, &accepted)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, req := range reqs {
		if req.RelatedPlanID != nil {
			ids = append(ids, *req.RelatedPlanID)
		}
	}
	return ids, nil
}

func completedAt(plan domain.TravelPlan) time.Time {
	if plan.CompletedAt != nil {
		return *plan.CompletedAt
	}
	return plan.EndDate.AddDate(0, 0, 1)
}

var _ ObligationUseCase = (*Tracker)(nil)
