package match

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type MatchUseCase interface {
	FindCandidates(ctx context.Context, criteria Criteria) ([]domain.TravelPlan, error)
}

// PlanSource lists the plans that may currently be discovered.
type PlanSource interface {
	ListDiscoverable(ctx context.Context) ([]domain.TravelPlan, error)
}

// PlanCache holds the discoverable snapshot. SetPlans must drop the write when the
// cache was invalidated after generation was read.
type PlanCache interface {
	GetPlans(ctx context.Context) ([]domain.TravelPlan, error)
	PlansGeneration(ctx context.Context) (int64, error)
	SetPlans(ctx context.Context, generation int64, plans []domain.TravelPlan) error
}

// Criteria narrows the candidate plans. Zero values mean "no filter", except Page
// and Limit which fall back to defaults only when nil.
type Criteria struct {
	Destination    string
	StartDate      time.Time
	EndDate        time.Time
	TravelType     string
	ExcludeOwnerID string
	MaxBudget      *float64
	Page           *int
	Limit          *int
}

type Engine struct {
	plans        PlanSource
	cache        PlanCache
	defaultLimit int
	maxLimit     int
}

type Option func(*Engine)

func WithCache(cache PlanCache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

func WithLimits(defaultLimit, maxLimit int) Option {
	return func(e *Engine) {
		if defaultLimit > 0 {
			e.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			e.maxLimit = maxLimit
		}
	}
}

func NewEngine(plans PlanSource, opts ...Option) *Engine {
	e := &Engine{plans: plans, defaultLimit: defaultLimit, maxLimit: maxLimit}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) FindCandidates(ctx context.Context, criteria Criteria) ([]domain.TravelPlan, error) {
	page, limit, err := e.pagination(criteria)
	if err != nil {
		return nil, err
	}
	if !criteria.StartDate.IsZero() && !criteria.EndDate.IsZero() && criteria.StartDate.After(criteria.EndDate) {
		return nil, domain.Validationf("date range start must not be after its end")
	}
	if criteria.MaxBudget != nil && *criteria.MaxBudget < 0 {
		return nil, domain.Validationf("max budget must not be negative")
	}

	snapshot, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	destination := strings.ToLower(strings.TrimSpace(criteria.Destination))
	seen := make(map[string]struct{}, len(snapshot))
	matched := make([]domain.TravelPlan, 0, len(snapshot))
	for _, plan := range snapshot {
		if _, dup := seen[plan.ID]; dup {
			continue
		}
		if !matches(plan, criteria, destination) {
			continue
		}
		seen[plan.ID] = struct{}{}
		matched = append(matched, plan)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	offset := (page - 1) * limit
	if offset >= len(matched) {
		return []domain.TravelPlan{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (e *Engine) pagination(criteria Criteria) (int, int, error) {
	page, limit := 1, e.defaultLimit
	if criteria.Page != nil {
		page = *criteria.Page
	}
	if criteria.Limit != nil {
		limit = *criteria.Limit
	}
	if limit <= 0 {
		return 0, 0, domain.Validationf("limit must be positive")
	}
	if page < 1 {
		return 0, 0, domain.Validationf("page must be at least 1")
	}
	if limit > e.maxLimit {
		limit = e.maxLimit
	}
	return page, limit, nil
}

// snapshot serves the discoverable plans from the cache when it has them.
func (e *Engine) snapshot(ctx context.Context) ([]domain.TravelPlan, error) {
	if e.cache == nil {
		return e.plans.ListDiscoverable(ctx)
	}
	if cached, err := e.cache.GetPlans(ctx); err == nil && cached != nil {
		return cached, nil
	}

	generation, genErr := e.cache.PlansGeneration(ctx)
	plans, err := e.plans.ListDiscoverable(ctx)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		_ = e.cache.SetPlans(ctx, generation, plans)
	}
	return plans, nil
}

func matches(plan domain.TravelPlan, criteria Criteria, destination string) bool {
	// The cached snapshot may lag behind status sweeps.
	if !plan.Discoverable() {
		return false
	}
	if criteria.ExcludeOwnerID != "" && plan.OwnerUserID == criteria.ExcludeOwnerID {
		return false
	}
	if destination != "" && !strings.Contains(strings.ToLower(plan.Destination), destination) {
		return false
	}
	if criteria.TravelType != "" && plan.TravelType != criteria.TravelType {
		return false
	}
	if criteria.MaxBudget != nil && plan.Budget > *criteria.MaxBudget {
		return false
	}
	return plan.Overlaps(criteria.StartDate, criteria.EndDate)
}

var _ MatchUseCase = (*Engine)(nil)
