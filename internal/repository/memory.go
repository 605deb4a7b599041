package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
)

// MemoryPlanRepository is a process-local PlanRepository for development runs and tests.
type MemoryPlanRepository struct {
	mu    sync.RWMutex
	plans map[string]domain.TravelPlan
	now   func() time.Time
}

func NewMemoryPlanRepository() *MemoryPlanRepository {
	return &MemoryPlanRepository{plans: map[string]domain.TravelPlan{}, now: time.Now}
}

func (r *MemoryPlanRepository) Create(_ context.Context, plan *domain.TravelPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plans[plan.ID]; ok {
		return domain.Conflictf("plan %s already exists", plan.ID)
	}
	now := r.now()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	r.plans[plan.ID] = *plan
	return nil
}

func (r *MemoryPlanRepository) Update(_ context.Context, plan *domain.TravelPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.plans[plan.ID]
	if !ok {
		return domain.NotFoundf("plan %s", plan.ID)
	}
	stored.Title = plan.Title
	stored.Destination = plan.Destination
	stored.StartDate = plan.StartDate
	stored.EndDate = plan.EndDate
	stored.Budget = plan.Budget
	stored.TravelType = plan.TravelType
	stored.Visibility = plan.Visibility
	stored.UpdatedAt = r.now()
	r.plans[plan.ID] = stored
	plan.UpdatedAt = stored.UpdatedAt
	return nil
}

// SetStatus forces a plan status. Used by seeding and tests.
func (r *MemoryPlanRepository) SetStatus(id string, status domain.PlanStatus, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return
	}
	p.Status = status
	p.UpdatedAt = at
	if status == domain.PlanStatusCompleted {
		completed := at
		p.CompletedAt = &completed
	}
	r.plans[id] = p
}

func (r *MemoryPlanRepository) GetByID(_ context.Context, id string) (*domain.TravelPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, domain.NotFoundf("plan %s", id)
	}
	return &p, nil
}

func (r *MemoryPlanRepository) GetByIDs(_ context.Context, ids []string) ([]domain.TravelPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.TravelPlan
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := r.plans[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemoryPlanRepository) ListDiscoverable(_ context.Context) ([]domain.TravelPlan, error) {
	return r.filter(func(p domain.TravelPlan) bool { return p.Discoverable() }), nil
}

func (r *MemoryPlanRepository) ListCompletedByOwner(_ context.Context, ownerID string) ([]domain.TravelPlan, error) {
	return r.filter(func(p domain.TravelPlan) bool {
		return p.OwnerUserID == ownerID && p.Status == domain.PlanStatusCompleted
	}), nil
}

func (r *MemoryPlanRepository) AdvanceStatuses(_ context.Context, now time.Time) ([]domain.TravelPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var changed []domain.TravelPlan
	for id, p := range r.plans {
		next := p.StatusAt(now)
		if next == p.Status {
			continue
		}
		p.Status = next
		p.UpdatedAt = now
		if next == domain.PlanStatusCompleted {
			completed := now
			p.CompletedAt = &completed
		}
		r.plans[id] = p
		changed = append(changed, p)
	}
	return changed, nil
}

func (r *MemoryPlanRepository) filter(keep func(domain.TravelPlan) bool) []domain.TravelPlan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.TravelPlan
	for _, p := range r.plans {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MemoryConnectionRepository enforces the active-pair uniqueness and status CAS under one mutex.
type MemoryConnectionRepository struct {
	mu       sync.Mutex
	requests map[string]domain.ConnectionRequest
	active   map[string]string
	now      func() time.Time
}

func NewMemoryConnectionRepository() *MemoryConnectionRepository {
	return &MemoryConnectionRepository{
		requests: map[string]domain.ConnectionRequest{},
		active:   map[string]string{},
		now:      time.Now,
	}
}

func (r *MemoryConnectionRepository) Create(_ context.Context, req *domain.ConnectionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := domain.PairKey(req.SenderUserID, req.ReceiverUserID)
	if _, ok := r.active[key]; ok {
		return domain.Conflictf("active connection already exists between %s and %s", req.SenderUserID, req.ReceiverUserID)
	}
	now := r.now()
	req.CreatedAt = now
	req.UpdatedAt = now
	r.requests[req.ID] = *req
	if req.Active() {
		r.active[key] = req.ID
	}
	return nil
}

func (r *MemoryConnectionRepository) GetByID(_ context.Context, id string) (*domain.ConnectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, domain.NotFoundf("connection %s", id)
	}
	return &req, nil
}

func (r *MemoryConnectionRepository) FindActive(_ context.Context, userA, userB string) (*domain.ConnectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.active[domain.PairKey(userA, userB)]
	if !ok {
		return nil, nil
	}
	req := r.requests[id]
	return &req, nil
}

func (r *MemoryConnectionRepository) CompareAndSetStatus(_ context.Context, id string, from, to domain.ConnectionStatus) (*domain.ConnectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, domain.NotFoundf("connection %s", id)
	}
	if req.Status != from || req.RemovedAt != nil {
		return nil, domain.InvalidStatef("connection %s is no longer %s", id, from)
	}
	req.Status = to
	req.UpdatedAt = r.now()
	r.requests[id] = req
	r.syncActive(req)
	return &req, nil
}

func (r *MemoryConnectionRepository) MarkRemoved(_ context.Context, id string, at time.Time) (*domain.ConnectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, domain.NotFoundf("connection %s", id)
	}
	if !req.Active() {
		return nil, domain.InvalidStatef("connection %s is not active", id)
	}
	removed := at
	req.RemovedAt = &removed
	req.UpdatedAt = at
	r.requests[id] = req
	r.syncActive(req)
	return &req, nil
}

func (r *MemoryConnectionRepository) ListByUser(_ context.Context, userID string, status *domain.ConnectionStatus) ([]domain.ConnectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ConnectionRequest
	for _, req := range r.requests {
		if !req.Involves(userID) {
			continue
		}
		if status != nil && req.Status != *status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryConnectionRepository) syncActive(req domain.ConnectionRequest) {
	key := domain.PairKey(req.SenderUserID, req.ReceiverUserID)
	if req.Active() {
		r.active[key] = req.ID
		return
	}
	if r.active[key] == req.ID {
		delete(r.active, key)
	}
}

// MemoryReviewRepository keys reviews by (plan, author) to enforce one review per pair.
type MemoryReviewRepository struct {
	mu      sync.RWMutex
	reviews map[string]domain.Review
	now     func() time.Time
}

func NewMemoryReviewRepository() *MemoryReviewRepository {
	return &MemoryReviewRepository{reviews: map[string]domain.Review{}, now: time.Now}
}

func (r *MemoryReviewRepository) Create(_ context.Context, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := review.TravelPlanID + "/" + review.AuthorUserID
	if _, ok := r.reviews[key]; ok {
		return domain.Conflictf("user %s already reviewed plan %s", review.AuthorUserID, review.TravelPlanID)
	}
	review.CreatedAt = r.now()
	r.reviews[key] = *review
	return nil
}

func (r *MemoryReviewRepository) ListByPlan(_ context.Context, planID string) ([]domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Review
	for _, rv := range r.reviews {
		if rv.TravelPlanID == planID {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryReviewRepository) ReviewedPlanIDs(_ context.Context, authorID string) (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make(map[string]struct{})
	for _, rv := range r.reviews {
		if rv.AuthorUserID == authorID {
			ids[rv.TravelPlanID] = struct{}{}
		}
	}
	return ids, nil
}

var (
	_ PlanRepository       = (*MemoryPlanRepository)(nil)
	_ ConnectionRepository = (*MemoryConnectionRepository)(nil)
	_ ReviewRepository     = (*MemoryReviewRepository)(nil)
)
