package plans

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/Domenick1991/tripmates/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type PlanUseCase interface {
	Create(ctx context.Context, ownerID string, input PlanInput) (*domain.TravelPlan, error)
	Update(ctx context.Context, ownerID, planID string, input PlanInput) (*domain.TravelPlan, error)
	Get(ctx context.Context, planID, viewerID string) (*domain.TravelPlan, error)
	AdvanceStatuses(ctx context.Context, now time.Time) ([]domain.TravelPlan, error)
}

type PlanInput struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Destination string            `json:"destination" validate:"required,max=256"`
	StartDate   time.Time         `json:"start_date" validate:"required"`
	EndDate     time.Time         `json:"end_date" validate:"required,gtefield=StartDate"`
	Budget      float64           `json:"budget" validate:"gte=0"`
	TravelType  string            `json:"travel_type" validate:"required,max=64"`
	Visibility  domain.Visibility `json:"visibility" validate:"required,oneof=public private"`
}

// CacheInvalidator drops the discoverable plan snapshot after a plan changes.
type CacheInvalidator interface {
	InvalidatePlans(ctx context.Context) error
}

type PlanService struct {
	repo     repository.PlanRepository
	cache    CacheInvalidator
	validate *validator.Validate
	now      func() time.Time
}

func NewPlanService(repo repository.PlanRepository, cache CacheInvalidator) *PlanService {
	return &PlanService{
		repo:     repo,
		cache:    cache,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *PlanService) Create(ctx context.Context, ownerID string, input PlanInput) (*domain.TravelPlan, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.Validationf("owner is required")
	}
	if err := s.check(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	plan := &domain.TravelPlan{
		ID:          uuid.NewString(),
		OwnerUserID: ownerID,
		Status:      domain.PlanStatusUpcoming,
	}
	apply(plan, input)
	plan.Status = plan.StatusAt(now)
	if plan.Status == domain.PlanStatusCompleted {
		plan.CompletedAt = &now
	}

	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return plan, nil
}

func (s *PlanService) Update(ctx context.Context, ownerID, planID string, input PlanInput) (*domain.TravelPlan, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}

	plan, err := s.repo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.OwnerUserID != ownerID {
		return nil, domain.Forbiddenf("user %s does not own plan %s", ownerID, planID)
	}
	if plan.Status == domain.PlanStatusCompleted {
		return nil, domain.InvalidStatef("plan %s is completed", planID)
	}

	apply(plan, input)
	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return plan, nil
}

// Get hides private plans from everyone but their owner.
func (s *PlanService) Get(ctx context.Context, planID, viewerID string) (*domain.TravelPlan, error) {
	plan, err := s.repo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Visibility == domain.VisibilityPrivate && plan.OwnerUserID != viewerID {
		return nil, domain.NotFoundf("plan %s", planID)
	}
	return plan, nil
}

// AdvanceStatuses moves plans forward along upcoming -> ongoing -> completed.
func (s *PlanService) AdvanceStatuses(ctx context.Context, now time.Time) ([]domain.TravelPlan, error) {
	changed, err := s.repo.AdvanceStatuses(ctx, now.UTC())
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		log.Printf("advanced status of %d plans", len(changed))
		s.invalidate(ctx)
	}
	return changed, nil
}

func (s *PlanService) check(input PlanInput) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return domain.Validationf("%s", strings.Join(problems, "; "))
}

func (s *PlanService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePlans(ctx); err != nil {
		log.Printf("WARNING: failed to invalidate plan cache: %v", err)
	}
}

func apply(plan *domain.TravelPlan, input PlanInput) {
	plan.Title = strings.TrimSpace(input.Title)
	plan.Destination = strings.TrimSpace(input.Destination)
	plan.StartDate = input.StartDate.UTC()
	plan.EndDate = input.EndDate.UTC()
	plan.Budget = input.Budget
	plan.TravelType = input.TravelType
	plan.Visibility = input.Visibility
}

var _ PlanUseCase = (*PlanService)(nil)
