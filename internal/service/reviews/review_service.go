package reviews

import (
	"context"
	"errors"
	"strings"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/Domenick1991/tripmates/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ReviewUseCase interface {
	Submit(ctx context.Context, userID string, input ReviewInput) (*domain.Review, error)
	ListForPlan(ctx context.Context, planID string) ([]domain.Review, error)
}

type ReviewInput struct {
	TravelPlanID string `json:"travel_plan_id" validate:"required"`
	Rating       int    `json:"rating" validate:"min=1,max=5"`
	Content      string `json:"content" validate:"max=4000"`
}

type ReviewService struct {
	reviews     repository.ReviewRepository
	plans       repository.PlanRepository
	connections repository.ConnectionRepository
	validate    *validator.Validate
}

func NewReviewService(
	reviews repository.ReviewRepository,
	plans repository.PlanRepository,
	connections repository.ConnectionRepository,
) *ReviewService {
	return &ReviewService{
		reviews:     reviews,
		plans:       plans,
		connections: connections,
		validate:    validator.New(),
	}
}

// Submit records the user's review of a completed plan they took part in.
func (s *ReviewService) Submit(ctx context.Context, userID string, input ReviewInput) (*domain.Review, error) {
	input.TravelPlanID = strings.TrimSpace(input.TravelPlanID)
	if err := s.check(input); err != nil {
		return nil, err
	}

	plan, err := s.plans.GetByID(ctx, input.TravelPlanID)
	if err != nil {
		return nil, err
	}
	if plan.Status != domain.PlanStatusCompleted {
		return nil, domain.InvalidStatef("plan %s is not completed yet", plan.ID)
	}

	ok, err := s.participated(ctx, userID, plan)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Forbiddenf("user %s did not take part in plan %s", userID, plan.ID)
	}

	review := &domain.Review{
		ID:           uuid.NewString(),
		TravelPlanID: plan.ID,
		AuthorUserID: userID,
		Rating:       input.Rating,
		Content:      strings.TrimSpace(input.Content),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) ListForPlan(ctx context.Context, planID string) ([]domain.Review, error) {
	if _, err := s.plans.GetByID(ctx, planID); err != nil {
		return nil, err
	}
	return s.reviews.ListByPlan(ctx, planID)
}

func (s *ReviewService) participated(ctx context.Context, userID string, plan *domain.TravelPlan) (bool, error) {
	if plan.OwnerUserID == userID {
		return true, nil
	}
	ids, err := joinedPlanIDs(ctx, s.connections, userID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == plan.ID {
			return true, nil
		}
	}
	return false, nil
}

func (s *ReviewService) check(input ReviewInput) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fe := fieldErrs[0]
	if fe.Field() == "Rating" {
		return domain.Validationf("rating must be between %d and %d", domain.MinRating, domain.MaxRating)
	}
	return domain.Validationf("%s failed %s", fe.Field(), fe.Tag())
}

var _ ReviewUseCase = (*ReviewService)(nil)
