package reviews

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/Domenick1991/tripmates/internal/repository"
	"github.com/Domenick1991/tripmates/internal/service/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	plans       *repository.MemoryPlanRepository
	connections *repository.MemoryConnectionRepository
	reviews     *repository.MemoryReviewRepository
	tracker     *Tracker
	service     *ReviewService
}

func newFixture() *fixture {
	f := &fixture{
		plans:       repository.NewMemoryPlanRepository(),
		connections: repository.NewMemoryConnectionRepository(),
		reviews:     repository.NewMemoryReviewRepository(),
	}
	f.tracker = NewTracker(f.plans, f.connections, f.reviews, nil)
	f.service = NewReviewService(f.reviews, f.plans, f.connections)
	return f
}

func day(month time.Month, d int) time.Time {
	return time.Date(2026, month, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) addPlan(t *testing.T, id, owner string, end time.Time, completed bool) {
	t.Helper()
	plan := &domain.TravelPlan{
		ID:          id,
		OwnerUserID: owner,
		Destination: "Bali",
		StartDate:   end.AddDate(0, 0, -9),
		EndDate:     end,
		Visibility:  domain.VisibilityPublic,
		Status:      domain.PlanStatusUpcoming,
	}
	require.NoError(t, f.plans.Create(context.Background(), plan))
	if completed {
		f.plans.SetStatus(id, domain.PlanStatusCompleted, end.AddDate(0, 0, 1))
	}
}

func (f *fixture) connect(t *testing.T, sender, receiver, planID string) {
	t.Helper()
	ctx := context.Background()
	req := &domain.ConnectionRequest{
		ID:             sender + "-" + receiver + "-" + planID,
		SenderUserID:   sender,
		ReceiverUserID: receiver,
		RelatedPlanID:  &planID,
		Status:         domain.ConnectionStatusPending,
	}
	require.NoError(t, f.connections.Create(ctx, req))
	_, err := f.connections.CompareAndSetStatus(ctx, req.ID, domain.ConnectionStatusPending, domain.ConnectionStatusAccepted)
	require.NoError(t, err)
}

func planID(plan *domain.TravelPlan) string {
	if plan == nil {
		return ""
	}
	return plan.ID
}

func TestTracker_OwnerSeesCompletedPlan(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addPlan(t, "bali", "alice", day(time.June, 10), true)
	f.addPlan(t, "future", "alice", day(time.December, 10), false)

	next, err := f.tracker.GetNextObligation(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "bali", planID(next))

	none, err := f.tracker.GetNextObligation(ctx, "s1", "bob")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestTracker_DismissIsSessionScoped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addPlan(t, "bali", "alice", day(time.June, 10), true)

	require.NoError(t, f.tracker.Dismiss(ctx, "s1", "alice", "bali"))

	next, err := f.tracker.GetNextObligation(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.Nil(t, next)

	// Новая сессия снова видит обязательство
	next, err = f.tracker.GetNextObligation(ctx, "s2", "alice")
	require.NoError(t, err)
	assert.Equal(t, "bali", planID(next))

	require.NoError(t, f.tracker.EndSession(ctx, "s1"))
	next, err = f.tracker.GetNextObligation(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "bali", planID(next))
}

func TestTracker_Dismiss_ValidationErrors(t *testing.T) {
	f := newFixture()

	testCases := []struct {
		name    string
		session string
		user    string
		plan    string
	}{
		{name: "no session", session: "", user: "alice", plan: "bali"},
		{name: "no user", session: "s1", user: "", plan: "bali"},
		{name: "no plan", session: "s1", user: "alice", plan: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.tracker.Dismiss(context.Background(), tc.session, tc.user, tc.plan)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestTracker_OldestCompletedFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addPlan(t, "newer", "alice", day(time.July, 10), true)
	f.addPlan(t, "older", "alice", day(time.June, 10), true)
	f.addPlan(t, "joined", "bob", day(time.June, 20), true)
	f.connect(t, "alice", "bob", "joined")

	next, err := f.tracker.GetNextObligation(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "older", planID(next))

	require.NoError(t, f.tracker.Dismiss(ctx, "s1", "alice", "older"))
	next, err = f.tracker.GetNextObligation(ctx, "s1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "joined", planID(next))
}

func TestTracker_PendingConnectionDoesNotCount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addPlan(t, "bali", "alice", day(time.June, 10), true)
	planRef := "bali"
	require.NoError(t, f.connections.Create(ctx, &domain.ConnectionRequest{
		ID:             "pending",
		SenderUserID:   "bob",
		ReceiverUserID: "alice",
		RelatedPlanID:  &planRef,
		Status:         domain.ConnectionStatusPending,
	}))

	next, err := f.tracker.GetNextObligation(ctx, "s1", "bob")
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestTracker_CheckAfterSubmission_SequentialPrompts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addPlan(t, "first", "alice", day(time.June, 10), true)
	f.addPlan(t, "second", "alice", day(time.July, 10), true)

	_, err := f.service.Submit(ctx, "alice", ReviewInput{TravelPlanID: "first", Rating: 4})
	require.NoError(t, err)

	next, err := f.tracker.CheckAfterSubmission(ctx, "s1", "alice", "first")
	require.NoError(t, err)
	assert.Equal(t, "second", planID(next))

	_, err = f.service.Submit(ctx, "alice", ReviewInput{TravelPlanID: "second", Rating: 5})
	require.NoError(t, err)

	next, err = f.tracker.CheckAfterSubmission(ctx, "s1", "alice", "second")
	require.NoError(t, err)
	assert.Nil(t, next)

	// Отзыв навсегда закрывает обязательство, даже в новой сессии
	next, err = f.tracker.GetNextObligation(ctx, "s9", "alice")
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestTracker_CheckAfterSubmission_NeverReturnsSubmittedPlan(t *testing.T) {
	f := newFixture()
	f.addPlan(t, "bali", "alice", day(time.June, 10), true)

	next, err := f.tracker.CheckAfterSubmission(context.Background(), "", "alice", "bali")

	require.NoError(t, err)
	assert.Nil(t, next)
}

type MockSuppressionStore struct {
	mock.Mock
}

func (m *MockSuppressionStore) Suppress(ctx context.Context, sessionID, userID, planID string) error {
	args := m.Called(ctx, sessionID, userID, planID)
	return args.Error(0)
}

func (m *MockSuppressionStore) Suppressed(ctx context.Context, sessionID, userID string) (map[string]struct{}, error) {
	args := m.Called(ctx, sessionID, userID)
	ids, _ := args.Get(0).(map[string]struct{})
	return ids, args.Error(1)
}

func (m *MockSuppressionStore) EndSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func TestTracker_SuppressionStoreError(t *testing.T) {
	f := newFixture()
	mockStore := &MockSuppressionStore{}
	tracker := NewTracker(f.plans, f.connections, f.reviews, mockStore)
	ctx := context.Background()
	f.addPlan(t, "bali", "alice", day(time.June, 10), true)

	mockStore.On("Suppressed", ctx, "s1", "alice").Return(nil, errors.New("redis down")).Once()

	next, err := tracker.GetNextObligation(ctx, "s1", "alice")

	assert.Nil(t, next)
	assert.EqualError(t, err, "redis down")
	mockStore.AssertExpectations(t)
}

func TestReviewService_Submit_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addPlan(t, "done", "alice", day(time.June, 10), true)
	f.addPlan(t, "future", "alice", day(time.December, 10), false)

	_, err := f.service.Submit(ctx, "alice", ReviewInput{TravelPlanID: "done", Rating: 3})
	require.NoError(t, err)

	testCases := []struct {
		name    string
		user    string
		input   ReviewInput
		wantErr error
	}{
		{name: "rating too low", user: "alice", input: ReviewInput{TravelPlanID: "done", Rating: 0}, wantErr: domain.ErrValidation},
		{name: "rating too high", user: "alice", input: ReviewInput{TravelPlanID: "done", Rating: 6}, wantErr: domain.ErrValidation},
		{name: "missing plan id", user: "alice", input: ReviewInput{TravelPlanID: " ", Rating: 3}, wantErr: domain.ErrValidation},
		{name: "unknown plan", user: "alice", input: ReviewInput{TravelPlanID: "nope", Rating: 3}, wantErr: domain.ErrNotFound},
		{name: "plan not completed", user: "alice", input: ReviewInput{TravelPlanID: "future", Rating: 3}, wantErr: domain.ErrInvalidState},
		{name: "not a participant", user: "mallory", input: ReviewInput{TravelPlanID: "done", Rating: 3}, wantErr: domain.ErrForbidden},
		{name: "duplicate review", user: "alice", input: ReviewInput{TravelPlanID: "done", Rating: 5}, wantErr: domain.ErrConflict},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			review, err := f.service.Submit(ctx, tc.user, tc.input)
			assert.Nil(t, review)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestReviewService_Submit_RatingMessage(t *testing.T) {
	f := newFixture()

	_, err := f.service.Submit(context.Background(), "alice", ReviewInput{TravelPlanID: "done", Rating: 9})

	assert.EqualError(t, err, "validation failed: rating must be between 1 and 5")
}

func TestReviewService_ListForPlan(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addPlan(t, "done", "alice", day(time.June, 10), true)
	f.connect(t, "bob", "alice", "done")

	_, err := f.service.Submit(ctx, "alice", ReviewInput{TravelPlanID: "done", Rating: 4, Content: "  great  "})
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, "bob", ReviewInput{TravelPlanID: "done", Rating: 5})
	require.NoError(t, err)

	reviews, err := f.service.ListForPlan(ctx, "done")
	require.NoError(t, err)
	assert.Len(t, reviews, 2)

	_, err = f.service.ListForPlan(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEndToEnd_ConnectTravelReview(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	connections := connection.NewConnectionService(f.connections, f.plans, nil)

	f.addPlan(t, "bali", "alice", day(time.June, 10), false)
	bali := "bali"

	req, err := connections.SendRequest(ctx, "alice", "bob", &bali)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionStatusPending, req.Status)

	accepted, err := connections.Respond(ctx, req.ID, "bob", domain.DecisionAccept)
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionStatusAccepted, accepted.Status)

	// До завершения поездки обязательств нет
	next, err := f.tracker.GetNextObligation(ctx, "sa", "alice")
	require.NoError(t, err)
	assert.Nil(t, next)

	_, err = f.plans.AdvanceStatuses(ctx, day(time.June, 11))
	require.NoError(t, err)

	forAlice, err := f.tracker.GetNextObligation(ctx, "sa", "alice")
	require.NoError(t, err)
	assert.Equal(t, "bali", planID(forAlice))

	forBob, err := f.tracker.GetNextObligation(ctx, "sb", "bob")
	require.NoError(t, err)
	assert.Equal(t, "bali", planID(forBob))

	_, err = f.service.Submit(ctx, "bob", ReviewInput{TravelPlanID: "bali", Rating: 5, Content: "Perfect trip"})
	require.NoError(t, err)

	forBob, err = f.tracker.CheckAfterSubmission(ctx, "sb", "bob", "bali")
	require.NoError(t, err)
	assert.Nil(t, forBob)

	forAlice, err = f.tracker.GetNextObligation(ctx, "sa", "alice")
	require.NoError(t, err)
	assert.Equal(t, "bali", planID(forAlice))
}
