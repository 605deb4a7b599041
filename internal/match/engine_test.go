package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/tripmates/config"
	"github.com/Domenick1991/tripmates/internal/cache"
	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/Domenick1991/tripmates/internal/repository"
	"github.com/Domenick1991/tripmates/internal/service/plans"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	plans []domain.TravelPlan
	calls int
	err   error
}

func (s *staticSource) ListDiscoverable(context.Context) ([]domain.TravelPlan, error) {
	s.calls++
	return s.plans, s.err
}

type MockPlanCache struct {
	mock.Mock
}

func (m *MockPlanCache) GetPlans(ctx context.Context) ([]domain.TravelPlan, error) {
	args := m.Called(ctx)
	plans, _ := args.Get(0).([]domain.TravelPlan)
	return plans, args.Error(1)
}

func (m *MockPlanCache) PlansGeneration(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPlanCache) SetPlans(ctx context.Context, generation int64, plans []domain.TravelPlan) error {
	args := m.Called(ctx, generation, plans)
	return args.Error(0)
}

// pausingSource blocks its first listing until released, after it has read the repo.
type pausingSource struct {
	source   PlanSource
	once     sync.Once
	listed   chan struct{}
	released chan struct{}
}

func newPausingSource(source PlanSource) *pausingSource {
	return &pausingSource{source: source, listed: make(chan struct{}), released: make(chan struct{})}
}

func (s *pausingSource) ListDiscoverable(ctx context.Context) ([]domain.TravelPlan, error) {
	plans, err := s.source.ListDiscoverable(ctx)
	s.once.Do(func() {
		close(s.listed)
		<-s.released
	})
	return plans, err
}

func day(month time.Month, d int) time.Time {
	return time.Date(2026, month, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func plan(id string, created time.Time, mutate ...func(*domain.TravelPlan)) domain.TravelPlan {
	p := domain.TravelPlan{
		ID:          id,
		OwnerUserID: "owner-" + id,
		Destination: "Bali, Indonesia",
		StartDate:   day(time.June, 1),
		EndDate:     day(time.June, 10),
		Budget:      1500,
		TravelType:  "adventure",
		Visibility:  domain.VisibilityPublic,
		Status:      domain.PlanStatusUpcoming,
		CreatedAt:   created,
	}
	for _, m := range mutate {
		m(&p)
	}
	return p
}

func ids(plans []domain.TravelPlan) []string {
	out := make([]string, 0, len(plans))
	for _, p := range plans {
		out = append(out, p.ID)
	}
	return out
}

func TestEngine_DateRangeOverlap(t *testing.T) {
	engine := NewEngine(&staticSource{plans: []domain.TravelPlan{plan("bali", day(time.May, 1))}})
	ctx := context.Background()

	testCases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  []string
	}{
		{name: "overlapping range", start: day(time.June, 5), end: day(time.June, 15), want: []string{"bali"}},
		{name: "range after plan", start: day(time.June, 11), end: day(time.June, 20), want: []string{}},
		{name: "touching end date", start: day(time.June, 10), end: day(time.June, 12), want: []string{"bali"}},
		{name: "open start", end: day(time.June, 1), want: []string{"bali"}},
		{name: "open end", start: day(time.June, 11), want: []string{}},
		{name: "no range", want: []string{"bali"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.FindCandidates(ctx, Criteria{StartDate: tc.start, EndDate: tc.end})
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestEngine_OnlyPublicActivePlans(t *testing.T) {
	source := &staticSource{plans: []domain.TravelPlan{
		plan("public", day(time.May, 1)),
		plan("private", day(time.May, 2), func(p *domain.TravelPlan) { p.Visibility = domain.VisibilityPrivate }),
		plan("ongoing", day(time.May, 3), func(p *domain.TravelPlan) { p.Status = domain.PlanStatusOngoing }),
		plan("completed", day(time.May, 4), func(p *domain.TravelPlan) { p.Status = domain.PlanStatusCompleted }),
	}}
	engine := NewEngine(source)

	got, err := engine.FindCandidates(context.Background(), Criteria{Destination: "bali"})

	require.NoError(t, err)
	assert.Equal(t, []string{"ongoing", "public"}, ids(got))
}

func TestEngine_Filters(t *testing.T) {
	source := &staticSource{plans: []domain.TravelPlan{
		plan("a", day(time.May, 1)),
		plan("b", day(time.May, 2), func(p *domain.TravelPlan) {
			p.Destination = "Lisbon"
			p.TravelType = "city"
			p.Budget = 800
		}),
		plan("c", day(time.May, 3), func(p *domain.TravelPlan) { p.OwnerUserID = "me" }),
	}}
	engine := NewEngine(source)
	ctx := context.Background()
	budget := 1000.0

	testCases := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{name: "destination substring ignores case", criteria: Criteria{Destination: "  LISB "}, want: []string{"b"}},
		{name: "travel type exact", criteria: Criteria{TravelType: "adventure"}, want: []string{"c", "a"}},
		{name: "travel type is not a substring match", criteria: Criteria{TravelType: "advent"}, want: []string{}},
		{name: "exclude own plans", criteria: Criteria{ExcludeOwnerID: "me"}, want: []string{"b", "a"}},
		{name: "max budget", criteria: Criteria{MaxBudget: &budget}, want: []string{"b"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.FindCandidates(ctx, tc.criteria)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestEngine_OrderingAndDeduplication(t *testing.T) {
	same := day(time.May, 5)
	source := &staticSource{plans: []domain.TravelPlan{
		plan("old", day(time.May, 1)),
		plan("y", same),
		plan("x", same),
		plan("y", same),
		plan("new", day(time.May, 9)),
	}}
	engine := NewEngine(source)

	got, err := engine.FindCandidates(context.Background(), Criteria{})

	require.NoError(t, err)
	assert.Equal(t, []string{"new", "x", "y", "old"}, ids(got))
}

func TestEngine_Pagination(t *testing.T) {
	var plans []domain.TravelPlan
	for i := 1; i <= 5; i++ {
		plans = append(plans, plan(string(rune('a'+i-1)), day(time.May, i)))
	}
	engine := NewEngine(&staticSource{plans: plans}, WithLimits(2, 3))
	ctx := context.Background()

	first, err := engine.FindCandidates(ctx, Criteria{})
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d"}, ids(first))

	third, err := engine.FindCandidates(ctx, Criteria{Page: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(third))

	beyond, err := engine.FindCandidates(ctx, Criteria{Page: intPtr(4)})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	clamped, err := engine.FindCandidates(ctx, Criteria{Limit: intPtr(50)})
	require.NoError(t, err)
	assert.Len(t, clamped, 3)
}

func TestEngine_ValidationErrors(t *testing.T) {
	engine := NewEngine(&staticSource{})
	negative := -1.0

	testCases := []struct {
		name     string
		criteria Criteria
	}{
		{name: "zero limit", criteria: Criteria{Limit: intPtr(0)}},
		{name: "negative limit", criteria: Criteria{Limit: intPtr(-3)}},
		{name: "page zero", criteria: Criteria{Page: intPtr(0)}},
		{name: "inverted range", criteria: Criteria{StartDate: day(time.June, 10), EndDate: day(time.June, 1)}},
		{name: "negative budget", criteria: Criteria{MaxBudget: &negative}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.FindCandidates(context.Background(), tc.criteria)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestEngine_UsesCache(t *testing.T) {
	source := &staticSource{}
	mockCache := &MockPlanCache{}
	engine := NewEngine(source, WithCache(mockCache))
	ctx := context.Background()

	cached := []domain.TravelPlan{plan("cached", day(time.May, 1))}
	mockCache.On("GetPlans", ctx).Return(cached, nil).Once()

	got, err := engine.FindCandidates(ctx, Criteria{})

	require.NoError(t, err)
	assert.Equal(t, []string{"cached"}, ids(got))
	assert.Equal(t, 0, source.calls)
	mockCache.AssertExpectations(t)
}

func TestEngine_CacheMissFillsCache(t *testing.T) {
	plans := []domain.TravelPlan{plan("fresh", day(time.May, 1))}
	source := &staticSource{plans: plans}
	mockCache := &MockPlanCache{}
	engine := NewEngine(source, WithCache(mockCache))
	ctx := context.Background()

	mockCache.On("GetPlans", ctx).Return(nil, errors.New("redis down")).Once()
	mockCache.On("PlansGeneration", ctx).Return(int64(3), nil).Once()
	mockCache.On("SetPlans", ctx, int64(3), plans).Return(nil).Once()

	got, err := engine.FindCandidates(ctx, Criteria{})

	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, ids(got))
	assert.Equal(t, 1, source.calls)
	mockCache.AssertExpectations(t)
}

func TestEngine_CacheGenerationErrorSkipsFill(t *testing.T) {
	plans := []domain.TravelPlan{plan("fresh", day(time.May, 1))}
	mockCache := &MockPlanCache{}
	engine := NewEngine(&staticSource{plans: plans}, WithCache(mockCache))
	ctx := context.Background()

	mockCache.On("GetPlans", ctx).Return(nil, nil).Once()
	mockCache.On("PlansGeneration", ctx).Return(int64(0), errors.New("redis down")).Once()

	got, err := engine.FindCandidates(ctx, Criteria{})

	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, ids(got))
	mockCache.AssertExpectations(t)
	mockCache.AssertNotCalled(t, "SetPlans", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_RefillRacingPrivateUpdateIsDropped(t *testing.T) {
	mr := miniredis.RunT(t)
	redisCache := cache.NewRedisCache(config.RedisConfig{Addr: mr.Addr()}, time.Minute)
	defer redisCache.Close()

	repo := repository.NewMemoryPlanRepository()
	planService := plans.NewPlanService(repo, redisCache)
	ctx := context.Background()

	input := plans.PlanInput{
		Title:       "Surf week",
		Destination: "Bali",
		StartDate:   time.Now().AddDate(0, 1, 0),
		EndDate:     time.Now().AddDate(0, 1, 7),
		Budget:      1200,
		TravelType:  "adventure",
		Visibility:  domain.VisibilityPublic,
	}
	created, err := planService.Create(ctx, "alice", input)
	require.NoError(t, err)

	source := newPausingSource(repo)
	engine := NewEngine(source, WithCache(redisCache))

	done := make(chan error, 1)
	go func() {
		_, err := engine.FindCandidates(ctx, Criteria{})
		done <- err
	}()

	<-source.listed
	input.Visibility = domain.VisibilityPrivate
	_, err = planService.Update(ctx, "alice", created.ID, input)
	require.NoError(t, err)
	close(source.released)
	require.NoError(t, <-done)

	got, err := engine.FindCandidates(ctx, Criteria{})

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEngine_SourceError(t *testing.T) {
	engine := NewEngine(&staticSource{err: errors.New("db down")})

	_, err := engine.FindCandidates(context.Background(), Criteria{})

	assert.EqualError(t, err, "db down")
}
