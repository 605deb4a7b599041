package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/Domenick1991/tripmates/internal/match"
	"github.com/Domenick1991/tripmates/internal/service/plans"
	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	plans   plans.PlanUseCase
	matcher match.MatchUseCase
}

type planRequest struct {
	Title       string  `json:"title"`
	Destination string  `json:"destination"`
	StartDate   string  `json:"start_date" binding:"required"`
	EndDate     string  `json:"end_date" binding:"required"`
	Budget      float64 `json:"budget"`
	TravelType  string  `json:"travel_type"`
	Visibility  string  `json:"visibility"`
}

func NewPlanHandler(planService plans.PlanUseCase, matcher match.MatchUseCase) *PlanHandler {
	return &PlanHandler{plans: planService, matcher: matcher}
}

func (h *PlanHandler) Register(router *gin.RouterGroup) {
	router.GET("/search", h.search)
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.PUT("/:id", h.update)
}

func (h *PlanHandler) search(c *gin.Context) {
	criteria, err := parseCriteria(c)
	if err != nil {
		writeError(c, err)
		return
	}

	found, err := h.matcher.FindCandidates(c.Request.Context(), criteria)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlanResponses(found))
}

func (h *PlanHandler) create(c *gin.Context) {
	input, ok := bindPlan(c)
	if !ok {
		return
	}
	created, err := h.plans.Create(c.Request.Context(), userID(c), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPlanResponse(created))
}

func (h *PlanHandler) update(c *gin.Context) {
	input, ok := bindPlan(c)
	if !ok {
		return
	}
	updated, err := h.plans.Update(c.Request.Context(), userID(c), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlanResponse(updated))
}

func (h *PlanHandler) get(c *gin.Context) {
	plan, err := h.plans.Get(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlanResponse(plan))
}

func bindPlan(c *gin.Context) (plans.PlanInput, bool) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return plans.PlanInput{}, false
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return plans.PlanInput{}, false
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
		return plans.PlanInput{}, false
	}
	return plans.PlanInput{
		Title:       req.Title,
		Destination: req.Destination,
		StartDate:   start,
		EndDate:     end,
		Budget:      req.Budget,
		TravelType:  req.TravelType,
		Visibility:  domain.Visibility(strings.ToLower(req.Visibility)),
	}, true
}

// parseCriteria reads search filters from the query string. The caller's own
// plans are left out unless include_own=true.
func parseCriteria(c *gin.Context) (match.Criteria, error) {
	criteria := match.Criteria{
		Destination: c.Query("destination"),
		TravelType:  c.Query("travel_type"),
	}
	if include, _ := strconv.ParseBool(c.Query("include_own")); !include {
		criteria.ExcludeOwnerID = userID(c)
	}

	var err error
	if criteria.StartDate, err = parseDate(c, "start_date"); err != nil {
		return match.Criteria{}, err
	}
	if criteria.EndDate, err = parseDate(c, "end_date"); err != nil {
		return match.Criteria{}, err
	}
	if raw := c.Query("max_budget"); raw != "" {
		budget, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return match.Criteria{}, domain.Validationf("max_budget must be a number")
		}
		criteria.MaxBudget = &budget
	}
	if criteria.Page, err = parseInt(c, "page"); err != nil {
		return match.Criteria{}, err
	}
	if criteria.Limit, err = parseInt(c, "limit"); err != nil {
		return match.Criteria{}, err
	}
	return criteria, nil
}

func parseDate(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, domain.Validationf("%s must be YYYY-MM-DD", key)
	}
	return t, nil
}

func parseInt(c *gin.Context, key string) (*int, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.Validationf("%s must be an integer", key)
	}
	return &v, nil
}
