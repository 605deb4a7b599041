package api

import (
	"net/http"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/Domenick1991/tripmates/internal/service/reviews"
	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviews reviews.ReviewUseCase
	tracker reviews.ObligationUseCase
}

type submitReviewRequest struct {
	TravelPlanID string `json:"travel_plan_id"`
	Rating       int    `json:"rating"`
	Content      string `json:"content"`
}

type submitReviewResponse struct {
	Review         reviewResponse `json:"review"`
	NextObligation *planResponse  `json:"next_obligation"`
}

type obligationResponse struct {
	Plan *planResponse `json:"plan"`
}

func NewReviewHandler(reviewService reviews.ReviewUseCase, tracker reviews.ObligationUseCase) *ReviewHandler {
	return &ReviewHandler{reviews: reviewService, tracker: tracker}
}

// Register mounts the review routes on the API root group.
func (h *ReviewHandler) Register(router *gin.RouterGroup) {
	router.POST("/reviews", h.submit)
	router.GET("/reviews/obligation", h.obligation)
	router.POST("/reviews/obligation/:planId/dismiss", h.dismiss)
	router.POST("/reviews/session/end", h.endSession)
	router.GET("/plans/:id/reviews", h.listForPlan)
}

func (h *ReviewHandler) submit(c *gin.Context) {
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	review, err := h.reviews.Submit(ctx, userID(c), reviews.ReviewInput{
		TravelPlanID: req.TravelPlanID,
		Rating:       req.Rating,
		Content:      req.Content,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := submitReviewResponse{Review: toReviewResponse(review)}
	next, err := h.tracker.CheckAfterSubmission(ctx, sessionID(c), userID(c), review.TravelPlanID)
	if err != nil {
		writeError(c, err)
		return
	}
	resp.NextObligation = optionalPlan(next)
	c.JSON(http.StatusCreated, resp)
}

func (h *ReviewHandler) obligation(c *gin.Context) {
	next, err := h.tracker.GetNextObligation(c.Request.Context(), sessionID(c), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, obligationResponse{Plan: optionalPlan(next)})
}

func (h *ReviewHandler) dismiss(c *gin.Context) {
	if err := h.tracker.Dismiss(c.Request.Context(), sessionID(c), userID(c), c.Param("planId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReviewHandler) endSession(c *gin.Context) {
	if err := h.tracker.EndSession(c.Request.Context(), sessionID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReviewHandler) listForPlan(c *gin.Context) {
	list, err := h.reviews.ListForPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]reviewResponse, 0, len(list))
	for i := range list {
		out = append(out, toReviewResponse(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func optionalPlan(plan *domain.TravelPlan) *planResponse {
	if plan == nil {
		return nil
	}
	dto := toPlanResponse(plan)
	return &dto
}
