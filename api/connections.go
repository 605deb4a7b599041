package api

import (
	"net/http"
	"strings"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/Domenick1991/tripmates/internal/service/connection"
	"github.com/gin-gonic/gin"
)

type ConnectionHandler struct {
	service connection.ConnectionUseCase
}

type sendRequestRequest struct {
	ReceiverUserID string  `json:"receiver_user_id" binding:"required"`
	RelatedPlanID  *string `json:"related_plan_id"`
}

type respondRequest struct {
	Decision string `json:"decision" binding:"required"`
}

type activeConnectionResponse struct {
	Connection *connectionResponse `json:"connection"`
}

func NewConnectionHandler(service connection.ConnectionUseCase) *ConnectionHandler {
	return &ConnectionHandler{service: service}
}

func (h *ConnectionHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.send)
	router.GET("", h.list)
	router.GET("/with/:userId", h.active)
	router.POST("/:id/respond", h.respond)
	router.POST("/:id/cancel", h.cancel)
	router.DELETE("/:id", h.remove)
}

func (h *ConnectionHandler) send(c *gin.Context) {
	var req sendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.SendRequest(c.Request.Context(), userID(c), req.ReceiverUserID, req.RelatedPlanID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toConnectionResponse(created))
}

func (h *ConnectionHandler) respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision := domain.Decision(strings.ToUpper(strings.TrimSpace(req.Decision)))
	updated, err := h.service.Respond(c.Request.Context(), c.Param("id"), userID(c), decision)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toConnectionResponse(updated))
}

func (h *ConnectionHandler) cancel(c *gin.Context) {
	cancelled, err := h.service.Cancel(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toConnectionResponse(cancelled))
}

func (h *ConnectionHandler) remove(c *gin.Context) {
	if err := h.service.RemoveConnection(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ConnectionHandler) active(c *gin.Context) {
	found, err := h.service.GetActiveConnection(c.Request.Context(), userID(c), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	var resp activeConnectionResponse
	if found != nil {
		dto := toConnectionResponse(found)
		resp.Connection = &dto
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ConnectionHandler) list(c *gin.Context) {
	var status *domain.ConnectionStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.ConnectionStatus(strings.ToUpper(raw))
		switch s {
		case domain.ConnectionStatusPending, domain.ConnectionStatusAccepted, domain.ConnectionStatusRejected:
			status = &s
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + raw})
			return
		}
	}

	reqs, err := h.service.ListConnections(c.Request.Context(), userID(c), status)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]connectionResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, toConnectionResponse(&reqs[i]))
	}
	c.JSON(http.StatusOK, out)
}
