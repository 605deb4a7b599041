package api

import (
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
)

const dateLayout = "2006-01-02"

type planResponse struct {
	ID          string  `json:"id"`
	OwnerUserID string  `json:"owner_user_id"`
	Title       string  `json:"title"`
	Destination string  `json:"destination"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Budget      float64 `json:"budget"`
	TravelType  string  `json:"travel_type"`
	Visibility  string  `json:"visibility"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

type connectionResponse struct {
	ID             string  `json:"id"`
	SenderUserID   string  `json:"sender_user_id"`
	ReceiverUserID string  `json:"receiver_user_id"`
	RelatedPlanID  *string `json:"related_plan_id,omitempty"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	RemovedAt      *string `json:"removed_at,omitempty"`
}

type reviewResponse struct {
	ID           string `json:"id"`
	TravelPlanID string `json:"travel_plan_id"`
	AuthorUserID string `json:"author_user_id"`
	Rating       int    `json:"rating"`
	Content      string `json:"content"`
	CreatedAt    string `json:"created_at"`
}

type notificationResponse struct {
	Kind               string  `json:"kind"`
	UserID             string  `json:"user_id"`
	CounterpartyUserID string  `json:"counterparty_user_id"`
	Status             *string `json:"status"`
	Direction          string  `json:"direction"`
	ConnectionID       string  `json:"connection_id"`
	OccurredAt         string  `json:"occurred_at"`
}

func toPlanResponse(p *domain.TravelPlan) planResponse {
	return planResponse{
		ID:          p.ID,
		OwnerUserID: p.OwnerUserID,
		Title:       p.Title,
		Destination: p.Destination,
		StartDate:   p.StartDate.Format(dateLayout),
		EndDate:     p.EndDate.Format(dateLayout),
		Budget:      p.Budget,
		TravelType:  p.TravelType,
		Visibility:  string(p.Visibility),
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		CompletedAt: formatOptional(p.CompletedAt),
	}
}

func toPlanResponses(plans []domain.TravelPlan) []planResponse {
	out := make([]planResponse, 0, len(plans))
	for i := range plans {
		out = append(out, toPlanResponse(&plans[i]))
	}
	return out
}

func toConnectionResponse(r *domain.ConnectionRequest) connectionResponse {
	return connectionResponse{
		ID:             r.ID,
		SenderUserID:   r.SenderUserID,
		ReceiverUserID: r.ReceiverUserID,
		RelatedPlanID:  r.RelatedPlanID,
		Status:         string(r.Status),
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      r.UpdatedAt.Format(time.RFC3339),
		RemovedAt:      formatOptional(r.RemovedAt),
	}
}

func toReviewResponse(r *domain.Review) reviewResponse {
	return reviewResponse{
		ID:           r.ID,
		TravelPlanID: r.TravelPlanID,
		AuthorUserID: r.AuthorUserID,
		Rating:       r.Rating,
		Content:      r.Content,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
}

func toNotificationResponse(e domain.NotificationEvent) notificationResponse {
	var status *string
	if e.Status != nil {
		s := string(*e.Status)
		status = &s
	}
	return notificationResponse{
		Kind:               string(e.Kind),
		UserID:             e.UserID,
		CounterpartyUserID: e.CounterpartyUserID,
		Status:             status,
		Direction:          string(e.Direction),
		ConnectionID:       e.ConnectionID,
		OccurredAt:         e.OccurredAt.Format(time.RFC3339Nano),
	}
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
