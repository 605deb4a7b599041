package domain

import "time"

type EventKind string

const (
	EventStatusChanged     EventKind = "status_changed"
	EventConnectionRemoved EventKind = "connection_removed"
)

type Direction string

const (
	DirectionSent     Direction = "SENT"
	DirectionReceived Direction = "RECEIVED"
)

// NotificationEvent is delivered to one user about one connection. Status is nil for removals.
type NotificationEvent struct {
	Kind               EventKind
	UserID             string
	CounterpartyUserID string
	Status             *ConnectionStatus
	Direction          Direction
	ConnectionID       string
	OccurredAt         time.Time
}

// EventFor builds the status-changed event for one party of the request.
func EventFor(userID string, req ConnectionRequest) NotificationEvent {
	direction := DirectionReceived
	if req.SenderUserID == userID {
		direction = DirectionSent
	}
	status := req.Status
	return NotificationEvent{
		Kind:               EventStatusChanged,
		UserID:             userID,
		CounterpartyUserID: req.Counterparty(userID),
		Status:             &status,
		Direction:          direction,
		ConnectionID:       req.ID,
		OccurredAt:         req.UpdatedAt,
	}
}
