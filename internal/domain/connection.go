package domain

import "time"

type ConnectionStatus string

const (
	ConnectionStatusPending  ConnectionStatus = "PENDING"
	ConnectionStatusAccepted ConnectionStatus = "ACCEPTED"
	ConnectionStatusRejected ConnectionStatus = "REJECTED"
)

type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionReject Decision = "REJECT"
)

// Status maps a receiver's decision onto the resulting request status.
func (d Decision) Status() (ConnectionStatus, bool) {
	switch d {
	case DecisionAccept:
		return ConnectionStatusAccepted, true
	case DecisionReject:
		return ConnectionStatusRejected, true
	default:
		return "", false
	}
}

type ConnectionRequest struct {
	ID             string
	SenderUserID   string
	ReceiverUserID string
	RelatedPlanID  *string
	Status         ConnectionStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	RemovedAt      *time.Time
}

// Active reports whether the request still occupies the pair's slot.
func (c ConnectionRequest) Active() bool {
	if c.RemovedAt != nil {
		return false
	}
	return c.Status == ConnectionStatusPending || c.Status == ConnectionStatusAccepted
}

// Involves reports whether userID is the sender or the receiver.
func (c ConnectionRequest) Involves(userID string) bool {
	return c.SenderUserID == userID || c.ReceiverUserID == userID
}

// Counterparty returns the other side of the request for userID.
func (c ConnectionRequest) Counterparty(userID string) string {
	if c.SenderUserID == userID {
		return c.ReceiverUserID
	}
	return c.SenderUserID
}

// CanTransition allows only PENDING -> ACCEPTED and PENDING -> REJECTED.
func CanTransition(from, to ConnectionStatus) bool {
	if from != ConnectionStatusPending {
		return false
	}
	return to == ConnectionStatusAccepted || to == ConnectionStatusRejected
}

// PairKey is the order-independent key of two users.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}
