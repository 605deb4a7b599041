package domain

import "time"

type PlanStatus string

const (
	PlanStatusUpcoming  PlanStatus = "upcoming"
	PlanStatusOngoing   PlanStatus = "ongoing"
	PlanStatusCompleted PlanStatus = "completed"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type TravelPlan struct {
	ID          string
	OwnerUserID string
	Title       string
	Destination string
	StartDate   time.Time
	EndDate     time.Time
	Budget      float64
	TravelType  string
	Visibility  Visibility
	Status      PlanStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Discoverable reports whether the plan may be offered to other travelers.
func (p TravelPlan) Discoverable() bool {
	if p.Visibility != VisibilityPublic {
		return false
	}
	return p.Status == PlanStatusUpcoming || p.Status == PlanStatusOngoing
}

// Overlaps reports whether the plan's dates intersect [from, to]. A zero bound is open.
func (p TravelPlan) Overlaps(from, to time.Time) bool {
	if !to.IsZero() && p.StartDate.After(to) {
		return false
	}
	if !from.IsZero() && p.EndDate.Before(from) {
		return false
	}
	return true
}

// StatusAt returns the status the plan should have at now. The end date is inclusive and
// status never moves backwards.
func (p TravelPlan) StatusAt(now time.Time) PlanStatus {
	next := PlanStatusUpcoming
	switch {
	case !now.Before(p.EndDate.AddDate(0, 0, 1)):
		next = PlanStatusCompleted
	case !now.Before(p.StartDate):
		next = PlanStatusOngoing
	}
	if planStatusRank[next] < planStatusRank[p.Status] {
		return p.Status
	}
	return next
}

var planStatusRank = map[PlanStatus]int{
	PlanStatusUpcoming:  0,
	PlanStatusOngoing:   1,
	PlanStatusCompleted: 2,
}
