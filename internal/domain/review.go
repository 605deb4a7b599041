package domain

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID           string
	TravelPlanID string
	AuthorUserID string
	Rating       int
	Content      string
	CreatedAt    time.Time
}
