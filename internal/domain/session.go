package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the submission state of a review session.
type SessionState string

const (
	SessionIdle       SessionState = "idle"
	SessionSubmitting SessionState = "submitting"
)

// Session is one open review form: the product being reviewed and the stars
// picked so far. It is passed into and returned from every operation instead
// of living in shared mutable state.
type Session struct {
	ID          string       `json:"id"`
	ProductID   string       `json:"product_id"`
	ProductName string       `json:"product_name"`
	Ratings     RatingSet    `json:"ratings"`
	State       SessionState `json:"state"`
	OpenedAt    time.Time    `json:"opened_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewSession opens a fresh idle session with all ratings at zero.
func NewSession(productID, productName string, now time.Time) Session {
	return Session{
		ID:          uuid.New().String(),
		ProductID:   productID,
		ProductName: productName,
		Ratings:     NewRatingSet(),
		State:       SessionIdle,
		OpenedAt:    now,
		UpdatedAt:   now,
	}
}

// Reopen points the session at another product and clears its ratings,
// keeping its ID.
func (s Session) Reopen(productID, productName string, now time.Time) Session {
	s.ProductID = productID
	s.ProductName = productName
	s.Ratings = NewRatingSet()
	s.State = SessionIdle
	s.OpenedAt = now
	s.UpdatedAt = now
	return s
}

// Reset returns the closed form of s: no product, no ratings, idle.
func (s Session) Reset(now time.Time) Session {
	return Session{
		ID:        s.ID,
		Ratings:   NewRatingSet(),
		State:     SessionIdle,
		OpenedAt:  s.OpenedAt,
		UpdatedAt: now,
	}
}

// Closed reports whether s was reset and no longer belongs to a product.
func (s Session) Closed() bool {
	return s.ProductID == ""
}

// Rate returns s with one criterion set to stars.
func (s Session) Rate(key CriterionKey, stars int, now time.Time) (Session, error) {
	ratings := s.Ratings.Clone()
	if err := ratings.Set(key, stars); err != nil {
		return s, err
	}
	s.Ratings = ratings
	s.UpdatedAt = now
	return s, nil
}

// Draft combines the session's product context and ratings with the
// reviewer's text fields.
func (s Session) Draft(reviewerName, comment string) ReviewDraft {
	return ReviewDraft{
		ProductID:    s.ProductID,
		ProductName:  s.ProductName,
		ReviewerName: reviewerName,
		Comment:      comment,
		Ratings:      s.Ratings.Clone(),
	}
}

// TotalScore is the live SAW score of the stars picked so far.
func (s Session) TotalScore() float64 {
	return ComputeTotalScore(s.Ratings)
}
