package domain

import (
	"fmt"
)

// CriterionKey identifies one of the five rated aspects of a product.
type CriterionKey string

// Criterion keys in declaration order.
const (
	CriterionMaterial     CriterionKey = "B1"
	CriterionDesign       CriterionKey = "B2"
	CriterionTimeliness   CriterionKey = "B3"
	CriterionSatisfaction CriterionKey = "B4"
	CriterionService      CriterionKey = "B5"
)

// Star rating bounds. Zero means unrated.
const (
	MinStars = 1
	MaxStars = 5
)

// Criterion is an immutable weighted rating criterion.
type Criterion struct {
	Key         CriterionKey `json:"key"`
	Weight      float64      `json:"weight"`
	DisplayName string       `json:"display_name"`
}

// criteria is the fixed catalogue. Weights sum to 1.0.
var criteria = [...]Criterion{
	{Key: CriterionMaterial, Weight: 0.10, DisplayName: "Kualitas Bahan"},
	{Key: CriterionDesign, Weight: 0.30, DisplayName: "Desain & Kreativitas"},
	{Key: CriterionTimeliness, Weight: 0.15, DisplayName: "Ketepatan Waktu"},
	{Key: CriterionSatisfaction, Weight: 0.40, DisplayName: "Kepuasan Keseluruhan"},
	{Key: CriterionService, Weight: 0.05, DisplayName: "Pelayanan Customer Service"},
}

// Criteria returns a copy of the criteria catalogue in declaration order.
func Criteria() []Criterion {
	out := make([]Criterion, len(criteria))
	copy(out, criteria[:])
	return out
}

// LookupCriterion returns the criterion for key.
func LookupCriterion(key CriterionKey) (Criterion, bool) {
	for _, c := range criteria {
		if c.Key == key {
			return c, true
		}
	}
	return Criterion{}, false
}

// RatingSet maps each criterion to a star value in [0,5].
type RatingSet map[CriterionKey]int

// NewRatingSet returns an all-zero rating set covering every criterion.
func NewRatingSet() RatingSet {
	rs := make(RatingSet, len(criteria))
	for _, c := range criteria {
		rs[c.Key] = 0
	}
	return rs
}

// Set records a star value for one criterion.
func (rs RatingSet) Set(key CriterionKey, stars int) error {
	if _, ok := LookupCriterion(key); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCriterion, key)
	}
	if stars < 0 || stars > MaxStars {
		return fmt.Errorf("%w: %d", ErrRatingOutOfRange, stars)
	}
	rs[key] = stars
	return nil
}

// Get returns the star value for key; missing entries read as 0.
func (rs RatingSet) Get(key CriterionKey) int {
	return rs[key]
}

// Clone returns a normalised copy holding exactly the five criterion keys.
func (rs RatingSet) Clone() RatingSet {
	out := NewRatingSet()
	for _, c := range criteria {
		out[c.Key] = rs[c.Key]
	}
	return out
}

// Complete reports whether every criterion has at least one star.
func (rs RatingSet) Complete() bool {
	for _, c := range criteria {
		if rs[c.Key] < MinStars {
			return false
		}
	}
	return true
}
