package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ReviewDraft is the reviewer's input before validation and scoring.
type ReviewDraft struct {
	ProductID    string
	ProductName  string
	ReviewerName string
	Comment      string
	Ratings      RatingSet
}

// Normalize trims the free-text fields, as they are sent to the review API.
func (d ReviewDraft) Normalize() ReviewDraft {
	d.ReviewerName = strings.TrimSpace(d.ReviewerName)
	d.Comment = strings.TrimSpace(d.Comment)
	d.Ratings = d.Ratings.Clone()
	return d
}

// ValidationResult is the verdict of Validate.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// Err returns a *ValidationError for an invalid result and nil otherwise.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return &ValidationError{Errors: r.Errors}
}

// draftRules declares the form rules. Field order is the order errors are
// reported in; the B fields must stay in criterion declaration order.
type draftRules struct {
	ReviewerName string `validate:"min=2"`
	Comment      string `validate:"min=10"`
	B1           int    `validate:"gte=1"`
	B2           int    `validate:"gte=1"`
	B3           int    `validate:"gte=1"`
	B4           int    `validate:"gte=1"`
	B5           int    `validate:"gte=1"`
}

var rules = validator.New()

// Validate checks d and collects every violation: name, comment, then each
// criterion B1..B5. Text lengths are measured after trimming, in characters.
func Validate(d ReviewDraft) ValidationResult {
	in := draftRules{
		ReviewerName: strings.TrimSpace(d.ReviewerName),
		Comment:      strings.TrimSpace(d.Comment),
		B1:           d.Ratings.Get(CriterionMaterial),
		B2:           d.Ratings.Get(CriterionDesign),
		B3:           d.Ratings.Get(CriterionTimeliness),
		B4:           d.Ratings.Get(CriterionSatisfaction),
		B5:           d.Ratings.Get(CriterionService),
	}

	err := rules.Struct(in)
	if err == nil {
		return ValidationResult{IsValid: true, Errors: []string{}}
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationResult{Errors: []string{MsgSubmitFailed}}
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, ruleMessage(fe.StructField()))
	}
	return ValidationResult{Errors: msgs}
}

func ruleMessage(field string) string {
	switch field {
	case "ReviewerName":
		return MsgNameTooShort
	case "Comment":
		return MsgCommentTooShort
	}
	if c, ok := LookupCriterion(CriterionKey(field)); ok {
		return fmt.Sprintf(msgRatingMissingFormat, c.DisplayName)
	}
	return MsgSubmitFailed
}
