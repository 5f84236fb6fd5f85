package domain

import (
	"strings"
	"unicode/utf8"
)

// PublicReview is one record of the review API's public feed.
type PublicReview struct {
	Comment      string  `json:"comment"`
	ReviewerName string  `json:"reviewer_name"`
	TotalScore   float64 `json:"total_score"`
	AvatarURL    *string `json:"avatar_url,omitempty"`
}

// PublicFeed is the review API's public feed response.
type PublicFeed struct {
	Success bool           `json:"success"`
	Data    []PublicReview `json:"data"`
}

// Testimonial is a review in display form.
type Testimonial struct {
	Comment      string  `json:"comment"`
	ReviewerName string  `json:"reviewer_name"`
	StarCount    int     `json:"star_count"`
	AvatarURL    *string `json:"avatar_url"`
	Initials     string  `json:"initials"`
}

// FeedState tells the host UI what to render.
type FeedState string

const (
	FeedReady  FeedState = "ready"
	FeedEmpty  FeedState = "empty"
	FeedFailed FeedState = "failed"
)

// Feed is the result of one testimonial load. Placeholder is set whenever
// Testimonials is empty.
type Feed struct {
	State        FeedState     `json:"state"`
	Testimonials []Testimonial `json:"testimonials"`
	Placeholder  string        `json:"placeholder,omitempty"`
}

// EmptyFeed is shown when the API has nothing published.
func EmptyFeed() Feed {
	return Feed{State: FeedEmpty, Testimonials: []Testimonial{}, Placeholder: MsgFeedEmpty}
}

// FailedFeed is shown when the feed could not be fetched.
func FailedFeed() Feed {
	return Feed{State: FeedFailed, Testimonials: []Testimonial{}, Placeholder: MsgFeedFailed}
}

// NewFeed maps public reviews to testimonials, or to an empty placeholder.
func NewFeed(reviews []PublicReview) Feed {
	if len(reviews) == 0 {
		return EmptyFeed()
	}
	out := make([]Testimonial, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, ToTestimonial(r))
	}
	return Feed{State: FeedReady, Testimonials: out}
}

// ToTestimonial converts one public review. Avatars that are not absolute
// http(s) URLs are replaced by the reviewer's initials.
func ToTestimonial(r PublicReview) Testimonial {
	t := Testimonial{
		Comment:      r.Comment,
		ReviewerName: r.ReviewerName,
		StarCount:    StarCount(r.TotalScore),
	}
	if r.AvatarURL != nil && strings.HasPrefix(*r.AvatarURL, "http") {
		url := *r.AvatarURL
		t.AvatarURL = &url
		return t
	}
	t.Initials = Initials(r.ReviewerName)
	return t
}

// Initials returns the uppercased first letters of the first two non-empty
// space-separated words of name.
func Initials(name string) string {
	var b strings.Builder
	n := 0
	for _, word := range strings.Split(name, " ") {
		if word == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteString(strings.ToUpper(string(r)))
		n++
		if n == 2 {
			break
		}
	}
	return b.String()
}
