package service

import (
	"context"
	"log/slog"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
)

// FeedSource lists the published reviews.
type FeedSource interface {
	ListPublic(ctx context.Context) (domain.PublicFeed, error)
}

// FeedService loads the testimonial feed.
type FeedService struct {
	source FeedSource
	logger *slog.Logger
}

// NewFeedService creates a new feed service.
func NewFeedService(source FeedSource, logger *slog.Logger) *FeedService {
	return &FeedService{source: source, logger: logger}
}

// LoadFeed fetches and converts the public reviews. It never fails: fetch
// errors and empty results become placeholder feeds.
func (s *FeedService) LoadFeed(ctx context.Context) domain.Feed {
	public, err := s.source.ListPublic(ctx)
	if err != nil {
		loadErr := &domain.FeedLoadError{Err: err}
		s.logger.WarnContext(ctx, "testimonial feed unavailable",
			slog.String("error", loadErr.Error()),
		)
		feedLoadsTotal.WithLabelValues(string(domain.FeedFailed)).Inc()
		return domain.FailedFeed()
	}

	if !public.Success || len(public.Data) == 0 {
		feedLoadsTotal.WithLabelValues(string(domain.FeedEmpty)).Inc()
		return domain.EmptyFeed()
	}

	feed := domain.NewFeed(public.Data)
	feedLoadsTotal.WithLabelValues(string(feed.State)).Inc()
	return feed
}
