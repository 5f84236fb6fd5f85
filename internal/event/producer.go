package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
	pkgkafka "github.com/Fachryxyf/felisa-userside/pkg/kafka"
	"github.com/Fachryxyf/felisa-userside/pkg/logger"
)

// Kafka topics for review events.
var (
	TopicReviewSubmitted = pkgkafka.Topic("review", "submitted")
	TopicReviewFailed    = pkgkafka.Topic("review", "failed")
)

// Aggregate type constant.
const AggregateTypeReviewSession = "review_session"

// Source identifier for events originating from this service.
const SourceStorefrontReview = "storefront-review"

// ReviewSubmittedData is the payload for a review.submitted event.
type ReviewSubmittedData struct {
	SessionID   string           `json:"session_id"`
	ProductID   string           `json:"product_id"`
	ProductName string           `json:"product_name"`
	Ratings     domain.RatingSet `json:"ratings"`
	TotalScore  float64          `json:"total_score"`
	HasAvatar   bool             `json:"has_avatar"`
}

// ReviewFailedData is the payload for a review.failed event.
type ReviewFailedData struct {
	SessionID string `json:"session_id"`
	ProductID string `json:"product_id"`
	Stage     string `json:"stage"`
	Reason    string `json:"reason"`
}

// Producer publishes review events to Kafka.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a new review event producer.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishReviewSubmitted publishes a review.submitted event.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, sessionID string, sub domain.ReviewSubmission) error {
	data := ReviewSubmittedData{
		SessionID:   sessionID,
		ProductID:   sub.ProductID,
		ProductName: sub.ProductName,
		Ratings:     sub.Ratings,
		TotalScore:  sub.TotalScore,
		HasAvatar:   sub.AvatarURL != nil,
	}

	if err := p.publish(ctx, TopicReviewSubmitted, sessionID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published review.submitted event",
		slog.String("session_id", sessionID),
		slog.String("product_id", sub.ProductID),
	)
	return nil
}

// PublishReviewFailed publishes a review.failed event. stage names the
// pipeline step that failed (validate, upload, submit, panic).
func (p *Producer) PublishReviewFailed(ctx context.Context, sessionID, productID, stage string, cause error) error {
	data := ReviewFailedData{
		SessionID: sessionID,
		ProductID: productID,
		Stage:     stage,
		Reason:    cause.Error(),
	}

	if err := p.publish(ctx, TopicReviewFailed, sessionID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published review.failed event",
		slog.String("session_id", sessionID),
		slog.String("stage", stage),
	)
	return nil
}

func (p *Producer) publish(ctx context.Context, topic, sessionID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, sessionID, AggregateTypeReviewSession, SourceStorefrontReview, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
