package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
	pkgkafka "github.com/Fachryxyf/felisa-userside/pkg/kafka"
	"github.com/Fachryxyf/felisa-userside/pkg/logger"
)

type mockPublisher struct {
	mock.Mock
}

var _ pkgkafka.Publisher = (*mockPublisher)(nil)

func (m *mockPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "storefront.review.submitted", TopicReviewSubmitted)
	assert.Equal(t, "storefront.review.failed", TopicReviewFailed)
}

func TestPublishReviewSubmitted(t *testing.T) {
	pub := new(mockPublisher)
	p := NewProducer(pub, testLogger())

	avatar := "https://res.cloudinary.com/x.png"
	sub := domain.ReviewSubmission{
		ProductID:   "prod-7",
		ProductName: "Tas Rajut",
		Ratings:     domain.RatingSet{"B1": 5, "B2": 5, "B3": 5, "B4": 5, "B5": 5},
		TotalScore:  100,
		AvatarURL:   &avatar,
	}

	var captured *pkgkafka.Event
	pub.On("Publish", mock.Anything, TopicReviewSubmitted, mock.AnythingOfType("*kafka.Event")).
		Run(func(args mock.Arguments) { captured = args.Get(2).(*pkgkafka.Event) }).
		Return(nil)

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	require.NoError(t, p.PublishReviewSubmitted(ctx, "sess-1", sub))

	require.NotNil(t, captured)
	assert.Equal(t, "sess-1", captured.AggregateID)
	assert.Equal(t, AggregateTypeReviewSession, captured.AggregateType)
	assert.Equal(t, SourceStorefrontReview, captured.Source)
	assert.Equal(t, "corr-1", captured.CorrelationID)

	var data ReviewSubmittedData
	require.NoError(t, captured.UnmarshalData(&data))
	assert.Equal(t, "prod-7", data.ProductID)
	assert.Equal(t, 100.0, data.TotalScore)
	assert.True(t, data.HasAvatar)
	pub.AssertExpectations(t)
}

func TestPublishReviewFailed(t *testing.T) {
	pub := new(mockPublisher)
	p := NewProducer(pub, testLogger())

	var captured *pkgkafka.Event
	pub.On("Publish", mock.Anything, TopicReviewFailed, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).(*pkgkafka.Event) }).
		Return(nil)

	err := p.PublishReviewFailed(context.Background(), "sess-1", "prod-7", "upload", errors.New("Upload failed: too big"))
	require.NoError(t, err)

	var data ReviewFailedData
	require.NoError(t, captured.UnmarshalData(&data))
	assert.Equal(t, "upload", data.Stage)
	assert.Equal(t, "Upload failed: too big", data.Reason)
	assert.Empty(t, captured.CorrelationID)
}

func TestPublish_Error(t *testing.T) {
	pub := new(mockPublisher)
	p := NewProducer(pub, testLogger())
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	err := p.PublishReviewSubmitted(context.Background(), "sess-1", domain.ReviewSubmission{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish storefront.review.submitted event")
}

func TestNopPublisher(t *testing.T) {
	p := NewProducer(pkgkafka.NopPublisher{}, testLogger())
	assert.NoError(t, p.PublishReviewSubmitted(context.Background(), "sess-1", domain.ReviewSubmission{}))
}
