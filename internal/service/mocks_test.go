package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
	"github.com/Fachryxyf/felisa-userside/internal/repository"
	"github.com/Fachryxyf/felisa-userside/internal/storage"
)

// --- Mock SubmitGuard ---

type mockGuard struct {
	mock.Mock
}

var _ repository.SubmitGuard = (*mockGuard)(nil)

func (m *mockGuard) Acquire(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

func (m *mockGuard) Release(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *mockGuard) Held(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

// --- Mock Uploader ---

type mockUploader struct {
	mock.Mock
}

var _ storage.Uploader = (*mockUploader)(nil)

func (m *mockUploader) Upload(ctx context.Context, file *domain.AvatarFile, folder string) (string, error) {
	args := m.Called(ctx, file, folder)
	return args.String(0), args.Error(1)
}

// --- Mock ReviewSubmitter ---

type mockSubmitter struct {
	mock.Mock
}

var _ ReviewSubmitter = (*mockSubmitter)(nil)

func (m *mockSubmitter) Submit(ctx context.Context, sub domain.ReviewSubmission) (domain.Acknowledgement, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Acknowledgement), args.Error(1)
}

// --- Mock EventPublisher ---

type mockEvents struct {
	mock.Mock
}

var _ EventPublisher = (*mockEvents)(nil)

func (m *mockEvents) PublishReviewSubmitted(ctx context.Context, sessionID string, sub domain.ReviewSubmission) error {
	args := m.Called(ctx, sessionID, sub)
	return args.Error(0)
}

func (m *mockEvents) PublishReviewFailed(ctx context.Context, sessionID, productID, stage string, cause error) error {
	args := m.Called(ctx, sessionID, productID, stage, cause)
	return args.Error(0)
}

// --- Mock FeedSource ---

type mockFeedSource struct {
	mock.Mock
}

var _ FeedSource = (*mockFeedSource)(nil)

func (m *mockFeedSource) ListPublic(ctx context.Context) (domain.PublicFeed, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.PublicFeed), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
