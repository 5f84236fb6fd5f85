package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
	"github.com/Fachryxyf/felisa-userside/internal/repository"
	apperrors "github.com/Fachryxyf/felisa-userside/pkg/errors"
)

// OpenSessionInput holds the parameters for opening a review form.
type OpenSessionInput struct {
	SessionID   string `json:"session_id" validate:"omitempty,uuid"`
	ProductID   string `json:"product_id" validate:"required,max=100"`
	ProductName string `json:"product_name" validate:"required,max=200"`
}

// SessionView is a session as shown to the host UI.
type SessionView struct {
	domain.Session
	TotalScore float64 `json:"total_score"`
	// Complete is true once every criterion has at least one star.
	Complete bool `json:"complete"`
}

// SessionService implements the review form lifecycle on top of the session
// store and the submission orchestrator.
type SessionService struct {
	repo         repository.SessionRepository
	guard        repository.SubmitGuard
	orchestrator *Orchestrator
	logger       *slog.Logger
	now          func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(repo repository.SessionRepository, guard repository.SubmitGuard, orchestrator *Orchestrator, logger *slog.Logger) *SessionService {
	return &SessionService{
		repo:         repo,
		guard:        guard,
		orchestrator: orchestrator,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Criteria returns the rating criteria in display order.
func (s *SessionService) Criteria() []domain.Criterion {
	return domain.Criteria()
}

// OpenSession opens the review form for a product. When input.SessionID
// names a known session it is reopened for the new product with cleared
// ratings; this is refused while that session is submitting.
func (s *SessionService) OpenSession(ctx context.Context, input OpenSessionInput) (*SessionView, error) {
	if input.ProductID == "" || input.ProductName == "" {
		return nil, apperrors.InvalidInput("product id and product name are required")
	}

	now := s.now()
	session := domain.NewSession(input.ProductID, input.ProductName, now)

	if input.SessionID != "" {
		existing, err := s.repo.Get(ctx, input.SessionID)
		switch {
		case err == nil:
			if err := s.ensureIdle(ctx, existing.ID); err != nil {
				return nil, err
			}
			session = existing.Reopen(input.ProductID, input.ProductName, now)
		case !errors.Is(err, apperrors.ErrNotFound):
			return nil, fmt.Errorf("get review session: %w", err)
		}
	}

	if err := s.repo.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save review session: %w", err)
	}

	s.logger.InfoContext(ctx, "review session opened",
		slog.String("session_id", session.ID),
		slog.String("product_id", session.ProductID),
	)

	return s.view(session), nil
}

// GetSession returns a session with its live score and submission state.
func (s *SessionService) GetSession(ctx context.Context, id string) (*SessionView, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// SetRating records a star value (0..5) for one criterion. It is refused
// while the session is submitting and after the session was closed.
func (s *SessionService) SetRating(ctx context.Context, id string, key domain.CriterionKey, stars int) (*SessionView, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Closed() {
		return nil, errSessionClosed()
	}
	if session.State == domain.SessionSubmitting {
		return nil, domain.ErrSubmissionInProgress
	}

	session, err = session.Rate(key, stars, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save review session: %w", err)
	}

	s.logger.DebugContext(ctx, "rating set",
		slog.String("session_id", id),
		slog.String("criterion", string(key)),
		slog.Int("stars", stars),
	)

	return s.view(session), nil
}

// CloseSession discards the session. It is refused while submitting.
func (s *SessionService) CloseSession(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.ensureIdle(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete review session: %w", err)
	}

	s.logger.InfoContext(ctx, "review session closed", slog.String("session_id", id))
	return nil
}

// SubmitReview submits the session's review and stores the resulting
// session: closed after success, unchanged ratings after failure. A closed
// session must be reopened for a product before it can be submitted again.
func (s *SessionService) SubmitReview(ctx context.Context, id string, input SubmitInput) (*SubmitResult, *SessionView, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if session.Closed() {
		return nil, nil, errSessionClosed()
	}

	next, result, submitErr := s.orchestrator.Submit(ctx, session, input)
	if errors.Is(submitErr, domain.ErrSubmissionInProgress) {
		return nil, nil, submitErr
	}

	s.storeAfterSubmit(context.WithoutCancel(ctx), session, next)

	return result, s.view(next), submitErr
}

// storeAfterSubmit saves next unless the stored session moved on while the
// submission ran (reopened, closed or rated through another request).
func (s *SessionService) storeAfterSubmit(ctx context.Context, before, next domain.Session) {
	current, err := s.repo.Get(ctx, before.ID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		s.logger.InfoContext(ctx, "review session closed during submit, not stored",
			slog.String("session_id", before.ID),
		)
		return
	case err != nil:
		s.logger.ErrorContext(ctx, "failed to reload review session after submit",
			slog.String("session_id", before.ID),
			slog.String("error", err.Error()),
		)
		return
	case !current.UpdatedAt.Equal(before.UpdatedAt):
		s.logger.InfoContext(ctx, "review session changed during submit, keeping stored state",
			slog.String("session_id", before.ID),
		)
		return
	}

	if err := s.repo.Save(ctx, next); err != nil {
		s.logger.ErrorContext(ctx, "failed to save review session after submit",
			slog.String("session_id", before.ID),
			slog.String("error", err.Error()),
		)
	}
}

// PrecheckAvatar applies the avatar limits without uploading anything.
func (s *SessionService) PrecheckAvatar(file *domain.AvatarFile) error {
	return domain.CheckAvatar(file)
}

func (s *SessionService) load(ctx context.Context, id string) (domain.Session, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}

	held, err := s.guard.Held(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("check submit guard: %w", err)
	}
	if held {
		session.State = domain.SessionSubmitting
	}
	return session, nil
}

func (s *SessionService) ensureIdle(ctx context.Context, id string) error {
	held, err := s.guard.Held(ctx, id)
	if err != nil {
		return fmt.Errorf("check submit guard: %w", err)
	}
	if held {
		return domain.ErrSubmissionInProgress
	}
	return nil
}

func (s *SessionService) view(session domain.Session) *SessionView {
	return &SessionView{
		Session:    session,
		TotalScore: session.TotalScore(),
		Complete:   session.Ratings.Complete(),
	}
}

func errSessionClosed() error {
	return apperrors.Gone("review session is closed; open it for a product first")
}
