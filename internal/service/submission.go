package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
	"github.com/Fachryxyf/felisa-userside/internal/repository"
	"github.com/Fachryxyf/felisa-userside/internal/storage"
	"github.com/Fachryxyf/felisa-userside/pkg/logger"
	"github.com/Fachryxyf/felisa-userside/pkg/tracing"
)

// Stage is a step of the submission pipeline reported to progress listeners.
type Stage string

const (
	StageUploading  Stage = "uploading"
	StageSubmitting Stage = "submitting"
)

// Progress messages shown to the reviewer while a submission runs.
const (
	MsgUploadingAvatar = "Mengupload foto profil..."
	MsgSendingReview   = "Mengirim ulasan..."
)

// ProgressFunc receives stage transitions of a running submission.
type ProgressFunc func(ctx context.Context, stage Stage, message string)

// ReviewSubmitter sends a finished review to the review API.
type ReviewSubmitter interface {
	Submit(ctx context.Context, sub domain.ReviewSubmission) (domain.Acknowledgement, error)
}

// EventPublisher publishes review lifecycle events.
type EventPublisher interface {
	PublishReviewSubmitted(ctx context.Context, sessionID string, sub domain.ReviewSubmission) error
	PublishReviewFailed(ctx context.Context, sessionID, productID, stage string, cause error) error
}

// SubmitInput is the reviewer's form input for one submission.
type SubmitInput struct {
	ReviewerName string
	Comment      string
	Avatar       *domain.AvatarFile
	Progress     ProgressFunc
}

// SubmitResult is returned for an accepted review.
type SubmitResult struct {
	Submission      domain.ReviewSubmission `json:"submission"`
	Acknowledgement domain.Acknowledgement  `json:"acknowledgement"`
	Message         string                  `json:"message"`
}

// Orchestrator runs the validate, score, upload and submit pipeline for a
// review session. At most one submission per session is in flight.
type Orchestrator struct {
	guard     repository.SubmitGuard
	uploader  storage.Uploader
	submitter ReviewSubmitter
	events    EventPublisher
	folder    string
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewOrchestrator creates a submission orchestrator. Avatars are filed under
// folder on the media host.
func NewOrchestrator(
	guard repository.SubmitGuard,
	uploader storage.Uploader,
	submitter ReviewSubmitter,
	events EventPublisher,
	folder string,
	logger *slog.Logger,
) *Orchestrator {
	if folder == "" {
		folder = domain.DefaultAvatarFolder
	}
	return &Orchestrator{
		guard:     guard,
		uploader:  uploader,
		submitter: submitter,
		events:    events,
		folder:    folder,
		logger:    logger,
		tracer:    tracing.Tracer("review.submission"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates, scores and sends the review held by session.
//
// A second call for a session whose submission is still in flight fails
// with domain.ErrSubmissionInProgress before any collaborator is contacted.
// Validation failures return *domain.ValidationError, avatar failures
// *domain.UploadError and review API failures *domain.RemoteError; a panic
// in a collaborator becomes *domain.SubmissionError. The returned session is
// reset after success and left idle with its ratings otherwise. The
// in-flight mark is released on every exit.
func (o *Orchestrator) Submit(ctx context.Context, session domain.Session, in SubmitInput) (out domain.Session, res *SubmitResult, err error) {
	out = session

	acquired, err := o.guard.Acquire(ctx, session.ID)
	if err != nil {
		return out, nil, fmt.Errorf("acquire submit guard: %w", err)
	}
	if !acquired {
		reviewSubmissionsTotal.WithLabelValues(outcomeRejected).Inc()
		o.logger.WarnContext(ctx, "review submission already in progress",
			slog.String("session_id", session.ID),
		)
		return out, nil, domain.ErrSubmissionInProgress
	}

	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "review.Submit", trace.WithAttributes(
		attribute.String("review.session_id", session.ID),
		attribute.String("review.product_id", session.ProductID),
	))

	defer func() {
		if r := recover(); r != nil {
			err = &domain.SubmissionError{Cause: r}
			res = nil
			out = session
			out.State = domain.SessionIdle
			o.logger.ErrorContext(ctx, "review submission panicked",
				slog.String("session_id", session.ID),
				slog.Any("panic", r),
			)
			o.publishFailed(ctx, session, outcomePanic, err)
		}

		outcome := outcomeOf(err)
		reviewSubmissionsTotal.WithLabelValues(outcome).Inc()
		reviewSubmissionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.String("review.outcome", outcome))
		tracing.RecordError(span, err)
		span.End()

		if relErr := o.guard.Release(context.WithoutCancel(ctx), session.ID); relErr != nil {
			o.logger.ErrorContext(ctx, "failed to release submit guard",
				slog.String("session_id", session.ID),
				slog.String("error", relErr.Error()),
			)
		}
	}()

	out.State = domain.SessionSubmitting
	res, err = o.run(ctx, session, in)
	if err != nil {
		out = session
		out.State = domain.SessionIdle
		return out, nil, err
	}

	return session.Reset(o.now()), res, nil
}

func (o *Orchestrator) run(ctx context.Context, session domain.Session, in SubmitInput) (*SubmitResult, error) {
	draft := session.Draft(in.ReviewerName, in.Comment)
	if vr := domain.Validate(draft); !vr.IsValid {
		o.logger.InfoContext(ctx, "review rejected by form validation",
			slog.String("session_id", session.ID),
			slog.Int("violations", len(vr.Errors)),
		)
		return nil, vr.Err()
	}

	draft = draft.Normalize()
	sub := domain.ReviewSubmission{
		ProductID:    draft.ProductID,
		ProductName:  draft.ProductName,
		ReviewerName: draft.ReviewerName,
		Comment:      draft.Comment,
		Ratings:      draft.Ratings,
		AvatarURL:    nil,
		TotalScore:   domain.ComputeTotalScore(draft.Ratings),
		Timestamp:    o.now(),
	}

	if in.Avatar.Present() {
		notify(ctx, in.Progress, StageUploading, MsgUploadingAvatar)
		url, err := o.upload(ctx, in.Avatar)
		if err != nil {
			o.publishFailed(ctx, session, "upload", err)
			return nil, err
		}
		sub.AvatarURL = &url
	}

	notify(ctx, in.Progress, StageSubmitting, MsgSendingReview)
	ack, err := o.send(ctx, sub)
	if err != nil {
		o.publishFailed(ctx, session, "submit", err)
		return nil, err
	}

	reviewTotalScore.Observe(sub.TotalScore)
	if pubErr := o.events.PublishReviewSubmitted(ctx, session.ID, sub); pubErr != nil {
		logger.WithContext(ctx, o.logger).WarnContext(ctx, "failed to publish review.submitted event",
			slog.String("error", pubErr.Error()),
		)
	}

	o.logger.InfoContext(ctx, "review submitted",
		slog.String("session_id", session.ID),
		slog.String("product_id", sub.ProductID),
		slog.Float64("total_score", sub.TotalScore),
		slog.Bool("has_avatar", sub.AvatarURL != nil),
	)

	return &SubmitResult{
		Submission:      sub,
		Acknowledgement: ack,
		Message:         domain.MsgSubmitSucceeded,
	}, nil
}

func (o *Orchestrator) upload(ctx context.Context, avatar *domain.AvatarFile) (string, error) {
	ctx, span := o.tracer.Start(ctx, "review.UploadAvatar", trace.WithAttributes(
		attribute.String("avatar.content_type", avatar.ContentType),
		attribute.Int64("avatar.size", avatar.Size),
	))
	defer span.End()

	url, err := o.uploader.Upload(ctx, avatar, o.folder)
	if err != nil {
		var uploadErr *domain.UploadError
		if !errors.As(err, &uploadErr) {
			err = domain.NewUploadError(domain.UploadTransport, err.Error(), err)
		}
		tracing.RecordError(span, err)
		return "", err
	}
	return url, nil
}

func (o *Orchestrator) send(ctx context.Context, sub domain.ReviewSubmission) (domain.Acknowledgement, error) {
	ctx, span := o.tracer.Start(ctx, "review.SendReview")
	defer span.End()

	ack, err := o.submitter.Submit(ctx, sub)
	if err != nil {
		var remoteErr *domain.RemoteError
		if !errors.As(err, &remoteErr) {
			err = domain.NewRemoteError(0, "", err)
		}
		tracing.RecordError(span, err)
		return nil, err
	}
	return ack, nil
}

func (o *Orchestrator) publishFailed(ctx context.Context, session domain.Session, stage string, cause error) {
	if err := o.events.PublishReviewFailed(context.WithoutCancel(ctx), session.ID, session.ProductID, stage, cause); err != nil {
		o.logger.WarnContext(ctx, "failed to publish review.failed event",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
	}
}

func notify(ctx context.Context, fn ProgressFunc, stage Stage, message string) {
	if fn != nil {
		fn(ctx, stage, message)
	}
}

func outcomeOf(err error) string {
	var (
		valErr    *domain.ValidationError
		uploadErr *domain.UploadError
		remoteErr *domain.RemoteError
		subErr    *domain.SubmissionError
	)
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.As(err, &valErr):
		return outcomeInvalid
	case errors.As(err, &uploadErr):
		return outcomeUploadFailed
	case errors.As(err, &remoteErr):
		return outcomeRemoteFailed
	case errors.As(err, &subErr):
		return outcomePanic
	}
	return outcomeError
}
