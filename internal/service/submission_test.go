package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
	"github.com/Fachryxyf/felisa-userside/internal/repository/memory"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type orchestratorDeps struct {
	guard     *mockGuard
	uploader  *mockUploader
	submitter *mockSubmitter
	events    *mockEvents
}

func newTestOrchestrator() (*Orchestrator, orchestratorDeps) {
	deps := orchestratorDeps{
		guard:     new(mockGuard),
		uploader:  new(mockUploader),
		submitter: new(mockSubmitter),
		events:    new(mockEvents),
	}
	o := NewOrchestrator(deps.guard, deps.uploader, deps.submitter, deps.events, "", newTestLogger())
	o.now = func() time.Time { return fixedNow }
	return o, deps
}

func ratedSession() domain.Session {
	s := domain.NewSession("prod-7", "Tas Rajut Felisa", fixedNow)
	s.Ratings = domain.RatingSet{"B1": 4, "B2": 3, "B3": 5, "B4": 4, "B5": 2}
	return s
}

func validInput() SubmitInput {
	return SubmitInput{
		ReviewerName: "  Ayu Lestari ",
		Comment:      " Rajutannya rapi dan warnanya cantik. ",
	}
}

func pngAvatar() *domain.AvatarFile {
	return &domain.AvatarFile{
		Filename:    "me.png",
		ContentType: "image/png",
		Size:        12,
		Content:     strings.NewReader("\x89PNG-content"),
	}
}

func (d orchestratorDeps) allowGuard(sessionID string) {
	d.guard.On("Acquire", mock.Anything, sessionID).Return(true, nil).Once()
	d.guard.On("Release", mock.Anything, sessionID).Return(nil).Once()
}

// ============================================================================
// Success paths
// ============================================================================

func TestSubmit_SuccessWithoutAvatar(t *testing.T) {
	o, deps := newTestOrchestrator()
	session := ratedSession()
	deps.allowGuard(session.ID)

	var sent domain.ReviewSubmission
	deps.submitter.On("Submit", mock.Anything, mock.AnythingOfType("domain.ReviewSubmission")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(domain.ReviewSubmission) }).
		Return(domain.Acknowledgement(`{"success":true}`), nil)
	deps.events.On("PublishReviewSubmitted", mock.Anything, session.ID, mock.Anything).Return(nil)

	var stages []Stage
	in := validInput()
	in.Progress = func(_ context.Context, stage Stage, _ string) { stages = append(stages, stage) }

	out, res, err := o.Submit(context.Background(), session, in)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "Ayu Lestari", sent.ReviewerName)
	assert.Equal(t, "Rajutannya rapi dan warnanya cantik.", sent.Comment)
	assert.Equal(t, "prod-7", sent.ProductID)
	assert.Equal(t, "Tas Rajut Felisa", sent.ProductName)
	assert.Nil(t, sent.AvatarURL)
	assert.InDelta(t, 75.0, sent.TotalScore, 1e-9)
	assert.Equal(t, fixedNow, sent.Timestamp)

	assert.Equal(t, domain.MsgSubmitSucceeded, res.Message)
	assert.JSONEq(t, `{"success":true}`, string(res.Acknowledgement))
	assert.Equal(t, []Stage{StageSubmitting}, stages)

	assert.Equal(t, session.ID, out.ID)
	assert.Equal(t, domain.SessionIdle, out.State)
	assert.Empty(t, out.ProductID)
	assert.Equal(t, domain.NewRatingSet(), out.Ratings)

	deps.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	deps.guard.AssertExpectations(t)
}

func TestSubmit_SuccessWithAvatar(t *testing.T) {
	o, deps := newTestOrchestrator()
	session := ratedSession()
	deps.allowGuard(session.ID)

	avatar := pngAvatar()
	deps.uploader.On("Upload", mock.Anything, avatar, domain.DefaultAvatarFolder).
		Return("https://res.cloudinary.com/demo/me.png", nil)
	deps.submitter.On("Submit", mock.Anything, mock.MatchedBy(func(s domain.ReviewSubmission) bool {
		return s.AvatarURL != nil && *s.AvatarURL == "https://res.cloudinary.com/demo/me.png"
	})).Return(domain.Acknowledgement(`{}`), nil)
	deps.events.On("PublishReviewSubmitted", mock.Anything, session.ID, mock.Anything).Return(nil)

	var messages []string
	in := validInput()
	in.Avatar = avatar
	in.Progress = func(_ context.Context, _ Stage, msg string) { messages = append(messages, msg) }

	_, res, err := o.Submit(context.Background(), session, in)
	require.NoError(t, err)
	require.NotNil(t, res.Submission.AvatarURL)
	assert.Equal(t, []string{"Mengupload foto profil...", "Mengirim ulasan..."}, messages)

	deps.uploader.AssertExpectations(t)
	deps.submitter.AssertExpectations(t)
}

func TestSubmit_EmptyAvatarPartIsIgnored(t *testing.T) {
	o, deps := newTestOrchestrator()
	session := ratedSession()
	deps.allowGuard(session.ID)
	deps.submitter.On("Submit", mock.Anything, mock.Anything).Return(domain.Acknowledgement(`{}`), nil)
	deps.events.On("PublishReviewSubmitted", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	in := validInput()
	in.Avatar = &domain.AvatarFile{Filename: "", Size: 0}

	_, res, err := o.Submit(context.Background(), session, in)
	require.NoError(t, err)
	assert.Nil(t, res.Submission.AvatarURL)
	deps.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_EventFailureDoesNotFailSubmission(t *testing.T) {
	o, deps := newTestOrchestrator()
	session := ratedSession()
	deps.allowGuard(session.ID)
	deps.submitter.On("Submit", mock.Anything, mock.Anything).Return(domain.Acknowledgement(`{}`), nil)
	deps.events.On("PublishReviewSubmitted", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	_, res, err := o.Submit(context.Background(), session, validInput())
	require.NoError(t, err)
	assert.NotNil(t, res)
}

// ============================================================================
// Failure paths
// ============================================================================

func TestSubmit_ValidationFailureContactsNothing(t *testing.T) {
	o, deps := newTestOrchestrator()
	session := ratedSession()
	deps.allowGuard(session.ID)

	in := validInput()
	in.ReviewerName = "A"
	in.Avatar = pngAvatar()

	out, res, err := o.Submit(context.Background(), session, in)
	require.Error(t, err)
	assert.Nil(t, res)

	var valErr *domain.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, []string{domain.MsgNameTooShort}, valErr.Errors)

	assert.Equal(t, domain.SessionIdle, out.State)
	assert.Equal(t, session.Ratings, out.Ratings)
	assert.Equal(t, "prod-7", out.ProductID)

	deps.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	deps.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	deps.guard.AssertExpectations(t)
}

func TestSubmit_MissingRatingsReported(t *testing.T) {
	o, deps := newTestOrchestrator()
	session := domain.NewSession("prod-7", "Tas", fixedNow)
	deps.allowGuard(session.ID)

	_, _, err := o.Submit(context.Background(), session, validInput())

	var valErr *domain.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Len(t, valErr.Errors, 5)
	assert.Equal(t, "Rating untuk Kualitas Bahan harus diisi", valErr.Errors[0])
}

func TestSubmit_AlreadyInProgressContactsNothing(t *testing.T) {
	o, deps := newTestOrchestrator()
	session := ratedSession()
	deps.guard.On("Acquire", mock.Anything, session.ID).Return(false, nil)

	out, res, err := o.Submit(context.Background(), session, validInput())

	assert.ErrorIs(t, err, domain.ErrSubmissionInProgress)
	assert.Nil(t, res)
	assert.Equal(t, session, out)
	deps.guard.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	deps.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	deps.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	deps.events.AssertNotCalled(t, "PublishReviewFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_GuardError(t *testing.T) {
	o, deps := newTestOrchestrator()
	session := ratedSession()
	deps.guard.On("Acquire", mock.Anything, session.ID).Return(false, errors.New("redis down"))

	_, _, err := o.Submit(context.Background(), session, validInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire submit guard")
	deps.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestSubmit_UploadFailureSkipsSubmitter(t *testing.T) {
	o, deps := newTestOrchestrator()
	session := ratedSession()
	deps.allowGuard(session.ID)

	avatar := pngAvatar()
	deps.uploader.On("Upload", mock.Anything, avatar, mock.Anything).
		Return("", domain.NewUploadError(domain.UploadRejected, "400 Bad Request", nil))
	deps.events.On("PublishReviewFailed", mock.Anything, session.ID, "prod-7", "upload", mock.Anything).Return(nil)

	in := validInput()
	in.Avatar = avatar

	out, res, err := o.Submit(context.Background(), session, in)
	assert.Nil(t, res)
	assert.Equal(t, "Upload failed: 400 Bad Request", err.Error())
	assert.Equal(t, domain.SessionIdle, out.State)
	assert.Equal(t, session.Ratings, out.Ratings)

	deps.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	deps.guard.AssertExpectations(t)
	deps.events.AssertExpectations(t)
}

func TestSubmit_UploadPlainErrorBecomesUploadError(t *testing.T) {
	o, deps := newTestOrchestrator()
	session := ratedSession()
	deps.allowGuard(session.ID)
	deps.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("connection reset"))
	deps.events.On("PublishReviewFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	in := validInput()
	in.Avatar = pngAvatar()

	_, _, err := o.Submit(context.Background(), session, in)

	var upErr *domain.UploadError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, domain.UploadTransport, upErr.Reason)
	assert.Equal(t, "Upload failed: connection reset", err.Error())
}

func TestSubmit_RemoteErrorKeepsServerMessage(t *testing.T) {
	o, deps := newTestOrchestrator()
	session := ratedSession()
	deps.allowGuard(session.ID)
	deps.submitter.On("Submit", mock.Anything, mock.Anything).
		Return(nil, domain.NewRemoteError(422, "Ulasan untuk produk ini sudah ada", nil))
	deps.events.On("PublishReviewFailed", mock.Anything, session.ID, "prod-7", "submit", mock.Anything).Return(nil)

	out, res, err := o.Submit(context.Background(), session, validInput())
	assert.Nil(t, res)
	assert.Equal(t, "Failed to send review: Ulasan untuk produk ini sudah ada", domain.UserMessage(err))
	assert.Equal(t, session.Ratings, out.Ratings)
	deps.guard.AssertExpectations(t)
}

func TestSubmit_PlainSubmitterErrorBecomesRemoteError(t *testing.T) {
	o, deps := newTestOrchestrator()
	session := ratedSession()
	deps.allowGuard(session.ID)
	deps.submitter.On("Submit", mock.Anything, mock.Anything).Return(nil, errors.New("circuit open"))
	deps.events.On("PublishReviewFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, _, err := o.Submit(context.Background(), session, validInput())

	var remoteErr *domain.RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "Failed to send review: circuit open", err.Error())
}

func TestSubmit_PanicReleasesGuard(t *testing.T) {
	o, deps := newTestOrchestrator()
	session := ratedSession()
	deps.allowGuard(session.ID)
	deps.submitter.On("Submit", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("nil map write")
	})
	deps.events.On("PublishReviewFailed", mock.Anything, session.ID, "prod-7", "panic", mock.Anything).Return(nil)

	var (
		out domain.Session
		res *SubmitResult
		err error
	)
	require.NotPanics(t, func() {
		out, res, err = o.Submit(context.Background(), session, validInput())
	})

	var subErr *domain.SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, "nil map write", subErr.Cause)
	assert.Equal(t, domain.MsgSystemError, domain.UserMessage(err))
	assert.Nil(t, res)
	assert.Equal(t, domain.SessionIdle, out.State)
	assert.Equal(t, session.Ratings, out.Ratings)
	deps.guard.AssertExpectations(t)
}

func TestSubmit_ReleaseSurvivesCanceledContext(t *testing.T) {
	o, deps := newTestOrchestrator()
	session := ratedSession()
	ctx, cancel := context.WithCancel(context.Background())

	deps.guard.On("Acquire", mock.Anything, session.ID).Return(true, nil)
	deps.guard.On("Release", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), session.ID).Return(nil)
	deps.submitter.On("Submit", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)
	deps.events.On("PublishReviewFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, _, err := o.Submit(ctx, session, validInput())
	require.Error(t, err)
	deps.guard.AssertExpectations(t)
}

// ============================================================================
// Concurrency with the in-memory guard
// ============================================================================

func TestSubmit_ConcurrentSubmitRejected(t *testing.T) {
	guard := memory.NewSubmitGuard()
	uploader := new(mockUploader)
	submitter := new(mockSubmitter)
	events := new(mockEvents)
	o := NewOrchestrator(guard, uploader, submitter, events, "", newTestLogger())

	session := ratedSession()
	entered := make(chan struct{})
	unblock := make(chan struct{})

	submitter.On("Submit", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(entered)
		<-unblock
	}).Return(domain.Acknowledgement(`{}`), nil).Once()
	events.On("PublishReviewSubmitted", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, firstErr = o.Submit(context.Background(), session, validInput())
	}()

	<-entered
	_, res, err := o.Submit(context.Background(), session, validInput())
	assert.ErrorIs(t, err, domain.ErrSubmissionInProgress)
	assert.Nil(t, res)
	submitter.AssertNumberOfCalls(t, "Submit", 1)

	close(unblock)
	wg.Wait()
	require.NoError(t, firstErr)

	held, _ := guard.Held(context.Background(), session.ID)
	assert.False(t, held)

	submitter.On("Submit", mock.Anything, mock.Anything).Return(domain.Acknowledgement(`{}`), nil).Once()
	_, _, err = o.Submit(context.Background(), session, validInput())
	assert.NoError(t, err)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, outcomeSuccess, outcomeOf(nil))
	assert.Equal(t, outcomeInvalid, outcomeOf(&domain.ValidationError{}))
	assert.Equal(t, outcomeUploadFailed, outcomeOf(domain.NewUploadError(domain.UploadTooLarge, "x", nil)))
	assert.Equal(t, outcomeRemoteFailed, outcomeOf(domain.NewRemoteError(500, "", nil)))
	assert.Equal(t, outcomePanic, outcomeOf(&domain.SubmissionError{Cause: "x"}))
	assert.Equal(t, outcomeError, outcomeOf(errors.New("x")))
}
