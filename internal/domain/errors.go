package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// User-facing messages, in the storefront locale.
const (
	MsgNameTooShort        = "Nama reviewer harus diisi minimal 2 karakter"
	MsgCommentTooShort     = "Komentar harus diisi minimal 10 karakter"
	msgRatingMissingFormat = "Rating untuk %s harus diisi"

	MsgSubmitFailed         = "Terjadi kesalahan saat mengirim ulasan."
	MsgSystemError          = "Terjadi kesalahan sistem. Silakan coba lagi."
	MsgSubmitSucceeded      = "Ulasan berhasil dikirim! Terima kasih atas feedback Anda."
	MsgSubmissionInProgress = "Ulasan sedang dikirim, mohon tunggu."

	MsgAvatarTooLarge        = "File size must be less than 5MB"
	MsgAvatarUnsupportedType = "File type not supported. Please use JPEG, PNG, GIF, or WebP"

	MsgFeedEmpty  = "Belum ada testimoni."
	MsgFeedFailed = "Gagal memuat testimoni."
)

// Sentinel errors.
var (
	ErrSubmissionInProgress = errors.New("review submission already in progress")
	ErrUnknownCriterion     = errors.New("unknown rating criterion")
	ErrRatingOutOfRange     = errors.New("rating must be between 0 and 5")
)

// ValidationError carries every failed form rule in evaluation order.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "\n")
}

// UploadReason classifies an avatar upload failure.
type UploadReason string

const (
	UploadTooLarge        UploadReason = "too_large"
	UploadUnsupportedType UploadReason = "unsupported_type"
	UploadTransport       UploadReason = "transport"
	UploadRejected        UploadReason = "rejected"
)

// UploadError reports a rejected or failed avatar upload.
type UploadError struct {
	Reason  UploadReason
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	return "Upload failed: " + e.Message
}

func (e *UploadError) Unwrap() error { return e.Err }

// NewUploadError builds an UploadError.
func NewUploadError(reason UploadReason, message string, err error) *UploadError {
	return &UploadError{Reason: reason, Message: message, Err: err}
}

// RemoteError reports a review submission the review API did not accept.
// Status is zero when no response was received.
type RemoteError struct {
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	return "Failed to send review: " + e.Message
}

func (e *RemoteError) Unwrap() error { return e.Err }

// NewRemoteError builds a RemoteError. An empty serverMessage falls back to
// a status based one, e.g. "API Error: 503 Service Unavailable".
func NewRemoteError(status int, serverMessage string, err error) *RemoteError {
	msg := strings.TrimSpace(serverMessage)
	if msg == "" {
		switch {
		case status > 0:
			msg = fmt.Sprintf("API Error: %d %s", status, http.StatusText(status))
		case err != nil:
			msg = err.Error()
		default:
			msg = MsgSubmitFailed
		}
	}
	return &RemoteError{Status: status, Message: msg, Err: err}
}

// FeedLoadError wraps a testimonial fetch failure. It is logged, never shown.
type FeedLoadError struct {
	Err error
}

func (e *FeedLoadError) Error() string {
	return "load testimonials: " + e.Err.Error()
}

func (e *FeedLoadError) Unwrap() error { return e.Err }

// SubmissionError is produced when a submission aborts unexpectedly, e.g. a
// collaborator panics.
type SubmissionError struct {
	Cause any
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission aborted: %v", e.Cause)
}

// UserMessage returns the most specific message the reviewer should see for
// err, falling back to the generic submission failure text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		valErr    *ValidationError
		uploadErr *UploadError
		remoteErr *RemoteError
		subErr    *SubmissionError
	)
	switch {
	case errors.As(err, &valErr):
		return valErr.Error()
	case errors.As(err, &uploadErr):
		return uploadErr.Error()
	case errors.As(err, &remoteErr):
		return remoteErr.Error()
	case errors.As(err, &subErr):
		return MsgSystemError
	case errors.Is(err, ErrSubmissionInProgress):
		return MsgSubmissionInProgress
	}
	return MsgSubmitFailed
}
