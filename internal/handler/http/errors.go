package http

import (
	"errors"
	"net/http"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
	apperrors "github.com/Fachryxyf/felisa-userside/pkg/errors"
	"github.com/Fachryxyf/felisa-userside/pkg/httputil"
)

// toAppError translates review pipeline errors into API errors carrying the
// message the reviewer should see. Errors that are already AppErrors, or
// unknown, pass through unchanged.
func toAppError(err error) error {
	var (
		valErr    *domain.ValidationError
		uploadErr *domain.UploadError
		remoteErr *domain.RemoteError
		subErr    *domain.SubmissionError
	)

	switch {
	case errors.As(err, &valErr):
		return apperrors.InvalidInput(domain.UserMessage(err)).WithDetails(valErr.Errors)
	case errors.Is(err, domain.ErrSubmissionInProgress):
		return apperrors.Conflict(domain.UserMessage(err))
	case errors.Is(err, domain.ErrUnknownCriterion), errors.Is(err, domain.ErrRatingOutOfRange):
		return apperrors.InvalidInput(err.Error())
	case errors.As(err, &uploadErr):
		return apperrors.Unprocessable("UPLOAD_FAILED", domain.UserMessage(err))
	case errors.As(err, &remoteErr):
		return apperrors.BadGateway("REMOTE_ERROR", domain.UserMessage(err))
	case errors.As(err, &subErr):
		appErr := apperrors.Internal(err)
		appErr.Message = domain.UserMessage(err)
		return appErr
	}
	return err
}

func (h *ReviewHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, toAppError(err), h.logger)
}
