package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
	"github.com/Fachryxyf/felisa-userside/internal/service"
	"github.com/Fachryxyf/felisa-userside/pkg/httputil"
	"github.com/Fachryxyf/felisa-userside/pkg/logger"
	"github.com/Fachryxyf/felisa-userside/pkg/middleware"
	"github.com/Fachryxyf/felisa-userside/pkg/validator"
)

// multipartOverhead is the allowance for form fields on top of the avatar.
const multipartOverhead = 1 << 20

// ReviewHandler handles HTTP requests for the review widget.
type ReviewHandler struct {
	sessions *service.SessionService
	feed     *service.FeedService
	logger   *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(sessions *service.SessionService, feed *service.FeedService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		sessions: sessions,
		feed:     feed,
		logger:   logger,
	}
}

// --- Request DTOs ---

// SetRatingRequest is the JSON request body for rating one criterion.
type SetRatingRequest struct {
	Stars *int `json:"stars" validate:"required,gte=0,lte=5"`
}

// SubmitReviewRequest holds the text fields of the submit form. Minimum
// lengths are checked by the review pipeline; these are the form's caps.
type SubmitReviewRequest struct {
	ReviewerName string `json:"reviewerName" validate:"max=100"`
	Comment      string `json:"comment" validate:"max=500"`
}

// PrecheckAvatarRequest describes a file picked in the browser.
type PrecheckAvatarRequest struct {
	Filename    string `json:"filename" validate:"max=255"`
	ContentType string `json:"content_type" validate:"required"`
	Size        *int64 `json:"size" validate:"required,gte=0"`
}

// --- Response DTOs ---

type submitResponse struct {
	Message         string                  `json:"message"`
	Submission      domain.ReviewSubmission `json:"submission"`
	Acknowledgement domain.Acknowledgement  `json:"acknowledgement"`
	Session         *service.SessionView    `json:"session"`
}

type precheckResponse struct {
	Accepted bool `json:"accepted"`
}

// --- Handlers ---

// ListCriteria handles GET /api/v1/criteria.
func (h *ReviewHandler) ListCriteria(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.sessions.Criteria()})
}

// OpenSession handles POST /api/v1/review-sessions.
func (h *ReviewHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req service.OpenSessionInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(middleware.SessionIDHeader)
	}

	session, err := h.sessions.OpenSession(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set(middleware.SessionIDHeader, session.ID)
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: session})
}

// GetSession handles GET /api/v1/review-sessions/{id}.
func (h *ReviewHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// SetRating handles PUT /api/v1/review-sessions/{id}/ratings/{criterion}.
func (h *ReviewHandler) SetRating(w http.ResponseWriter, r *http.Request) {
	var req SetRatingRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	key := domain.CriterionKey(strings.ToUpper(chi.URLParam(r, "criterion")))
	session, err := h.sessions.SetRating(r.Context(), chi.URLParam(r, "id"), key, *req.Stars)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// CloseSession handles DELETE /api/v1/review-sessions/{id}.
func (h *ReviewHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.CloseSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SubmitReview handles POST /api/v1/review-sessions/{id}/submit
// (multipart/form-data with reviewerName, comment and an optional avatar).
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxAvatarSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, domain.NewUploadError(domain.UploadTooLarge, domain.MsgAvatarTooLarge, err))
			return
		}
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to parse multipart form: " + err.Error()},
		})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req := SubmitReviewRequest{
		ReviewerName: r.FormValue("reviewerName"),
		Comment:      r.FormValue("comment"),
	}
	if err := validator.Validate(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	avatar, closeAvatar, err := avatarFromForm(r)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid avatar: " + err.Error()},
		})
		return
	}
	defer closeAvatar()

	input := service.SubmitInput{
		ReviewerName: req.ReviewerName,
		Comment:      req.Comment,
		Avatar:       avatar,
		Progress: func(ctx context.Context, stage service.Stage, message string) {
			logger.FromContext(ctx).InfoContext(ctx, "review submission progress",
				slog.String("stage", string(stage)),
				slog.String("message", message),
			)
		},
	}

	result, session, err := h.sessions.SubmitReview(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: submitResponse{
		Message:         result.Message,
		Submission:      result.Submission,
		Acknowledgement: result.Acknowledgement,
		Session:         session,
	}})
}

// PrecheckAvatar handles POST /api/v1/avatars/precheck.
func (h *ReviewHandler) PrecheckAvatar(w http.ResponseWriter, r *http.Request) {
	var req PrecheckAvatarRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	err := h.sessions.PrecheckAvatar(&domain.AvatarFile{
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Size:        *req.Size,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: precheckResponse{Accepted: true}})
}

// ListTestimonials handles GET /api/v1/testimonials. It always answers 200;
// an unavailable feed is reported through the feed state.
func (h *ReviewHandler) ListTestimonials(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.feed.LoadFeed(r.Context())})
}

// avatarFromForm extracts the optional "avatar" part. A missing part yields a
// nil file. When the browser sent no specific type the content is sniffed.
func avatarFromForm(r *http.Request) (*domain.AvatarFile, func(), error) {
	noop := func() {}

	file, header, err := r.FormFile("avatar")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}
	closeFile := func() { _ = file.Close() }

	contentType := header.Header.Get("Content-Type")
	if header.Size > 0 && (contentType == "" || contentType == "application/octet-stream") {
		sniffed, err := sniffContentType(file)
		if err != nil {
			closeFile()
			return nil, noop, err
		}
		contentType = sniffed
	}

	return &domain.AvatarFile{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Content:     file,
	}, closeFile, nil
}

func sniffContentType(file multipart.File) (string, error) {
	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	contentType, _, _ := strings.Cut(mtype.String(), ";")
	return contentType, nil
}
