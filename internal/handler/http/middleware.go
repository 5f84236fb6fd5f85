package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Fachryxyf/felisa-userside/pkg/httputil"
	"github.com/Fachryxyf/felisa-userside/pkg/logger"
	"github.com/Fachryxyf/felisa-userside/pkg/middleware"
)

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromPath validates the {id} path parameter and tags the request
// logger with it.
func SessionFromPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
		if !ok {
			return
		}

		ctx := r.Context()
		if logger.SessionIDFromContext(ctx) != id.String() {
			ctx = logger.WithSessionID(ctx, id.String())
			ctx = logger.NewContext(ctx, logger.FromContext(r.Context()).With("session_id", id.String()))
		}
		w.Header().Set(middleware.SessionIDHeader, id.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
