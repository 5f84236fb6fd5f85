package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Fachryxyf/felisa-userside/internal/service"
	"github.com/Fachryxyf/felisa-userside/pkg/health"
	"github.com/Fachryxyf/felisa-userside/pkg/middleware"
)

// ServiceName labels metrics and spans emitted by the HTTP layer.
const ServiceName = "storefront-review"

// RouterOptions carries the edge settings of the router.
type RouterOptions struct {
	PprofCIDRs       []string
	CORS             middleware.CORSConfig
	FeedCacheSeconds int
	// RequestTimeout must cover an avatar upload followed by the review API call.
	RequestTimeout time.Duration
	// Media serves locally stored avatars under /media/ when no media host
	// is configured.
	Media http.Handler
}

// NewRouter creates a chi router with all review routes registered.
func NewRouter(
	sessionService *service.SessionService,
	feedService *service.FeedService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	opts RouterOptions,
) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(opts.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(opts.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// pprof, operators only.
	middleware.RegisterDebug(r, opts.PprofCIDRs, logger)

	if opts.Media != nil {
		r.Get("/media/*", opts.Media.ServeHTTP)
		r.Head("/media/*", opts.Media.ServeHTTP)
	}

	reviewHandler := NewReviewHandler(sessionService, feedService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.CacheControl(opts.FeedCacheSeconds)).Get("/criteria", reviewHandler.ListCriteria)
		r.With(middleware.CacheControl(opts.FeedCacheSeconds)).Get("/testimonials", reviewHandler.ListTestimonials)
		r.With(ContentTypeJSON).Post("/avatars/precheck", reviewHandler.PrecheckAvatar)

		r.Route("/review-sessions", func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.With(ContentTypeJSON).Post("/", reviewHandler.OpenSession)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(SessionFromPath)

				r.Post("/submit", reviewHandler.SubmitReview)

				r.Group(func(r chi.Router) {
					r.Use(ContentTypeJSON)

					r.Get("/", reviewHandler.GetSession)
					r.Delete("/", reviewHandler.CloseSession)
					r.Put("/ratings/{criterion}", reviewHandler.SetRating)
				})
			})
		})
	})

	return r
}
