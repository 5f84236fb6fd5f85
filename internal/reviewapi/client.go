package reviewapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
	"github.com/Fachryxyf/felisa-userside/pkg/httpclient"
)

// Endpoint paths relative to the review API base URL.
const (
	reviewsPath       = "/reviews"
	publicReviewsPath = "/reviews/public"
)

// maxResponseBody caps how much of a success body is read.
const maxResponseBody = 4 << 20

// ErrUnavailable is returned while the review API circuit is open.
var ErrUnavailable = errors.New("review service is temporarily unavailable")

// CircuitOpenFallback fails fast with ErrUnavailable when the circuit
// breaker in front of the review API is open.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, ErrUnavailable
}

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client talks to the review storage API.
type Client struct {
	http    HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a review API client rooted at baseURL, e.g.
// http://localhost:3000/api.
func NewClient(doer HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Submit posts a review. Any non-2xx reply or transport failure is returned
// as *domain.RemoteError carrying the server's message when it sent one.
func (c *Client) Submit(ctx context.Context, sub domain.ReviewSubmission) (domain.Acknowledgement, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, domain.NewRemoteError(0, "", fmt.Errorf("marshal review: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+reviewsPath, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewRemoteError(0, "", fmt.Errorf("create review request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		c.logger.ErrorContext(ctx, "review api request failed",
			slog.String("product_id", sub.ProductID),
			slog.String("error", err.Error()),
		)
		return nil, domain.NewRemoteError(0, "", err)
	}

	if !httpclient.IsSuccess(resp.StatusCode) {
		msg := httpclient.ReadErrorMessage(resp)
		attrs := []any{
			slog.String("product_id", sub.ProductID),
			slog.Int("status", resp.StatusCode),
			slog.String("message", msg),
		}
		// 4xx means the review itself was refused; anything else is an upstream fault.
		if httpclient.IsClientError(resp.StatusCode) {
			c.logger.WarnContext(ctx, "review api rejected submission", attrs...)
		} else {
			c.logger.ErrorContext(ctx, "review api failed", attrs...)
		}
		return nil, domain.NewRemoteError(resp.StatusCode, msg, nil)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, domain.NewRemoteError(resp.StatusCode, "", fmt.Errorf("read review response: %w", err))
	}
	if !json.Valid(raw) {
		return nil, domain.NewRemoteError(resp.StatusCode, "", fmt.Errorf("review response is not valid JSON"))
	}

	c.logger.InfoContext(ctx, "review submitted to api",
		slog.String("product_id", sub.ProductID),
		slog.Int("status", resp.StatusCode),
	)
	return domain.Acknowledgement(raw), nil
}

// ListPublic fetches the published testimonials.
func (c *Client) ListPublic(ctx context.Context) (domain.PublicFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+publicReviewsPath, http.NoBody)
	if err != nil {
		return domain.PublicFeed{}, fmt.Errorf("create public reviews request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return domain.PublicFeed{}, fmt.Errorf("call review api: %w", err)
	}

	if !httpclient.IsSuccess(resp.StatusCode) {
		msg := httpclient.ReadErrorMessage(resp)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return domain.PublicFeed{}, fmt.Errorf("review api responded %d: %s", resp.StatusCode, msg)
	}
	defer func() { _ = resp.Body.Close() }()

	var feed domain.PublicFeed
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&feed); err != nil {
		return domain.PublicFeed{}, fmt.Errorf("decode public reviews: %w", err)
	}
	return feed, nil
}

// Ping reports whether the review API answers at all. Any HTTP response
// counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+publicReviewsPath, http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
	_ = resp.Body.Close()
	return nil
}
