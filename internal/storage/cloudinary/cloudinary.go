package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
	"github.com/Fachryxyf/felisa-userside/internal/storage"
	"github.com/Fachryxyf/felisa-userside/pkg/httpclient"
)

// DefaultAPIBase is Cloudinary's upload API root.
const DefaultAPIBase = "https://api.cloudinary.com/v1_1"

// ErrUnavailable is returned while the Cloudinary circuit is open.
var ErrUnavailable = errors.New("media host is temporarily unavailable")

// CircuitOpenFallback fails fast with ErrUnavailable when the circuit
// breaker in front of Cloudinary is open.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, ErrUnavailable
}

// Config identifies the Cloudinary account and unsigned upload preset.
type Config struct {
	APIBase      string
	CloudName    string
	UploadPreset string
}

// uploadResponse is the subset of Cloudinary's upload reply that is used.
type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Uploader implements storage.Uploader with unsigned Cloudinary image uploads.
type Uploader struct {
	client storage.HTTPDoer
	cfg    Config
	logger *slog.Logger
}

var _ storage.Uploader = (*Uploader)(nil)

// New creates a Cloudinary uploader.
func New(client storage.HTTPDoer, cfg Config, logger *slog.Logger) *Uploader {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	return &Uploader{client: client, cfg: cfg, logger: logger}
}

func (u *Uploader) endpoint() string {
	return fmt.Sprintf("%s/%s/image/upload", u.cfg.APIBase, u.cfg.CloudName)
}

// Upload posts the avatar as multipart/form-data with the fields file,
// upload_preset and folder, and returns the secure_url of the stored image.
// The request is sent once.
func (u *Uploader) Upload(ctx context.Context, file *domain.AvatarFile, folder string) (string, error) {
	if err := domain.CheckAvatar(file); err != nil {
		return "", err
	}

	body, contentType, err := u.buildForm(file, folder)
	if err != nil {
		return "", domain.NewUploadError(domain.UploadTransport, err.Error(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint(), body)
	if err != nil {
		return "", domain.NewUploadError(domain.UploadTransport, err.Error(), err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(ctx, req)
	if err != nil {
		u.logger.ErrorContext(ctx, "cloudinary upload request failed",
			slog.String("error", err.Error()),
		)
		return "", domain.NewUploadError(domain.UploadTransport, err.Error(), err)
	}

	if !httpclient.IsSuccess(resp.StatusCode) {
		msg := httpclient.ReadErrorMessage(resp)
		if msg == "" {
			msg = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		u.logger.WarnContext(ctx, "cloudinary rejected upload",
			slog.Int("status", resp.StatusCode),
			slog.String("message", msg),
		)
		return "", domain.NewUploadError(domain.UploadRejected, msg, nil)
	}
	defer func() { _ = resp.Body.Close() }()

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", domain.NewUploadError(domain.UploadTransport, "decode upload response: "+err.Error(), err)
	}
	if result.Error != nil {
		msg := result.Error.Message
		if msg == "" {
			msg = "Upload error"
		}
		return "", domain.NewUploadError(domain.UploadRejected, msg, nil)
	}
	if result.SecureURL == "" {
		return "", domain.NewUploadError(domain.UploadRejected, "upload response has no secure_url", nil)
	}

	u.logger.InfoContext(ctx, "avatar uploaded",
		slog.String("folder", folder),
		slog.Int64("size", file.Size),
	)
	return result.SecureURL, nil
}

// buildForm encodes the avatar into an in-memory multipart body. Avatars are
// capped at domain.MaxAvatarSize so buffering is bounded.
func (u *Uploader) buildForm(file *domain.AvatarFile, folder string) (io.Reader, string, error) {
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)

	filename := file.Filename
	if filename == "" {
		filename = "avatar"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	h.Set("Content-Type", file.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, io.LimitReader(file.Content, domain.MaxAvatarSize+1)); err != nil {
		return nil, "", fmt.Errorf("read avatar: %w", err)
	}

	if err := w.WriteField("upload_preset", u.cfg.UploadPreset); err != nil {
		return nil, "", fmt.Errorf("write upload_preset: %w", err)
	}
	if err := w.WriteField("folder", folder); err != nil {
		return nil, "", fmt.Errorf("write folder: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
