package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
	"github.com/Fachryxyf/felisa-userside/internal/storage"
	"github.com/Fachryxyf/felisa-userside/pkg/httputil"
)

// PathPrefix is the URL path under which stored avatars are served.
const PathPrefix = "/media/"

// fileEntry is an uploaded avatar held in memory.
type fileEntry struct {
	ContentType string
	Content     []byte
	UploadedAt  time.Time
}

// Uploader implements storage.Uploader using an in-memory map and serves the
// stored images itself. Used when no media host is configured; baseURL must
// point at the server that mounts the Uploader under PathPrefix.
type Uploader struct {
	mu      sync.RWMutex
	files   map[string]*fileEntry
	baseURL string
}

var (
	_ storage.Uploader = (*Uploader)(nil)
	_ http.Handler     = (*Uploader)(nil)
)

// New creates a new in-memory uploader serving URLs under baseURL.
func New(baseURL string) *Uploader {
	return &Uploader{
		files:   make(map[string]*fileEntry),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Upload stores the avatar and returns the absolute URL it is served at.
func (u *Uploader) Upload(_ context.Context, file *domain.AvatarFile, folder string) (string, error) {
	if err := domain.CheckAvatar(file); err != nil {
		return "", err
	}

	var content []byte
	if file.Content != nil {
		var err error
		content, err = io.ReadAll(io.LimitReader(file.Content, domain.MaxAvatarSize+1))
		if err != nil {
			return "", domain.NewUploadError(domain.UploadTransport, err.Error(), err)
		}
		if int64(len(content)) > domain.MaxAvatarSize {
			return "", domain.NewUploadError(domain.UploadTooLarge, domain.MsgAvatarTooLarge, nil)
		}
	}

	key := path.Join(folder, uuid.New().String()+extByType[file.ContentType])

	u.mu.Lock()
	u.files[key] = &fileEntry{
		ContentType: file.ContentType,
		Content:     content,
		UploadedAt:  time.Now().UTC(),
	}
	u.mu.Unlock()

	return fmt.Sprintf("%s%s%s", u.baseURL, PathPrefix, key), nil
}

// ServeHTTP serves a stored avatar by its key below PathPrefix.
func (u *Uploader) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, PathPrefix)

	u.mu.RLock()
	entry, ok := u.files[key]
	u.mu.RUnlock()

	if !ok {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "media not found"},
		})
		return
	}

	w.Header().Set("Content-Type", entry.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, path.Base(key), entry.UploadedAt, bytes.NewReader(entry.Content))
}
