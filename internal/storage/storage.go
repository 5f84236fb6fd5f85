package storage

import (
	"context"
	"net/http"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
)

// Uploader stores a reviewer avatar on a media host.
type Uploader interface {
	// Upload sends the avatar to folder and returns its public URL.
	// Failures are reported as *domain.UploadError.
	Upload(ctx context.Context, file *domain.AvatarFile, folder string) (string, error)
}

// HTTPDoer is the outbound HTTP surface uploaders depend on. It is satisfied
// by httpclient.Client and httpclient.CircuitBreakerClient.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}
