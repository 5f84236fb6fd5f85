package memory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
)

func fetch(t *testing.T, u *Uploader, rawURL string) *httptest.ResponseRecorder {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	u.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, parsed.Path, nil))
	return rec
}

func TestUploader_UploadThenServe(t *testing.T) {
	u := New("http://localhost:8021/")

	link, err := u.Upload(context.Background(), &domain.AvatarFile{
		Filename:    "me.webp",
		ContentType: "image/webp",
		Size:        4,
		Content:     strings.NewReader("RIFF"),
	}, domain.DefaultAvatarFolder)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(link, "http://localhost:8021/media/ayudcraft/avatars/"))
	assert.True(t, strings.HasSuffix(link, ".webp"))

	rec := fetch(t, u, link)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/webp", rec.Header().Get("Content-Type"))
	assert.Equal(t, "RIFF", rec.Body.String())
}

func TestUploader_UniqueURLs(t *testing.T) {
	u := New("http://localhost")
	a := &domain.AvatarFile{ContentType: "image/png", Size: 1}

	first, err := u.Upload(context.Background(), a, "f")
	require.NoError(t, err)
	second, err := u.Upload(context.Background(), a, "f")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, http.StatusOK, fetch(t, u, first).Code)
	assert.Equal(t, http.StatusOK, fetch(t, u, second).Code)
}

func TestUploader_RejectsInvalidAvatar(t *testing.T) {
	u := New("http://localhost")

	_, err := u.Upload(context.Background(), &domain.AvatarFile{ContentType: "text/plain", Size: 1}, "f")
	var upErr *domain.UploadError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, domain.UploadUnsupportedType, upErr.Reason)
	assert.Empty(t, u.files)
}

func TestUploader_RejectsContentLargerThanDeclared(t *testing.T) {
	u := New("http://localhost")

	_, err := u.Upload(context.Background(), &domain.AvatarFile{
		ContentType: "image/png",
		Size:        10,
		Content:     strings.NewReader(strings.Repeat("x", int(domain.MaxAvatarSize)+1)),
	}, "f")

	var upErr *domain.UploadError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, domain.UploadTooLarge, upErr.Reason)
}

func TestUploader_ServeUnknownKey(t *testing.T) {
	u := New("http://localhost")

	rec := fetch(t, u, "http://localhost/media/f/missing.png")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}
