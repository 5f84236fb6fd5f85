package domain

import (
	"encoding/json"
	"io"
	"time"
)

// MaxAvatarSize is the largest accepted avatar (5 MiB).
const MaxAvatarSize int64 = 5 * 1024 * 1024

// DefaultAvatarFolder is the media-host folder avatars are filed under.
const DefaultAvatarFolder = "ayudcraft/avatars"

var allowedAvatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// IsAllowedAvatarType checks whether the given content type is allowed.
func IsAllowedAvatarType(contentType string) bool {
	return allowedAvatarTypes[contentType]
}

// AvatarFile is an optional reviewer photo attached to a submission.
type AvatarFile struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Present reports whether an avatar was actually supplied. Browsers send an
// empty part when the file input is left blank.
func (f *AvatarFile) Present() bool {
	return f != nil && f.Size > 0
}

// CheckAvatar applies the size and type limits to f.
func CheckAvatar(f *AvatarFile) error {
	if f.Size > MaxAvatarSize {
		return NewUploadError(UploadTooLarge, MsgAvatarTooLarge, nil)
	}
	if !IsAllowedAvatarType(f.ContentType) {
		return NewUploadError(UploadUnsupportedType, MsgAvatarUnsupportedType, nil)
	}
	return nil
}

// ReviewSubmission is the payload posted to the review API.
type ReviewSubmission struct {
	ProductID    string    `json:"productId"`
	ProductName  string    `json:"productName"`
	ReviewerName string    `json:"reviewerName"`
	Comment      string    `json:"comment"`
	Ratings      RatingSet `json:"ratings"`
	AvatarURL    *string   `json:"avatarUrl"`
	TotalScore   float64   `json:"totalScore"`
	Timestamp    time.Time `json:"timestamp"`
}

// Acknowledgement is the review API's success body, passed through untouched.
type Acknowledgement json.RawMessage

// MarshalJSON implements json.Marshaler.
func (a Acknowledgement) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return []byte("null"), nil
	}
	return a, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Acknowledgement) UnmarshalJSON(b []byte) error {
	*a = append((*a)[0:0], b...)
	return nil
}
