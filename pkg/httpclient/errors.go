package httpclient

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of an error response body is read.
const maxErrorBody = 1 << 20

// errorBody covers the error shapes the storefront's upstreams return:
//
//	{"message": "..."}
//	{"error": {"message": "..."}}
//	{"error": "..."}
type errorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// ReadErrorMessage consumes and closes the body of a non-2xx response and
// returns the upstream's human-readable message, or "" when the body carries
// none.
func ReadErrorMessage(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	return ParseErrorMessage(raw)
}

// ParseErrorMessage extracts the message from an already-read error body.
func ParseErrorMessage(raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(body.Message); msg != "" {
		return msg
	}
	if len(body.Error) == 0 {
		return ""
	}

	var nested struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body.Error, &nested) == nil && nested.Message != "" {
		return strings.TrimSpace(nested.Message)
	}
	var plain string
	if json.Unmarshal(body.Error, &plain) == nil {
		return strings.TrimSpace(plain)
	}
	return ""
}

// IsSuccess reports whether status is a 2xx code.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
