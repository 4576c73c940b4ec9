package apicall

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// RequestSpec describes one logical call. The client never mutates it, and Body is
// sent byte-for-byte on every attempt.
type RequestSpec struct {
	// Header is sent with the exact key casing given here.
	Header map[string]string

	// Path is appended to the client's base URL.
	Path string

	// Method defaults to GET when empty.
	Method string

	Body []byte
}

// CallOptions mirrors RequestSpec for the Client.Call convenience form.
type CallOptions struct {
	Header map[string]string
	Method string
	Body   []byte
}

// CallResult is the normalized outcome of a logical call that obtained a response.
// The status may itself be an application failure (4xx/5xx); callers branch on it.
type CallResult struct {
	// Data is the body decoded as a JSON object. It is empty, never nil, when the body
	// is missing, unreadable, malformed or not an object.
	Data map[string]any

	Header http.Header

	// Body is the raw response body as received.
	Body []byte

	Status int

	// Attempts is the number of physical attempts the logical call used.
	Attempts int
}

// OK reports whether the status is in the 2xx range.
func (r *CallResult) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

func (s RequestSpec) method() string {
	if s.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(s.Method)
}

// newHTTPRequest builds a fresh request for one attempt. Headers are assigned directly to
// the header map so their casing is preserved; later keys overwrite earlier ones.
func (s RequestSpec) newHTTPRequest(ctx context.Context, baseURL, requestIDHeader, requestID string) (*http.Request, error) {
	var body io.Reader
	if s.Body != nil {
		body = bytes.NewReader(s.Body)
	}

	req, err := http.NewRequestWithContext(ctx, s.method(), joinURL(baseURL, s.Path), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	for name, value := range s.Header {
		req.Header[name] = []string{value}
	}
	if requestIDHeader != "" && requestID != "" {
		if _, set := s.Header[requestIDHeader]; !set {
			req.Header.Set(requestIDHeader, requestID)
		}
	}

	return req, nil
}

// joinURL concatenates base and path, collapsing a doubled slash at the seam.
func joinURL(baseURL, path string) string {
	if strings.HasSuffix(baseURL, "/") && strings.HasPrefix(path, "/") {
		return baseURL + path[1:]
	}
	return baseURL + path
}

// decodePayload is best-effort: anything other than a JSON object yields an empty map.
func decodePayload(body []byte) map[string]any {
	data := map[string]any{}
	if len(body) == 0 {
		return data
	}
	if err := json.Unmarshal(body, &data); err != nil || data == nil {
		return map[string]any{}
	}
	return data
}
