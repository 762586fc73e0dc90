package httpclient

import "net/http"

// Request describes an outbound request.
type Request struct {
	Method string
	// Path is joined to the client's BaseURL unless it is an absolute URL.
	Path    string
	Headers map[string]string
	Query   map[string]string
	// Body is an io.Reader, []byte, string, *MultipartBody, or a value that
	// is JSON-encoded. Readers are consumed by the first attempt, so requests
	// that may be retried should use one of the other forms.
	Body any
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
