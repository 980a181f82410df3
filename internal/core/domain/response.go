package domain

import "io"

// ResponseData is the outbound response record built up by modules across
// phases. Once a module finalizes it, header and status mutation fail with
// ErrResponseFinalized; body writes stay legal so streaming can continue.
type ResponseData struct {
	status    int
	headers   *Headers
	body      []byte
	stream    io.ReadCloser
	finalized bool

	// Upgraded marks a response that short-circuited the pipeline to hand
	// the connection to a post-upgrade message loop.
	Upgraded bool
}

// NewResponseData creates a response with the given initial status and an
// empty header list.
func NewResponseData(status int) *ResponseData {
	return &ResponseData{status: status, headers: NewHeaders()}
}

// Status returns the current status code.
func (r *ResponseData) Status() int { return r.status }

// SetStatus replaces the status code.
func (r *ResponseData) SetStatus(code int) error {
	if r.finalized {
		return ErrResponseFinalized
	}
	r.status = code
	return nil
}

// Headers exposes the header list for reads. Mutations go through SetHeader
// and AddHeader so the finalized latch is enforced.
func (r *ResponseData) Headers() *Headers { return r.headers }

// SetHeader replaces a header, failing once the response is finalized.
func (r *ResponseData) SetHeader(name, value string) error {
	if r.finalized {
		return ErrResponseFinalized
	}
	r.headers.Set(name, value)
	return nil
}

// AddHeader appends a header, failing once the response is finalized.
func (r *ResponseData) AddHeader(name, value string) error {
	if r.finalized {
		return ErrResponseFinalized
	}
	r.headers.Add(name, value)
	return nil
}

// Body returns the in-memory body.
func (r *ResponseData) Body() []byte { return r.body }

// SetBody replaces the in-memory body. Permitted after finalization: the
// latch guards status and headers only.
func (r *ResponseData) SetBody(b []byte) { r.body = b }

// AppendBody appends to the in-memory body.
func (r *ResponseData) AppendBody(b []byte) { r.body = append(r.body, b...) }

// SetStream attaches a streaming body source. When set it takes precedence
// over the in-memory body.
func (r *ResponseData) SetStream(rc io.ReadCloser) { r.stream = rc }

// Stream returns the streaming body source, or nil.
func (r *ResponseData) Stream() io.ReadCloser { return r.stream }

// Finalize latches status and headers. Idempotent.
func (r *ResponseData) Finalize() { r.finalized = true }

// Finalized reports whether the header/status latch is set.
func (r *ResponseData) Finalized() bool { return r.finalized }
