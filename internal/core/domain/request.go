// Package domain holds the wire-free value types shared across the pipeline:
// request and response records, the ordered header list, and the error
// taxonomy. The transport adapter maps raw HTTP onto these; nothing in this
// package parses wire bytes.
package domain

// RequestData is the inbound request record handed to the router. After
// route resolution it is immutable except for module-added annotations
// (a rewrite module may replace the path, a forwarded-for module the
// source address).
type RequestData struct {
	// Method is the HTTP verb, or "WEBSOCKET" for post-upgrade frames.
	Method string
	// Path is the decoded request path.
	Path string
	// Query is the raw query string without the leading '?'.
	Query string
	// Protocol is the negotiated protocol, e.g. "HTTP/1.1" or "websocket".
	Protocol string
	// Upgrade is set when the client asked for a protocol upgrade.
	Upgrade bool
	// Headers preserves arrival order and duplicates.
	Headers *Headers
	// Body is the request payload. For upgraded exchanges it carries the
	// current frame.
	Body []byte
	// SourceAddr is the remote address as reported by the transport.
	SourceAddr string
}

// NewRequestData creates a request record with an empty header list.
func NewRequestData(method, path string) *RequestData {
	return &RequestData{
		Method:  method,
		Path:    path,
		Headers: NewHeaders(),
	}
}
