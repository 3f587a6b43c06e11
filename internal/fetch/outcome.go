// Package fetch retrieves a single web resource despite unreliable network
// conditions, rotating outbound identity and backing off when the origin
// signals blocking.
package fetch

import (
	"net/http"
	"time"
)

// Kind labels how a single attempt ended.
type Kind int

// Attempt classifications.
const (
	// KindUnknown indicates no classification could be reached.
	KindUnknown Kind = iota
	// KindSuccess is an HTTP response with a status below 300.
	KindSuccess
	// KindSoftBlocked is an HTTP response with a status of 300 or above,
	// read as the origin throttling or blocking our apparent identity.
	KindSoftBlocked
	// KindTransient is a transport-level failure worth retrying.
	KindTransient
)

// Response carries the raw result of an attempt back to the caller for
// downstream parsing. The fetch layer never inspects the body.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Outcome is the classification of one attempt. Response is set for both
// success and soft block so callers can inspect the status either way;
// Proxy records which proxy carried the attempt (empty for direct), and
// Reason names the transport failure category for transient outcomes.
type Outcome struct {
	Kind     Kind
	Response *Response
	Proxy    string
	Reason   string
}

// Succeeded reports whether the outcome carries a response with a status
// below 300. The orchestrator checks the status itself rather than the
// variant tag.
func (o Outcome) Succeeded() bool {
	return o.Response != nil && o.Response.StatusCode < 300
}
