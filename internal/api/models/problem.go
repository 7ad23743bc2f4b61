package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC7807 error body, written as application/problem+json.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// TraceID echoes the request ID so a report can be matched to logs.
	TraceID string `json:"traceId"`

	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError is a validation failure on one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Kind is a problem category. Each kind has a fixed type URI, title and
// HTTP status.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindUnsupportedMediaType
	KindTooManyRequests
	KindInternal
	KindUpstream
	KindUnavailable
	KindTLSRequired
)

const problemBase = "https://kkokki.dev/problems/"

var kinds = [...]struct {
	slug   string
	title  string
	status int
}{
	KindValidation:           {"validation-error", "Validation error", http.StatusBadRequest},
	KindNotFound:             {"not-found", "Not found", http.StatusNotFound},
	KindUnsupportedMediaType: {"unsupported-media-type", "Unsupported media type", http.StatusUnsupportedMediaType},
	KindTooManyRequests:      {"too-many-requests", "Too many requests", http.StatusTooManyRequests},
	KindInternal:             {"internal-error", "Internal server error", http.StatusInternalServerError},
	// Upstream detail names the failure class only; provider payloads are
	// never echoed.
	KindUpstream:    {"upstream-error", "Upstream provider error", http.StatusBadGateway},
	KindUnavailable: {"service-unavailable", "Service unavailable", http.StatusServiceUnavailable},
	KindTLSRequired: {"tls-required", "TLS required", http.StatusForbidden},
}

// TypeURI returns the problem type URI of k.
func (k Kind) TypeURI() string { return problemBase + kinds[k].slug }

// Status returns the HTTP status of k.
func (k Kind) Status() int { return kinds[k].status }

// NewProblem creates a problem of kind k for the request traceID.
func NewProblem(k Kind, traceID, detail string) *Problem {
	return &Problem{
		Type:    k.TypeURI(),
		Title:   kinds[k].title,
		Status:  kinds[k].status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// At sets the request path the problem occurred at.
func (p *Problem) At(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors attaches field errors.
func (p *Problem) WithErrors(errs []FieldError) *Problem {
	p.Errors = errs
	return p
}

// Write sends the problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-Id", p.TraceID)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
