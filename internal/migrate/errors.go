// Package migrate implements the export and import orchestrators (C9, C10):
// the two operations that drive the rest of linkbridge's components — the
// REST client, the enricher, the tree flattener/nester, the topological
// sorter, and the codecs — against one source and one target endpoint per
// request.
package migrate

import "fmt"

// Kind enumerates the error taxonomy. These are outcome kinds, not Go error
// types to type-switch on — callers inspect Error.Kind.
type Kind int

const (
	// UpstreamUnavailable is a source or target call failing at the
	// transport layer. Fatal for the request; 502-class.
	UpstreamUnavailable Kind = iota
	// UpstreamRejected is a non-2xx response from source or target. For
	// enrichment fetches this is treated as a missing referent, not an
	// error; for import POSTs it is recorded per-record.
	UpstreamRejected
	// DecodeError is a malformed request body. Fatal; 400-class.
	DecodeError
	// AmbiguousReference is an S1 lookup returning more than one
	// candidate. Fatal only under on_ambiguous=fail.
	AmbiguousReference
	// MissingReference is an S1 lookup returning zero candidates. Fatal
	// only under on_missing=fail.
	MissingReference
	// CycleDetected means the dependency graph has a cycle. Recorded as a
	// warning; never fatal on its own.
	CycleDetected
	// Unauthorized is an access-control denial. Surfaced immediately as
	// 401/403.
	Unauthorized
)

func (k Kind) String() string {
	switch k {
	case UpstreamUnavailable:
		return "upstream_unavailable"
	case UpstreamRejected:
		return "upstream_rejected"
	case DecodeError:
		return "decode_error"
	case AmbiguousReference:
		return "ambiguous_reference"
	case MissingReference:
		return "missing_reference"
	case CycleDetected:
		return "cycle_detected"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// StatusClass returns the HTTP status code an Error of this Kind maps to at
// the httpapi boundary.
func (k Kind) StatusClass() int {
	switch k {
	case UpstreamUnavailable:
		return 502
	case UpstreamRejected:
		return 502
	case DecodeError:
		return 400
	case AmbiguousReference, MissingReference:
		return 400
	case CycleDetected:
		return 200
	case Unauthorized:
		return 403
	default:
		return 500
	}
}

// Error is a request-level failure: one that aborts the whole export or
// import rather than being recorded against a single record.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds a request-level Error.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// RecordError is a per-record failure, accumulated in the report rather than
// aborting the request, per the propagation policy ("per-record errors
// never cross the record boundary").
type RecordError struct {
	Index      int    `json:"index"`
	OriginalID string `json:"original_id,omitempty"`
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
}
