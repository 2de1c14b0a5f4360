// Package errs defines the pipeline's error taxonomy. Every stage reports
// failures as one of these kinds so callers can tell recoverable,
// per-row problems from fatal ones without string matching.
package errs

import "fmt"

// Kind classifies a pipeline error per the propagation policy: InputError
// and GeomError are recoverable and accumulate in a Report; the rest abort
// the pipeline (ToleranceError is fatal at startup, the others are fatal
// mid-run, downgradable to warnings only for InvariantError in lenient mode).
type Kind string

const (
	KindInput     Kind = "input"
	KindGeom      Kind = "geom"
	KindTolerance Kind = "tolerance"
	KindInvariant Kind = "invariant"
	KindResource  Kind = "resource"
	KindSink      Kind = "sink"
)

// Error is the common shape for every typed pipeline error.
type Error struct {
	Kind    Kind
	Subject string // trail/edge/node id the error concerns, empty if none
	Message string
	Err     error // wrapped cause, nil if none
}

func (e *Error) Error() string {
	if e.Subject != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Message, e.Subject, e.Err)
		}
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Subject)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, subject, message string, cause error) *Error {
	return &Error{Kind: kind, Subject: subject, Message: message, Err: cause}
}

// Input reports a source trail with invalid/empty geometry, a missing
// required attribute, or an unknown source tag.
func Input(subject, message string, cause error) *Error {
	return newErr(KindInput, subject, message, cause)
}

// Geom reports a kernel operation that failed on a specific geometry.
func Geom(subject, message string, cause error) *Error {
	return newErr(KindGeom, subject, message, cause)
}

// Tolerance reports a configuration value outside its supported range.
// Always fatal at startup.
func Tolerance(message string, cause error) *Error {
	return newErr(KindTolerance, "", message, cause)
}

// Invariant reports a stage post-condition violation.
func Invariant(subject, message string, cause error) *Error {
	return newErr(KindInvariant, subject, message, cause)
}

// Resource reports workspace creation/destruction, timeout, or cancellation
// failures.
func Resource(subject, message string, cause error) *Error {
	return newErr(KindResource, subject, message, cause)
}

// Sink reports a sink batch refusal.
func Sink(subject, message string, cause error) *Error {
	return newErr(KindSink, subject, message, cause)
}

// Is reports whether err is an *Error of the given kind, so callers can
// branch on classification without depending on message text.
func Is(err error, kind Kind) bool {
	var e *Error
	if ae, ok := err.(*Error); ok {
		e = ae
	} else {
		return false
	}
	return e.Kind == kind
}

// Report accumulates recoverable per-row errors (InputError, GeomError)
// emitted alongside a stage's results, keyed by error Kind and the
// failing row's identity.
type Report struct {
	Errors []*Error
}

// NewReport creates an empty accumulator.
func NewReport() *Report {
	return &Report{Errors: make([]*Error, 0)}
}

// Add records a recoverable error. Non-recoverable kinds are still
// accepted (the pipeline may choose to downgrade InvariantError in
// lenient mode) but every other kind aborts the stage before reaching here.
func (r *Report) Add(err *Error) {
	r.Errors = append(r.Errors, err)
}

// HasErrors reports whether any errors were recorded.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// CountByKind tallies recorded errors per kind, used for stage counters.
func (r *Report) CountByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, e := range r.Errors {
		counts[e.Kind]++
	}
	return counts
}
