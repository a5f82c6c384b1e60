package domain

import "errors"

// Diagnostic errors. They are returned alongside a usable sentinel result
// (false, the fallback color, palette index 0) and never abort rendering.
var (
	ErrUnknownRegion      = errors.New("unknown region")
	ErrMalformedGeometry  = errors.New("malformed geometry")
	ErrUnclassifiedMetric = errors.New("unclassified metric")
	ErrNonNumericValue    = errors.New("non-numeric value")
)

// DiagnosticKind maps a diagnostic error to a short label suitable for
// metrics and logs. A nil error maps to "ok".
func DiagnosticKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnknownRegion):
		return "unknown_region"
	case errors.Is(err, ErrMalformedGeometry):
		return "malformed_geometry"
	case errors.Is(err, ErrUnclassifiedMetric):
		return "unclassified_metric"
	case errors.Is(err, ErrNonNumericValue):
		return "non_numeric_value"
	default:
		return "error"
	}
}
