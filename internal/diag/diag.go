// Package diag collects non-fatal diagnostics produced during a run.
// Diagnostics travel alongside the ranked list instead of aborting the
// analysis.
package diag

import (
	"fmt"

	"covimpact/internal/errors"
)

// Diagnostic is a single (path, reason) pair describing a skipped file,
// an unavailable model, or any other recoverable condition.
type Diagnostic struct {
	Path   string           `json:"path,omitempty"`
	Reason string           `json:"reason"`
	Code   errors.ErrorCode `json:"code,omitempty"`
}

// String renders the diagnostic for human-format output.
func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("[%s] %s", d.Code, d.Reason)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Code, d.Path, d.Reason)
}

// ParseFailure builds a diagnostic for a file that could not be parsed.
func ParseFailure(path, reason string) Diagnostic {
	return Diagnostic{Path: path, Reason: reason, Code: errors.ParseFailure}
}

// ModelUnavailable builds a diagnostic for a missing or malformed
// estimator artifact.
func ModelUnavailable(path, reason string) Diagnostic {
	return Diagnostic{Path: path, Reason: reason, Code: errors.ModelUnavailable}
}
