//go:build !cgo

package callgraph

import (
	"context"
	"errors"

	"covimpact/internal/diag"
	"covimpact/internal/logging"
)

// ErrNoCGO is returned when call graph construction is unavailable due to
// missing CGO (tree-sitter requires it).
var ErrNoCGO = errors.New("call graph construction requires CGO (tree-sitter)")

// BuildOptions configures a call graph build.
// This is a stub for non-CGO builds; see the CGO variant for field docs.
type BuildOptions struct {
	Root     string
	Language Language
	Include  []string
	Exclude  []string
	Workers  int
}

// Build is a stub that always fails without CGO.
func Build(ctx context.Context, opts BuildOptions, logger *logging.Logger) (*Graph, []diag.Diagnostic, error) {
	return nil, nil, ErrNoCGO
}

// IsAvailable returns whether call graph construction is available.
// Returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}
