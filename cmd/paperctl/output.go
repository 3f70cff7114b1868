package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// Exit codes.
const (
	ExitSuccess       = 0 // Success
	ExitError         = 1 // General error
	ExitInvalidInput  = 2 // Malformed DOI, query or flag
	ExitNotFound      = 3 // No source had metadata, or the paper is not cached
	ExitSourceFailure = 4 // The search source could not be reached
)

// stdout is replaced in tests.
var stdout io.Writer = os.Stdout

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitCode maps an error to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidDOI):
		return ExitInvalidInput
	case errors.Is(err, domain.ErrNoMetadataFound), errors.Is(err, domain.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, domain.ErrSourceUnavailable):
		return ExitSourceFailure
	default:
		return ExitError
	}
}
