// Package services holds the error taxonomy and context plumbing shared by
// the external collaborator clients and the audit flow.
package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks recoverable absences: a missing cache, an
	// unreachable archive directory, an entry that has no match.
	ErrNotFound = errors.New("not found")
	// ErrExternalTool marks failures of listing, metadata, or download
	// collaborators. Callers fall back to the next resolution source.
	ErrExternalTool = errors.New("external tool error")
	// ErrTimeout marks an external call that ran out of time. Treated the
	// same as ErrExternalTool by every caller.
	ErrTimeout = errors.New("timeout")
	// ErrMalformed marks document content vigil refuses to guess about,
	// such as an unparsable date.
	ErrMalformed = errors.New("malformed content")
	// ErrWrite marks a document write that did not happen after the user
	// confirmed it. Always fatal for the invocation.
	ErrWrite = errors.New("write failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Recoverable reports whether an error should degrade to a fallback rather
// than abort the run.
func Recoverable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrExternalTool) || errors.Is(err, ErrTimeout)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
