package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks invalid or inconsistent configuration detected
	// before any detection work starts.
	ErrConfiguration = errors.New("configuration error")
	// ErrDegenerateInput marks source files that cannot support the expected
	// episode count (too short, unparseable multi-episode name).
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrTransient marks recoverable backend failures (vision or
	// transcription service timeouts, malformed responses).
	ErrTransient = errors.New("transient failure")
	// ErrExternalTool marks failures of ffmpeg/ffprobe invocations.
	ErrExternalTool = errors.New("external tool error")
	// ErrNoDetection marks a window that produced no boundary after all
	// fallback expansion.
	ErrNoDetection = errors.New("no detection")
	// ErrConstraint marks ordering or episode-length violations in the
	// resolved boundary list.
	ErrConstraint = errors.New("constraint violation")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps a run error to the process exit code surfaced by the CLI.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfiguration):
		return 2
	case errors.Is(err, ErrDegenerateInput):
		return 3
	case errors.Is(err, ErrNoDetection):
		return 4
	case errors.Is(err, ErrConstraint):
		return 5
	default:
		return 1
	}
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
