package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	err := Wrap(ErrDegenerateInput, "windows", "determine", "file too short", nil)
	if !errors.Is(err, ErrDegenerateInput) {
		t.Fatalf("expected degenerate input marker, got %v", err)
	}
	want := "degenerate input: windows: determine: file too short"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "vision", "classify", "", errors.New("boom"))
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"configuration", Wrap(ErrConfiguration, "config", "validate", "bad pattern", nil), 2},
		{"degenerate", Wrap(ErrDegenerateInput, "windows", "determine", "too short", nil), 3},
		{"no detection", Wrap(ErrNoDetection, "precision", "window 2", "exhausted fallbacks", nil), 4},
		{"constraint", Wrap(ErrConstraint, "boundary", "validate", "not increasing", nil), 5},
		{"other", errors.New("boom"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.want {
				t.Fatalf("ExitCode = %d, want %d", got, tc.want)
			}
		})
	}
}
