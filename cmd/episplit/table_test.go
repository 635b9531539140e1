package main

import (
	"strings"
	"testing"
)

func TestRenderTableRightAlignsNamedColumns(t *testing.T) {
	out := renderTable(
		[]string{"NAME", "SECONDS"},
		[][]string{{"alpha", "5"}, {"beta", "12345"}},
		1,
	)

	var short, long string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "alpha") {
			short = line
		}
		if strings.Contains(line, "beta") {
			long = line
		}
	}
	if short == "" || long == "" {
		t.Fatalf("rows missing from output:\n%s", out)
	}
	shortEnd := strings.Index(short, "5") + len("5")
	longEnd := strings.Index(long, "12345") + len("12345")
	if shortEnd != longEnd {
		t.Fatalf("right-aligned cells end at %d and %d:\n%s", shortEnd, longEnd, out)
	}
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "SECONDS") {
		t.Fatalf("headers missing:\n%s", out)
	}
}

func TestRenderTableEmptyHeaders(t *testing.T) {
	if out := renderTable(nil, nil); out != "" {
		t.Fatalf("expected empty render, got %q", out)
	}
}
