package output

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/neville-freeman/log-classifier/internal/model"
)

// Verbosity controls how much of a Report is written.
type Verbosity int

const (
	// Standard keeps every field, including the matched log lines.
	Standard Verbosity = iota
	// Minimal drops matched log lines, keeping tags and comment.
	Minimal
)

func (v Verbosity) String() string {
	if v == Minimal {
		return "minimal"
	}
	return "standard"
}

// ParseVerbosity maps "minimal" or "standard" (case-insensitive) to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return Standard, nil
	case "minimal":
		return Minimal, nil
	default:
		return Standard, fmt.Errorf("output: unknown verbosity %q", s)
	}
}

// Limits applied to matched lines at Standard verbosity.
const (
	MaxLinesPerFinding = 50
	MaxLineRunes       = 500
)

// FormatReport returns a copy of r trimmed for verbosity. At Minimal the
// per-code lines are dropped from Findings. At Standard each finding keeps
// at most MaxLinesPerFinding lines of at most MaxLineRunes runes. The input
// is never modified.
func FormatReport(r model.Report, v Verbosity) model.Report {
	if len(r.Diagnosis.Findings) == 0 {
		return r
	}
	findings := make([]model.Finding, len(r.Diagnosis.Findings))
	for i, f := range r.Diagnosis.Findings {
		if v == Minimal {
			f.Lines = nil
		} else {
			f.Lines = compactLines(f.Lines)
		}
		findings[i] = f
	}
	r.Diagnosis.Findings = findings
	return r
}

func compactLines(lines []string) []string {
	if len(lines) > MaxLinesPerFinding {
		lines = lines[:MaxLinesPerFinding]
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = truncate(l, MaxLineRunes)
	}
	return out
}

// truncate cuts s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
