package model

import "strings"

// Finding holds the raw lines that matched one triggered code.
type Finding struct {
	Code  ErrorCode `json:"code"`
	Tag   string    `json:"tag"`
	Lines []string  `json:"lines,omitempty"`
}

// Diagnosis is the classifier's output for one archive.
type Diagnosis struct {
	Tags     []string  `json:"tags"`
	Comment  string    `json:"comment"`
	Findings []Finding `json:"findings,omitempty"`
}

// NoKnownIssue is the sentinel for readable logs with no recognized signature.
func NoKnownIssue() Diagnosis {
	return Diagnosis{Tags: []string{Unknown.Tag()}, Comment: Unknown.Comment()}
}

// CorruptedLog is the sentinel for an attachment that could not be read.
func CorruptedLog() Diagnosis {
	return Diagnosis{Tags: []string{SentLogCorrupted.Tag()}, Comment: SentLogCorrupted.Comment()}
}

// IsNoKnownIssue reports whether d carries only the "unknown" marker.
func (d Diagnosis) IsNoKnownIssue() bool {
	return len(d.Tags) == 1 && d.Tags[0] == Unknown.Tag() && len(d.Findings) == 0
}

// Merge combines per-attachment diagnoses into one. Tags keep first-seen
// order without duplicates. The no-known-issue sentinel is dropped when any
// other diagnosis is present. Comments are joined with delim.
func Merge(delim string, ds ...Diagnosis) Diagnosis {
	var kept []Diagnosis
	for _, d := range ds {
		if !d.IsNoKnownIssue() {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return NoKnownIssue()
	}
	if len(kept) == 1 {
		return kept[0]
	}

	var out Diagnosis
	seen := make(map[string]bool)
	comments := make([]string, 0, len(kept))
	for _, d := range kept {
		for _, t := range d.Tags {
			if !seen[t] {
				seen[t] = true
				out.Tags = append(out.Tags, t)
			}
		}
		if d.Comment != "" {
			comments = append(comments, d.Comment)
		}
		out.Findings = append(out.Findings, d.Findings...)
	}
	out.Comment = strings.Join(comments, delim)
	return out
}
