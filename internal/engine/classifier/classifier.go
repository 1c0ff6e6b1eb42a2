package classifier

import (
	"strings"

	"github.com/neville-freeman/log-classifier/internal/knowledge"
	"github.com/neville-freeman/log-classifier/internal/model"
)

// DefaultSectionDelimiter separates per-code sections in a diagnosis comment.
const DefaultSectionDelimiter = "\n\n---\n\n"

// Option configures a Classifier.
type Option func(*Classifier)

// WithMaxLines bounds the total number of lines scanned per Classify call.
// 0 (default) scans everything.
func WithMaxLines(n int) Option {
	return func(c *Classifier) { c.maxLines = n }
}

// WithSectionDelimiter overrides the separator between comment sections.
func WithSectionDelimiter(d string) Option {
	return func(c *Classifier) { c.delimiter = d }
}

// Classifier matches log lines against a knowledge base by substring
// containment. It keeps no state between calls.
type Classifier struct {
	maxLines  int
	delimiter string
}

// New creates a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{delimiter: DefaultSectionDelimiter}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Delimiter returns the section delimiter used in comments.
func (c *Classifier) Delimiter() string {
	return c.delimiter
}

// Analysis maps each code in the knowledge base to the lines that matched it.
// A code with no matches is present with an empty slice. It is created fresh
// for every Classify call.
type Analysis map[model.ErrorCode][]string

// Triggered returns the codes with at least one matched line, in enumeration order.
func (a Analysis) Triggered() []model.ErrorCode {
	var out []model.ErrorCode
	for _, code := range model.ErrorCodes() {
		if len(a[code]) > 0 {
			out = append(out, code)
		}
	}
	return out
}

// Analyze scans every line of every file against every entry. A line may
// match several codes; all matches are recorded. Within one code a line is
// recorded once even when several of that code's patterns occur in it.
func (c *Classifier) Analyze(files []model.LogFile, kb *knowledge.Base) Analysis {
	entries := kb.Entries()
	a := make(Analysis, len(entries))
	for _, e := range entries {
		a[e.Code] = nil
	}

	scanned := 0
	hit := make(map[model.ErrorCode]bool, len(entries))
	for _, f := range files {
		for _, line := range splitLines(f.Content) {
			if c.maxLines > 0 && scanned >= c.maxLines {
				return a
			}
			scanned++

			clear(hit)
			for _, e := range entries {
				if hit[e.Code] || !strings.Contains(line, e.Pattern) {
					continue
				}
				hit[e.Code] = true
				a[e.Code] = append(a[e.Code], line)
			}
		}
	}
	return a
}

// Classify produces the diagnosis for files. Triggered codes are reported in
// enumeration order, independent of where in the logs they were found. When
// nothing matches, the no-known-issue sentinel is returned.
func (c *Classifier) Classify(files []model.LogFile, kb *knowledge.Base) model.Diagnosis {
	a := c.Analyze(files, kb)
	triggered := a.Triggered()
	if len(triggered) == 0 {
		return model.NoKnownIssue()
	}

	d := model.Diagnosis{
		Tags:     make([]string, 0, len(triggered)),
		Findings: make([]model.Finding, 0, len(triggered)),
	}
	sections := make([]string, 0, len(triggered))
	for _, code := range triggered {
		d.Tags = append(d.Tags, code.Tag())
		d.Findings = append(d.Findings, model.Finding{Code: code, Tag: code.Tag(), Lines: a[code]})
		sections = append(sections, section(kb, code))
	}
	d.Comment = strings.Join(sections, c.delimiter)
	return d
}

func section(kb *knowledge.Base, code model.ErrorCode) string {
	e, ok := kb.Canonical(code)
	if !ok {
		return code.Comment()
	}
	problem := strings.TrimSpace(e.Problem)
	solution := strings.TrimSpace(e.Solution)
	switch {
	case problem == "" && solution == "":
		return code.Comment()
	case solution == "":
		return problem
	case problem == "":
		return solution
	default:
		return problem + "\n" + solution
	}
}

// splitLines splits on "\n", dropping a trailing "\r" so CRLF logs keep
// their visible text. A final empty segment after a trailing newline is
// not a line.
func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	s := string(b)
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
