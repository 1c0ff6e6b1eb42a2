// Package knowledge holds the curated set of failure signatures the
// classifier matches log lines against.
package knowledge

import "github.com/neville-freeman/log-classifier/internal/model"

// Base is an immutable, ordered collection of knowledge entries.
// Duplicate codes are legal: every entry's pattern is matched, while the
// first entry seen for a code supplies that code's problem and solution text.
type Base struct {
	entries   []model.KnowledgeEntry
	canonical map[model.ErrorCode]model.KnowledgeEntry
}

// New builds a Base from entries, preserving their order.
func New(entries []model.KnowledgeEntry) *Base {
	b := &Base{
		entries:   make([]model.KnowledgeEntry, len(entries)),
		canonical: make(map[model.ErrorCode]model.KnowledgeEntry),
	}
	copy(b.entries, entries)
	for _, e := range b.entries {
		if _, ok := b.canonical[e.Code]; !ok {
			b.canonical[e.Code] = e
		}
	}
	return b
}

// Entries returns a copy of all entries in input order.
func (b *Base) Entries() []model.KnowledgeEntry {
	out := make([]model.KnowledgeEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Canonical returns the first-seen entry for code.
func (b *Base) Canonical(code model.ErrorCode) (model.KnowledgeEntry, bool) {
	e, ok := b.canonical[code]
	return e, ok
}

// Codes returns the distinct codes present, in enumeration order.
func (b *Base) Codes() []model.ErrorCode {
	var out []model.ErrorCode
	for _, c := range model.ErrorCodes() {
		if _, ok := b.canonical[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of entries, duplicates included.
func (b *Base) Len() int {
	return len(b.entries)
}
