// Package testdata embeds a sample knowledge base and a labeled corpus of
// log lines used to validate classification end to end.
package testdata

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/neville-freeman/log-classifier/internal/knowledge"
)

//go:embed corpus.json
var corpusJSON []byte

//go:embed knowledge.csv
var knowledgeCSV []byte

// CorpusEntry is a labeled log line for classification validation.
type CorpusEntry struct {
	Raw          string   `json:"raw"`
	ExpectedTags []string `json:"expected_tags"`
	Description  string   `json:"description"`
}

// LoadCorpus parses the embedded corpus.json and returns all entries.
func LoadCorpus() ([]CorpusEntry, error) {
	var entries []CorpusEntry
	if err := json.Unmarshal(corpusJSON, &entries); err != nil {
		return nil, fmt.Errorf("parse corpus.json: %w", err)
	}
	return entries, nil
}

// KnowledgeBase parses the embedded sample knowledge base.
func KnowledgeBase() (*knowledge.Base, error) {
	kb, err := knowledge.Load(bytes.NewReader(knowledgeCSV))
	if err != nil {
		return nil, fmt.Errorf("parse knowledge.csv: %w", err)
	}
	return kb, nil
}

// KnowledgeCSV returns the raw embedded knowledge base.
func KnowledgeCSV() []byte {
	return bytes.Clone(knowledgeCSV)
}
