package model

// KnowledgeEntry is one authored signature: a pattern that, when found in a
// log line, identifies the failure class Code.
//
// Entries are identified by Code alone. Two entries with different patterns
// but the same code describe the same issue and are interchangeable for
// ranking and reporting.
type KnowledgeEntry struct {
	Pattern  string    `json:"pattern" yaml:"pattern"`
	Code     ErrorCode `json:"code" yaml:"code"`
	Problem  string    `json:"problem" yaml:"problem"`
	Solution string    `json:"solution" yaml:"solution"`
}
