package logclassifier

import "time"

// Diagnosis is the outcome for one archive. This is the stable public type;
// internal representations may change without breaking consumers.
type Diagnosis struct {
	Tags     []string  `json:"tags"`               // Machine tags, e.g. "short-storage"
	Comment  string    `json:"comment"`            // Problem and solution text per tag
	Findings []Finding `json:"findings,omitempty"` // Matched lines per tag
}

// Finding lists the log lines that triggered one tag.
type Finding struct {
	Code  string   `json:"code"` // e.g. "ShortStorage"
	Tag   string   `json:"tag"`
	Lines []string `json:"lines,omitempty"`
}

// LogFile is an already-extracted log file, for DiagnoseFiles.
type LogFile struct {
	Name     string
	Modified time.Time
	Content  []byte
}

// Code describes one failure class the classifier can report.
type Code struct {
	Name    string // e.g. "ShortStorage"
	Tag     string // e.g. "short-storage"
	Comment string // default short description
}
