package logclassifier

import (
	"io"

	"github.com/neville-freeman/log-classifier/internal/archive"
)

type options struct {
	kbPath    string
	kbReader  io.Reader
	maxFiles  int
	maxLines  int
	maxBytes  int64
	delimiter string
}

// Option configures a Classifier.
type Option func(*options)

// WithKnowledgeBaseFile loads the knowledge base from a .csv, .yaml or .yml file.
func WithKnowledgeBaseFile(path string) Option {
	return func(o *options) {
		o.kbPath = path
	}
}

// WithKnowledgeBase reads a CSV knowledge base from r. It takes precedence
// over WithKnowledgeBaseFile.
func WithKnowledgeBase(r io.Reader) Option {
	return func(o *options) {
		o.kbReader = r
	}
}

// WithMaxFiles bounds how many of the newest files in an archive are read. Default: 5.
func WithMaxFiles(n int) Option {
	return func(o *options) {
		o.maxFiles = n
	}
}

// WithMaxLines bounds the total lines scanned per archive. 0 (default) scans everything.
func WithMaxLines(n int) Option {
	return func(o *options) {
		o.maxLines = n
	}
}

// WithMaxFileBytes caps the decompressed bytes read from each selected file.
// Default: 64 MiB.
func WithMaxFileBytes(n int64) Option {
	return func(o *options) {
		o.maxBytes = n
	}
}

// WithSectionDelimiter overrides the separator between per-tag comment sections.
func WithSectionDelimiter(d string) Option {
	return func(o *options) {
		o.delimiter = d
	}
}

func defaultOptions() options {
	return options{maxFiles: archive.DefaultMaxFiles, maxBytes: archive.DefaultMaxFileBytes}
}
