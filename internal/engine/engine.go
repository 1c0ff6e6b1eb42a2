package engine

import (
	"log/slog"

	"github.com/neville-freeman/log-classifier/internal/archive"
	"github.com/neville-freeman/log-classifier/internal/engine/classifier"
	"github.com/neville-freeman/log-classifier/internal/knowledge"
	"github.com/neville-freeman/log-classifier/internal/metrics"
	"github.com/neville-freeman/log-classifier/internal/model"
)

// Engine orchestrates the select → classify pipeline for one archive.
// It holds only read-only state and is safe for concurrent use.
type Engine struct {
	kb         *knowledge.Base
	selector   *archive.Selector
	classifier *classifier.Classifier
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records archive outcomes and emitted tags.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger used for corrupted-archive warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine with the provided components.
func New(kb *knowledge.Base, sel *archive.Selector, cls *classifier.Classifier, opts ...Option) *Engine {
	e := &Engine{
		kb:         kb,
		selector:   sel,
		classifier: cls,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze diagnoses one archive attachment. An unreadable archive yields the
// corrupted-log sentinel rather than an error; an archive with no files
// yields the no-known-issue sentinel.
func (e *Engine) Analyze(data []byte) model.Diagnosis {
	files, err := e.selector.Select(data)
	if err != nil {
		e.logger.Warn("archive unreadable", "error", err, "bytes", len(data))
		d := model.CorruptedLog()
		e.metrics.ObserveArchive(metrics.OutcomeCorrupted, d.Tags)
		return d
	}
	return e.AnalyzeFiles(files)
}

// AnalyzeFiles classifies already-extracted log files.
func (e *Engine) AnalyzeFiles(files []model.LogFile) model.Diagnosis {
	d := e.classifier.Classify(files, e.kb)
	outcome := metrics.OutcomeDiagnosed
	if d.IsNoKnownIssue() {
		outcome = metrics.OutcomeNoIssue
	}
	e.metrics.ObserveArchive(outcome, d.Tags)
	return d
}

// Delimiter returns the section delimiter used in diagnosis comments.
func (e *Engine) Delimiter() string {
	return e.classifier.Delimiter()
}

// KnowledgeBase returns the knowledge base the engine matches against.
func (e *Engine) KnowledgeBase() *knowledge.Base {
	return e.kb
}
