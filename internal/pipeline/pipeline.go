package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/neville-freeman/log-classifier/internal/connector"
	"github.com/neville-freeman/log-classifier/internal/metrics"
	"github.com/neville-freeman/log-classifier/internal/model"
	"github.com/neville-freeman/log-classifier/internal/output"
)

const defaultConcurrency = 4

// Analyzer diagnoses one archive attachment. *engine.Engine satisfies it.
type Analyzer interface {
	Analyze(data []byte) model.Diagnosis
	Delimiter() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency sets how many tickets are processed at once. Default: 4.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) { p.concurrency = n }
}

// WithLogger sets the pipeline logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics records ticket outcomes and pass durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithMemory remembers up to size resolved ticket IDs so a ticket the
// ticketing system still lists (e.g. due to search index lag) is not
// diagnosed twice by the same process. 0 disables it.
func WithMemory(size int) Option {
	return func(p *Pipeline) { p.memorySize = size }
}

// Pipeline connects a ticketing connector, an analyzer, and an output:
// pending tickets are fetched, their archive attachments diagnosed, the
// diagnosis posted back, and a report written.
type Pipeline struct {
	ticketing   connector.Ticketing
	analyzer    Analyzer
	output      output.Output
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	memorySize  int
	memory      *lru.Cache[int64, struct{}]
	now         func() time.Time
}

// New creates a Pipeline from the given components.
func New(t connector.Ticketing, a Analyzer, out output.Output, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		ticketing:   t,
		analyzer:    a,
		output:      out,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	if p.memorySize > 0 {
		mem, err := lru.New[int64, struct{}](p.memorySize)
		if err != nil {
			return nil, fmt.Errorf("pipeline: memory: %w", err)
		}
		p.memory = mem
	}
	return p, nil
}

// Summary counts ticket outcomes for one pass.
type Summary struct {
	Tickets  int
	Resolved int
	Skipped  int
	Failed   int
}

func (s *Summary) add(outcome string) {
	switch outcome {
	case metrics.TicketResolved:
		s.Resolved++
	case metrics.TicketSkipped:
		s.Skipped++
	case metrics.TicketFailed:
		s.Failed++
	}
}

// RunOnce processes every pending ticket once. A failing ticket does not
// stop the others; their errors are joined into the returned error.
func (p *Pipeline) RunOnce(ctx context.Context) (Summary, error) {
	log := p.logger.With("run_id", uuid.NewString())
	start := p.now()
	defer func() { p.metrics.ObservePass(time.Since(start).Seconds()) }()

	tickets, err := p.ticketing.Pending(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("pipeline: list pending tickets: %w", err)
	}
	log.Info("pass started", "tickets", len(tickets))

	var (
		mu   sync.Mutex
		sum  = Summary{Tickets: len(tickets)}
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, t := range tickets {
		g.Go(func() error {
			outcome, err := p.processTicket(ctx, log, t)
			p.metrics.ObserveTicket(outcome)

			mu.Lock()
			defer mu.Unlock()
			sum.add(outcome)
			if err != nil {
				errs = append(errs, err)
			}
			return nil
		})
	}
	g.Wait()

	log.Info("pass finished",
		"tickets", sum.Tickets, "resolved", sum.Resolved,
		"skipped", sum.Skipped, "failed", sum.Failed,
		"duration", time.Since(start))
	return sum, errors.Join(errs...)
}

func (p *Pipeline) processTicket(ctx context.Context, log *slog.Logger, t model.Ticket) (string, error) {
	log = log.With("ticket_id", t.ID)

	if p.memory != nil && p.memory.Contains(t.ID) {
		log.Debug("ticket already resolved by this process")
		return metrics.TicketSkipped, nil
	}

	var archives []model.Attachment
	for _, a := range t.Attachments {
		if IsArchive(a) {
			archives = append(archives, a)
		}
	}
	if len(archives) == 0 {
		log.Debug("no archive attachments", "attachments", len(t.Attachments))
		return metrics.TicketSkipped, nil
	}

	diagnoses := make([]model.Diagnosis, 0, len(archives))
	names := make([]string, 0, len(archives))
	for _, a := range archives {
		data, err := p.ticketing.Download(ctx, a)
		if err != nil {
			log.Error("attachment download failed", "attachment", a.FileName, "error", err)
			return metrics.TicketFailed, fmt.Errorf("ticket %d: %w", t.ID, err)
		}
		d := p.analyzer.Analyze(data)
		log.Debug("attachment analyzed", "attachment", a.FileName, "tags", d.Tags)
		diagnoses = append(diagnoses, d)
		names = append(names, a.FileName)
	}

	d := model.Merge(p.analyzer.Delimiter(), diagnoses...)
	if err := p.ticketing.Resolve(ctx, t.ID, d); err != nil {
		log.Error("ticket update failed", "error", err)
		return metrics.TicketFailed, fmt.Errorf("ticket %d: %w", t.ID, err)
	}
	if p.memory != nil {
		p.memory.Add(t.ID, struct{}{})
	}
	log.Info("ticket resolved", "tags", d.Tags, "attachments", len(archives))

	r := model.Report{
		TicketID:    t.ID,
		Source:      "ticket",
		Attachments: names,
		Diagnosis:   d,
		ProcessedAt: p.now().UTC(),
	}
	if err := p.output.Write(ctx, r); err != nil {
		// The ticket is already updated; only the audit trail is missing.
		log.Warn("report write failed", "error", err)
	}
	return metrics.TicketResolved, nil
}

// Watch runs a pass immediately and then every interval until ctx is
// cancelled. Pass errors are logged, not returned.
func (p *Pipeline) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("pipeline: watch interval must be positive, got %v", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}

var archiveTypes = map[string]bool{
	"application/zip":              true,
	"application/x-zip-compressed": true,
	"application/gzip":             true,
	"application/x-gzip":           true,
	"application/x-tar":            true,
	"application/x-compressed-tar": true,
}

// IsArchive reports whether an attachment looks like a log archive, by
// content type or file extension. A single gzip-compressed log counts.
func IsArchive(a model.Attachment) bool {
	ct := strings.ToLower(strings.TrimSpace(a.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if archiveTypes[ct] {
		return true
	}
	name := strings.ToLower(a.FileName)
	if strings.HasSuffix(name, ".tar.gz") {
		return true
	}
	switch path.Ext(name) {
	case ".zip", ".tar", ".tgz", ".gz":
		return true
	}
	return false
}
