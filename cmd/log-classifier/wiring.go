package main

import (
	"fmt"
	"io"

	"github.com/neville-freeman/log-classifier/internal/archive"
	"github.com/neville-freeman/log-classifier/internal/config"
	"github.com/neville-freeman/log-classifier/internal/connector"
	"github.com/neville-freeman/log-classifier/internal/engine"
	"github.com/neville-freeman/log-classifier/internal/engine/classifier"
	"github.com/neville-freeman/log-classifier/internal/knowledge"
	"github.com/neville-freeman/log-classifier/internal/logging"
	"github.com/neville-freeman/log-classifier/internal/metrics"
	"github.com/neville-freeman/log-classifier/internal/output"
	"github.com/neville-freeman/log-classifier/internal/output/async"
	"github.com/neville-freeman/log-classifier/internal/output/file"
	"github.com/neville-freeman/log-classifier/internal/output/multi"
	"github.com/neville-freeman/log-classifier/internal/output/stdout"
	"github.com/neville-freeman/log-classifier/internal/output/webhook"

	// Register ticketing connectors.
	_ "github.com/neville-freeman/log-classifier/internal/connector/zendesk"
)

const reportFileMaxSize = 64 << 20

// buildEngine loads the knowledge base and wires selector and classifier from cfg.
func buildEngine(cfg config.Config, m *metrics.Metrics) (*engine.Engine, error) {
	kb, err := knowledge.LoadFile(cfg.KnowledgeBase)
	if err != nil {
		return nil, err
	}
	return engine.New(kb,
		archive.NewSelector(cfg.Archive.MaxFiles, archive.WithMaxFileBytes(cfg.Archive.MaxFileBytes)),
		classifier.New(classifier.WithMaxLines(cfg.Archive.MaxLines)),
		engine.WithMetrics(m),
		engine.WithLogger(logging.New("engine")),
	), nil
}

// buildOutput creates the report destination. A webhook URL configured
// alongside a stdout or file output receives a copy of every report.
func buildOutput(cfg config.OutputConfig, w io.Writer) (output.Output, error) {
	v, err := output.ParseVerbosity(cfg.Verbosity)
	if err != nil {
		return nil, err
	}

	var primary output.Output
	switch cfg.Format {
	case "stdout":
		opts := []stdout.Option{stdout.WithWriter(w)}
		if cfg.Pretty {
			opts = append(opts, stdout.WithPretty())
		}
		primary = stdout.New(v, opts...)
	case "file":
		f, err := file.New(cfg.Path, v, file.WithMaxSize(reportFileMaxSize))
		if err != nil {
			return nil, err
		}
		primary = f
	case "webhook":
		primary = webhook.New(cfg.WebhookURL, webhook.WithVerbosity(v))
	default:
		return nil, fmt.Errorf("unknown output format %q", cfg.Format)
	}

	out := primary
	if cfg.Format != "webhook" && cfg.WebhookURL != "" {
		out = multi.New(primary, webhook.New(cfg.WebhookURL, webhook.WithVerbosity(v)))
	}
	if cfg.Async {
		out = async.New(out, async.WithOnError(func(err error) {
			logging.New("output").Warn("report delivery failed", "error", err)
		}))
	}
	return out, nil
}

// buildTicketing resolves the configured ticketing provider.
func buildTicketing(cfg config.TicketingConfig) (connector.Ticketing, error) {
	ctor, err := connector.Get(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return ctor(connector.Config{
		Provider:     cfg.Provider,
		Endpoint:     cfg.Endpoint,
		Email:        cfg.Email,
		Token:        cfg.Token,
		AssigneeID:   cfg.AssigneeID,
		Query:        cfg.Query,
		ProcessedTag: cfg.ProcessedTag,
	})
}
