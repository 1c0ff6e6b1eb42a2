package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/neville-freeman/log-classifier/internal/model"
	"github.com/neville-freeman/log-classifier/internal/output"
)

// Option configures a stdout Output.
type Option func(*Output)

// WithWriter redirects reports to w instead of os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(o *Output) { o.w = w }
}

// WithPretty indents the JSON of each report.
func WithPretty() Option {
	return func(o *Output) { o.pretty = true }
}

// Output writes JSON-encoded reports to stdout, one per line unless pretty.
type Output struct {
	mu        sync.Mutex
	w         io.Writer
	enc       *json.Encoder
	pretty    bool
	verbosity output.Verbosity
}

// New creates a stdout Output.
func New(verbosity output.Verbosity, opts ...Option) *Output {
	o := &Output{w: os.Stdout, verbosity: verbosity}
	for _, opt := range opts {
		opt(o)
	}
	o.enc = json.NewEncoder(o.w)
	if o.pretty {
		o.enc.SetIndent("", "  ")
	}
	return o
}

func (o *Output) Write(_ context.Context, r model.Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(output.FormatReport(r, o.verbosity)); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
