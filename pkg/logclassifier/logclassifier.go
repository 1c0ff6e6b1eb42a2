package logclassifier

import (
	"errors"
	"fmt"

	"github.com/neville-freeman/log-classifier/internal/archive"
	"github.com/neville-freeman/log-classifier/internal/engine"
	"github.com/neville-freeman/log-classifier/internal/engine/classifier"
	"github.com/neville-freeman/log-classifier/internal/knowledge"
	"github.com/neville-freeman/log-classifier/internal/model"
)

// Classifier diagnoses log archives. Safe for concurrent use.
type Classifier struct {
	engine *engine.Engine
}

// New loads the knowledge base and builds a Classifier. A knowledge base
// is required.
func New(opts ...Option) (*Classifier, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var (
		kb  *knowledge.Base
		err error
	)
	switch {
	case o.kbReader != nil:
		kb, err = knowledge.Load(o.kbReader)
	case o.kbPath != "":
		kb, err = knowledge.LoadFile(o.kbPath)
	default:
		err = errors.New("no knowledge base configured")
	}
	if err != nil {
		return nil, fmt.Errorf("logclassifier: %w", err)
	}

	copts := []classifier.Option{classifier.WithMaxLines(o.maxLines)}
	if o.delimiter != "" {
		copts = append(copts, classifier.WithSectionDelimiter(o.delimiter))
	}
	eng := engine.New(kb, archive.NewSelector(o.maxFiles, archive.WithMaxFileBytes(o.maxBytes)), classifier.New(copts...))
	return &Classifier{engine: eng}, nil
}

// Diagnose selects the newest files in a zip, tar, tar.gz or single-file gzip archive and
// classifies them. An unreadable archive yields the "sent-log-corrupted"
// tag; readable logs with no known signature yield "unknown".
func (c *Classifier) Diagnose(data []byte) Diagnosis {
	return fromModel(c.engine.Analyze(data))
}

// DiagnoseFiles classifies files that were already extracted.
func (c *Classifier) DiagnoseFiles(files []LogFile) Diagnosis {
	mf := make([]model.LogFile, len(files))
	for i, f := range files {
		mf[i] = model.LogFile{Name: f.Name, Modified: f.Modified, Content: f.Content}
	}
	return fromModel(c.engine.AnalyzeFiles(mf))
}

// KnowledgeBaseSize returns the number of signatures loaded.
func (c *Classifier) KnowledgeBaseSize() int {
	return c.engine.KnowledgeBase().Len()
}

// Codes returns every failure class in reporting order.
func Codes() []Code {
	all := model.ErrorCodes()
	out := make([]Code, len(all))
	for i, code := range all {
		out[i] = Code{Name: code.String(), Tag: code.Tag(), Comment: code.Comment()}
	}
	return out
}

func fromModel(d model.Diagnosis) Diagnosis {
	out := Diagnosis{
		Tags:    append([]string(nil), d.Tags...),
		Comment: d.Comment,
	}
	for _, f := range d.Findings {
		out.Findings = append(out.Findings, Finding{
			Code:  f.Code.String(),
			Tag:   f.Tag,
			Lines: append([]string(nil), f.Lines...),
		})
	}
	return out
}
