package knowledge

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/neville-freeman/log-classifier/internal/model"
)

// ParseError reports a malformed knowledge-base record. Record is the
// 1-based index of the data record (a header row is not counted).
type ParseError struct {
	Record int
	Line   int
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("knowledge base: ")
	if e.Record > 0 {
		fmt.Fprintf(&b, "record %d", e.Record)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %s", e.Field)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

var errEmptyPattern = errors.New("pattern must not be empty")

var header = []string{"pattern", "code", "problem", "solution"}

// Load parses a CSV knowledge base. Each record has four fields: pattern,
// code name, problem text, solution text. Quoted fields may contain commas
// and newlines. An optional header row is skipped. Any malformed record
// fails the whole load. A leading UTF-8 byte order mark is ignored.
func Load(r io.Reader) (*Base, error) {
	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = len(header)

	var entries []model.KnowledgeEntry
	first := true
	for idx := 0; ; {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			pe := &ParseError{Record: idx + 1, Err: err}
			var ce *csv.ParseError
			if errors.As(err, &ce) {
				pe.Line = ce.StartLine
				pe.Err = ce.Err
			}
			return nil, pe
		}
		if first {
			first = false
			if isHeader(rec) {
				continue
			}
		}
		idx++
		line, _ := cr.FieldPos(0)
		e, perr := toEntry(rec[0], rec[1], rec[2], rec[3])
		if perr != nil {
			perr.Record = idx
			perr.Line = line
			return nil, perr
		}
		entries = append(entries, e)
	}
	return New(entries), nil
}

type yamlEntry struct {
	Pattern  string `yaml:"pattern"`
	Code     string `yaml:"code"`
	Problem  string `yaml:"problem"`
	Solution string `yaml:"solution"`
}

// LoadYAML parses a YAML knowledge base: a sequence of mappings with
// pattern, code, problem and solution keys.
func LoadYAML(r io.Reader) (*Base, error) {
	var raw []yamlEntry
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && err != io.EOF {
		return nil, &ParseError{Err: err}
	}
	entries := make([]model.KnowledgeEntry, 0, len(raw))
	for i, y := range raw {
		e, perr := toEntry(y.Pattern, y.Code, y.Problem, y.Solution)
		if perr != nil {
			perr.Record = i + 1
			return nil, perr
		}
		entries = append(entries, e)
	}
	return New(entries), nil
}

// LoadFile opens path and parses it as YAML (.yaml, .yml) or CSV.
func LoadFile(path string) (*Base, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge base: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	default:
		return Load(f)
	}
}

func toEntry(pattern, codeName, problem, solution string) (model.KnowledgeEntry, *ParseError) {
	if pattern == "" {
		return model.KnowledgeEntry{}, &ParseError{Field: "pattern", Err: errEmptyPattern}
	}
	code, err := model.ParseErrorCode(codeName)
	if err != nil {
		return model.KnowledgeEntry{}, &ParseError{Field: "code", Err: err}
	}
	return model.KnowledgeEntry{
		Pattern:  pattern,
		Code:     code,
		Problem:  problem,
		Solution: solution,
	}, nil
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// skipBOM drops the byte order mark spreadsheet exports put before the first field.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(bom)); err == nil && string(b) == string(bom) {
		br.Discard(len(bom))
	}
	return br
}

func isHeader(rec []string) bool {
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(rec[i]), h) {
			return false
		}
	}
	return true
}
