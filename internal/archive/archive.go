// Package archive extracts the most recent log files from a compressed
// attachment.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/neville-freeman/log-classifier/internal/model"
)

// DefaultMaxFiles is the recency bound used when none is configured.
const DefaultMaxFiles = 5

// DefaultMaxFileBytes caps the decompressed size read from one file.
const DefaultMaxFileBytes int64 = 64 << 20

// Kind classifies an archive failure.
type Kind int

const (
	Corrupted Kind = iota + 1
)

func (k Kind) String() string {
	switch k {
	case Corrupted:
		return "corrupted"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrCorrupted matches any *Error of kind Corrupted via errors.Is.
var ErrCorrupted = &Error{Kind: Corrupted}

// Error is returned when an archive cannot be read.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "archive: " + e.Kind.String()
	}
	return fmt.Sprintf("archive: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func corrupted(err error) error {
	return &Error{Kind: Corrupted, Err: err}
}

// Option configures a Selector.
type Option func(*Selector)

// WithMaxFileBytes caps how many decompressed bytes are read from each
// selected file. Content past the cap is dropped. A cap below 1 falls back
// to DefaultMaxFileBytes.
func WithMaxFileBytes(n int64) Option {
	return func(s *Selector) { s.maxFileBytes = n }
}

// Selector picks at most MaxFiles log files from an archive, newest first.
// It holds no state between calls and is safe for concurrent use.
type Selector struct {
	maxFiles     int
	maxFileBytes int64
}

// NewSelector creates a Selector. A bound below 1 falls back to DefaultMaxFiles.
func NewSelector(maxFiles int, opts ...Option) *Selector {
	s := &Selector{maxFiles: maxFiles}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxFiles < 1 {
		s.maxFiles = DefaultMaxFiles
	}
	if s.maxFileBytes < 1 {
		s.maxFileBytes = DefaultMaxFileBytes
	}
	return s
}

// MaxFiles returns the configured recency bound.
func (s *Selector) MaxFiles() int {
	return s.maxFiles
}

// MaxFileBytes returns the per-file read cap.
func (s *Selector) MaxFileBytes() int64 {
	return s.maxFileBytes
}

// entry is a regular file in the container, known by its header only.
type entry struct {
	index    int // position among the container's regular files
	name     string
	modified time.Time
}

// container enumerates file headers without reading bodies, then reads the
// bodies of a chosen subset.
type container interface {
	list() ([]entry, error)
	// read returns the contents of want, in the order of want, each capped
	// at limit bytes.
	read(want []entry, limit int64) ([][]byte, error)
}

// Select enumerates data, sorts its files by timestamp descending (ties keep
// archive order), keeps the first MaxFiles and decompresses only those. An
// archive with no files yields an empty slice and no error.
func (s *Selector) Select(data []byte) ([]model.LogFile, error) {
	c, err := open(data)
	if err != nil {
		return nil, err
	}
	entries, err := c.list()
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		return b.modified.Compare(a.modified)
	})
	if len(entries) > s.maxFiles {
		entries = entries[:s.maxFiles]
	}

	contents, err := c.read(entries, s.maxFileBytes)
	if err != nil {
		return nil, err
	}
	files := make([]model.LogFile, 0, len(entries))
	for i, e := range entries {
		files = append(files, model.LogFile{
			Name:     e.name,
			Modified: e.modified,
			Content:  contents[i],
		})
	}
	return files, nil
}

// open sniffs the container format. A gzip stream is a tar.gz when its
// payload starts with a tar header and a single compressed file otherwise.
func open(data []byte) (container, error) {
	switch {
	case isZip(data):
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, corrupted(err)
		}
		return zipContainer{zr}, nil
	case isGzip(data):
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, corrupted(err)
		}
		defer zr.Close()
		head, err := bufio.NewReaderSize(zr, tarBlock).Peek(tarBlock)
		if err != nil && err != io.EOF {
			return nil, corrupted(err)
		}
		if isTar(head) {
			return tarContainer{stream: gunzip(data)}, nil
		}
		name := zr.Name
		if name == "" {
			name = defaultGzipName
		}
		return gzipContainer{data: data, name: name, modified: zr.ModTime}, nil
	case isTar(data):
		return tarContainer{stream: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}}, nil
	default:
		return nil, corrupted(errors.New("unrecognized container format"))
	}
}

const (
	tarBlock        = 512
	defaultGzipName = "log"
)

func gunzip(data []byte) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return gzip.NewReader(bytes.NewReader(data))
	}
}

func readCapped(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

type zipContainer struct {
	zr *zip.Reader
}

func (z zipContainer) list() ([]entry, error) {
	var out []entry
	for i, f := range z.zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		out = append(out, entry{index: i, name: f.Name, modified: f.Modified})
	}
	return out, nil
}

func (z zipContainer) read(want []entry, limit int64) ([][]byte, error) {
	out := make([][]byte, len(want))
	for i, e := range want {
		rc, err := z.zr.File[e.index].Open()
		if err != nil {
			return nil, corrupted(fmt.Errorf("%s: %w", e.name, err))
		}
		content, err := readCapped(rc, limit)
		rc.Close()
		if err != nil {
			return nil, corrupted(fmt.Errorf("%s: %w", e.name, err))
		}
		out[i] = content
	}
	return out, nil
}

// tarContainer walks the stream twice: headers only, then the chosen bodies.
// tar offers no random access, and holding every body would defeat the bound.
type tarContainer struct {
	stream func() (io.ReadCloser, error)
}

func (t tarContainer) walk(fn func(idx int, hdr *tar.Header, r io.Reader) (bool, error)) error {
	rc, err := t.stream()
	if err != nil {
		return corrupted(err)
	}
	defer rc.Close()

	tr := tar.NewReader(rc)
	for idx := 0; ; {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return corrupted(err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		more, err := fn(idx, hdr, tr)
		if err != nil {
			return corrupted(fmt.Errorf("%s: %w", hdr.Name, err))
		}
		if !more {
			return nil
		}
		idx++
	}
}

func (t tarContainer) list() ([]entry, error) {
	var out []entry
	err := t.walk(func(idx int, hdr *tar.Header, _ io.Reader) (bool, error) {
		out = append(out, entry{index: idx, name: hdr.Name, modified: hdr.ModTime})
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t tarContainer) read(want []entry, limit int64) ([][]byte, error) {
	out := make([][]byte, len(want))
	if len(want) == 0 {
		return out, nil
	}
	pos := make(map[int]int, len(want))
	for i, e := range want {
		pos[e.index] = i
	}
	found := 0
	err := t.walk(func(idx int, _ *tar.Header, r io.Reader) (bool, error) {
		i, ok := pos[idx]
		if !ok {
			return true, nil
		}
		content, err := readCapped(r, limit)
		if err != nil {
			return false, err
		}
		out[i] = content
		found++
		return found < len(want), nil
	})
	if err != nil {
		return nil, err
	}
	if found < len(want) {
		return nil, corrupted(errors.New("archive changed between reads"))
	}
	return out, nil
}

// gzipContainer is a single compressed file such as app.log.gz.
type gzipContainer struct {
	data     []byte
	name     string
	modified time.Time
}

func (g gzipContainer) list() ([]entry, error) {
	return []entry{{name: g.name, modified: g.modified}}, nil
}

func (g gzipContainer) read(want []entry, limit int64) ([][]byte, error) {
	out := make([][]byte, len(want))
	if len(want) == 0 {
		return out, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(g.data))
	if err != nil {
		return nil, corrupted(err)
	}
	defer zr.Close()
	content, err := readCapped(zr, limit)
	if err != nil {
		return nil, corrupted(fmt.Errorf("%s: %w", g.name, err))
	}
	out[0] = content
	return out, nil
}

func isZip(b []byte) bool {
	return bytes.HasPrefix(b, []byte("PK\x03\x04")) || bytes.HasPrefix(b, []byte("PK\x05\x06"))
}

func isGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}

func isTar(b []byte) bool {
	if len(b) >= 262 && bytes.Equal(b[257:262], []byte("ustar")) {
		return true
	}
	// An empty tar is nothing but zero blocks.
	return len(b) >= tarBlock && bytes.Count(b[:tarBlock], []byte{0}) == tarBlock
}
