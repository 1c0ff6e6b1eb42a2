package logclassifier

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const testKB = `No space left on device,ShortStorage,Disk is full.,Free space.
clock skew detected,TimeSync,Clock is off.,Sync the clock.
Connection refused,ConnectionRefused,Refused.,Check the firewall.
`

func newTestClassifier(t *testing.T, opts ...Option) *Classifier {
	t.Helper()
	opts = append([]Option{WithKnowledgeBase(strings.NewReader(testKB))}, opts...)
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

type entry struct {
	name    string
	age     time.Duration
	content string
}

func buildZip(t *testing.T, entries ...entry) []byte {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: now.Add(-e.age)})
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(e.content))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNewRequiresKnowledgeBase(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("expected error without a knowledge base")
	}
}

func TestNewBadPathReturnsError(t *testing.T) {
	_, err := New(WithKnowledgeBaseFile("/nonexistent/kb.csv"))
	if err == nil {
		t.Fatal("expected error for bad knowledge base path, got nil")
	}
}

func TestNewMalformedKnowledgeBase(t *testing.T) {
	_, err := New(WithKnowledgeBase(strings.NewReader("pattern,NoSuchCode,p,s\n")))
	if err == nil {
		t.Fatal("expected error for unknown code")
	}
}

func TestNewFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	yml := "- pattern: clock skew detected\n  code: TimeSync\n  problem: Clock is off.\n  solution: Sync the clock.\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(WithKnowledgeBaseFile(path))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if c.KnowledgeBaseSize() != 1 {
		t.Fatalf("KnowledgeBaseSize() = %d, want 1", c.KnowledgeBaseSize())
	}
}

func TestDiagnose(t *testing.T) {
	c := newTestClassifier(t)
	d := c.Diagnose(buildZip(t, entry{"app.log", 0, "Connection refused\nclock skew detected\n"}))

	want := []string{"time-sync", "connection-refused"}
	if strings.Join(d.Tags, ",") != strings.Join(want, ",") {
		t.Fatalf("Tags = %v, want %v", d.Tags, want)
	}
	if len(d.Findings) != 2 || d.Findings[0].Code != "TimeSync" {
		t.Fatalf("unexpected findings: %+v", d.Findings)
	}
	if !strings.Contains(d.Comment, "Clock is off.\nSync the clock.") {
		t.Errorf("Comment missing section: %q", d.Comment)
	}
}

func TestDiagnoseNoKnownIssue(t *testing.T) {
	c := newTestClassifier(t)
	d := c.Diagnose(buildZip(t, entry{"app.log", 0, "all good\n"}))
	if len(d.Tags) != 1 || d.Tags[0] != "unknown" {
		t.Fatalf("Tags = %v, want [unknown]", d.Tags)
	}
}

func TestDiagnoseCorrupted(t *testing.T) {
	c := newTestClassifier(t)
	d := c.Diagnose([]byte{0x00, 0x01, 0x02})
	if len(d.Tags) != 1 || d.Tags[0] != "sent-log-corrupted" {
		t.Fatalf("Tags = %v, want [sent-log-corrupted]", d.Tags)
	}
}

func TestWithMaxFiles(t *testing.T) {
	data := buildZip(t,
		entry{"new.log", 0, "ok\n"},
		entry{"old.log", time.Hour, "No space left on device\n"},
	)
	if d := newTestClassifier(t, WithMaxFiles(1)).Diagnose(data); d.Tags[0] != "unknown" {
		t.Fatalf("with max 1 file the older log should be ignored, got %v", d.Tags)
	}
	if d := newTestClassifier(t).Diagnose(data); d.Tags[0] != "short-storage" {
		t.Fatalf("default max files should read both logs, got %v", d.Tags)
	}
}

func TestWithMaxFileBytes(t *testing.T) {
	data := buildZip(t, entry{"app.log", 0, "ok\n" + strings.Repeat("x", 4096) + "\nNo space left on device\n"})
	if d := newTestClassifier(t, WithMaxFileBytes(64)).Diagnose(data); d.Tags[0] != "unknown" {
		t.Fatalf("content past the byte cap should not be scanned, got %v", d.Tags)
	}
	if d := newTestClassifier(t).Diagnose(data); d.Tags[0] != "short-storage" {
		t.Fatalf("default cap should read the whole file, got %v", d.Tags)
	}
}

func TestDiagnoseSingleGzipLog(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Name = "app.log"
	zw.Write([]byte("clock skew detected\n"))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	d := newTestClassifier(t).Diagnose(buf.Bytes())
	if len(d.Tags) != 1 || d.Tags[0] != "time-sync" {
		t.Fatalf("Tags = %v, want [time-sync]", d.Tags)
	}
}

func TestWithMaxLinesAndDelimiter(t *testing.T) {
	c := newTestClassifier(t, WithMaxLines(2), WithSectionDelimiter(" || "))
	d := c.DiagnoseFiles([]LogFile{
		{Name: "a.log", Content: []byte("clock skew detected\nConnection refused\nNo space left on device\n")},
	})
	if strings.Join(d.Tags, ",") != "time-sync,connection-refused" {
		t.Fatalf("Tags = %v", d.Tags)
	}
	if d.Comment != "Clock is off.\nSync the clock. || Refused.\nCheck the firewall." {
		t.Fatalf("Comment = %q", d.Comment)
	}
}

func TestDiagnoseFilesDoesNotAliasResult(t *testing.T) {
	c := newTestClassifier(t)
	files := []LogFile{{Name: "a.log", Content: []byte("clock skew detected\n")}}
	d := c.DiagnoseFiles(files)
	d.Tags[0] = "mutated"
	d.Findings[0].Lines[0] = "mutated"

	again := c.DiagnoseFiles(files)
	if again.Tags[0] != "time-sync" || again.Findings[0].Lines[0] != "clock skew detected" {
		t.Fatal("results share state between calls")
	}
}

func TestConcurrentDiagnose(t *testing.T) {
	c := newTestClassifier(t)
	data := buildZip(t, entry{"app.log", 0, "No space left on device\n"})

	var wg sync.WaitGroup
	errs := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d := c.Diagnose(data); len(d.Tags) != 1 || d.Tags[0] != "short-storage" {
				errs <- strings.Join(d.Tags, ",")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("unexpected tags from concurrent call: %s", e)
	}
}

func TestCodes(t *testing.T) {
	codes := Codes()
	if len(codes) != 14 {
		t.Fatalf("len(Codes()) = %d, want 14", len(codes))
	}
	if codes[0].Name != "ShortStorage" || codes[0].Tag != "short-storage" {
		t.Errorf("first code = %+v", codes[0])
	}
	last := codes[len(codes)-1]
	if last.Tag != "unknown" {
		t.Errorf("last code tag = %q, want unknown", last.Tag)
	}
	for _, c := range codes {
		if c.Comment == "" {
			t.Errorf("code %s has no comment", c.Name)
		}
	}
}
