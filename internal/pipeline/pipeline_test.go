package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neville-freeman/log-classifier/internal/metrics"
	"github.com/neville-freeman/log-classifier/internal/model"
)

// --- mocks ---

// mockTicketing serves fixed tickets; attachment bytes are looked up by URL.
type mockTicketing struct {
	mu          sync.Mutex
	tickets     []model.Ticket
	blobs       map[string][]byte
	pendingErr  error
	failResolve map[int64]bool
	resolved    map[int64]model.Diagnosis
	downloads   atomic.Int32
}

func (m *mockTicketing) Pending(context.Context) ([]model.Ticket, error) {
	if m.pendingErr != nil {
		return nil, m.pendingErr
	}
	return m.tickets, nil
}

func (m *mockTicketing) Download(_ context.Context, a model.Attachment) ([]byte, error) {
	m.downloads.Add(1)
	b, ok := m.blobs[a.URL]
	if !ok {
		return nil, fmt.Errorf("mock: no blob at %s", a.URL)
	}
	return b, nil
}

func (m *mockTicketing) Resolve(_ context.Context, id int64, d model.Diagnosis) error {
	if m.failResolve[id] {
		return fmt.Errorf("mock: resolve %d refused", id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolved == nil {
		m.resolved = make(map[int64]model.Diagnosis)
	}
	m.resolved[id] = d
	return nil
}

func (m *mockTicketing) resolvedFor(id int64) (model.Diagnosis, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.resolved[id]
	return d, ok
}

// mockAnalyzer maps archive bytes to a fixed diagnosis.
type mockAnalyzer struct {
	results map[string]model.Diagnosis
}

func (m *mockAnalyzer) Analyze(data []byte) model.Diagnosis {
	if d, ok := m.results[string(data)]; ok {
		return d
	}
	return model.NoKnownIssue()
}

func (m *mockAnalyzer) Delimiter() string { return "\n--\n" }

type mockOutput struct {
	mu      sync.Mutex
	reports []model.Report
	err     error
	closed  bool
}

func (m *mockOutput) Write(_ context.Context, r model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return m.err
}

func (m *mockOutput) Close() error {
	m.closed = true
	return nil
}

func (m *mockOutput) Reports() []model.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Report(nil), m.reports...)
}

func zipAttachment(id int64, url string) model.Attachment {
	return model.Attachment{ID: id, FileName: fmt.Sprintf("logs-%d.zip", id), ContentType: "application/zip", URL: url}
}

var (
	storage = model.Diagnosis{Tags: []string{"short-storage"}, Comment: "disk"}
	clock   = model.Diagnosis{Tags: []string{"time-sync"}, Comment: "clock"}
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newPipeline(t *testing.T, tk *mockTicketing, an *mockAnalyzer, out *mockOutput, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	p, err := New(tk, an, out, opts...)
	require.NoError(t, err)
	return p
}

// --- tests ---

func TestRunOnce_ResolvesAndReports(t *testing.T) {
	tk := &mockTicketing{
		tickets: []model.Ticket{{ID: 1, Attachments: []model.Attachment{zipAttachment(10, "u/10")}}},
		blobs:   map[string][]byte{"u/10": []byte("A")},
	}
	an := &mockAnalyzer{results: map[string]model.Diagnosis{"A": storage}}
	out := &mockOutput{}
	p := newPipeline(t, tk, an, out)

	sum, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Tickets: 1, Resolved: 1}, sum)

	d, ok := tk.resolvedFor(1)
	require.True(t, ok)
	assert.Equal(t, storage, d)

	reports := out.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, int64(1), reports[0].TicketID)
	assert.Equal(t, []string{"logs-10.zip"}, reports[0].Attachments)
	assert.Equal(t, "ticket", reports[0].Source)
	assert.False(t, reports[0].ProcessedAt.IsZero())
}

func TestRunOnce_MergesAttachments(t *testing.T) {
	tk := &mockTicketing{
		tickets: []model.Ticket{{ID: 2, Attachments: []model.Attachment{
			zipAttachment(20, "u/20"),
			zipAttachment(21, "u/21"),
			zipAttachment(22, "u/22"),
		}}},
		blobs: map[string][]byte{"u/20": []byte("A"), "u/21": []byte("none"), "u/22": []byte("B")},
	}
	an := &mockAnalyzer{results: map[string]model.Diagnosis{"A": storage, "B": clock}}
	p := newPipeline(t, tk, an, &mockOutput{})

	_, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	d, _ := tk.resolvedFor(2)
	assert.Equal(t, []string{"short-storage", "time-sync"}, d.Tags)
	assert.Equal(t, "disk\n--\nclock", d.Comment)
}

func TestRunOnce_AllUnknownStaysUnknown(t *testing.T) {
	tk := &mockTicketing{
		tickets: []model.Ticket{{ID: 3, Attachments: []model.Attachment{zipAttachment(30, "u/30"), zipAttachment(31, "u/31")}}},
		blobs:   map[string][]byte{"u/30": []byte("x"), "u/31": []byte("y")},
	}
	p := newPipeline(t, tk, &mockAnalyzer{}, &mockOutput{})

	_, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	d, _ := tk.resolvedFor(3)
	assert.Equal(t, model.NoKnownIssue(), d)
}

func TestRunOnce_SkipsTicketsWithoutArchives(t *testing.T) {
	tk := &mockTicketing{tickets: []model.Ticket{
		{ID: 4},
		{ID: 5, Attachments: []model.Attachment{{ID: 50, FileName: "screenshot.png", ContentType: "image/png", URL: "u/50"}}},
	}}
	out := &mockOutput{}
	p := newPipeline(t, tk, &mockAnalyzer{}, out)

	sum, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Tickets: 2, Skipped: 2}, sum)
	assert.Zero(t, tk.downloads.Load())
	assert.Empty(t, out.Reports())
}

func TestRunOnce_FailingTicketDoesNotStopOthers(t *testing.T) {
	tk := &mockTicketing{
		tickets: []model.Ticket{
			{ID: 6, Attachments: []model.Attachment{zipAttachment(60, "missing")}},
			{ID: 7, Attachments: []model.Attachment{zipAttachment(70, "u/70")}},
			{ID: 8, Attachments: []model.Attachment{zipAttachment(80, "u/80")}},
		},
		blobs:       map[string][]byte{"u/70": []byte("A"), "u/80": []byte("A")},
		failResolve: map[int64]bool{8: true},
	}
	an := &mockAnalyzer{results: map[string]model.Diagnosis{"A": storage}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := newPipeline(t, tk, an, &mockOutput{}, WithMetrics(m), WithConcurrency(2))

	sum, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ticket 6")
	assert.Contains(t, err.Error(), "ticket 8")
	assert.Equal(t, Summary{Tickets: 3, Resolved: 1, Failed: 2}, sum)

	_, ok := tk.resolvedFor(7)
	assert.True(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicketsTotal.WithLabelValues(metrics.TicketResolved)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TicketsTotal.WithLabelValues(metrics.TicketFailed)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PassDuration))
}

func TestRunOnce_PendingError(t *testing.T) {
	tk := &mockTicketing{pendingErr: errors.New("503 from search")}
	_, err := newPipeline(t, tk, &mockAnalyzer{}, &mockOutput{}).RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list pending tickets")
}

func TestRunOnce_OutputErrorStillResolved(t *testing.T) {
	tk := &mockTicketing{
		tickets: []model.Ticket{{ID: 9, Attachments: []model.Attachment{zipAttachment(90, "u/90")}}},
		blobs:   map[string][]byte{"u/90": []byte("A")},
	}
	out := &mockOutput{err: errors.New("disk full")}
	p := newPipeline(t, tk, &mockAnalyzer{}, out)

	sum, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Resolved)
}

func TestRunOnce_MemorySkipsResolvedTickets(t *testing.T) {
	tk := &mockTicketing{
		tickets: []model.Ticket{{ID: 11, Attachments: []model.Attachment{zipAttachment(110, "u/110")}}},
		blobs:   map[string][]byte{"u/110": []byte("A")},
	}
	out := &mockOutput{}
	p := newPipeline(t, tk, &mockAnalyzer{}, out, WithMemory(16))

	first, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	second, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, first.Resolved)
	assert.Equal(t, Summary{Tickets: 1, Skipped: 1}, second)
	assert.Equal(t, int32(1), tk.downloads.Load())
	assert.Len(t, out.Reports(), 1)
}

func TestRunOnce_WithoutMemoryReprocesses(t *testing.T) {
	tk := &mockTicketing{
		tickets: []model.Ticket{{ID: 12, Attachments: []model.Attachment{zipAttachment(120, "u/120")}}},
		blobs:   map[string][]byte{"u/120": []byte("A")},
	}
	p := newPipeline(t, tk, &mockAnalyzer{}, &mockOutput{})
	p.RunOnce(context.Background())
	p.RunOnce(context.Background())
	assert.Equal(t, int32(2), tk.downloads.Load())
}

func TestRunOnce_ConcurrencyBound(t *testing.T) {
	var inFlight, peak atomic.Int32
	blocking := &blockingTicketing{
		mockTicketing: mockTicketing{blobs: map[string][]byte{}},
		inFlight:      &inFlight,
		peak:          &peak,
	}
	for i := int64(1); i <= 8; i++ {
		url := fmt.Sprintf("u/%d", i)
		blocking.tickets = append(blocking.tickets, model.Ticket{ID: i, Attachments: []model.Attachment{zipAttachment(i, url)}})
		blocking.blobs[url] = []byte("A")
	}
	p, err := New(blocking, &mockAnalyzer{}, &mockOutput{}, WithConcurrency(3), WithLogger(quietLogger()))
	require.NoError(t, err)

	sum, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, sum.Resolved)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

// blockingTicketing holds each download briefly to observe concurrency.
type blockingTicketing struct {
	mockTicketing
	inFlight *atomic.Int32
	peak     *atomic.Int32
}

func (b *blockingTicketing) Download(ctx context.Context, a model.Attachment) ([]byte, error) {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return b.mockTicketing.Download(ctx, a)
}

func TestWatch_StopsOnCancel(t *testing.T) {
	tk := &mockTicketing{
		tickets: []model.Ticket{{ID: 13, Attachments: []model.Attachment{zipAttachment(130, "u/130")}}},
		blobs:   map[string][]byte{"u/130": []byte("A")},
	}
	p := newPipeline(t, tk, &mockAnalyzer{}, &mockOutput{})

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	err := p.Watch(ctx, 20*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, tk.downloads.Load(), int32(2))
}

func TestWatch_SurvivesPassErrors(t *testing.T) {
	tk := &mockTicketing{pendingErr: errors.New("search unavailable")}
	p := newPipeline(t, tk, &mockAnalyzer{}, &mockOutput{})

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Watch(ctx, 10*time.Millisecond), context.DeadlineExceeded)
}

func TestWatch_RejectsBadInterval(t *testing.T) {
	p := newPipeline(t, &mockTicketing{}, &mockAnalyzer{}, &mockOutput{})
	assert.Error(t, p.Watch(context.Background(), 0))
}

func TestClose(t *testing.T) {
	out := &mockOutput{}
	p := newPipeline(t, &mockTicketing{}, &mockAnalyzer{}, out)
	require.NoError(t, p.Close())
	assert.True(t, out.closed)
}

func TestIsArchive(t *testing.T) {
	tests := []struct {
		name string
		att  model.Attachment
		want bool
	}{
		{"zip content type", model.Attachment{FileName: "blob", ContentType: "application/zip"}, true},
		{"content type params", model.Attachment{FileName: "blob", ContentType: "application/gzip; charset=binary"}, true},
		{"uppercase extension", model.Attachment{FileName: "LOGS.ZIP", ContentType: "application/octet-stream"}, true},
		{"tar.gz", model.Attachment{FileName: "support.tar.gz"}, true},
		{"tgz", model.Attachment{FileName: "support.tgz"}, true},
		{"tar", model.Attachment{FileName: "support.tar"}, true},
		{"single gzip log", model.Attachment{FileName: "app.log.gz"}, true},
		{"image", model.Attachment{FileName: "screen.png", ContentType: "image/png"}, false},
		{"text log", model.Attachment{FileName: "app.log", ContentType: "text/plain"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsArchive(tt.att))
		})
	}
}
