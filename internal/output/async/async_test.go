package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neville-freeman/log-classifier/internal/model"
)

type mockOutput struct {
	mu      sync.Mutex
	reports []model.Report
	closed  bool
	err     error
	delay   time.Duration
}

func (m *mockOutput) Write(_ context.Context, r model.Report) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	m.reports = append(m.reports, r)
	m.mu.Unlock()
	return m.err
}

func (m *mockOutput) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

func testReport(id int64) model.Report {
	return model.Report{TicketID: id, Source: "ticket", Diagnosis: model.NoKnownIssue()}
}

func TestReportsFlowThrough(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(16))

	for i := 0; i < 10; i++ {
		if err := a.Write(context.Background(), testReport(int64(i))); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if inner.count() != 10 {
		t.Errorf("got %d reports, want 10", inner.count())
	}
	if !inner.closed {
		t.Error("inner output not closed")
	}
}

func TestOrderPreserved(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(4))
	for i := 0; i < 20; i++ {
		a.Write(context.Background(), testReport(int64(i)))
	}
	a.Close()

	for i, r := range inner.reports {
		if r.TicketID != int64(i) {
			t.Fatalf("report %d has ticket %d", i, r.TicketID)
		}
	}
}

func TestWriteRespectsContextWhenFull(t *testing.T) {
	inner := &mockOutput{delay: 200 * time.Millisecond}
	a := New(inner, WithBufferSize(1))
	defer a.Close()

	// One report is being drained, one fills the buffer.
	a.Write(context.Background(), testReport(1))
	a.Write(context.Background(), testReport(2))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := a.Write(ctx, testReport(3)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDropOnFull(t *testing.T) {
	inner := &mockOutput{delay: 100 * time.Millisecond}
	a := New(inner, WithBufferSize(1), WithDropOnFull())

	for i := 0; i < 20; i++ {
		a.Write(context.Background(), testReport(int64(i)))
	}
	a.Close()

	if inner.count() == 20 {
		t.Error("expected some reports to be dropped in drop-on-full mode")
	}
	if inner.count() == 0 {
		t.Error("expected at least some reports to be delivered")
	}
}

func TestErrorCallbackInvoked(t *testing.T) {
	inner := &mockOutput{err: errors.New("write failed")}
	var errorCount atomic.Int64
	a := New(inner, WithBufferSize(16), WithOnError(func(error) { errorCount.Add(1) }))

	for i := 0; i < 5; i++ {
		a.Write(context.Background(), testReport(int64(i)))
	}
	a.Close()

	if errorCount.Load() != 5 {
		t.Errorf("error callback called %d times, want 5", errorCount.Load())
	}
}

func TestDrainTimeout(t *testing.T) {
	inner := &mockOutput{delay: 300 * time.Millisecond}
	a := New(inner, WithBufferSize(8), WithDrainTimeout(50*time.Millisecond))
	for i := 0; i < 4; i++ {
		a.Write(context.Background(), testReport(int64(i)))
	}

	start := time.Now()
	a.Close()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Close took %v, expected drain timeout to cut it short", elapsed)
	}
}

func TestCloseIdempotent(t *testing.T) {
	a := New(&mockOutput{}, WithBufferSize(16))
	a.Write(context.Background(), testReport(1))

	if err := a.Close(); err != nil {
		t.Fatalf("first Close error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("drain goroutine did not exit after Close")
	}
}
