package notify

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Notify(context.Context, Notification) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{gate: make(chan struct{})}
}

func (s *gateSink) Notify(context.Context, Notification) {
	<-s.gate
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(sink, Config{BufferSize: 8})
	defer d.Close()

	d.Notify(context.Background(), Info("first"))
	d.Notify(context.Background(), Error("second", "E2"))

	for _, want := range []string{"first", "second"} {
		select {
		case n := <-sink.Notifications():
			if n.Message != want {
				t.Fatalf("expected %q, got %q", want, n.Message)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("expected notification %q", want)
		}
	}
}

func TestDispatcherDropIfFullDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	var onDrop atomic.Int64
	d := NewDispatcher(sink, Config{BufferSize: 1, DropIfFull: true, OnDrop: func(Notification) { onDrop.Add(1) }})
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Notify(context.Background(), Info("n1"))
	d.Notify(context.Background(), Info("n2"))

	start := time.Now()
	d.Notify(context.Background(), Info("n3"))
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking notify when DropIfFull is true")
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
	if onDrop.Load() != int64(d.Dropped()) {
		t.Fatalf("expected onDrop calls to match dropped counter, got %d vs %d", onDrop.Load(), d.Dropped())
	}
}

func TestDispatcherBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(sink, Config{BufferSize: 1})
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Notify(context.Background(), Info("n1"))
	d.Notify(context.Background(), Info("n2"))

	done := make(chan struct{})
	go func() {
		d.Notify(context.Background(), Info("n3"))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected notify to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked notify to proceed after space is available")
	}
}

func TestDispatcherCloseDrainsAndIsIdempotent(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(sink, Config{BufferSize: 4})

	for i := 0; i < 4; i++ {
		d.Notify(context.Background(), Info("n"))
	}
	d.Close()
	d.Close()
	d.Notify(context.Background(), Info("after close"))

	if got := sink.count.Load(); got != 4 {
		t.Fatalf("expected 4 delivered notifications after drain, got %d", got)
	}
}

func TestDispatcherSuppressesRepeatsInsideWindow(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(sink, Config{BufferSize: 8, RepeatWindow: time.Minute})

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	unauth := Notification{Time: at, Level: LevelError, Message: "Unauthenticated", Code: "1005"}
	d.Notify(context.Background(), unauth)
	unauth.Time = at.Add(time.Second)
	d.Notify(context.Background(), unauth)
	d.Notify(context.Background(), Notification{Time: at.Add(2 * time.Second), Level: LevelError, Message: "Unauthenticated", Code: "401"})
	unauth.Time = at.Add(2 * time.Minute)
	d.Notify(context.Background(), unauth)
	d.Close()

	if got := sink.count.Load(); got != 3 {
		t.Fatalf("expected 3 delivered notifications, got %d", got)
	}
	if d.Suppressed() != 1 {
		t.Fatalf("expected 1 suppressed repeat, got %d", d.Suppressed())
	}
}

func TestDispatcherWithoutWindowDeliversRepeats(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(sink, Config{BufferSize: 4})
	for i := 0; i < 3; i++ {
		d.Notify(context.Background(), Info("saved"))
	}
	d.Close()
	if got := sink.count.Load(); got != 3 {
		t.Fatalf("expected every repeat delivered, got %d", got)
	}
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Notify(context.Background(), Info("x"))
	d.Close()
	if d.Dropped() != 0 || d.Suppressed() != 0 {
		t.Fatal("expected zero counters on nil dispatcher")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWriterSinkFormats(t *testing.T) {
	var plain syncBuffer
	NewWriterSink(&plain).Notify(context.Background(), Error("court is locked", "409"))
	if got := plain.String(); got != "[error] court is locked (409)\n" {
		t.Fatalf("unexpected plain line %q", got)
	}

	var js syncBuffer
	NewJSONWriterSink(&js).Notify(context.Background(), Info("saved"))
	if !strings.Contains(js.String(), `"message":"saved"`) || !strings.HasSuffix(js.String(), "\n") {
		t.Fatalf("unexpected JSON line %q", js.String())
	}
}

func TestLogSinkMapsLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := NewLogSink(zap.New(core))

	sink.Notify(context.Background(), Error("boom", "500"))
	sink.Notify(context.Background(), Notification{Level: LevelWarning, Message: "slow"})
	sink.Notify(context.Background(), Info("ok"))

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(entries))
	}
	if entries[0].Level != zap.ErrorLevel || entries[0].ContextMap()["code"] != "500" {
		t.Fatalf("unexpected error entry %+v", entries[0])
	}
	if entries[1].Level != zap.WarnLevel {
		t.Fatalf("expected warn level, got %v", entries[1].Level)
	}
	if entries[2].Level != zap.InfoLevel {
		t.Fatalf("expected info level, got %v", entries[2].Level)
	}
}

func TestMultiFansOut(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	Multi{a, nil, b}.Notify(context.Background(), Info("x"))
	if a.count.Load() != 1 || b.count.Load() != 1 {
		t.Fatal("expected both sinks to receive the notification")
	}
}
