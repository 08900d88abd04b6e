package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering and repeat suppression.
type Config struct {
	BufferSize int
	// DropIfFull makes Notify discard instead of waiting for buffer space.
	DropIfFull bool
	// RepeatWindow suppresses a notification identical in level, message and code
	// to the last one delivered less than RepeatWindow ago. Zero disables it.
	RepeatWindow time.Duration
	// OnDrop runs for every notification discarded on a full buffer.
	OnDrop func(Notification)
}

// Dispatcher hands notifications to a sink from one goroutine so a slow renderer never
// stalls a request path. A nil *Dispatcher is valid and discards everything.
type Dispatcher struct {
	sink  Sink
	cfg   Config
	queue chan Notification
	stop  chan struct{}
	idle  chan struct{}

	stopping   atomic.Bool
	once       sync.Once
	dropped    atomic.Uint64
	suppressed atomic.Uint64

	// owned by the delivery goroutine
	last   Notification
	lastAt time.Time
}

// NewDispatcher starts delivering to sink. A nil sink discards.
func NewDispatcher(sink Sink, cfg Config) *Dispatcher {
	if sink == nil {
		sink = NoOpSink{}
	}
	cfg.BufferSize = max(cfg.BufferSize, 1)

	d := &Dispatcher{
		sink:  sink,
		cfg:   cfg,
		queue: make(chan Notification, cfg.BufferSize),
		stop:  make(chan struct{}),
		idle:  make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.idle)
	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		case <-d.stop:
			for len(d.queue) > 0 {
				d.deliver(<-d.queue)
			}
			return
		}
	}
}

func (d *Dispatcher) deliver(n Notification) {
	at := n.Time
	if at.IsZero() {
		at = time.Now()
	}
	if d.cfg.RepeatWindow > 0 && !d.lastAt.IsZero() && sameToast(d.last, n) && at.Sub(d.lastAt) < d.cfg.RepeatWindow {
		d.suppressed.Add(1)
		return
	}
	d.last, d.lastAt = n, at
	d.sink.Notify(context.Background(), n)
}

func sameToast(a, b Notification) bool {
	return a.Level == b.Level && a.Message == b.Message && a.Code == b.Code
}

// Notify enqueues n. With DropIfFull it never blocks; otherwise it waits for space,
// ctx or Close.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	if d == nil || d.stopping.Load() {
		return
	}
	if !d.cfg.DropIfFull {
		if ctx == nil {
			ctx = context.Background()
		}
		select {
		case d.queue <- n:
		case <-ctx.Done():
		case <-d.stop:
		}
		return
	}

	select {
	case d.queue <- n:
	case <-d.stop:
	default:
		d.dropped.Add(1)
		if d.cfg.OnDrop != nil {
			d.cfg.OnDrop(n)
		}
	}
}

// Close stops intake, flushes whatever is queued and waits for the last delivery.
// Later calls return immediately.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.stopping.Store(true)
		close(d.stop)
	})
	<-d.idle
}

// Dropped counts notifications discarded on a full buffer.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Suppressed counts repeats swallowed by RepeatWindow.
func (d *Dispatcher) Suppressed() uint64 {
	if d == nil {
		return 0
	}
	return d.suppressed.Load()
}
