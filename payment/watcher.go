package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/picklecourt/courtdesk/internal/backoff"
	"github.com/picklecourt/courtdesk/internal/logging"
	"github.com/picklecourt/courtdesk/metrics"
	"github.com/picklecourt/courtdesk/notify"
	"go.uber.org/zap"
)

const (
	DefaultTimeout      = 300 * time.Second
	DefaultTick         = time.Second
	DefaultPollInterval = 5 * time.Second

	// ConfirmedCode is the resCode of a payment confirmation message.
	ConfirmedCode = "200"
)

var (
	ErrNoURL     = errors.New("payment: websocket url is required")
	ErrNoOrderID = errors.New("payment: order id is required")
)

// Outcome is how a watch ended.
type Outcome int

const (
	Confirmed Outcome = iota + 1
	TimedOut
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Via values of Result.
const (
	ViaPush      = "push"
	ViaPoll      = "poll"
	ViaNoPayment = "no_payment"
)

// Result describes a finished watch.
type Result struct {
	OrderID string
	Outcome Outcome
	// Via names what confirmed the payment. Empty unless Outcome is Confirmed.
	Via       string
	Remaining time.Duration
}

// Dialer is satisfied by *websocket.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, header http.Header) (*websocket.Conn, *http.Response, error)
}

// CheckoutClearer drops a staged checkout. *grid.Stager satisfies it.
type CheckoutClearer interface {
	Clear(ctx context.Context) error
}

// Config wires a Watcher.
type Config struct {
	// URL is the notification socket; the order id is appended as ?key=.
	URL          string
	Dialer       Dialer
	Poller       StatusPoller
	Timeout      time.Duration
	Tick         time.Duration
	PollInterval time.Duration
	Backoff      backoff.Config
	// OnTick runs on the Run goroutine once per Tick with the time left.
	OnTick   func(remaining time.Duration)
	Checkout CheckoutClearer
	Notifier notify.Sink
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Watcher runs payment watches. One Watcher may run several orders concurrently.
type Watcher struct {
	cfg Config
	log *zap.Logger
}

func New(cfg Config) (*Watcher, error) {
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("payment: websocket url: %w", err)
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NoOpSink{}
	}
	return &Watcher{cfg: cfg, log: logging.OrNop(cfg.Logger)}, nil
}

type watch struct {
	*Watcher
	orderID   string
	log       *zap.Logger
	connected atomic.Bool
	once      sync.Once
	done      chan string
}

func (w *watch) confirm(via string) {
	w.once.Do(func() { w.done <- via })
}

// Run watches orderID until it is paid, the countdown ends, or ctx is done. An amount
// of zero or less needs no payment and confirms at once without a socket URL. Every
// goroutine Run starts has exited when it returns.
func (w *Watcher) Run(ctx context.Context, orderID string, amount float64) (Result, error) {
	if orderID == "" {
		return Result{}, ErrNoOrderID
	}
	if amount <= 0 {
		w.settle(ctx, orderID)
		return Result{OrderID: orderID, Outcome: Confirmed, Via: ViaNoPayment}, nil
	}
	if w.cfg.URL == "" {
		return Result{}, ErrNoURL
	}

	wctx, cancel := context.WithCancel(ctx)
	st := &watch{
		Watcher: w,
		orderID: orderID,
		log:     w.log.With(zap.String("order_id", orderID), zap.String("watch_id", uuid.NewString())),
		done:    make(chan string, 1),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		st.listen(wctx)
	}()
	go func() {
		defer wg.Done()
		st.poll(wctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	ticker := time.NewTicker(w.cfg.Tick)
	defer ticker.Stop()
	remaining := w.cfg.Timeout

	for {
		select {
		case <-ctx.Done():
			st.log.Info("payment watch cancelled")
			return Result{OrderID: orderID, Outcome: Cancelled, Remaining: remaining}, ctx.Err()

		case via := <-st.done:
			w.cfg.Metrics.Inc(metrics.PaymentsConfirmed)
			st.log.Info("payment confirmed", zap.String("via", via))
			w.settle(ctx, orderID)
			w.cfg.Notifier.Notify(ctx, notify.Success("payment confirmed"))
			return Result{OrderID: orderID, Outcome: Confirmed, Via: via, Remaining: remaining}, nil

		case <-ticker.C:
			remaining -= w.cfg.Tick
			if remaining < 0 {
				remaining = 0
			}
			if w.cfg.OnTick != nil {
				w.cfg.OnTick(remaining)
			}
			if remaining == 0 {
				w.cfg.Metrics.Inc(metrics.PaymentsTimedOut)
				st.log.Warn("payment timed out")
				w.settle(ctx, orderID)
				w.cfg.Notifier.Notify(ctx, notify.Error("payment timed out, please book again", "payment_timeout"))
				return Result{OrderID: orderID, Outcome: TimedOut}, nil
			}
		}
	}
}

func (w *Watcher) settle(ctx context.Context, orderID string) {
	if w.cfg.Checkout == nil {
		return
	}
	if err := w.cfg.Checkout.Clear(ctx); err != nil {
		w.log.Warn("clear staged checkout failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

func (w *watch) socketURL() string {
	u, _ := url.Parse(w.cfg.URL)
	q := u.Query()
	q.Set("key", w.orderID)
	u.RawQuery = q.Encode()
	return u.String()
}

// listen keeps one socket open until ctx is done, redialing with backoff.
func (w *watch) listen(ctx context.Context) {
	bo := backoff.New(w.cfg.Backoff)
	target := w.socketURL()
	first := true

	for ctx.Err() == nil {
		if !first {
			w.cfg.Metrics.Inc(metrics.WebsocketReconnects)
		}
		first = false

		conn, _, err := w.cfg.Dialer.DialContext(ctx, target, nil)
		if err == nil {
			bo.Reset()
			w.connected.Store(true)
			confirmed := w.read(ctx, conn)
			w.connected.Store(false)
			if confirmed {
				return
			}
		} else if ctx.Err() == nil {
			w.log.Debug("payment socket dial failed", zap.Error(err))
		}

		delay := bo.Next()
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// read consumes messages until the socket fails or a confirmation arrives.
func (w *watch) read(ctx context.Context, conn *websocket.Conn) bool {
	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-ctx.Done():
		case <-closed:
		}
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				w.log.Info("payment socket closed", zap.Error(err))
			}
			return false
		}
		if confirmation(msg) {
			w.confirm(ViaPush)
			return true
		}
	}
}

func confirmation(msg []byte) bool {
	var m struct {
		ResCode json.RawMessage `json:"resCode"`
	}
	if err := json.Unmarshal(msg, &m); err != nil {
		return false
	}
	return string(bytes.Trim(bytes.TrimSpace(m.ResCode), `"`)) == ConfirmedCode
}

// poll checks the order status every PollInterval while the socket is down.
func (w *watch) poll(ctx context.Context) {
	if w.cfg.Poller == nil {
		return
	}
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.connected.Load() {
				continue
			}
			w.cfg.Metrics.Inc(metrics.StatusPolls)
			paid, err := w.cfg.Poller.Paid(ctx, w.orderID)
			if err != nil {
				if ctx.Err() == nil {
					w.log.Debug("payment status poll failed", zap.Error(err))
				}
				continue
			}
			if paid {
				w.confirm(ViaPoll)
				return
			}
		}
	}
}
