package payment

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/picklecourt/courtdesk/internal/backoff"
	"github.com/picklecourt/courtdesk/metrics"
	"github.com/picklecourt/courtdesk/notify"
	"github.com/picklecourt/courtdesk/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func wsServer(t *testing.T, handle func(n int, c *websocket.Conn, r *http.Request)) string {
	t.Helper()
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		handle(int(conns.Add(1)), c, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/identity/ws/notifications"
}

func holdOpen(c *websocket.Conn) {
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

type fakeCheckout struct{ cleared atomic.Int32 }

func (f *fakeCheckout) Clear(context.Context) error {
	f.cleared.Add(1)
	return nil
}

type pollerFunc func(ctx context.Context, orderID string) (bool, error)

func (f pollerFunc) Paid(ctx context.Context, orderID string) (bool, error) { return f(ctx, orderID) }

var fastBackoff = backoff.Config{InitialInterval: 5 * time.Millisecond, MaxInterval: 20 * time.Millisecond, JitterFactor: -1}

func TestConfirmedByPush(t *testing.T) {
	keys := make(chan string, 1)
	url := wsServer(t, func(_ int, c *websocket.Conn, r *http.Request) {
		select {
		case keys <- r.URL.Query().Get("key"):
		default:
		}
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"resCode":"404","message":"waiting"}`))
		_ = c.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"resCode":"200","message":"paid"}`))
		holdOpen(c)
	})
	m := metrics.New(metrics.Config{Enabled: true})
	checkout := &fakeCheckout{}
	sink := notify.NewChannelSink(2)
	w, err := New(Config{URL: url, Timeout: 10 * time.Second, Checkout: checkout, Metrics: m, Notifier: sink})
	require.NoError(t, err)

	res, err := w.Run(context.Background(), "ord-1", 250000)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, res.Outcome)
	assert.Equal(t, ViaPush, res.Via)
	assert.Equal(t, "ord-1", <-keys)
	assert.Equal(t, int32(1), checkout.cleared.Load())
	assert.Equal(t, uint64(1), m.Value(metrics.PaymentsConfirmed))
	n := <-sink.Notifications()
	assert.Equal(t, notify.LevelSuccess, n.Level)
}

func TestTimesOutAndTicksDown(t *testing.T) {
	url := wsServer(t, func(_ int, c *websocket.Conn, _ *http.Request) {
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"resCode":"202"}`))
		holdOpen(c)
	})
	var mu sync.Mutex
	var ticks []time.Duration
	m := metrics.New(metrics.Config{Enabled: true})
	checkout := &fakeCheckout{}
	w, err := New(Config{
		URL:     url,
		Timeout: 50 * time.Millisecond,
		Tick:    10 * time.Millisecond,
		OnTick: func(d time.Duration) {
			mu.Lock()
			ticks = append(ticks, d)
			mu.Unlock()
		},
		Checkout: checkout,
		Metrics:  m,
	})
	require.NoError(t, err)

	res, err := w.Run(context.Background(), "ord-2", 100)
	require.NoError(t, err)
	assert.Equal(t, TimedOut, res.Outcome)
	assert.Empty(t, res.Via)
	assert.Equal(t, int32(1), checkout.cleared.Load())
	assert.Equal(t, uint64(1), m.Value(metrics.PaymentsTimedOut))

	mu.Lock()
	got := append([]time.Duration(nil), ticks...)
	mu.Unlock()
	assert.Equal(t, []time.Duration{40 * time.Millisecond, 30 * time.Millisecond, 20 * time.Millisecond, 10 * time.Millisecond, 0}, got)
}

func TestZeroOrNegativeAmountNeedsNoPayment(t *testing.T) {
	for _, amount := range []float64{0, -50000} {
		dialer := &countingDialer{}
		checkout := &fakeCheckout{}
		w, err := New(Config{URL: "ws://127.0.0.1:1/ws", Dialer: dialer, Checkout: checkout})
		require.NoError(t, err)

		res, err := w.Run(context.Background(), "ord-3", amount)
		require.NoError(t, err)
		assert.Equal(t, Confirmed, res.Outcome)
		assert.Equal(t, ViaNoPayment, res.Via)
		assert.Zero(t, dialer.n.Load())
		assert.Equal(t, int32(1), checkout.cleared.Load())
	}
}

type countingDialer struct{ n atomic.Int32 }

func (d *countingDialer) DialContext(ctx context.Context, u string, h http.Header) (*websocket.Conn, *http.Response, error) {
	d.n.Add(1)
	return nil, nil, errors.New("refused")
}

func TestPollsWhileDisconnected(t *testing.T) {
	dialer := &countingDialer{}
	m := metrics.New(metrics.Config{Enabled: true})
	var polls atomic.Int32
	w, err := New(Config{
		URL:          "ws://127.0.0.1:1/ws",
		Dialer:       dialer,
		Backoff:      fastBackoff,
		PollInterval: 10 * time.Millisecond,
		Timeout:      10 * time.Second,
		Metrics:      m,
		Poller: pollerFunc(func(_ context.Context, id string) (bool, error) {
			assert.Equal(t, "ord-4", id)
			if polls.Add(1) < 3 {
				return false, errors.New("busy")
			}
			return true, nil
		}),
	})
	require.NoError(t, err)

	res, err := w.Run(context.Background(), "ord-4", 100)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, res.Outcome)
	assert.Equal(t, ViaPoll, res.Via)
	assert.GreaterOrEqual(t, m.Value(metrics.StatusPolls), uint64(3))
	assert.GreaterOrEqual(t, dialer.n.Load(), int32(2))
	assert.GreaterOrEqual(t, m.Value(metrics.WebsocketReconnects), uint64(1))
}

func TestReconnectsAfterDrop(t *testing.T) {
	url := wsServer(t, func(n int, c *websocket.Conn, _ *http.Request) {
		if n == 1 {
			return
		}
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"resCode":200}`))
		holdOpen(c)
	})
	m := metrics.New(metrics.Config{Enabled: true})
	w, err := New(Config{URL: url, Backoff: fastBackoff, Timeout: 10 * time.Second, Metrics: m})
	require.NoError(t, err)

	res, err := w.Run(context.Background(), "ord-5", 100)
	require.NoError(t, err)
	assert.Equal(t, ViaPush, res.Via)
	assert.GreaterOrEqual(t, m.Value(metrics.WebsocketReconnects), uint64(1))
}

func TestCancelTearsEverythingDown(t *testing.T) {
	url := wsServer(t, func(_ int, c *websocket.Conn, _ *http.Request) { holdOpen(c) })
	var ticks atomic.Int32
	var polls atomic.Int32
	checkout := &fakeCheckout{}
	w, err := New(Config{
		URL:          url,
		Tick:         5 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		Timeout:      10 * time.Second,
		OnTick:       func(time.Duration) { ticks.Add(1) },
		Poller:       pollerFunc(func(context.Context, string) (bool, error) { polls.Add(1); return false, nil }),
		Checkout:     checkout,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(40*time.Millisecond, cancel)
	res, err := w.Run(ctx, "ord-6", 100)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Cancelled, res.Outcome)
	assert.Zero(t, checkout.cleared.Load())

	after := ticks.Load()
	afterPolls := polls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())
	assert.Equal(t, afterPolls, polls.Load())
}

func TestNewAndRunValidation(t *testing.T) {
	w, err := New(Config{})
	require.NoError(t, err)
	_, err = w.Run(context.Background(), "ord-8", 10)
	assert.ErrorIs(t, err, ErrNoURL)
	res, err := w.Run(context.Background(), "ord-8", 0)
	require.NoError(t, err)
	assert.Equal(t, ViaNoPayment, res.Via)

	_, err = New(Config{URL: "ws://bad host/%zz"})
	assert.Error(t, err)

	w, err = New(Config{URL: "ws://example.invalid/ws"})
	require.NoError(t, err)
	_, err = w.Run(context.Background(), "", 10)
	assert.ErrorIs(t, err, ErrNoOrderID)
	assert.Equal(t, "timed_out", TimedOut.String())
}

func TestOrderStatusAndCancel(t *testing.T) {
	var cancelled string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == OrderPath:
			status := "Chưa thanh toán"
			if r.URL.Query().Get("orderId") == "paid" {
				status = "Đã đặt cọc"
			}
			_, _ = io.WriteString(w, `{"id":"x","paymentStatus":"`+status+`"}`)
		case r.Method == http.MethodPut && r.URL.Path == CancelPath:
			cancelled = r.URL.Query().Get("orderId")
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := remote.New(remote.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	ctx := context.Background()

	paid, err := OrderStatus{Client: client}.Paid(ctx, "paid")
	require.NoError(t, err)
	assert.True(t, paid)

	paid, err = OrderStatus{Client: client}.Paid(ctx, "open")
	require.NoError(t, err)
	assert.False(t, paid)

	require.NoError(t, CancelOrder(ctx, client, "ord-7"))
	assert.Equal(t, "ord-7", cancelled)
}
