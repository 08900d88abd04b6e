package courtdesk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/picklecourt/courtdesk/grid"
	"github.com/picklecourt/courtdesk/guard"
	"github.com/picklecourt/courtdesk/location"
	"github.com/picklecourt/courtdesk/metrics"
	"github.com/picklecourt/courtdesk/notify"
	"github.com/picklecourt/courtdesk/payment"
	"github.com/picklecourt/courtdesk/permission"
	"github.com/picklecourt/courtdesk/remote"
	"github.com/picklecourt/courtdesk/search"
	"github.com/picklecourt/courtdesk/session"
	"github.com/picklecourt/courtdesk/storage"
	"go.uber.org/zap"
)

// ErrLocationDisabled is returned when no location service URL is configured.
var ErrLocationDisabled = errors.New("courtdesk: location service is not configured")

// Desk is the assembled client kit.
type Desk struct {
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics

	backend  storage.Backend
	session  *session.Store
	client   *remote.Client
	location *location.Client
	rules    *permission.RuleSet
	guard    *guard.Guard
	notifier *notify.Dispatcher
	stager   *grid.Stager
	dialer   payment.Dialer
	onUnauth remote.UnauthorizedFunc

	closeOnce sync.Once
	closers   []func() error
	closed    bool
	mu        sync.RWMutex
}

func (d *Desk) unauthorized(ctx context.Context, loginURL string) {
	d.notifier.Notify(ctx, notify.Notification{
		Time:    time.Now(),
		Level:   notify.LevelWarning,
		Message: "your session has expired, please sign in again",
		Code:    "unauthorized",
	})
	if d.onUnauth != nil {
		d.onUnauth(ctx, loginURL)
	}
}

// report surfaces err as an error notification and returns it unchanged.
func (d *Desk) report(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	msg, code := remote.DefaultMessage, ""
	var verr *ValidationError
	switch re, ok := remote.AsRemoteError(err); {
	case ok:
		msg, code = re.Message, re.Code
	case errors.As(err, &verr):
		msg, code = verr.Error(), "validation"
	case errors.Is(err, context.Canceled):
		return err
	default:
		msg = err.Error()
	}
	d.notifier.Notify(ctx, notify.Error(msg, code))
	return err
}

func (d *Desk) Config() Config { return d.cfg }

func (d *Desk) Logger() *zap.Logger { return d.log }

// Client is the authenticated API client.
func (d *Desk) Client() *remote.Client { return d.client }

// Location returns the location service client.
func (d *Desk) Location() (*location.Client, error) {
	if d.location == nil {
		return nil, ErrLocationDisabled
	}
	return d.location, nil
}

// Session returns a copy of the current session, or nil.
func (d *Desk) Session() *session.Session { return d.session.Get() }

// User returns the signed-in user's profile.
func (d *Desk) User() (session.User, error) {
	sess := d.session.Get()
	if sess == nil {
		return session.User{}, ErrNotAuthenticated
	}
	return sess.User, nil
}

// SessionStore exposes the store for listeners and direct reads.
func (d *Desk) SessionStore() *session.Store { return d.session }

func (d *Desk) IsAuthenticated() bool { return d.session.IsAuthenticated() }

func (d *Desk) EffectiveRole() permission.Role { return d.session.EffectiveRole() }

func (d *Desk) Guard() *guard.Guard { return d.guard }

// Check is Guard().CheckPath(path).
func (d *Desk) Check(path string) guard.Decision { return d.guard.CheckPath(path) }

// Menu returns the navigation visible to the current role. It is empty when
// unauthenticated.
func (d *Desk) Menu() []permission.MenuItem {
	role := d.session.EffectiveRole()
	if role == "" {
		return nil
	}
	return d.rules.Menu(role)
}

// Middleware guards an http.Handler with the Desk's rules using resolve to find the
// caller's session.
func (d *Desk) Middleware(resolve guard.SessionResolver) func(http.Handler) http.Handler {
	return guard.Middleware(d.rules, resolve,
		guard.WithLoginPath(d.cfg.API.LoginPath),
		guard.WithForbiddenPath(d.cfg.API.ForbiddenPath),
	)
}

func (d *Desk) Language() string { return d.session.Language() }

func (d *Desk) SetLanguage(ctx context.Context, lang string) error {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return &ValidationError{Fields: map[string]string{"language": "is required"}}
	}
	return d.session.SetLanguage(ctx, lang)
}

// Storage is the backend holding the session, preferences and staged checkout.
func (d *Desk) Storage() storage.Backend { return d.backend }

// Notifier is the asynchronous notification dispatcher.
func (d *Desk) Notifier() notify.Sink { return d.notifier }

// Stager stages booking selections between checkout steps.
func (d *Desk) Stager() *grid.Stager { return d.stager }

// NewPlanner returns an empty booking planner reporting to the Desk's metrics.
func (d *Desk) NewPlanner() *grid.Planner { return grid.NewPlanner(d.metrics) }

// FetchSlots loads the booking grid of courtID on date into planner.
func (d *Desk) FetchSlots(ctx context.Context, planner *grid.Planner, courtID string, date time.Time) (*grid.Grid, error) {
	courts, err := grid.FetchSlots(ctx, d.client, courtID, date)
	if err != nil {
		return nil, d.report(ctx, err)
	}
	return planner.AddDate(date.Format(remote.DateLayout), courts), nil
}

// WatchPayment waits for orderID to be paid. onTick, when set, receives the remaining
// time once per second on the calling goroutine.
func (d *Desk) WatchPayment(ctx context.Context, orderID string, amount float64, onTick func(time.Duration)) (payment.Result, error) {
	if d.cfg.Payment.WebsocketURL == "" && amount > 0 {
		return payment.Result{}, ErrPaymentDisabled
	}
	w, err := payment.New(payment.Config{
		URL:          d.cfg.Payment.WebsocketURL,
		Dialer:       d.dialer,
		Poller:       payment.OrderStatus{Client: d.client},
		Timeout:      d.cfg.Payment.Timeout,
		PollInterval: d.cfg.Payment.PollInterval,
		OnTick:       onTick,
		Checkout:     d.stager,
		Notifier:     d.notifier,
		Logger:       d.log.Named("payment"),
		Metrics:      d.metrics,
	})
	if err != nil {
		return payment.Result{}, err
	}
	return w.Run(ctx, orderID, amount)
}

// CancelOrder cancels an unpaid order and drops the staged checkout.
func (d *Desk) CancelOrder(ctx context.Context, orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return &ValidationError{Fields: map[string]string{"orderId": "is required"}}
	}
	if err := payment.CancelOrder(ctx, d.client, orderID); err != nil {
		return d.report(ctx, err)
	}
	if err := d.stager.Clear(ctx); err != nil {
		d.log.Warn("clear staged checkout failed", zap.Error(err))
	}
	d.notifier.Notify(ctx, notify.Success("booking cancelled"))
	return nil
}

// NewSearch builds a list controller fetching path through the Desk's client. Fetch,
// Notifier, Logger and Metrics in cfg are filled in when unset.
func NewSearch[T any](d *Desk, path string, cfg search.Config[T]) (*search.Controller[T], error) {
	if cfg.Fetch == nil {
		cfg.Fetch = search.RemoteFetch(d.client, path)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = d.notifier
	}
	if cfg.Logger == nil {
		cfg.Logger = d.log.Named("search").With(zap.String("path", path))
	}
	if cfg.Metrics == nil {
		cfg.Metrics = d.metrics
	}
	return search.New(cfg)
}

// Metrics returns the live recorder.
func (d *Desk) Metrics() *metrics.Metrics { return d.metrics }

// MetricsSnapshot satisfies the metrics exporters' Source.
func (d *Desk) MetricsSnapshot() metrics.Snapshot { return d.metrics.Snapshot() }

// NotificationsDropped is how many notifications were discarded on a full buffer.
func (d *Desk) NotificationsDropped() uint64 { return d.notifier.Dropped() }

// SessionState feeds the exporters' session gauges.
func (d *Desk) SessionState() metrics.SessionState {
	st := metrics.SessionState{Authenticated: d.session.IsAuthenticated()}
	if exp, ok := d.session.ExpiresAt(); ok && st.Authenticated {
		st.ExpiresIn = time.Until(exp)
	}
	return st
}

// Close flushes pending notifications and releases storage. It is idempotent.
func (d *Desk) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		err = d.closeAll()
	})
	return err
}

func (d *Desk) closeAll() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("courtdesk: close: %w", errors.Join(errs...))
	}
	return nil
}

func (d *Desk) isClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}
