package courtdesk

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/picklecourt/courtdesk/grid"
	"github.com/picklecourt/courtdesk/guard"
	"github.com/picklecourt/courtdesk/internal"
	"github.com/picklecourt/courtdesk/internal/logging"
	"github.com/picklecourt/courtdesk/location"
	"github.com/picklecourt/courtdesk/metrics"
	"github.com/picklecourt/courtdesk/metrics/export/otel"
	"github.com/picklecourt/courtdesk/notify"
	"github.com/picklecourt/courtdesk/payment"
	"github.com/picklecourt/courtdesk/permission"
	"github.com/picklecourt/courtdesk/remote"
	"github.com/picklecourt/courtdesk/session"
	"github.com/picklecourt/courtdesk/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrBuilderUsed is returned when Build is called twice on one Builder.
var ErrBuilderUsed = errors.New("courtdesk: builder already used")

// Builder collects a Config and optional collaborators, then builds a Desk. A Builder
// is single-use.
type Builder struct {
	config     Config
	logger     *zap.Logger
	backend    storage.Backend
	redis      redis.UniversalClient
	rules      *permission.RuleSet
	precedence permission.Precedence
	sink       notify.Sink
	httpClient *http.Client
	dialer     payment.Dialer
	onUnauth   remote.UnauthorizedFunc
	meter      metric.Meter

	built bool
}

// New starts a Builder from DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithLogger replaces the logger built from Config.Log.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.logger = log
	return b
}

// WithBackend replaces the storage backend selected by Config.Storage.Backend.
func (b *Builder) WithBackend(backend storage.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis supplies the client used by the redis backend instead of dialing
// Config.Storage.RedisAddr. The Desk does not close it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRules replaces DefaultAdminRules.
func (b *Builder) WithRules(rules *permission.RuleSet) *Builder {
	b.rules = rules
	return b
}

func (b *Builder) WithPrecedence(p permission.Precedence) *Builder {
	b.precedence = p
	return b
}

// WithNotifier sets where notifications are delivered. The default logs them.
func (b *Builder) WithNotifier(sink notify.Sink) *Builder {
	b.sink = sink
	return b
}

func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithDialer replaces the websocket dialer of the payment watcher.
func (b *Builder) WithDialer(d payment.Dialer) *Builder {
	b.dialer = d
	return b
}

// OnUnauthorized is called with the login URL after a 401 cleared the session.
func (b *Builder) OnUnauthorized(fn remote.UnauthorizedFunc) *Builder {
	b.onUnauth = fn
	return b
}

// WithMeter registers the Desk's counters as OpenTelemetry observable instruments.
func (b *Builder) WithMeter(meter metric.Meter) *Builder {
	b.meter = meter
	return b
}

// Build validates the configuration, opens storage, restores any persisted session
// and returns a ready Desk.
func (b *Builder) Build(ctx context.Context) (*Desk, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := b.logger
	if log == nil {
		l, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		log = l
	}

	d := &Desk{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(metrics.Config{Enabled: cfg.Metrics.Enabled, EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms}),
		dialer:  b.dialer,
	}

	backend, closeBackend, err := b.openBackend()
	if err != nil {
		return nil, err
	}
	d.backend = backend
	d.closers = append(d.closers, closeBackend)

	secret := cfg.Storage.Key
	if secret == "" {
		raw, err := internal.RandomBytes(32)
		if err != nil {
			d.closeAll()
			return nil, err
		}
		secret = hex.EncodeToString(raw)
		log.Debug("using a per-process storage key; sessions will not survive a restart")
	}

	sink := b.sink
	if sink == nil {
		sink = notify.NewLogSink(log)
	}
	notifyLog := log.Named("notify")
	d.notifier = notify.NewDispatcher(sink, notify.Config{
		BufferSize:   cfg.Notify.BufferSize,
		DropIfFull:   cfg.Notify.DropIfFull,
		RepeatWindow: cfg.Notify.RepeatWindow,
		OnDrop: func(n notify.Notification) {
			notifyLog.Debug("notification dropped", zap.String("level", string(n.Level)), zap.String("message", n.Message))
		},
	})
	d.closers = append(d.closers, func() error { d.notifier.Close(); return nil })

	d.session, err = session.NewStore(session.Config{
		Backend:         backend,
		Secret:          secret,
		Precedence:      b.precedence,
		DefaultLanguage: cfg.Session.DefaultLanguage,
		Logger:          log.Named("session"),
		Metrics:         d.metrics,
	})
	if err != nil {
		d.closeAll()
		return nil, err
	}
	if err := d.session.Load(ctx); err != nil {
		d.closeAll()
		return nil, err
	}

	d.onUnauth = b.onUnauth
	d.client, err = remote.New(remote.Config{
		BaseURL:        cfg.API.BaseURL,
		HTTPClient:     b.httpClient,
		Timeout:        cfg.API.Timeout,
		Session:        d.session,
		LoginPath:      cfg.API.LoginPath,
		OnUnauthorized: d.unauthorized,
		Logger:         log.Named("remote"),
		Metrics:        d.metrics,
	})
	if err != nil {
		d.closeAll()
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if cfg.API.LocationURL != "" {
		lc, err := remote.New(remote.Config{
			BaseURL:    cfg.API.LocationURL,
			HTTPClient: b.httpClient,
			Timeout:    cfg.API.Timeout,
			Logger:     log.Named("location"),
			Metrics:    d.metrics,
		})
		if err != nil {
			d.closeAll()
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		d.location = location.New(lc)
	}

	d.rules = b.rules
	if d.rules == nil {
		d.rules = permission.DefaultAdminRules()
	}
	d.guard = guard.New(d.session, d.rules,
		guard.WithLoginPath(cfg.API.LoginPath),
		guard.WithForbiddenPath(cfg.API.ForbiddenPath),
	)
	d.stager = grid.NewStager(backend)

	if b.meter != nil {
		exp, err := otel.NewOTelExporter(b.meter, d)
		if err != nil {
			d.closeAll()
			return nil, err
		}
		d.closers = append(d.closers, exp.Close)
	}

	b.built = true
	log.Info("courtdesk ready",
		zap.String("api", cfg.API.BaseURL),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("authenticated", d.session.IsAuthenticated()),
	)
	return d, nil
}

func (b *Builder) openBackend() (storage.Backend, func() error, error) {
	noop := func() error { return nil }
	if b.backend != nil {
		return b.backend, noop, nil
	}
	sc := b.config.Storage
	switch sc.Backend {
	case BackendFile:
		f, err := storage.NewFile(sc.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, noop, nil
	case BackendRedis:
		if b.redis != nil {
			return storage.NewRedis(b.redis, sc.RedisPrefix, sc.RedisTTL), noop, nil
		}
		client := redis.NewClient(&redis.Options{Addr: sc.RedisAddr})
		return storage.NewRedis(client, sc.RedisPrefix, sc.RedisTTL), client.Close, nil
	default:
		return storage.NewMemory(), noop, nil
	}
}
