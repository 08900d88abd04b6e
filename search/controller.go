package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/picklecourt/courtdesk/internal/logging"
	"github.com/picklecourt/courtdesk/metrics"
	"github.com/picklecourt/courtdesk/notify"
	"github.com/picklecourt/courtdesk/remote"
	"go.uber.org/zap"
)

const (
	// DefaultPageSize is the page size used when Config.PageSize is zero.
	DefaultPageSize = 10
)

// DefaultPageSizes are the page sizes offered by list screens.
var DefaultPageSizes = []int{10, 20, 30}

var (
	ErrNoFetch      = errors.New("search: fetch function is required")
	ErrInvalidPage  = errors.New("search: page must be >= 1 and size > 0")
	ErrNoColumns    = errors.New("search: at least one column is required")
	ErrColumnRender = errors.New("search: column has no value function")
)

// FetchFunc loads one raw list response for the merged query parameters.
type FetchFunc func(ctx context.Context, params remote.Params) (json.RawMessage, error)

// Getter is satisfied by *remote.Client.
type Getter interface {
	Get(ctx context.Context, path string, params remote.Params, out any) error
}

// RemoteFetch builds a FetchFunc that GETs path through client.
func RemoteFetch(client Getter, path string) FetchFunc {
	return func(ctx context.Context, params remote.Params) (json.RawMessage, error) {
		var raw json.RawMessage
		if err := client.Get(ctx, path, params, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
}

// Pagination is the controller's paging state. TotalElements is 0 until a response
// reports it.
type Pagination struct {
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
}

// LastPage returns the last valid page for the known total, or 0 when unknown.
func (p Pagination) LastPage() int {
	if p.TotalElements <= 0 || p.Size <= 0 {
		return 0
	}
	return int((p.TotalElements + int64(p.Size) - 1) / int64(p.Size))
}

// Config wires a Controller.
type Config[T any] struct {
	Filters        []Filter
	Columns        []Column[T]
	Fetch          FetchFunc
	PageSize       int
	StrictEnvelope bool
	// BeforeSearch observes the merged parameters of every fetch.
	BeforeSearch func(remote.Params)
	// Notifier, when set, receives an error notification for every failed fetch.
	Notifier notify.Sink
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Controller is safe for concurrent use.
type Controller[T any] struct {
	filters      []Filter
	byName       map[string]Filter
	columns      []Column[T]
	fetch        FetchFunc
	strict       bool
	beforeSearch func(remote.Params)
	notifier     notify.Sink
	log          *zap.Logger
	metrics      *metrics.Metrics

	mu         sync.Mutex
	values     map[string]any
	pagination Pagination
	results    []T
	summary    *Summary
	loading    bool
	seq        uint64
	lastErr    error
}

func New[T any](cfg Config[T]) (*Controller[T], error) {
	if cfg.Fetch == nil {
		return nil, ErrNoFetch
	}
	if len(cfg.Columns) == 0 {
		return nil, ErrNoColumns
	}
	for _, col := range cfg.Columns {
		if col.Value == nil {
			return nil, fmt.Errorf("%w: %q", ErrColumnRender, col.Key)
		}
	}
	size := cfg.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	c := &Controller[T]{
		filters:      cfg.Filters,
		byName:       make(map[string]Filter, len(cfg.Filters)),
		columns:      cfg.Columns,
		fetch:        cfg.Fetch,
		strict:       cfg.StrictEnvelope,
		beforeSearch: cfg.BeforeSearch,
		notifier:     cfg.Notifier,
		log:          cfg.Logger,
		metrics:      cfg.Metrics,
		values:       make(map[string]any, len(cfg.Filters)),
		pagination:   Pagination{Page: 1, Size: size},
		results:      []T{},
	}
	c.log = logging.OrNop(c.log)
	for _, f := range cfg.Filters {
		if f.Name == "page" || f.Name == "size" {
			return nil, fmt.Errorf("%w: %q", ErrReservedFilter, f.Name)
		}
		if err := f.check(f.Default); err != nil {
			return nil, err
		}
		c.byName[f.Name] = f
		if f.Default != nil {
			c.values[f.Name] = f.Default
		}
	}
	return c, nil
}

// Start performs the initial fetch at page 1 with default filters.
func (c *Controller[T]) Start(ctx context.Context) error {
	c.mu.Lock()
	c.pagination.Page = 1
	size := c.pagination.Size
	c.mu.Unlock()
	return c.load(ctx, 1, size)
}

// ApplyFilters patches filter values and refetches from page 1. A nil value restores
// the field's default. Invalid values reject the whole patch and nothing is fetched.
func (c *Controller[T]) ApplyFilters(ctx context.Context, values map[string]any) error {
	for name, v := range values {
		f, ok := c.byName[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownFilter, name)
		}
		if err := f.check(v); err != nil {
			return err
		}
	}

	c.mu.Lock()
	for name, v := range values {
		if v == nil {
			if d := c.byName[name].Default; d != nil {
				c.values[name] = d
			} else {
				delete(c.values, name)
			}
			continue
		}
		c.values[name] = v
	}
	c.pagination.Page = 1
	size := c.pagination.Size
	c.mu.Unlock()

	return c.load(ctx, 1, size)
}

// ResetFilters restores every default and refetches from page 1.
func (c *Controller[T]) ResetFilters(ctx context.Context) error {
	c.mu.Lock()
	c.values = make(map[string]any, len(c.filters))
	for _, f := range c.filters {
		if f.Default != nil {
			c.values[f.Name] = f.Default
		}
	}
	c.pagination.Page = 1
	size := c.pagination.Size
	c.mu.Unlock()
	return c.load(ctx, 1, size)
}

// ChangePage fetches page at size, keeping filter values.
func (c *Controller[T]) ChangePage(ctx context.Context, page, size int) error {
	if page < 1 || size < 1 {
		return ErrInvalidPage
	}
	c.mu.Lock()
	c.pagination.Page = page
	c.pagination.Size = size
	c.mu.Unlock()
	return c.load(ctx, page, size)
}

// Refresh refetches the current page.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	page, size := c.pagination.Page, c.pagination.Size
	c.mu.Unlock()
	return c.load(ctx, page, size)
}

// load fetches page and, when the response says the page is past the end, clamps to
// the last page and fetches once more.
func (c *Controller[T]) load(ctx context.Context, page, size int) error {
	clampTo, err := c.fetchOnce(ctx, page, size, true)
	if err != nil || clampTo == 0 {
		return err
	}
	_, err = c.fetchOnce(ctx, clampTo, size, false)
	return err
}

func (c *Controller[T]) fetchOnce(ctx context.Context, page, size int, allowClamp bool) (int, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.loading = true
	params := make(remote.Params, len(c.values)+2)
	for k, v := range c.values {
		params[k] = v
	}
	c.mu.Unlock()
	params["page"] = page
	params["size"] = size

	c.metrics.Inc(metrics.SearchFetches)
	if c.beforeSearch != nil {
		c.beforeSearch(params)
	}

	raw, err := c.fetch(ctx, params)
	var result Page[T]
	if err == nil {
		result, err = Normalize[T](raw, c.strict)
	}

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.metrics.Inc(metrics.StaleResponsesDropped)
		c.log.Debug("dropping stale search response", zap.Uint64("seq", seq))
		return 0, nil
	}

	if err != nil {
		c.loading = false
		c.lastErr = err
		c.mu.Unlock()
		c.log.Warn("search fetch failed", zap.Uint64("seq", seq), zap.Int("page", page), zap.Error(err))
		if c.notifier != nil {
			c.notifier.Notify(ctx, notify.Error(failureMessage(err), ""))
		}
		return 0, err
	}

	if allowClamp && result.TotalElements > 0 && int64(page-1)*int64(size) >= result.TotalElements {
		last := Pagination{Size: size, TotalElements: result.TotalElements}.LastPage()
		c.pagination = Pagination{Page: last, Size: size, TotalElements: result.TotalElements}
		c.mu.Unlock()
		c.metrics.Inc(metrics.PageClamps)
		c.log.Debug("page past the end, clamping", zap.Int("page", page), zap.Int("last", last))
		return last, nil
	}

	c.results = result.Items
	c.pagination = Pagination{Page: page, Size: size, TotalElements: result.TotalElements}
	if result.Summary != nil {
		c.summary = result.Summary
	}
	c.loading = false
	c.lastErr = nil
	c.mu.Unlock()
	return 0, nil
}

func failureMessage(err error) string {
	if re, ok := remote.AsRemoteError(err); ok && re.Message != "" {
		return re.Message
	}
	return remote.DefaultMessage
}

// Results returns a copy of the current rows.
func (c *Controller[T]) Results() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.results))
	copy(out, c.results)
	return out
}

func (c *Controller[T]) Pagination() Pagination {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pagination
}

// Loading is true while the most recently issued fetch is unsettled.
func (c *Controller[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Summary returns the last revenue summary seen, if any.
func (c *Controller[T]) Summary() (Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.summary == nil {
		return Summary{}, false
	}
	return *c.summary, true
}

// Filters returns a copy of the current filter values.
func (c *Controller[T]) Filters() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// FilterSchema returns the declared filters.
func (c *Controller[T]) FilterSchema() []Filter {
	out := make([]Filter, len(c.filters))
	copy(out, c.filters)
	return out
}

// Err returns the error of the last settled fetch, or nil.
func (c *Controller[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
