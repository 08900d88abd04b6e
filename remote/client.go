package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/picklecourt/courtdesk/metrics"
	"go.uber.org/zap"
)

// SessionSource supplies the bearer token. On 401 it is cleared only if it still holds
// the token the request carried. *session.Store satisfies it.
type SessionSource interface {
	Token() string
	ClearToken(ctx context.Context, token string) (bool, error)
}

// UnauthorizedFunc receives the login URL after a 401 invalidated the session.
type UnauthorizedFunc func(ctx context.Context, loginURL string)

// ErrorHook observes every failure returned by Do.
type ErrorHook func(ctx context.Context, err *RemoteError)

// Config wires a Client.
type Config struct {
	BaseURL        string
	HTTPClient     *http.Client
	Timeout        time.Duration
	Session        SessionSource
	LoginPath      string
	OnUnauthorized UnauthorizedFunc
	OnError        ErrorHook
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
}

// Request describes one call. Params go to the query string, Body is JSON-encoded.
type Request struct {
	Params Params
	Body   any
	// Auth attaches the session token when one exists.
	Auth   bool
	Header http.Header
}

// Client is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	session   SessionSource
	loginPath string
	onUnauth  UnauthorizedFunc
	onError   ErrorHook
	log       *zap.Logger
	metrics   *metrics.Metrics
}

var bareDigits = regexp.MustCompile(`^"?\d+"?$`)

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("remote: invalid base url %q", cfg.BaseURL)
	}
	c := &Client{
		base:      base,
		http:      cfg.HTTPClient,
		session:   cfg.Session,
		loginPath: cfg.LoginPath,
		onUnauth:  cfg.OnUnauthorized,
		onError:   cfg.OnError,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	if c.loginPath == "" {
		c.loginPath = "/login"
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) Get(ctx context.Context, path string, params Params, out any) error {
	return c.Do(ctx, http.MethodGet, path, Request{Params: params, Auth: true}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, Request{Body: body, Auth: true}, out)
}

func (c *Client) Put(ctx context.Context, path string, params Params, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, Request{Params: params, Body: body, Auth: true}, out)
}

func (c *Client) Delete(ctx context.Context, path string, params Params, out any) error {
	return c.Do(ctx, http.MethodDelete, path, Request{Params: params, Auth: true}, out)
}

// Do issues one request and decodes a successful JSON body into out (which may be
// nil). Every failure is a *RemoteError.
func (c *Client) Do(ctx context.Context, method, path string, req Request, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	requestID := uuid.NewString()
	start := time.Now()
	c.metrics.Inc(metrics.Requests)

	httpReq, err := c.newRequest(ctx, method, path, req, requestID)
	if err != nil {
		return c.fail(ctx, &RemoteError{Message: err.Error(), RequestID: requestID, Err: err})
	}
	token := ""
	if req.Auth && c.session != nil {
		token = c.session.Token()
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(httpReq)
	latency := time.Since(start)
	c.metrics.ObserveRequest(latency)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
		return c.fail(ctx, &RemoteError{Message: "network error", RequestID: requestID, Err: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(ctx, &RemoteError{Status: resp.StatusCode, Message: "read response body", RequestID: requestID, Err: err})
	}

	c.log.Debug("request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", latency),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := errorFromBody(resp.StatusCode, body)
		rerr.RequestID = requestID
		if resp.StatusCode == http.StatusUnauthorized && token != "" {
			c.invalidate(ctx, token)
		}
		return c.fail(ctx, rerr)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if bareDigits.Match(trimmed) {
		if err := decodeDigits(trimmed, out); err != nil {
			return c.fail(ctx, &RemoteError{Status: resp.StatusCode, Message: "decode response", RequestID: requestID, Err: err})
		}
		return nil
	}
	if trimmed[0] == '{' {
		var probe envelope
		if err := json.Unmarshal(trimmed, &probe); err == nil && probe.Success != nil && !*probe.Success {
			rerr := probe.remoteError(resp.StatusCode)
			rerr.application = true
			rerr.RequestID = requestID
			return c.fail(ctx, rerr)
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return c.fail(ctx, &RemoteError{Status: resp.StatusCode, Message: "decode response", RequestID: requestID, Err: err})
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, req Request, requestID string) (*http.Request, error) {
	u := *c.base
	rel, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(rel.Path, "/")
	q := rel.Query()
	for k, vs := range req.Params.Values() {
		q[k] = vs
	}
	u.RawQuery = q.Encode()

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

func (c *Client) invalidate(ctx context.Context, token string) {
	cleared, err := c.session.ClearToken(ctx, token)
	if err != nil {
		c.log.Warn("clear session after 401 failed", zap.Error(err))
	}
	if !cleared {
		c.log.Debug("401 for a replaced session ignored")
		return
	}
	c.metrics.Inc(metrics.Unauthorized)
	loginURL := LoginURL(c.loginPath, ReturnPath(ctx))
	c.log.Info("session invalidated", zap.String("redirect", loginURL))
	if c.onUnauth != nil {
		c.onUnauth(ctx, loginURL)
	}
}

func (c *Client) fail(ctx context.Context, err *RemoteError) error {
	c.metrics.Inc(metrics.RequestFailures)
	if c.onError != nil {
		c.onError(ctx, err)
	}
	return err
}

func decodeDigits(digits []byte, out any) error {
	if out == nil {
		return nil
	}
	raw := bytes.Trim(digits, `"`)
	if s, ok := out.(*string); ok {
		*s = string(raw)
		return nil
	}
	return json.Unmarshal(raw, out)
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
	Error   json.RawMessage `json:"error"`
}

func (e envelope) remoteError(status int) *RemoteError {
	rerr := &RemoteError{Status: status, Code: rawCode(e.Code), Message: e.Message}
	if len(e.Error) > 0 {
		var nested struct {
			Code    json.RawMessage `json:"code"`
			Message string          `json:"message"`
		}
		if err := json.Unmarshal(e.Error, &nested); err == nil {
			if nested.Message != "" {
				rerr.Message = nested.Message
			}
			if c := rawCode(nested.Code); c != "" {
				rerr.Code = c
			}
		} else {
			var s string
			if json.Unmarshal(e.Error, &s) == nil && s != "" && rerr.Message == "" {
				rerr.Message = s
			}
		}
	}
	if rerr.Message == "" {
		rerr.Message = DefaultMessage
	}
	return rerr
}

// errorFromBody extracts the message the way the API reports it: a bare string body,
// {"error":{"code","message"}}, or {"message"}.
func errorFromBody(status int, body []byte) *RemoteError {
	trimmed := bytes.TrimSpace(body)
	switch {
	case len(trimmed) == 0:
		msg := http.StatusText(status)
		if msg == "" {
			msg = DefaultMessage
		}
		return &RemoteError{Status: status, Message: msg}
	case trimmed[0] == '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil {
			return env.remoteError(status)
		}
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil && s != "" {
			return &RemoteError{Status: status, Message: s}
		}
	case trimmed[0] != '[':
		return &RemoteError{Status: status, Message: string(trimmed)}
	}
	return &RemoteError{Status: status, Message: DefaultMessage}
}

func rawCode(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
