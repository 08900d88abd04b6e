package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/picklecourt/courtdesk/metrics"
	"github.com/picklecourt/courtdesk/permission"
	"github.com/picklecourt/courtdesk/storage"
	"go.uber.org/zap"
)

const (
	// AuthKey is the storage key of the sealed session blob.
	AuthKey = "auth"
	// AppKey is the storage key of the plaintext preferences document.
	AppKey = "app"
)

// Config wires a Store. Backend nil keeps everything in memory and needs no Secret.
type Config struct {
	Backend         storage.Backend
	Secret          string
	Precedence      permission.Precedence
	DefaultLanguage string
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
	Now             func() time.Time
}

type preferences struct {
	Language string `json:"language"`
}

// Store is the single owner of the current session. All methods are safe for
// concurrent use; writes are last-write-wins.
type Store struct {
	backend    storage.Backend
	sealer     *Sealer
	precedence permission.Precedence
	log        *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	// writeMu orders session writes so the persisted blob follows the last one.
	writeMu  sync.Mutex
	mu       sync.RWMutex
	current  *Session
	claims   Claims
	language string

	listenMu  sync.Mutex
	listeners []func(*Session)
}

func NewStore(cfg Config) (*Store, error) {
	s := &Store{
		backend:    cfg.Backend,
		precedence: cfg.Precedence,
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
		language:   cfg.DefaultLanguage,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if len(s.precedence.Order()) == 0 {
		s.precedence = permission.DefaultPrecedence
	}
	if s.backend != nil {
		sealer, err := NewSealer(cfg.Secret)
		if err != nil {
			return nil, err
		}
		s.sealer = sealer
	}
	return s, nil
}

// Load rehydrates preferences and the session from the backend. Unreadable session
// data is purged and leaves the store unauthenticated; only backend failures are
// returned.
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	if raw, err := s.backend.Get(ctx, AppKey); err == nil {
		var prefs preferences
		if err := json.Unmarshal(raw, &prefs); err == nil && prefs.Language != "" {
			s.mu.Lock()
			s.language = prefs.Language
			s.mu.Unlock()
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("session: load preferences: %w", err)
	}

	blob, err := s.backend.Get(ctx, AuthKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: load: %w", err)
	}

	sess, claims, reason := s.open(blob)
	if reason != "" {
		s.metrics.Inc(metrics.SessionsRejected)
		s.log.Warn("discarding persisted session", zap.String("reason", reason))
		if err := s.backend.Delete(ctx, AuthKey); err != nil {
			s.log.Warn("purge persisted session failed", zap.Error(err))
		}
		return nil
	}

	s.mu.Lock()
	s.current = sess
	s.claims = claims
	s.mu.Unlock()
	s.metrics.Inc(metrics.SessionsRestored)
	s.log.Debug("session restored", zap.String("user_id", sess.User.ID))
	s.emit(sess)
	return nil
}

func (s *Store) open(blob []byte) (*Session, Claims, string) {
	plain, err := s.sealer.Open(blob, AuthKey)
	if err != nil {
		return nil, Claims{}, "undecryptable"
	}
	sess, err := Decode(plain)
	if err != nil {
		return nil, Claims{}, "corrupt"
	}
	if sess.Token == "" {
		return nil, Claims{}, "empty token"
	}
	claims, err := ParseClaims(sess.Token)
	if err == nil && claims.Expired(s.now()) {
		return nil, Claims{}, "expired"
	}
	return sess, claims, ""
}

// Set replaces the current session. A nil session logs out and purges the persisted
// blob. The in-memory state changes even when persistence fails; the persistence
// error is returned.
func (s *Store) Set(ctx context.Context, sess *Session) error {
	var claims Claims
	sess = sess.Clone()
	if sess != nil {
		if c, err := ParseClaims(sess.Token); err == nil {
			claims = c
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.current = sess
	s.claims = claims
	s.mu.Unlock()
	s.emit(sess)
	return s.persist(ctx, sess)
}

// ClearToken logs out only while the current session still carries token. It reports
// whether it cleared anything; a session replaced since token was read is kept.
func (s *Store) ClearToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.current == nil || s.current.Token != token {
		s.mu.Unlock()
		return false, nil
	}
	s.current = nil
	s.claims = Claims{}
	s.mu.Unlock()
	s.emit(nil)
	return true, s.persist(ctx, nil)
}

func (s *Store) persist(ctx context.Context, sess *Session) error {
	if s.backend == nil {
		return nil
	}
	if sess == nil {
		if err := s.backend.Delete(ctx, AuthKey); err != nil {
			return fmt.Errorf("session: purge: %w", err)
		}
		return nil
	}

	plain, err := Encode(sess, s.now())
	if err != nil {
		return err
	}
	blob, err := s.sealer.Seal(plain, AuthKey)
	if err != nil {
		return fmt.Errorf("session: seal: %w", err)
	}
	if err := s.backend.Set(ctx, AuthKey, blob); err != nil {
		return fmt.Errorf("session: persist: %w", err)
	}
	return nil
}

// Clear is Set(ctx, nil).
func (s *Store) Clear(ctx context.Context) error {
	return s.Set(ctx, nil)
}

// Get returns a copy of the current session, or nil.
func (s *Store) Get() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Token returns the bearer token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// IsAuthenticated is true iff a non-empty token is present.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// EffectiveRole resolves the user's roles through the precedence order. It returns ""
// when unauthenticated.
func (s *Store) EffectiveRole() permission.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.current.Token == "" {
		return ""
	}
	return s.precedence.Resolve(s.current.User.RoleNames())
}

// Permissions returns the union of the user's permission codes.
func (s *Store) Permissions() permission.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return permission.NewSet()
	}
	return s.current.User.Permissions()
}

// ExpiresAt returns the token expiry when the token is a JWT carrying one.
func (s *Store) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims.ExpiresAt, !s.claims.ExpiresAt.IsZero()
}

// Language returns the UI language preference.
func (s *Store) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// SetLanguage stores the language preference in plain storage.
func (s *Store) SetLanguage(ctx context.Context, lang string) error {
	s.mu.Lock()
	s.language = lang
	s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	raw, err := json.Marshal(preferences{Language: lang})
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, AppKey, raw); err != nil {
		return fmt.Errorf("session: persist preferences: %w", err)
	}
	return nil
}

// OnChange registers fn to run after every session replacement, including logout
// (fn receives nil). fn must not call back into Set.
func (s *Store) OnChange(fn func(*Session)) {
	if fn == nil {
		return
	}
	s.listenMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenMu.Unlock()
}

func (s *Store) emit(sess *Session) {
	s.listenMu.Lock()
	listeners := append(([]func(*Session))(nil), s.listeners...)
	s.listenMu.Unlock()
	for _, fn := range listeners {
		fn(sess.Clone())
	}
}
