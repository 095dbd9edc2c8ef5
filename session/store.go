package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	apperrors "github.com/jrsteele09/go-dept-admin/internal/errors"
	"github.com/jrsteele09/go-dept-admin/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Event is reported to observers after every session state change.
type Event string

const (
	EventRestored        Event = "restored"        // Initialize found a valid primary record
	EventUpgraded        Event = "upgraded"        // Primary record rewritten in the current schema
	EventMigrated        Event = "migrated"        // Session rebuilt from legacy keys
	EventUnauthenticated Event = "unauthenticated" // Initialize found nothing usable
	EventPurged          Event = "purged"          // Corrupt data removed
	EventLoggedIn        Event = "logged_in"
	EventLoggedOut       Event = "logged_out"
	EventPersistFailed   Event = "persist_failed"
)

// Store owns the authenticated session of one storage scope: its in-memory value
// and every persisted key. Guards, API clients and views only read from it.
type Store struct {
	storage      Storage
	logger       zerolog.Logger
	mirrorLegacy bool
	observers    []func(Event)

	mu          sync.RWMutex
	current     *Session
	initialized bool
	ready       chan struct{}
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithLogger sets the logger used for self-heal and persistence diagnostics.
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithLegacyMirror controls whether Login also writes the legacy per-field keys
// beyond the token and role markers, which are always written.
// It defaults to true so older portal builds sharing the scope keep working.
func WithLegacyMirror(mirror bool) StoreOption {
	return func(s *Store) {
		s.mirrorLegacy = mirror
	}
}

// WithObserver registers a callback for session events (metrics, audit).
func WithObserver(observer func(Event)) StoreOption {
	return func(s *Store) {
		if observer != nil {
			s.observers = append(s.observers, observer)
		}
	}
}

// NewStore creates an uninitialized Store. Current returns nil until Initialize resolves.
func NewStore(storage Storage, options ...StoreOption) (*Store, error) {
	if storage == nil {
		return nil, errors.New("[NewStore] storage is required")
	}

	s := &Store{
		storage:      storage,
		logger:       log.Logger,
		mirrorLegacy: true,
		ready:        make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "session").Logger()
	return s, nil
}

// Initialize loads the persisted session once. Later calls return the resolved
// value without touching storage. It never fails: anything unusable is purged
// and reported as unauthenticated.
func (s *Store) Initialize(ctx context.Context) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return s.cloneCurrent()
	}
	s.current = s.load(ctx)
	s.markInitialized()
	return s.cloneCurrent()
}

// Reload re-reads storage as a fresh startup would.
func (s *Store) Reload(ctx context.Context) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = s.load(ctx)
	s.markInitialized()
	return s.cloneCurrent()
}

// Current returns a copy of the in-memory session, or nil. It never performs I/O.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneCurrent()
}

// Initialized reports whether Initialize (or Login/Logout) has resolved.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Ready is closed once the store has resolved its initial state.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// SetPendingEmail records the email typed into the login form so Login can
// adopt it when the backend response carries none. An empty email clears it.
func (s *Store) SetPendingEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return s.storage.Remove(ctx, KeyPendingEmail)
	}
	if err := s.storage.Set(ctx, KeyPendingEmail, email); err != nil {
		return errors.Wrap(err, "[Store.SetPendingEmail] storage.Set")
	}
	return nil
}

// Login replaces the current session and every persisted key with sess.
// If sess has no email, a pending login email is adopted. When storage rejects a
// write the session stays live in memory only and the returned error wraps
// ErrSessionNotPersisted.
func (s *Store) Login(ctx context.Context, sess Session) error {
	if err := sess.Validate(); err != nil {
		return fmt.Errorf("[Store.Login] %w: %w", apperrors.ErrInvalidSession, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := sess.Clone()
	if next.Email == "" {
		pending, err := s.storage.Get(ctx, KeyPendingEmail)
		switch {
		case err == nil:
			next.Email = strings.TrimSpace(pending)
		case !errors.Is(err, ErrKeyNotFound):
			s.logger.Warn().Err(err).Msg("Failed to read pending login email")
		}
	}

	s.current = next
	s.markInitialized()

	if err := s.persist(ctx, *next); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist session, keeping it in memory only")
		if purgeErr := s.purge(ctx); purgeErr != nil {
			s.logger.Error().Err(purgeErr).Msg("Failed to clear partially persisted session")
		}
		s.notify(EventPersistFailed)
		return fmt.Errorf("[Store.Login] %w: %w", apperrors.ErrSessionNotPersisted, err)
	}

	s.logger.Info().Str("role", string(next.Role)).Str("tenant", next.TenantID).Msg("Session started")
	s.notify(EventLoggedIn)
	return nil
}

// Logout clears the in-memory session and purges every owned key. It is safe to
// call repeatedly; the in-memory value is cleared even when storage fails.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logoutLocked(ctx)
}

// LogoutToken ends the session only while it still carries token, and reports
// whether it did. A rejection of a token that a later Login already replaced
// leaves the newer session alone.
func (s *Store) LogoutToken(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" || s.current == nil || s.current.Token != token {
		return false, nil
	}
	return true, s.logoutLocked(ctx)
}

func (s *Store) logoutLocked(ctx context.Context) error {
	hadSession := s.current != nil
	s.current = nil
	s.markInitialized()

	if err := s.purge(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to purge session keys on logout")
		return errors.Wrap(err, "[Store.Logout] purge")
	}
	if hadSession {
		s.logger.Info().Msg("Session ended")
	}
	s.notify(EventLoggedOut)
	return nil
}

// load resolves the persisted state. Callers hold the write lock.
func (s *Store) load(ctx context.Context) *Session {
	raw, err := s.storage.Get(ctx, KeyAuthRecord)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		return s.migrateLegacy(ctx)
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to read session record, treating as logged out")
		s.notify(EventUnauthenticated)
		return nil
	}

	result := DecodeRecord(raw, s.has(ctx, KeyToken) && s.has(ctx, KeyRole))
	if !result.OK() {
		s.logger.Warn().Err(result.Err).Msg("Discarding corrupt session record")
		if purgeErr := s.purge(ctx); purgeErr != nil {
			s.logger.Error().Err(purgeErr).Msg("Failed to purge corrupt session")
		}
		s.notify(EventPurged)
		return nil
	}

	if result.Schema < SchemaCurrent {
		if err := s.persist(ctx, *result.Session); err != nil {
			s.logger.Warn().Err(err).Int("schema", result.Schema).Msg("Failed to upgrade session record")
		} else {
			s.logger.Info().Int("from_schema", result.Schema).Msg("Upgraded session record")
			s.notify(EventUpgraded)
		}
	}
	s.notify(EventRestored)
	return result.Session
}

func (s *Store) migrateLegacy(ctx context.Context) *Session {
	values := make(map[string]string, len(legacyKeys))
	for _, key := range legacyKeys {
		v, err := s.storage.Get(ctx, key)
		switch {
		case err == nil:
			values[key] = v
		case !errors.Is(err, ErrKeyNotFound):
			s.logger.Error().Err(err).Str("key", key).Msg("Failed to read legacy session key")
			s.notify(EventUnauthenticated)
			return nil
		}
	}

	result := DecodeLegacy(values)
	if !result.OK() {
		if !errors.Is(result.Err, ErrNoRecord) {
			s.logger.Debug().Err(result.Err).Msg("Legacy session data insufficient")
		}
		s.notify(EventUnauthenticated)
		return nil
	}

	if err := s.persist(ctx, *result.Session); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to migrate legacy session, will retry on next start")
	} else {
		s.logger.Info().Msg("Migrated legacy session to structured record")
	}
	s.notify(EventMigrated)
	return result.Session
}

// persist writes the primary record, then the token and role markers and the
// legacy mirror (or removes stale legacy keys), then clears the pending email marker.
func (s *Store) persist(ctx context.Context, sess Session) error {
	raw, err := EncodeRecord(sess)
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, KeyAuthRecord, raw); err != nil {
		return errors.Wrap(err, "write "+KeyAuthRecord)
	}

	var errs []error
	for key, value := range legacyValues(sess) {
		if (s.mirrorLegacy || isMarker(key)) && value != "" {
			if err := s.storage.Set(ctx, key, value); err != nil {
				errs = append(errs, errors.Wrap(err, "write "+key))
			}
			continue
		}
		if err := s.storage.Remove(ctx, key); err != nil {
			errs = append(errs, errors.Wrap(err, "remove "+key))
		}
	}
	if err := s.storage.Remove(ctx, KeyPendingEmail); err != nil {
		errs = append(errs, errors.Wrap(err, "remove "+KeyPendingEmail))
	}
	return apperrors.Join(errs...)
}

func (s *Store) purge(ctx context.Context) error {
	var errs []error
	for _, key := range OwnedKeys() {
		if err := s.storage.Remove(ctx, key); err != nil {
			errs = append(errs, errors.Wrap(err, "remove "+key))
		}
	}
	return apperrors.Join(errs...)
}

func (s *Store) has(ctx context.Context, key string) bool {
	v, err := s.storage.Get(ctx, key)
	return err == nil && utils.NilIfBlank(v) != nil
}

func isMarker(key string) bool {
	return key == KeyToken || key == KeyRole
}

func (s *Store) markInitialized() {
	if !s.initialized {
		s.initialized = true
		close(s.ready)
	}
}

func (s *Store) cloneCurrent() *Session {
	if s.current == nil {
		return nil
	}
	return s.current.Clone()
}

func (s *Store) notify(event Event) {
	for _, observer := range s.observers {
		observer(event)
	}
}
