package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"solver/internal/sentinel"
	"solver/internal/session/models"
	"solver/pkg/domain"
)

// Preference keys. The full session registry round-trips through one
// serialized blob; the current pointer and environment preference are
// tracked separately so either can change without rewriting the list.
const (
	sessionsKey     = "solver.sessions"
	currentKey      = "solver.current_session_id"
	environmentKey  = "solver.preferred_environment"
	snapshotBufSize = 8
)

// Snapshot is a point-in-time, caller-owned view of the registry.
type Snapshot struct {
	Sessions     []models.Session
	CurrentID    domain.SessionID
	PreferredEnv domain.Environment
	HasCurrent   bool
}

// Store is the durable, observable registry of sessions on this device.
// It owns all persisted identity state: readers get either a live
// subscription or a snapshot, never a reference to internal state.
//
// Mutations are read-modify-write against the preference backend under one
// lock; the design assumes a single process and a single active writer.
type Store struct {
	mu           sync.RWMutex
	prefs        Prefs
	logger       *slog.Logger
	sessions     []models.Session
	currentID    domain.SessionID
	hasCurrent   bool
	preferredEnv domain.Environment

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int

	onChange func(sessionCount int)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for corruption warnings and persist errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithChangeHook installs a callback invoked with the session count after
// every mutation. Used to keep gauges current without coupling the store to
// a metrics registry.
func WithChangeHook(hook func(sessionCount int)) Option {
	return func(s *Store) { s.onChange = hook }
}

// New loads the persisted registry through the given preference backend.
// Malformed persisted data is treated as an empty registry - the store
// fails open to "no sessions", never to the caller.
func New(ctx context.Context, prefs Prefs, opts ...Option) (*Store, error) {
	s := &Store{
		prefs: prefs,
		subs:  make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSession allocates a new session, appends it to the registry, and
// makes it current. Multiple sessions for the same provider/environment are
// allowed: there is no uniqueness constraint across accounts.
func (s *Store) CreateSession(ctx context.Context, provider domain.Provider, env domain.Environment, creds models.CredentialSet) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := models.Session{
		ID:          domain.NewSessionID(),
		Provider:    provider,
		Environment: env,
		Credentials: creds,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	s.sessions = append(s.sessions, session)
	s.currentID = session.ID
	s.hasCurrent = true

	if err := s.persist(ctx); err != nil {
		return models.Session{}, err
	}
	s.notify()
	return session, nil
}

// UpdateSession replaces the stored record matching the session's
// identifier. Unknown identifiers are a no-op, not an error.
func (s *Store) UpdateSession(ctx context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.sessions {
		if s.sessions[i].ID == session.ID {
			s.sessions[i] = session
			replaced = true
			break
		}
	}
	if !replaced {
		return nil
	}
	if err := s.persist(ctx); err != nil {
		return err
	}
	s.notify()
	return nil
}

// RemoveSession deletes the record. If it was current, current becomes the
// first remaining session in registry order, or none.
func (s *Store) RemoveSession(ctx context.Context, id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.sessions[:0]
	removed := false
	for _, session := range s.sessions {
		if session.ID == id {
			removed = true
			continue
		}
		kept = append(kept, session)
	}
	if !removed {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	s.sessions = kept

	if s.hasCurrent && s.currentID == id {
		if len(s.sessions) > 0 {
			s.currentID = s.sessions[0].ID
		} else {
			s.currentID = domain.SessionID{}
			s.hasCurrent = false
		}
	}

	if err := s.persist(ctx); err != nil {
		return err
	}
	s.notify()
	return nil
}

// SwitchToSession reassigns the current pointer. Existence is not
// validated; callers are expected to pass an identifier from the registry.
func (s *Store) SwitchToSession(ctx context.Context, id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentID = id
	s.hasCurrent = true
	if err := s.persist(ctx); err != nil {
		return err
	}
	s.notify()
	return nil
}

// CurrentSession returns the session matching the current pointer.
func (s *Store) CurrentSession() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasCurrent {
		return models.Session{}, false
	}
	for _, session := range s.sessions {
		if session.ID == s.currentID {
			return session, true
		}
	}
	return models.Session{}, false
}

// AllSessions returns a copy of the registry in insertion order.
func (s *Store) AllSessions() []models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// ClearAllSessions empties the registry and clears the current pointer.
// Used on explicit global sign-out and on environment-brand switch.
func (s *Store) ClearAllSessions(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	s.currentID = domain.SessionID{}
	s.hasCurrent = false
	if err := s.persist(ctx); err != nil {
		return err
	}
	s.notify()
	return nil
}

// PreferredEnvironment is the environment a not-yet-authenticated user
// would sign into next. It is independent of any particular session.
func (s *Store) PreferredEnvironment() domain.Environment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preferredEnv
}

// SetPreferredEnvironment records the environment preference.
func (s *Store) SetPreferredEnvironment(ctx context.Context, env domain.Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.preferredEnv = env
	if err := s.prefs.Set(ctx, environmentKey, string(env)); err != nil {
		return fmt.Errorf("persist environment preference: %w", err)
	}
	s.notify()
	return nil
}

// Subscribe returns a channel of registry snapshots and a cancel function.
// Deliveries are best-effort: a slow subscriber loses intermediate
// snapshots rather than blocking mutations.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, snapshotBufSize)
	s.subs[id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

// persistedState is the wire schema for the serialized registry blob.
type persistedState struct {
	Sessions []models.Session `json:"sessions"`
}

func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(persistedState{Sessions: s.sessions})
	if err != nil {
		return fmt.Errorf("encode session registry: %w", err)
	}
	if err := s.prefs.Set(ctx, sessionsKey, string(data)); err != nil {
		return fmt.Errorf("persist session registry: %w", err)
	}
	current := ""
	if s.hasCurrent {
		current = s.currentID.String()
	}
	if err := s.prefs.Set(ctx, currentKey, current); err != nil {
		return fmt.Errorf("persist current session pointer: %w", err)
	}
	if s.onChange != nil {
		s.onChange(len(s.sessions))
	}
	return nil
}

func (s *Store) load(ctx context.Context) error {
	raw, ok, err := s.prefs.Get(ctx, sessionsKey)
	if err != nil {
		return fmt.Errorf("read session registry: %w", err)
	}
	if ok && raw != "" {
		var state persistedState
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			// Corrupt persisted data reads as empty. Losing stored accounts
			// beats refusing to start.
			s.logger.Warn("persisted session registry is malformed, starting empty", "error", err)
			state = persistedState{}
		}
		s.sessions = state.Sessions
	}

	if raw, ok, err = s.prefs.Get(ctx, currentKey); err != nil {
		return fmt.Errorf("read current session pointer: %w", err)
	} else if ok && raw != "" {
		if id, err := domain.ParseSessionID(raw); err != nil {
			s.logger.Warn("persisted current session pointer is malformed, clearing", "error", err)
		} else {
			s.currentID = id
			s.hasCurrent = true
		}
	}

	if raw, ok, err = s.prefs.Get(ctx, environmentKey); err != nil {
		return fmt.Errorf("read environment preference: %w", err)
	} else if ok {
		env := domain.Environment(raw)
		if env.Valid() {
			s.preferredEnv = env
		}
	}

	if s.onChange != nil {
		s.onChange(len(s.sessions))
	}
	return nil
}

func (s *Store) snapshotLocked() Snapshot {
	sessions := make([]models.Session, len(s.sessions))
	copy(sessions, s.sessions)
	return Snapshot{
		Sessions:     sessions,
		CurrentID:    s.currentID,
		PreferredEnv: s.preferredEnv,
		HasCurrent:   s.hasCurrent,
	}
}

func (s *Store) notify() {
	snap := s.snapshotLocked()
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
