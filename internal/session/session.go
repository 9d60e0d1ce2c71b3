// package session owns the authenticated principal: a single in-memory record
// backed by durable client-local storage, with expiry-aware token access.
//
// The record is all-or-nothing: either fully populated (authenticated) or the
// zero value (anonymous). All mutation paths persist first and then publish
// [events.EventSessionChange], so subscribers always observe a consistent
// post-write snapshot.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wavecast/wavecast/internal/events"
	"github.com/wavecast/wavecast/internal/shared"
)

// GraceWindow is the forward margin applied to expiry checks. A token within
// two minutes of expiry is treated as already expired so requests started
// just before the boundary are not sent with a token that dies mid-flight.
const GraceWindow = 2 * time.Minute

// Role is the principal's role on the platform.
type Role string

const (
	RoleUser     Role = "user"
	RoleStreamer Role = "streamer"
)

// rolePaths is the per-role navigation allow-list checked by [Store.Authorized].
var rolePaths = map[Role][]string{
	RoleUser:     {"/feed", "/watch", "/subscriptions", "/notifications", "/settings"},
	RoleStreamer: {"/feed", "/watch", "/subscriptions", "/notifications", "/settings", "/studio"},
}

// Record is the in-memory session record for the authenticated principal.
type Record struct {
	ID          string
	Email       string
	Username    string
	DisplayName string
	AvatarRef   string
	Role        Role
	Token       string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// projection is the durable JSON shape written to storage. Timestamps are
// serialized as RFC 3339 strings.
type projection struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	AvatarFileName string `json:"avatar_file_name"`
	RoleType       string `json:"role_type"`
	Token          string `json:"token"`
	ExpirationTime string `json:"expiration_time"`
	CreatedAt      string `json:"createdAt,omitempty"`
}

// Store is the single source of truth for "who is logged in". Construct one
// at process start and inject it into consumers.
type Store struct {
	mu      sync.Mutex
	rec     Record
	storage Storage
	bus     *events.Bus
	logger  *log.Logger
	now     func() time.Time
}

// StoreOpts contains dependencies for creating a Store.
type StoreOpts struct {
	Storage Storage
	Bus     *events.Bus
	Logger  *log.Logger
	Now     func() time.Time // defaults to time.Now
}

// NewStore creates a Store, rehydrates any persisted session (discarding it if
// expired under the grace window), and subscribes to unauthorized signals so
// the store self-heals to anonymous when the backend rejects a token.
func NewStore(opts StoreOpts) *Store {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		storage: opts.Storage,
		bus:     opts.Bus,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	s.load()

	if s.bus != nil {
		s.bus.Subscribe(events.EventUnauthorized, func(any) {
			s.logger.Warn("backend rejected token, clearing session")
			s.Invalidate()
		})
	}

	return s
}

// load rehydrates the in-memory record from storage, applying the same grace
// window check as Token. Malformed or expired entries are cleared.
func (s *Store) load() {
	data, err := s.storage.Read()
	if err != nil {
		if !errors.Is(err, ErrNoRecord) {
			s.logger.Warnf("failed to read stored session: %v", err)
		}
		return
	}

	var p projection
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warnf("discarding malformed stored session: %v", err)
		s.storage.Clear()
		return
	}

	expiresAt, err := time.Parse(time.RFC3339, p.ExpirationTime)
	if err != nil {
		s.logger.Warnf("discarding stored session with bad expiration_time: %v", err)
		s.storage.Clear()
		return
	}

	if !expiresAt.After(s.now().Add(GraceWindow)) {
		s.logger.Info("stored session expired, clearing")
		s.storage.Clear()
		return
	}

	rec := Record{
		ID:          p.ID,
		Email:       p.Email,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		AvatarRef:   p.AvatarFileName,
		Role:        Role(p.RoleType),
		Token:       p.Token,
		ExpiresAt:   expiresAt,
	}
	if p.CreatedAt != "" {
		if createdAt, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
			rec.CreatedAt = createdAt
		}
	}
	s.rec = rec
}

// Authenticate installs the record produced by a successful authentication
// exchange, persists its projection, and publishes a change event. Credential
// and network failures are resolved by the REST layer before this is called.
func (s *Store) Authenticate(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: missing id", shared.ErrInvalidSession)
	}
	if _, ok := rolePaths[rec.Role]; !ok {
		return fmt.Errorf("%w: unknown role %q", shared.ErrInvalidSession, rec.Role)
	}

	s.mu.Lock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.rec = rec
	err := s.persistLocked()
	snapshot := s.rec
	s.mu.Unlock()

	if err != nil {
		return err
	}

	s.publish(events.EventSessionChange, snapshot)
	s.publish(events.EventLogin, snapshot)
	return nil
}

// Token returns the current bearer token if it is still valid past the grace
// window. An expired token triggers the expiry path: the session is cleared,
// storage is wiped, a change event fires, and ErrTokenExpired is returned.
func (s *Store) Token() (string, error) {
	s.mu.Lock()

	if s.rec.ID == "" {
		s.mu.Unlock()
		return "", shared.ErrNotAuthenticated
	}

	if s.rec.ExpiresAt.After(s.now().Add(GraceWindow)) {
		token := s.rec.Token
		s.mu.Unlock()
		return token, nil
	}

	s.rec = Record{}
	s.storage.Clear()
	s.mu.Unlock()

	s.logger.Info("session token expired")
	s.publish(events.EventSessionChange, Record{})
	return "", shared.ErrTokenExpired
}

// Invalidate unconditionally clears the in-memory record and durable storage.
// Used for explicit logout and for externally signaled unauthorized responses.
func (s *Store) Invalidate() {
	s.mu.Lock()
	wasAuthenticated := s.rec.ID != ""
	s.rec = Record{}
	s.storage.Clear()
	s.mu.Unlock()

	s.publish(events.EventSessionChange, Record{})
	if wasAuthenticated {
		s.publish(events.EventLogout, nil)
	}
}

// UpdateProfile shallow-merges the provided fields into the record, preserving
// everything else. Nil fields are left untouched.
func (s *Store) UpdateProfile(displayName, avatarRef *string) error {
	s.mu.Lock()

	if s.rec.ID == "" {
		s.mu.Unlock()
		return shared.ErrNotAuthenticated
	}

	if displayName != nil {
		s.rec.DisplayName = *displayName
	}
	if avatarRef != nil {
		s.rec.AvatarRef = *avatarRef
	}
	err := s.persistLocked()
	snapshot := s.rec
	s.mu.Unlock()

	if err != nil {
		return err
	}

	s.publish(events.EventSessionChange, snapshot)
	return nil
}

// Current returns a snapshot copy of the record. The zero Record means anonymous.
func (s *Store) Current() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

// IsAuthenticated reports whether durable storage currently holds a session
// entry. This is a cheap presence check only; expiry is resolved lazily by
// Token at the moment a token is actually needed.
func (s *Store) IsAuthenticated() bool {
	return s.storage.Present()
}

// Authorized reports whether the current role's allow-list contains a prefix
// of path. An anonymous or unknown role is never authorized.
func (s *Store) Authorized(path string) bool {
	s.mu.Lock()
	role := s.rec.Role
	s.mu.Unlock()

	for _, prefix := range rolePaths[role] {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// persistLocked serializes the current record to storage. Callers hold s.mu.
func (s *Store) persistLocked() error {
	p := projection{
		ID:             s.rec.ID,
		Email:          s.rec.Email,
		Username:       s.rec.Username,
		DisplayName:    s.rec.DisplayName,
		AvatarFileName: s.rec.AvatarRef,
		RoleType:       string(s.rec.Role),
		Token:          s.rec.Token,
		ExpirationTime: s.rec.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if !s.rec.CreatedAt.IsZero() {
		p.CreatedAt = s.rec.CreatedAt.UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := s.storage.Write(data); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func (s *Store) publish(event events.Event, payload any) {
	if s.bus != nil {
		s.bus.Publish(event, payload)
	}
}
