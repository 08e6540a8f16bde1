package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mjholt/tavern/internal/game/encounter"
)

// Store is the persistence collaborator the Manager writes through.
// Implementations live in internal/storage.
type Store interface {
	// LoadSession returns the session document for channelID, or ok=false
	// when none exists yet.
	LoadSession(ctx context.Context, channelID string) (*Session, bool, error)
	// SaveSession persists the full session document. Saves are
	// idempotent; a failed save is retried by re-saving, never compensated.
	SaveSession(ctx context.Context, channelID string, s *Session) error
	// LoadEncounter returns the encounter document, or ok=false when absent.
	LoadEncounter(ctx context.Context, campaignName, encounterID string) (*encounter.Encounter, bool, error)
	// SaveEncounter persists the encounter, normalized by the caller.
	SaveEncounter(ctx context.Context, campaignName string, enc *encounter.Encounter) error
}

// Manager serializes all access to channel sessions. It keeps one
// exclusive lock per channel identity: events on the same channel run
// strictly in arrival order at the lock, while different channels
// proceed fully in parallel.
type Manager struct {
	store  Store
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	cache map[string]*Session
}

// NewManager creates a Manager persisting through store.
//
// Precondition: store and logger must be non-nil.
func NewManager(store Store, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
		cache:  make(map[string]*Session),
	}
}

// Store exposes the persistence collaborator for handlers that also
// load and save encounter documents inside a With callback.
func (m *Manager) Store() Store { return m.store }

// With runs fn with exclusive ownership of channelID's session. The
// lock is held for the whole operation — including any enemy-phase
// cascade fn triggers — and released only after the session is saved.
//
// A fn error skips the save: engine operations validate before mutating,
// so an error implies the session is unchanged. A save error is returned
// but leaves the in-memory session intact; the next With re-saves it.
func (m *Manager) With(ctx context.Context, channelID string, fn func(*Session) error) error {
	lock := m.lockFor(channelID)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.load(ctx, channelID)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	if err := m.store.SaveSession(ctx, channelID, s); err != nil {
		m.logger.Error("session save failed, state retained in memory",
			zap.String("channel_id", channelID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// lockFor returns the lock for channelID, creating it on first use.
func (m *Manager) lockFor(channelID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[channelID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[channelID] = lock
	}
	return lock
}

// load returns the cached session, falling back to the store and then
// to a fresh empty session. Caller must hold the channel lock.
func (m *Manager) load(ctx context.Context, channelID string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.cache[channelID]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	s, found, err := m.store.LoadSession(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !found {
		s = New(channelID)
	} else {
		s.ChannelID = channelID
		s.normalize()
	}

	m.mu.Lock()
	m.cache[channelID] = s
	m.mu.Unlock()
	return s, nil
}
