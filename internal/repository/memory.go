package repository

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ajharbinger/pacman-arcade/internal/models"
)

// MemoryStore is an in-process store used by tests and the memory store driver
type MemoryStore struct {
	mu     sync.RWMutex
	scores map[uuid.UUID]models.ScoreRecord
	users  map[uuid.UUID]models.User

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex

	// failWith, when set, is returned by every operation
	failWith error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scores: make(map[uuid.UUID]models.ScoreRecord),
		users:  make(map[uuid.UUID]models.User),
		locks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

// NewMemoryRepositories creates a repository collection backed by store
func NewMemoryRepositories(store *MemoryStore) *Repositories {
	return &Repositories{
		Score:  memoryScores{store},
		User:   memoryUsers{store},
		Tx:     store,
		Health: store,
	}
}

func (s *MemoryStore) fail() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failWith
}

// SetFailure makes every subsequent operation return err; nil clears it
func (s *MemoryStore) SetFailure(err error) {
	s.mu.Lock()
	s.failWith = err
	s.mu.Unlock()
}

func (s *MemoryStore) playerLock(playerID uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[playerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[playerID] = l
	}
	return l
}

// WithPlayerLock serializes units of work per player
func (s *MemoryStore) WithPlayerLock(ctx context.Context, playerID uuid.UUID, fn func(repos *Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.playerLock(playerID)
	l.Lock()
	defer l.Unlock()

	if err := fn(NewMemoryRepositories(s)); err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// HealthCheckContext reports the configured failure, if any
func (s *MemoryStore) HealthCheckContext(ctx context.Context) error {
	return s.fail()
}

type memoryScores struct {
	s *MemoryStore
}

func (m memoryScores) Get(ctx context.Context, playerID uuid.UUID) (*models.ScoreRecord, error) {
	if err := m.s.fail(); err != nil {
		return nil, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	record, ok := m.s.scores[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (m memoryScores) Upsert(ctx context.Context, playerID uuid.UUID, score int64) error {
	if err := m.s.fail(); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	m.s.scores[playerID] = models.ScoreRecord{
		PlayerID:  playerID,
		Score:     score,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (m memoryScores) Top(ctx context.Context, n int) ([]models.ScoreRecord, error) {
	if err := m.s.fail(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return []models.ScoreRecord{}, nil
	}

	m.s.mu.RLock()
	records := make([]models.ScoreRecord, 0, len(m.s.scores))
	for _, r := range m.s.scores {
		records = append(records, r)
	}
	m.s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		return bytes.Compare(records[i].PlayerID[:], records[j].PlayerID[:]) < 0
	})

	if len(records) > n {
		records = records[:n]
	}
	return records, nil
}

type memoryUsers struct {
	s *MemoryStore
}

func (m memoryUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if err := m.s.fail(); err != nil {
		return nil, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	user, ok := m.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m memoryUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := m.s.fail(); err != nil {
		return nil, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	for _, user := range m.s.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m memoryUsers) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	if err := m.s.fail(); err != nil {
		return nil, err
	}
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	users := make(map[uuid.UUID]*models.User, len(ids))
	for _, id := range ids {
		if user, ok := m.s.users[id]; ok {
			u := user
			users[id] = &u
		}
	}
	return users, nil
}

func (m memoryUsers) Create(ctx context.Context, user *models.User) error {
	if err := m.s.fail(); err != nil {
		return err
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, existing := range m.s.users {
		if existing.Username == user.Username {
			return fmt.Errorf("user %s: %w", user.Username, ErrConflict)
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.s.users[user.ID] = *user
	return nil
}
