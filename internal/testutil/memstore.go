package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sharebox/internal/db"
	"sharebox/internal/models"
)

// MemStore is an in-memory stand-in for *db.DB. It reports misses and
// duplicate links with the db package sentinels.
type MemStore struct {
	mu      sync.Mutex
	shares  map[uuid.UUID]*models.Share
	links   map[string]uuid.UUID
	retired map[string]bool
	files   map[uuid.UUID][]models.File
	users   map[uuid.UUID]*models.User
	fail    map[string]error
	seq     int

	// Clock stamps created_at and uploaded_at. Defaults to time.Now.
	Clock func() time.Time
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		shares:  make(map[uuid.UUID]*models.Share),
		links:   make(map[string]uuid.UUID),
		retired: make(map[string]bool),
		files:   make(map[uuid.UUID][]models.File),
		users:   make(map[uuid.UUID]*models.User),
		fail:    make(map[string]error),
	}
}

// FailOn makes every later call to the named method return err. A nil err
// clears the failure.
func (m *MemStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, method)
		return
	}
	m.fail[method] = err
}

func (m *MemStore) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now()
}

// ShareCount returns the number of stored shares.
func (m *MemStore) ShareCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shares)
}

// AddUser stores a user directly, assigning an ID if needed.
func (m *MemStore) AddUser(u *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	m.users[u.ID] = &cp
	return u
}

func (m *MemStore) LinkExists(ctx context.Context, link string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["LinkExists"]; err != nil {
		return false, err
	}
	_, ok := m.links[link]
	return ok || m.retired[link], nil
}

func (m *MemStore) CreateShare(ctx context.Context, share *models.Share) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["CreateShare"]; err != nil {
		return err
	}
	if _, ok := m.links[share.Link]; ok || m.retired[share.Link] {
		return db.ErrDuplicateLink
	}
	share.ID = uuid.New()
	share.CreatedAt = m.now()
	cp := *share
	m.shares[share.ID] = &cp
	m.links[share.Link] = share.ID
	return nil
}

func (m *MemStore) GetShareByLink(ctx context.Context, link string) (*models.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["GetShareByLink"]; err != nil {
		return nil, err
	}
	id, ok := m.links[link]
	if !ok {
		return nil, db.ErrShareNotFound
	}
	cp := *m.shares[id]
	return &cp, nil
}

func (m *MemStore) GetShareByID(ctx context.Context, id uuid.UUID) (*models.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["GetShareByID"]; err != nil {
		return nil, err
	}
	s, ok := m.shares[id]
	if !ok {
		return nil, db.ErrShareNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemStore) ListSharesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Share
	for _, s := range m.shares {
		if s.OwnerID != nil && *s.OwnerID == ownerID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemStore) ListExpiredShares(ctx context.Context, now time.Time, limit int) ([]models.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["ListExpiredShares"]; err != nil {
		return nil, err
	}
	var out []models.Share
	for _, s := range m.shares {
		if s.ExpiresAt.Before(now) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) UpdateShareExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shares[id]
	if !ok || expiresAt.Before(s.ExpiresAt) {
		return db.ErrShareNotFound
	}
	s.ExpiresAt = expiresAt
	return nil
}

func (m *MemStore) IncrementFileCount(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["IncrementFileCount"]; err != nil {
		return err
	}
	s, ok := m.shares[id]
	if !ok {
		return db.ErrShareNotFound
	}
	s.FileCount++
	return nil
}

func (m *MemStore) DeleteShare(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["DeleteShare"]; err != nil {
		return err
	}
	s, ok := m.shares[id]
	if !ok {
		return db.ErrShareNotFound
	}
	m.remove(s)
	return nil
}

func (m *MemStore) DeleteExpiredShare(ctx context.Context, id uuid.UUID, cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["DeleteShare"]; err != nil {
		return err
	}
	s, ok := m.shares[id]
	if !ok || !s.ExpiresAt.Before(cutoff) {
		return db.ErrShareNotFound
	}
	m.remove(s)
	return nil
}

func (m *MemStore) remove(s *models.Share) {
	delete(m.links, s.Link)
	m.retired[s.Link] = true
	delete(m.shares, s.ID)
	delete(m.files, s.ID)
}

func (m *MemStore) CreateFile(ctx context.Context, file *models.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["CreateFile"]; err != nil {
		return err
	}
	if _, ok := m.shares[file.ShareID]; !ok {
		return db.ErrShareNotFound
	}
	file.ID = uuid.New()
	// Keep upload order stable even when the clock doesn't move.
	m.seq++
	file.UploadedAt = m.now().Add(time.Duration(m.seq) * time.Microsecond)
	m.files[file.ShareID] = append(m.files[file.ShareID], *file)
	return nil
}

func (m *MemStore) GetFile(ctx context.Context, shareID, fileID uuid.UUID) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files[shareID] {
		if f.ID == fileID {
			cp := f
			return &cp, nil
		}
	}
	return nil, db.ErrFileNotFound
}

func (m *MemStore) ListFiles(ctx context.Context, shareID uuid.UUID) ([]models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["ListFiles"]; err != nil {
		return nil, err
	}
	return append([]models.File(nil), m.files[shareID]...), nil
}

func (m *MemStore) GetShareStats(ctx context.Context, now time.Time) (*models.ShareStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &models.ShareStats{}
	for id, s := range m.shares {
		if s.ExpiresAt.Before(now) {
			stats.Expired++
		} else {
			stats.Active++
		}
		for _, f := range m.files[id] {
			stats.Files++
			stats.Bytes += f.Size
		}
	}
	return stats, nil
}

func (m *MemStore) UpsertUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Sub == user.Sub {
			u.Email, u.Name, u.Picture = user.Email, user.Name, user.Picture
			u.UpdatedAt = m.now()
			*user = *u
			return nil
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = m.now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MemStore) GetUserBySub(ctx context.Context, sub string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["GetUserBySub"]; err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.Sub == sub {
			cp := *u
			return &cp, nil
		}
	}
	return nil, db.ErrUserNotFound
}

func (m *MemStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["GetUserByID"]; err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}
