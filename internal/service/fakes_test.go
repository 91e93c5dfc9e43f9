package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/surdiana/authd/internal/errors"
	"github.com/surdiana/authd/internal/model"
	"github.com/surdiana/authd/pkg/events"
)

// memoryKV is an in-memory stand-in for one store namespace. TTLs are honored
// against the injected clock so expiry behavior is testable without sleeping.
type memoryKV struct {
	mu      sync.Mutex
	values  map[string]string
	expires map[string]time.Time
	now     func() time.Time

	failing bool
}

func newMemoryKV() *memoryKV {
	return &memoryKV{
		values:  make(map[string]string),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return "", false, apperrors.ErrStoreUnavailable
	}
	value, ok := m.values[key]
	if !ok {
		return "", false, nil
	}
	if deadline, has := m.expires[key]; has && !m.now().Before(deadline) {
		delete(m.values, key)
		delete(m.expires, key)
		return "", false, nil
	}
	return value, true, nil
}

func (m *memoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return apperrors.ErrStoreUnavailable
	}
	m.values[key] = value
	if ttl > 0 {
		m.expires[key] = m.now().Add(ttl)
	}
	return nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	delete(m.expires, key)
	return nil
}

type fakeUserStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*model.User
	byLogin map[string]*model.User
	updates []map[string]interface{}

	createErr error
}

func newFakeUserStore(users ...*model.User) *fakeUserStore {
	s := &fakeUserStore{
		byID:    make(map[uuid.UUID]*model.User),
		byLogin: make(map[string]*model.User),
	}
	for _, u := range users {
		s.byID[u.ID] = u
		s.byLogin[u.Login] = u
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.byLogin[user.Login]; exists {
		return apperrors.ErrConflict
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.byID[user.ID] = user
	s.byLogin[user.Login] = user
	return nil
}

func (s *fakeUserStore) GetByLogin(_ context.Context, login string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byLogin[login]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return user, nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return user, nil
}

func (s *fakeUserStore) UpdateFields(_ context.Context, id uuid.UUID, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	s.updates = append(s.updates, fields)
	if v, ok := fields["login"].(string); ok {
		delete(s.byLogin, user.Login)
		user.Login = v
		s.byLogin[v] = user
	}
	if v, ok := fields["password"].(string); ok {
		user.Password = v
	}
	if v, ok := fields["totp_secret"].(string); ok {
		user.TotpSecret = v
	}
	if v, ok := fields["totp_active"].(bool); ok {
		user.TotpActive = v
	}
	if v, ok := fields["totp_sync"].(bool); ok {
		user.TotpSync = v
	}
	return nil
}

func (s *fakeUserStore) AttachRoles(_ context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	for _, id := range roleIDs {
		user.Roles = append(user.Roles, model.Role{ID: id, Role: id.String()})
	}
	return nil
}

func (s *fakeUserStore) DetachRoles(_ context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	remove := make(map[uuid.UUID]bool, len(roleIDs))
	for _, id := range roleIDs {
		remove[id] = true
	}
	kept := user.Roles[:0]
	for _, role := range user.Roles {
		if !remove[role.ID] {
			kept = append(kept, role)
		}
	}
	user.Roles = kept
	return nil
}

func (s *fakeUserStore) RoleNames(_ context.Context, userID uuid.UUID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	names := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		names = append(names, role.Role)
	}
	return names, nil
}

type fakeHistoryStore struct {
	mu         sync.Mutex
	entries    []*model.LoginHistory
	totpFailed []string
}

func (s *fakeHistoryStore) Create(_ context.Context, entry *model.LoginHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeHistoryStore) Page(_ context.Context, _ uuid.UUID, _, _, _ int, _ time.Month) ([]model.LoginHistory, error) {
	return nil, nil
}

func (s *fakeHistoryStore) MarkTotpFailed(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totpFailed = append(s.totpFailed, requestID)
	return nil
}

type fakeSocialStore struct {
	mu       sync.Mutex
	accounts map[string]*model.SocialAccount
}

func newFakeSocialStore() *fakeSocialStore {
	return &fakeSocialStore{accounts: make(map[string]*model.SocialAccount)}
}

func pairKey(service, socialID string) string {
	return service + "/" + socialID
}

func (s *fakeSocialStore) Create(_ context.Context, account *model.SocialAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(account.SocialService, account.SocialID)
	if _, exists := s.accounts[key]; exists {
		return apperrors.ErrConflict
	}
	s.accounts[key] = account
	return nil
}

func (s *fakeSocialStore) GetByPair(_ context.Context, service, socialID string) (*model.SocialAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[pairKey(service, socialID)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return account, nil
}

func (s *fakeSocialStore) DeleteByUserAndService(_ context.Context, userID uuid.UUID, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, account := range s.accounts {
		if account.UserID == userID && account.SocialService == service {
			delete(s.accounts, key)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.UserRegisteredEvent
	err    error
}

func (p *fakePublisher) PublishUserRegistered(_ context.Context, event events.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}
