package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"saas_backend/internal/models"
	"saas_backend/internal/storage"
)

// * Storage потокобезопасное хранилище в памяти для тестов и локального запуска.
// * Транзакции работают на копии состояния, которая подменяет исходное только при успехе.
type Storage struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time

	cooldowns     map[string]time.Time
	installations map[int64]models.Installation
	categories    map[int64]models.Category
	products      map[int64]models.Product
	catalogSeq    int64
}

type state struct {
	seq       int64
	companies map[int64]models.Company
	users     map[int64]models.User
	invites   map[string]models.Invite
	refresh   map[string]models.RefreshToken
}

func New() *Storage {
	return &Storage{
		st: &state{
			companies: make(map[int64]models.Company),
			users:     make(map[int64]models.User),
			invites:   make(map[string]models.Invite),
			refresh:   make(map[string]models.RefreshToken),
		},
		now:           time.Now,
		cooldowns:     make(map[string]time.Time),
		installations: make(map[int64]models.Installation),
		categories:    make(map[int64]models.Category),
		products:      make(map[int64]models.Product),
	}
}

func (s *state) clone() *state {
	return &state{
		seq:       s.seq,
		companies: maps.Clone(s.companies),
		users:     maps.Clone(s.users),
		invites:   maps.Clone(s.invites),
		refresh:   maps.Clone(s.refresh),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// * InTx выполняет fn над копией состояния. Ошибка или паника отбрасывают изменения.
func (s *Storage) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.st.clone()

	if err := fn(&tx{st: draft, now: s.now}); err != nil {
		return err
	}

	s.st = draft

	return nil
}

type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) CreateCompany(_ context.Context, name, slug string) (models.Company, error) {
	for _, c := range t.st.companies {
		if c.Slug == slug {
			return models.Company{}, storage.ErrCompanyExists
		}
	}

	now := t.now()
	c := models.Company{
		ID:        t.st.nextID(),
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.st.companies[c.ID] = c

	return c, nil
}

func (t *tx) SaveUser(_ context.Context, u models.User) (int64, error) {
	if _, ok := t.st.companies[u.CompanyID]; !ok {
		return 0, storage.ErrCompanyNotFound
	}

	for _, existing := range t.st.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return 0, storage.ErrUserExists
		}
	}

	u.ID = t.st.nextID()
	u.CreatedAt = t.now()
	t.st.users[u.ID] = u

	return u.ID, nil
}

func (t *tx) UserByEmail(_ context.Context, email string) (models.User, error) {
	return userByEmail(t.st, email)
}

func (t *tx) InviteForUpdate(_ context.Context, code string) (models.Invite, error) {
	inv, ok := t.st.invites[code]
	if !ok {
		return models.Invite{}, storage.ErrInviteNotFound
	}

	return inv, nil
}

func (t *tx) MarkInviteUsed(_ context.Context, id int64) (bool, error) {
	for code, inv := range t.st.invites {
		if inv.ID != id {
			continue
		}
		if inv.IsUsed {
			return false, nil
		}

		inv.IsUsed = true
		t.st.invites[code] = inv

		return true, nil
	}

	return false, storage.ErrInviteNotFound
}

func userByEmail(st *state, email string) (models.User, error) {
	for _, u := range st.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

func (s *Storage) UserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return userByEmail(s.st, email)
}

func (s *Storage) UserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.st.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, nil
}

func (s *Storage) UsersByCompany(_ context.Context, companyID int64) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0)
	for _, u := range s.st.users {
		if u.CompanyID == companyID {
			users = append(users, u)
		}
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	return users, nil
}

func (s *Storage) SetEmailVerified(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.st.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	if u.EmailVerified {
		return storage.ErrEmailAlreadyVerified
	}

	u.EmailVerified = true
	s.st.users[id] = u

	return nil
}

func (s *Storage) UpdatePassword(_ context.Context, id int64, passHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.st.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.PassHash = passHash
	s.st.users[id] = u

	return nil
}

// * SetUserCompany переносит пользователя в другую компанию.
func (s *Storage) SetUserCompany(_ context.Context, id, companyID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.st.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	if _, ok := s.st.companies[companyID]; !ok {
		return storage.ErrCompanyNotFound
	}

	u.CompanyID = companyID
	s.st.users[id] = u

	return nil
}

func (s *Storage) SetUserActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.st.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.IsActive = active
	s.st.users[id] = u

	return nil
}

// * DeleteUser удаляет пользователя вместе с его refresh токенами.
func (s *Storage) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.users[id]; !ok {
		return storage.ErrUserNotFound
	}

	delete(s.st.users, id)
	for jti, rt := range s.st.refresh {
		if rt.UserID == id {
			delete(s.st.refresh, jti)
		}
	}

	return nil
}

func (s *Storage) CompanyByID(_ context.Context, id int64) (models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.st.companies[id]
	if !ok {
		return models.Company{}, storage.ErrCompanyNotFound
	}

	return c, nil
}

func (s *Storage) CompanyBySlug(_ context.Context, slug string) (models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.st.companies {
		if c.Slug == slug {
			return c, nil
		}
	}

	return models.Company{}, storage.ErrCompanyNotFound
}

func (s *Storage) Companies() []models.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Company, 0, len(s.st.companies))
	for _, c := range s.st.companies {
		out = append(out, c)
	}

	return out
}

func (s *Storage) SaveInvite(_ context.Context, inv models.Invite) (models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.invites[inv.Code]; ok {
		return models.Invite{}, storage.ErrInviteExists
	}
	if _, ok := s.st.companies[inv.CompanyID]; !ok {
		return models.Invite{}, storage.ErrCompanyNotFound
	}

	inv.ID = s.st.nextID()
	inv.CreatedAt = s.now()
	s.st.invites[inv.Code] = inv

	return inv, nil
}

func (s *Storage) InviteByCode(_ context.Context, code string) (models.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.st.invites[code]
	if !ok {
		return models.Invite{}, storage.ErrInviteNotFound
	}

	return inv, nil
}

func (s *Storage) SaveRefreshToken(_ context.Context, rt models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.users[rt.UserID]; !ok {
		return storage.ErrUserNotFound
	}

	rt.ID = s.st.nextID()
	rt.CreatedAt = s.now()
	s.st.refresh[rt.JTI] = rt

	return nil
}

func (s *Storage) ConsumeRefreshToken(_ context.Context, jti string) (models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.st.refresh[jti]
	if !ok || rt.Used || rt.Revoked {
		return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
	}

	rt.Used = true
	s.st.refresh[jti] = rt

	return rt, nil
}

func (s *Storage) RevokeRefreshToken(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.st.refresh[jti]
	if !ok {
		return false, nil
	}

	rt.Revoked = true
	s.st.refresh[jti] = rt

	return true, nil
}

func (s *Storage) DeleteStaleRefreshTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for jti, rt := range s.st.refresh {
		if rt.Stale(now) {
			delete(s.st.refresh, jti)
			n++
		}
	}

	return n, nil
}

func (s *Storage) RefreshToken(_ context.Context, jti string) (models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, ok := s.st.refresh[jti]
	if !ok {
		return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
	}

	return rt, nil
}

func (s *Storage) RefreshTokensByCompany(_ context.Context, companyID int64) ([]models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.RefreshToken, 0)
	for _, rt := range s.st.refresh {
		if u, ok := s.st.users[rt.UserID]; ok && u.CompanyID == companyID {
			out = append(out, rt)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	return out, nil
}

// * Insert сохраняет запись как есть. Нужен тестам для подготовки истекших и отозванных строк.
func (s *Storage) Insert(rt models.RefreshToken) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rt.ID == 0 {
		rt.ID = s.st.nextID()
	}
	s.st.refresh[rt.JTI] = rt
}

func (s *Storage) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if until, ok := s.cooldowns[key]; ok && until.After(now) {
		return false, nil
	}

	s.cooldowns[key] = now.Add(ttl)

	return true, nil
}

func (s *Storage) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cooldowns, key)

	return nil
}
