package auth

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const RoleAdmin = "admin"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already used")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type User struct {
	ID           uint64         `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	Name         string         `gorm:"type:text;not null;default:''" json:"name"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Roles        pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"roles"`
	LastLoginAt  *time.Time     `gorm:"type:timestamptz" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time      `gorm:"not null" json:"createdAt"`
}

func (u *User) IsAdmin() bool { return slices.Contains(u.Roles, RoleAdmin) }

// Users is the account store.
type Users interface {
	Create(ctx context.Context, u *User) error
	ByEmail(ctx context.Context, email string) (*User, error)
	ByID(ctx context.Context, id uint64) (*User, error)
	TouchLogin(ctx context.Context, id uint64, at time.Time) error
	List(ctx context.Context) ([]User, error)
	Delete(ctx context.Context, id uint64) error
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

type GormUsers struct {
	DB *gorm.DB
}

func (s *GormUsers) Create(ctx context.Context, u *User) error {
	if u.Roles == nil {
		u.Roles = pq.StringArray{}
	}
	err := s.DB.WithContext(ctx).Create(u).Error
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}

func (s *GormUsers) ByEmail(ctx context.Context, email string) (*User, error) {
	return s.first(ctx, "email = ?", NormalizeEmail(email))
}

func (s *GormUsers) ByID(ctx context.Context, id uint64) (*User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormUsers) first(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	if err := s.DB.WithContext(ctx).Where(query, arg).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormUsers) TouchLogin(ctx context.Context, id uint64, at time.Time) error {
	return s.DB.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("last_login_at", at).Error
}

func (s *GormUsers) List(ctx context.Context) ([]User, error) {
	var out []User
	err := s.DB.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

func (s *GormUsers) Delete(ctx context.Context, id uint64) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// MemoryUsers keeps accounts in process memory.
type MemoryUsers struct {
	mu     sync.RWMutex
	nextID uint64
	byID   map[uint64]User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byID: make(map[uint64]User)}
}

func (m *MemoryUsers) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = NormalizeEmail(u.Email)
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	m.nextID++
	u.ID = m.nextID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	m.byID[u.ID] = *u
	return nil
}

func (m *MemoryUsers) ByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = NormalizeEmail(email)
	for _, u := range m.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryUsers) ByID(_ context.Context, id uint64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *MemoryUsers) TouchLogin(_ context.Context, id uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.LastLoginAt = &at
	m.byID[id] = u
	return nil
}

func (m *MemoryUsers) List(_ context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryUsers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[id]; !ok {
		return ErrUserNotFound
	}
	delete(m.byID, id)
	return nil
}
