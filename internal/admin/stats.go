package admin

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reign/internal/analytics"
	"reign/internal/journal"
)

const topCategories = 3

// UserStats is the per-user summary refreshed after every sync.
type UserStats struct {
	UserID          uint64         `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	TotalDays       int            `gorm:"not null;default:0" json:"totalDays"`
	TotalTasks      int            `gorm:"not null;default:0" json:"totalTasks"`
	CompletedTasks  int            `gorm:"not null;default:0" json:"completedTasks"`
	CompletionRate  int            `gorm:"not null;default:0" json:"completionRate"`
	LearningStreak  int            `gorm:"not null;default:0" json:"learningStreak"`
	Courses         int            `gorm:"not null;default:0" json:"courses"`
	Ideas           int            `gorm:"not null;default:0" json:"ideas"`
	TopCategories   pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"topCategories"`
	DocumentVersion uint64         `gorm:"not null;default:0" json:"documentVersion"`
	LastSyncedAt    time.Time      `gorm:"index;not null" json:"lastSyncedAt"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updatedAt"`
}

func (UserStats) TableName() string { return "user_stats" }

// ComputeStats summarises doc for userID.
func ComputeStats(userID uint64, doc *journal.Document, version uint64, syncedAt time.Time) UserStats {
	sum := analytics.Compute(doc)
	cats := analytics.ByCategory(doc)
	top := pq.StringArray{}
	for i := 0; i < len(cats) && i < topCategories; i++ {
		top = append(top, cats[i].Category)
	}

	return UserStats{
		UserID:          userID,
		TotalDays:       sum.TotalDays,
		TotalTasks:      sum.TotalTasks,
		CompletedTasks:  sum.CompletedTasks,
		CompletionRate:  sum.CompletionRate,
		LearningStreak:  analytics.LearningStreak(doc),
		Courses:         len(doc.Learning.Courses),
		Ideas:           len(doc.Ideas),
		TopCategories:   top,
		DocumentVersion: version,
		LastSyncedAt:    syncedAt,
		UpdatedAt:       time.Now(),
	}
}

var ErrNoStats = errors.New("no stats")

type StatsStore interface {
	Upsert(ctx context.Context, s UserStats) error
	Get(ctx context.Context, userID uint64) (*UserStats, error)
	List(ctx context.Context) ([]UserStats, error)
	Delete(ctx context.Context, userID uint64) error
}

type GormStats struct {
	DB *gorm.DB
}

func (g *GormStats) Upsert(ctx context.Context, s UserStats) error {
	return g.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&s).Error
}

func (g *GormStats) Get(ctx context.Context, userID uint64) (*UserStats, error) {
	var s UserStats
	if err := g.DB.WithContext(ctx).Where("user_id=?", userID).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoStats
		}
		return nil, err
	}
	return &s, nil
}

func (g *GormStats) List(ctx context.Context) ([]UserStats, error) {
	var out []UserStats
	return out, g.DB.WithContext(ctx).Order("user_id asc").Find(&out).Error
}

func (g *GormStats) Delete(ctx context.Context, userID uint64) error {
	return g.DB.WithContext(ctx).Where("user_id=?", userID).Delete(&UserStats{}).Error
}

type MemoryStats struct {
	mu    sync.RWMutex
	stats map[uint64]UserStats
}

func NewMemoryStats() *MemoryStats {
	return &MemoryStats{stats: make(map[uint64]UserStats)}
}

func (m *MemoryStats) Upsert(_ context.Context, s UserStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[s.UserID] = s
	return nil
}

func (m *MemoryStats) Get(_ context.Context, userID uint64) (*UserStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[userID]
	if !ok {
		return nil, ErrNoStats
	}
	return &s, nil
}

func (m *MemoryStats) List(_ context.Context) ([]UserStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]UserStats, 0, len(m.stats))
	for _, s := range m.stats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemoryStats) Delete(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stats, userID)
	return nil
}
