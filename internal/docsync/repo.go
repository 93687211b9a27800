package docsync

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("not found")

type SaveInput struct {
	UserID         uint64
	Payload        json.RawMessage
	LocalTimestamp string
	DocUpdatedAt   *time.Time
	IdemKey        *string
}

type Repository interface {
	// Save appends a revision and moves the user's projection to it. A
	// repeated idempotency key returns the earlier revision with dup set.
	Save(ctx context.Context, in SaveInput) (rev Revision, dup bool, err error)
	Current(ctx context.Context, userID uint64) (*Document, error)
	Revisions(ctx context.Context, userID uint64, limit int) ([]Revision, error)
	// Prune keeps the newest keep revisions of a user.
	Prune(ctx context.Context, userID uint64, keep int) (int64, error)
	DeleteUser(ctx context.Context, userID uint64) error
	Counts(ctx context.Context) (documents, revisions int64, err error)
}

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) Save(ctx context.Context, in SaveInput) (Revision, bool, error) {
	var rev Revision
	dup := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.IdemKey != nil {
			err := tx.Where("user_id=? AND idempotency_key=?", in.UserID, *in.IdemKey).First(&rev).Error
			if err == nil {
				dup = true
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		now := time.Now()
		rev = Revision{
			UserID:         in.UserID,
			Payload:        in.Payload,
			Size:           len(in.Payload),
			LocalTimestamp: in.LocalTimestamp,
			DocUpdatedAt:   in.DocUpdatedAt,
			IdempotencyKey: in.IdemKey,
			CreatedAt:      now,
		}
		if err := tx.Create(&rev).Error; err != nil {
			return err
		}

		proj := Document{
			UserID:       in.UserID,
			Payload:      in.Payload,
			Version:      rev.ID,
			DocUpdatedAt: in.DocUpdatedAt,
			UpdatedAt:    now,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "version", "doc_updated_at", "updated_at"}),
		}).Create(&proj).Error
	})
	return rev, dup, err
}

func (r *GormRepo) Current(ctx context.Context, userID uint64) (*Document, error) {
	var d Document
	if err := r.DB.WithContext(ctx).Where("user_id=?", userID).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *GormRepo) Revisions(ctx context.Context, userID uint64, limit int) ([]Revision, error) {
	var out []Revision
	q := r.DB.WithContext(ctx).
		Select("id", "user_id", "size", "local_timestamp", "doc_updated_at", "created_at").
		Where("user_id=?", userID).
		Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return out, q.Find(&out).Error
}

func (r *GormRepo) Prune(ctx context.Context, userID uint64, keep int) (int64, error) {
	res := r.DB.WithContext(ctx).Exec(`
delete from document_revisions
where user_id = ?
  and id not in (
    select id from document_revisions
    where user_id = ?
    order by id desc
    limit ?
  )`, userID, userID, keep)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) DeleteUser(ctx context.Context, userID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id=?", userID).Delete(&Revision{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id=?", userID).Delete(&Document{}).Error
	})
}

func (r *GormRepo) Counts(ctx context.Context) (int64, int64, error) {
	var docs, revs int64
	if err := r.DB.WithContext(ctx).Model(&Document{}).Count(&docs).Error; err != nil {
		return 0, 0, err
	}
	if err := r.DB.WithContext(ctx).Model(&Revision{}).Count(&revs).Error; err != nil {
		return 0, 0, err
	}
	return docs, revs, nil
}

// MemoryRepo is the in-process Repository.
type MemoryRepo struct {
	mu        sync.RWMutex
	nextID    uint64
	revisions map[uint64][]Revision
	docs      map[uint64]Document
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		revisions: make(map[uint64][]Revision),
		docs:      make(map[uint64]Document),
	}
}

func (m *MemoryRepo) Save(_ context.Context, in SaveInput) (Revision, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if in.IdemKey != nil {
		for _, rev := range m.revisions[in.UserID] {
			if rev.IdempotencyKey != nil && *rev.IdempotencyKey == *in.IdemKey {
				return rev, true, nil
			}
		}
	}

	now := time.Now()
	m.nextID++
	rev := Revision{
		ID:             m.nextID,
		UserID:         in.UserID,
		Payload:        append(json.RawMessage(nil), in.Payload...),
		Size:           len(in.Payload),
		LocalTimestamp: in.LocalTimestamp,
		DocUpdatedAt:   in.DocUpdatedAt,
		IdempotencyKey: in.IdemKey,
		CreatedAt:      now,
	}
	m.revisions[in.UserID] = append(m.revisions[in.UserID], rev)
	m.docs[in.UserID] = Document{
		UserID:       in.UserID,
		Payload:      rev.Payload,
		Version:      rev.ID,
		DocUpdatedAt: in.DocUpdatedAt,
		UpdatedAt:    now,
	}
	return rev, false, nil
}

func (m *MemoryRepo) Current(_ context.Context, userID uint64) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.docs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *MemoryRepo) Revisions(_ context.Context, userID uint64, limit int) ([]Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	revs := m.revisions[userID]
	out := make([]Revision, 0, len(revs))
	for i := len(revs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		r := revs[i]
		r.Payload = nil
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryRepo) Prune(_ context.Context, userID uint64, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	revs := m.revisions[userID]
	if len(revs) <= keep {
		return 0, nil
	}
	sort.Slice(revs, func(i, j int) bool { return revs[i].ID < revs[j].ID })
	dropped := len(revs) - keep
	m.revisions[userID] = append([]Revision(nil), revs[dropped:]...)
	return int64(dropped), nil
}

func (m *MemoryRepo) DeleteUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.revisions, userID)
	delete(m.docs, userID)
	return nil
}

func (m *MemoryRepo) Counts(_ context.Context) (int64, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var revs int64
	for _, rs := range m.revisions {
		revs += int64(len(rs))
	}
	return int64(len(m.docs)), revs, nil
}
