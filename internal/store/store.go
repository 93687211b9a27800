// Package store owns the client's persisted journal document. Reads always
// yield a usable document; writes are whole-document and stamp LastUpdated.
package store

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"reign/internal/analytics"
	"reign/internal/journal"
	"reign/internal/logging"
	"reign/internal/notify"
	"reign/internal/storage"
)

// DataKey is the storage key holding the serialized document.
const DataKey = "reignData"

// SyncScheduler is told about every save that should reach the server.
type SyncScheduler interface {
	ScheduleUpload()
}

// LoginState reports whether a user is signed in.
type LoginState interface {
	IsLoggedIn() bool
}

type Store struct {
	storage  storage.Storage
	session  LoginState
	clock    clockwork.Clock
	logger   *zap.Logger
	notifier notify.Notifier

	mu        sync.RWMutex
	scheduler SyncScheduler
}

type Option func(*Store)

func WithClock(c clockwork.Clock) Option     { return func(s *Store) { s.clock = c } }
func WithLogger(l *zap.Logger) Option        { return func(s *Store) { s.logger = logging.OrNop(l) } }
func WithNotifier(n notify.Notifier) Option  { return func(s *Store) { s.notifier = n } }
func WithScheduler(sch SyncScheduler) Option { return func(s *Store) { s.scheduler = sch } }

func New(st storage.Storage, session LoginState, opts ...Option) *Store {
	s := &Store{
		storage:  st,
		session:  session,
		clock:    clockwork.NewRealClock(),
		logger:   zap.NewNop(),
		notifier: notify.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("store")
	return s
}

// AttachScheduler wires the sync engine in after construction; the engine
// itself needs the store, so it cannot be passed to New.
func (s *Store) AttachScheduler(sch SyncScheduler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduler = sch
}

// GetData returns the persisted document. Missing or unreadable data yields
// the default document; nothing is ever surfaced as an error.
func (s *Store) GetData() *journal.Document {
	raw, ok, err := s.storage.GetItem(DataKey)
	if err != nil {
		s.logger.Warn("read document failed, using defaults", zap.Error(err))
		return journal.Default()
	}
	if !ok || raw == "" {
		return journal.Default()
	}

	doc := &journal.Document{}
	if err := json.Unmarshal([]byte(raw), doc); err != nil {
		s.logger.Warn("stored document is corrupt, using defaults", zap.Error(err))
		return journal.Default()
	}

	if fixes := journal.Normalize(doc); fixes > 0 {
		s.logger.Debug("normalized stored document", zap.Int("fixes", fixes))
	}
	if analytics.RepairLearningStreak(doc) {
		s.logger.Info("learning streak drifted, recomputed from logs", zap.Int("streak", doc.Learning.Streak))
	}
	return doc
}

// SaveData stamps LastUpdated, writes the whole document and, unless
// skipSync is set, schedules an upload for signed-in users. It reports
// whether the write succeeded.
func (s *Store) SaveData(doc *journal.Document, skipSync bool) bool {
	now := s.clock.Now()
	doc.LastUpdated = &now

	b, err := json.Marshal(doc)
	if err != nil {
		s.logger.Error("encode document failed", zap.Error(err))
		return false
	}

	if err := s.storage.SetItem(DataKey, string(b)); err != nil {
		if errors.Is(err, storage.ErrQuotaExceeded) {
			s.notifier.Notify(notify.Warning, "Storage is full. Export or delete old entries to keep saving.")
		}
		s.logger.Error("save document failed", zap.Error(err), zap.Int("bytes", len(b)))
		return false
	}

	if !skipSync && s.session != nil && s.session.IsLoggedIn() {
		s.mu.RLock()
		sch := s.scheduler
		s.mu.RUnlock()
		if sch != nil {
			sch.ScheduleUpload()
		}
	}
	return true
}

// Update loads the document, applies fn and saves the result when fn
// succeeds. A failed save is reported as ErrSaveFailed.
func (s *Store) Update(fn func(doc *journal.Document) error) error {
	doc := s.GetData()
	if err := fn(doc); err != nil {
		return err
	}
	if !s.SaveData(doc, false) {
		return ErrSaveFailed
	}
	return nil
}

var ErrSaveFailed = errors.New("document could not be saved")
