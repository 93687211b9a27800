package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"reign/internal/admin"
	"reign/internal/auth"
	"reign/internal/docsync"
	"reign/internal/jobs"
)

func Connect(dsn string, log *zap.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         newGormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&auth.User{},
		&docsync.Revision{},
		&docsync.Document{},
		&admin.UserStats{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	// Upload idempotency: unique per user + idempotency_key where not null
	if err := gdb.Exec(`
create unique index if not exists uq_revisions_user_idem
on document_revisions(user_id, idempotency_key)
where idempotency_key is not null;
`).Error; err != nil {
		return err
	}

	stmts := []string{
		`create index if not exists idx_revisions_user_id on document_revisions(user_id, id desc);`,
		`create index if not exists idx_stats_top_categories on user_stats using gin (top_categories);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
		`create index if not exists idx_jobs_user_type on jobs(user_id, type, status);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}

// newGormLogger routes gorm's own logging through zap at warn level: slow
// queries and errors only.
func newGormLogger(log *zap.Logger) logger.Interface {
	if log == nil {
		return logger.Discard
	}
	return logger.New(zapWriter{log.Named("gorm").Sugar()}, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

type zapWriter struct {
	s *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...any) {
	w.s.Warnf(format, args...)
}
