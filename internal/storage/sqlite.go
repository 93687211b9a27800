package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

const schema = `
create table if not exists items (
	key   text primary key,
	value text not null
);
`

// SQLite persists items in a single-table SQLite database file.
type SQLite struct {
	db    *sql.DB
	quota int
	// serialises the quota check with the write that follows it
	mu sync.Mutex
}

// OpenSQLite opens (creating if needed) the database at path. quota <= 0
// disables the limit.
func OpenSQLite(path string, quota int) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`pragma busy_timeout = 5000`, `pragma journal_mode = wal`} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure storage: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init storage schema: %w", err)
	}

	return &SQLite{db: db, quota: quota}, nil
}

func (s *SQLite) GetItem(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`select value from items where key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLite) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quota > 0 {
		var used int64
		err := s.db.QueryRow(
			`select coalesce(sum(length(cast(key as blob)) + length(cast(value as blob))), 0) from items where key <> ?`,
			key,
		).Scan(&used)
		if err != nil {
			return fmt.Errorf("measure storage: %w", err)
		}
		if used+int64(len(key)+len(value)) > int64(s.quota) {
			return ErrQuotaExceeded
		}
	}

	_, err := s.db.Exec(
		`insert into items (key, value) values (?, ?)
		 on conflict(key) do update set value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) RemoveItem(key string) error {
	if _, err := s.db.Exec(`delete from items where key = ?`, key); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
