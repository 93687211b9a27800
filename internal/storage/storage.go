// Package storage provides the key/value persistence the client keeps its
// document, credentials and timer state in. It plays the part browser
// localStorage and sessionStorage play for a web client: string values under
// string keys, each write a single call, with an optional byte quota.
package storage

import "errors"

// ErrQuotaExceeded is returned by SetItem when the write would push the
// total stored bytes over the configured quota. Nothing is written.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Storage is a string key/value store. Implementations are safe for
// concurrent use.
type Storage interface {
	// GetItem returns the value under key and whether it exists.
	GetItem(key string) (string, bool, error)
	// SetItem replaces the value under key in one write.
	SetItem(key, value string) error
	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(key string) error
}

// DefaultQuota matches the per-origin localStorage budget of common browsers.
const DefaultQuota = 5 << 20
