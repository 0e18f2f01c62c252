// Package cache is the persistence boundary of the client: a durable
// key-value store holding JSON-serialized snapshots under fixed keys.
// Nothing outside the stores writes to it directly.
package cache

// Cache keys. Updates spanning more than one key are not atomic; a crash
// between two writes can leave them inconsistent. Callers needing strict
// cross-key consistency have no recourse here.
const (
	KeySession   = "session.currentUser"
	KeyUsers     = "users.all"
	KeyMemes     = "memes.all"
	KeyDarkMode  = "ui.darkMode"
	KeyBookmarks = "ui.bookmarks"
)

// Store is the cache contract. A failed write is non-fatal: callers keep
// operating on their in-memory state and the failure is logged.
type Store interface {
	// Get unmarshals the value under key into out. The bool result is
	// false when the key is absent.
	Get(key string, out interface{}) (bool, error)
	Set(key string, value interface{}) error
	Remove(key string) error
	Close() error
}
