// Package database provides durable storage for the movie client.
//
// The only state that must survive restarts is a handful of scalar
// settings, chiefly the TMDB session identifier. Storage is a single
// key/value table; both backends migrate it on open.
package database

// SettingSessionID is the key holding the persisted TMDB session id.
// Absence means signed-out.
const SettingSessionID = "tmdb_session_id"

// Store defines the interface for durable storage operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the storage backend.
	DatabaseType() string

	// Settings operations
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error

	// Session slot operations. The slot is single-value, last-write-wins:
	// it is read once at startup and written on session creation / cleared
	// on sign-out.
	SessionID() (string, error)
	SaveSessionID(id string) error
	ClearSessionID() error
}
