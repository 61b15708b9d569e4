// Package cache stores laid-out sheets and layout jobs by content hash.
//
// Two backends ship with the package: [FileCache] for the command line,
// keeping entries under the user's cache directory, and [RedisCache] for
// the layout server. [NullCache] disables caching.
//
// # Keys
//
// A [Keyer] turns inputs into cache keys. Sheet keys hash the exported
// symbol stream together with the layout policy, so a change to either
// misses the cache. Use [NewScopedKeyer] to give separate tenants their
// own key space.
package cache

import (
	"context"
	"time"
)

// Cache TTLs.
const (
	// TTLSheet is how long a laid-out sheet stays cached. Layout is
	// deterministic, so sheets only expire to bound disk use.
	TTLSheet = 7 * 24 * time.Hour

	// TTLJob is how long the server keeps the result of a layout job.
	TTLJob = 24 * time.Hour
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Keyer generates cache keys.
type Keyer interface {
	// SheetKey is the key of the sheet laid out from a symbol stream.
	SheetKey(streamHash string, opts SheetKeyOpts) string

	// JobKey is the key of a server layout job.
	JobKey(id string) string
}

// SheetKeyOpts are the layout inputs besides the stream itself.
type SheetKeyOpts struct {
	PolicyHash string `json:"policy"`
	Engine     string `json:"engine,omitempty"`
	Metrics    string `json:"metrics,omitempty"`
}

// DefaultKeyer hashes key inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SheetKey returns "sheet:" followed by the hash of the stream and options.
func (DefaultKeyer) SheetKey(streamHash string, opts SheetKeyOpts) string {
	return hashKey("sheet", streamHash, opts)
}

// JobKey returns "job:" followed by the id.
func (DefaultKeyer) JobKey(id string) string {
	return "job:" + id
}
