// Package lrccache persists lyric lookups in a bbolt database so tracks are
// only looked up once across server restarts.
package lrccache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("lyrics")

// Entry is a cached lookup result. A NotFound entry records a miss so the
// remote service is not asked again.
type Entry struct {
	Lyrics    string    `json:"lyrics,omitempty"`
	NotFound  bool      `json:"notFound,omitempty"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Cache is a bbolt-backed lyrics cache.
type Cache struct {
	db *bolt.DB
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open cache database")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create cache bucket")
	}

	zlog.Debug().Msgf("lrccache: opened: path=%s", path)
	return &Cache{db: db}, nil
}

// Key builds the cache key for a track. Matching is case-insensitive.
func Key(artist, title string) string {
	return strings.ToLower(strings.TrimSpace(artist)) + "\x00" + strings.ToLower(strings.TrimSpace(title))
}

// Get returns the cached entry for the track, if any.
func (c *Cache) Get(artist, title string) (Entry, bool, error) {
	var (
		entry Entry
		found bool
	)
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketName).Get([]byte(Key(artist, title)))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return Entry{}, false, errors.Wrap(err, "failed to read cache entry")
	}
	return entry, found, nil
}

// Put stores the entry for the track.
func (c *Cache) Put(artist, title string, entry Entry) error {
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to encode cache entry")
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(Key(artist, title)), data)
	})
	return errors.Wrap(err, "failed to write cache entry")
}

// Len returns the number of cached entries.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketName).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}
