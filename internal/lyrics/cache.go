package lyrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	bolt "go.etcd.io/bbolt"
)

const cacheBucket = "lyrics"

// Cache persists raw lyric payloads keyed by track id, with an in-memory
// overlay so repeated lookups for the current queue never touch disk.
type Cache struct {
	db  *bolt.DB
	mem sync.Map
}

// OpenCache opens (creating if needed) the payload cache at path.
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cacheBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}

	return &Cache{db: db}, nil
}

// Get returns the cached payload for a track id, if present.
func (c *Cache) Get(trackID string) (Payload, bool) {
	if v, ok := c.mem.Load(trackID); ok {
		return v.(Payload), true
	}

	var data []byte
	_ = c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(cacheBucket)).Get([]byte(trackID)); v != nil {
			data = append(data, v...)
		}
		return nil
	})
	if data == nil {
		return Payload{}, false
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, false
	}
	c.mem.Store(trackID, p)
	return p, true
}

// Put stores a payload for a track id.
func (c *Cache) Put(trackID string, p Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(cacheBucket)).Put([]byte(trackID), data)
	})
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	c.mem.Store(trackID, p)
	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
