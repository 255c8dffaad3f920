// Package cache stores model replies on disk so prompt-tuning loops can rerun
// an eval without paying for identical calls.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const entryExt = ".json.zst"

// Cache is a directory of zstd-compressed JSON entries keyed by sha256.
type Cache struct {
	dir string
	mu  sync.Mutex

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New creates a new cache instance with the specified directory. An empty
// directory disables the cache: Get always misses and Put is a no-op.
func New(dir string) *Cache {
	c := &Cache{dir: dir}
	// nil writer/reader with default options cannot fail
	c.enc, _ = zstd.NewWriter(nil)
	c.dec, _ = zstd.NewReader(nil)
	return c
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Key hashes the parts into a cache key. Each part is NUL-terminated so
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		_ = writeString(h, p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get decodes the entry for key into v. Missing or unreadable entries are
// reported as a miss.
func (c *Cache) Get(key string, v any) bool {
	if c.dir == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		return false
	}

	raw, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return false
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return false
	}
	return true
}

// Put stores v under key.
func (c *Cache) Put(key string, v any) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	// write then rename so a crash never leaves a torn entry
	path := c.cachePath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, c.enc.EncodeAll(raw, nil), 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Len counts stored entries.
func (c *Cache) Len() (int, error) {
	if c.dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), entryExt) {
			n++
		}
	}
	return n, nil
}

// Clear removes all cached entries. It refuses to touch a directory that
// holds anything other than cache entries.
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	if len(entries) > 0 {
		hasValidCache := false
		for _, entry := range entries {
			if entry.IsDir() {
				return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
			}
			if strings.HasSuffix(entry.Name(), entryExt) {
				hasValidCache = true
			} else {
				return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
			}
		}
		if !hasValidCache {
			return fmt.Errorf("no valid cache files found in directory - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+entryExt)
}

func writeString(w io.Writer, s string) error {
	_, err := w.Write([]byte(s + "\x00"))
	return err
}
