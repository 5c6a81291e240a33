// Package cache stores check results on disk keyed by document content,
// rule fingerprint and tolerances.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/solatis/formatkeeper/internal/types"
)

// schemaVersion is part of every key; bump it when Entry or the
// diagnostic model changes shape.
const schemaVersion uint16 = 1

const appDir = "formatkeeper"

// Entry is the on-disk form of one cached result.
type Entry struct {
	Schema   uint16                      `msgpack:"schema"`
	Key      string                      `msgpack:"key"`
	StoredAt time.Time                   `msgpack:"stored_at"`
	Blocks   []types.ParagraphErrorBlock `msgpack:"blocks"`
}

// Cache is a directory of msgpack entries. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
	log *slog.Logger
}

// Dir returns the default cache directory: $XDG_CACHE_HOME/formatkeeper,
// else the user cache directory.
func Dir() (string, error) {
	if base := os.Getenv("XDG_CACHE_HOME"); base != "" {
		return filepath.Join(base, appDir), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache dir: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

// Open creates the cache at dir, or at Dir() when dir is empty.
func Open(dir string, log *slog.Logger) (*Cache, error) {
	if log == nil {
		log = slog.Default()
	}
	if dir == "" {
		d, err := Dir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir, log: log}, nil
}

// Path returns the cache directory.
func (c *Cache) Path() string { return c.dir }

// Key derives the entry key of a check.
func Key(documentSHA256, rulesSHA256 string, tol types.Tolerances) string {
	h := sha256.New()
	for _, part := range []string{
		strconv.Itoa(int(schemaVersion)),
		documentSHA256,
		rulesSHA256,
		strconv.FormatFloat(tol.Points, 'g', -1, 64),
		strconv.FormatFloat(tol.Centimeters, 'g', -1, 64),
		strconv.FormatFloat(tol.Float, 'g', -1, 64),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) pathFor(key string) string {
	return filepath.Join(c.dir, key[:2], key+".mp")
}

// Get returns the cached blocks of a check. A missing, unreadable or
// stale entry is a miss.
func (c *Cache) Get(documentSHA256, rulesSHA256 string, tol types.Tolerances) ([]types.ParagraphErrorBlock, bool) {
	if c == nil {
		return nil, false
	}
	key := Key(documentSHA256, rulesSHA256, tol)
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	defer f.Close()

	var e Entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		c.log.Warn("ignoring corrupt cache entry", "key", key, "error", err)
		return nil, false
	}
	if e.Schema != schemaVersion || e.Key != key {
		return nil, false
	}
	if e.Blocks == nil {
		e.Blocks = []types.ParagraphErrorBlock{}
	}
	return e.Blocks, true
}

// Put stores blocks atomically: a temp file in the entry directory is
// renamed over the entry.
func (c *Cache) Put(documentSHA256, rulesSHA256 string, tol types.Tolerances, blocks []types.ParagraphErrorBlock) error {
	if c == nil {
		return nil
	}
	key := Key(documentSHA256, rulesSHA256, tol)
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create cache shard: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	entry := Entry{Schema: schemaVersion, Key: key, StoredAt: time.Now().UTC(), Blocks: blocks}
	if err := msgpack.NewEncoder(f).Encode(&entry); err != nil {
		f.Close()
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close cache temp file: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
	}
	return nil
}
