package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache stores rendered units by content identity.
//
// A hit returns exactly the bytes Render would produce, so caching never
// changes output.
type Cache interface {
	// Get returns the rendered text for hash, or ok=false on a miss.
	Get(hash UnitHash) (text []byte, ok bool, err error)

	// Put stores rendered text under hash.
	Put(hash UnitHash, text []byte) error
}

// FileCache implements Cache on the filesystem.
//
// Structure:
//
//	{CacheDir}/
//	  {hash[0:2]}/
//	    {hash}.S
type FileCache struct {
	CacheDir string
}

// NewFileCache creates a new filesystem-based cache.
func NewFileCache(cacheDir string) *FileCache {
	return &FileCache{CacheDir: cacheDir}
}

// Get retrieves a rendered unit by hash.
func (c *FileCache) Get(hash UnitHash) ([]byte, bool, error) {
	data, err := os.ReadFile(c.entryPath(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}
	return data, true, nil
}

// Put stores a rendered unit.
func (c *FileCache) Put(hash UnitHash, text []byte) error {
	if hash == "" {
		return fmt.Errorf("cache hash is empty")
	}
	entry := c.entryPath(hash)
	if err := os.MkdirAll(filepath.Dir(entry), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if err := writeFileAtomic(entry, text, 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// entryPath uses the first 2 characters of the hash as a prefix directory.
func (c *FileCache) entryPath(hash UnitHash) string {
	name := string(hash) + OutputExtension
	if len(hash) < 2 {
		return filepath.Join(c.CacheDir, name)
	}
	return filepath.Join(c.CacheDir, string(hash)[:2], name)
}

// DefaultMemoryCacheSize bounds MemoryCache when no size is given.
const DefaultMemoryCacheSize = 256

// MemoryCache implements Cache with a bounded in-memory LRU.
// It is safe for concurrent use.
type MemoryCache struct {
	entries *lru.Cache[UnitHash, []byte]
}

// NewMemoryCache creates an LRU cache holding at most size units.
func NewMemoryCache(size int) (*MemoryCache, error) {
	if size <= 0 {
		size = DefaultMemoryCacheSize
	}
	entries, err := lru.New[UnitHash, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}
	return &MemoryCache{entries: entries}, nil
}

// Get retrieves a copy of a rendered unit.
func (c *MemoryCache) Get(hash UnitHash) ([]byte, bool, error) {
	text, ok := c.entries.Get(hash)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), text...), true, nil
}

// Put stores a copy of a rendered unit.
func (c *MemoryCache) Put(hash UnitHash, text []byte) error {
	c.entries.Add(hash, append([]byte(nil), text...))
	return nil
}

// Len reports the number of cached units.
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}

// TieredCache consults Near before Far and fills Near on a Far hit.
type TieredCache struct {
	Near Cache
	Far  Cache
}

func (c *TieredCache) Get(hash UnitHash) ([]byte, bool, error) {
	if text, ok, err := c.Near.Get(hash); err != nil || ok {
		return text, ok, err
	}
	text, ok, err := c.Far.Get(hash)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := c.Near.Put(hash, text); err != nil {
		return nil, false, err
	}
	return text, true, nil
}

func (c *TieredCache) Put(hash UnitHash, text []byte) error {
	if err := c.Near.Put(hash, text); err != nil {
		return err
	}
	return c.Far.Put(hash, text)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync() // best-effort durability
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
