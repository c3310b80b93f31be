// Package cache implements the on-disk incremental bytecode cache: one
// msgpack-framed record per (source digest, optimization level), holding
// the compiled .rzbc payload plus the metadata needed for invalidation.
package cache

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when Payload format changes.
const schemaVersion uint16 = 1

// Key addresses one cache entry: the source content digest combined with
// the optimization level it was compiled at.
type Key struct {
	SourceDigest uint64
	OptLevel     uint8
}

// Digest computes the 64-bit content hash used for cache keys; the same
// hash family backs the bytecode checksum.
func Digest(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Payload is one cached compilation artifact.
type Payload struct {
	// Schema version for safe invalidation when the format changes.
	Schema uint16

	ModuleName      string
	SourcePath      string
	SourceTimestamp uint64
	CompilerVersion string

	// Bytecode is the finished .rzbc image (its own header, checksum,
	// and sections included).
	Bytecode []byte
}

// DiskCache stores payloads keyed by source digest and level.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// Open initializes a disk cache rooted at dir, creating it if needed.
func Open(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Key) string {
	var raw [9]byte
	raw[0] = key.OptLevel
	for i := 0; i < 8; i++ {
		raw[1+i] = byte(key.SourceDigest >> (8 * i))
	}
	return filepath.Join(c.dir, "rzbc", hex.EncodeToString(raw[:])+".mp")
}

// Put serializes and writes a payload, atomically replacing any previous
// entry via temp-file-and-rename.
func (c *DiskCache) Put(key Key, payload *Payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	payload.Schema = schemaVersion
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads a payload. Returns (false, nil) on miss or schema mismatch.
func (c *DiskCache) Get(key Key, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		// Corrupted entries read as misses so a rewrite heals them.
		return false, nil
	}
	if out.Schema != schemaVersion {
		return false, nil
	}
	return true, nil
}

// Remove deletes one entry; missing entries are fine.
func (c *DiskCache) Remove(key Key) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	err := os.Remove(c.pathFor(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear removes the whole cache directory subtree.
func (c *DiskCache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.RemoveAll(filepath.Join(c.dir, "rzbc")); err != nil {
		return fmt.Errorf("cache: clear: %w", err)
	}
	return nil
}
