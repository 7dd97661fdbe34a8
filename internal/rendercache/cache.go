// Package rendercache memoizes rendered caption outputs keyed by the
// content of the source video, the subtitle document and the style
// configuration. Entries expire after a TTL and their backing artifacts
// are removed with them. Cache trouble is never fatal; every failure
// degrades to a miss.
package rendercache

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultTTL is how long a rendered artifact stays reusable.
const DefaultTTL = 24 * time.Hour

// headBytes is how much of the video file feeds the fingerprint. Size
// and mtime catch most changes; hashing the head guards against
// in-place rewrites that keep the length.
const headBytes = 64 * 1024

// lookupSweepEvery makes roughly one Lookup in a hundred pay the sweep
// cost, so expired entries drain even without the background ticker.
const lookupSweepEvery = 100

type entry struct {
	path      string
	createdAt time.Time
}

// Cache is an in-memory content-addressed cache of rendered outputs.
// Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	counter uint64

	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
	remove func(string) error
}

// New creates a cache with the given TTL. A non-positive TTL falls back
// to DefaultTTL.
func New(ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		remove:  os.Remove,
	}
}

// Key derives the deterministic cache key for a render: sha256 over the
// video fingerprint (size, mtime, first 64 KiB), the subtitle document
// and the canonical style serialization. An unreadable video yields a
// random key so the render proceeds as a guaranteed miss.
func (c *Cache) Key(videoPath string, subtitleBody, styleJSON []byte) string {
	h := sha256.New()

	if err := hashVideo(h, videoPath); err != nil {
		c.logger.Warn("cache key degraded to forced miss",
			slog.String("video", videoPath),
			slog.String("error", err.Error()))
		return randomKey()
	}

	h.Write(subtitleBody)
	h.Write(styleJSON)
	return hex.EncodeToString(h.Sum(nil))
}

func hashVideo(h io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	var meta [16]byte
	binary.BigEndian.PutUint64(meta[0:8], uint64(info.Size()))
	binary.BigEndian.PutUint64(meta[8:16], uint64(info.ModTime().UnixNano()))
	h.Write(meta[:])

	if _, err := io.CopyN(h, f, headBytes); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func randomKey() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Fall back to a time-derived key; still unique enough to miss.
		binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
	}
	return hex.EncodeToString(b[:])
}

// Lookup returns the artifact path for key if present and fresh.
// Expired entries count as misses; their artifacts are deleted on the
// spot, since the entry is gone before any sweep could find it. About
// one call in a hundred also sweeps the whole table.
func (c *Cache) Lookup(key string) (string, bool) {
	c.mu.Lock()
	c.counter++
	sweepDue := c.counter%lookupSweepEvery == 0

	e, ok := c.entries[key]
	var expired string
	if ok && c.now().Sub(e.createdAt) > c.ttl {
		delete(c.entries, key)
		expired = e.path
		ok = false
	}
	c.mu.Unlock()

	if expired != "" {
		c.removeArtifact(expired)
	}

	if sweepDue {
		c.Sweep()
	}
	if !ok {
		return "", false
	}
	if _, err := os.Stat(e.path); err != nil {
		// Artifact vanished underneath us; treat as a miss.
		c.Delete(key)
		return "", false
	}
	return e.path, true
}

// Store records a rendered artifact under key, replacing any previous
// entry for the same key. The replaced artifact is deleted unless it is
// the same file. The job that produced the replaced artifact may still
// advertise its path in a terminal status; identical concurrent jobs
// are the only way to hit that inside the TTL, and keeping the TTL at
// least as long as job retention bounds the stale-path window for the
// rest.
func (c *Cache) Store(key, artifactPath string) {
	c.mu.Lock()
	prev, had := c.entries[key]
	c.entries[key] = entry{path: artifactPath, createdAt: c.now()}
	c.mu.Unlock()

	if had && prev.path != artifactPath {
		c.removeArtifact(prev.path)
	}
}

// Delete drops the entry for key and removes its artifact.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if ok {
		c.removeArtifact(e.path)
	}
}

// Sweep drops every expired entry and deletes the backing artifacts.
// Artifact removal happens outside the lock. Returns how many entries
// were evicted.
func (c *Cache) Sweep() int {
	cutoff := c.now().Add(-c.ttl)

	c.mu.Lock()
	var evicted []string
	for key, e := range c.entries {
		if e.createdAt.Before(cutoff) {
			evicted = append(evicted, e.path)
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	for _, path := range evicted {
		c.removeArtifact(path)
	}
	if len(evicted) > 0 {
		c.logger.Info("render cache sweep", slog.Int("evicted", len(evicted)))
	}
	return len(evicted)
}

// Run sweeps on a ticker until ctx is canceled. A non-positive interval
// defaults to one hour.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Len reports how many entries are currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeArtifact(path string) {
	if err := c.remove(path); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("removing cached artifact failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}
