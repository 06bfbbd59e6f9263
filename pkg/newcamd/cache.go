package newcamd

import (
	"crypto/md5" //nolint:staticcheck // ECM fingerprint, not a security boundary
	"sync"
	"time"
)

const (
	cwCacheSize = 512 // power of two
	cwCacheTTL  = 30 * time.Second
)

type cwCacheEntry struct {
	fingerprint [16]byte
	cw          [16]byte
	storedAt    time.Time
	valid       bool
}

// CWCache is the fixed 512-bucket open-addressed control-word cache keyed
// by MD5(ECM) (§4.4). One mutex, held only for the duration of the copy.
type CWCache struct {
	mu      sync.Mutex
	entries [cwCacheSize]cwCacheEntry
}

// NewCWCache returns an empty cache.
func NewCWCache() *CWCache {
	return &CWCache{}
}

func ecmFingerprint(ecm []byte) [16]byte {
	return md5.Sum(ecm)
}

func cacheIndex(fp [16]byte) int {
	return int(uint16(fp[0])|uint16(fp[1])<<8) & (cwCacheSize - 1)
}

// Lookup returns the cached CW for fp if present, fresh, and matching
// byte-for-byte.
func (c *CWCache) Lookup(fp [16]byte) ([16]byte, bool) {
	idx := cacheIndex(fp)
	c.mu.Lock()
	defer c.mu.Unlock()
	e := &c.entries[idx]
	if e.valid && constTimeEqual(e.fingerprint[:], fp[:]) && time.Since(e.storedAt) < cwCacheTTL {
		return e.cw, true
	}
	return [16]byte{}, false
}

// Store writes (fp, cw) into its primary bucket, displacing any prior
// occupant.
func (c *CWCache) Store(fp [16]byte, cw [16]byte) {
	idx := cacheIndex(fp)
	c.mu.Lock()
	defer c.mu.Unlock()
	e := &c.entries[idx]
	e.fingerprint = fp
	e.cw = cw
	e.storedAt = time.Now()
	e.valid = true
}
