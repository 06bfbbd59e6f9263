package newcamd

import (
	"testing"
	"time"
)

func TestCWCacheStoreAndLookup(t *testing.T) {
	c := NewCWCache()
	fp := ecmFingerprint([]byte("some ecm bytes"))
	var cw [16]byte
	for i := range cw {
		cw[i] = byte(i)
	}

	if _, ok := c.Lookup(fp); ok {
		t.Fatalf("lookup on empty cache hit")
	}

	c.Store(fp, cw)
	got, ok := c.Lookup(fp)
	if !ok {
		t.Fatalf("expected hit after store")
	}
	if got != cw {
		t.Fatalf("got %x, want %x", got, cw)
	}
}

func TestCWCacheExpiresAfterTTL(t *testing.T) {
	c := NewCWCache()
	fp := ecmFingerprint([]byte("another ecm"))
	var cw [16]byte
	cw[0] = 0xAA

	c.Store(fp, cw)
	idx := cacheIndex(fp)
	c.entries[idx].storedAt = time.Now().Add(-cwCacheTTL - time.Second)

	if _, ok := c.Lookup(fp); ok {
		t.Fatalf("expected miss once entry is older than TTL")
	}
}

func TestCWCacheCollisionDisplaces(t *testing.T) {
	c := NewCWCache()
	var fp1, fp2 [16]byte
	fp1[0], fp1[1] = 0x01, 0x00
	fp2[0], fp2[1] = 0x01, 0x00
	fp1[15] = 0xAA
	fp2[15] = 0xBB
	if cacheIndex(fp1) != cacheIndex(fp2) {
		t.Fatalf("test fixtures expected to collide in bucket index")
	}

	var cw1, cw2 [16]byte
	cw1[0] = 1
	cw2[0] = 2

	c.Store(fp1, cw1)
	c.Store(fp2, cw2)

	if _, ok := c.Lookup(fp1); ok {
		t.Fatalf("expected fp1 to be displaced by fp2 in the same bucket")
	}
	got, ok := c.Lookup(fp2)
	if !ok || got != cw2 {
		t.Fatalf("expected fp2 to be present after displacing fp1")
	}
}
