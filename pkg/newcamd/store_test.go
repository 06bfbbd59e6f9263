package newcamd

import "testing"

func TestAccountStoreLookup(t *testing.T) {
	u1 := &Account{Username: "u1", Enabled: true}
	u2 := &Account{Username: "u2", Enabled: true}
	s := NewAccountStore([]*Account{u1, u2})

	got, ok := s.Lookup("u1")
	if !ok || got != u1 {
		t.Fatalf("expected to find u1")
	}
	if _, ok := s.Lookup("u3"); ok {
		t.Fatalf("did not expect to find u3")
	}
}

func TestAccountStoreReplaceRebindsAndDrops(t *testing.T) {
	u1old := &Account{Username: "u1", CAID: 0x0100}
	u2 := &Account{Username: "u2", CAID: 0x0500}
	s := NewAccountStore([]*Account{u1old, u2})

	u1new := &Account{Username: "u1", CAID: 0x0B00}
	s.Replace([]*Account{u1new})

	got, ok := s.Lookup("u1")
	if !ok {
		t.Fatalf("expected u1 to survive reload")
	}
	if got != u1new {
		t.Fatalf("expected lookup to return the new u1 record after reload")
	}
	if got.CAID != 0x0B00 {
		t.Fatalf("expected u1's CAID to reflect the new config, got %#x", got.CAID)
	}

	if _, ok := s.Lookup("u2"); ok {
		t.Fatalf("expected u2 to be gone after reload dropped it")
	}

	// A reference held from before the reload keeps seeing the old record;
	// it is up to callers to rebind via a fresh Lookup.
	if u1old.CAID != 0x0100 {
		t.Fatalf("old account value should be left untouched by Replace")
	}
}

func TestAccountStoreSnapshot(t *testing.T) {
	s := NewAccountStore([]*Account{
		{Username: "a"},
		{Username: "b"},
	})
	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected snapshot of 2 accounts, got %d", len(snap))
	}
}
