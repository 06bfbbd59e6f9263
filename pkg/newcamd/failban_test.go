package newcamd

import (
	"testing"
	"time"
)

func TestBanTableBansAfterFiveFails(t *testing.T) {
	b := NewBanTable()
	ip := "203.0.113.7"

	for i := 0; i < banMaxFails-1; i++ {
		b.RecordFail(ip)
		if b.IsBanned(ip) {
			t.Fatalf("banned after only %d fails", i+1)
		}
	}
	b.RecordFail(ip)
	if !b.IsBanned(ip) {
		t.Fatalf("expected ban after %d consecutive fails", banMaxFails)
	}
}

func TestBanTableRecordOKClearsImmediately(t *testing.T) {
	b := NewBanTable()
	ip := "203.0.113.8"

	for i := 0; i < banMaxFails; i++ {
		b.RecordFail(ip)
	}
	if !b.IsBanned(ip) {
		t.Fatalf("expected ban before RecordOK")
	}
	b.RecordOK(ip)
	if b.IsBanned(ip) {
		t.Fatalf("expected ban cleared after RecordOK")
	}
}

func TestBanTableExpiresAfterWindow(t *testing.T) {
	b := NewBanTable()
	ip := "203.0.113.9"

	for i := 0; i < banMaxFails; i++ {
		b.RecordFail(ip)
	}
	e, ok := b.entries[ip]
	if !ok {
		t.Fatalf("expected entry to exist")
	}
	e.until = time.Now().Add(-time.Second)

	if b.IsBanned(ip) {
		t.Fatalf("expected ban to have expired")
	}
	if _, ok := b.entries[ip]; ok {
		t.Fatalf("expected expired entry to be pruned on read")
	}
}

func TestBanTableIndependentIPs(t *testing.T) {
	b := NewBanTable()
	for i := 0; i < banMaxFails; i++ {
		b.RecordFail("10.0.0.1")
	}
	if !b.IsBanned("10.0.0.1") {
		t.Fatalf("expected 10.0.0.1 banned")
	}
	if b.IsBanned("10.0.0.2") {
		t.Fatalf("unrelated IP should not be banned")
	}
}
