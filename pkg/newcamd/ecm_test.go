package newcamd

import (
	"bytes"
	"crypto/des" //nolint:staticcheck // mirrors the wire format under test
	"testing"
)

// encodeCAID0B00Section is the forward transform for caid0B00Decoder.Decode:
// it produces ciphertext that Decode will turn back into dec. Decode applies
// (c1.Decrypt, c2.Encrypt, c1.Decrypt) per block; the inverse, derived by
// reversing each step, is (c1.Encrypt, c2.Decrypt, c1.Encrypt).
func encodeCAID0B00Section(t *testing.T, key [16]byte, dec []byte) []byte {
	t.Helper()
	c1, err := des.NewCipher(key[0:8])
	if err != nil {
		t.Fatalf("des.NewCipher c1: %v", err)
	}
	c2, err := des.NewCipher(key[8:16])
	if err != nil {
		t.Fatalf("des.NewCipher c2: %v", err)
	}
	out := append([]byte(nil), dec...)
	for off := 0; off < len(out); off += 8 {
		block := out[off : off+8]
		c1.Encrypt(block, block)
		c2.Decrypt(block, block)
		c1.Encrypt(block, block)
	}
	return out
}

func buildECM(t *testing.T, key [16]byte, kidx byte, dec [48]byte) []byte {
	t.Helper()
	sec := encodeCAID0B00Section(t, key, dec[:])
	ecm := make([]byte, 7+48)
	ecm[0] = kidx
	ecm[4] = 50 // slen(48) + 2
	ecm[5] = 0x64
	copy(ecm[7:], sec)
	return ecm
}

func validPlaintextSection(fill byte) [48]byte {
	var dec [48]byte
	for i := range dec[:47] {
		dec[i] = fill + byte(i)
	}
	var sum byte
	for _, b := range dec[:47] {
		sum += b
	}
	dec[47] = sum
	return dec
}

func TestCaid0B00DecoderRoundTrip(t *testing.T) {
	var key [16]byte
	for i := range key {
		key[i] = byte(i + 1)
	}
	acc := &Account{
		CAID: 0x0B00,
		Keys: []AccountKeyPair{{CAID: 0x0B00, K0: key}},
	}

	dec := validPlaintextSection(0x10)
	ecm := buildECM(t, key, 0, dec)

	cw := make([]byte, 16)
	result := caid0B00Decoder{}.Decode(0x0B00, ecm, acc, cw)
	if result != DecodeOK {
		t.Fatalf("expected DecodeOK, got %v", result)
	}
	if !bytes.Equal(cw[0:8], dec[12:20]) {
		t.Fatalf("CW[0:8] mismatch: got %x want %x", cw[0:8], dec[12:20])
	}
	if !bytes.Equal(cw[8:16], dec[4:12]) {
		t.Fatalf("CW[8:16] mismatch: got %x want %x", cw[8:16], dec[4:12])
	}
}

func TestCaid0B00DecoderKidxSelectsKey(t *testing.T) {
	var k0, k1 [16]byte
	for i := range k0 {
		k0[i] = byte(i + 1)
		k1[i] = byte(200 - i)
	}
	acc := &Account{
		CAID: 0x0B00,
		Keys: []AccountKeyPair{{CAID: 0x0B00, K0: k0, K1: k1}},
	}

	dec := validPlaintextSection(0x42)
	ecm := buildECM(t, k1, 1, dec) // odd kidx -> K1

	cw := make([]byte, 16)
	result := caid0B00Decoder{}.Decode(0x0B00, ecm, acc, cw)
	if result != DecodeOK {
		t.Fatalf("expected DecodeOK using K1, got %v", result)
	}
}

func TestCaid0B00DecoderChecksumError(t *testing.T) {
	var key [16]byte
	for i := range key {
		key[i] = byte(i + 1)
	}
	acc := &Account{CAID: 0x0B00, Keys: []AccountKeyPair{{CAID: 0x0B00, K0: key}}}

	dec := validPlaintextSection(0x10)
	dec[47] ^= 0xFF // break the checksum
	ecm := buildECM(t, key, 0, dec)

	cw := make([]byte, 16)
	if result := (caid0B00Decoder{}).Decode(0x0B00, ecm, acc, cw); result != DecodeChecksumError {
		t.Fatalf("expected DecodeChecksumError, got %v", result)
	}
}

func TestCaid0B00DecoderKeyNotFound(t *testing.T) {
	acc := &Account{CAID: 0x0B00}
	dec := validPlaintextSection(0x10)
	var key [16]byte
	ecm := buildECM(t, key, 0, dec)

	cw := make([]byte, 16)
	if result := (caid0B00Decoder{}).Decode(0x0B00, ecm, acc, cw); result != DecodeKeyNotFound {
		t.Fatalf("expected DecodeKeyNotFound, got %v", result)
	}
}

func TestDecodeECMFakeCWBypassesDecoder(t *testing.T) {
	acc := &Account{CAID: 0x0B00, FakeCW: true}
	reg := newDecoderRegistry()

	cw1 := make([]byte, 16)
	cw2 := make([]byte, 16)
	if r := decodeECM(reg, 0x0B00, []byte("irrelevant"), acc, cw1); r != DecodeOK {
		t.Fatalf("expected DecodeOK in fake-CW mode, got %v", r)
	}
	if r := decodeECM(reg, 0x0B00, []byte("irrelevant"), acc, cw2); r != DecodeOK {
		t.Fatalf("expected DecodeOK in fake-CW mode, got %v", r)
	}
	if bytes.Equal(cw1, cw2) {
		t.Fatalf("fake CWs should differ between calls (statistically near-impossible collision)")
	}
}

func TestDecodeECMUnsupportedWithoutKeyOrPermissiveTrigger(t *testing.T) {
	acc := &Account{CAID: 0x0100, Keys: []AccountKeyPair{{CAID: 0x0100}}}
	reg := newDecoderRegistry()
	cw := make([]byte, 16)
	// CAID 0x0200 has no configured key and is not in the 0x0B00 family.
	if r := decodeECM(reg, 0x0200, []byte("x"), acc, cw); r != DecodeNotSupported {
		t.Fatalf("expected DecodeNotSupported, got %v", r)
	}
}

func TestDecodeECMPermissiveTriggerWithoutExplicitKey(t *testing.T) {
	var key [16]byte
	for i := range key {
		key[i] = byte(i + 1)
	}
	// The account's only configured key is under CAID 0x0B01, not the probed
	// 0x0B00 — the family high byte matches (0x0B) but the exact CAID does
	// not.
	acc := &Account{CAID: 0x0B01, Keys: []AccountKeyPair{{CAID: 0x0B01, K0: key}}}
	reg := newDecoderRegistry()

	dec := validPlaintextSection(0x10)
	ecm := buildECM(t, key, 0, dec)

	cw := make([]byte, 16)
	// decodeECM's !hasKey && !permissive check passes the probed CAID through
	// (0x0B00 shares the 0x0Bxx family high byte, so permissive is true even
	// though hasKey is false for 0x0B00 specifically). But the decoder itself
	// still does an exact-CAID key lookup via acc.keyFor, which only has a
	// key under 0x0B01 — so the permissive trigger never actually produces a
	// CW; it just changes which error comes back.
	if r := decodeECM(reg, 0x0B00, ecm, acc, cw); r != DecodeKeyNotFound {
		t.Fatalf("expected DecodeKeyNotFound: the permissive 0x0Bxx trigger only "+
			"reaches the decoder, it doesn't supply a matching key, got %v", r)
	}
}
