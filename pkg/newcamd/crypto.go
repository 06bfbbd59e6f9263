package newcamd

import (
	"crypto/des" //nolint:staticcheck // wire format requires single DES, not a choice we get to make
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
)

// KeyPair holds the two 8-byte halves used by DES-EDE2-CBC, derived either
// from the handshake seed or from the login re-key.
type KeyPair struct {
	K1 [8]byte
	K2 [8]byte
}

// desEDE2CBCEncrypt encrypts data in place under the standard newcamd
// EDE2 chain: per block, E(K1) ∘ D(K2) ∘ E(K1), CBC-chained off iv.
// len(data) must be a multiple of 8.
func desEDE2CBCEncrypt(kp KeyPair, iv [8]byte, data []byte) error {
	if len(data)%8 != 0 {
		return fmt.Errorf("newcamd: EDE2 encrypt: data length %d not block aligned", len(data))
	}
	c1, err := des.NewCipher(kp.K1[:])
	if err != nil {
		return err
	}
	c2, err := des.NewCipher(kp.K2[:])
	if err != nil {
		return err
	}
	prev := iv
	var block [8]byte
	for off := 0; off < len(data); off += 8 {
		for i := 0; i < 8; i++ {
			block[i] = data[off+i] ^ prev[i]
		}
		c1.Encrypt(block[:], block[:])
		c2.Decrypt(block[:], block[:])
		c1.Encrypt(block[:], block[:])
		copy(data[off:off+8], block[:])
		prev = block
	}
	secureZero(block[:])
	return nil
}

// desEDE2CBCDecrypt is the inverse of desEDE2CBCEncrypt: per block,
// D(K1) ∘ E(K2) ∘ D(K1), CBC-chained off iv.
func desEDE2CBCDecrypt(kp KeyPair, iv [8]byte, data []byte) error {
	if len(data)%8 != 0 {
		return fmt.Errorf("newcamd: EDE2 decrypt: data length %d not block aligned", len(data))
	}
	c1, err := des.NewCipher(kp.K1[:])
	if err != nil {
		return err
	}
	c2, err := des.NewCipher(kp.K2[:])
	if err != nil {
		return err
	}
	prev := iv
	var cipherBlock, plain [8]byte
	for off := 0; off < len(data); off += 8 {
		copy(cipherBlock[:], data[off:off+8])
		c1.Decrypt(plain[:], cipherBlock[:])
		c2.Encrypt(plain[:], plain[:])
		c1.Decrypt(plain[:], plain[:])
		for i := 0; i < 8; i++ {
			plain[i] ^= prev[i]
		}
		copy(data[off:off+8], plain[:])
		prev = cipherBlock
	}
	secureZero(plain[:])
	return nil
}

// spreadKey14to16 expands a 14-byte seed into a 16-byte DES-EDE2 key with
// odd parity in each output byte, per the wire key-spread layout in §4.1.
func spreadKey14to16(in [14]byte) [16]byte {
	var s [16]byte
	s[0] = in[0] & 0xfe
	s[1] = ((in[0] << 7) | (in[1] >> 1)) & 0xfe
	s[2] = ((in[1] << 6) | (in[2] >> 2)) & 0xfe
	s[3] = ((in[2] << 5) | (in[3] >> 3)) & 0xfe
	s[4] = ((in[3] << 4) | (in[4] >> 4)) & 0xfe
	s[5] = ((in[4] << 3) | (in[5] >> 5)) & 0xfe
	s[6] = ((in[5] << 2) | (in[6] >> 6)) & 0xfe
	s[7] = in[6] << 1
	s[8] = in[7] & 0xfe
	s[9] = ((in[7] << 7) | (in[8] >> 1)) & 0xfe
	s[10] = ((in[8] << 6) | (in[9] >> 2)) & 0xfe
	s[11] = ((in[9] << 5) | (in[10] >> 3)) & 0xfe
	s[12] = ((in[10] << 4) | (in[11] >> 4)) & 0xfe
	s[13] = ((in[11] << 3) | (in[12] >> 5)) & 0xfe
	s[14] = ((in[12] << 2) | (in[13] >> 6)) & 0xfe
	s[15] = in[13] << 1

	for i := range s {
		var parity byte
		for j := 1; j < 8; j++ {
			parity ^= (s[i] >> uint(j)) & 1
		}
		s[i] = (s[i] & 0xfe) | (parity ^ 1)
	}
	return s
}

// splitSpread splits a spread 16-byte key into the (K1, K2) halves used by
// DES-EDE2-CBC.
func splitSpread(spread [16]byte) KeyPair {
	var kp KeyPair
	copy(kp.K1[:], spread[:8])
	copy(kp.K2[:], spread[8:])
	return kp
}

// ErrInsufficientEntropy is returned when the CSPRNG produces fewer bytes
// than requested.
var ErrInsufficientEntropy = fmt.Errorf("newcamd: insufficient entropy")

// randomBytes fills buf with CSPRNG output. A short read is treated as a
// fatal entropy failure, never padded or retried silently.
func randomBytes(buf []byte) error {
	n, err := io.ReadFull(rand.Reader, buf)
	if err != nil || n != len(buf) {
		return ErrInsufficientEntropy
	}
	return nil
}

// constTimeEqual reports byte-for-byte equality without an early exit.
func constTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// constTimeStringEqual is constTimeEqual for strings, used for password
// and checksum comparisons where the transport-level lengths are public.
func constTimeStringEqual(a, b string) bool {
	return constTimeEqual([]byte(a), []byte(b))
}

// secureZero overwrites buf with zeros.
func secureZero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
