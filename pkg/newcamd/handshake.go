package newcamd

import "io"

// Handshake holds the state derived immediately after accept: the session
// seed (retained for the login re-key) and the initial cipher key pair.
type Handshake struct {
	Seed [14]byte
	Keys KeyPair
}

// deriveHandshake computes seed = root XOR token, then spreads it into the
// initial (K1, K2) pair. Both sides of the connection run this identically.
func deriveHandshake(root, token [14]byte) Handshake {
	var seed [14]byte
	for i := range seed {
		seed[i] = root[i] ^ token[i]
	}
	spread := spreadKey14to16(seed)
	return Handshake{Seed: seed, Keys: splitSpread(spread)}
}

// ServerHandshake sends a fresh 14-byte random token in the clear and
// derives the initial cipher key pair from it and the server root key.
func ServerHandshake(w io.Writer, root [14]byte) (Handshake, error) {
	var token [14]byte
	if err := randomBytes(token[:]); err != nil {
		return Handshake{}, err
	}
	if _, err := w.Write(token[:]); err != nil {
		return Handshake{}, err
	}
	return deriveHandshake(root, token), nil
}

// reKey XORs hash cyclically (modulo 14) into the handshake seed and
// re-spreads it, producing the post-login session cipher key. hash is the
// client-sent password hash string bytes from the LOGIN frame.
func reKey(seed [14]byte, hash []byte) KeyPair {
	rekeyed := seed
	for i, b := range hash {
		rekeyed[i%14] ^= b
	}
	spread := spreadKey14to16(rekeyed)
	secureZero(rekeyed[:])
	return splitSpread(spread)
}
