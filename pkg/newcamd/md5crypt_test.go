package newcamd

import (
	"strings"
	"testing"
)

func TestMD5CryptDeterministic(t *testing.T) {
	h1 := md5Crypt("hunter2", "abcd1234")
	h2 := md5Crypt("hunter2", "abcd1234")
	if h1 != h2 {
		t.Fatalf("md5Crypt not deterministic: %q vs %q", h1, h2)
	}
}

func TestMD5CryptFormat(t *testing.T) {
	h := md5Crypt("password", "saltsalt")
	if !strings.HasPrefix(h, "$1$saltsalt$") {
		t.Fatalf("hash %q does not start with $1$saltsalt$", h)
	}
	parts := strings.Split(h, "$")
	// "", "1", "saltsalt", "<22-char digest>"
	if len(parts) != 4 {
		t.Fatalf("hash %q has %d $-separated parts, want 4", h, len(parts))
	}
	if len(parts[3]) != 22 {
		t.Fatalf("digest portion %q has length %d, want 22", parts[3], len(parts[3]))
	}
}

func TestMD5CryptDiffersByPasswordAndSalt(t *testing.T) {
	base := md5Crypt("password", "saltsalt")
	if md5Crypt("different", "saltsalt") == base {
		t.Fatalf("different passwords produced identical hashes")
	}
	if md5Crypt("password", "othersalt") == base {
		t.Fatalf("different salts produced identical hashes")
	}
}

func TestMD5CryptTruncatesSaltToEightChars(t *testing.T) {
	h := md5Crypt("password", "012345678extra")
	if !strings.HasPrefix(h, "$1$01234567$") {
		t.Fatalf("expected salt truncated to 8 chars, got %q", h)
	}
}

func TestMD5CryptStripsDollarFromSalt(t *testing.T) {
	h := md5Crypt("password", "ab$cdefgh")
	if !strings.HasPrefix(h, "$1$ab$") {
		t.Fatalf("expected salt truncated at first '$', got %q", h)
	}
}

func TestSaltFromHashExtractsSalt(t *testing.T) {
	h := md5Crypt("password", "saltsalt")
	salt, ok := saltFromHash(h)
	if !ok {
		t.Fatalf("saltFromHash failed to parse %q", h)
	}
	if salt != "saltsalt" {
		t.Fatalf("salt = %q, want \"saltsalt\"", salt)
	}
}

func TestSaltFromHashRejectsNonMD5CryptStrings(t *testing.T) {
	if _, ok := saltFromHash("plaintextpassword"); ok {
		t.Fatalf("expected false for a non-$1$ string")
	}
}

func TestServerCanReproduceClientHash(t *testing.T) {
	// Mirrors the login verification flow: the server recomputes
	// crypt(password, salt_from_client_hash) and expects equality.
	clientHash := md5Crypt("correct-horse", "clisalt1")
	salt, ok := saltFromHash(clientHash)
	if !ok {
		t.Fatalf("expected to extract salt from client hash")
	}
	serverHash := md5Crypt("correct-horse", salt)
	if serverHash != clientHash {
		t.Fatalf("server recompute %q does not match client hash %q", serverHash, clientHash)
	}

	wrongHash := md5Crypt("wrong-password", salt)
	if wrongHash == clientHash {
		t.Fatalf("wrong password should not reproduce the client's hash")
	}
}
