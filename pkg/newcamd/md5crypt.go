package newcamd

import (
	"crypto/md5" //nolint:staticcheck // POSIX MD5-crypt is a fixed wire format, not a design choice
	"strings"
)

const md5CryptMagic = "$1$"

const md5CryptTable = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// md5Crypt implements the classic POSIX "$1$salt$hash" algorithm. salt is
// cut at its first "$" and then truncated to 8 characters, matching the
// reference implementation's behavior.
func md5Crypt(password, salt string) string {
	salt = trimSalt(salt)

	h1 := md5.New()
	h1.Write([]byte(password))
	h1.Write([]byte(md5CryptMagic))
	h1.Write([]byte(salt))

	h2 := md5.New()
	h2.Write([]byte(password))
	h2.Write([]byte(salt))
	h2.Write([]byte(password))
	alt := h2.Sum(nil)

	for pl := len(password); pl > 0; pl -= 16 {
		if pl > 16 {
			h1.Write(alt)
		} else {
			h1.Write(alt[:pl])
		}
	}

	for i := len(password); i != 0; i >>= 1 {
		if i&1 != 0 {
			h1.Write([]byte{0})
		} else {
			h1.Write([]byte(password[:1]))
		}
	}
	sum := h1.Sum(nil)

	for round := 0; round < 1000; round++ {
		r := md5.New()
		if round&1 != 0 {
			r.Write([]byte(password))
		} else {
			r.Write(sum)
		}
		if round%3 != 0 {
			r.Write([]byte(salt))
		}
		if round%7 != 0 {
			r.Write([]byte(password))
		}
		if round&1 != 0 {
			r.Write(sum)
		} else {
			r.Write([]byte(password))
		}
		sum = r.Sum(nil)
	}

	var out strings.Builder
	out.WriteString(md5CryptMagic)
	out.WriteString(salt)
	out.WriteByte('$')
	out.WriteString(encode3(sum[0], sum[6], sum[12], 4))
	out.WriteString(encode3(sum[1], sum[7], sum[13], 4))
	out.WriteString(encode3(sum[2], sum[8], sum[14], 4))
	out.WriteString(encode3(sum[3], sum[9], sum[15], 4))
	out.WriteString(encode3(sum[4], sum[10], sum[5], 4))
	out.WriteString(encode3Single(sum[11], 2))
	secureZero(sum)
	return out.String()
}

// encode3 packs three bytes as v = a<<16 | b<<8 | c into n base-64-ish
// characters from md5CryptTable, emitted least-significant character first.
func encode3(a, b, c byte, n int) string {
	v := uint32(a)<<16 | uint32(b)<<8 | uint32(c)
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		buf[i] = md5CryptTable[v&0x3f]
		v >>= 6
	}
	return string(buf)
}

// encode3Single is encode3 with only a single input byte (the final,
// odd-sized group of the digest).
func encode3Single(a byte, n int) string {
	return encode3(0, 0, a, n)
}

// trimSalt cuts salt at its first "$" and truncates it to at most 8
// characters, matching how a client-chosen salt is sanitized before hashing.
func trimSalt(salt string) string {
	if i := strings.IndexByte(salt, '$'); i >= 0 {
		salt = salt[:i]
	}
	if len(salt) > 8 {
		salt = salt[:8]
	}
	return salt
}

// saltFromHash extracts the salt component of a "$1$salt$hash" string so
// the server can recompute the same hash over its own stored password.
func saltFromHash(hash string) (string, bool) {
	if !strings.HasPrefix(hash, md5CryptMagic) {
		return "", false
	}
	rest := hash[len(md5CryptMagic):]
	i := strings.IndexByte(rest, '$')
	if i < 0 {
		return "", false
	}
	return rest[:i], true
}
