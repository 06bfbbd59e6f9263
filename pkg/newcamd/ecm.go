package newcamd

import "crypto/des" //nolint:staticcheck // wire format requires single DES, not a choice we get to make

// DecodeResult is the outcome of one ECM decode attempt.
type DecodeResult int

const (
	DecodeOK DecodeResult = iota
	DecodeNotSupported
	DecodeKeyNotFound
	DecodeChecksumError
)

// Decoder is the capability every CAID-family ECM scheme implements. A
// rewrite adding a new family registers another Decoder rather than
// growing a conditional fan-out in one function.
type Decoder interface {
	// Decode attempts to produce a 16-byte CW from ecm under the keys
	// configured for caid on acc. cw is zeroed by the caller before call.
	Decode(caid uint16, ecm []byte, acc *Account, cw []byte) DecodeResult
}

// decoderRegistry dispatches on the CAID's high byte, matching the
// permissive-trigger behavior of the 0x0Bxx family (§4.3).
type decoderRegistry struct {
	byHighByte map[byte]Decoder
}

func newDecoderRegistry() *decoderRegistry {
	return &decoderRegistry{
		byHighByte: map[byte]Decoder{
			0x0B: caid0B00Decoder{},
		},
	}
}

func (r *decoderRegistry) decoderFor(caid uint16) (Decoder, bool) {
	d, ok := r.byHighByte[byte(caid>>8)]
	return d, ok
}

// caid0B00Decoder implements the CAID family 0x0Bxx ECM scheme: TDES-EDE2
// ECB over a 48-byte section, byte-sum checksum, CW de-interleave.
type caid0B00Decoder struct{}

func (caid0B00Decoder) Decode(caid uint16, ecm []byte, acc *Account, cw []byte) DecodeResult {
	if len(ecm) < 7 {
		return DecodeNotSupported
	}
	slen := int(ecm[4]) - 2
	nano := ecm[5]
	if slen != 48 || nano != 0x64 {
		return DecodeNotSupported
	}
	kidx := ecm[0] & 1

	key, ok := acc.keyFor(caid, kidx)
	if !ok {
		return DecodeKeyNotFound
	}
	defer secureZero(key[:])

	sdata := ecm[7 : 7+slen]
	dec := make([]byte, slen)
	copy(dec, sdata)
	defer secureZero(dec)

	c1, err := des.NewCipher(key[0:8])
	if err != nil {
		return DecodeNotSupported
	}
	c2, err := des.NewCipher(key[8:16])
	if err != nil {
		return DecodeNotSupported
	}
	for off := 0; off < slen; off += 8 {
		block := dec[off : off+8]
		c1.Decrypt(block, block)
		c2.Encrypt(block, block)
		c1.Decrypt(block, block)
	}

	var sum byte
	for _, b := range dec[:slen-1] {
		sum += b
	}
	if dec[slen-1] != sum {
		return DecodeChecksumError
	}

	copy(cw[8:16], dec[4:12])
	copy(cw[0:8], dec[12:20])
	return DecodeOK
}

// decodeECM runs the full §4.3 policy: fake-CW bypass, then exact-key
// lookup, then the permissive 0x0Bxx trigger.
func decodeECM(reg *decoderRegistry, caid uint16, ecm []byte, acc *Account, cw []byte) DecodeResult {
	if acc.FakeCW {
		if err := randomBytes(cw); err != nil {
			return DecodeNotSupported
		}
		return DecodeOK
	}

	_, hasKey := acc.findKeyPair(caid)
	permissive := caid&0xFF00 == 0x0B00
	if !hasKey && !permissive {
		return DecodeNotSupported
	}

	d, ok := reg.decoderFor(caid)
	if !ok {
		return DecodeNotSupported
	}
	return d.Decode(caid, ecm, acc, cw)
}
