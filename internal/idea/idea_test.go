package idea

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func mustDecode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid hex %q: %v", s, err)
	}
	return b
}

// TestRFC2412Vector checks the standard IDEA test vector cited in the
// reference material: key 00010002000300040005000600070008, plaintext
// 0000000100020003, ciphertext 11fbed2b01986de5.
func TestRFC2412Vector(t *testing.T) {
	keyBytes := mustDecode(t, "00010002000300040005000600070008")
	plaintext := mustDecode(t, "0000000100020003")
	wantCipher := mustDecode(t, "11fbed2b01986de5")

	var key [KeySize]byte
	copy(key[:], keyBytes)
	c := NewCipher(key)

	got := make([]byte, BlockSize)
	c.EncryptBlock(got, plaintext)
	if !bytes.Equal(got, wantCipher) {
		t.Fatalf("EncryptBlock() = %x, want %x", got, wantCipher)
	}

	back := make([]byte, BlockSize)
	c.DecryptBlock(back, got)
	if !bytes.Equal(back, plaintext) {
		t.Fatalf("DecryptBlock(EncryptBlock(p)) = %x, want %x", back, plaintext)
	}
}

// TestEncryptDecryptRoundTrip exercises the ∀ key, ∀ block invariant from
// spec.md §8 across a handful of keys and blocks.
func TestEncryptDecryptRoundTrip(t *testing.T) {
	keys := [][KeySize]byte{
		{},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef},
	}
	blocks := [][BlockSize]byte{
		{},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		{0xde, 0xad, 0xbe, 0xef, 0xca, 0xfe, 0xba, 0xbe},
	}

	for _, key := range keys {
		c := NewCipher(key)
		for _, block := range blocks {
			enc := make([]byte, BlockSize)
			c.EncryptBlock(enc, block[:])

			dec := make([]byte, BlockSize)
			c.DecryptBlock(dec, enc)

			if !bytes.Equal(dec, block[:]) {
				t.Errorf("key=%x block=%x: decrypt(encrypt(block)) = %x", key, block, dec)
			}
		}
	}
}

// TestMulInverse checks x ⊙ mul_inv(x) ≡ 1 (mod 65537) with 0 standing in
// for 2^16, for a representative sample of the 16-bit space.
func TestMulInverse(t *testing.T) {
	samples := []uint16{0, 1, 2, 3, 7, 255, 256, 257, 32768, 65534, 65535}
	for _, x := range samples {
		inv := mulInv(x)
		got := mul(x, inv)
		if got != 1 {
			t.Errorf("mul(%d, mulInv(%d)=%d) = %d, want 1", x, x, inv, got)
		}
	}
}

func TestMulZeroIsIdentityFor2to16(t *testing.T) {
	// 0 stands in for 2^16, which is congruent to -1 modulo 65537, so
	// 2^16 ⊙ 42 ≡ -42 ≡ 65495.
	if got := mul(0, 42); got != 65495 {
		t.Errorf("mul(0, 42) = %d, want 65495 (0 represents 2^16)", got)
	}
	if got := mul(42, 0); got != 65495 {
		t.Errorf("mul(42, 0) = %d, want 65495", got)
	}
}
