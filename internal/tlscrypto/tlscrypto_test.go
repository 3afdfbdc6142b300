package tlscrypto

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"

	"github.com/aeolus-tls/handshake/internal/tlsclient"
)

func TestPRF10IsDeterministicAndLabelSensitive(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef0123456789abcdef")
	seed := []byte("client randomserver random")

	a := prf10(secret, []byte("master secret"), seed, 48)
	b := prf10(secret, []byte("master secret"), seed, 48)
	if !bytes.Equal(a, b) {
		t.Fatal("prf10 is not deterministic for identical inputs")
	}

	c := prf10(secret, []byte("key expansion"), seed, 48)
	if bytes.Equal(a, c) {
		t.Fatal("prf10 output did not change with the label, as RFC 2246 requires")
	}
}

func TestPRF10SplitsSecretAcrossMD5AndSHA1(t *testing.T) {
	// An odd-length secret must still produce output: the two halves
	// overlap by one byte (RFC 2246 §5) rather than erroring or panicking.
	secret := []byte("odd-length-secret-material-xy")
	out := prf10(secret, []byte("test label"), []byte("some seed"), 32)
	if len(out) != 32 {
		t.Fatalf("prf10 returned %d bytes, want 32", len(out))
	}
}

func TestFinishedMACLabelsDifferClientVsServer(t *testing.T) {
	var master tlsclient.MasterSecret
	copy(master[:], bytes.Repeat([]byte{0x5A}, 48))
	transcript := []byte("handshake transcript digest")

	mac := FinishedMAC{}
	clientData := mac.ClientVerifyData(master, tlsclient.VersionTLS11, transcript)
	serverData := mac.ServerVerifyData(master, tlsclient.VersionTLS11, transcript)

	if len(clientData) != 12 || len(serverData) != 12 {
		t.Fatalf("verify data lengths = %d/%d, want 12/12", len(clientData), len(serverData))
	}
	if bytes.Equal(clientData, serverData) {
		t.Fatal("client and server Finished verify_data must differ (distinct labels)")
	}
}

func TestDeriveSessionKeysSizesMatchSuite(t *testing.T) {
	var master tlsclient.MasterSecret
	copy(master[:], bytes.Repeat([]byte{0x11}, 48))
	clientRandom := bytes.Repeat([]byte{0x01}, 32)
	serverRandom := bytes.Repeat([]byte{0x02}, 32)

	kdf := KDF{}
	rc4Suite := tlsclient.CipherSuite{ID: 0x0005}
	keys := kdf.DeriveSessionKeys(rc4Suite, tlsclient.VersionTLS10, master, clientRandom, serverRandom)
	if len(keys.ClientWriteKey) != 16 || len(keys.ClientWriteIV) != 0 {
		t.Fatalf("RC4 suite key/IV sizes = %d/%d, want 16/0", len(keys.ClientWriteKey), len(keys.ClientWriteIV))
	}
	if len(keys.ClientWriteMAC) != 20 {
		t.Fatalf("MAC key size = %d, want 20", len(keys.ClientWriteMAC))
	}

	desSuite := tlsclient.CipherSuite{ID: 0x000A}
	keys = kdf.DeriveSessionKeys(desSuite, tlsclient.VersionTLS10, master, clientRandom, serverRandom)
	if len(keys.ClientWriteKey) != 24 || len(keys.ClientWriteIV) != 8 {
		t.Fatalf("3DES suite key/IV sizes = %d/%d, want 24/8", len(keys.ClientWriteKey), len(keys.ClientWriteIV))
	}
}

type fixedRandom struct{ fill byte }

func (r fixedRandom) AddEntropy([]byte) {}
func (r fixedRandom) RandomBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = r.fill
	}
	return b
}

func TestRSAClientKeyExchangeRoundTrips(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating test RSA key: %v", err)
	}
	pub := tlsclient.RSAKexKey{
		Modulus:  priv.PublicKey.N.Bytes(),
		Exponent: big.NewInt(int64(priv.PublicKey.E)).Bytes(),
	}

	kex := ClientKex{}
	preMaster, body, err := kex.GenerateClientKeyExchange(pub, tlsclient.VersionTLS11, tlsclient.VersionTLS11, fixedRandom{fill: 0x42})
	if err != nil {
		t.Fatalf("GenerateClientKeyExchange: %v", err)
	}
	if len(preMaster) != 48 {
		t.Fatalf("pre-master secret length = %d, want 48", len(preMaster))
	}
	if preMaster[0] != 0x03 || preMaster[1] != 0x02 {
		t.Fatalf("pre-master version bytes = %x, want 0302 (TLS 1.1)", preMaster[:2])
	}

	encLen := int(body[0])<<8 | int(body[1])
	if encLen != len(body)-2 {
		t.Fatalf("encrypted pre-master length prefix = %d, body carries %d bytes", encLen, len(body)-2)
	}

	decrypted, err := rsa.DecryptPKCS1v15(rand.Reader, priv, body[2:])
	if err != nil {
		t.Fatalf("decrypting client key exchange: %v", err)
	}
	if !bytes.Equal(decrypted, preMaster) {
		t.Fatal("decrypted pre-master secret did not match the one returned to the caller")
	}
}

func TestDHClientKeyExchangeProducesMatchingSharedSecret(t *testing.T) {
	// A small but valid (p, g) pair is enough to exercise the modular
	// arithmetic; this is test fixture material, not a production DH group.
	p := big.NewInt(23)
	g := big.NewInt(5)
	serverX := big.NewInt(6)
	serverY := new(big.Int).Exp(g, serverX, p)

	serverKey := tlsclient.DHKexKey{P: p.Bytes(), G: g.Bytes(), Y: serverY.Bytes()}

	kex := ClientKex{}
	preMaster, body, err := kex.GenerateClientKeyExchange(serverKey, tlsclient.VersionTLS11, tlsclient.VersionTLS11, fixedRandom{fill: 0x03})
	if err != nil {
		t.Fatalf("GenerateClientKeyExchange: %v", err)
	}

	clientYLen := int(body[0])<<8 | int(body[1])
	clientY := new(big.Int).SetBytes(body[2 : 2+clientYLen])

	clientX := new(big.Int).SetBytes(fixedRandom{fill: 0x03}.RandomBytes(len(serverKey.P)))
	clientX.Mod(clientX, p)
	wantShared := new(big.Int).Exp(serverY, clientX, p)

	if !bytes.Equal(preMaster, wantShared.Bytes()) {
		t.Fatalf("pre-master secret = %x, want %x", preMaster, wantShared.Bytes())
	}

	serverComputedShared := new(big.Int).Exp(clientY, serverX, p)
	if !bytes.Equal(preMaster, serverComputedShared.Bytes()) {
		t.Fatalf("client and server did not derive the same shared secret: client=%x server=%x", preMaster, serverComputedShared.Bytes())
	}
}
