package tlscrypto

import "github.com/aeolus-tls/handshake/internal/tlsclient"

// keySizes describes how many key-material bytes a suite's record-layer
// cipher needs; spec.md §1 excludes the record-layer cipher itself, but
// the key-derivation lengths it consumes are part of this seam.
type keySizes struct {
	macLen  int
	keyLen  int
	ivLen   int
}

// sizesFor returns the classic RC4/IDEA/3DES suite geometry used by
// cmd's defaultCipherSuites: a 20-byte HMAC-SHA1 MAC key, and either a
// 16-byte RC4 key with no IV, a 16-byte IDEA key with an 8-byte CBC IV, or
// a 24-byte 3DES key with an 8-byte IV.
func sizesFor(suite tlsclient.CipherSuite) keySizes {
	switch suite.ID {
	case 0x0005, 0x0018: // RC4_128
		return keySizes{macLen: 20, keyLen: 16, ivLen: 0}
	case 0x0007: // IDEA_CBC
		return keySizes{macLen: 20, keyLen: 16, ivLen: 8}
	default: // 3DES_EDE_CBC suites
		return keySizes{macLen: 20, keyLen: 24, ivLen: 8}
	}
}

// KDF implements tlsclient.KeyExchangeKDF using the TLS 1.0/1.1 PRF.
type KDF struct{}

func (KDF) DeriveMasterSecret(suite tlsclient.CipherSuite, version tlsclient.ProtocolVersion, preMaster, clientRandom, serverRandom []byte) tlsclient.MasterSecret {
	seed := append(append([]byte{}, clientRandom...), serverRandom...)
	raw := prf10(preMaster, []byte("master secret"), seed, 48)
	var out tlsclient.MasterSecret
	copy(out[:], raw)
	return out
}

func (KDF) DeriveSessionKeys(suite tlsclient.CipherSuite, version tlsclient.ProtocolVersion, master tlsclient.MasterSecret, clientRandom, serverRandom []byte) tlsclient.SessionKeys {
	sizes := sizesFor(suite)
	// key_block generation reverses the random order relative to the
	// master secret derivation, per RFC 2246 §6.3.
	seed := append(append([]byte{}, serverRandom...), clientRandom...)
	total := 2*sizes.macLen + 2*sizes.keyLen + 2*sizes.ivLen
	block := prf10(master[:], []byte("key expansion"), seed, total)

	pos := 0
	take := func(n int) []byte {
		b := block[pos : pos+n]
		pos += n
		return b
	}

	return tlsclient.SessionKeys{
		ClientWriteMAC: take(sizes.macLen),
		ServerWriteMAC: take(sizes.macLen),
		ClientWriteKey: take(sizes.keyLen),
		ServerWriteKey: take(sizes.keyLen),
		ClientWriteIV:  take(sizes.ivLen),
		ServerWriteIV:  take(sizes.ivLen),
	}
}

// FinishedMAC implements tlsclient.FinishedMAC using the same PRF, per
// RFC 2246 §7.4.9: 12 bytes derived from the master secret, a fixed
// label, and the transcript hash.
type FinishedMAC struct{}

func (FinishedMAC) ClientVerifyData(master tlsclient.MasterSecret, version tlsclient.ProtocolVersion, transcript []byte) []byte {
	return prf10(master[:], []byte("client finished"), transcript, 12)
}

func (FinishedMAC) ServerVerifyData(master tlsclient.MasterSecret, version tlsclient.ProtocolVersion, transcript []byte) []byte {
	return prf10(master[:], []byte("server finished"), transcript, 12)
}
