package tlscrypto

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/aeolus-tls/handshake/internal/tlsclient"
)

// ClientKex implements tlsclient.KeyExchangeEncoder for both the RSA and
// DH(E) branches of cmd's default suite list.
type ClientKex struct{}

func (ClientKex) GenerateClientKeyExchange(kexPub tlsclient.KexPublicKey, clientVersion, negotiatedVersion tlsclient.ProtocolVersion, rng tlsclient.RandomSource) (preMaster, body []byte, err error) {
	switch key := kexPub.(type) {
	case tlsclient.RSAKexKey:
		return rsaClientKeyExchange(key, clientVersion, rng)
	case tlsclient.DHKexKey:
		return dhClientKeyExchange(key, rng)
	case tlsclient.AnonKexKey:
		return dhClientKeyExchange(key.DHKexKey, rng)
	default:
		return nil, nil, fmt.Errorf("tlscrypto: unsupported key exchange public key type %T", kexPub)
	}
}

// rsaClientKeyExchange builds the RFC 2246 §7.4.7.1 EncryptedPreMasterSecret:
// a 2-byte client version followed by 46 random bytes, RSA-PKCS1v15
// encrypted under the server's public key.
func rsaClientKeyExchange(key tlsclient.RSAKexKey, clientVersion tlsclient.ProtocolVersion, rng tlsclient.RandomSource) ([]byte, []byte, error) {
	preMaster := make([]byte, 48)
	binary.BigEndian.PutUint16(preMaster[0:2], uint16(clientVersion))
	copy(preMaster[2:], randomBytes(rng, 46))

	pub := &rsa.PublicKey{
		N: new(big.Int).SetBytes(key.Modulus),
		E: int(new(big.Int).SetBytes(key.Exponent).Int64()),
	}
	encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, pub, preMaster)
	if err != nil {
		return nil, nil, fmt.Errorf("tlscrypto: RSA client key exchange: %w", err)
	}

	body := make([]byte, 2+len(encrypted))
	binary.BigEndian.PutUint16(body[0:2], uint16(len(encrypted)))
	copy(body[2:], encrypted)
	return preMaster, body, nil
}

// dhClientKeyExchange generates an ephemeral Diffie-Hellman keypair,
// derives the shared secret as the pre-master secret (RFC 2246 §8.1.2),
// and encodes the client's public value as ClientDiffieHellmanPublic.
func dhClientKeyExchange(key tlsclient.DHKexKey, rng tlsclient.RandomSource) ([]byte, []byte, error) {
	p := new(big.Int).SetBytes(key.P)
	g := new(big.Int).SetBytes(key.G)
	serverY := new(big.Int).SetBytes(key.Y)

	if p.Sign() == 0 {
		return nil, nil, fmt.Errorf("tlscrypto: DH modulus is zero")
	}

	x := new(big.Int).SetBytes(randomBytes(rng, len(key.P)))
	x.Mod(x, p)

	clientY := new(big.Int).Exp(g, x, p)
	shared := new(big.Int).Exp(serverY, x, p)

	preMaster := shared.Bytes()
	yBytes := clientY.Bytes()

	body := make([]byte, 2+len(yBytes))
	binary.BigEndian.PutUint16(body[0:2], uint16(len(yBytes)))
	copy(body[2:], yBytes)
	return preMaster, body, nil
}

func randomBytes(rng tlsclient.RandomSource, n int) []byte {
	if rng != nil {
		return rng.RandomBytes(n)
	}
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}
