package tlscrypto

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // see certs.go
	"crypto/md5"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/asn1"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/aeolus-tls/handshake/internal/tlsclient"
)

// ServerKex implements tlsclient.ServerKeyExchangeParser for the DHE
// suites in cmd's default suite list; RSA-kex suites never carry a
// ServerKeyExchange message so ParseKey is only ever called with
// kexType == KexDH here.
type ServerKex struct{}

func (ServerKex) ParseKey(body []byte, kexType tlsclient.KexType) (tlsclient.KexPublicKey, []byte, error) {
	if kexType != tlsclient.KexDH {
		return nil, nil, fmt.Errorf("tlscrypto: unsupported ServerKeyExchange key type %s", kexType)
	}

	p, pos, err := readLengthPrefixed(body, 0)
	if err != nil {
		return nil, nil, err
	}
	g, pos, err := readLengthPrefixed(body, pos)
	if err != nil {
		return nil, nil, err
	}
	ys, pos, err := readLengthPrefixed(body, pos)
	if err != nil {
		return nil, nil, err
	}

	return tlsclient.DHKexKey{P: p, G: g, Y: ys}, body[:pos], nil
}

// readLengthPrefixed reads a 2-byte big-endian length followed by that
// many bytes, starting at off, per RFC 2246 §7.4.3's ServerDHParams.
func readLengthPrefixed(body []byte, off int) (value []byte, next int, err error) {
	if off+2 > len(body) {
		return nil, 0, fmt.Errorf("tlscrypto: ServerKeyExchange truncated in length prefix")
	}
	n := int(binary.BigEndian.Uint16(body[off : off+2]))
	off += 2
	if off+n > len(body) {
		return nil, 0, fmt.Errorf("tlscrypto: ServerKeyExchange truncated in value")
	}
	return append([]byte(nil), body[off:off+n]...), off + n, nil
}

func (ServerKex) VerifySignature(leaf tlsclient.ParsedCertificate, clientRandom, serverRandom, params, signature []byte) bool {
	signed := make([]byte, 0, len(clientRandom)+len(serverRandom)+len(params))
	signed = append(signed, clientRandom...)
	signed = append(signed, serverRandom...)
	signed = append(signed, params...)

	switch key := leaf.PublicKey.(type) {
	case tlsclient.RSAKexKey:
		pub := &rsa.PublicKey{
			N: new(big.Int).SetBytes(key.Modulus),
			E: int(new(big.Int).SetBytes(key.Exponent).Int64()),
		}
		digest := md5Sha1(signed)
		return rsa.VerifyPKCS1v15(pub, crypto.MD5SHA1, digest, signature) == nil
	case tlsclient.DSAKexKey:
		pub := &dsa.PublicKey{
			Parameters: dsa.Parameters{
				P: new(big.Int).SetBytes(key.P),
				Q: new(big.Int).SetBytes(key.Q),
				G: new(big.Int).SetBytes(key.G),
			},
			Y: new(big.Int).SetBytes(key.Y),
		}
		var sig struct{ R, S *big.Int }
		if _, err := asn1.Unmarshal(signature, &sig); err != nil {
			return false
		}
		digest := sha1.Sum(signed)
		return dsa.Verify(pub, digest[:], sig.R, sig.S)
	default:
		return false
	}
}

func md5Sha1(data []byte) []byte {
	m := md5.Sum(data)
	s := sha1.Sum(data)
	out := make([]byte, 0, len(m)+len(s))
	out = append(out, m[:]...)
	out = append(out, s[:]...)
	return out
}
