package tlscrypto

import (
	"crypto/dsa" //nolint:staticcheck // DSA certificates are part of the legacy suite set this driver targets
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"math/big"

	"github.com/aeolus-tls/handshake/internal/tlsclient"
)

// CertParser implements tlsclient.CertificateParser using the standard
// library's X.509 decoder. spec.md §1 excludes certificate parsing from
// the handshake driver itself; this is the concrete binding cmd wires in
// at the edge.
type CertParser struct{}

func (CertParser) ParseChain(body []byte) ([]tlsclient.ParsedCertificate, error) {
	certs, err := parseCertificateListBody(body)
	if err != nil {
		return nil, err
	}

	out := make([]tlsclient.ParsedCertificate, 0, len(certs))
	for _, raw := range certs {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return nil, fmt.Errorf("tlscrypto: parsing certificate: %w", err)
		}
		pub, err := classifyPublicKey(cert.PublicKey)
		if err != nil {
			return nil, err
		}
		out = append(out, tlsclient.ParsedCertificate{Raw: raw, PublicKey: pub})
	}
	return out, nil
}

// parseCertificateListBody decodes the wire format of a TLS Certificate
// handshake message body: a 3-byte total length, then a sequence of
// (3-byte length, DER bytes) entries, per RFC 2246 §7.4.2.
func parseCertificateListBody(body []byte) ([]tlsclient.CertificateDER, error) {
	if len(body) < 3 {
		return nil, fmt.Errorf("tlscrypto: Certificate message too short")
	}
	total := int(body[0])<<16 | int(body[1])<<8 | int(body[2])
	pos := 3
	if pos+total > len(body) {
		return nil, fmt.Errorf("tlscrypto: Certificate message truncated")
	}

	var out []tlsclient.CertificateDER
	end := pos + total
	for pos < end {
		if pos+3 > end {
			return nil, fmt.Errorf("tlscrypto: Certificate list truncated in entry length")
		}
		certLen := int(body[pos])<<16 | int(body[pos+1])<<8 | int(body[pos+2])
		pos += 3
		if pos+certLen > end {
			return nil, fmt.Errorf("tlscrypto: Certificate list truncated in entry body")
		}
		out = append(out, append([]byte(nil), body[pos:pos+certLen]...))
		pos += certLen
	}
	return out, nil
}

func classifyPublicKey(pub interface{}) (tlsclient.KexPublicKey, error) {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		return tlsclient.RSAKexKey{
			Modulus:  key.N.Bytes(),
			Exponent: big.NewInt(int64(key.E)).Bytes(),
		}, nil
	case *dsa.PublicKey:
		return tlsclient.DSAKexKey{
			P: key.P.Bytes(),
			Q: key.Q.Bytes(),
			G: key.G.Bytes(),
			Y: key.Y.Bytes(),
		}, nil
	default:
		return nil, fmt.Errorf("tlscrypto: unsupported certificate key type %T", pub)
	}
}
