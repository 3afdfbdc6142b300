package tlscrypto

import "github.com/aeolus-tls/handshake/internal/tlsclient"

// NoClientAuth implements tlsclient.ClientAuthenticator by always
// declining: an empty certificate chain with no signer, which RFC 2246
// §7.4.6 permits as a client's response to a CertificateRequest it has
// no matching credential for.
type NoClientAuth struct{}

func (NoClientAuth) SelectCertificate(acceptableTypes []tlsclient.CertificateType, req tlsclient.CertificateRequestMsg) ([]tlsclient.CertificateDER, tlsclient.ClientSigner, error) {
	return nil, nil, nil
}
