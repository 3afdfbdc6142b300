// Package policy implements tlsclient.Policy, the deployment-level
// decisions spec.md §6 deliberately keeps out of the handshake driver:
// acceptable protocol versions and certificate-chain validation.
package policy

import (
	"crypto/x509"
	"time"

	"github.com/aeolus-tls/handshake/internal/tlsclient"
)

// Default is a tlsclient.Policy backed by the standard library's X.509
// chain verifier. Certificate parsing itself stays in
// internal/tlscrypto/certs.go; Default only judges the parsed chain.
type Default struct {
	Min    tlsclient.ProtocolVersion
	Pref   tlsclient.ProtocolVersion
	Roots  *x509.CertPool
	Server string // expected server name, checked against the leaf
	Now    func() time.Time
}

// New builds a Default policy that trusts roots for chain validation and
// checks the leaf against serverName. A nil roots pool falls back to the
// system trust store.
func New(min, pref tlsclient.ProtocolVersion, roots *x509.CertPool, serverName string) *Default {
	return &Default{Min: min, Pref: pref, Roots: roots, Server: serverName, Now: time.Now}
}

func (p *Default) MinVersion() tlsclient.ProtocolVersion  { return p.Min }
func (p *Default) PrefVersion() tlsclient.ProtocolVersion { return p.Pref }

// CheckCert verifies chain[0] (the leaf) against chain[1:] as
// intermediates, rooted at p.Roots, and checks the configured server
// name. Anonymous-suite handshakes never call CheckCert since
// tlsclient.Client skips Certificate processing for SigAnon suites.
func (p *Default) CheckCert(chain []tlsclient.ParsedCertificate) bool {
	if len(chain) == 0 {
		return false
	}

	leaf, err := x509.ParseCertificate(chain[0].Raw)
	if err != nil {
		return false
	}

	intermediates := x509.NewCertPool()
	for _, c := range chain[1:] {
		if cert, err := x509.ParseCertificate(c.Raw); err == nil {
			intermediates.AddCert(cert)
		}
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	opts := x509.VerifyOptions{
		Roots:         p.Roots,
		Intermediates: intermediates,
		CurrentTime:   now(),
		DNSName:       p.Server,
	}
	_, err = leaf.Verify(opts)
	return err == nil
}
