// Package tlscrypto is the concrete binding for the external
// collaborators spec.md §1 and §6 deliberately leave out of
// internal/tlsclient: X.509 parsing, RSA/DH key exchange, the TLS 1.0/1.1
// PRF and a PRNG. internal/tlsclient never imports this package; cmd
// wires them together at the edge, exactly the way spec.md §2 describes
// collaborator B being invoked by A without A depending on B's package.
package tlscrypto

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"hash"
)

// prfHash runs the P_hash expansion function of RFC 2246 §5: an HMAC
// chain over secret and seed, truncated to the requested length.
func prfHash(newHash func() hash.Hash, secret, seed []byte, n int) []byte {
	mac := hmac.New(newHash, secret)

	a := seed
	var out []byte
	for len(out) < n {
		mac.Reset()
		mac.Write(a)
		a = mac.Sum(nil)

		mac.Reset()
		mac.Write(a)
		mac.Write(seed)
		out = append(out, mac.Sum(nil)...)
	}
	return out[:n]
}

// prf10 is the TLS 1.0/1.1 pseudo-random function: the secret is split in
// two (sharing the middle byte if the length is odd) and P_MD5/P_SHA1 are
// XORed together, per RFC 2246 §5.
func prf10(secret, label, seed []byte, n int) []byte {
	combined := make([]byte, 0, len(label)+len(seed))
	combined = append(combined, label...)
	combined = append(combined, seed...)

	half := (len(secret) + 1) / 2
	s1 := secret[:half]
	s2 := secret[len(secret)-half:]

	md5Out := prfHash(md5.New, s1, combined, n)
	sha1Out := prfHash(sha1.New, s2, combined, n)

	out := make([]byte, n)
	for i := range out {
		out[i] = md5Out[i] ^ sha1Out[i]
	}
	return out
}
