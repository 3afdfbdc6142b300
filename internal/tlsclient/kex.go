package tlsclient

// KexPublicKey is the tagged-union replacement for the source's runtime
// type discrimination on key objects (spec.md §9, "Handshake message
// polymorphism"). state.kexPub holds exactly one of these at a time; it is
// single-owner and is replaced wholesale — never mutated in place — when a
// ServerKeyExchange supplies a fresh key.
type KexPublicKey interface {
	// kexKind reports which concrete variant this is, so the driver's
	// switch statements over KexType/SigType compatibility are exhaustive
	// without a type-switch or reflection at every call site.
	kexKind() kexKind
}

type kexKind uint8

const (
	kexKindRSA kexKind = iota
	kexKindDSA
	kexKindDH
	kexKindAnon
)

// RSAKexKey wraps an RSA public key extracted from a certificate or, for
// export-grade suites, from a ServerKeyExchange.
type RSAKexKey struct {
	Modulus  []byte
	Exponent []byte
}

func (RSAKexKey) kexKind() kexKind { return kexKindRSA }

// DSAKexKey wraps a DSA public key extracted from a certificate. DSA is
// never used for key exchange, only for signing; a DSAKexKey can appear in
// state.kexPub only transiently, between Certificate and the first
// ServerKeyExchange/ClientKeyExchange step for a DHE_DSS-style suite.
type DSAKexKey struct {
	P, Q, G, Y []byte
}

func (DSAKexKey) kexKind() kexKind { return kexKindDSA }

// DHKexKey wraps a Diffie-Hellman public key and parameters delivered by a
// ServerKeyExchange message.
type DHKexKey struct {
	P, G, Y []byte
}

func (DHKexKey) kexKind() kexKind { return kexKindDH }

// AnonKexKey marks an anonymous Diffie-Hellman exchange: a DH key with no
// accompanying signature, legal only when the negotiated suite's SigType
// is SigAnon.
type AnonKexKey struct {
	DHKexKey
}

func (AnonKexKey) kexKind() kexKind { return kexKindAnon }

// isRSA / isDSA / isDH report the concrete variant, mirroring the source's
// dynamic_cast checks (spec.md §4.B Certificate/ServerKex rows) but as a
// closed, exhaustive switch instead of runtime type assertions scattered
// through the driver.
func isRSA(k KexPublicKey) bool { return k.kexKind() == kexKindRSA }
func isDSA(k KexPublicKey) bool { return k.kexKind() == kexKindDSA }
func isDH(k KexPublicKey) bool {
	kind := k.kexKind()
	return kind == kexKindDH || kind == kexKindAnon
}
