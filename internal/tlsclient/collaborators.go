package tlsclient

// Writer is the record-layer collaborator that emits handshake records.
// The driver never touches a socket directly; every outbound message goes
// through WriteRecord. Flush exists separately because ChangeCipherSpec
// must hit the wire before the write keys are installed for the message
// that follows it (spec.md §4.B ServerHelloDone row).
type Writer interface {
	WriteRecord(contentType RecordType, body []byte) error
	Flush() error
	SetVersion(v ProtocolVersion)
	SetKeys(suite CipherSuite, keys SessionKeys)
}

// Reader is implemented by the record layer, not consumed by the driver
// directly (spec.md §2: "A is invokable by the record layer, not by B
// directly" applies symmetrically to the reader side) — it is declared
// here only so a concrete record layer and this package can share the
// vocabulary of ProtocolVersion/CipherSuite/SessionKeys.
type Reader interface {
	SetVersion(v ProtocolVersion)
	SetKeys(suite CipherSuite, keys SessionKeys)
}

// DataSink receives decrypted application data once the channel is active.
type DataSink interface {
	HandleApplicationData(data []byte, seq uint64)
}

// Policy supplies the version bounds and certificate-validation decision
// that are a deployment's concern, not the protocol engine's.
type Policy interface {
	MinVersion() ProtocolVersion
	PrefVersion() ProtocolVersion
	CheckCert(chain []ParsedCertificate) bool
}

// ParsedCertificate is the minimal view of an X.509 certificate the driver
// needs: its encoded form (to hand to CheckCert/logging) and its subject
// public key already classified into the KexPublicKey union. Parsing and
// validating the certificate itself is explicitly out of scope (spec.md
// §1); CertificateParser is the seam a real X.509 library plugs into.
type ParsedCertificate struct {
	Raw       CertificateDER
	PublicKey KexPublicKey
}

// CertificateParser turns the raw body of a Certificate handshake message
// into an ordered, leaf-first chain.
type CertificateParser interface {
	ParseChain(body []byte) ([]ParsedCertificate, error)
}

// ServerKeyExchangeParser turns the raw body of a ServerKeyExchange
// message into the key it carries and, for non-anonymous suites, verifies
// the signature over the client/server random and the key parameters.
type ServerKeyExchangeParser interface {
	ParseKey(body []byte, kexType KexType) (KexPublicKey, []byte, error)
	VerifySignature(leaf ParsedCertificate, clientRandom, serverRandom, params, signature []byte) bool
}

// KeyExchangeKDF is the external collaborator that turns a pre-master
// secret into a master secret and then into session keys, per spec.md
// §4.B "Session-key derivation". This package never implements a PRF
// itself.
type KeyExchangeKDF interface {
	DeriveMasterSecret(suite CipherSuite, version ProtocolVersion, preMaster, clientRandom, serverRandom []byte) MasterSecret
	DeriveSessionKeys(suite CipherSuite, version ProtocolVersion, master MasterSecret, clientRandom, serverRandom []byte) SessionKeys
}

// KeyExchangeEncoder builds the client's half of the key exchange: the
// pre-master secret and the wire-encoded ClientKeyExchange body.
type KeyExchangeEncoder interface {
	GenerateClientKeyExchange(kexPub KexPublicKey, clientVersion, negotiatedVersion ProtocolVersion, rng RandomSource) (preMaster, body []byte, err error)
}

// FinishedMAC computes and verifies the Finished message's MAC over the
// transcript hash, keyed by the master secret and the sender's role.
type FinishedMAC interface {
	ClientVerifyData(master MasterSecret, version ProtocolVersion, transcript []byte) []byte
	ServerVerifyData(master MasterSecret, version ProtocolVersion, transcript []byte) []byte
}

// RandomSource is the shared PRNG collaborator: every inbound handshake
// message contributes entropy, and the driver draws client-random and
// pre-master-secret padding bytes from it.
type RandomSource interface {
	AddEntropy(data []byte)
	RandomBytes(n int) []byte
}

// ClientAuthenticator resolves the client-authentication FIXME left open
// in spec.md §9: the caller nominates which certificate chain (possibly
// empty) and signing key to present when the server requests client auth.
type ClientAuthenticator interface {
	SelectCertificate(acceptableTypes []CertificateType, req CertificateRequestMsg) (chain []CertificateDER, signer ClientSigner, err error)
}

// ClientSigner signs the transcript hash for a CertificateVerify message.
// It is implemented by whatever private-key type matches the certificate
// ClientAuthenticator returned (RSA or DSA — DH-signed client auth is not
// defined by the protocol and is never requested here).
type ClientSigner interface {
	SignTranscript(transcript []byte) (signature []byte, err error)
}
