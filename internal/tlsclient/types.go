// Package tlsclient implements the client side of a TLS 1.0/1.1-era
// handshake state machine: strict message ordering, transcript hashing,
// and session-key derivation, with certificate parsing, signature
// verification, record-layer encryption, and the PRNG treated as external
// collaborators supplied by the caller.
package tlsclient

// ProtocolVersion is a two-byte TLS version number (major, minor).
type ProtocolVersion uint16

// Versions this driver negotiates. TLS 1.2+ is explicitly out of scope.
const (
	VersionSSL30 ProtocolVersion = 0x0300
	VersionTLS10 ProtocolVersion = 0x0301
	VersionTLS11 ProtocolVersion = 0x0302
)

func (v ProtocolVersion) String() string {
	switch v {
	case VersionSSL30:
		return "SSL3.0"
	case VersionTLS10:
		return "TLS1.0"
	case VersionTLS11:
		return "TLS1.1"
	default:
		return "unknown"
	}
}

// HandshakeType identifies a handshake sub-message, matching RFC 5246
// §7.4's HandshakeType enumeration restricted to the messages this driver
// understands.
type HandshakeType uint8

const (
	HelloRequest       HandshakeType = 0
	ClientHello        HandshakeType = 1
	ServerHello        HandshakeType = 2
	Certificate        HandshakeType = 11
	ServerKeyExchange  HandshakeType = 12
	CertificateRequest HandshakeType = 13
	ServerHelloDone    HandshakeType = 14
	CertificateVerify  HandshakeType = 15
	ClientKeyExchange  HandshakeType = 16
	Finished           HandshakeType = 20
)

func (t HandshakeType) String() string {
	switch t {
	case HelloRequest:
		return "HelloRequest"
	case ClientHello:
		return "ClientHello"
	case ServerHello:
		return "ServerHello"
	case Certificate:
		return "Certificate"
	case ServerKeyExchange:
		return "ServerKeyExchange"
	case CertificateRequest:
		return "CertificateRequest"
	case ServerHelloDone:
		return "ServerHelloDone"
	case CertificateVerify:
		return "CertificateVerify"
	case ClientKeyExchange:
		return "ClientKeyExchange"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// RecordType identifies the TLS record content type carried by Writer.
type RecordType uint8

const (
	RecordChangeCipherSpec RecordType = 20
	RecordAlert            RecordType = 21
	RecordHandshake        RecordType = 22
	RecordApplicationData  RecordType = 23
)

// KexType is the key-exchange algorithm negotiated by a CipherSuite.
type KexType uint8

const (
	KexNone KexType = iota
	KexRSA
	KexDH
)

func (k KexType) String() string {
	switch k {
	case KexNone:
		return "NoKex"
	case KexRSA:
		return "RSA"
	case KexDH:
		return "DH"
	default:
		return "unknown"
	}
}

// SigType is the signature/authentication algorithm negotiated by a
// CipherSuite.
type SigType uint8

const (
	SigAnon SigType = iota
	SigRSA
	SigDSA
)

func (s SigType) String() string {
	switch s {
	case SigAnon:
		return "Anon"
	case SigRSA:
		return "RSA"
	case SigDSA:
		return "DSA"
	default:
		return "unknown"
	}
}

// CipherSuite is the tuple of algorithms a TLS cipher suite selects. The
// symmetric cipher and MAC are carried only as opaque identifiers — their
// implementations (including a cipher suite backed by IDEA) live outside
// this package, invoked by the record layer.
type CipherSuite struct {
	ID      uint16
	KexType KexType
	SigType SigType
	Name    string
}

// CertificateType is a client certificate type offered in a
// CertificateRequest, per RFC 5246 §7.4.4.
type CertificateType uint8

const (
	CertTypeRSASign   CertificateType = 1
	CertTypeDSSSign   CertificateType = 2
	CertTypeRSAFixedDH CertificateType = 3
	CertTypeDSSFixedDH CertificateType = 4
)

// CertificateDER is a single DER-encoded X.509 certificate, uninterpreted
// by this package beyond being a byte string to hand off.
type CertificateDER []byte

// MasterSecret is the 48-byte value from which all session keys and MAC
// keys are derived.
type MasterSecret [48]byte

// SessionKeys is the symmetric key/MAC/IV material derived for the
// negotiated CipherSuite. Its layout is defined entirely by the
// KeyExchangeKDF collaborator; this package only carries it opaquely
// between ServerHelloDone and the point where it is installed into the
// reader/writer.
type SessionKeys struct {
	ClientWriteKey []byte
	ServerWriteKey []byte
	ClientWriteMAC []byte
	ServerWriteMAC []byte
	ClientWriteIV  []byte
	ServerWriteIV  []byte
}
