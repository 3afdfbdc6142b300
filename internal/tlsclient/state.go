package tlsclient

import (
	"crypto/md5"
	"crypto/sha1"
	"hash"
)

// handshakeState is the single-writer value owned by Client for the
// duration of one handshake, matching spec.md §3's data model exactly:
// every field is either absent or present, and presence is itself
// protocol-significant. It is created at Client construction and on an
// honored HelloRequest, and destroyed the instant the peer's Finished
// verifies (see Client.startHandshake / Client.onFinished).
//
// A rigid linear state enum (one value per row of the spec.md §4.B table)
// does not fit here: Certificate, ServerKeyExchange and
// CertificateRequest are independently optional and their preconditions
// permit more than one relative order (see "CertificateRequest ordering"
// in DESIGN.md for the one ordering this driver does *not* allow). The
// precondition table is therefore enforced directly against these
// presence flags, field by field, exactly as spec.md §4.B specifies it —
// the exhaustiveness guarantee instead comes from Client.ProcessHandshakeMsg's
// closed switch over HandshakeType.
type handshakeState struct {
	clientHello *ClientHelloMsg
	serverHello *ServerHelloMsg

	serverCerts []ParsedCertificate
	haveServerCerts bool

	serverKexPresent bool

	certReq     *CertificateRequestMsg
	haveCertReq bool

	serverHelloDoneSeen bool

	clientCertsSent   bool
	clientKexSent     bool
	clientVerifySent  bool
	clientFinishedSent bool
	serverFinishedSeen bool

	hash transcriptHash

	version ProtocolVersion
	suite   CipherSuite

	kexPub KexPublicKey

	masterSecret MasterSecret
	keys         SessionKeys

	doClientAuth bool
	gotServerCCS bool
}

// transcriptHash is the running accumulator fed by every inbound handshake
// message except ChangeCipherSpec, HelloRequest and Finished (spec.md §4.B
// "Transcript hashing policy"), and by each message the client sends,
// including its own Finished, so the server Finished is checked against a
// transcript that covers the client's. TLS 1.0/1.1 defines the handshake hash as
// the concatenation of an MD5 and a SHA-1 digest over the same byte
// stream — this mirrors the source's md5_sha1 Pipe and the Go standard
// library fork's md5SHA1Hash helper exactly.
type transcriptHash struct {
	md5  hash.Hash
	sha1 hash.Hash
}

func newTranscriptHash() transcriptHash {
	return transcriptHash{md5: md5.New(), sha1: sha1.New()}
}

func (h *transcriptHash) write(p []byte) {
	_, _ = h.md5.Write(p)
	_, _ = h.sha1.Write(p)
}

// sum returns the 36-byte MD5||SHA1 digest of everything written so far.
// hash.Hash.Sum never mutates the accumulator, so sum may be called
// mid-handshake (ServerHelloDone) and again later (Finished) without
// disturbing the running transcript.
func (h *transcriptHash) sum() []byte {
	out := h.md5.Sum(nil)
	out = h.sha1.Sum(out)
	return out
}

// feed appends msgType's 1-byte tag, the 3-byte big-endian length of body,
// and body itself to the transcript, per spec.md §4.B.
func (s *handshakeState) feed(msgType HandshakeType, body []byte) {
	var header [4]byte
	header[0] = byte(msgType)
	putUint24(header[1:4], len(body))
	s.hash.write(header[:])
	s.hash.write(body)
}
