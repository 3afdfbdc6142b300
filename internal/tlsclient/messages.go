package tlsclient

import (
	"encoding/binary"
	"fmt"
)

// ClientHelloMsg is the message this driver sends, either at channel
// construction or after an honored HelloRequest.
type ClientHelloMsg struct {
	Version      ProtocolVersion
	Random       [32]byte
	SessionID    []byte
	CipherSuites []uint16
	Compression  []byte
}

// offeredSuite reports whether id was included in this ClientHello, the
// check the source calls offered_suite (spec.md §4.B ServerHello row).
func (m *ClientHelloMsg) offeredSuite(id uint16) bool {
	for _, s := range m.CipherSuites {
		if s == id {
			return true
		}
	}
	return false
}

// marshal encodes the ClientHello body (the handshake type and 3-byte
// length prefix are added by the caller, matching every other message in
// this file).
func (m *ClientHelloMsg) marshal() []byte {
	body := make([]byte, 0, 2+32+1+len(m.SessionID)+2+2*len(m.CipherSuites)+1+len(m.Compression))

	var vers [2]byte
	binary.BigEndian.PutUint16(vers[:], uint16(m.Version))
	body = append(body, vers[:]...)
	body = append(body, m.Random[:]...)

	body = append(body, byte(len(m.SessionID)))
	body = append(body, m.SessionID...)

	var suiteLen [2]byte
	binary.BigEndian.PutUint16(suiteLen[:], uint16(2*len(m.CipherSuites)))
	body = append(body, suiteLen[:]...)
	for _, s := range m.CipherSuites {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], s)
		body = append(body, b[:]...)
	}

	body = append(body, byte(len(m.Compression)))
	body = append(body, m.Compression...)
	return body
}

// ServerHelloMsg is the parsed ServerHello body.
type ServerHelloMsg struct {
	Version     ProtocolVersion
	Random      [32]byte
	SessionID   []byte
	CipherSuite uint16
	Compression byte
}

func parseServerHello(body []byte) (*ServerHelloMsg, error) {
	if len(body) < 2+32+1 {
		return nil, fmt.Errorf("ServerHello too short: %d bytes", len(body))
	}
	m := &ServerHelloMsg{
		Version: ProtocolVersion(binary.BigEndian.Uint16(body[0:2])),
	}
	copy(m.Random[:], body[2:34])

	pos := 34
	sessIDLen := int(body[pos])
	pos++
	if len(body) < pos+sessIDLen+2+1 {
		return nil, fmt.Errorf("ServerHello truncated in session id")
	}
	m.SessionID = append([]byte(nil), body[pos:pos+sessIDLen]...)
	pos += sessIDLen

	m.CipherSuite = binary.BigEndian.Uint16(body[pos : pos+2])
	pos += 2

	m.Compression = body[pos]
	return m, nil
}

// CertificateRequestMsg is the parsed CertificateRequest body. The
// distinguished-name list is preserved as opaque bytes — this driver
// never needs to interpret it, only to hand it to ClientAuthenticator.
type CertificateRequestMsg struct {
	CertificateTypes []CertificateType
	CertAuthorities  []byte
}

func parseCertificateRequest(body []byte) (*CertificateRequestMsg, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("CertificateRequest too short")
	}
	n := int(body[0])
	if len(body) < 1+n {
		return nil, fmt.Errorf("CertificateRequest truncated in type list")
	}
	m := &CertificateRequestMsg{}
	for _, b := range body[1 : 1+n] {
		m.CertificateTypes = append(m.CertificateTypes, CertificateType(b))
	}
	m.CertAuthorities = append([]byte(nil), body[1+n:]...)
	return m, nil
}

// parseServerHelloDone validates that ServerHelloDone carries no body, per
// RFC 5246 §7.4.5.
func parseServerHelloDone(body []byte) error {
	if len(body) != 0 {
		return fmt.Errorf("ServerHelloDone carries unexpected %d-byte body", len(body))
	}
	return nil
}

// buildCertificateMsg wire-encodes a (possibly empty) client Certificate
// message body from a chain of DER certificates.
func buildCertificateMsg(chain []CertificateDER) []byte {
	var certs []byte
	for _, c := range chain {
		var lenBuf [3]byte
		putUint24(lenBuf[:], len(c))
		certs = append(certs, lenBuf[:]...)
		certs = append(certs, c...)
	}
	body := make([]byte, 3+len(certs))
	putUint24(body[0:3], len(certs))
	copy(body[3:], certs)
	return body
}

func putUint24(dst []byte, v int) {
	dst[0] = byte(v >> 16)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v)
}
