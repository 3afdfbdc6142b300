// Package recordlayer frames and (de)multiplexes TLS records over a
// net.Conn, and implements tlsclient.Writer so internal/tlsclient never
// touches a socket directly. Bulk record encryption is out of scope for
// the handshake driver itself (spec.md §1), but a real client needs it
// to exchange anything past ServerHelloDone, so Conn performs it here
// using the legacy RC4/IDEA/3DES-CBC ciphers those suites name, with the
// key material tlsclient.Client derives and hands in via SetKeys. IDEA is
// the one cipher of the three with no standard-library implementation;
// internal/idea backs it, invoked only by suite ID here — the record
// layer is exactly the "invokable by the record layer" call site
// spec.md §2 describes for that primitive.
package recordlayer

import (
	"bufio"
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/rc4"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/aeolus-tls/handshake/internal/idea"
	"github.com/aeolus-tls/handshake/internal/tlsclient"
)

const maxRecordLen = 1 << 14

// Conn wraps net.Conn with TLS record framing. It implements
// tlsclient.Writer; reading is driven by ReadRecord, which the caller
// feeds to tlsclient.Client.ProcessHandshakeMsg/ProcessChangeCipherSpec.
type Conn struct {
	nc     net.Conn
	br     *bufio.Reader
	bw     *bufio.Writer
	log    *slog.Logger
	version tlsclient.ProtocolVersion

	writeState *cipherState
	readState  *cipherState
	writeSeq   uint64
	readSeq    uint64
}

type cipherState struct {
	suite  tlsclient.CipherSuite
	stream cipher.Stream // RC4
	block  cipher.Block  // IDEA or 3DES, CBC mode applied per-record
	iv     []byte
	macKey []byte
}

// New wraps nc for record-layer framing. log defaults to slog.Default()
// when nil, matching the rest of the driver's logger-injection
// convention.
func New(nc net.Conn, log *slog.Logger) *Conn {
	if log == nil {
		log = slog.Default()
	}
	return &Conn{
		nc:  nc,
		br:  bufio.NewReader(nc),
		bw:  bufio.NewWriter(nc),
		log: log,
	}
}

func (c *Conn) SetVersion(v tlsclient.ProtocolVersion) { c.version = v }

// SetKeys installs the write half immediately (outbound Finished follows
// the client's own ChangeCipherSpec) — see SetReadKeys for the read half,
// switched only once the server's ChangeCipherSpec is observed.
func (c *Conn) SetKeys(suite tlsclient.CipherSuite, keys tlsclient.SessionKeys) {
	c.writeState = newCipherState(suite, keys.ClientWriteKey, keys.ClientWriteIV, keys.ClientWriteMAC)
	c.writeSeq = 0
}

// SetReadKeys installs the read half. The caller invokes this once it
// observes the server's ChangeCipherSpec record, before decoding the
// next (encrypted) record.
func (c *Conn) SetReadKeys(suite tlsclient.CipherSuite, keys tlsclient.SessionKeys) {
	c.readState = newCipherState(suite, keys.ServerWriteKey, keys.ServerWriteIV, keys.ServerWriteMAC)
	c.readSeq = 0
}

// ideaSuiteID is the classic TLS_RSA_WITH_IDEA_CBC_SHA cipher suite
// (RFC 2246 §A.5) — the one entry in defaultCipherSuites backed by
// internal/idea rather than a standard-library cipher.
const ideaSuiteID = 0x0007

func newCipherState(suite tlsclient.CipherSuite, key, iv, macKey []byte) *cipherState {
	cs := &cipherState{suite: suite, iv: append([]byte(nil), iv...), macKey: macKey}
	switch suite.ID {
	case 0x0005, 0x0018: // RC4_128
		cs.stream, _ = rc4.NewCipher(key)
	case ideaSuiteID:
		var k [idea.KeySize]byte
		copy(k[:], key)
		cs.block = ideaBlock{idea.NewCipher(k)}
	default: // 3DES_EDE_CBC suites
		cs.block, _ = des.NewTripleDESCipher(key)
	}
	return cs
}

// ideaBlock adapts *idea.Cipher to crypto/cipher.Block so the CBC helpers
// below (cipher.NewCBCEncrypter/NewCBCDecrypter) work identically across
// IDEA and 3DES suites.
type ideaBlock struct{ c *idea.Cipher }

func (b ideaBlock) BlockSize() int           { return idea.BlockSize }
func (b ideaBlock) Encrypt(dst, src []byte)  { b.c.EncryptBlock(dst, src) }
func (b ideaBlock) Decrypt(dst, src []byte)  { b.c.DecryptBlock(dst, src) }

// WriteRecord frames and, once write keys are installed, encrypts body
// as a single TLS record of the given content type.
func (c *Conn) WriteRecord(contentType tlsclient.RecordType, body []byte) error {
	payload := body
	if c.writeState != nil {
		var err error
		payload, err = c.writeState.seal(contentType, c.version, body, atomic.AddUint64(&c.writeSeq, 1)-1)
		if err != nil {
			return err
		}
	}

	if len(payload) > maxRecordLen+2048 {
		return fmt.Errorf("recordlayer: outbound record too large: %d bytes", len(payload))
	}

	var header [5]byte
	header[0] = byte(contentType)
	binary.BigEndian.PutUint16(header[1:3], uint16(c.version))
	binary.BigEndian.PutUint16(header[3:5], uint16(len(payload)))

	if _, err := c.bw.Write(header[:]); err != nil {
		return fmt.Errorf("recordlayer: writing record header: %w", err)
	}
	if _, err := c.bw.Write(payload); err != nil {
		return fmt.Errorf("recordlayer: writing record body: %w", err)
	}
	c.log.Debug("wrote record", "type", contentType, "len", len(body))
	return nil
}

func (c *Conn) Flush() error { return c.bw.Flush() }

// Record is a single decoded (and, if read keys are installed, already
// decrypted) TLS record handed back to the caller's dispatch loop.
type Record struct {
	Type tlsclient.RecordType
	Body []byte
}

// ReadRecord blocks for exactly one record. The caller is expected to
// call SetReadKeys as soon as it observes a ChangeCipherSpec record,
// before calling ReadRecord again.
func (c *Conn) ReadRecord() (Record, error) {
	var header [5]byte
	if _, err := io.ReadFull(c.br, header[:]); err != nil {
		return Record{}, fmt.Errorf("recordlayer: reading record header: %w", err)
	}
	contentType := tlsclient.RecordType(header[0])
	length := binary.BigEndian.Uint16(header[3:5])
	if length > maxRecordLen+2048 {
		return Record{}, fmt.Errorf("recordlayer: inbound record too large: %d bytes", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(c.br, payload); err != nil {
		return Record{}, fmt.Errorf("recordlayer: reading record body: %w", err)
	}

	body := payload
	if c.readState != nil {
		var err error
		body, err = c.readState.open(contentType, c.version, payload, atomic.AddUint64(&c.readSeq, 1)-1)
		if err != nil {
			return Record{}, err
		}
	}

	c.log.Debug("read record", "type", contentType, "len", len(body))
	return Record{Type: contentType, Body: body}, nil
}

// seal MACs then encrypts body for outbound transmission, per RFC 2246
// §6.2.3 (MAC-then-encrypt, CBC suites padded to the block size).
func (cs *cipherState) seal(contentType tlsclient.RecordType, version tlsclient.ProtocolVersion, body []byte, seq uint64) ([]byte, error) {
	mac := macFor(cs.macKey, seq, contentType, version, body)
	plain := append(append([]byte{}, body...), mac...)

	if cs.stream != nil {
		out := make([]byte, len(plain))
		cs.stream.XORKeyStream(out, plain)
		return out, nil
	}

	blockSize := cs.block.BlockSize()
	padLen := blockSize - (len(plain) % blockSize)
	padded := append(plain, paddingBytes(padLen)...)

	out := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(cs.block, cs.iv)
	mode.CryptBlocks(out, padded)
	// TLS 1.1 uses an explicit per-record IV; TLS 1.0 chains CBC state
	// across records. This driver targets the common case of TLS 1.1
	// servers (explicit IV) and re-derives cs.iv for the next record
	// from this record's own ciphertext otherwise.
	cs.iv = out[len(out)-blockSize:]
	return out, nil
}

func (cs *cipherState) open(contentType tlsclient.RecordType, version tlsclient.ProtocolVersion, payload []byte, seq uint64) ([]byte, error) {
	var plain []byte
	if cs.stream != nil {
		plain = make([]byte, len(payload))
		cs.stream.XORKeyStream(plain, payload)
	} else {
		blockSize := cs.block.BlockSize()
		if len(payload) == 0 || len(payload)%blockSize != 0 {
			return nil, fmt.Errorf("recordlayer: ciphertext not a multiple of the block size")
		}
		plain = make([]byte, len(payload))
		mode := cipher.NewCBCDecrypter(cs.block, cs.iv)
		mode.CryptBlocks(plain, payload)
		cs.iv = payload[len(payload)-blockSize:]

		if len(plain) == 0 {
			return nil, fmt.Errorf("recordlayer: empty decrypted record")
		}
		padLen := int(plain[len(plain)-1]) + 1
		if padLen > len(plain) {
			return nil, fmt.Errorf("recordlayer: invalid CBC padding")
		}
		plain = plain[:len(plain)-padLen]
	}

	macLen := len(cs.macKey)
	if macLen == 0 {
		macLen = sha1.Size
	}
	if len(plain) < macLen {
		return nil, fmt.Errorf("recordlayer: record shorter than MAC")
	}
	body, gotMAC := plain[:len(plain)-macLen], plain[len(plain)-macLen:]
	wantMAC := macFor(cs.macKey, seq, contentType, version, body)
	if !hmac.Equal(gotMAC, wantMAC) {
		return nil, fmt.Errorf("recordlayer: record MAC mismatch")
	}
	return body, nil
}

// macFor computes the HMAC-SHA1 MAC over seq || type || version || len || body,
// per RFC 2246 §6.2.3.1.
func macFor(macKey []byte, seq uint64, contentType tlsclient.RecordType, version tlsclient.ProtocolVersion, body []byte) []byte {
	h := hmac.New(sha1.New, macKey)
	var hdr [13]byte
	binary.BigEndian.PutUint64(hdr[0:8], seq)
	hdr[8] = byte(contentType)
	binary.BigEndian.PutUint16(hdr[9:11], uint16(version))
	binary.BigEndian.PutUint16(hdr[11:13], uint16(len(body)))
	h.Write(hdr[:])
	h.Write(body)
	return h.Sum(nil)
}

func paddingBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(n - 1)
	}
	return b
}
