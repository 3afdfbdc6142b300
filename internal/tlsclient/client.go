package tlsclient

import (
	"fmt"
	"log/slog"
)

// Client drives one TLS client channel from ClientHello to an active
// secure channel, enforcing the handshake state machine of spec.md §4.B.
// It is strictly single-threaded: ProcessHandshakeMsg must be called with
// one message at a time, in arrival order (spec.md §5), but independent
// Client instances are fully re-entrant with respect to each other.
type Client struct {
	writer   Writer
	policy   Policy
	rng      RandomSource
	certs    CertificateParser
	skx      ServerKeyExchangeParser
	kdf      KeyExchangeKDF
	kex      KeyExchangeEncoder
	mac      FinishedMAC
	auth     ClientAuthenticator
	data     DataSink
	log      *slog.Logger
	suites   []CipherSuite

	state  *handshakeState
	active bool

	lastSuite   CipherSuite
	lastVersion ProtocolVersion
}

// Config bundles every collaborator a Client needs. Fields with no
// sensible default (Writer, Policy, the offered suites) are required;
// Logger defaults to slog.Default() when nil.
type Config struct {
	Writer               Writer
	Policy               Policy
	RandomSource         RandomSource
	CertificateParser    CertificateParser
	ServerKexParser      ServerKeyExchangeParser
	KDF                  KeyExchangeKDF
	KeyExchangeEncoder   KeyExchangeEncoder
	FinishedMAC          FinishedMAC
	Authenticator        ClientAuthenticator
	DataSink             DataSink
	Logger               *slog.Logger
	OfferedSuites        []CipherSuite
}

// NewClient constructs a Client and immediately sends the initial
// ClientHello, matching the source's constructor behavior (Client_Hello is
// created and queued before the caller ever calls ProcessHandshakeMsg).
func NewClient(cfg Config) (*Client, error) {
	if cfg.Writer == nil || cfg.Policy == nil {
		return nil, fmt.Errorf("tlsclient: Writer and Policy are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		writer: cfg.Writer,
		policy: cfg.Policy,
		rng:    cfg.RandomSource,
		certs:  cfg.CertificateParser,
		skx:    cfg.ServerKexParser,
		kdf:    cfg.KDF,
		kex:    cfg.KeyExchangeEncoder,
		mac:    cfg.FinishedMAC,
		auth:   cfg.Authenticator,
		data:   cfg.DataSink,
		log:    logger,
		suites: cfg.OfferedSuites,
	}

	c.writer.SetVersion(cfg.Policy.PrefVersion())
	if err := c.startHandshake(); err != nil {
		return nil, err
	}
	return c, nil
}

// Active reports whether the handshake completed successfully and the
// channel is ready to carry application data.
func (c *Client) Active() bool { return c.active }

// NegotiatedSuite returns the ciphersuite agreed in ServerHello. It is
// only meaningful once Active reports true.
func (c *Client) NegotiatedSuite() CipherSuite { return c.lastSuite }

// NegotiatedVersion returns the protocol version agreed in ServerHello.
// It is only meaningful once Active reports true.
func (c *Client) NegotiatedVersion() ProtocolVersion { return c.lastVersion }

// PendingSessionKeys exposes the suite and session keys derived during
// the in-progress handshake, so the record layer can switch its read
// state the moment the server's ChangeCipherSpec is observed — before
// Finished (and the active state it produces) arrives. ok is false once
// the handshake has already completed or not yet reached
// ServerHelloDone.
func (c *Client) PendingSessionKeys() (suite CipherSuite, keys SessionKeys, ok bool) {
	if c.state == nil || !c.state.clientFinishedSent {
		return CipherSuite{}, SessionKeys{}, false
	}
	return c.state.suite, c.state.keys, true
}

// startHandshake allocates a fresh handshakeState and sends a new
// ClientHello, shared by NewClient and an honored HelloRequest.
func (c *Client) startHandshake() error {
	var random [32]byte
	if c.rng != nil {
		copy(random[:], c.rng.RandomBytes(32))
	}

	suiteIDs := make([]uint16, len(c.suites))
	for i, s := range c.suites {
		suiteIDs[i] = s.ID
	}

	hello := &ClientHelloMsg{
		Version:      c.policy.PrefVersion(),
		Random:       random,
		CipherSuites: suiteIDs,
		Compression:  []byte{0},
	}

	st := &handshakeState{
		clientHello: hello,
		hash:        newTranscriptHash(),
		version:     c.policy.PrefVersion(),
	}
	c.state = st

	body := hello.marshal()
	st.feed(ClientHello, body)
	if err := c.writer.WriteRecord(RecordHandshake, prependHeader(ClientHello, body)); err != nil {
		return err
	}
	return nil
}

func prependHeader(msgType HandshakeType, body []byte) []byte {
	out := make([]byte, 4+len(body))
	out[0] = byte(msgType)
	putUint24(out[1:4], len(body))
	copy(out[4:], body)
	return out
}

// ProcessHandshakeMsg is the sole entry point for inbound handshake
// traffic (spec.md §6). msgType and body mirror the wire type/contents with
// the record-layer length already stripped.
//
// Any violation of the spec.md §4.B state table returns a non-nil
// *HandshakeError and leaves the channel unable to process further
// handshake input until a fresh HelloRequest is honored.
func (c *Client) ProcessHandshakeMsg(msgType HandshakeType, body []byte) error {
	if c.rng != nil {
		c.rng.AddEntropy(body)
	}

	if msgType == HelloRequest {
		if c.state != nil {
			// A HelloRequest mid-handshake (client_hello already sent in
			// the current record) is rejected; spec.md §4.B HelloRequest row.
			return newHandshakeError(AlertUnexpectedMessage, "HelloRequest received with a handshake already in progress")
		}
		return c.startHandshake()
	}

	if c.state == nil {
		return newHandshakeError(AlertUnexpectedMessage, "handshake message received with no handshake in progress")
	}
	st := c.state

	// ChangeCipherSpec never reaches this method (it has its own record
	// content type and its own entry point, ProcessChangeCipherSpec);
	// Finished is excluded here because RFC 2246 §7.4.9 hashes the
	// transcript only up to, not including, the Finished message itself.
	if msgType != Finished {
		st.feed(msgType, body)
	}

	switch msgType {
	case ServerHello:
		return c.onServerHello(st, body)
	case Certificate:
		return c.onCertificate(st, body)
	case ServerKeyExchange:
		return c.onServerKeyExchange(st, body)
	case CertificateRequest:
		return c.onCertificateRequest(st, body)
	case ServerHelloDone:
		return c.onServerHelloDone(st, body)
	case Finished:
		return c.onFinished(st, body)
	default:
		return newHandshakeError(AlertUnexpectedMessage, fmt.Sprintf("unhandled handshake message type %d", msgType))
	}
}

// ProcessChangeCipherSpec handles the record-layer ChangeCipherSpec,
// which is not itself a handshake sub-message and is never fed to the
// transcript hash (spec.md §4.B ChangeCipherSpec row). Installing the
// corresponding read keys on the record layer's Reader is the record
// layer's own responsibility, performed before it hands the next
// (now-decrypted) Finished body to ProcessHandshakeMsg; this method only
// tracks the ordering constraint the driver itself must enforce.
func (c *Client) ProcessChangeCipherSpec() error {
	st := c.state
	if st == nil || !st.clientFinishedSent || st.serverFinishedSeen {
		return newHandshakeError(AlertUnexpectedMessage, "ChangeCipherSpec received out of order")
	}
	st.gotServerCCS = true
	return nil
}

func (c *Client) onServerHello(st *handshakeState, body []byte) error {
	if st.clientHello == nil || st.serverHello != nil {
		return newHandshakeError(AlertUnexpectedMessage, "ServerHello received out of order")
	}

	sh, err := parseServerHello(body)
	if err != nil {
		return wrapHandshakeError(AlertHandshakeFailure, "malformed ServerHello", err)
	}

	if !st.clientHello.offeredSuite(sh.CipherSuite) {
		return newHandshakeError(AlertHandshakeFailure, "server replied with a ciphersuite the client did not offer")
	}

	version := sh.Version
	if version > st.clientHello.Version {
		return newHandshakeError(AlertHandshakeFailure, "server replied with a version newer than offered")
	}
	if version < c.policy.MinVersion() {
		return newHandshakeError(AlertProtocolVersion, "server version is below the configured minimum")
	}

	suite, err := lookupSuite(c.suites, sh.CipherSuite)
	if err != nil {
		return wrapHandshakeError(AlertHandshakeFailure, "server selected an unknown ciphersuite", err)
	}

	st.serverHello = sh
	st.version = version
	st.suite = suite
	c.writer.SetVersion(version)
	return nil
}

func lookupSuite(offered []CipherSuite, id uint16) (CipherSuite, error) {
	for _, s := range offered {
		if s.ID == id {
			return s, nil
		}
	}
	return CipherSuite{}, fmt.Errorf("ciphersuite 0x%04x not found among offered suites", id)
}

func (c *Client) onCertificate(st *handshakeState, body []byte) error {
	if st.serverHello == nil || st.serverKexPresent || st.haveCertReq || st.serverHelloDoneSeen {
		return newHandshakeError(AlertUnexpectedMessage, "Certificate received out of order")
	}
	if st.suite.SigType == SigAnon {
		return newHandshakeError(AlertUnexpectedMessage, "certificate received from an anonymous server")
	}

	chain, err := c.certs.ParseChain(body)
	if err != nil {
		return wrapHandshakeError(AlertBadCertificate, "malformed Certificate message", err)
	}
	if len(chain) == 0 {
		return newHandshakeError(AlertHandshakeFailure, "server sent an empty certificate chain")
	}
	if !c.policy.CheckCert(chain) {
		return newHandshakeError(AlertBadCertificate, "server certificate failed policy validation")
	}

	leafKey := chain[0].PublicKey
	switch {
	case isDSA(leafKey):
		if st.suite.SigType != SigDSA {
			return newHandshakeError(AlertIllegalParameter, "certificate key type did not match ciphersuite")
		}
	case isRSA(leafKey):
		if st.suite.SigType != SigRSA {
			return newHandshakeError(AlertIllegalParameter, "certificate key type did not match ciphersuite")
		}
	default:
		return newHandshakeError(AlertUnsupportedCert, "unknown key type received in server certificate")
	}

	st.serverCerts = chain
	st.haveServerCerts = true
	st.kexPub = leafKey
	return nil
}

func (c *Client) onServerKeyExchange(st *handshakeState, body []byte) error {
	if st.serverHello == nil || st.serverKexPresent || st.haveCertReq || st.serverHelloDoneSeen {
		return newHandshakeError(AlertUnexpectedMessage, "ServerKeyExchange received out of order")
	}
	if st.suite.KexType == KexNone {
		return newHandshakeError(AlertUnexpectedMessage, "unexpected key exchange from server")
	}

	key, params, err := c.skx.ParseKey(body, st.suite.KexType)
	if err != nil {
		return wrapHandshakeError(AlertHandshakeFailure, "malformed ServerKeyExchange", err)
	}

	switch {
	case isDH(key):
		if st.suite.KexType != KexDH {
			return newHandshakeError(AlertIllegalParameter, "key type did not match ciphersuite")
		}
	case isRSA(key):
		if st.suite.KexType != KexRSA {
			return newHandshakeError(AlertIllegalParameter, "key type did not match ciphersuite")
		}
	default:
		return newHandshakeError(AlertHandshakeFailure, "unknown key type received in server key exchange")
	}

	if st.suite.SigType != SigAnon {
		if len(st.serverCerts) == 0 {
			return newHandshakeError(AlertHandshakeFailure, "signed ServerKeyExchange with no prior certificate")
		}
		// The signature follows params as its own 2-byte length prefix
		// plus that many bytes (RFC 2246 §7.4.3's "Signature" struct);
		// strip the prefix so the collaborator only ever sees raw
		// signature bytes.
		sigStart := len(params)
		if sigStart+2 > len(body) {
			return newHandshakeError(AlertDecryptError, "ServerKeyExchange signature missing")
		}
		sigLen := int(body[sigStart])<<8 | int(body[sigStart+1])
		if sigStart+2+sigLen != len(body) {
			return newHandshakeError(AlertDecryptError, "ServerKeyExchange signature length mismatch")
		}
		signature := body[sigStart+2:]
		if !c.skx.VerifySignature(st.serverCerts[0], st.clientHello.Random[:], st.serverHello.Random[:], params, signature) {
			return newHandshakeError(AlertDecryptError, "bad signature on server key exchange")
		}
	}

	st.kexPub = key
	st.serverKexPresent = true
	return nil
}

func (c *Client) onCertificateRequest(st *handshakeState, body []byte) error {
	// Resolved per spec.md §9 "Open question: CertificateRequest-after-
	// ServerKex ordering" in favor of the RFC-conformant reading: a
	// CertificateRequest is only legal once a server Certificate has been
	// seen and before any ServerKeyExchange, not interleaved after it.
	if !st.haveServerCerts || st.serverKexPresent || st.haveCertReq || st.serverHelloDoneSeen {
		return newHandshakeError(AlertUnexpectedMessage, "CertificateRequest received out of order")
	}

	req, err := parseCertificateRequest(body)
	if err != nil {
		return wrapHandshakeError(AlertHandshakeFailure, "malformed CertificateRequest", err)
	}

	st.certReq = req
	st.haveCertReq = true
	st.doClientAuth = true
	return nil
}

func (c *Client) onServerHelloDone(st *handshakeState, body []byte) error {
	if st.serverHello == nil || st.serverHelloDoneSeen {
		return newHandshakeError(AlertUnexpectedMessage, "ServerHelloDone received out of order")
	}
	if err := parseServerHelloDone(body); err != nil {
		return wrapHandshakeError(AlertHandshakeFailure, "malformed ServerHelloDone", err)
	}
	st.serverHelloDoneSeen = true

	var clientChain []CertificateDER
	var signer ClientSigner
	if st.doClientAuth {
		chain, s, err := c.auth.SelectCertificate(st.certReq.CertificateTypes, *st.certReq)
		if err != nil {
			return wrapHandshakeError(AlertHandshakeFailure, "client certificate selection failed", err)
		}
		clientChain, signer = chain, s

		certBody := buildCertificateMsg(clientChain)
		st.feed(Certificate, certBody)
		if err := c.writer.WriteRecord(RecordHandshake, prependHeader(Certificate, certBody)); err != nil {
			return err
		}
		st.clientCertsSent = true
	}

	preMaster, kexBody, err := c.kex.GenerateClientKeyExchange(st.kexPub, st.clientHello.Version, st.version, c.rng)
	if err != nil {
		return wrapHandshakeError(AlertHandshakeFailure, "client key exchange generation failed", err)
	}
	st.feed(ClientKeyExchange, kexBody)
	if err := c.writer.WriteRecord(RecordHandshake, prependHeader(ClientKeyExchange, kexBody)); err != nil {
		return err
	}
	st.clientKexSent = true

	if st.doClientAuth && len(clientChain) > 0 {
		if signer == nil {
			return newHandshakeError(AlertHandshakeFailure, "non-empty client certificate sent with no signer to verify it")
		}
		transcript := st.hash.sum()
		sig, err := signer.SignTranscript(transcript)
		if err != nil {
			return wrapHandshakeError(AlertHandshakeFailure, "CertificateVerify signing failed", err)
		}
		st.feed(CertificateVerify, sig)
		if err := c.writer.WriteRecord(RecordHandshake, prependHeader(CertificateVerify, sig)); err != nil {
			return err
		}
		st.clientVerifySent = true
	}

	master := c.kdf.DeriveMasterSecret(st.suite, st.version, preMaster, st.clientHello.Random[:], st.serverHello.Random[:])
	st.keys = c.kdf.DeriveSessionKeys(st.suite, st.version, master, st.clientHello.Random[:], st.serverHello.Random[:])

	if err := c.writer.WriteRecord(RecordChangeCipherSpec, []byte{1}); err != nil {
		return err
	}
	if err := c.writer.Flush(); err != nil {
		return err
	}
	c.writer.SetKeys(st.suite, st.keys)

	transcript := st.hash.sum()
	verifyData := c.mac.ClientVerifyData(master, st.version, transcript)
	st.feed(Finished, verifyData)
	if err := c.writer.WriteRecord(RecordHandshake, prependHeader(Finished, verifyData)); err != nil {
		return err
	}
	st.clientFinishedSent = true
	st.masterSecret = master

	return nil
}

func (c *Client) onFinished(st *handshakeState, body []byte) error {
	if !st.gotServerCCS {
		return newHandshakeError(AlertUnexpectedMessage, "Finished received before server ChangeCipherSpec")
	}
	if st.serverFinishedSeen {
		return newHandshakeError(AlertUnexpectedMessage, "duplicate server Finished")
	}

	transcript := st.hash.sum()
	expected := c.mac.ServerVerifyData(st.masterSecret, st.version, transcript)
	if !constantTimeEqual(expected, body) {
		return newHandshakeError(AlertDecryptError, "server Finished message did not verify")
	}
	st.serverFinishedSeen = true

	c.lastSuite = st.suite
	c.lastVersion = st.version
	c.state = nil
	c.active = true
	return nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
