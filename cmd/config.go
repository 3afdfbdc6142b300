// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aeolus-tls/handshake/internal/tlsclient"
	"github.com/mitchellh/mapstructure"
)

// LogConfig mirrors the FDO server's own log section.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DatabaseConfig selects the audit log's storage backend, using the same
// type/dsn dispatch the FDO server's DatabaseConfig uses for its own
// state store.
type DatabaseConfig struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
}

func (dc *DatabaseConfig) validate() error {
	if dc.DSN == "" {
		return nil // audit logging is optional; an empty DSN disables it
	}
	dc.Type = strings.ToLower(dc.Type)
	if dc.Type != "sqlite" && dc.Type != "postgres" {
		return fmt.Errorf("unsupported audit database type: %s (must be 'sqlite' or 'postgres')", dc.Type)
	}
	return nil
}

// SuiteOverride lets a configuration file pin the ciphersuites a
// connection offers, overriding the client's compiled-in default list.
// It is filled by the same two-step raw-map decode the FDO server uses
// for ServiceInfoOperation (see decodeRawConfig). RawExtra keeps the
// entry's "extra" map as decoded; resolveSuites does not read it.
type SuiteOverride struct {
	Name     string                 `mapstructure:"name"`
	ID       uint16                 `mapstructure:"id"`
	KexType  string                 `mapstructure:"kex"`
	SigType  string                 `mapstructure:"sig"`
	RawExtra map[string]interface{} `mapstructure:"extra"`
}

// HandshakeConfig holds the handshake-engine-level settings a deployment
// can tune: minimum/preferred protocol version and the offered suite
// list.
type HandshakeConfig struct {
	MinVersion  string          `mapstructure:"min_version"`
	PrefVersion string          `mapstructure:"pref_version"`
	Suites      []SuiteOverride `mapstructure:"suites"`
}

func parseVersion(s string) (tlsclient.ProtocolVersion, error) {
	switch s {
	case "", "tls1.1":
		return tlsclient.VersionTLS11, nil
	case "tls1.0":
		return tlsclient.VersionTLS10, nil
	case "ssl3.0":
		return tlsclient.VersionSSL30, nil
	default:
		return 0, fmt.Errorf("unsupported protocol version %q (must be ssl3.0, tls1.0 or tls1.1)", s)
	}
}

func parseKexType(s string) (tlsclient.KexType, error) {
	switch strings.ToUpper(s) {
	case "", "NONE":
		return tlsclient.KexNone, nil
	case "RSA":
		return tlsclient.KexRSA, nil
	case "DH":
		return tlsclient.KexDH, nil
	default:
		return 0, fmt.Errorf("unsupported key exchange type %q", s)
	}
}

func parseSigType(s string) (tlsclient.SigType, error) {
	switch strings.ToUpper(s) {
	case "ANON":
		return tlsclient.SigAnon, nil
	case "RSA":
		return tlsclient.SigRSA, nil
	case "DSA":
		return tlsclient.SigDSA, nil
	default:
		return 0, fmt.Errorf("unsupported signature type %q", s)
	}
}

// resolveSuites turns the configuration file's suite overrides into the
// CipherSuite list the engine offers, falling back to a built-in default
// list when none are configured.
func (h *HandshakeConfig) resolveSuites() ([]tlsclient.CipherSuite, error) {
	if len(h.Suites) == 0 {
		return defaultCipherSuites(), nil
	}

	suites := make([]tlsclient.CipherSuite, 0, len(h.Suites))
	for i, raw := range h.Suites {
		kex, err := parseKexType(raw.KexType)
		if err != nil {
			return nil, fmt.Errorf("suite %d: %w", i, err)
		}
		sig, err := parseSigType(raw.SigType)
		if err != nil {
			return nil, fmt.Errorf("suite %d: %w", i, err)
		}
		if raw.Name == "" {
			return nil, fmt.Errorf("suite %d: name is required", i)
		}
		suites = append(suites, tlsclient.CipherSuite{
			ID:      raw.ID,
			KexType: kex,
			SigType: sig,
			Name:    raw.Name,
		})
	}
	return suites, nil
}

func defaultCipherSuites() []tlsclient.CipherSuite {
	return []tlsclient.CipherSuite{
		{ID: 0x0005, KexType: tlsclient.KexRSA, SigType: tlsclient.SigRSA, Name: "TLS_RSA_WITH_RC4_128_SHA"},
		{ID: 0x0007, KexType: tlsclient.KexRSA, SigType: tlsclient.SigRSA, Name: "TLS_RSA_WITH_IDEA_CBC_SHA"},
		{ID: 0x000A, KexType: tlsclient.KexRSA, SigType: tlsclient.SigRSA, Name: "TLS_RSA_WITH_3DES_EDE_CBC_SHA"},
		{ID: 0x0016, KexType: tlsclient.KexDH, SigType: tlsclient.SigRSA, Name: "TLS_DHE_RSA_WITH_3DES_EDE_CBC_SHA"},
		{ID: 0x0013, KexType: tlsclient.KexDH, SigType: tlsclient.SigDSA, Name: "TLS_DHE_DSS_WITH_3DES_EDE_CBC_SHA"},
		{ID: 0x0018, KexType: tlsclient.KexDH, SigType: tlsclient.SigAnon, Name: "TLS_DH_anon_WITH_RC4_128_MD5"},
	}
}

// ClientConfig is the top-level structure a configuration file decodes
// into, mirroring FDOServerConfig's role as the root mapstructure target.
type ClientConfig struct {
	Log       LogConfig       `mapstructure:"log"`
	Audit     DatabaseConfig  `mapstructure:"audit"`
	Handshake HandshakeConfig `mapstructure:"handshake"`
}

func (c *ClientConfig) validate() error {
	if err := c.Audit.validate(); err != nil {
		return err
	}
	if _, err := parseVersion(c.Handshake.MinVersion); err != nil {
		return err
	}
	if _, err := parseVersion(c.Handshake.PrefVersion); err != nil {
		return err
	}
	return nil
}

// decodeRawConfig is the ServiceInfoOperation-style two-step decode used
// by callers that need to reshape an already-unmarshalled map (for
// example the configuration file's "handshake" section) into a concrete
// type.
func decodeRawConfig(raw map[string]interface{}, out interface{}) error {
	if raw == nil {
		return errors.New("missing configuration section")
	}
	if err := mapstructure.Decode(raw, out); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}
