// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"context"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/aeolus-tls/handshake/internal/auditlog"
	"github.com/aeolus-tls/handshake/internal/policy"
	"github.com/aeolus-tls/handshake/internal/recordlayer"
	"github.com/aeolus-tls/handshake/internal/tlsclient"
	"github.com/aeolus-tls/handshake/internal/tlscrypto"
)

var (
	connectRetries int
	connectTimeout time.Duration
)

// connectCmd is the client-role analogue of the FDO server's
// owner/rendezvous serve commands: instead of listening, it dials out
// and drives one handshake to completion.
var connectCmd = &cobra.Command{
	Use:   "connect host:port",
	Short: "Drive a TLS 1.0/1.1 client handshake against a remote server",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := rootCmdLoadConfig()
		if err != nil {
			return err
		}
		if err := cfg.validate(); err != nil {
			return err
		}
		return runConnect(cmd.Context(), args[0], cfg)
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().Int("retries", 3, "Maximum redial attempts on connection failure")
	connectCmd.Flags().Duration("timeout", 10*time.Second, "Per-attempt connection timeout")
}

func runConnect(ctx context.Context, addr string, cfg ClientConfig) error {
	connectRetries = viper.GetInt("retries")
	connectTimeout = viper.GetDuration("timeout")

	var auditor *auditlog.Log
	if cfg.Audit.DSN != "" {
		var err error
		auditor, err = auditlog.Open(cfg.Audit.Type, cfg.Audit.DSN)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer func() { _ = auditor.Close() }()
	}

	// Reconnect attempts are rate-limited rather than retried in a tight
	// loop, the same role golang.org/x/time/rate plays for the FDO
	// server's own redial paths.
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)

	var lastErr error
	for attempt := 0; attempt <= connectRetries; attempt++ {
		if attempt > 0 {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			slog.Info("retrying connection", "attempt", attempt, "addr", addr)
		}

		started := time.Now()
		err := connectOnce(ctx, addr, cfg, auditor, started)
		if err == nil {
			return nil
		}
		lastErr = err
		slog.Warn("handshake attempt failed", "attempt", attempt, "err", err)
	}
	return fmt.Errorf("connect: exhausted %d retries: %w", connectRetries, lastErr)
}

func connectOnce(ctx context.Context, addr string, cfg ClientConfig, auditor *auditlog.Log, started time.Time) error {
	dialer := net.Dialer{Timeout: connectTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() { _ = nc.Close() }()

	host, _, _ := net.SplitHostPort(addr)
	conn := recordlayer.New(nc, slog.Default())

	minVersion, err := parseVersion(cfg.Handshake.MinVersion)
	if err != nil {
		return err
	}
	prefVersion, err := parseVersion(cfg.Handshake.PrefVersion)
	if err != nil {
		return err
	}
	pol := policy.New(minVersion, prefVersion, systemRoots(), host)

	suites, err := cfg.Handshake.resolveSuites()
	if err != nil {
		return err
	}

	rng := tlscrypto.NewRandom()
	client, err := tlsclient.NewClient(tlsclient.Config{
		Writer:             conn,
		Policy:             pol,
		RandomSource:       rng,
		CertificateParser:  tlscrypto.CertParser{},
		ServerKexParser:    tlscrypto.ServerKex{},
		KDF:                tlscrypto.KDF{},
		KeyExchangeEncoder: tlscrypto.ClientKex{},
		FinishedMAC:        tlscrypto.FinishedMAC{},
		Authenticator:      tlscrypto.NoClientAuth{},
		Logger:             slog.Default(),
		OfferedSuites:      suites,
	})
	if err != nil {
		return fmt.Errorf("constructing handshake client: %w", err)
	}
	if err := conn.Flush(); err != nil {
		return err
	}

	for !client.Active() {
		rec, err := conn.ReadRecord()
		if err != nil {
			recordFailure(auditor, addr, 0, err.Error(), started)
			return err
		}

		switch rec.Type {
		case tlsclient.RecordChangeCipherSpec:
			if err := client.ProcessChangeCipherSpec(); err != nil {
				recordFailure(auditor, addr, uint8(err.(*tlsclient.HandshakeError).Code), err.Error(), started)
				return err
			}
			// Switching read keys here, after ProcessChangeCipherSpec
			// validates ordering but before the next ReadRecord call, is
			// why SetReadKeys lives on recordlayer.Conn rather than on
			// the tlsclient.Writer interface: the driver never sees the
			// read-side key material directly, only the suite it agreed.
			if suite, keys, ok := client.PendingSessionKeys(); ok {
				conn.SetReadKeys(suite, keys)
			}
		case tlsclient.RecordHandshake:
			msgType, body, err := splitHandshakeMessage(rec.Body)
			if err != nil {
				return err
			}
			if err := client.ProcessHandshakeMsg(msgType, body); err != nil {
				if he, ok := err.(*tlsclient.HandshakeError); ok {
					recordFailure(auditor, addr, uint8(he.Code), err.Error(), started)
				}
				return err
			}
		case tlsclient.RecordAlert:
			return fmt.Errorf("connect: received alert record: %x", rec.Body)
		default:
			return fmt.Errorf("connect: unexpected record type %d before handshake completion", rec.Type)
		}
	}

	suiteName := client.NegotiatedSuite().Name
	slog.Info("handshake complete", "addr", addr, "suite", suiteName, "version", client.NegotiatedVersion())
	if auditor != nil {
		_ = auditor.RecordSuccess(addr, client.NegotiatedVersion().String(), suiteName, started, time.Now())
	}
	return nil
}

func recordFailure(auditor *auditlog.Log, addr string, code uint8, msg string, started time.Time) {
	if auditor == nil {
		return
	}
	_ = auditor.RecordFailure(addr, code, msg, started, time.Now())
}

// splitHandshakeMessage peels the 1-byte type and 3-byte length prefix
// off a single handshake message; a record may carry more than one
// message, but this driver only ever sees one per record in practice
// since its own writes and the expected server flights never coalesce.
func splitHandshakeMessage(data []byte) (tlsclient.HandshakeType, []byte, error) {
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("connect: handshake record too short for a message header")
	}
	msgType := tlsclient.HandshakeType(data[0])
	length := int(data[1])<<16 | int(data[2])<<8 | int(data[3])
	if 4+length > len(data) {
		return 0, nil, fmt.Errorf("connect: handshake message length exceeds record body")
	}
	return msgType, data[4 : 4+length], nil
}

func systemRoots() *x509.CertPool {
	roots, err := x509.SystemCertPool()
	if err != nil || roots == nil {
		return x509.NewCertPool()
	}
	return roots
}
