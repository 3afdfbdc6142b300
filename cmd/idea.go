// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aeolus-tls/handshake/internal/idea"
)

// ideaCmd groups the IDEA block cipher self-test, the CLI-surfaced
// analogue of the FDO server's print_owner_pubkey single-purpose
// subcommand.
var ideaCmd = &cobra.Command{
	Use:   "idea",
	Short: "IDEA block cipher utilities",
}

var ideaSelftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Encrypt/decrypt the RFC 2412 IDEA test vector and report pass/fail",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIdeaSelftest(cmd)
	},
}

func init() {
	rootCmd.AddCommand(ideaCmd)
	ideaCmd.AddCommand(ideaSelftestCmd)
}

// RFC 2412 Appendix E's IDEA test vector.
const (
	selftestKeyHex        = "00010002000300040005000600070008"
	selftestPlaintextHex  = "0000000100020003"
	selftestCiphertextHex = "11fbed2b01986de5"
)

func runIdeaSelftest(cmd *cobra.Command) error {
	key, err := hex.DecodeString(selftestKeyHex)
	if err != nil {
		return err
	}
	plaintext, err := hex.DecodeString(selftestPlaintextHex)
	if err != nil {
		return err
	}
	wantCiphertext, err := hex.DecodeString(selftestCiphertextHex)
	if err != nil {
		return err
	}

	var keyArr [idea.KeySize]byte
	copy(keyArr[:], key)
	cipher := idea.NewCipher(keyArr)

	ciphertext := make([]byte, idea.BlockSize)
	cipher.EncryptBlock(ciphertext, plaintext)
	if hex.EncodeToString(ciphertext) != hex.EncodeToString(wantCiphertext) {
		return fmt.Errorf("idea selftest FAILED: got ciphertext %x, want %x", ciphertext, wantCiphertext)
	}

	roundtrip := make([]byte, idea.BlockSize)
	cipher.DecryptBlock(roundtrip, ciphertext)
	if hex.EncodeToString(roundtrip) != hex.EncodeToString(plaintext) {
		return fmt.Errorf("idea selftest FAILED: decrypt(encrypt(p)) != p")
	}

	fmt.Fprintln(cmd.OutOrStdout(), "idea selftest PASSED")
	return nil
}
