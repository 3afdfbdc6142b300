// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hermannm.dev/devlog"
)

var logLevel slog.LevelVar

var rootCmd = &cobra.Command{
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Use:   "handshake",
	Short: "TLS 1.0/1.1 client handshake driver and IDEA cipher toolkit",
	Long: `handshake drives a TLS 1.0/1.1 client handshake state machine against
	a remote server, and exposes the IDEA block cipher used by legacy
	ciphersuites as a standalone self-test.
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	slog.SetDefault(slog.New(devlog.NewHandler(os.Stdout, &devlog.Options{
		Level: &logLevel,
	})))

	rootCmd.PersistentFlags().Bool("debug", false, "Print debug contents")
	rootCmd.PersistentFlags().String("config", "", "Pathname of the configuration file")
	rootCmd.PersistentFlags().String("audit-db", "", "DSN for the handshake audit log database")
	rootCmd.PersistentFlags().String("audit-db-type", "sqlite", "Audit log database driver ('sqlite' or 'postgres')")
}

// rootCmdLoadConfig reads the --config file (if set) into viper, then
// assembles a ClientConfig from viper's values. connect's RunE calls it
// after its PreRunE has bound the command's flags, mirroring the
// load order the FDO server's ownerCmdLoadConfig uses for its own
// config-file-then-flags precedence.
func rootCmdLoadConfig() (ClientConfig, error) {
	if configFilePath := viper.GetString("config"); configFilePath != "" {
		slog.Debug("loading configuration file", "path", configFilePath)
		viper.SetConfigFile(configFilePath)
		if err := viper.ReadInConfig(); err != nil {
			return ClientConfig{}, fmt.Errorf("configuration file read failed: %w", err)
		}
	}

	if viper.GetBool("debug") {
		logLevel.Set(slog.LevelDebug)
	}

	cfg := ClientConfig{
		Log: LogConfig{Level: viper.GetString("log.level")},
		Audit: DatabaseConfig{
			Type: viper.GetString("audit-db-type"),
			DSN:  viper.GetString("audit-db"),
		},
		Handshake: HandshakeConfig{
			MinVersion:  viper.GetString("handshake.min_version"),
			PrefVersion: viper.GetString("handshake.pref_version"),
		},
	}

	if raw, ok := viper.Get("handshake").(map[string]interface{}); ok {
		if err := decodeRawConfig(raw, &cfg.Handshake); err != nil {
			return ClientConfig{}, fmt.Errorf("decoding handshake configuration: %w", err)
		}
	}

	return cfg, nil
}
