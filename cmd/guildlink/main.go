// Copyright 2024-2026 Aiku AI

// Command guildlink relays messages between linked channels, forums and
// threads across chat guilds. Pair declarations are managed with chat
// commands, confirmed with emoji reactions and persisted in SQL.
package main

import (
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"go.mau.fi/util/dbutil"
	"go.mau.fi/zeroconfig"
	"gopkg.in/yaml.v3"

	"github.com/aiku/guildlink/pkg/gateway/mattermost"
	"github.com/aiku/guildlink/pkg/relay"
	"github.com/aiku/guildlink/pkg/store"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

//go:embed example-config.yaml
var exampleConfig string

// Config is the top-level configuration file layout.
type Config struct {
	Database dbutil.Config     `yaml:"database"`
	Logging  zeroconfig.Config `yaml:"logging"`
	Gateway  mattermost.Config `yaml:"gateway"`
	Relay    relay.Config      `yaml:"relay"`
}

var configPath string

var rootCmd = &cobra.Command{
	Use:     "guildlink",
	Short:   "Cross-guild channel, forum and thread relay",
	Version: fmt.Sprintf("%s (%s, built %s)", Tag, Commit, BuildTime),
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the chat server and start relaying",
	RunE:  runServe,
}

var generateConfigCmd = &cobra.Command{
	Use:   "generate-config",
	Short: "Write an example config file to stdout",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprint(cmd.OutOrStdout(), exampleConfig)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")
	rootCmd.AddCommand(serveCmd, generateConfigCmd)
}

func loadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := cfg.Logging.Compile()
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	log.Info().
		Str("version", Tag).
		Str("commit", Commit).
		Str("built_at", BuildTime).
		Msg("Initializing guildlink")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := dbutil.NewFromConfig("guildlink", cfg.Database, dbutil.ZeroLogger(*log))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	st := store.New(db, *log)
	if err := st.Upgrade(ctx); err != nil {
		return fmt.Errorf("failed to upgrade database schema: %w", err)
	}

	gw := mattermost.New(cfg.Gateway, *log)
	relayer := relay.New(cfg.Relay, st, gw, *log)
	if err := gw.Connect(ctx, relayer); err != nil {
		return fmt.Errorf("failed to connect to chat server: %w", err)
	}
	log.Info().Msg("guildlink is running")

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	gw.Disconnect()
	if err := st.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
