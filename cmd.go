package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "1.0.0" // Set during build with -ldflags
	config  *Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bytekv-server",
	Short: "bytekv - an in-memory TCP key-value cache server",
	Long: `bytekv is an in-memory key-value cache server speaking a small
binary protocol over TCP.

Features:
- PING / GET / SET over a length-prefixed binary wire protocol
- Per-entry TTL with background janitor eviction
- Sharded store for concurrent access
- Bounded connection admission`,
	Version: version,
	RunE:    runServer,
}

// runServer starts the bytekv server and blocks until a shutdown signal
// arrives.
func runServer(cmd *cobra.Command, args []string) error {
	var err error
	config, err = LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := NewLogger(config)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	logger.Info().Str("version", version).Msg("starting bytekv server")
	logger.Info().Str("config", config.String()).Msg("loaded configuration")

	store := NewStore()
	server := NewServer(config, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
		server.Stop()
		<-errCh
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
	}

	logger.Info().Msg("bytekv server stopped")
	return nil
}

// configCmd shows current configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := LoadConfig()
		if err != nil {
			return err
		}
		fmt.Println("bytekv Configuration:")
		fmt.Println(strings.Repeat("=", 31))
		fmt.Printf("Host: %s\n", config.Host)
		fmt.Printf("Port: %d\n", config.Port)
		fmt.Printf("Max Connections: %d\n", config.MaxConnections)
		fmt.Printf("Janitor Interval: %v\n", config.JanitorInterval)
		fmt.Printf("Log Level: %s\n", config.LogLevel)
		fmt.Printf("Log Format: %s\n", config.LogFormat)
		fmt.Printf("Read Timeout: %v\n", config.ReadTimeout)
		fmt.Printf("Write Timeout: %v\n", config.WriteTimeout)

		return nil
	},
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bytekv server v%s\n", version)
		fmt.Printf("Built with Go %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringP("host", "H", "localhost", "Host to bind to")
	rootCmd.PersistentFlags().IntP("port", "p", 6379, "Port to listen on")
	rootCmd.PersistentFlags().Int("max-connections", 10000, "Maximum number of concurrently admitted connections")
	rootCmd.PersistentFlags().Duration("janitor-interval", 60*time.Second, "Interval between expired-key sweeps")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	rootCmd.PersistentFlags().Duration("read-timeout", 0, "Per-connection read timeout (0 disables)")
	rootCmd.PersistentFlags().Duration("write-timeout", 0, "Per-connection write timeout (0 disables)")

	// Bind flags to viper
	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("max_connections", rootCmd.PersistentFlags().Lookup("max-connections"))
	viper.BindPFlag("janitor_interval", rootCmd.PersistentFlags().Lookup("janitor-interval"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("read_timeout", rootCmd.PersistentFlags().Lookup("read-timeout"))
	viper.BindPFlag("write_timeout", rootCmd.PersistentFlags().Lookup("write-timeout"))

	// Add subcommands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute is the main entry point for the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
