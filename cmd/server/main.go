package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nightjar-io/nightjar/internal/api"
	"github.com/nightjar-io/nightjar/internal/storage"
	"github.com/nightjar-io/nightjar/internal/store"
	"github.com/nightjar-io/nightjar/pkg/config"
)

var (
	configFile string
	httpAddr   string
	dbPath     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "nightjar",
	Short: "Nightjar - Multi-tenant alert store and query engine",
	Long: `Nightjar stores alerts fired by trigger evaluation, tracks their
lifecycle, and serves criteria-based queries including a boolean
tag query language.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nightjar %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path (empty runs in-memory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	cfg.Verbose = verbose

	queryTimeout, err := cfg.QueryTimeout()
	if err != nil {
		return fmt.Errorf("invalid query timeout: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the alert store, backed by SQLite when a path is set.
	var alerts *store.Store
	if cfg.Database.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0750); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}

		db := storage.NewSQLite(cfg.Database.Path)
		if err := db.Open(); err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		log.Printf("database initialized at %s", cfg.Database.Path)

		alerts, err = store.NewWithBackend(ctx, db)
		if err != nil {
			return fmt.Errorf("load alerts: %w", err)
		}
	} else {
		log.Printf("no database path configured, running in-memory")
		alerts = store.New()
	}

	apiCfg := &api.Config{
		Address:            cfg.Server.Address,
		JWTSecret:          []byte(os.Getenv("NIGHTJAR_JWT_SECRET")),
		HTTPTLSEnabled:     cfg.Server.TLS.Enabled,
		HTTPTLSCertFile:    cfg.Server.TLS.CertFile,
		HTTPTLSKeyFile:     cfg.Server.TLS.KeyFile,
		RateLimitPerTenant: cfg.API.RateLimitPerTenant,
		RateLimitBurst:     cfg.API.RateLimitBurst,
		QueryTimeout:       queryTimeout,
		Verbose:            cfg.Verbose,
	}
	if len(apiCfg.JWTSecret) == 0 {
		log.Printf("NIGHTJAR_JWT_SECRET not set, API authentication disabled")
	}

	srv, err := api.New(apiCfg, alerts)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	log.Printf("starting nightjar %s", config.Version)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}
