package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/aecwatch/internal/config"
	"github.com/dshills/aecwatch/internal/extractor"
	"github.com/dshills/aecwatch/internal/indexer"
	"github.com/dshills/aecwatch/internal/storage"
	"github.com/dshills/aecwatch/internal/watcher"
)

var (
	cfgFile    string
	rootFlag   string
	dbFlag     string
	storeFlag  string
	levelFlag  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "aecwatch",
	Short: "Watch AEC project folders and track drawing revisions",
	Long: `aecwatch watches project directories for drawings, models and documents,
classifies each file by the AEC naming convention, and keeps a metadata store
that knows which revision of every sheet is current.

Settings come from defaults, an optional YAML file (--config) and AECWATCH_*
environment variables. Flags override all three.`,
	Version:       fmt.Sprintf("%s (built %s, sqlite %s/%s)", version, buildTime, storage.BuildMode, storage.DriverName),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&rootFlag, "root", "r", "", "project root to watch or scan")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "metadata database path (default <root>/.aecwatch/index.db)")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "metadata store: sqlite or memory")
	rootCmd.PersistentFlags().StringVar(&levelFlag, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
}

// loadConfig reads the config file and environment, then applies flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Root = rootFlag
	}
	if flags.Changed("db") {
		cfg.DBPath = dbFlag
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = levelFlag
	}
	if flags.Changed("store") {
		cfg.Store = storeFlag
	}
	if dry, _ := flags.GetBool("dry-run"); dry {
		cfg.Store = config.StoreMemory
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	cfg.Root = root
	return cfg, nil
}

// newLogger logs text to stderr; stdout is reserved for command output and
// the MCP protocol
func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// app holds the wired components shared by every command
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    storage.Storage
	filter   *watcher.Filter
	pipeline *indexer.Pipeline
}

// openApp loads configuration and opens the store. Callers must Close it.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	filter, err := cfg.Filter()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	pipeline := indexer.NewPipeline(store, &indexer.Config{
		Workers:             cfg.Workers,
		FileTimeout:         cfg.FileTimeout,
		ExtractionMandatory: cfg.ExtractionMandatory,
		Extractor:           extractor.NewDefaultRegistry(),
		Logger:              logger,
	})

	logger.Debug("opened store", "store", cfg.Store, "db", cfg.ResolvedDBPath(), "driver", storage.DriverName, "mode", storage.BuildMode)
	return &app{cfg: cfg, logger: logger, store: store, filter: filter, pipeline: pipeline}, nil
}

// openStore opens the configured backend. SQLite is fronted by the read cache.
func openStore(cfg *config.Config) (storage.Storage, error) {
	if cfg.Store == config.StoreMemory {
		return storage.NewMemoryStorage(), nil
	}

	dbPath := cfg.ResolvedDBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	sqlite, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	store, err := storage.NewCachedStorage(sqlite, cfg.CacheSize)
	if err != nil {
		_ = sqlite.Close()
		return nil, err
	}
	return store, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
