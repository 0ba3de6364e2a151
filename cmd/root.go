package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/swipe/internal/events"
	"github.com/joescharf/swipe/internal/haptics"
	"github.com/joescharf/swipe/internal/logger"
	"github.com/joescharf/swipe/internal/output"
	"github.com/joescharf/swipe/internal/review"
	"github.com/joescharf/swipe/internal/store"
	"github.com/joescharf/swipe/internal/store/postgres"
	"github.com/joescharf/swipe/internal/tracing"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "swipe",
	Short: "Swipe through ghostwritten posts awaiting client approval",
	Long: `swipe runs the client review queue for ghostwritten LinkedIn posts.
Clients swipe right to approve, left to decline, and up to edit. Decisions
land instantly and are written to the store in the background, with undo.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/swipe/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "swipe")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SWIPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	setDefaults(filepath.Join(home, ".config", "swipe"))

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers a default for every config key.
func setDefaults(stateDir string) {
	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db_path", filepath.Join(stateDir, "swipe.db"))
	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.postgres_url", "")

	viper.SetDefault("gesture.direction_epsilon", 50)
	viper.SetDefault("gesture.commit_threshold", 120)

	viper.SetDefault("motion.rotation_factor", 0.08)
	viper.SetDefault("motion.max_rotation", 30)
	viper.SetDefault("motion.angular_frequency", 7.0)
	viper.SetDefault("motion.damping_ratio", 0.7)
	viper.SetDefault("motion.fly_out_factor", 1.5)
	viper.SetDefault("motion.settle_ms", 300)
	viper.SetDefault("motion.fps", 60)

	viper.SetDefault("review.notice_limit", 50)
	viper.SetDefault("review.haptics", true)
	viper.SetDefault("review.buzz_ms", 15)

	viper.SetDefault("nats.url", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stderr")
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.output", "")

	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-sonnet-4-5")
	viper.SetDefault("port", 8080)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	logCfg := logger.DefaultConfig()
	if verbose {
		logCfg.Level = "debug"
	}
	slog.SetDefault(logger.NewLogger(logCfg, nil))

	// Initialize store lazily, only when commands actually need it.
	// This allows config/version commands to run without a db.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	var (
		s   store.Store
		err error
	)
	switch driver := viper.GetString("store.driver"); driver {
	case "", "sqlite":
		s, err = store.NewSQLiteStore(viper.GetString("db_path"))
	case "postgres":
		url := viper.GetString("store.postgres_url")
		if url == "" {
			return nil, fmt.Errorf("store.postgres_url is required for the postgres driver")
		}
		s, err = postgres.New(url)
	default:
		return nil, fmt.Errorf("unknown store.driver %q (must be sqlite or postgres)", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// closeStore closes the shared store if it was opened.
func closeStore() {
	if dataStore != nil {
		_ = dataStore.Close()
		dataStore = nil
	}
}

// newPublisher connects to NATS when nats.url is set. Without it, events are dropped.
func newPublisher() events.Publisher {
	url := viper.GetString("nats.url")
	if url == "" {
		return &events.NoopPublisher{}
	}
	pub, err := events.NewNATSPublisher(url)
	if err != nil {
		ui.Warning("NATS unavailable, events disabled: %v", err)
		return &events.NoopPublisher{}
	}
	ui.VerboseLog("Publishing review events to %s", url)
	return pub
}

// initTracing installs the stdout tracer when tracing.enabled is set. The
// returned shutdown is always safe to call.
func initTracing() func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !viper.GetBool("tracing.enabled") {
		return noop
	}
	shutdown, err := tracing.Init("swipe", buildVersion, viper.GetString("tracing.output"))
	if err != nil {
		ui.Warning("Tracing disabled: %v", err)
		return noop
	}
	return shutdown
}

// newCoordinator builds a review coordinator over the shared store.
func newCoordinator(s store.Store, pub events.Publisher, opts ...review.Option) *review.Coordinator {
	var statusStore review.StatusStore = s
	if viper.GetBool("tracing.enabled") {
		statusStore = tracing.WrapStatusStore(s)
	}
	opts = append([]review.Option{
		review.WithPublisher(pub),
		review.WithLogger(slog.Default()),
	}, opts...)
	return review.New(statusStore, review.DefaultConfig(), opts...)
}

// newBuzzer rings the terminal bell when haptics are on.
func newBuzzer() review.Option {
	if !viper.GetBool("review.haptics") {
		return review.WithBuzzer(haptics.Noop{})
	}
	return review.WithBuzzer(haptics.NewBell(os.Stdout))
}
