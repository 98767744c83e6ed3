// thermlog - capability telemetry logger
//
// This is the main entry point for the thermlog daemon. It polls the
// capabilities of enrolled participants on a drift-corrected schedule and
// writes one header per route and one row per tick to the selected routes
// (console, file, debugger, system event log, WebSocket stream).
//
// Participants arrive over MQTT; the session is controlled through the
// command topic or the REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	_ "github.com/nerrad567/thermlog/migrations"

	"github.com/nerrad567/thermlog/internal/infrastructure/config"
	"github.com/nerrad567/thermlog/internal/infrastructure/database"
	"github.com/nerrad567/thermlog/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// options holds the parsed command line.
type options struct {
	configPath  string
	issueToken  string
	role        string
	showVersion bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Printf("thermlog %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	if opts.issueToken != "" {
		if err := issueToken(os.Stdout, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses args (without the program name).
func parseFlags(args []string) (options, error) {
	var opts options

	flagSet := pflag.NewFlagSet("thermlog", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML configuration file (default: $THERMLOG_CONFIG or "+defaultConfigPath+")")
	flagSet.StringVar(&opts.issueToken, "issue-token", "", "print an API token for this subject and exit")
	flagSet.StringVar(&opts.role, "role", "operator", "role granted by --issue-token (viewer, operator, admin)")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print the version and exit")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return opts, nil
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Parsed command line
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, opts options) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting thermlog",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	app, err := build(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer app.shutdown()

	if err := app.start(ctx); err != nil {
		return err
	}

	if err := healthCheck(ctx, app); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	log.Info("thermlog stopped")
	return nil
}

// getConfigPath returns the configuration file path: the flag value, else
// THERMLOG_CONFIG, else the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("THERMLOG_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies every enabled infrastructure connection.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - app: Wired application
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, app *application) error {
	if err := app.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if app.mqtt != nil {
		if err := app.mqtt.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if app.influx != nil {
		if err := app.influx.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
