// Package root contains the root command and the shared application wiring
// every subcommand builds on.
package root

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"spendwise/importer/internal/config"
	"spendwise/importer/internal/importer"
	"spendwise/importer/internal/ledger"
	"spendwise/importer/internal/logging"
	"spendwise/importer/internal/store"
)

var (
	// Cfg is the loaded configuration, available after PersistentPreRunE.
	Cfg *config.Config

	// Log is the shared logger instance for commands.
	Log logging.Logger = logging.GetLogger()

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "spendwise",
		Short: "Extract, classify, and import personal-finance transactions.",
		Long: `spendwise turns bank notification text and exported statements into a
categorized transaction ledger. It extracts fields with per-source templates,
classifies merchants by keyword, dedupes on idempotency keys, and keeps
account balances reconciled.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("use --help to see available commands")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loadEnv()

			var err error
			Cfg, err = config.Load()
			if err != nil {
				return err
			}
			Log = config.ConfigureLogging(Cfg)
			return nil
		},
	}

	// DatabasePath overrides the configured database when set.
	DatabasePath string
)

// Init registers the root command's persistent flags.
func Init() {
	Cmd.PersistentFlags().StringVar(&DatabasePath, "db", "", "Database file (overrides configuration)")
}

// App bundles the opened services a subcommand works with.
type App struct {
	Store    *store.Store
	Ledger   *ledger.Service
	Importer *importer.Pipeline
}

// OpenApp opens the database and builds the service stack. The caller must
// Close the returned app.
func OpenApp() (*App, error) {
	path := Cfg.Database.Path
	if DatabasePath != "" {
		path = DatabasePath
	}

	s, err := store.Open(path, Log)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if err := s.SeedKeywords(); err != nil {
		s.Close()
		return nil, fmt.Errorf("seeding keywords: %w", err)
	}

	ledgerSvc := ledger.New(s, Log, Cfg.Import.FallbackCategory, Cfg.Import.FallbackSubcategory)
	pipeline := importer.New(ledgerSvc, Log,
		time.Duration(Cfg.Import.PreviewTTLMinutes)*time.Minute,
		Cfg.Import.FallbackCategory, Cfg.Import.FallbackSubcategory)

	return &App{Store: s, Ledger: ledgerSvc, Importer: pipeline}, nil
}

// Close releases the app's resources.
func (a *App) Close() {
	if err := a.Store.Close(); err != nil {
		Log.WithError(err).Warn("failed to close store")
	}
}

// Delimiter returns the configured CSV delimiter.
func Delimiter() rune {
	return []rune(Cfg.CSV.Delimiter)[0]
}

func loadEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}
