package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"zotcurate/core/config"
	"zotcurate/core/detect"
	"zotcurate/core/logger"
	"zotcurate/feature/zotero"
)

var (
	flagLibraryID   string
	flagAPIKey      string
	flagLibraryType string
	flagBBTDatabase string
	flagTimeout     int
	flagQuiet       bool
	flagVerbose     int
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "zotc",
	Short: "Zotero collection curation from citation keys",
	Long: `zotc extracts citation keys from research notes and bibliographies,
resolves them against the local Better BibTeX database, and curates Zotero
collections through the Web API. Mutating commands are dry runs unless
--execute is given.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// partialError marks a command that completed but with unresolved keys.
// It maps to exit code 2 instead of 1.
type partialError struct {
	unresolved int
}

func (e *partialError) Error() string {
	return fmt.Sprintf("%d citation keys could not be resolved", e.unresolved)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := RootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}

	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Interrupted.")
		os.Exit(130)
	}

	var partial *partialError
	if errors.As(err, &partial) {
		fmt.Fprintf(os.Stderr, "Warning: %s.\n", partial.Error())
		os.Exit(2)
	}

	// The failure report honors -q/-v like every other message: quiet
	// suppresses it entirely, -vvv adds the debug encoder's detail.
	l, logErr := newLogger()
	if logErr == nil {
		l.Error("command failed", zap.Error(err))
		_ = l.Sync()
	} else if !flagQuiet {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVarP(&flagLibraryID, "library-id", "i", "", "Zotero library ID (auto-detected if omitted)")
	flags.StringVarP(&flagAPIKey, "api-key", "k", "", "Zotero Web API key")
	flags.StringVar(&flagLibraryType, "library-type", "", "library type: user or group (default user)")
	flags.StringVarP(&flagBBTDatabase, "better-bibtex", "b", "", "path to the Better BibTeX sqlite database (auto-detected if omitted)")
	flags.IntVar(&flagTimeout, "timeout", 0, "request timeout in seconds (default 30)")
	flags.BoolVarP(&flagQuiet, "quiet", "q", false, "suppress all log output")
	flags.CountVarP(&flagVerbose, "verbose", "v", "increase log verbosity (-v warn, -vv info, -vvv debug)")
}

// newLogger builds the command logger from the global verbosity flags.
func newLogger() (*zap.Logger, error) {
	return logger.New(logger.FromVerbosity(flagQuiet, flagVerbose))
}

// loadConfig resolves configuration from flags, environment, .zotc/ files
// and defaults, then fills remaining gaps from the local Zotero install.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Flags{
		LibraryID:      flagLibraryID,
		APIKey:         flagAPIKey,
		LibraryType:    flagLibraryType,
		BBTDatabase:    flagBBTDatabase,
		TimeoutSeconds: flagTimeout,
	})
	if err != nil {
		return nil, err
	}

	if cfg.LibraryID == "" || cfg.BBTDatabase == "" {
		detected := detect.Detect()
		if cfg.LibraryID == "" {
			cfg.LibraryID = detected.LibraryID
		}
		if cfg.BBTDatabase == "" {
			cfg.BBTDatabase = detected.BBTDatabase
		}
	}
	return cfg, nil
}

// newZoteroClient builds an API client after checking the credentials are
// actually present.
func newZoteroClient(cfg *config.Config, l *zap.Logger) (*zotero.Client, error) {
	libraryID, err := cfg.RequireLibraryID()
	if err != nil {
		return nil, err
	}
	apiKey, err := cfg.RequireAPIKey()
	if err != nil {
		return nil, err
	}
	return zotero.NewClient(zotero.Config{
		LibraryID:      libraryID,
		APIKey:         apiKey,
		LibraryType:    cfg.LibraryType,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, l), nil
}
