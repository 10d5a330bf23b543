package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration sources, in descending precedence: command-line flags,
// environment variables, single-value files under .zotc/ (working directory
// first, then home), built-in defaults.
const (
	ConfigDirName = ".zotc"

	EnvLibraryID   = "ZOTERO_LIBRARY_ID"
	EnvAPIKey      = "ZOTERO_API_KEY"
	EnvLibraryType = "ZOTERO_LIBRARY_TYPE"
	EnvBBTDatabase = "ZOTERO_BBT_DB"

	defaultLibraryType    = "user"
	defaultTimeoutSeconds = 30
)

// Flags carries the global command-line flag values into Load. Empty values
// mean "not set" and defer to lower-precedence sources.
type Flags struct {
	LibraryID      string
	APIKey         string
	LibraryType    string
	BBTDatabase    string
	TimeoutSeconds int
}

// Config holds the resolved application configuration.
type Config struct {
	// LibraryID is the numeric Zotero library identifier.
	LibraryID string
	// APIKey is the Zotero Web API key.
	APIKey string
	// LibraryType is either "user" or "group".
	LibraryType string
	// BBTDatabase is the path to the Better BibTeX sqlite database.
	BBTDatabase string
	// TimeoutSeconds bounds each remote request.
	TimeoutSeconds int
}

// MissingError reports a required setting that was not provided by any
// configuration source.
type MissingError struct {
	Setting string
	Hint    string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s required. %s", e.Setting, e.Hint)
}

// Load resolves the configuration from flags, environment variables,
// .zotc/ config files and defaults, in that order of precedence.
// A .env file in the working directory is honored if present.
func Load(flags Flags) (*Config, error) {
	_ = godotenv.Overload(".env")

	// Defaults stay out of viper so that .zotc/ files keep precedence over
	// them; viper only arbitrates the environment here.
	v := viper.New()
	_ = v.BindEnv("library_id", EnvLibraryID)
	_ = v.BindEnv("api_key", EnvAPIKey)
	_ = v.BindEnv("library_type", EnvLibraryType)
	_ = v.BindEnv("bbt_database", EnvBBTDatabase)

	cfg := &Config{
		LibraryID:      firstNonEmpty(flags.LibraryID, v.GetString("library_id"), readConfigFile("library")),
		APIKey:         firstNonEmpty(flags.APIKey, v.GetString("api_key"), readConfigFile("api-key")),
		LibraryType:    firstNonEmpty(flags.LibraryType, v.GetString("library_type"), readConfigFile("library-type"), defaultLibraryType),
		BBTDatabase:    firstNonEmpty(flags.BBTDatabase, v.GetString("bbt_database")),
		TimeoutSeconds: flags.TimeoutSeconds,
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultTimeoutSeconds
	}

	if cfg.LibraryType != "user" && cfg.LibraryType != "group" {
		return nil, fmt.Errorf("invalid library type %q (must be user or group)", cfg.LibraryType)
	}

	return cfg, nil
}

// RequireLibraryID returns the library ID or a MissingError naming every way
// to provide it.
func (c *Config) RequireLibraryID() (string, error) {
	if c.LibraryID == "" {
		return "", &MissingError{
			Setting: "Library ID",
			Hint:    fmt.Sprintf("Provide via -i/--library-id, $%s, or %s/library file.", EnvLibraryID, ConfigDirName),
		}
	}
	return c.LibraryID, nil
}

// RequireAPIKey returns the API key or a MissingError.
func (c *Config) RequireAPIKey() (string, error) {
	if c.APIKey == "" {
		return "", &MissingError{
			Setting: "API key",
			Hint:    fmt.Sprintf("Provide via -k/--api-key, $%s, or %s/api-key file.", EnvAPIKey, ConfigDirName),
		}
	}
	return c.APIKey, nil
}

// RequireBBTDatabase returns the Better BibTeX database path, verifying the
// file exists.
func (c *Config) RequireBBTDatabase() (string, error) {
	if c.BBTDatabase == "" {
		return "", &MissingError{
			Setting: "Better BibTeX database path",
			Hint:    fmt.Sprintf("Provide via -b/--better-bibtex or $%s.", EnvBBTDatabase),
		}
	}
	path := expandHome(c.BBTDatabase)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("better-bibtex database not found: %s: %w", path, err)
	}
	return path, nil
}

// readConfigFile reads a single-line value from .zotc/<name>, checking the
// working directory before the home directory.
func readConfigFile(name string) string {
	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ConfigDirName, name))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ConfigDirName, name))
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if content := strings.TrimSpace(string(data)); content != "" {
			return content
		}
	}
	return ""
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
