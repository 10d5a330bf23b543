// Package config resolves the application configuration.
//
// It layers four sources with Viper, in descending precedence:
//   - command-line flags (passed in as a Flags value)
//   - environment variables (ZOTERO_LIBRARY_ID, ZOTERO_API_KEY,
//     ZOTERO_LIBRARY_TYPE, ZOTERO_BBT_DB), optionally loaded from a .env
//     file in the working directory
//   - single-value files under .zotc/ in the working directory, then home
//   - built-in defaults (library type "user", 30s request timeout)
//
// # Required settings
//
// The Require* accessors return a *MissingError describing every way to
// supply the value when it is absent. RequireBBTDatabase additionally
// verifies the database file exists on disk.
//
// # Usage
//
//	cfg, err := config.Load(config.Flags{LibraryID: flagLibraryID})
//	if err != nil {
//	    return err
//	}
//	id, err := cfg.RequireLibraryID()
package config
