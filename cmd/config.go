package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"zotcurate/core/config"
	"zotcurate/core/detect"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Flags{
			LibraryID:      flagLibraryID,
			APIKey:         flagAPIKey,
			LibraryType:    flagLibraryType,
			BBTDatabase:    flagBBTDatabase,
			TimeoutSeconds: flagTimeout,
		})
		if err != nil {
			return err
		}

		// Values missing from every explicit source fall back to the local
		// Zotero install and get annotated as such.
		detected := detect.Detect()
		libraryID, libraryNote := cfg.LibraryID, ""
		if libraryID == "" && detected.LibraryID != "" {
			libraryID, libraryNote = detected.LibraryID, " [auto-detected]"
		}
		bbtPath, bbtNote := cfg.BBTDatabase, ""
		if bbtPath == "" && detected.BBTDatabase != "" {
			bbtPath, bbtNote = detected.BBTDatabase, " [auto-detected]"
		}

		apiKey := "(not set)"
		if cfg.APIKey != "" {
			apiKey = "(set)"
		}

		dataDir := detected.DataDir
		if dataDir == "" {
			dataDir = "(not found)"
		}

		fmt.Printf("Library ID:       %s%s\n", orUnset(libraryID), libraryNote)
		fmt.Printf("Library type:     %s\n", cfg.LibraryType)
		fmt.Printf("API key:          %s\n", apiKey)
		fmt.Printf("BBT database:     %s%s\n", orUnset(bbtPath), bbtNote)
		fmt.Printf("Zotero data dir:  %s\n", dataDir)
		fmt.Printf("Timeout:          %ds\n", cfg.TimeoutSeconds)
		return nil
	},
}

func orUnset(value string) string {
	if value == "" {
		return "(not set)"
	}
	return value
}

func init() {
	RootCmd.AddCommand(configCmd)
}
