package cmd

import (
	"errors"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"zotcurate/core/bbt"
	"zotcurate/feature/extract"
	"zotcurate/feature/output"
)

var (
	keysFromFormat string
	keysToFormat   string
	keysOutput     string
	keysDelimiter  string
	keysReadField  string
	keysWriteField string
	keysOnly       bool
	keysSort       string

	keysListToFormat string
	keysListOutput   string
	keysListDelim    string
	keysListSort     string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Work with citation keys and the Better BibTeX database",
}

var keysExtractCmd = &cobra.Command{
	Use:   "extract FILES...",
	Short: "Extract citation keys from files and resolve them to Zotero item keys",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()

		extractor := extract.New(extract.Config{
			Delimiter: firstRune(keysDelimiter),
			KeyField:  keysReadField,
		}, l)
		keys, err := extractor.CollectFromFiles(args, keysFromFormat)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return errors.New("no citation keys found in input")
		}

		if keysSort == "alpha" {
			sort.SliceStable(keys, func(i, j int) bool {
				return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
			})
		}

		format, err := output.ResolveFormat(keysOutput, keysToFormat, output.FormatPlaintext)
		if err != nil {
			return err
		}
		opts := output.Options{
			Delimiter: firstRune(keysDelimiter),
			KeyField:  keysWriteField,
		}

		if keysOnly {
			text, err := output.Keys(keys, format, opts)
			if err != nil {
				return err
			}
			if err := output.Write(text, keysOutput); err != nil {
				return err
			}
			l.Info("extracted citation keys", zap.Int("count", len(keys)))
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dbPath, err := cfg.RequireBBTDatabase()
		if err != nil {
			return err
		}
		store, err := bbt.Open(dbPath, l)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		mappings, err := store.Resolve(keys, nil)
		if err != nil {
			return err
		}
		unresolved := 0
		for _, m := range mappings {
			if !m.Found {
				unresolved++
			}
		}
		l.Info("resolved citation keys",
			zap.Int("resolved", len(mappings)-unresolved),
			zap.Int("total", len(mappings)))

		text, err := output.Mappings(mappings, format, opts)
		if err != nil {
			return err
		}
		if err := output.Write(text, keysOutput); err != nil {
			return err
		}

		if unresolved > 0 {
			return &partialError{unresolved: unresolved}
		}
		return nil
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all Better BibTeX citation key records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dbPath, err := cfg.RequireBBTDatabase()
		if err != nil {
			return err
		}
		store, err := bbt.Open(dbPath, l)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		records, err := store.ReadAll()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			l.Info("no records found in better-bibtex database")
			return nil
		}
		sortRecords(records, keysListSort)

		format, err := output.ResolveFormat(keysListOutput, keysListToFormat, output.FormatPlaintext)
		if err != nil {
			return err
		}
		text, err := output.Records(records, format, output.Options{Delimiter: firstRune(keysListDelim)})
		if err != nil {
			return err
		}
		if err := output.Write(text, keysListOutput); err != nil {
			return err
		}
		l.Info("listed citation key records", zap.Int("count", len(records)))
		return nil
	},
}

func sortRecords(records []bbt.CitationKeyRecord, order string) {
	switch order {
	case "item-key":
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].ItemKey < records[j].ItemKey
		})
	case "item-id":
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].ItemID < records[j].ItemID
		})
	default:
		sort.SliceStable(records, func(i, j int) bool {
			return strings.ToLower(records[i].CitationKey) < strings.ToLower(records[j].CitationKey)
		})
	}
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func init() {
	extractFlags := keysExtractCmd.Flags()
	extractFlags.StringVarP(&keysFromFormat, "from-format", "f", "", "input format: "+strings.Join(extract.FormatNames(), ", ")+" (guessed from extension if omitted)")
	extractFlags.StringVarP(&keysToFormat, "to-format", "t", "", "output format: "+strings.Join(output.FormatNames(), ", ")+" (default plaintext)")
	extractFlags.StringVarP(&keysOutput, "output", "o", "", "output file (default stdout)")
	extractFlags.StringVar(&keysDelimiter, "delimiter", ",", "delimiter for CSV input and output")
	extractFlags.StringVar(&keysReadField, "read-citation-key-field", extract.DefaultKeyField, "citation key field name in structured input")
	extractFlags.StringVar(&keysWriteField, "write-citation-key-field", extract.DefaultKeyField, "citation key field name in structured output")
	extractFlags.BoolVar(&keysOnly, "keys-only", false, "output citation keys without resolving to Zotero item keys")
	extractFlags.StringVar(&keysSort, "sort", "alpha", "sort order: alpha or none")

	listFlags := keysListCmd.Flags()
	listFlags.StringVarP(&keysListToFormat, "to-format", "t", "", "output format: "+strings.Join(output.FormatNames(), ", ")+" (default plaintext)")
	listFlags.StringVarP(&keysListOutput, "output", "o", "", "output file (default stdout)")
	listFlags.StringVar(&keysListDelim, "delimiter", ",", "delimiter for CSV output")
	listFlags.StringVar(&keysListSort, "sort", "citation-key", "sort order: citation-key, item-key or item-id")

	keysCmd.AddCommand(keysExtractCmd)
	keysCmd.AddCommand(keysListCmd)
	RootCmd.AddCommand(keysCmd)
}
