package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"zotcurate/core/bbt"
	"zotcurate/core/config"
	"zotcurate/feature/curate"
	"zotcurate/feature/extract"
	"zotcurate/feature/output"
	"zotcurate/feature/zotero"
)

const unresolvedPreviewLimit = 10

var (
	collListSort   string
	collListFormat string

	collFromFormat string
	collDelimiter  string
	collReadField  string
	collExecute    bool
	collOnConflict string
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Inspect and curate Zotero collections",
}

var collectionListCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List collections, optionally filtered by a regex pattern",
	Args:  cobra.MaximumNArgs(1),
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
		client, err := newZoteroClient(cfg, l)
		if err != nil {
			return err
		}

		collections, err := client.Collections(cmd.Context())
		if err != nil {
			return err
		}
		tree := zotero.BuildTree(collections)

		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}

		if collListFormat == "tree" {
			text, err := tree.Format(pattern)
			if err != nil {
				return err
			}
			return output.Write(text, "")
		}
		return renderCollectionList(tree, pattern, collListSort, collListFormat)
	},
}

// collectionEntry is one row of the flat (non-tree) list rendering.
type collectionEntry struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	ParentKey string `json:"parentKey"`
	NumItems  int    `json:"numItems"`

	path string
}

// renderCollectionList flattens the tree to full paths and renders them in
// the requested flat format. The pattern filters on the full path.
func renderCollectionList(tree *zotero.Tree, pattern, sortOrder, format string) error {
	var compiled *regexp.Regexp
	if pattern != "" {
		var err error
		compiled, err = regexp.Compile("(?i)" + pattern)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var entries []collectionEntry
	var walk func(parentKey, prefix string)
	walk = func(parentKey, prefix string) {
		for _, c := range tree.Children(parentKey) {
			path := prefix + c.Name
			if compiled == nil || compiled.MatchString(path) {
				entries = append(entries, collectionEntry{
					Key:       c.Key,
					Name:      c.Name,
					ParentKey: c.ParentKey,
					NumItems:  c.NumItems,
					path:      path,
				})
			}
			walk(c.Key, path+"/")
		}
	}
	walk("", "")

	switch sortOrder {
	case "items":
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].NumItems > entries[j].NumItems
		})
	default:
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].path) < strings.ToLower(entries[j].path)
		})
	}

	switch format {
	case "json":
		encoded, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		return output.Write(string(encoded), "")
	case "csv":
		var buf strings.Builder
		buf.WriteString("key,name,parentKey,numItems")
		for _, e := range entries {
			buf.WriteString(fmt.Sprintf("\n%s,%s,%s,%d", e.Key, e.Name, e.ParentKey, e.NumItems))
		}
		return output.Write(buf.String(), "")
	case "plaintext":
		lines := make([]string, 0, len(entries))
		for _, e := range entries {
			lines = append(lines, e.path)
		}
		return output.Write(strings.Join(lines, "\n"), "")
	default:
		return fmt.Errorf("unsupported list format %q (choose one of: tree, json, csv, plaintext)", format)
	}
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create PATH FILES...",
	Short: "Create a collection from the citation keys in FILES",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := curate.ParseConflictPolicy(collOnConflict)
		if err != nil {
			return err
		}
		return runCuration(cmd.Context(), args[0], args[1:],
			func(ctx context.Context, svc *curate.Service, req curate.Request) (curate.Report, error) {
				return svc.Create(ctx, req, policy)
			})
	},
}

var collectionAddCmd = &cobra.Command{
	Use:   "add PATH FILES...",
	Short: "Add the citation keys in FILES to an existing collection",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCuration(cmd.Context(), args[0], args[1:],
			func(ctx context.Context, svc *curate.Service, req curate.Request) (curate.Report, error) {
				return svc.Add(ctx, req)
			})
	},
}

var collectionReplaceCmd = &cobra.Command{
	Use:   "replace PATH FILES...",
	Short: "Replace a collection's items with the citation keys in FILES",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCuration(cmd.Context(), args[0], args[1:],
			func(ctx context.Context, svc *curate.Service, req curate.Request) (curate.Report, error) {
				return svc.Replace(ctx, req)
			})
	},
}

var collectionDiffCmd = &cobra.Command{
	Use:   "diff PATH FILES...",
	Short: "Show the difference between input keys and a collection's items",
	Args:  cobra.MinimumNArgs(2),
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
		itemKeys, unresolved, err := resolveInputKeys(cfg, l, args[1:])
		if err != nil {
			return err
		}
		client, err := newZoteroClient(cfg, l)
		if err != nil {
			return err
		}

		svc := curate.NewService(client, l)
		report, err := svc.Diff(cmd.Context(), curate.Request{
			Path:       args[0],
			ItemKeys:   itemKeys,
			Unresolved: unresolved,
		})
		if err != nil {
			return err
		}
		printDiff(report)
		return nil
	},
}

func printDiff(report curate.DiffReport) {
	fmt.Printf("=== Diff: input vs '%s' ===\n\n", report.Path)
	fmt.Printf("In both (%d):\n", len(report.InBoth))
	for _, k := range report.InBoth {
		fmt.Printf("  %s\n", k)
	}
	fmt.Printf("\nOnly in input (%d):\n", len(report.OnlyInput))
	for _, k := range report.OnlyInput {
		fmt.Printf("  + %s\n", k)
	}
	fmt.Printf("\nOnly in collection (%d):\n", len(report.OnlyCollection))
	for _, k := range report.OnlyCollection {
		fmt.Printf("  - %s\n", k)
	}
	if len(report.Unresolved) > 0 {
		fmt.Printf("\nUnresolved citation keys (%d):\n", len(report.Unresolved))
		for _, k := range report.Unresolved {
			fmt.Printf("  ? %s\n", k)
		}
	}
}

// runCuration is the shared body of create, add and replace.
func runCuration(
	ctx context.Context,
	path string,
	files []string,
	operation func(context.Context, *curate.Service, curate.Request) (curate.Report, error),
) error {
	l, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	itemKeys, unresolved, err := resolveInputKeys(cfg, l, files)
	if err != nil {
		return err
	}
	client, err := newZoteroClient(cfg, l)
	if err != nil {
		return err
	}

	svc := curate.NewService(client, l)
	report, err := operation(ctx, svc, curate.Request{
		Path:       path,
		ItemKeys:   itemKeys,
		Unresolved: unresolved,
		Execute:    collExecute,
	})
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

// printReport writes the human summary to stderr, prefixed for dry runs so
// a planned change can never be mistaken for an applied one.
func printReport(report curate.Report) {
	prefix := ""
	if report.Planned {
		prefix = "[DRY RUN] "
	}
	switch report.Action {
	case curate.ActionCreated:
		fmt.Fprintf(os.Stderr, "%sCreated '%s' with %d items\n", prefix, report.Path, report.Added)
	case curate.ActionAdded:
		fmt.Fprintf(os.Stderr, "%sAdded %d items to '%s'\n", prefix, report.Added, report.Path)
	case curate.ActionReplaced:
		fmt.Fprintf(os.Stderr, "%sReplaced '%s': +%d added, -%d removed\n",
			prefix, report.Path, report.Added, report.Removed)
	case curate.ActionSkipped:
		fmt.Fprintf(os.Stderr, "Collection '%s' already exists; skipped\n", report.Path)
	}
	if n := len(report.Unresolved); n > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d citation keys were not resolved.\n", n)
	}
}

// resolveInputKeys extracts citation keys from the input files and resolves
// them to Zotero item keys through the Better BibTeX database.
func resolveInputKeys(cfg *config.Config, l *zap.Logger, files []string) (itemKeys, unresolved []string, err error) {
	extractor := extract.New(extract.Config{
		Delimiter: firstRune(collDelimiter),
		KeyField:  collReadField,
	}, l)
	keys, err := extractor.CollectFromFiles(files, collFromFormat)
	if err != nil {
		return nil, nil, err
	}
	if len(keys) == 0 {
		l.Warn("no citation keys found in input")
		return nil, nil, nil
	}

	dbPath, err := cfg.RequireBBTDatabase()
	if err != nil {
		return nil, nil, err
	}
	store, err := bbt.Open(dbPath, l)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = store.Close() }()

	mappings, err := store.Resolve(keys, nil)
	if err != nil {
		return nil, nil, err
	}
	for _, m := range mappings {
		if m.Found && m.ItemKey != "" {
			itemKeys = append(itemKeys, m.ItemKey)
		} else {
			unresolved = append(unresolved, m.CitationKey)
		}
	}

	if len(unresolved) > 0 {
		preview := unresolved
		suffix := ""
		if len(preview) > unresolvedPreviewLimit {
			preview = preview[:unresolvedPreviewLimit]
			suffix = "..."
		}
		l.Warn("citation keys could not be resolved",
			zap.Int("count", len(unresolved)),
			zap.String("keys", strings.Join(preview, ", ")+suffix))
	}
	l.Info("resolved citation keys",
		zap.Int("resolved", len(itemKeys)),
		zap.Int("total", len(keys)))
	return itemKeys, unresolved, nil
}

func init() {
	listFlags := collectionListCmd.Flags()
	listFlags.StringVar(&collListSort, "sort", "name", "sort order for flat formats: name or items")
	listFlags.StringVarP(&collListFormat, "to-format", "t", "tree", "output format: tree, json, csv or plaintext")

	for _, sub := range []*cobra.Command{
		collectionCreateCmd, collectionAddCmd, collectionReplaceCmd, collectionDiffCmd,
	} {
		flags := sub.Flags()
		flags.StringVarP(&collFromFormat, "from-format", "f", "", "input format: "+strings.Join(extract.FormatNames(), ", ")+" (guessed from extension if omitted)")
		flags.StringVar(&collDelimiter, "delimiter", ",", "delimiter for CSV input")
		flags.StringVar(&collReadField, "read-citation-key-field", extract.DefaultKeyField, "citation key field name in structured input")
		if sub != collectionDiffCmd {
			flags.BoolVar(&collExecute, "execute", false, "perform the operation instead of a dry run")
		}
	}
	collectionCreateCmd.Flags().StringVar(&collOnConflict, "on-conflict", string(curate.ConflictAbort),
		"action if the collection exists: "+strings.Join(curate.ConflictPolicies(), ", "))

	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionCreateCmd)
	collectionCmd.AddCommand(collectionAddCmd)
	collectionCmd.AddCommand(collectionReplaceCmd)
	collectionCmd.AddCommand(collectionDiffCmd)
	RootCmd.AddCommand(collectionCmd)
}
