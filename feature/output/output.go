package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"zotcurate/core/bbt"
)

// Format identifies an output encoding. The set is closed: rendering
// dispatches through per-format tables, so an unknown value can only come
// from ParseFormat rejecting it first.
type Format int

const (
	FormatPlaintext Format = iota
	FormatCSV
	FormatTSV
	FormatJSON
	FormatYAML
)

var formatNames = map[Format]string{
	FormatPlaintext: "plaintext",
	FormatCSV:       "csv",
	FormatTSV:       "tsv",
	FormatJSON:      "json",
	FormatYAML:      "yaml",
}

var extensionFormats = map[string]Format{
	".csv":  FormatCSV,
	".tsv":  FormatTSV,
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
	".txt":  FormatPlaintext,
	".text": FormatPlaintext,
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatNames lists the accepted output format names.
func FormatNames() []string {
	return []string{"plaintext", "csv", "tsv", "json", "yaml"}
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for format, formatName := range formatNames {
		if name == formatName {
			return format, nil
		}
	}
	return 0, fmt.Errorf("unsupported output format %q (choose one of: %s)",
		s, strings.Join(FormatNames(), ", "))
}

// DetectFormat guesses an output format from a file extension.
func DetectFormat(path string) (Format, bool) {
	format, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]
	return format, ok
}

// ResolveFormat picks the output format: an explicit flag wins, then the
// outfile extension, then the fallback.
func ResolveFormat(outfile, explicit string, fallback Format) (Format, error) {
	if explicit != "" {
		return ParseFormat(explicit)
	}
	if outfile != "" {
		if format, ok := DetectFormat(outfile); ok {
			return format, nil
		}
	}
	return fallback, nil
}

// Options tunes delimited and structured rendering.
type Options struct {
	// Delimiter is the CSV column separator.
	Delimiter rune
	// KeyField names the citation-key column in structured output.
	KeyField string
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

func (o Options) keyField() string {
	if o.KeyField == "" {
		return "citation-key"
	}
	return o.KeyField
}

// Mappings renders citation-key resolution results.
func Mappings(mappings []bbt.KeyMapping, format Format, opts Options) (string, error) {
	renderers := map[Format]func([]bbt.KeyMapping, Options) (string, error){
		FormatPlaintext: mappingsPlaintext,
		FormatCSV:       mappingsDelimited,
		FormatTSV:       mappingsDelimited,
		FormatJSON:      mappingsJSON,
		FormatYAML:      mappingsYAML,
	}
	render, ok := renderers[format]
	if !ok {
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
	if format == FormatTSV {
		opts.Delimiter = '\t'
	}
	return render(mappings, opts)
}

func mappingsPlaintext(mappings []bbt.KeyMapping, _ Options) (string, error) {
	lines := make([]string, 0, len(mappings))
	for _, m := range mappings {
		status := m.ItemKey
		if !m.Found {
			status = "NOT_FOUND"
		}
		lines = append(lines, m.CitationKey+"\t"+status)
	}
	return strings.Join(lines, "\n"), nil
}

func mappingsDelimited(mappings []bbt.KeyMapping, opts Options) (string, error) {
	rows := [][]string{{opts.keyField(), "itemKey", "found"}}
	for _, m := range mappings {
		rows = append(rows, []string{m.CitationKey, m.ItemKey, strconv.FormatBool(m.Found)})
	}
	return writeDelimited(rows, opts.delimiter())
}

func mappingsJSON(mappings []bbt.KeyMapping, opts Options) (string, error) {
	return marshalJSON(mappingValues(mappings, opts))
}

func mappingsYAML(mappings []bbt.KeyMapping, opts Options) (string, error) {
	return marshalYAML(mappingValues(mappings, opts))
}

// mappingValues builds the generic rows shared by JSON and YAML, keeping
// the citation-key column under the user-chosen field name. An unresolved
// key gets a null itemKey rather than an empty string.
func mappingValues(mappings []bbt.KeyMapping, opts Options) []map[string]any {
	values := make([]map[string]any, 0, len(mappings))
	for _, m := range mappings {
		var itemKey any
		if m.Found {
			itemKey = m.ItemKey
		}
		values = append(values, map[string]any{
			opts.keyField(): m.CitationKey,
			"itemKey":       itemKey,
			"found":         m.Found,
		})
	}
	return values
}

// Records renders full citation-key database rows.
func Records(records []bbt.CitationKeyRecord, format Format, opts Options) (string, error) {
	renderers := map[Format]func([]bbt.CitationKeyRecord, Options) (string, error){
		FormatPlaintext: recordsPlaintext,
		FormatCSV:       recordsDelimited,
		FormatTSV:       recordsDelimited,
		FormatJSON:      recordsJSON,
		FormatYAML:      recordsYAML,
	}
	render, ok := renderers[format]
	if !ok {
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
	if format == FormatTSV {
		opts.Delimiter = '\t'
	}
	return render(records, opts)
}

func recordsPlaintext(records []bbt.CitationKeyRecord, _ Options) (string, error) {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, r.CitationKey+"\t"+r.ItemKey)
	}
	return strings.Join(lines, "\n"), nil
}

func recordsDelimited(records []bbt.CitationKeyRecord, opts Options) (string, error) {
	rows := [][]string{{"citationKey", "itemKey", "itemID", "libraryID", "pinned"}}
	for _, r := range records {
		rows = append(rows, []string{
			r.CitationKey,
			r.ItemKey,
			strconv.FormatInt(r.ItemID, 10),
			strconv.FormatInt(r.LibraryID, 10),
			strconv.FormatBool(r.Pinned),
		})
	}
	return writeDelimited(rows, opts.delimiter())
}

func recordsJSON(records []bbt.CitationKeyRecord, _ Options) (string, error) {
	return marshalJSON(records)
}

func recordsYAML(records []bbt.CitationKeyRecord, _ Options) (string, error) {
	return marshalYAML(records)
}

// Keys renders a bare list of citation keys.
func Keys(keys []string, format Format, opts Options) (string, error) {
	renderers := map[Format]func([]string, Options) (string, error){
		FormatPlaintext: keysPlaintext,
		FormatCSV:       keysDelimited,
		FormatTSV:       keysDelimited,
		FormatJSON:      keysJSON,
		FormatYAML:      keysYAML,
	}
	render, ok := renderers[format]
	if !ok {
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
	if format == FormatTSV {
		opts.Delimiter = '\t'
	}
	return render(keys, opts)
}

func keysPlaintext(keys []string, _ Options) (string, error) {
	return strings.Join(keys, "\n"), nil
}

func keysDelimited(keys []string, opts Options) (string, error) {
	rows := [][]string{{opts.keyField()}}
	for _, k := range keys {
		rows = append(rows, []string{k})
	}
	return writeDelimited(rows, opts.delimiter())
}

func keysJSON(keys []string, opts Options) (string, error) {
	return marshalJSON(keyValues(keys, opts))
}

func keysYAML(keys []string, opts Options) (string, error) {
	return marshalYAML(keyValues(keys, opts))
}

func keyValues(keys []string, opts Options) []map[string]string {
	values := make([]map[string]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, map[string]string{opts.keyField(): k})
	}
	return values
}

func writeDelimited(rows [][]string, delimiter rune) (string, error) {
	var buf strings.Builder
	writer := csv.NewWriter(&buf)
	writer.Comma = delimiter
	if err := writer.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to render delimited output: %w", err)
	}
	return strings.TrimRight(buf.String(), "\r\n"), nil
}

func marshalJSON(value any) (string, error) {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render json output: %w", err)
	}
	return string(encoded), nil
}

func marshalYAML(value any) (string, error) {
	encoded, err := yaml.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to render yaml output: %w", err)
	}
	return strings.TrimRight(string(encoded), "\n"), nil
}

// Write sends rendered text to outfile, or stdout when outfile is empty.
// A trailing newline is always appended.
func Write(text, outfile string) error {
	if outfile == "" {
		_, err := os.Stdout.WriteString(text + "\n")
		return err
	}
	if err := os.WriteFile(outfile, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
