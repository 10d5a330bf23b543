package extract

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultKeyField is the field name structured inputs are expected to carry
// the citation key under.
const DefaultKeyField = "citation-key"

var (
	// bibtexEntry matches "@type{citationKey," entry openers.
	bibtexEntry = regexp.MustCompile(`@\w+\s*\{\s*([^,\s]+)\s*,`)

	// wikiLink matches Obsidian-style [[path/to/@key]] or [[path/to/@key.md]].
	wikiLink = regexp.MustCompile(`\[\[[^\]]*?@([A-Za-z0-9_:.\-]+?)(?:\.md)?\]\]`)

	// markdownLink matches [text](path/to/@key.md).
	markdownLink = regexp.MustCompile(`\[[^\]]*\]\([^)]*?@([A-Za-z0-9_:.\-]+?)(?:\.md)?\)`)

	// inlineCitation matches bare Pandoc-style @key tokens. The token must
	// start with a letter and end with a letter or digit, which keeps
	// trailing punctuation out of the key. The leading group stands in for
	// a lookbehind: emails, paths and mid-word @ signs do not match.
	inlineCitation = regexp.MustCompile(`(?:^|[^A-Za-z0-9_/])@([A-Za-z][A-Za-z0-9_:.\-]*[A-Za-z0-9])`)
)

// Config tunes structured-input handling.
type Config struct {
	// Delimiter separates fields in CSV input. Defaults to ','.
	Delimiter rune
	// KeyField is the field carrying the citation key in structured input,
	// matched case-insensitively after trimming. Defaults to DefaultKeyField.
	KeyField string
}

// Extractor pulls raw citation keys out of text in any supported format.
type Extractor struct {
	delimiter rune
	keyField  string
	logger    *zap.Logger
}

// New builds an Extractor. A nil logger is replaced with a no-op one.
func New(cfg Config, logger *zap.Logger) *Extractor {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	if cfg.KeyField == "" {
		cfg.KeyField = DefaultKeyField
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{delimiter: cfg.Delimiter, keyField: cfg.KeyField, logger: logger}
}

// Extract returns the raw (unnormalized, undeduplicated) citation keys found
// in text. Malformed individual entries never fail the call; only
// structurally required elements do (no header row, key field absent from a
// record). Markdown extraction returns an unordered set.
func (e *Extractor) Extract(text string, f Format) ([]string, error) {
	handlers := map[Format]func(string) ([]string, error){
		FormatBibTeX:    e.extractBibTeX,
		FormatCSV:       func(t string) ([]string, error) { return e.extractDelimited(t, e.delimiter) },
		FormatTSV:       func(t string) ([]string, error) { return e.extractDelimited(t, '\t') },
		FormatYAML:      e.extractYAML,
		FormatJSON:      e.extractJSON,
		FormatPlaintext: e.extractPlaintext,
		FormatMarkdown:  e.extractMarkdown,
	}
	handler, ok := handlers[f]
	if !ok {
		return nil, formatErrorf("unsupported format: %q. Supported: %s", f, strings.Join(FormatNames(), ", "))
	}
	return handler(text)
}

func (e *Extractor) extractBibTeX(text string) ([]string, error) {
	var keys []string
	for _, m := range bibtexEntry.FindAllStringSubmatch(text, -1) {
		keys = append(keys, m[1])
	}
	if len(keys) == 0 {
		e.logger.Warn("no bibtex entries found; expected entries like @type{citationKey, ...}")
	}
	return keys, nil
}

func (e *Extractor) extractDelimited(text string, delimiter rune) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, formatErrorf("delimited data has no header row")
	}

	idx := -1
	target := strings.ToLower(strings.TrimSpace(e.keyField))
	for i, field := range header {
		if strings.ToLower(strings.TrimSpace(field)) == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, formatErrorf(
			"field %q not found in delimited data. Available fields: %s. Use --read-citation-key-field to specify.",
			e.keyField, strings.Join(header, ", "),
		)
	}

	var keys []string
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Tolerate malformed rows; only structure-level problems abort.
			e.logger.Warn("skipping malformed row", zap.Int("row", row), zap.Error(err))
			continue
		}
		val := ""
		if idx < len(record) {
			val = strings.TrimSpace(record[idx])
		}
		if val == "" {
			e.logger.Warn("empty citation key", zap.Int("row", row))
			continue
		}
		keys = append(keys, val)
	}
	return keys, nil
}

func (e *Extractor) extractYAML(text string) ([]string, error) {
	// JSON is a YAML subset, so this also accepts a JSON array of objects.
	var records []any
	if err := yaml.Unmarshal([]byte(text), &records); err != nil {
		return nil, formatErrorf("expected a list of records (objects/mappings): %v", err)
	}
	return e.extractFromRecords(records)
}

func (e *Extractor) extractJSON(text string) ([]string, error) {
	var records []any
	if err := json.Unmarshal([]byte(text), &records); err != nil {
		return nil, formatErrorf("expected a JSON list of objects: %v", err)
	}
	return e.extractFromRecords(records)
}

// extractFromRecords pulls the configured key field out of each mapping.
// A record missing the field entirely is a hard error naming the fields it
// does have; an empty value is a per-record warning.
func (e *Extractor) extractFromRecords(records []any) ([]string, error) {
	target := strings.ToLower(strings.TrimSpace(e.keyField))
	var keys []string
	for i, rec := range records {
		mapping, ok := rec.(map[string]any)
		if !ok {
			return nil, formatErrorf("record at index %d is not a mapping/object", i)
		}

		found := false
		for k, v := range mapping {
			if strings.ToLower(strings.TrimSpace(k)) != target {
				continue
			}
			found = true
			val := ""
			if v != nil {
				val = strings.TrimSpace(fmt.Sprint(v))
			}
			if val == "" {
				e.logger.Warn("empty citation key", zap.Int("record", i))
			} else {
				keys = append(keys, val)
			}
			break
		}
		if !found {
			available := make([]string, 0, len(mapping))
			for k := range mapping {
				available = append(available, k)
			}
			sort.Strings(available)
			return nil, formatErrorf(
				"field %q not found in record %d. Available: %s. Use --read-citation-key-field to specify.",
				e.keyField, i, strings.Join(available, ", "),
			)
		}
	}
	return keys, nil
}

func (e *Extractor) extractPlaintext(text string) ([]string, error) {
	var keys []string
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}
		keys = append(keys, strings.TrimPrefix(stripped, "@"))
	}
	return keys, nil
}

// extractMarkdown recognizes three citation idioms independently and unions
// the results, so a key cited several ways appears once. The result is a
// set: callers needing a deterministic order must sort.
func (e *Extractor) extractMarkdown(text string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, pattern := range []*regexp.Regexp{wikiLink, markdownLink, inlineCitation} {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			seen[m[1]] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	return keys, nil
}
