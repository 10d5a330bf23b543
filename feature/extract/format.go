package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies an input format the extractor understands. The set is
// closed: every variant has exactly one handler and unknown names fail with
// the full list of choices.
type Format int

const (
	FormatBibTeX Format = iota
	FormatCSV
	FormatTSV
	FormatYAML
	FormatJSON
	FormatPlaintext
	FormatMarkdown
)

var formatNames = map[Format]string{
	FormatBibTeX:    "bibtex",
	FormatCSV:       "csv",
	FormatTSV:       "tsv",
	FormatYAML:      "yaml",
	FormatJSON:      "json",
	FormatPlaintext: "plaintext",
	FormatMarkdown:  "markdown",
}

// extensionFormats maps file extensions onto formats for detection.
var extensionFormats = map[string]Format{
	".bib":    FormatBibTeX,
	".bibtex": FormatBibTeX,
	".csv":    FormatCSV,
	".tsv":    FormatTSV,
	".yaml":   FormatYAML,
	".yml":    FormatYAML,
	".json":   FormatJSON,
	".txt":    FormatPlaintext,
	".text":   FormatPlaintext,
	".md":     FormatMarkdown,
	".qmd":    FormatMarkdown,
	".rmd":    FormatMarkdown,
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// FormatNames lists the supported format names for error messages and flag
// help, in declaration order.
func FormatNames() []string {
	return []string{"bibtex", "csv", "tsv", "yaml", "json", "plaintext", "markdown"}
}

// ParseFormat resolves a format name (case-insensitive). Unknown names fail
// with a FormatError enumerating the choices.
func ParseFormat(name string) (Format, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for f, n := range formatNames {
		if n == lower {
			return f, nil
		}
	}
	return 0, formatErrorf("unsupported format: %q. Supported: %s", name, strings.Join(FormatNames(), ", "))
}

// DetectFormat guesses the format from the file extension.
func DetectFormat(path string) (Format, bool) {
	f, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// FormatError indicates input whose format cannot be determined or whose
// structure is missing a required element (header row, key field).
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string { return e.Message }

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{Message: fmt.Sprintf(format, args...)}
}
