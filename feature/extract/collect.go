package extract

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// StdinName is the conventional file name for reading standard input.
const StdinName = "-"

// NormalizeKey trims whitespace and strips a single leading @ sigil.
func NormalizeKey(key string) string {
	key = strings.TrimSpace(key)
	return strings.TrimPrefix(key, "@")
}

// CollectFromFiles extracts citation keys from every input source and merges
// them into one normalized list, deduplicated keeping first-seen order.
// Keys that normalize to the empty string are dropped. explicitFormat, when
// non-empty, overrides extension detection for every file; it is required
// for standard input ("-").
func (e *Extractor) CollectFromFiles(files []string, explicitFormat string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})

	for _, file := range files {
		format, err := e.resolveFormat(file, explicitFormat)
		if err != nil {
			return nil, err
		}
		e.logger.Info("reading input", zap.String("file", file), zap.Stringer("format", format))

		text, err := readSource(file)
		if err != nil {
			return nil, err
		}

		raw, err := e.Extract(text, format)
		if err != nil {
			return nil, err
		}
		for _, key := range raw {
			nk := NormalizeKey(key)
			if nk == "" {
				continue
			}
			if _, ok := seen[nk]; ok {
				continue
			}
			seen[nk] = struct{}{}
			all = append(all, nk)
		}
	}

	e.logger.Info("collected citation keys", zap.Int("count", len(all)))
	return all, nil
}

func (e *Extractor) resolveFormat(file, explicit string) (Format, error) {
	if explicit != "" {
		return ParseFormat(explicit)
	}
	if file != StdinName {
		if f, ok := DetectFormat(file); ok {
			return f, nil
		}
	}
	return 0, formatErrorf(
		"cannot determine input format. Use -f/--from-format to specify. Supported: %s",
		strings.Join(FormatNames(), ", "),
	)
}

func readSource(file string) (string, error) {
	if file == StdinName {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("input file not found: %s: %w", file, err)
		}
		return "", fmt.Errorf("failed to read %s: %w", file, err)
	}
	return string(data), nil
}
