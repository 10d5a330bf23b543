// Package extract pulls citation keys out of manuscript-adjacent files.
//
// Supported formats: BibTeX, CSV/TSV, YAML, JSON, plaintext and
// Quarto/Pandoc/Obsidian Markdown. The format is a closed enum with one
// handler per variant; unknown names fail listing the valid choices, and
// when no explicit format is given it is inferred from the file extension.
//
// Extraction is deliberately tolerant: malformed individual entries and
// empty key values are warned about and skipped, while structural problems
// (a delimited file without a header row, a structured record missing the
// key field entirely) abort with a FormatError naming what was available.
//
// CollectFromFiles aggregates across sources: keys are normalized (trimmed,
// one leading @ stripped) and deduplicated keeping first-seen order.
package extract
