package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBibTeX(t *testing.T) {
	e := New(Config{}, nil)

	t.Run("keys in entry order", func(t *testing.T) {
		text := "@article{smith2020foo, title={Foo}}\n@book{lee2019bar, title={Bar}}\n"
		keys, err := e.Extract(text, FormatBibTeX)
		require.NoError(t, err)
		assert.Equal(t, []string{"smith2020foo", "lee2019bar"}, keys)
	})

	t.Run("whitespace around the key tolerated", func(t *testing.T) {
		keys, err := e.Extract("@misc {  doe2021 , note={x}}", FormatBibTeX)
		require.NoError(t, err)
		assert.Equal(t, []string{"doe2021"}, keys)
	})

	t.Run("no entries is a warning not an error", func(t *testing.T) {
		keys, err := e.Extract("just prose, no entries", FormatBibTeX)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestExtractDelimited(t *testing.T) {
	t.Run("csv with default field", func(t *testing.T) {
		e := New(Config{}, nil)
		keys, err := e.Extract("citation-key,title\nsmith2020foo,Foo\nlee2019bar,Bar\n", FormatCSV)
		require.NoError(t, err)
		assert.Equal(t, []string{"smith2020foo", "lee2019bar"}, keys)
	})

	t.Run("field matched case-insensitively after trimming", func(t *testing.T) {
		e := New(Config{}, nil)
		keys, err := e.Extract(" Citation-Key ,title\ndoe2021,X\n", FormatCSV)
		require.NoError(t, err)
		assert.Equal(t, []string{"doe2021"}, keys)
	})

	t.Run("tsv uses tab delimiter", func(t *testing.T) {
		e := New(Config{}, nil)
		keys, err := e.Extract("citation-key\ttitle\nsmith2020foo\tFoo\n", FormatTSV)
		require.NoError(t, err)
		assert.Equal(t, []string{"smith2020foo"}, keys)
	})

	t.Run("custom field name", func(t *testing.T) {
		e := New(Config{KeyField: "id"}, nil)
		keys, err := e.Extract("id,title\nkey1,Foo\n", FormatCSV)
		require.NoError(t, err)
		assert.Equal(t, []string{"key1"}, keys)
	})

	t.Run("missing field is a hard error naming the header", func(t *testing.T) {
		e := New(Config{}, nil)
		_, err := e.Extract("id,title\nkey1,Foo\n", FormatCSV)
		var ferr *FormatError
		require.ErrorAs(t, err, &ferr)
		assert.Contains(t, ferr.Message, "citation-key")
		assert.Contains(t, ferr.Message, "id, title")
	})

	t.Run("empty value skipped with a warning", func(t *testing.T) {
		e := New(Config{}, nil)
		keys, err := e.Extract("citation-key,title\n,Foo\nlee2019bar,Bar\n", FormatCSV)
		require.NoError(t, err)
		assert.Equal(t, []string{"lee2019bar"}, keys)
	})

	t.Run("empty input has no header row", func(t *testing.T) {
		e := New(Config{}, nil)
		_, err := e.Extract("", FormatCSV)
		var ferr *FormatError
		assert.ErrorAs(t, err, &ferr)
	})
}

func TestExtractJSON(t *testing.T) {
	e := New(Config{}, nil)

	t.Run("list of objects", func(t *testing.T) {
		text := `[{"citation-key": "smith2020foo"}, {"citation-key": "lee2019bar"}]`
		keys, err := e.Extract(text, FormatJSON)
		require.NoError(t, err)
		assert.Equal(t, []string{"smith2020foo", "lee2019bar"}, keys)
	})

	t.Run("non-list input rejected", func(t *testing.T) {
		_, err := e.Extract(`{"citation-key": "x"}`, FormatJSON)
		var ferr *FormatError
		assert.ErrorAs(t, err, &ferr)
	})

	t.Run("record without the field names the available ones", func(t *testing.T) {
		_, err := e.Extract(`[{"id": "x", "title": "y"}]`, FormatJSON)
		var ferr *FormatError
		require.ErrorAs(t, err, &ferr)
		assert.Contains(t, ferr.Message, "id, title")
	})
}

func TestExtractYAML(t *testing.T) {
	e := New(Config{}, nil)

	t.Run("block list of mappings", func(t *testing.T) {
		text := "- citation-key: smith2020foo\n  title: Foo\n- citation-key: lee2019bar\n"
		keys, err := e.Extract(text, FormatYAML)
		require.NoError(t, err)
		assert.Equal(t, []string{"smith2020foo", "lee2019bar"}, keys)
	})

	t.Run("json accepted as a yaml subset", func(t *testing.T) {
		keys, err := e.Extract(`[{"citation-key": "doe2021"}]`, FormatYAML)
		require.NoError(t, err)
		assert.Equal(t, []string{"doe2021"}, keys)
	})

	t.Run("quoted values unwrapped", func(t *testing.T) {
		keys, err := e.Extract(`- citation-key: "smith2020foo"`, FormatYAML)
		require.NoError(t, err)
		assert.Equal(t, []string{"smith2020foo"}, keys)
	})
}

func TestExtractPlaintext(t *testing.T) {
	e := New(Config{}, nil)
	text := "smith2020foo\n\n# a comment\n@lee2019bar\n  doe2021  \n"
	keys, err := e.Extract(text, FormatPlaintext)
	require.NoError(t, err)
	assert.Equal(t, []string{"smith2020foo", "lee2019bar", "doe2021"}, keys)
}

func TestExtractMarkdown(t *testing.T) {
	e := New(Config{}, nil)

	asSet := func(keys []string) map[string]struct{} {
		set := make(map[string]struct{}, len(keys))
		for _, k := range keys {
			set[k] = struct{}{}
		}
		return set
	}

	t.Run("three idioms unioned", func(t *testing.T) {
		text := "See [[notes/@doe2021]] and @smith2020foo."
		keys, err := e.Extract(text, FormatMarkdown)
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"doe2021": {}, "smith2020foo": {}}, asSet(keys))
	})

	t.Run("wiki link with md suffix", func(t *testing.T) {
		keys, err := e.Extract("[[refs/@lee2019bar.md]]", FormatMarkdown)
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"lee2019bar": {}}, asSet(keys))
	})

	t.Run("markdown link target", func(t *testing.T) {
		keys, err := e.Extract("[Lee 2019](papers/@lee2019bar.md)", FormatMarkdown)
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"lee2019bar": {}}, asSet(keys))
	})

	t.Run("pandoc brackets and duplicates collapse", func(t *testing.T) {
		text := "As shown [@smith2020foo; -@lee2019bar] and again @smith2020foo."
		keys, err := e.Extract(text, FormatMarkdown)
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"smith2020foo": {}, "lee2019bar": {}}, asSet(keys))
	})

	t.Run("trailing punctuation excluded from the key", func(t *testing.T) {
		keys, err := e.Extract("Cited @doe2021.", FormatMarkdown)
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"doe2021": {}}, asSet(keys))
	})

	t.Run("emails and paths ignored", func(t *testing.T) {
		keys, err := e.Extract("mail me at user@example.com or /src/@vendor", FormatMarkdown)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("BibTeX")
	require.NoError(t, err)
	assert.Equal(t, FormatBibTeX, f)

	_, err = ParseFormat("docx")
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, ferr.Message, "bibtex, csv, tsv, yaml, json, plaintext, markdown")
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path   string
		format Format
		ok     bool
	}{
		{"refs.bib", FormatBibTeX, true},
		{"refs.BIB", FormatBibTeX, true},
		{"data.csv", FormatCSV, true},
		{"data.tsv", FormatTSV, true},
		{"data.yml", FormatYAML, true},
		{"data.json", FormatJSON, true},
		{"notes.qmd", FormatMarkdown, true},
		{"notes.unknown", 0, false},
		{"noextension", 0, false},
	}
	for _, tt := range tests {
		f, ok := DetectFormat(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		if ok {
			assert.Equal(t, tt.format, f, tt.path)
		}
	}
}
