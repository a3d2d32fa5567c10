package utils

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarityRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"hello", "hello", 1.0},
		{"Hello", "hELLO", 1.0},
		{"ab", "ac", 0.5},
		{"abc", "xyz", 0.0},
		{"", "", 1.0},
		{"abcd", "", 0.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, SimilarityRatio(tt.a, tt.b), 1e-9, "%q vs %q", tt.a, tt.b)
	}
}

func TestSimilarityRatio_Unicode(t *testing.T) {
	// accented vowels are single runes, so only the vowel differs
	assert.InDelta(t, 0.8, SimilarityRatio("chào!", "chảo!"), 1e-9)
}

func TestTruncateAndPreview(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "hi", Truncate("hi", 10))
	assert.Equal(t, "", Truncate("hi", 0))

	assert.Equal(t, "hi", Preview("hi", 5))
	assert.Equal(t, "abc...", Preview("abcdef", 3))
}

func TestFirstSentences(t *testing.T) {
	assert.Equal(t, "a. b. c.", FirstSentences("a.b.c.d.e", 3))
	assert.Equal(t, "only one.", FirstSentences("only one", 3))
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("cách nấu phở", []string{"gì", "cách"}))
	assert.False(t, ContainsAny("hello", []string{"bye", ""}))
}

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDOCXText(t *testing.T) {
	data := buildDOCX(t,
		`<w:p><w:r><w:t>First </w:t></w:r><w:r><w:t>para</w:t></w:r></w:p>`+
			`<w:p></w:p>`+
			`<w:p><w:r><w:t>Second</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Third</w:t></w:r></w:p>`)

	text, err := ExtractDOCXText(data, 2)
	require.NoError(t, err)
	assert.Equal(t, "First para\nSecond", text)
}

func TestExtractDOCXText_NotZip(t *testing.T) {
	_, err := ExtractDOCXText([]byte("plain text"), 10)
	require.Error(t, err)
}

func TestExtractPDFText_Invalid(t *testing.T) {
	_, err := ExtractPDFText([]byte("not a pdf"), 5)
	require.Error(t, err)
}
