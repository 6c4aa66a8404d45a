package format

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat_String(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{URL, "URL"},
		{HTML, "HTML"},
		{Title, "Title"},
		{Unknown, "Unknown"},
		{Format(99), "Unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.format.String())
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		arg  string
		want Format
	}{
		{"https://zh.wikipedia.org/wiki/中国", URL},
		{"HTTP://example.com/page", URL},
		{"  https://en.wikipedia.org/wiki/Japan  ", URL},
		{"zh.wikipedia.org/wiki/日本", URL},
		{"https://", Unknown},
		{"page.html", HTML},
		{"saved/China.HTM", HTML},
		{"doc.xhtml", HTML},
		{"中国", Title},
		{"AC/DC", Title},
		{"United States", Title},
		{"", Unknown},
		{"   ", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.arg))
		})
	}
}

func TestDetectExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved-page")
	assert.NoError(t, os.WriteFile(path, []byte("<html></html>"), 0o644))

	assert.Equal(t, HTML, Detect(path))
	assert.Equal(t, Title, Detect(filepath.Dir(path)+"x"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "https://zh.wikipedia.org/wiki/日本", Normalize("zh.wikipedia.org/wiki/日本"))
	assert.Equal(t, "http://example.com", Normalize(" http://example.com "))
	assert.Equal(t, "中国", Normalize(" 中国 "))
}

func TestDetectFromMagic(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Format
	}{
		{"doctype", "<!DOCTYPE html><html></html>", HTML},
		{"lower doctype", "\n  <!doctype html>", HTML},
		{"html tag", "<html lang=\"zh\">", HTML},
		{"bom", "\ufeff<html>", HTML},
		{"xhtml", `<?xml version="1.0"?><html xmlns="http://www.w3.org/1999/xhtml">`, HTML},
		{"xml", `<?xml version="1.0"?><feed/>`, Unknown},
		{"fragment", `<table class="infobox"></table>`, HTML},
		{"pdf", "%PDF-1.7", Unknown},
		{"empty", "", Unknown},
		{"whitespace", " \n\t", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFromMagic([]byte(tt.data)))
		})
	}
}
