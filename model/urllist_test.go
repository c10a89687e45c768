package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURLList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "comments blanks and whitespace",
			input: "# Comment line\nhttps://example.com\n\nhttps://test.com\n  https://trimmed.com  \n",
			want:  []string{"https://example.com", "https://test.com", "https://trimmed.com"},
		},
		{
			name:  "indented comment",
			input: "   # still a comment\nhttps://a.example\n",
			want:  []string{"https://a.example"},
		},
		{
			name:  "crlf line endings",
			input: "https://a.example\r\nhttps://b.example\r\n",
			want:  []string{"https://a.example", "https://b.example"},
		},
		{
			name:  "no trailing newline",
			input: "https://a.example",
			want:  []string{"https://a.example"},
		},
		{
			name:  "invalid entries are kept",
			input: "not a url\nftp://x\n",
			want:  []string{"not a url", "ftp://x"},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURLList(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadURLsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://example.com\n# skip\nhttps://test.com\n"), 0o600))

	urls, err := ReadURLsFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com", "https://test.com"}, urls)
}

func TestReadURLsFromFile_Missing(t *testing.T) {
	_, err := ReadURLsFromFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, IsIOError(err))
}
