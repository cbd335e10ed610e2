package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	registered := []string{"ets", "json5"}

	tests := []struct {
		caption string
		path    string
		want    string
	}{
		{
			caption: "a registered extension",
			path:    "src/main.ets",
			want:    "ets",
		},
		{
			caption: "extensions are case-insensitive",
			path:    "MAIN.ETS",
			want:    "ets",
		},
		{
			caption: "a TypeScript file is parsed as ets",
			path:    "index.ts",
			want:    "ets",
		},
		{
			caption: "an unknown language",
			path:    "main.go",
		},
		{
			caption: "stdin",
			path:    "-",
		},
		{
			caption: "no path",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			assert.Equal(t, tt.want, detectLanguage(tt.path, registered))
		})
	}

	assert.Equal(t, "", detectLanguage("index.ts", []string{"json5"}))
}

func TestReadSource(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "a.ets")
	require.NoError(t, os.WriteFile(text, []byte("let a = 1;"), 0644))
	binary := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(binary, []byte{0x7f, 'E', 'L', 'F', 0x00, 0x01}, 0644))

	src, err := readSource(text)
	require.NoError(t, err)
	assert.Equal(t, "let a = 1;", string(src))

	_, err = readSource(binary)
	assert.True(t, errors.Is(err, errBinarySource), "unexpected error: %v", err)

	_, err = readSource(filepath.Join(dir, "missing.ets"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "unexpected error: %v", err)
}

func TestLoadGrammarFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: list
tokens:
  - name: id
    pattern: "[a-z]+"
rules:
  - name: list
    alternatives: ["id", "list ',' id"]
`), 0644))

	lang, err := loadGrammarFile(path)
	require.NoError(t, err)
	assert.Equal(t, "list", lang.Name())

	_, err = loadGrammarFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
