package common

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resumeforge/internal/errors"
	"resumeforge/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// minimalDocx builds the smallest archive the docx reader accepts
func minimalDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>" + p + "</w:t></w:r></w:p>")
	}

	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body.String() + `</w:body></w:document>`,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestReadResumeText(t *testing.T) {
	fp := NewFileProcessor(nil, 0)
	path := writeTemp(t, "cv.md", []byte("  # Ada\n\nEngineer  \n"))

	text, err := fp.ReadResume(path)
	require.NoError(t, err)
	assert.Equal(t, "# Ada\n\nEngineer", text)
}

func TestReadResumeDocx(t *testing.T) {
	fp := NewFileProcessor(nil, 0)
	path := writeTemp(t, "cv.docx", minimalDocx(t, "Ada Lovelace", "Tom &amp; Jerry Ltd"))

	text, err := fp.ReadResume(path)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace\nTom & Jerry Ltd", text)
}

func TestReadResumeRejects(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		data     []byte
		maxSize  int64
		wantCode string
	}{
		{"unsupported extension", "cv.rtf", []byte("text"), 0, errors.ErrCodeInvalidFormat},
		{"too large", "cv.txt", []byte("0123456789"), 5, errors.ErrCodeFileNotReadable},
		{"empty text", "cv.txt", []byte("   \n"), 0, errors.ErrCodeMissingField},
		{"corrupt pdf", "cv.pdf", []byte("not a pdf"), 0, errors.ErrCodeInvalidFormat},
		{"corrupt docx", "cv.docx", []byte("not a zip"), 0, errors.ErrCodeInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, tt.file, tt.data)
			_, err := NewFileProcessor(nil, tt.maxSize).ReadResume(path)
			assert.True(t, errors.IsCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestReadResumeMissingFile(t *testing.T) {
	_, err := NewFileProcessor(nil, 0).ReadResume(filepath.Join(t.TempDir(), "missing.txt"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeFileNotReadable))
}

func TestPDFPageCountRejectsGarbage(t *testing.T) {
	_, err := PDFPageCount([]byte("%PDF-1.4 truncated"))
	assert.Error(t, err)
}

func TestOutputHandler(t *testing.T) {
	var stdout bytes.Buffer
	oh := NewOutputHandlerTo(nil, &stdout)

	listing := types.Resume{Role: "SRE", Content: "Body"}
	require.NoError(t, oh.HandleOutput(listing, CommandConfig{OutputFormat: "text"}))
	assert.Contains(t, stdout.String(), "Body")

	out := filepath.Join(t.TempDir(), "nested", "resume.json")
	require.NoError(t, oh.HandleOutput(listing, CommandConfig{OutputFormat: "json", OutputFile: out}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"role": "SRE"`)

	err = oh.HandleOutput(listing, CommandConfig{OutputFormat: "yaml"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidFormat))
}

func TestRunFetchCommand(t *testing.T) {
	var stdout bytes.Buffer
	fetched := false

	err := RunFetchCommand(context.Background(), nil, &stdout, CommandConfig{OutputFormat: "markdown"}, "show",
		func(context.Context) (types.Resume, error) {
			fetched = true
			return types.Resume{Role: "SRE", Content: "Body"}, nil
		})
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Contains(t, stdout.String(), "# SRE")

	err = RunFetchCommand(context.Background(), nil, &stdout, CommandConfig{OutputFormat: "xml"}, "show",
		func(context.Context) (types.Resume, error) {
			t.Fatal("must not fetch with an invalid format")
			return types.Resume{}, nil
		})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidFormat))
}
