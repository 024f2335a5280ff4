package common

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"resumeforge/internal/errors"
	"resumeforge/internal/utils"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger  *errors.Logger
	maxSize int64
}

// NewFileProcessor creates a new file processor instance. maxSize of 0 means unlimited.
func NewFileProcessor(logger *errors.Logger, maxSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxSize: maxSize}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			if fp.logger != nil {
				fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
			}
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return content, nil
}

// ReadText validates and reads a plain text file such as a job description
func (fp *FileProcessor) ReadText(filename string) (string, error) {
	if err := utils.ValidateInputFile(filename, fp.maxSize); err != nil {
		return "", errors.NewValidationError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Invalid file %s", filename), err)
	}
	if !utils.IsTextFile(filename) && fp.logger != nil {
		fp.logger.Warn("File may not be a text file", "filename", filename)
	}
	content, err := fp.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// ReadResume extracts the text of a resume stored as .txt, .md, .pdf or .docx
func (fp *FileProcessor) ReadResume(filename string) (string, error) {
	if err := utils.ValidateInputFile(filename, fp.maxSize); err != nil {
		return "", errors.NewValidationError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Invalid file %s", filename), err)
	}
	if !utils.IsResumeFile(filename) {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Unsupported resume format %q; use one of %s",
				utils.GetFileExtension(filename), strings.Join(utils.ResumeExtensions, ", ")), nil).
			WithContext("file", filename)
	}

	data, err := fp.ReadFile(filename)
	if err != nil {
		return "", err
	}

	var text string
	switch utils.GetFileExtension(filename) {
	case ".pdf":
		text, err = ExtractPDFText(data)
	case ".docx":
		text, err = ExtractDocxText(data)
	default:
		text = string(data)
	}
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Cannot extract text from %s", filepath.Base(filename)), err).
			WithContext("file", filename)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NewValidationError(errors.ErrCodeMissingField,
			fmt.Sprintf("No text found in %s", filepath.Base(filename)), nil).
			WithContext("file", filename)
	}
	if fp.logger != nil {
		fp.logger.Debug("Resume text extracted", "file", filename, "characters", len(text))
	}
	return text, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, content, 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}

// ExtractPDFText returns the plain text of every page
func ExtractPDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return normalizeWhitespace(buf.String()), nil
}

// PDFPageCount reports how many pages a PDF document has
func PDFPageCount(data []byte) (int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to read pdf: %w", err)
	}
	return r.NumPage(), nil
}

var (
	xmlTags      = regexp.MustCompile(`<[^>]+>`)
	blankRuns    = regexp.MustCompile(`[ \t\r\f\v]+`)
	newlineRuns  = regexp.MustCompile(`\n\s*\n+`)
	paragraphEnd = strings.NewReplacer("</w:p>", "\n", "<w:tab/>", "\t", "<w:br/>", "\n")
)

// ExtractDocxText returns the paragraphs of a .docx document as plain text
func ExtractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer func() { _ = doc.Close() }()

	content := paragraphEnd.Replace(doc.Editable().GetContent())
	content = xmlTags.ReplaceAllString(content, "")
	return normalizeWhitespace(html.UnescapeString(content)), nil
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = blankRuns.ReplaceAllString(s, " ")
	s = newlineRuns.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
