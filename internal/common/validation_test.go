package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name             string
		format           string
		supportedFormats []string
		expectedError    string
	}{
		{name: "json", format: "json", supportedFormats: SupportedFormats},
		{name: "text", format: "text", supportedFormats: SupportedFormats},
		{name: "markdown", format: "markdown", supportedFormats: SupportedFormats},
		{
			name:             "xml",
			format:           "xml",
			supportedFormats: SupportedFormats,
			expectedError:    "unsupported output format 'xml'. Supported formats: [text markdown json]",
		},
		{
			name:             "case sensitive",
			format:           "JSON",
			supportedFormats: SupportedFormats,
			expectedError:    "unsupported output format 'JSON'. Supported formats: [text markdown json]",
		},
		{
			name:             "empty format string",
			format:           "",
			supportedFormats: []string{"json"},
			expectedError:    "unsupported output format ''. Supported formats: [json]",
		},
		{name: "no restrictions", format: "xml", supportedFormats: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supportedFormats)
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.expectedError)
		})
	}
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	b.Run("valid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("json", SupportedFormats)
		}
	})

	b.Run("invalid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("xml", SupportedFormats)
		}
	})
}
