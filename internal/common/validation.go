package common

import (
	"fmt"
	"slices"
)

// SupportedFormats are the output formats the formatter registry can render for every command
var SupportedFormats = []string{"text", "markdown", "json"}

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}
