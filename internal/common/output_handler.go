package common

import (
	"fmt"
	"io"
	"os"

	"resumeforge/internal/errors"
	"resumeforge/internal/formatters"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
	stdout        io.Writer
}

// NewOutputHandler creates a new output handler writing to stdout
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return NewOutputHandlerTo(logger, os.Stdout)
}

// NewOutputHandlerTo creates an output handler that prints to w instead of stdout
func NewOutputHandlerTo(logger *errors.Logger, w io.Writer) *OutputHandler {
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger, 0),
		registry:      formatters.GlobalRegistry,
		logger:        logger,
		stdout:        w,
	}
}

// HandleOutput formats data and writes it to the specified output
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
		return err
	}

	output, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	return oh.write([]byte(output), config.OutputFile, config.OutputFormat)
}

// WriteRaw writes already rendered bytes, such as a download, to the file or stdout
func (oh *OutputHandler) WriteRaw(data []byte, outputFile string) error {
	if err := oh.fileProcessor.ValidateOutputFile(outputFile); err != nil {
		return err
	}
	return oh.write(data, outputFile, "raw")
}

func (oh *OutputHandler) write(data []byte, outputFile, format string) error {
	if outputFile == "" {
		_, err := oh.stdout.Write(data)
		return err
	}

	if err := oh.fileProcessor.WriteFile(outputFile, data); err != nil {
		return err
	}
	if oh.logger != nil {
		oh.logger.Info("Output written successfully", "file", outputFile, "format", format)
	}
	return nil
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
