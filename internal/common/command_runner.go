package common

import (
	"context"
	"io"

	"resumeforge/internal/errors"
)

// FetchFunc loads the data a read-only command prints
type FetchFunc[Output any] func(context.Context) (Output, error)

// RunFetchCommand encapsulates the common logic of commands that load data from the
// backend and print it in the chosen format.
func RunFetchCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	stdout io.Writer,
	cmdConfig CommandConfig,
	operation string,
	fetch FetchFunc[Output],
) error {
	if err := ValidateOutputFormat(cmdConfig.OutputFormat, SupportedFormats); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, err.Error(), err)
	}

	if logger != nil {
		logger.Debug("Running command", "operation", operation, "format", cmdConfig.OutputFormat)
	}

	result, err := fetch(ctx)
	if err != nil {
		return err
	}

	return NewOutputHandlerTo(logger, stdout).HandleOutput(result, cmdConfig)
}
