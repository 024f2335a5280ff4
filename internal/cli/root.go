package cli

import (
	"context"

	"resumeforge/internal/apiclient"
	"resumeforge/internal/common"
	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/session"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

// rootOptions holds the persistent flags shared by every subcommand
type rootOptions struct {
	format string
}

// NewRootCommand builds the full command tree. Each call returns fresh flag state.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "resumeforge",
		Short: "A client for the resume optimization service",
		Long: `Resumeforge talks to the resume optimization backend. It can log you in,
list and download your saved resumes, generate, score and optimize a resume for a job
description, manage contact profiles and export PDFs. The serve command runs the same
features as a web application.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.format, "format", "", "Output format: text, markdown or json (default from config)")
	_ = rootCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return common.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		newLoginCmd(),
		newSignupCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newResumesCmd(opts),
		newOptimizeCmd(opts),
		newProfilesCmd(opts),
		newExportCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI with the loaded configuration and logger
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger, args []string) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)

	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// outputConfig resolves --format against the configured default and supported formats
func (o *rootOptions) outputConfig(cfg *config.Config, outputFile string) (common.CommandConfig, error) {
	format := o.format
	if format == "" {
		format = cfg.App.DefaultFormat
	}
	if format == "" {
		format = "text"
	}
	if err := common.ValidateOutputFormat(format, cfg.App.SupportedFormats); err != nil {
		return common.CommandConfig{}, errors.NewValidationError(errors.ErrCodeInvalidFormat, err.Error(), err)
	}
	return common.CommandConfig{OutputFile: outputFile, OutputFormat: format}, nil
}

// newClient builds an unauthenticated backend client from config
func newClient(ctx context.Context) (*apiclient.Client, error) {
	return apiclient.NewFromConfig(getConfigFromContext(ctx), nil, getLoggerFromContext(ctx))
}

// credentials returns the session manager over the CLI credentials file
func credentials(ctx context.Context) *session.Manager {
	cfg := getConfigFromContext(ctx)
	path := cfg.Session.CredentialsFile
	if path == "" {
		path = config.DefaultCredentialsFile()
	}
	return session.NewManager(session.NewFileStore(path), session.Options{Logger: getLoggerFromContext(ctx)})
}

// requireSession loads the stored login, failing with UNAUTHENTICATED when there is none
func requireSession(ctx context.Context, sessions *session.Manager) (*session.Session, error) {
	sess, err := sessions.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !sess.Authenticated() {
		return nil, errors.NewValidationError(errors.ErrCodeUnauthenticated,
			"You are not logged in. Run 'resumeforge login' first.", nil)
	}
	return sess, nil
}

// authedClient returns a backend client carrying the stored token, along with the session
func authedClient(ctx context.Context) (*apiclient.Client, *session.Session, *session.Manager, error) {
	sessions := credentials(ctx)
	sess, err := requireSession(ctx, sessions)
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := newClient(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return client.WithToken(sess.Token), sess, sessions, nil
}
