package cli

import (
	"context"
	"fmt"

	"resumeforge/internal/common"
	"resumeforge/internal/formatters"
	"resumeforge/internal/types"
	"resumeforge/internal/view"

	"github.com/spf13/cobra"
)

func newResumesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "resumes",
		Aliases: []string{"resume"},
		Short:   "List, show and download saved resumes",
	}
	cmd.AddCommand(newResumesListCmd(root), newResumesShowCmd(root), newResumesDownloadCmd())
	return cmd
}

func newResumesListCmd(root *rootOptions) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved resumes with summary statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cmdConfig, err := root.outputConfig(getConfigFromContext(ctx), outputFile)
			if err != nil {
				return err
			}
			client, _, _, err := authedClient(ctx)
			if err != nil {
				return err
			}
			return common.RunFetchCommand(ctx, getLoggerFromContext(ctx), cmd.OutOrStdout(), cmdConfig, "list_resumes",
				func(ctx context.Context) (formatters.ResumeListing, error) {
					resumes, err := client.ListResumes(ctx)
					if err != nil {
						return formatters.ResumeListing{}, err
					}
					return formatters.NewResumeListing(resumes), nil
				})
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: stdout)")
	return cmd
}

func newResumesShowCmd(root *rootOptions) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one resume, rendered section by section when it is structured",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cmdConfig, err := root.outputConfig(getConfigFromContext(ctx), outputFile)
			if err != nil {
				return err
			}
			client, _, _, err := authedClient(ctx)
			if err != nil {
				return err
			}
			return common.RunFetchCommand(ctx, getLoggerFromContext(ctx), cmd.OutOrStdout(), cmdConfig, "get_resume",
				func(ctx context.Context) (types.Resume, error) {
					resume, err := client.GetResume(ctx, args[0])
					if err != nil {
						return types.Resume{}, err
					}
					return *resume, nil
				})
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: stdout)")
	return cmd
}

func newResumesDownloadCmd() *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Save a resume's text as {role}_{company}_Resume.txt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := getLoggerFromContext(ctx)
			client, _, _, err := authedClient(ctx)
			if err != nil {
				return err
			}

			resume, err := client.GetResume(ctx, args[0])
			if err != nil {
				logger.LogError(err, "Failed to fetch resume", "resume_id", args[0])
				return err
			}

			target := outputFile
			if target == "" {
				target = view.TextDownloadName(*resume)
			}
			if err := common.NewOutputHandlerTo(logger, cmd.OutOrStdout()).WriteRaw([]byte(resume.Content), target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: {role}_{company}_Resume.txt)")
	return cmd
}
