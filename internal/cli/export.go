package cli

import (
	"fmt"

	"resumeforge/internal/common"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		profileID  string
		outputFile string
	)
	cmd := &cobra.Command{
		Use:   "export <resume-id>",
		Short: "Export a resume as PDF",
		Long: `Export a saved resume as a PDF rendered by the backend. The contact details come
from --profile, or from the active profile when none is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := getLoggerFromContext(ctx)
			client, sess, _, err := authedClient(ctx)
			if err != nil {
				return err
			}

			if profileID == "" {
				profileID = sess.ActiveProfileID
			}
			doc, err := client.ExportPDF(ctx, args[0], profileID)
			if err != nil {
				logger.LogError(err, "Failed to export PDF", "resume_id", args[0], "profile_id", profileID)
				return err
			}

			target := outputFile
			if target == "" {
				target = doc.Filename
			}
			if err := common.NewOutputHandlerTo(logger, cmd.OutOrStdout()).WriteRaw(doc.Data, target); err != nil {
				return err
			}

			pages, err := common.PDFPageCount(doc.Data)
			if err != nil {
				logger.Warn("Could not count PDF pages", "file", target, "error", err)
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", target)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d pages)\n", target, pages)
			return nil
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "", "Profile id for the contact details (default: active profile)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: the name the server suggests)")
	return cmd
}
