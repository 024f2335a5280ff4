package cli

import (
	"strings"

	"resumeforge/internal/common"
	"resumeforge/internal/errors"
	"resumeforge/internal/workflow"

	"github.com/spf13/cobra"
)

type optimizeOptions struct {
	company    string
	role       string
	jobFile    string
	resumeFile string
	fromResume string
	score      bool
	optimize   bool
	selected   string
	noSave     bool
	outputFile string
}

func newOptimizeCmd(root *rootOptions) *cobra.Command {
	opts := &optimizeOptions{}
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Generate a resume for a job, optionally score and optimize it, then save it",
		Long: `Generate a tailored resume for a job description from your current resume.

The current resume comes from --resume (a .txt, .md, .pdf or .docx file) or from a saved
resume with --from-resume. --score adds an ATS score; --optimize also rewrites the resume
to raise it and implies --score. The optimized version is saved unless --select generated
is given. --no-save stops before anything is saved.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.company, "company", "", "Company name")
	flags.StringVar(&opts.role, "role", "", "Role you are applying for")
	flags.StringVar(&opts.jobFile, "job", "", "Job description file")
	flags.StringVar(&opts.resumeFile, "resume", "", "Current resume file (.txt, .md, .pdf or .docx)")
	flags.StringVar(&opts.fromResume, "from-resume", "", "Start from the content of a saved resume id")
	flags.BoolVar(&opts.score, "score", false, "Score the generated resume")
	flags.BoolVar(&opts.optimize, "optimize", false, "Optimize the generated resume (implies --score)")
	flags.StringVar(&opts.selected, "select", "", "Variant to save: generated or optimized (default: optimized when --optimize)")
	flags.BoolVar(&opts.noSave, "no-save", false, "Do not save the result")
	flags.StringVarP(&opts.outputFile, "output", "o", "", "Output file path (default: stdout)")
	_ = cmd.MarkFlagRequired("job")
	cmd.MarkFlagsMutuallyExclusive("resume", "from-resume")
	cmd.MarkFlagsOneRequired("resume", "from-resume")
	_ = cmd.RegisterFlagCompletionFunc("select", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(workflow.VariantGenerated), string(workflow.VariantOptimized)}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func (o *optimizeOptions) validate() error {
	if o.selected == "" {
		return nil
	}
	variant, err := workflow.ParseVariant(o.selected)
	if err != nil {
		return err
	}
	if variant == workflow.VariantOptimized && !o.optimize {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"--select optimized needs --optimize", nil)
	}
	return nil
}

func runOptimize(cmd *cobra.Command, root *rootOptions, opts *optimizeOptions) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	cmdConfig, err := root.outputConfig(cfg, opts.outputFile)
	if err != nil {
		return err
	}
	client, _, _, err := authedClient(ctx)
	if err != nil {
		return err
	}

	files := common.NewFileProcessor(logger, cfg.App.MaxFileSize)
	job, err := files.ReadText(opts.jobFile)
	if err != nil {
		return err
	}

	var current string
	if opts.fromResume != "" {
		resume, err := client.GetResume(ctx, opts.fromResume)
		if err != nil {
			logger.LogError(err, "Failed to fetch the starting resume", "resume_id", opts.fromResume)
			return err
		}
		current = string(resume.Content)
	} else if current, err = files.ReadResume(opts.resumeFile); err != nil {
		return err
	}

	wf := workflow.New(client, workflow.WithLogger(logger))

	logger.Info("Starting resume optimization",
		"company", opts.company,
		"role", opts.role,
		"resume_chars", len(current),
		"job_chars", len(job))

	if err := wf.Submit(ctx, workflow.Input{
		CompanyName:    opts.company,
		Role:           opts.role,
		JobDescription: job,
		Resume:         current,
	}); err != nil {
		return err
	}

	if opts.score || opts.optimize {
		if err := wf.Score(ctx); err != nil {
			return err
		}
	}
	if opts.optimize {
		if err := wf.Optimize(ctx); err != nil {
			return err
		}
	}

	if !opts.noSave {
		if err := saveResult(cmd, wf, opts); err != nil {
			return err
		}
	}

	return common.NewOutputHandlerTo(logger, cmd.OutOrStdout()).HandleOutput(wf.Snapshot(), cmdConfig)
}

// saveResult saves the chosen variant. Without optimization only the generated text exists.
func saveResult(cmd *cobra.Command, wf *workflow.Workflow, opts *optimizeOptions) error {
	ctx := cmd.Context()
	if !opts.optimize {
		_, err := wf.AcceptGenerated(ctx)
		return err
	}

	variant := workflow.VariantOptimized
	if strings.TrimSpace(opts.selected) != "" {
		variant, _ = workflow.ParseVariant(opts.selected)
	}
	if err := wf.Select(variant); err != nil {
		return err
	}
	_, err := wf.Finalize(ctx)
	return err
}
