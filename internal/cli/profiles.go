package cli

import (
	"context"
	"fmt"

	"resumeforge/internal/apiclient"
	"resumeforge/internal/common"
	"resumeforge/internal/formatters"
	"resumeforge/internal/profile"
	"resumeforge/internal/types"

	"github.com/spf13/cobra"
)

func newProfilesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile"},
		Short:   "Manage contact profiles and their default resumes",
	}
	cmd.AddCommand(
		newProfilesListCmd(root),
		newProfilesCreateCmd(),
		newProfilesUpdateCmd(),
		newProfilesDeleteCmd(),
		newProfilesActivateCmd(),
	)
	return cmd
}

func newProfilesListCmd(root *rootOptions) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles; the active one is marked with *",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cmdConfig, err := root.outputConfig(getConfigFromContext(ctx), outputFile)
			if err != nil {
				return err
			}
			client, sess, _, err := authedClient(ctx)
			if err != nil {
				return err
			}
			return common.RunFetchCommand(ctx, getLoggerFromContext(ctx), cmd.OutOrStdout(), cmdConfig, "list_profiles",
				func(ctx context.Context) (formatters.ProfileListing, error) {
					profiles, err := client.ListProfiles(ctx)
					if err != nil {
						return formatters.ProfileListing{}, err
					}
					listing := formatters.ProfileListing{Profiles: profiles}
					if active, ok := profile.Active(profiles, sess.ActiveProfileID); ok {
						listing.ActiveID = active.ID.String()
					}
					return listing, nil
				})
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: stdout)")
	return cmd
}

// profileFlags are the editable profile fields; templates are read from files
type profileFlags struct {
	name          string
	phone         string
	email         string
	github        string
	templateFiles []string
}

func (f *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Profile name")
	cmd.Flags().StringVar(&f.phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&f.email, "email", "", "Contact email")
	cmd.Flags().StringVar(&f.github, "github", "", "GitHub username or URL")
	cmd.Flags().StringArrayVar(&f.templateFiles, "template-file", nil, "Default resume file (.txt, .md, .pdf or .docx); repeat for more")
}

// apply copies the flags the user set onto p
func (f *profileFlags) apply(cmd *cobra.Command, p types.Profile) (types.Profile, error) {
	changed := cmd.Flags().Changed
	if changed("name") {
		p.Name = f.name
	}
	if changed("phone") {
		p.Phone = f.phone
	}
	if changed("email") {
		p.Email = f.email
	}
	if changed("github") {
		p.GitHub = f.github
	}
	if changed("template-file") {
		ctx := cmd.Context()
		files := common.NewFileProcessor(getLoggerFromContext(ctx), getConfigFromContext(ctx).App.MaxFileSize)
		p.Resumes = nil
		for _, path := range f.templateFiles {
			text, err := files.ReadResume(path)
			if err != nil {
				return p, err
			}
			p.Resumes = append(p.Resumes, text)
		}
	}
	return p, nil
}

func newProfilesCreateCmd() *cobra.Command {
	flags := &profileFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, _, _, err := authedClient(ctx)
			if err != nil {
				return err
			}

			draft, err := flags.apply(cmd, types.Profile{})
			if err != nil {
				return err
			}
			if err := profile.Validate(draft); err != nil {
				return err
			}

			created, err := client.CreateProfile(ctx, profile.ForSave(draft))
			if err != nil {
				getLoggerFromContext(ctx).LogError(err, "Failed to create profile", "name", draft.Name)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created profile %s (id %s)\n", created.Name, created.ID)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newProfilesUpdateCmd() *cobra.Command {
	flags := &profileFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, _, _, err := authedClient(ctx)
			if err != nil {
				return err
			}

			existing, err := findProfile(ctx, client, args[0])
			if err != nil {
				return err
			}
			draft, err := flags.apply(cmd, existing)
			if err != nil {
				return err
			}
			if err := profile.Validate(draft); err != nil {
				return err
			}

			if _, err := client.UpdateProfile(ctx, profile.ForSave(draft)); err != nil {
				getLoggerFromContext(ctx).LogError(err, "Failed to update profile", "profile_id", args[0])
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated profile %s\n", draft.Name)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newProfilesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, sess, sessions, err := authedClient(ctx)
			if err != nil {
				return err
			}
			if err := client.DeleteProfile(ctx, args[0]); err != nil {
				getLoggerFromContext(ctx).LogError(err, "Failed to delete profile", "profile_id", args[0])
				return err
			}
			if sess.ActiveProfileID == args[0] {
				sess.ActiveProfileID = ""
				if err := sessions.Save(ctx, sess); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", args[0])
			return nil
		},
	}
}

func newProfilesActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Use a profile's contact details for PDF exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, sess, sessions, err := authedClient(ctx)
			if err != nil {
				return err
			}
			p, err := findProfile(ctx, client, args[0])
			if err != nil {
				return err
			}
			sess.ActiveProfileID = p.ID.String()
			if err := sessions.Save(ctx, sess); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active profile: %s\n", p.Name)
			return nil
		},
	}
}

func findProfile(ctx context.Context, client *apiclient.Client, id string) (types.Profile, error) {
	profiles, err := client.ListProfiles(ctx)
	if err != nil {
		getLoggerFromContext(ctx).LogError(err, "Failed to load profiles")
		return types.Profile{}, err
	}
	p, ok := profile.Find(profiles, id)
	if !ok {
		return types.Profile{}, notFound("Profile", id)
	}
	return p, nil
}
