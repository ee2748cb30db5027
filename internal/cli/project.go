package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clintrovert/lazybird/internal/config"
	"github.com/clintrovert/lazybird/internal/queue"
	"github.com/clintrovert/lazybird/pkg/types"
)

// ProjectCmd returns the project command
func ProjectCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage watched projects",
		Long: `Add, inspect and change the projects lazybird watches.

Changes are written to the configuration file. The previous file is kept
next to it with a .backup suffix. A running watcher picks up changes after
a restart.`,
	}

	cmd.AddCommand(projectListCmd(opts))
	cmd.AddCommand(projectShowCmd(opts))
	cmd.AddCommand(projectAddCmd(opts))
	cmd.AddCommand(projectRemoveCmd(opts))
	cmd.AddCommand(projectEditCmd(opts))
	cmd.AddCommand(projectToggleCmd(opts, "enable", true))
	cmd.AddCommand(projectToggleCmd(opts, "disable", false))

	return cmd
}

func projectListCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(cfg.Projects) == 0 {
				fmt.Fprintln(out, "No projects configured. Add one with: lazybird project add")
				return nil
			}

			fmt.Fprintf(out, "%s\n\n", bold(fmt.Sprintf("Projects (%d)", len(cfg.Projects))))
			for _, p := range cfg.Projects {
				fmt.Fprintf(out, "  %s  %s [%s]\n", bold(p.ID), p.Name, enabledLabel(p.IsEnabled()))
				fmt.Fprintf(out, "      type: %s  platform: %s\n", p.Type, p.Platform)
				fmt.Fprintf(out, "      path: %s\n", p.Path)
				fmt.Fprintf(out, "      repo: %s\n", p.Repository)
			}
			return nil
		},
	}
}

func projectShowCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project's configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			p, err := cfg.FindProject(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n\n", bold("Project: "+p.ID))
			fmt.Fprintf(out, "  name:           %s\n", p.Name)
			fmt.Fprintf(out, "  type:           %s\n", p.Type)
			fmt.Fprintf(out, "  path:           %s\n", p.Path)
			fmt.Fprintf(out, "  repository:     %s\n", p.Repository)
			fmt.Fprintf(out, "  git_platform:   %s\n", p.Platform)
			if p.TrackerProject != "" {
				fmt.Fprintf(out, "  project_id:     %s\n", p.TrackerProject)
			}
			fmt.Fprintf(out, "  test_command:   %s\n", orNotSet(p.TestCommand))
			fmt.Fprintf(out, "  build_command:  %s\n", orNotSet(p.BuildCommand))
			fmt.Fprintf(out, "  lint_command:   %s\n", orNotSet(p.LintCommand))
			fmt.Fprintf(out, "  format_command: %s\n", orNotSet(p.FormatCommand))
			fmt.Fprintf(out, "  status:         %s\n", enabledLabel(p.IsEnabled()))
			return nil
		},
	}
}

func projectAddCmd(opts *Options) *cobra.Command {
	var (
		p        types.ProjectConfig
		platform string
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a project",
		Long: `Add a project to the configuration.

When --repository is omitted it is read from the origin remote of the git
repository at --path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadOrEmpty()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p.Platform = types.Platform(platform)
			if disabled {
				p.SetEnabled(false)
			}

			if p.Repository == "" && p.Path != "" {
				if repo, err := config.InferRepository(p.Path); err == nil {
					p.Repository = repo
					fmt.Fprintf(out, "Using repository from origin remote: %s\n", repo)
				}
			}

			if err := cfg.AddProject(p, config.Check{Path: true}); err != nil {
				return err
			}
			if !config.IsRepository(p.Path) {
				fmt.Fprintf(out, "%s %s is not a git repository\n", yellow("warning:"), p.Path)
			}

			if err := config.Save(opts.ConfigPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s Project '%s' added\n", green("✓"), p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&p.ID, "id", "", "Unique project ID (alphanumeric with dashes/underscores)")
	cmd.Flags().StringVar(&p.Name, "name", "", "Project display name")
	cmd.Flags().StringVar(&p.Type, "type", "", "Project type (godot, python, rust, nodejs, ...)")
	cmd.Flags().StringVar(&p.Path, "path", "", "Absolute path to the project directory")
	cmd.Flags().StringVar(&p.Repository, "repository", "", "Git repository URL")
	cmd.Flags().StringVar(&platform, "git-platform", string(types.PlatformGitHub), "Issue tracker platform (github, gitlab, jira)")
	cmd.Flags().StringVar(&p.TrackerProject, "project-id", "", "GitLab numeric project ID or Jira project key")
	cmd.Flags().StringVar(&p.TestCommand, "test-command", "", "Command to run tests")
	cmd.Flags().StringVar(&p.BuildCommand, "build-command", "", "Command to build")
	cmd.Flags().StringVar(&p.LintCommand, "lint-command", "", "Command to lint")
	cmd.Flags().StringVar(&p.FormatCommand, "format-command", "", "Command to format")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Add the project disabled")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("path")
	cmd.MarkFlagRequired("test-command")

	return cmd
}

func projectRemoveCmd(opts *Options) *cobra.Command {
	var yes, force bool

	cmd := &cobra.Command{
		Use:   "remove <project-id>",
		Short: "Remove a project",
		Long: `Remove a project from the configuration.

Removal is refused while queue files for the project are waiting for the
agent runner, unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			p, err := cfg.FindProject(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			pending, err := pendingTasks(cfg, p.ID)
			if err != nil {
				return err
			}
			if len(pending) > 0 && !force {
				return fmt.Errorf("project %s has %d queued task(s) (%s); use --force to remove anyway",
					p.ID, len(pending), strings.Join(pending, ", "))
			}

			if !yes {
				fmt.Fprintf(out, "Are you sure you want to remove project '%s'?\n", p.ID)
				fmt.Fprintf(out, "  Name: %s\n", p.Name)
				fmt.Fprintf(out, "  Path: %s\n", p.Path)
				fmt.Fprint(out, "Type 'yes' to confirm: ")

				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.ToLower(strings.TrimSpace(answer)) != "yes" {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			if _, err := cfg.RemoveProject(p.ID); err != nil {
				return err
			}
			if err := config.Save(opts.ConfigPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s Project '%s' removed\n", green("✓"), args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	cmd.Flags().BoolVar(&force, "force", false, "Remove even when tasks are queued")

	return cmd
}

func projectEditCmd(opts *Options) *cobra.Command {
	var field, value string
	var force bool

	cmd := &cobra.Command{
		Use:   "edit <project-id>",
		Short: "Edit a project field",
		Long: fmt.Sprintf(`Set one field of a project.

Editable fields: %s`, strings.Join(config.EditableFields, ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			old, err := cfg.EditField(args[0], field, value)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Field '%s':\n  Old: %s\n  New: %s\n", field, orNotSet(old), value)

			p, err := cfg.FindProject(args[0])
			if err != nil {
				return err
			}
			problems := config.ProjectProblems(p, config.Check{Partial: true, Path: field == "path"})
			if len(problems) > 0 {
				errOut := cmd.ErrOrStderr()
				fmt.Fprintln(errOut, yellow("Project validation issues:"))
				for _, problem := range problems {
					fmt.Fprintf(errOut, "  - %s\n", problem)
				}
				if !force {
					return fmt.Errorf("not saved; use --force to save anyway")
				}
			}

			if err := config.Save(opts.ConfigPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s Project '%s' updated\n", green("✓"), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "Field to edit")
	cmd.Flags().StringVar(&value, "value", "", "New value")
	cmd.Flags().BoolVar(&force, "force", false, "Save even if validation fails")
	cmd.MarkFlagRequired("field")
	cmd.MarkFlagRequired("value")

	return cmd
}

func projectToggleCmd(opts *Options, name string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <project-id>",
		Short: strings.ToUpper(name[:1]) + name[1:] + " a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			changed, err := cfg.SetEnabled(args[0], enabled)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !changed {
				fmt.Fprintf(out, "Project '%s' is already %sd\n", args[0], name)
				return nil
			}

			if err := config.Save(opts.ConfigPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s Project '%s' %sd\n", green("✓"), args[0], name)
			return nil
		},
	}
}

// pendingTasks returns the queue entries of a project in every queue
// directory the config may use
func pendingTasks(cfg *config.Config, projectID string) ([]string, error) {
	var names []string
	primary, fallback := cfg.QueueDirs()
	for _, dir := range []string{primary, fallback} {
		if dir == "" {
			continue
		}
		entries, err := queue.List(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.ProjectID == projectID {
				names = append(names, e.Name)
			}
		}
	}
	return names, nil
}
