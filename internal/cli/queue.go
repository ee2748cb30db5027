package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clintrovert/lazybird/internal/queue"
)

// QueueCmd returns the queue command
func QueueCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the task queue",
	}

	cmd.AddCommand(queueListCmd(opts))

	return cmd
}

func queueListCmd(opts *Options) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks waiting for the agent runner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			primary, fallback := cfg.QueueDirs()
			total := 0
			for _, dir := range []string{primary, fallback} {
				if dir == "" {
					continue
				}
				entries, err := queue.List(dir)
				if err != nil {
					return err
				}
				for _, e := range entries {
					if project != "" && e.ProjectID != project {
						continue
					}
					total++
					age := time.Since(e.ModTime).Truncate(time.Second)
					fmt.Fprintf(out, "  %s  project=%s issue=#%d  queued %s ago\n", bold(e.Name), e.ProjectID, e.IssueID, age)
				}
			}

			if total == 0 {
				fmt.Fprintln(out, "Queue is empty")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Only show tasks of this project")

	return cmd
}
