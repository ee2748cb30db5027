package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clintrovert/lazybird/internal/cli"
)

func main() {
	opts := &cli.Options{}

	rootCmd := &cobra.Command{
		Use:   "lazybird",
		Short: "lazybird - turn ready-labeled issues into agent tasks",
		Long: `lazybird watches issue trackers for issues labeled "ready" and queues
them as tasks for an external coding agent.

This tool manages the watched projects and inspects the task queue.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", cli.DefaultConfigPath(), "Path to the configuration file")

	rootCmd.AddCommand(cli.ProjectCmd(opts))
	rootCmd.AddCommand(cli.QueueCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
