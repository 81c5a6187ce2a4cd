// Package cmd implements the taskboard command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskboard",
		Short: "Taskboard - projects and tasks synced with a remote store",
		Long: `Taskboard keeps a local view of your projects and tasks in step with a
taskboard server. Run "taskboard serve" to start a server, then sign in and
manage projects and tasks from the command line.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default $XDG_CONFIG_HOME/taskboard/config.yaml)")
	rootCmd.PersistentFlags().Bool("local", false, "Use the local database directly instead of a server")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(signUpCmd(), signInCmd(), signOutCmd(), recoverCmd())
	rootCmd.AddCommand(projectsCmd(), tasksCmd())
	return rootCmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}
