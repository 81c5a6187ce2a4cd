package cmd

import (
	"context"
	"log"
	"strconv"

	"github.com/spf13/cobra"

	"taskboard/internal/models"
)

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "Manage the tasks of a project",
	}

	cmd.PersistentFlags().String("project", "", "Project ID (required)")
	if err := cmd.MarkPersistentFlagRequired("project"); err != nil {
		log.Printf("Error marking flag as required: %v", err)
	}

	cmd.AddCommand(
		tasksListCmd(),
		tasksAddCmd(),
		tasksSetDoneCmd("done", "Mark a task as done", true),
		tasksSetDoneCmd("undo", "Mark a task as not done", false),
		tasksRenameCmd(),
		tasksRmCmd(),
		tasksMoveCmd(),
		tasksStatsCmd(),
	)
	return cmd
}

// withTasks runs fn after loading the tasks of the --project project.
func withTasks(cmd *cobra.Command, fn func(ctx context.Context, a *app, projectID string) error) error {
	projectID, _ := cmd.Flags().GetString("project")
	return withSession(cmd, func(ctx context.Context, a *app) error {
		if err := a.entities.LoadTasks(ctx, projectID); err != nil {
			return err
		}
		return fn(ctx, a, projectID)
	})
}

func tasksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks in display order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTasks(cmd, func(ctx context.Context, a *app, projectID string) error {
				return a.out.tasks(a.entities.Tasks(projectID))
			})
		},
	}
}

func tasksAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task at the top of the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, _ := cmd.Flags().GetString("project")
			return withSession(cmd, func(ctx context.Context, a *app) error {
				t, err := a.entities.CreateTask(ctx, models.Task{ProjectID: projectID, Title: args[0]})
				if err != nil {
					return err
				}
				return a.out.task(t)
			})
		},
	}
}

func tasksSetDoneCmd(use, short string, done bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTasks(cmd, func(ctx context.Context, a *app, projectID string) error {
				t, err := a.entities.UpdateTask(ctx, args[0], models.TaskPatch{Done: &done})
				if err != nil {
					return err
				}
				return a.out.task(t)
			})
		},
	}
}

func tasksRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <task-id> <title>",
		Short: "Change a task's title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := args[1]
			return withTasks(cmd, func(ctx context.Context, a *app, projectID string) error {
				t, err := a.entities.UpdateTask(ctx, args[0], models.TaskPatch{Title: &title})
				if err != nil {
					return err
				}
				return a.out.task(t)
			})
		},
	}
}

func tasksRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *app) error {
				if err := a.entities.DeleteTask(ctx, args[0]); err != nil {
					return err
				}
				return a.out.message("Deleted task %s", args[0])
			})
		},
	}
}

func tasksMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <from> <to>",
		Short: "Move the task at one list index to another",
		Long: `Move the task at index <from> to index <to>, as shown by "tasks list".
The new order is saved when the server supports task ordering.

Examples:
  taskboard tasks move 0 2 --project=6f1c...
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}

			return withTasks(cmd, func(ctx context.Context, a *app, projectID string) error {
				if err := a.entities.ReorderTasks(ctx, projectID, from, to); err != nil {
					return err
				}
				return a.out.tasks(a.entities.Tasks(projectID))
			})
		},
	}
}

func tasksStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task completion for the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTasks(cmd, func(ctx context.Context, a *app, projectID string) error {
				return a.out.taskStats(a.entities.TaskStats(projectID))
			})
		},
	}
}
