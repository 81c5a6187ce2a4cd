package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"taskboard/internal/models"
)

func projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "Manage projects",
	}

	cmd.AddCommand(projectsListCmd(), projectsAddCmd(), projectsEditCmd(), projectsRmCmd(), projectsStatsCmd())
	return cmd
}

func projectsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects, newest first",
		Long: `List projects, newest first.

Examples:
  taskboard projects list
  taskboard projects list --search=web --status="In Progress"
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			search, _ := cmd.Flags().GetString("search")
			status, _ := cmd.Flags().GetString("status")
			if err := checkStatusFilter(status); err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, a *app) error {
				if err := a.entities.LoadProjects(ctx); err != nil {
					return err
				}
				return a.out.projects(a.entities.FilterProjects(search, models.ProjectStatus(status)))
			})
		},
	}

	cmd.Flags().String("search", "", "Only projects whose title or description contains this text")
	cmd.Flags().String("status", "all", "Only projects with this status")
	return cmd
}

func projectsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a project",
		Long: `Create a project.

Examples:
  taskboard projects add --title="Website relaunch" --description="Q3"
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			status, _ := cmd.Flags().GetString("status")

			return withSession(cmd, func(ctx context.Context, a *app) error {
				p, err := a.entities.CreateProject(ctx, models.Project{
					Title:       title,
					Description: description,
					Status:      models.ProjectStatus(status),
				})
				if err != nil {
					return err
				}
				return a.out.project(p)
			})
		},
	}

	cmd.Flags().String("title", "", "Project title (required)")
	if err := cmd.MarkFlagRequired("title"); err != nil {
		log.Printf("Error marking flag as required: %v", err)
	}
	cmd.Flags().String("description", "", "Project description")
	cmd.Flags().String("status", string(models.StatusPlanned), "Initial status")
	return cmd
}

func projectsEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <project-id>",
		Short: "Change a project's title, description or status",
		Long: `Change a project's title, description or status. Only the flags given
are sent, and nothing is sent when they match the current values.

Examples:
  taskboard projects edit 6f1c... --status=Completed
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.ProjectPatch
			if cmd.Flags().Changed("title") {
				v, _ := cmd.Flags().GetString("title")
				patch.Title = &v
			}
			if cmd.Flags().Changed("description") {
				v, _ := cmd.Flags().GetString("description")
				patch.Description = &v
			}
			if cmd.Flags().Changed("status") {
				v, _ := cmd.Flags().GetString("status")
				status := models.ProjectStatus(v)
				patch.Status = &status
			}
			if patch.Empty() {
				return fmt.Errorf("nothing to change: pass --title, --description or --status")
			}

			return withSession(cmd, func(ctx context.Context, a *app) error {
				if err := a.entities.LoadProjects(ctx); err != nil {
					return err
				}
				p, err := a.entities.UpdateProject(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return a.out.project(p)
			})
		},
	}

	cmd.Flags().String("title", "", "New title")
	cmd.Flags().String("description", "", "New description")
	cmd.Flags().String("status", "", "New status")
	return cmd
}

func projectsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <project-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a project and its tasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *app) error {
				if err := a.entities.DeleteProject(ctx, args[0]); err != nil {
					return err
				}
				return a.out.message("Deleted project %s", args[0])
			})
		},
	}
}

func projectsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count projects by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *app) error {
				if err := a.entities.LoadProjects(ctx); err != nil {
					return err
				}
				return a.out.projectStats(a.entities.ProjectStats())
			})
		},
	}
}

func checkStatusFilter(status string) error {
	if status == "" || status == "all" || models.ProjectStatus(status).Valid() {
		return nil
	}
	return fmt.Errorf("invalid status %q (must be: all, Planned, In Progress, Paused, Completed)", status)
}
