package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"taskboard/internal/models"
)

// output prints results either as aligned text or as JSON.
type output struct {
	w    io.Writer
	json bool
}

func newOutput(w io.Writer, jsonOutput bool) *output {
	return &output{w: w, json: jsonOutput}
}

func (o *output) encode(v interface{}) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *output) message(format string, args ...interface{}) error {
	if o.json {
		return o.encode(map[string]string{"message": fmt.Sprintf(format, args...)})
	}
	_, err := fmt.Fprintf(o.w, format+"\n", args...)
	return err
}

func (o *output) projects(projects []models.Project) error {
	if o.json {
		return o.encode(projects)
	}
	if len(projects) == 0 {
		return o.message("No projects yet.")
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tDESCRIPTION")
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Status, p.Title, truncate(p.Description, 40))
	}
	return tw.Flush()
}

func (o *output) project(p models.Project) error {
	if o.json {
		return o.encode(p)
	}
	return o.message("%s  %s  [%s]", p.ID, p.Title, p.Status)
}

func (o *output) tasks(tasks []models.Task) error {
	if o.json {
		return o.encode(tasks)
	}
	if len(tasks) == 0 {
		return o.message("No tasks yet.")
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDONE\tID\tTITLE")
	for i, t := range tasks {
		done := " "
		if t.Done {
			done = "x"
		}
		fmt.Fprintf(tw, "%d\t[%s]\t%s\t%s\n", i, done, t.ID, t.Title)
	}
	return tw.Flush()
}

func (o *output) task(t models.Task) error {
	if o.json {
		return o.encode(t)
	}
	return o.message("%s  %s", t.ID, t.Title)
}

func (o *output) projectStats(s models.ProjectStats) error {
	if o.json {
		return o.encode(s)
	}
	return o.message("Total: %d  Planned: %d  In Progress: %d  Paused: %d  Completed: %d",
		s.Total, s.Planned, s.InProgress, s.Paused, s.Completed)
}

func (o *output) taskStats(s models.TaskStats) error {
	if o.json {
		return o.encode(s)
	}
	return o.message("Total: %d  Completed: %d  Pending: %d  Progress: %d%%",
		s.Total, s.Completed, s.Pending, s.CompletionRate)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
