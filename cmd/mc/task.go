package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openclaw/mission-control/board"
	"github.com/openclaw/mission-control/client"
	"github.com/openclaw/mission-control/store"
)

var (
	listStatus   string
	listPriority string
	listProject  string

	addPriority string
	addDesc     string
	addProject  int64
	addDue      string
	addStatus   string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "List and manage tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		q := client.TaskQuery{Priority: store.Priority(listPriority), ProjectID: listProject}
		if listStatus != "" {
			s, err := parseStatus(listStatus)
			if err != nil {
				return err
			}
			q.Status = s
		}
		tasks, err := apiClient().ListTasks(cmd.Context(), q)
		if err != nil {
			return err
		}
		printTasks(cmd.OutOrStdout(), tasks)
		return nil
	},
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nt := client.NewTask{
			Title:       strings.Join(args, " "),
			Description: addDesc,
			Priority:    store.Priority(addPriority),
			DueDate:     addDue,
		}
		if addStatus != "" {
			s, err := parseStatus(addStatus)
			if err != nil {
				return err
			}
			nt.Status = s
		}
		if cmd.Flags().Changed("project") {
			nt.ProjectID = &addProject
		}
		t, err := apiClient().CreateTask(cmd.Context(), nt)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created task #%d: %s\n", t.ID, t.Title)
		return nil
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move [id] [status | project:<id> | unassigned]",
	Short: "Move a task to another column",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}
		target, err := parseTarget(args[1])
		if err != nil {
			return err
		}

		mode := board.ByStatus
		if target.ByProject {
			mode = board.ByProject
		}
		ctl := &board.Controller{Board: board.New(mode, nil), API: apiClient()}
		if err := ctl.Refresh(cmd.Context()); err != nil {
			return err
		}
		out, err := ctl.Move(cmd.Context(), id, target)
		if errors.Is(err, board.ErrNoChange) {
			fmt.Fprintf(cmd.OutOrStdout(), "Task #%d is already there\n", id)
			return nil
		}
		if err != nil {
			return err
		}
		if toast, ok := ctl.Board.Toasts.Latest(); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "#%d %s\n", out.Move.TaskID, toast.Message)
		}
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}
		if err := apiClient().DeleteTask(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted task #%d\n", id)
		return nil
	},
}

func init() {
	taskListCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Filter by status: backlog, in-progress, done")
	taskListCmd.Flags().StringVarP(&listPriority, "priority", "p", "", "Filter by priority: high, medium, low")
	taskListCmd.Flags().StringVar(&listProject, "project", "", "Filter by project id, or \"none\" for unassigned")

	taskAddCmd.Flags().StringVarP(&addPriority, "priority", "p", "", "Priority: high, medium, low")
	taskAddCmd.Flags().StringVarP(&addDesc, "desc", "d", "", "Task description")
	taskAddCmd.Flags().Int64Var(&addProject, "project", 0, "Project id")
	taskAddCmd.Flags().StringVar(&addDue, "due", "", "Due date (YYYY-MM-DD)")
	taskAddCmd.Flags().StringVarP(&addStatus, "status", "s", "", "Initial status")

	taskCmd.AddCommand(taskListCmd, taskAddCmd, taskMoveCmd, taskRmCmd)
}

// parseStatus accepts a column name in any case, with dashes or
// underscores for spaces.
func parseStatus(s string) (store.Status, error) {
	norm := strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(s))
	for _, st := range store.Statuses {
		if strings.EqualFold(norm, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q (want backlog, in-progress or done)", s)
}

func parseTarget(s string) (board.Target, error) {
	switch {
	case strings.EqualFold(s, "unassigned"), strings.EqualFold(s, "none"):
		return board.ProjectTarget(nil), nil
	case strings.HasPrefix(s, "project:"):
		id, err := strconv.ParseInt(strings.TrimPrefix(s, "project:"), 10, 64)
		if err != nil {
			return board.Target{}, fmt.Errorf("invalid project id in %q", s)
		}
		return board.ProjectTarget(&id), nil
	}
	st, err := parseStatus(s)
	if err != nil {
		return board.Target{}, err
	}
	return board.StatusTarget(st), nil
}

func printTasks(w io.Writer, tasks []*store.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tPROJECT\tDUE")
	for _, t := range tasks {
		project := "-"
		if t.ProjectID != nil {
			project = strconv.FormatInt(*t.ProjectID, 10)
		}
		due := t.DueDate
		if due == "" {
			due = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", t.ID, truncate(t.Title, 40), t.Status, t.Priority, project, due)
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
