package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/OmkarNiphade/todo-bot/internal/scheduler"
	"github.com/OmkarNiphade/todo-bot/internal/store"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and manage stored tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's active tasks",
	RunE:  runTaskList,
}

var taskRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a user's task by id or title",
	RunE:  runTaskRemove,
}

var taskRemindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "List every active reminder and when it fires",
	RunE:  runTaskReminders,
}

var (
	taskUser  int64
	taskID    string
	taskTitle string
)

func init() {
	taskCmd.AddCommand(taskListCmd, taskRemoveCmd, taskRemindersCmd)

	taskListCmd.Flags().Int64Var(&taskUser, "user", 0, "User id (required)")
	taskListCmd.MarkFlagRequired("user")

	taskRemoveCmd.Flags().Int64Var(&taskUser, "user", 0, "User id (required)")
	taskRemoveCmd.Flags().StringVar(&taskID, "id", "", "Task id")
	taskRemoveCmd.Flags().StringVar(&taskTitle, "title", "", "Exact task title")
	taskRemoveCmd.MarkFlagRequired("user")
	taskRemoveCmd.MarkFlagsMutuallyExclusive("id", "title")
	taskRemoveCmd.MarkFlagsOneRequired("id", "title")
}

func runTaskList(cmd *cobra.Command, args []string) error {
	st, svc, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	tasks, err := svc.ListActiveTasks(cmd.Context(), taskUser)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tDUE\tREMIND")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", truncateID(t.ID), truncate(t.Title, 40), t.Category, t.DueDate, t.ReminderTime)
	}
	return w.Flush()
}

func runTaskRemove(cmd *cobra.Command, args []string) error {
	st, svc, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	sel := store.ByID(taskID)
	if taskTitle != "" {
		sel = store.ByTitle(taskTitle)
	}

	task, err := svc.DeactivateTask(cmd.Context(), taskUser, sel)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("no active task matches %s for user %d", sel, taskUser)
	case errors.Is(err, store.ErrAmbiguousSelector):
		return fmt.Errorf("several tasks match %s; remove by --id instead", sel)
	case err != nil:
		return err
	}

	fmt.Printf("Removed task %s (%s)\n", task.ID, task.Title)
	return nil
}

func runTaskReminders(cmd *cobra.Command, args []string) error {
	st, svc, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return err
	}

	reminders, err := svc.ListAllActiveReminders(cmd.Context())
	if err != nil {
		return err
	}
	if len(reminders) == 0 {
		fmt.Println("No active reminders")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tUSER\tTITLE\tFIRES AT\tSTATE")
	for _, r := range reminders {
		at, err := scheduler.FireInstant(r.DueDate, r.ReminderTime, loc)
		fires, state := at.Format(time.RFC3339), "pending"
		switch {
		case err != nil:
			fires, state = r.DueDate+" "+r.ReminderTime, "invalid"
		case !at.After(now):
			state = "due"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", truncateID(r.TaskID), r.UserID, truncate(r.Title, 40), fires, state)
	}
	return w.Flush()
}

func truncateID(id string) string {
	if r := []rune(id); len(r) > 8 {
		return string(r[:8])
	}
	return id
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
