package dispatch

import (
	"fmt"
	"strings"

	"github.com/OmkarNiphade/todo-bot/internal/models"
)

const noTasks = "You have no tasks."

// Group is one category heading and its tasks in listing order.
type Group struct {
	Category models.Category
	Tasks    []models.Task
}

// GroupByCategory buckets tasks as Work, Personal, Misc. Empty buckets are
// omitted and unknown categories land in Misc.
func GroupByCategory(tasks []models.Task) []Group {
	buckets := make(map[models.Category][]models.Task, len(models.Categories))
	for _, t := range tasks {
		c := models.Bucket(t.Category)
		buckets[c] = append(buckets[c], t)
	}

	var groups []Group
	for _, c := range models.Categories {
		if len(buckets[c]) > 0 {
			groups = append(groups, Group{Category: c, Tasks: buckets[c]})
		}
	}
	return groups
}

// RenderTasks renders a numbered listing of tasks.
func RenderTasks(tasks []models.Task) string {
	if len(tasks) == 0 {
		return noTasks
	}

	var b strings.Builder
	b.WriteString("Your Tasks:\n")
	for i, t := range tasks {
		fmt.Fprintf(&b, "\n%d. %s [%s]\n", i+1, t.Title, t.Category)
		writeDetails(&b, t)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderByCategory renders tasks under category headings.
func RenderByCategory(tasks []models.Task) string {
	if len(tasks) == 0 {
		return noTasks
	}

	var b strings.Builder
	b.WriteString("Your Tasks by Category:\n")
	for _, g := range GroupByCategory(tasks) {
		fmt.Fprintf(&b, "\n%s\n", g.Category)
		for i, t := range g.Tasks {
			fmt.Fprintf(&b, "%d. %s\n", i+1, t.Title)
			writeDetails(&b, t)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeDetails(b *strings.Builder, t models.Task) {
	if t.Description != "" {
		fmt.Fprintf(b, "   %s\n", t.Description)
	}
	fmt.Fprintf(b, "   Due: %s  Remind: %s\n", t.DueDate, t.ReminderTime)
}

// RenderReminder is the notification text for a fired reminder.
func RenderReminder(r models.Reminder) string {
	return "Reminder: " + r.Title
}
