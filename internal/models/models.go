// Package models defines the core domain types for todobot.
package models

import (
	"strings"
	"time"
)

// TaskStatus represents whether a task is still tracked.
type TaskStatus string

const (
	TaskStatusActive   TaskStatus = "active"
	TaskStatusInactive TaskStatus = "inactive"
)

// Category is one of the fixed task buckets.
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryMisc     Category = "Misc"
)

// Categories lists the buckets in display order.
var Categories = []Category{CategoryWork, CategoryPersonal, CategoryMisc}

// ParseCategory matches user input case-insensitively against the known
// categories and returns the canonical form.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Bucket returns the category a stored value is grouped under. Values outside
// the known set fall into Misc.
func Bucket(c Category) Category {
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CategoryMisc
}

// Task is one user-owned to-do item.
type Task struct {
	ID           string     `json:"id"`
	UserID       int64      `json:"user_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     Category   `json:"category"`
	DueDate      string     `json:"due_date"`      // YYYY-MM-DD
	ReminderTime string     `json:"reminder_time"` // HH:MM, 24h
	Status       TaskStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Reminder is the subset of an active task needed to re-arm its notification.
type Reminder struct {
	TaskID       string `json:"task_id"`
	UserID       int64  `json:"user_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	DueDate      string `json:"due_date"`
	ReminderTime string `json:"reminder_time"`
}

// Reminder returns the reminder view of the task.
func (t Task) Reminder() Reminder {
	return Reminder{
		TaskID:       t.ID,
		UserID:       t.UserID,
		Title:        t.Title,
		Description:  t.Description,
		DueDate:      t.DueDate,
		ReminderTime: t.ReminderTime,
	}
}

// AuditEntry records a state-changing action for later inspection.
type AuditEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	TaskID     string    `json:"task_id,omitempty"`
	UserID     int64     `json:"user_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
