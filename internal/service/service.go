// Package service provides the task business logic shared by the chat
// flows, the reminder scheduler and the admin API.
package service

import (
	"context"

	"github.com/OmkarNiphade/todo-bot/internal/audit"
	"github.com/OmkarNiphade/todo-bot/internal/models"
	"github.com/OmkarNiphade/todo-bot/internal/store"
)

// Service wraps the store and records every mutation in the audit log.
type Service struct {
	store *store.Store
	audit *audit.Recorder
}

// New creates a new task service.
func New(s *store.Store, rec *audit.Recorder) *Service {
	return &Service{
		store: s,
		audit: rec,
	}
}

// CreateTask creates a new active task.
func (s *Service) CreateTask(ctx context.Context, userID int64, title, description string, category models.Category, dueDate, reminderTime string) (*models.Task, error) {
	inputs := map[string]string{
		"title":         title,
		"category":      string(category),
		"due_date":      dueDate,
		"reminder_time": reminderTime,
	}

	task, err := s.store.CreateTask(ctx, userID, title, description, category, dueDate, reminderTime)
	if err != nil {
		s.audit.Record(ctx, audit.ActionTaskCreate, inputs, audit.OutcomeError, userID, "", err.Error())
		return nil, err
	}

	s.audit.Record(ctx, audit.ActionTaskCreate, inputs, audit.OutcomeSuccess, userID, task.ID, "")
	return task, nil
}

// GetTask retrieves a task by ID.
func (s *Service) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return s.store.GetTask(ctx, id)
}

// ListActiveTasks returns the user's active tasks, oldest first.
func (s *Service) ListActiveTasks(ctx context.Context, userID int64) ([]models.Task, error) {
	return s.store.ListActiveTasks(ctx, userID)
}

// DeactivateTask soft-deletes one active task.
func (s *Service) DeactivateTask(ctx context.Context, userID int64, sel store.Selector) (*models.Task, error) {
	inputs := map[string]string{"selector": sel.String()}

	task, err := s.store.DeactivateTask(ctx, userID, sel)
	if err != nil {
		s.audit.Record(ctx, audit.ActionTaskDeactivate, inputs, audit.OutcomeError, userID, sel.ID, err.Error())
		return nil, err
	}

	s.audit.Record(ctx, audit.ActionTaskDeactivate, inputs, audit.OutcomeSuccess, userID, task.ID, "")
	return task, nil
}

// ListAllActiveReminders returns every active reminder in the system.
func (s *Service) ListAllActiveReminders(ctx context.Context) ([]models.Reminder, error) {
	return s.store.ListAllActiveReminders(ctx)
}

// RecordReminder audits the delivery of a reminder notification.
func (s *Service) RecordReminder(ctx context.Context, r models.Reminder, sendErr error) {
	inputs := map[string]string{"title": r.Title}
	if sendErr != nil {
		s.audit.Record(ctx, audit.ActionReminderFailed, inputs, audit.OutcomeError, r.UserID, r.TaskID, sendErr.Error())
		return
	}
	s.audit.Record(ctx, audit.ActionReminderSent, inputs, audit.OutcomeSuccess, r.UserID, r.TaskID, "")
}

// Ping checks the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
