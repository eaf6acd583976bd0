package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/OmkarNiphade/todo-bot/internal/models"
	"github.com/OmkarNiphade/todo-bot/internal/scheduler"
	"github.com/OmkarNiphade/todo-bot/internal/store"
	"github.com/rs/zerolog/log"
)

// ErrValidationRejected marks input a state refuses. It never leaves the
// engine; the state re-prompts instead.
var ErrValidationRejected = errors.New("input rejected")

// TaskStore is the persistence the flows commit to.
type TaskStore interface {
	CreateTask(ctx context.Context, userID int64, title, description string, category models.Category, dueDate, reminderTime string) (*models.Task, error)
	ListActiveTasks(ctx context.Context, userID int64) ([]models.Task, error)
	DeactivateTask(ctx context.Context, userID int64, sel store.Selector) (*models.Task, error)
}

// ReminderScheduler arms the notification for a newly created task and drops
// it when the task is removed.
type ReminderScheduler interface {
	ScheduleReminder(r models.Reminder) (scheduler.JobHandle, error)
	CancelTask(taskID string) bool
}

// Prompts sent by the flows.
const (
	PromptTitle        = "What's the task title?"
	PromptDescription  = "Enter a short description:"
	PromptCategory     = "Choose a category: Work, Personal, Misc"
	RepromptCategory   = "Please choose: Work, Personal, or Misc"
	PromptDueDate      = "Enter due date (YYYY-MM-DD):"
	PromptReminderTime = "Set reminder time (HH:MM in 24hr):"
	PromptSelection    = "Send the task number to remove."
	RepromptNumber     = "Invalid number. Please try again."
	NothingToRemove    = "You have no tasks to remove."
	TaskRemoved        = "Task removed successfully."
	TaskAlreadyRemoved = "That task was already removed."
	NothingToCancel    = "Nothing to cancel."
	StorageFailure     = "Sorry, something went wrong on our side. Please try again later."
)

// Engine keeps one session per user. Messages from the same user are
// expected one at a time; different users may call concurrently.
type Engine struct {
	tasks     TaskStore
	reminders ReminderScheduler

	mu       sync.Mutex
	sessions map[int64]*session
}

// New creates a conversation engine.
func New(tasks TaskStore, reminders ReminderScheduler) *Engine {
	return &Engine{
		tasks:     tasks,
		reminders: reminders,
		sessions:  make(map[int64]*session),
	}
}

func (e *Engine) get(userID int64) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[userID]
}

func (e *Engine) put(userID int64, s *session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions[userID] = s
}

// end discards the user's session if it is still s.
func (e *Engine) end(userID int64, s *session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sessions[userID] == s {
		delete(e.sessions, userID)
	}
}

// State reports where the user is; Idle when no flow is active.
func (e *Engine) State(userID int64) State {
	if s := e.get(userID); s != nil {
		return s.state
	}
	return Idle
}

// Reset discards any session for the user without replying.
func (e *Engine) Reset(userID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, userID)
}

// StartAdd begins the add-task flow, replacing any session in progress.
func (e *Engine) StartAdd(userID int64) Reply {
	e.put(userID, &session{state: AwaitingTitle})
	return Reply{Text: PromptTitle, Outcome: OutcomePrompt}
}

// StartRemove snapshots the user's active tasks and asks which to remove.
// With no tasks the flow ends at once and no session is created.
func (e *Engine) StartRemove(ctx context.Context, userID int64) Reply {
	tasks, err := e.tasks.ListActiveTasks(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("list tasks for removal")
		e.Reset(userID)
		return Reply{Text: StorageFailure, Outcome: OutcomeFailed}
	}
	if len(tasks) == 0 {
		e.Reset(userID)
		return Reply{Text: NothingToRemove, Outcome: OutcomeNothingToRemove}
	}

	e.put(userID, &session{state: AwaitingSelection, snapshot: tasks})
	return Reply{Text: removalPrompt(tasks), Outcome: OutcomePrompt}
}

func removalPrompt(tasks []models.Task) string {
	var b strings.Builder
	b.WriteString("Select a task to remove:\n\n")
	for i, t := range tasks {
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, t.Title, t.Description)
	}
	b.WriteString("\n")
	b.WriteString(PromptSelection)
	return b.String()
}

// Cancel discards the session without committing anything. Reminders that
// were already scheduled are left alone.
func (e *Engine) Cancel(userID int64) Reply {
	s := e.get(userID)
	if s == nil {
		return Reply{Text: NothingToCancel, Outcome: OutcomeNothingToCancel}
	}
	e.end(userID, s)
	if s.adding() {
		return Reply{Text: "Task creation cancelled.", Outcome: OutcomeCancelled}
	}
	return Reply{Text: "Task removal cancelled.", Outcome: OutcomeCancelled}
}

// Handle feeds a free-text message to the user's session. It reports false
// when the user has no flow in progress.
func (e *Engine) Handle(ctx context.Context, userID int64, text string) (Reply, bool) {
	s := e.get(userID)
	if s == nil {
		return Reply{}, false
	}

	switch s.state {
	case AwaitingTitle:
		s.draft.title = text
		s.state = AwaitingDescription
		return Reply{Text: PromptDescription, Outcome: OutcomePrompt}, true

	case AwaitingDescription:
		s.draft.description = text
		s.state = AwaitingCategory
		return Reply{Text: PromptCategory, Outcome: OutcomePrompt}, true

	case AwaitingCategory:
		category, err := parseCategory(text)
		if err != nil {
			return Reply{Text: RepromptCategory, Outcome: OutcomeReprompt}, true
		}
		s.draft.category = category
		s.state = AwaitingDueDate
		return Reply{Text: PromptDueDate, Outcome: OutcomePrompt}, true

	case AwaitingDueDate:
		s.draft.dueDate = text
		s.state = AwaitingReminderTime
		return Reply{Text: PromptReminderTime, Outcome: OutcomePrompt}, true

	case AwaitingReminderTime:
		s.draft.reminderTime = text
		defer e.end(userID, s)
		return e.commit(ctx, userID, s.draft), true

	case AwaitingSelection:
		return e.selectForRemoval(ctx, userID, s, text), true
	}

	e.end(userID, s)
	return Reply{}, false
}

func parseCategory(text string) (models.Category, error) {
	category, ok := models.ParseCategory(text)
	if !ok {
		return "", fmt.Errorf("%w: category %q", ErrValidationRejected, text)
	}
	return category, nil
}

// commit stores the drafted task and arms its reminder. A failed create never
// schedules; a failed schedule keeps the task and says so.
func (e *Engine) commit(ctx context.Context, userID int64, d draft) Reply {
	task, err := e.tasks.CreateTask(ctx, userID, d.title, d.description, d.category, d.dueDate, d.reminderTime)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("create task")
		return Reply{Text: StorageFailure, Outcome: OutcomeFailed}
	}

	if _, err := e.reminders.ScheduleReminder(task.Reminder()); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Str("task_id", task.ID).Msg("schedule reminder")
		return Reply{
			Text: fmt.Sprintf("Task added, but I couldn't set a reminder for %q at %q. "+
				"Use YYYY-MM-DD and HH:MM next time.", d.dueDate, d.reminderTime),
			Outcome: OutcomeCreatedWithoutReminder,
			Task:    task,
		}
	}

	log.Info().Int64("user_id", userID).Str("task_id", task.ID).Msg("task created")
	return Reply{
		Text:    fmt.Sprintf("Task added successfully! I'll remind you on %s at %s.", d.dueDate, d.reminderTime),
		Outcome: OutcomeCreated,
		Task:    task,
	}
}

func (e *Engine) selectForRemoval(ctx context.Context, userID int64, s *session, text string) Reply {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return Reply{Text: RepromptNumber, Outcome: OutcomeReprompt}
	}
	if n < 1 || n > len(s.snapshot) {
		return Reply{
			Text:    fmt.Sprintf("Invalid task number. Send a number between 1 and %d.", len(s.snapshot)),
			Outcome: OutcomeReprompt,
		}
	}

	// The flow ends whatever the store says.
	defer e.end(userID, s)

	target := s.snapshot[n-1]
	removed, err := e.tasks.DeactivateTask(ctx, userID, store.ByID(target.ID))
	switch {
	case err == nil:
		e.reminders.CancelTask(removed.ID)
		log.Info().Int64("user_id", userID).Str("task_id", removed.ID).Msg("task removed")
		return Reply{Text: TaskRemoved, Outcome: OutcomeRemoved, Task: removed}
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrAmbiguousSelector):
		return Reply{Text: TaskAlreadyRemoved, Outcome: OutcomeAlreadyRemoved}
	default:
		log.Error().Err(err).Int64("user_id", userID).Str("task_id", target.ID).Msg("remove task")
		return Reply{Text: StorageFailure, Outcome: OutcomeFailed}
	}
}
