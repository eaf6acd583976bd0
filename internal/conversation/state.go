// Package conversation drives the multi-turn add and remove task dialogues.
package conversation

import (
	"github.com/OmkarNiphade/todo-bot/internal/models"
)

// State is where a user's session is within a flow.
type State int

const (
	Idle State = iota
	AwaitingTitle
	AwaitingDescription
	AwaitingCategory
	AwaitingDueDate
	AwaitingReminderTime
	AwaitingSelection
)

var stateNames = map[State]string{
	Idle:                 "idle",
	AwaitingTitle:        "awaiting_title",
	AwaitingDescription:  "awaiting_description",
	AwaitingCategory:     "awaiting_category",
	AwaitingDueDate:      "awaiting_due_date",
	AwaitingReminderTime: "awaiting_reminder_time",
	AwaitingSelection:    "awaiting_selection",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// draft holds the fields collected so far by the add flow.
type draft struct {
	title        string
	description  string
	category     models.Category
	dueDate      string
	reminderTime string
}

// session is one user's in-progress flow. snapshot is only set for removal.
type session struct {
	state    State
	draft    draft
	snapshot []models.Task
}

func (s *session) adding() bool {
	return s.state >= AwaitingTitle && s.state <= AwaitingReminderTime
}

// Outcome classifies a reply so callers can react without parsing text.
type Outcome int

const (
	OutcomePrompt Outcome = iota
	OutcomeReprompt
	OutcomeCreated
	OutcomeCreatedWithoutReminder
	OutcomeRemoved
	OutcomeAlreadyRemoved
	OutcomeNothingToRemove
	OutcomeCancelled
	OutcomeNothingToCancel
	OutcomeFailed
)

// Reply is what the engine wants sent back to the user.
type Reply struct {
	Text    string
	Outcome Outcome
	// Task is the created or removed task, when there is one.
	Task *models.Task
}
