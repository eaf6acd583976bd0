// Package audit records state-changing actions for later inspection.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/OmkarNiphade/todo-bot/internal/models"
	"github.com/rs/zerolog/log"
)

// Actions recorded by todobot.
const (
	ActionTaskCreate     = "task.create"
	ActionTaskDeactivate = "task.deactivate"
	ActionReminderSent   = "reminder.sent"
	ActionReminderFailed = "reminder.failed"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Writer is the persistence the recorder needs.
type Writer interface {
	WriteAudit(ctx context.Context, entry models.AuditEntry) (*models.AuditEntry, error)
}

// Recorder writes audit entries. A failed write is logged and never fails the
// action being audited.
type Recorder struct {
	w Writer
}

// NewRecorder creates a new audit recorder.
func NewRecorder(w Writer) *Recorder {
	return &Recorder{w: w}
}

// Record writes an audit entry for an action on a task.
func (r *Recorder) Record(ctx context.Context, action string, inputs any, outcome string, userID int64, taskID, details string) {
	if r == nil || r.w == nil {
		return
	}
	_, err := r.w.WriteAudit(ctx, models.AuditEntry{
		Action:     action,
		InputsHash: hashInputs(inputs),
		Outcome:    outcome,
		TaskID:     taskID,
		UserID:     userID,
		Details:    details,
	})
	if err != nil {
		log.Warn().Err(err).Str("action", action).Str("task_id", taskID).Msg("audit write failed")
	}
}

// hashInputs creates a SHA256 hash of the inputs.
func hashInputs(inputs any) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
