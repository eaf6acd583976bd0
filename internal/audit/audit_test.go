package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/OmkarNiphade/todo-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	entries []models.AuditEntry
	err     error
}

func (m *memWriter) WriteAudit(_ context.Context, e models.AuditEntry) (*models.AuditEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.entries = append(m.entries, e)
	return &e, nil
}

func TestRecord(t *testing.T) {
	w := &memWriter{}
	r := NewRecorder(w)

	r.Record(context.Background(), ActionTaskCreate, map[string]string{"title": "x"}, OutcomeSuccess, 5, "task-1", "")

	require.Len(t, w.entries, 1)
	e := w.entries[0]
	assert.Equal(t, ActionTaskCreate, e.Action)
	assert.Equal(t, OutcomeSuccess, e.Outcome)
	assert.Equal(t, int64(5), e.UserID)
	assert.Equal(t, "task-1", e.TaskID)
	assert.Len(t, e.InputsHash, 64)
}

func TestRecordStableHash(t *testing.T) {
	assert.Equal(t, hashInputs(map[string]string{"a": "1"}), hashInputs(map[string]string{"a": "1"}))
	assert.NotEqual(t, hashInputs(map[string]string{"a": "1"}), hashInputs(map[string]string{"a": "2"}))
	assert.Equal(t, "hash_error", hashInputs(make(chan int)))
}

func TestRecordSwallowsWriteErrors(t *testing.T) {
	r := NewRecorder(&memWriter{err: errors.New("disk full")})

	assert.NotPanics(t, func() {
		r.Record(context.Background(), ActionTaskDeactivate, nil, OutcomeError, 1, "", "")
	})

	var nilRecorder *Recorder
	assert.NotPanics(t, func() {
		nilRecorder.Record(context.Background(), ActionTaskDeactivate, nil, OutcomeError, 1, "", "")
	})
}
