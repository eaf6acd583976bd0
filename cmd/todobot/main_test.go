package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/OmkarNiphade/todo-bot/internal/audit"
	"github.com/OmkarNiphade/todo-bot/internal/models"
	"github.com/OmkarNiphade/todo-bot/internal/service"
	"github.com/OmkarNiphade/todo-bot/internal/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reminderList []models.Reminder

func (l reminderList) ListAllActiveReminders(context.Context) ([]models.Reminder, error) {
	return l, nil
}

func TestUserRemindersFiltersByUser(t *testing.T) {
	src := userReminders{
		src: reminderList{
			{TaskID: "a", UserID: 1},
			{TaskID: "b", UserID: 2},
			{TaskID: "c", UserID: 1},
		},
		userID: 1,
	}

	got, err := src.ListAllActiveReminders(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].TaskID)
	assert.Equal(t, "c", got[1].TaskID)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "12345678", truncateID("123456789abc"))
	assert.Equal(t, "1234", truncateID("1234"))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	got := truncate("Купить молоко и хлеб", 10)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "Купить ...", got)

	got = truncate("🥛🥛🥛🥛🥛🥛", 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "🥛🥛...", got)

	assert.Equal(t, "ééééééé", truncate("ééééééé", 7))
	assert.Equal(t, "日本語日本語日本", truncateID("日本語日本語日本語"))
}

type recordingDelivery struct {
	sent []string
	err  error
}

func (d *recordingDelivery) deliver(_ context.Context, r models.Reminder) error {
	d.sent = append(d.sent, r.TaskID)
	return d.err
}

func TestReminderNotifierSkipsRemovedTasks(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()
	svc := service.New(st, audit.NewRecorder(st))
	ctx := context.Background()

	kept, err := svc.CreateTask(ctx, 1, "kept", "", models.CategoryWork, "2025-01-01", "08:00")
	require.NoError(t, err)
	gone, err := svc.CreateTask(ctx, 1, "gone", "", models.CategoryWork, "2025-01-01", "08:00")
	require.NoError(t, err)
	_, err = svc.DeactivateTask(ctx, 1, store.ByID(gone.ID))
	require.NoError(t, err)

	d := &recordingDelivery{}
	notify := reminderNotifier(svc, d.deliver)

	require.NoError(t, notify(ctx, kept.Reminder()))
	require.NoError(t, notify(ctx, gone.Reminder()))
	assert.Equal(t, []string{kept.ID}, d.sent)

	entries, err := st.ListAudit(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, audit.ActionReminderSent, entries[len(entries)-1].Action)

	d.err = errors.New("blocked by user")
	assert.Error(t, notify(ctx, kept.Reminder()))
	entries, err = st.ListAudit(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, audit.ActionReminderFailed, entries[len(entries)-1].Action)
}

func TestLogLevelFlagOverridesConfig(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	dir := t.TempDir()
	t.Setenv("TODOBOT_DB_PATH", filepath.Join(dir, "tasks.db"))
	t.Setenv("TODOBOT_TELEGRAM_TOKEN", "")

	rootCmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.yaml"), "--log-level", "debug", "task", "list", "--user", "1"})
	defer rootCmd.SetArgs(nil)
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "debug", resolvedLogLevel)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	require.NoError(t, setupLogging(&buf, "warn"))

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	assert.Error(t, setupLogging(&buf, "loud"))
}
