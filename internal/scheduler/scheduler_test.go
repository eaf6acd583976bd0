package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OmkarNiphade/todo-bot/internal/models"
	"github.com/OmkarNiphade/todo-bot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 1, 1, 7, 0, 0, 0, time.UTC)

type recorder struct {
	mu   sync.Mutex
	sent []models.Reminder
	err  error
}

func (r *recorder) notify(_ context.Context, rem models.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, rem)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type staticSource []models.Reminder

func (s staticSource) ListAllActiveReminders(context.Context) ([]models.Reminder, error) {
	return s, nil
}

func newTestScheduler(t *testing.T, src ReminderSource) (*Scheduler, *FakeClock, *recorder) {
	t.Helper()
	clock := NewFakeClock(start)
	rec := &recorder{}
	sch, err := New(src, rec.notify, &Config{Timezone: "UTC"}, WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(sch.Stop)
	return sch, clock, rec
}

func reminder(taskID, due, at string) models.Reminder {
	return models.Reminder{TaskID: taskID, UserID: 1, Title: "task " + taskID, DueDate: due, ReminderTime: at}
}

func TestFireInstant(t *testing.T) {
	tests := []struct {
		name    string
		due     string
		at      string
		want    time.Time
		wantErr bool
	}{
		{"valid", "2025-01-01", "08:00", time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC), false},
		{"trimmed", " 2025-12-31 ", "23:59 ", time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC), false},
		{"bad date", "01/02/2025", "08:00", time.Time{}, true},
		{"bad time", "2025-01-01", "8am", time.Time{}, true},
		{"hour out of range", "2025-01-01", "25:00", time.Time{}, true},
		{"empty", "", "", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FireInstant(tt.due, tt.at, time.UTC)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInstant)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestFireInstantUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)

	got, err := FireInstant("2025-01-01", "08:00", loc)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC).Equal(got))
}

func TestScheduleFiresOnceAtInstant(t *testing.T) {
	sch, clock, rec := newTestScheduler(t, staticSource{})

	_, err := sch.ScheduleReminder(reminder("a", "2025-01-01", "08:00"))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.count())
	assert.Equal(t, 1, sch.Stats().Pending)

	clock.Advance(59 * time.Minute)
	assert.Equal(t, 0, rec.count())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, "task a", rec.sent[0].Title)

	clock.Advance(24 * time.Hour)
	assert.Equal(t, 1, rec.count())

	st := sch.Stats()
	assert.Equal(t, 0, st.Pending)
	assert.Equal(t, 1, st.Fired)
}

func TestSchedulePastFiresImmediately(t *testing.T) {
	sch, _, rec := newTestScheduler(t, staticSource{})

	_, err := sch.Schedule(reminder("a", "", ""), start.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 0, sch.Stats().Pending)
}

func TestScheduleInvalidInstant(t *testing.T) {
	sch, _, rec := newTestScheduler(t, staticSource{})

	_, err := sch.Schedule(reminder("a", "", ""), time.Time{})
	assert.ErrorIs(t, err, ErrInvalidInstant)

	_, err = sch.ScheduleReminder(reminder("b", "tomorrow", "noon"))
	assert.ErrorIs(t, err, ErrInvalidInstant)

	assert.Equal(t, 0, rec.count())
	assert.Equal(t, 0, sch.Stats().Pending)
}

func TestCancel(t *testing.T) {
	sch, clock, rec := newTestScheduler(t, staticSource{})

	h, err := sch.Schedule(reminder("a", "", ""), start.Add(time.Hour))
	require.NoError(t, err)

	sch.Cancel(h)
	sch.Cancel(h)
	clock.Advance(2 * time.Hour)

	assert.Equal(t, 0, rec.count())
	st := sch.Stats()
	assert.Equal(t, 1, st.Cancelled)
	assert.Equal(t, 0, st.Pending)
	assert.Equal(t, 0, clock.Pending())
}

func TestCancelAfterFireIsNoop(t *testing.T) {
	sch, clock, rec := newTestScheduler(t, staticSource{})

	h, err := sch.Schedule(reminder("a", "", ""), start.Add(time.Minute))
	require.NoError(t, err)
	clock.Advance(time.Minute)

	sch.Cancel(h)
	sch.Cancel("unknown")

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 0, sch.Stats().Cancelled)
}

func TestFailedNotifyIsNotRetried(t *testing.T) {
	sch, clock, rec := newTestScheduler(t, staticSource{})
	rec.err = errors.New("chat not found")

	_, err := sch.Schedule(reminder("a", "", ""), start.Add(time.Minute))
	require.NoError(t, err)
	clock.Advance(time.Hour)
	clock.Advance(time.Hour)

	assert.Equal(t, 1, rec.count())
	st := sch.Stats()
	assert.Equal(t, 1, st.Fired)
	assert.Equal(t, 1, st.Failed)
	assert.Equal(t, 0, st.Pending)
}

func TestStopDropsPendingJobs(t *testing.T) {
	clock := NewFakeClock(start)
	rec := &recorder{}
	sch, err := New(staticSource{}, rec.notify, &Config{Timezone: "UTC"}, WithClock(clock))
	require.NoError(t, err)

	_, err = sch.Schedule(reminder("a", "", ""), start.Add(time.Minute))
	require.NoError(t, err)

	sch.Stop()
	sch.Stop()
	clock.Advance(time.Hour)

	assert.Equal(t, 0, rec.count())
	_, err = sch.Schedule(reminder("b", "", ""), start.Add(time.Minute))
	assert.ErrorIs(t, err, ErrStopped)
}

func TestResyncFromStore(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	past, err := s.CreateTask(ctx, 1, "past", "", models.CategoryWork, "2024-12-31", "09:00")
	require.NoError(t, err)
	future, err := s.CreateTask(ctx, 2, "future", "", models.CategoryWork, "2025-01-01", "09:00")
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, 2, "broken", "", models.CategoryWork, "soon", "later")
	require.NoError(t, err)
	removed, err := s.CreateTask(ctx, 2, "removed", "", models.CategoryWork, "2025-01-01", "09:00")
	require.NoError(t, err)
	_, err = s.DeactivateTask(ctx, 2, store.ByID(removed.ID))
	require.NoError(t, err)

	sch, clock, rec := newTestScheduler(t, s)

	armed, err := sch.ResyncFromStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, armed)
	require.Equal(t, 1, rec.count())
	assert.Equal(t, past.ID, rec.sent[0].TaskID)
	assert.Equal(t, 1, sch.Stats().Pending)

	// a second pass neither re-fires nor double-arms
	armed, err = sch.ResyncFromStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, armed)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 1, sch.Stats().Pending)

	clock.Advance(2 * time.Hour)
	require.Equal(t, 2, rec.count())
	assert.Equal(t, future.ID, rec.sent[1].TaskID)
	assert.Equal(t, int64(2), rec.sent[1].UserID)
}

func TestRealClockFires(t *testing.T) {
	var calls int32
	sch, err := New(staticSource{}, func(context.Context, models.Reminder) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, DefaultConfig())
	require.NoError(t, err)
	defer sch.Stop()

	_, err = sch.Schedule(reminder("a", "", ""), time.Now().Add(20*time.Millisecond))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, 2*time.Second, 10*time.Millisecond)
}

type countingSource struct {
	calls int32
}

func (c *countingSource) ListAllActiveReminders(context.Context) ([]models.Reminder, error) {
	atomic.AddInt32(&c.calls, 1)
	return nil, nil
}

func TestStartRunsPeriodicResync(t *testing.T) {
	src := &countingSource{}
	sch, err := New(src, func(context.Context, models.Reminder) error { return nil },
		&Config{Timezone: "UTC", ResyncInterval: 10 * time.Millisecond})
	require.NoError(t, err)

	sch.Start()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&src.calls) >= 2 }, 2*time.Second, 5*time.Millisecond)
	sch.Stop()
}

func TestNewRejectsUnknownTimezone(t *testing.T) {
	_, err := New(staticSource{}, nil, &Config{Timezone: "Mars/Olympus"})
	assert.Error(t, err)
}

func TestScheduleSameTaskTwiceArmsOnce(t *testing.T) {
	src := staticSource{reminder("t1", "2025-01-01", "08:00")}
	sch, clock, rec := newTestScheduler(t, src)

	armed, err := sch.ResyncFromStore(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, armed)

	h1, err := sch.ScheduleReminder(src[0])
	require.NoError(t, err)
	h2, err := sch.ScheduleReminder(src[0])
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, sch.Stats().Pending)
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, rec.count())

	// a fired task is not armed again either
	h3, err := sch.ScheduleReminder(src[0])
	require.NoError(t, err)
	assert.Equal(t, h1, h3)
	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 0, sch.Stats().Pending)
}

func TestScheduleThenResyncArmsOnce(t *testing.T) {
	src := staticSource{reminder("t1", "2025-01-01", "08:00")}
	sch, clock, rec := newTestScheduler(t, src)

	_, err := sch.ScheduleReminder(src[0])
	require.NoError(t, err)

	armed, err := sch.ResyncFromStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, armed)

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, rec.count())
}

func TestConcurrentScheduleSameTask(t *testing.T) {
	sch, clock, rec := newTestScheduler(t, staticSource{})
	r := reminder("t1", "2025-01-01", "08:00")

	var wg sync.WaitGroup
	handles := make([]JobHandle, 8)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := sch.ScheduleReminder(r)
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}
	wg.Wait()

	for _, h := range handles {
		assert.Equal(t, handles[0], h)
	}
	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, rec.count())
}

func TestCancelTask(t *testing.T) {
	sch, clock, rec := newTestScheduler(t, staticSource{})

	_, err := sch.ScheduleReminder(reminder("t1", "2025-01-01", "08:00"))
	require.NoError(t, err)

	assert.True(t, sch.CancelTask("t1"))
	assert.False(t, sch.CancelTask("t1"))
	assert.False(t, sch.CancelTask("unknown"))

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 0, rec.count())
	assert.Equal(t, 1, sch.Stats().Cancelled)
}
