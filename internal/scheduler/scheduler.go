package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/OmkarNiphade/todo-bot/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// FireLayout is how a task's due date and reminder time combine into the
// instant its reminder fires.
const FireLayout = "2006-01-02 15:04"

var (
	ErrInvalidInstant = errors.New("invalid reminder instant")
	ErrStopped        = errors.New("scheduler stopped")
)

// ReminderSource lists the reminders that should be armed.
type ReminderSource interface {
	ListAllActiveReminders(ctx context.Context) ([]models.Reminder, error)
}

// NotifyFunc delivers a reminder. It is called once per fired job and never
// retried.
type NotifyFunc func(ctx context.Context, r models.Reminder) error

// JobHandle identifies a scheduled reminder.
type JobHandle string

// Stats is a snapshot of scheduler counters.
type Stats struct {
	Pending   int `json:"pending"`
	Fired     int `json:"fired"`
	Cancelled int `json:"cancelled"`
	Failed    int `json:"failed"`
}

type job struct {
	handle   JobHandle
	reminder models.Reminder
	at       time.Time
	timer    Timer
}

// Scheduler arms one-shot timers for task reminders. Timers live in memory
// only; ResyncFromStore re-arms them after a restart.
type Scheduler struct {
	src    ReminderSource
	notify NotifyFunc
	config *Config
	loc    *time.Location
	clock  Clock

	mu      sync.Mutex
	jobs    map[JobHandle]*job
	byTask  map[string]JobHandle
	fired   map[string]JobHandle
	stats   Stats
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// New creates a new scheduler.
func New(src ReminderSource, notify NotifyFunc, cfg *Config, opts ...Option) (*Scheduler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		src:    src,
		notify: notify,
		config: cfg,
		loc:    loc,
		clock:  realClock{},
		jobs:   make(map[JobHandle]*job),
		byTask: make(map[string]JobHandle),
		fired:  make(map[string]JobHandle),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FireInstant combines a YYYY-MM-DD due date and an HH:MM reminder time into
// an absolute instant in loc.
func FireInstant(dueDate, reminderTime string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(dueDate) + " " + strings.TrimSpace(reminderTime)
	at, err := time.ParseInLocation(FireLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidInstant, value, err)
	}
	return at, nil
}

// Location returns the time zone reminder times are interpreted in.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// Start begins the periodic resync loop when one is configured.
func (s *Scheduler) Start() {
	if s.config.ResyncInterval <= 0 {
		return
	}
	s.wg.Add(1)
	go s.resyncLoop()
	log.Info().Dur("interval", s.config.ResyncInterval).Msg("reminder resync loop started")
}

// Stop drops every pending timer and waits for in-flight notifications.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for h, j := range s.jobs {
		if j.timer != nil {
			j.timer.Stop()
		}
		delete(s.jobs, h)
	}
	s.byTask = make(map[string]JobHandle)
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	log.Info().Msg("reminder scheduler stopped")
}

func (s *Scheduler) resyncLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ResyncFromStore(s.ctx); err != nil {
				log.Error().Err(err).Msg("reminder resync failed")
			}
		}
	}
}

// ScheduleReminder arms the reminder at the instant derived from its due date
// and reminder time.
func (s *Scheduler) ScheduleReminder(r models.Reminder) (JobHandle, error) {
	h, _, err := s.armReminder(r)
	return h, err
}

func (s *Scheduler) armReminder(r models.Reminder) (JobHandle, bool, error) {
	at, err := FireInstant(r.DueDate, r.ReminderTime, s.loc)
	if err != nil {
		return "", false, err
	}
	return s.arm(r, at)
}

// Schedule arms a one-shot job firing at the given instant. An instant in the
// past fires immediately. A task that is already pending, or has already
// fired in this process, keeps its existing handle and is not armed again.
func (s *Scheduler) Schedule(r models.Reminder, at time.Time) (JobHandle, error) {
	h, _, err := s.arm(r, at)
	return h, err
}

// arm reports whether a new job was created.
func (s *Scheduler) arm(r models.Reminder, at time.Time) (JobHandle, bool, error) {
	if at.IsZero() {
		return "", false, ErrInvalidInstant
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return "", false, ErrStopped
	}
	if r.TaskID != "" {
		if h, ok := s.byTask[r.TaskID]; ok {
			s.mu.Unlock()
			return h, false, nil
		}
		if h, ok := s.fired[r.TaskID]; ok {
			s.mu.Unlock()
			return h, false, nil
		}
	}
	j := &job{
		handle:   JobHandle(uuid.New().String()),
		reminder: r,
		at:       at,
	}
	s.jobs[j.handle] = j
	if r.TaskID != "" {
		s.byTask[r.TaskID] = j.handle
	}
	s.mu.Unlock()

	log.Debug().Str("job", string(j.handle)).Int64("user_id", r.UserID).Str("task_id", r.TaskID).
		Time("at", at).Msg("reminder scheduled")

	// The timer is created outside the lock: a past instant may fire right away.
	timer := s.clock.AfterFunc(at.Sub(s.clock.Now()), func() { s.fire(j.handle) })

	s.mu.Lock()
	if _, ok := s.jobs[j.handle]; ok {
		j.timer = timer
	}
	s.mu.Unlock()

	return j.handle, true, nil
}

// Cancel stops a pending job. Cancelling a fired or unknown job is a no-op.
func (s *Scheduler) Cancel(h JobHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(h)
}

// CancelTask stops the pending reminder of a task, if any. It reports whether
// a job was cancelled.
func (s *Scheduler) CancelTask(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.byTask[taskID]
	if !ok {
		return false
	}
	return s.cancelLocked(h)
}

func (s *Scheduler) cancelLocked(h JobHandle) bool {
	j, ok := s.jobs[h]
	if !ok {
		return false
	}
	if j.timer != nil {
		j.timer.Stop()
	}
	delete(s.jobs, h)
	if s.byTask[j.reminder.TaskID] == h {
		delete(s.byTask, j.reminder.TaskID)
	}
	s.stats.Cancelled++
	return true
}

func (s *Scheduler) fire(h JobHandle) {
	s.mu.Lock()
	j, ok := s.jobs[h]
	if !ok || s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.jobs, h)
	if s.byTask[j.reminder.TaskID] == h {
		delete(s.byTask, j.reminder.TaskID)
	}
	if j.reminder.TaskID != "" {
		s.fired[j.reminder.TaskID] = h
	}
	s.stats.Fired++
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()

	if err := s.notify(s.ctx, j.reminder); err != nil {
		s.mu.Lock()
		s.stats.Failed++
		s.mu.Unlock()
		log.Warn().Err(err).Str("job", string(h)).Int64("user_id", j.reminder.UserID).
			Str("task_id", j.reminder.TaskID).Msg("reminder notification failed")
		return
	}
	log.Info().Str("job", string(h)).Int64("user_id", j.reminder.UserID).
		Str("task_id", j.reminder.TaskID).Msg("reminder sent")
}

// ResyncFromStore arms every active reminder that is neither pending nor
// already fired by this process. Reminders whose instant has passed fire
// immediately. It returns how many jobs were armed.
func (s *Scheduler) ResyncFromStore(ctx context.Context) (int, error) {
	reminders, err := s.src.ListAllActiveReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("list reminders: %w", err)
	}

	armed := 0
	for _, r := range reminders {
		_, created, err := s.armReminder(r)
		if err != nil {
			if errors.Is(err, ErrStopped) {
				return armed, err
			}
			log.Warn().Err(err).Str("task_id", r.TaskID).Msg("skipping reminder")
			continue
		}
		if created {
			armed++
		}
	}

	log.Info().Int("armed", armed).Int("active", len(reminders)).Msg("reminders resynced")
	return armed, nil
}

// Stats returns current scheduler counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.Pending = len(s.jobs)
	return st
}
