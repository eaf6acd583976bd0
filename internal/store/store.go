// Package store provides SQLite-backed persistence for todobot.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/OmkarNiphade/todo-bot/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store provides access to the todobot SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		due_date TEXT NOT NULL DEFAULT '',
		reminder_time TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		task_id TEXT,
		user_id INTEGER,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_audit_log_task_id ON audit_log(task_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

const taskColumns = `id, user_id, title, description, category, due_date, reminder_time, status, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (models.Task, error) {
	var task models.Task
	err := row.Scan(&task.ID, &task.UserID, &task.Title, &task.Description, &task.Category,
		&task.DueDate, &task.ReminderTime, &task.Status, &task.CreatedAt, &task.UpdatedAt)
	return task, err
}

// --- Task Operations ---

// CreateTask inserts a new active task for a user.
func (s *Store) CreateTask(ctx context.Context, userID int64, title, description string, category models.Category, dueDate, reminderTime string) (*models.Task, error) {
	now := time.Now().UTC()
	task := &models.Task{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        title,
		Description:  description,
		Category:     category,
		DueDate:      dueDate,
		ReminderTime: reminderTime,
		Status:       models.TaskStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.Title, task.Description, task.Category,
		task.DueDate, task.ReminderTime, task.Status, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return nil, unavailable("insert task", err)
	}
	return task, nil
}

// GetTask retrieves a task by ID regardless of its status.
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("query task", err)
	}
	return &task, nil
}

// ListActiveTasks returns a user's active tasks, oldest first.
func (s *Store) ListActiveTasks(ctx context.Context, userID int64) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND status = ? ORDER BY rowid`,
		userID, models.TaskStatusActive,
	)
	if err != nil {
		return nil, unavailable("query tasks", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, unavailable("scan task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate tasks", err)
	}
	return tasks, nil
}

// Selector identifies which active task an operation targets.
type Selector struct {
	ID    string
	Title string
}

// ByID selects a task by its identifier.
func ByID(id string) Selector { return Selector{ID: id} }

// ByTitle selects a task by title. Titles are not unique.
func ByTitle(title string) Selector { return Selector{Title: title} }

func (sel Selector) String() string {
	if sel.ID != "" {
		return "id=" + sel.ID
	}
	return fmt.Sprintf("title=%q", sel.Title)
}

// DeactivateTask marks exactly one of the user's active tasks inactive.
// It returns ErrNotFound when nothing matches and ErrAmbiguousSelector when a
// title selector matches several tasks.
func (s *Store) DeactivateTask(ctx context.Context, userID int64, sel Selector) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin transaction", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? AND status = ?`
	args := []any{userID, models.TaskStatusActive}
	if sel.ID != "" {
		query += ` AND id = ?`
		args = append(args, sel.ID)
	} else {
		query += ` AND title = ?`
		args = append(args, sel.Title)
	}

	rows, err := tx.QueryContext(ctx, query+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, unavailable("query task", err)
	}
	var matches []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, unavailable("scan task", err)
		}
		matches = append(matches, task)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate tasks", err)
	}

	switch {
	case len(matches) == 0:
		return nil, ErrNotFound
	case len(matches) > 1:
		return nil, fmt.Errorf("%w: %s matches %d tasks", ErrAmbiguousSelector, sel, len(matches))
	}

	task := matches[0]
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.TaskStatusInactive, now, task.ID, models.TaskStatusActive,
	)
	if err != nil {
		return nil, unavailable("update task status", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, unavailable("check rows affected", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit transaction", err)
	}

	task.Status = models.TaskStatusInactive
	task.UpdatedAt = now
	return &task, nil
}

// ListAllActiveReminders returns the reminder fields of every active task
// across all users. It scans the whole table and is meant for startup and
// coarse resync only.
func (s *Store) ListAllActiveReminders(ctx context.Context) ([]models.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, due_date, reminder_time FROM tasks WHERE status = ? ORDER BY rowid`,
		models.TaskStatusActive,
	)
	if err != nil {
		return nil, unavailable("query reminders", err)
	}
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		var r models.Reminder
		if err := rows.Scan(&r.TaskID, &r.UserID, &r.Title, &r.Description, &r.DueDate, &r.ReminderTime); err != nil {
			return nil, unavailable("scan reminder", err)
		}
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate reminders", err)
	}
	return reminders, nil
}

// --- Audit Operations ---

// WriteAudit inserts an audit entry, filling in ID and Timestamp when unset.
func (s *Store) WriteAudit(ctx context.Context, entry models.AuditEntry) (*models.AuditEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, action, inputs_hash, outcome, task_id, user_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, entry.InputsHash, entry.Outcome, entry.TaskID, entry.UserID, entry.Details, entry.Timestamp,
	)
	if err != nil {
		return nil, unavailable("insert audit entry", err)
	}
	return &entry, nil
}

// ListAudit returns audit entries for a task, oldest first.
func (s *Store) ListAudit(ctx context.Context, taskID string) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, inputs_hash, outcome, task_id, user_id, details, timestamp FROM audit_log WHERE task_id = ? ORDER BY rowid`,
		taskID,
	)
	if err != nil {
		return nil, unavailable("query audit log", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var tid, details sql.NullString
		var uid sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &e.Outcome, &tid, &uid, &details, &e.Timestamp); err != nil {
			return nil, unavailable("scan audit entry", err)
		}
		e.TaskID = tid.String
		e.UserID = uid.Int64
		e.Details = details.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate audit log", err)
	}
	return entries, nil
}
