package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/OmkarNiphade/todo-bot/internal/conversation"
	"github.com/OmkarNiphade/todo-bot/internal/dispatch"
	"github.com/OmkarNiphade/todo-bot/internal/models"
	"github.com/OmkarNiphade/todo-bot/internal/scheduler"
	"github.com/OmkarNiphade/todo-bot/internal/tui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var chatUser int64

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the bot in the terminal",
	Long:  `Opens a local console that talks to the bot as a fixed user, on the same task store. Reminders for that user show up inline.`,
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().Int64Var(&chatUser, "user", 1, "User id to chat as")
}

// userReminders limits a reminder source to one user.
type userReminders struct {
	src    scheduler.ReminderSource
	userID int64
}

func (u userReminders) ListAllActiveReminders(ctx context.Context) ([]models.Reminder, error) {
	all, err := u.src.ListAllActiveReminders(ctx)
	if err != nil {
		return nil, err
	}
	var mine []models.Reminder
	for _, r := range all {
		if r.UserID == u.userID {
			mine = append(mine, r)
		}
	}
	return mine, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	// The console owns the terminal; logs go to a file next to the database.
	logPath := filepath.Join(filepath.Dir(cfg.Database.Path), "chat.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	if err := setupLogging(logFile, resolvedLogLevel); err != nil {
		return err
	}

	st, svc, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var app *tui.App
	notify := reminderNotifier(svc, func(ctx context.Context, r models.Reminder) error {
		return app.Notify(ctx, r)
	})

	sched, err := scheduler.New(userReminders{src: svc, userID: chatUser}, notify, cfg.Scheduler)
	if err != nil {
		return err
	}
	defer sched.Stop()

	app = tui.New(ctx, dispatch.New(conversation.New(svc, sched), svc), chatUser)

	if _, err := sched.ResyncFromStore(ctx); err != nil {
		return err
	}
	sched.Start()

	log.Info().Int64("user_id", chatUser).Msg("chat console started")
	if err := app.Run(); err != nil {
		return fmt.Errorf("console error: %w", err)
	}
	return nil
}
