package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/OmkarNiphade/todo-bot/internal/audit"
	"github.com/OmkarNiphade/todo-bot/internal/config"
	"github.com/OmkarNiphade/todo-bot/internal/models"
	"github.com/OmkarNiphade/todo-bot/internal/scheduler"
	"github.com/OmkarNiphade/todo-bot/internal/service"
	"github.com/OmkarNiphade/todo-bot/internal/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	logLevel   string
	cfg        *config.Config

	// resolvedLogLevel is the config level, overridden by --log-level.
	resolvedLogLevel string
)

var rootCmd = &cobra.Command{
	Use:          "todobot",
	Short:        "Personal to-do list bot with reminders",
	Long:         `todobot runs a Telegram bot that keeps a per-user to-do list and sends a reminder when each task is due.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		resolvedLogLevel = cfg.Log.Level
		if cmd.Flags().Changed("log-level") {
			resolvedLogLevel = logLevel
		}
		return setupLogging(os.Stderr, resolvedLogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupLogging(out io.Writer, level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	log.Logger = log.With().Caller().Logger().Output(zerolog.ConsoleWriter{
		Out: out, TimeFormat: time.RFC3339,
	})
	return nil
}

// openService opens the task store and wraps it with auditing. The caller
// closes the returned store.
func openService() (*store.Store, *service.Service, error) {
	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	return st, service.New(st, audit.NewRecorder(st)), nil
}

type reminderTasks interface {
	GetTask(ctx context.Context, id string) (*models.Task, error)
	RecordReminder(ctx context.Context, r models.Reminder, sendErr error)
}

// reminderNotifier delivers a reminder and audits the result. Reminders for
// tasks removed since they were armed are dropped silently.
func reminderNotifier(tasks reminderTasks, deliver scheduler.NotifyFunc) scheduler.NotifyFunc {
	return func(ctx context.Context, r models.Reminder) error {
		task, err := tasks.GetTask(ctx, r.TaskID)
		if err == nil && task.Status != models.TaskStatusActive {
			log.Info().Int64("user_id", r.UserID).Str("task_id", r.TaskID).Msg("task removed, reminder skipped")
			return nil
		}

		err = deliver(ctx, r)
		tasks.RecordReminder(ctx, r, err)
		return err
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
