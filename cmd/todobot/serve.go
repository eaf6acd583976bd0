package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/OmkarNiphade/todo-bot/internal/connectors/telegram"
	"github.com/OmkarNiphade/todo-bot/internal/conversation"
	"github.com/OmkarNiphade/todo-bot/internal/dispatch"
	"github.com/OmkarNiphade/todo-bot/internal/models"
	"github.com/OmkarNiphade/todo-bot/internal/scheduler"
	"github.com/OmkarNiphade/todo-bot/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	Long:  `Starts the bot: long-polls Telegram, re-arms stored reminders and serves the admin API.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireToken(); err != nil {
		return err
	}

	st, svc, err := openService()
	if err != nil {
		return err
	}
	defer func() {
		log.Info().Msg("closing database connection")
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("database close")
		}
	}()

	tg, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.Workers)
	if err != nil {
		return err
	}

	notify := reminderNotifier(svc, func(ctx context.Context, r models.Reminder) error {
		return tg.Send(ctx, r.UserID, dispatch.RenderReminder(r))
	})

	sched, err := scheduler.New(svc, notify, cfg.Scheduler)
	if err != nil {
		return err
	}
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := sched.ResyncFromStore(ctx); err != nil {
		return err
	}
	sched.Start()

	d := dispatch.New(conversation.New(svc, sched), svc)

	var api *server.Server
	serverErr := make(chan error, 1)
	if cfg.Server.Listen != "" {
		api = server.New(svc, sched, version, cfg.Server.Listen)
		go func() {
			if err := api.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	transportDone := make(chan error, 1)
	go func() {
		transportDone <- tg.Run(ctx, func(ctx context.Context, userID int64, text string) string {
			return d.Handle(ctx, dispatch.Message{UserID: userID, Text: text})
		})
	}()
	log.Info().Str("transport", tg.Name()).Msg("bot started")

	var runErr error
	transportStopped := false
	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case runErr = <-serverErr:
		log.Error().Err(runErr).Msg("admin API failed")
	case runErr = <-transportDone:
		transportStopped = true
		if runErr != nil {
			log.Error().Err(runErr).Msg("transport stopped")
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if api != nil {
		if err := api.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("admin API shutdown")
		}
	}

	if !transportStopped {
		select {
		case <-transportDone:
		case <-shutdownCtx.Done():
			log.Warn().Msg("timed out waiting for in-flight messages")
		}
	}

	log.Info().Msg("shutdown complete")
	return runErr
}
