// Package telegram implements the chat transport on the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"

	"github.com/OmkarNiphade/todo-bot/internal/connectors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// PollTimeout is the long-polling timeout in seconds.
const PollTimeout = 60

type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
}

// Telegram implements connectors.Transport.
type Telegram struct {
	api     botAPI
	workers int
}

var _ connectors.Transport = (*Telegram)(nil)

// New connects to the Bot API with the given token.
func New(token string, workers int) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	log.Info().Str("bot", api.Self.UserName).Msg("authorized on telegram")
	return &Telegram{api: api, workers: workers}, nil
}

// Name returns the transport identifier.
func (t *Telegram) Name() string {
	return "telegram"
}

// Send delivers text to a user's private chat.
func (t *Telegram) Send(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		return fmt.Errorf("send message to %d: %w", userID, err)
	}
	return nil
}

// Run long-polls for updates until ctx is cancelled. Messages from one user
// are handled in order; different users are handled in parallel.
func (t *Telegram) Run(ctx context.Context, h connectors.Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = PollTimeout
	updates := t.api.GetUpdatesChan(u)

	pool := connectors.NewSerialPool(t.workers)
	defer pool.Wait()
	defer t.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg := update.Message
			if msg == nil || msg.From == nil || msg.Text == "" {
				continue
			}

			userID, chatID, text := msg.From.ID, msg.Chat.ID, msg.Text
			pool.Submit(userID, func() {
				reply := h(ctx, userID, text)
				if reply == "" {
					return
				}
				if _, err := t.api.Send(tgbotapi.NewMessage(chatID, reply)); err != nil {
					log.Error().Err(err).Int64("user_id", userID).Msg("send reply")
				}
			})
		}
	}
}
