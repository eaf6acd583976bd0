// Package connectors defines the chat transport interface for todobot.
package connectors

import "context"

// Handler answers one inbound message. An empty reply sends nothing.
type Handler func(ctx context.Context, userID int64, text string) string

// Transport delivers messages between users and the bot.
type Transport interface {
	// Name returns the transport identifier.
	Name() string

	// Send pushes a message to a user outside of a reply, e.g. a reminder.
	Send(ctx context.Context, userID int64, text string) error

	// Run receives messages until ctx is cancelled, calling h for each one.
	Run(ctx context.Context, h Handler) error
}
