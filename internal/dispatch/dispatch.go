// Package dispatch routes inbound chat messages to one-shot commands or to
// the user's conversation flow.
package dispatch

import (
	"context"
	"strings"

	"github.com/OmkarNiphade/todo-bot/internal/conversation"
	"github.com/OmkarNiphade/todo-bot/internal/models"
	"github.com/rs/zerolog/log"
)

// Commands understood by the bot.
const (
	CmdStart          = "start"
	CmdHelp           = "help"
	CmdAddTask        = "addtask"
	CmdViewTasks      = "viewtasks"
	CmdViewByCategory = "viewbycategory"
	CmdRemoveTask     = "removetask"
	CmdCancel         = "cancel"
)

// Welcome is the reply to /start.
const Welcome = "Welcome to your Personal To-Do List Bot!\n" +
	"Use /addtask, /viewtasks, /viewbycategory, /removetask. Send /cancel to stop a flow."

// Message is an inbound chat message.
type Message struct {
	UserID int64
	Text   string
}

// TaskLister reads a user's active tasks.
type TaskLister interface {
	ListActiveTasks(ctx context.Context, userID int64) ([]models.Task, error)
}

// Dispatcher turns inbound messages into reply text.
type Dispatcher struct {
	engine *conversation.Engine
	tasks  TaskLister
}

// New creates a dispatcher.
func New(engine *conversation.Engine, tasks TaskLister) *Dispatcher {
	return &Dispatcher{
		engine: engine,
		tasks:  tasks,
	}
}

// ParseCommand extracts the command name from "/name@bot args". It reports
// false for text that is not a command.
func ParseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text)[0][1:]
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", false
	}
	return strings.ToLower(name), true
}

// Handle processes one message and returns the reply.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) string {
	cmd, ok := ParseCommand(msg.Text)
	if !ok {
		if reply, handled := d.engine.Handle(ctx, msg.UserID, msg.Text); handled {
			return reply.Text
		}
		return Welcome
	}

	log.Debug().Int64("user_id", msg.UserID).Str("command", cmd).Msg("command received")

	switch cmd {
	case CmdStart, CmdHelp:
		return Welcome
	case CmdAddTask:
		return d.engine.StartAdd(msg.UserID).Text
	case CmdRemoveTask:
		return d.engine.StartRemove(ctx, msg.UserID).Text
	case CmdCancel:
		return d.engine.Cancel(msg.UserID).Text
	case CmdViewTasks:
		return d.list(ctx, msg.UserID, RenderTasks)
	case CmdViewByCategory:
		return d.list(ctx, msg.UserID, RenderByCategory)
	default:
		return "Unknown command /" + cmd + ".\n" + Welcome
	}
}

func (d *Dispatcher) list(ctx context.Context, userID int64, render func([]models.Task) string) string {
	tasks, err := d.tasks.ListActiveTasks(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("list tasks")
		return conversation.StorageFailure
	}
	return render(tasks)
}
