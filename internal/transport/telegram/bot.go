package telegram

import (
	"context"
	"strings"

	"github.com/Rainelz/booko/internal/common/logger"
	"github.com/Rainelz/booko/internal/common/metrics"
	"github.com/Rainelz/booko/internal/session"
)

// Sender is the outbound half of the Bot API the bot depends on.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup interface{}) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// Conversation is the session machine surface the transport drives.
type Conversation interface {
	Start(ctx context.Context, chatID int64) session.Reply
	OnOriginChoice(ctx context.Context, chatID int64, data string) session.Reply
	OnLocationEvent(ctx context.Context, chatID int64, lat, lon float64) session.Reply
	OnCancel(ctx context.Context, chatID int64) session.Reply
	HandleText(ctx context.Context, chatID int64, text string) session.Reply
}

// Bot routes incoming updates to the conversation machine and renders
// its replies back through the sender.
type Bot struct {
	sender Sender
	conv   Conversation
	logger logger.Logger
}

func NewBot(sender Sender, conv Conversation, log logger.Logger) *Bot {
	return &Bot{
		sender: sender,
		conv:   conv,
		logger: log.WithFields(map[string]interface{}{"component": "bot"}),
	}
}

// HandleUpdate processes one update end to end, including sending the
// reply. Safe to call from concurrent goroutines; the session store is
// the synchronization point.
func (b *Bot) HandleUpdate(ctx context.Context, update Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Location != nil:
		metrics.UpdatesReceived.WithLabelValues("location").Inc()
		chatID := update.Message.Chat.ID
		b.send(ctx, chatID, b.conv.OnLocationEvent(ctx, chatID, update.Message.Location.Latitude, update.Message.Location.Longitude))
	case update.Message != nil && update.Message.Text != "":
		b.handleText(ctx, update.Message)
	default:
		metrics.UpdatesReceived.WithLabelValues("other").Inc()
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *CallbackQuery) {
	metrics.UpdatesReceived.WithLabelValues("callback").Inc()

	if err := b.sender.AnswerCallbackQuery(ctx, cb.ID); err != nil {
		b.logger.Warn("failed to answer callback query", map[string]interface{}{"error": err.Error()})
	}
	if cb.Message == nil {
		return
	}

	chatID := cb.Message.Chat.ID
	b.send(ctx, chatID, b.conv.OnOriginChoice(ctx, chatID, cb.Data))
}

func (b *Bot) handleText(ctx context.Context, msg *Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "/start":
		metrics.UpdatesReceived.WithLabelValues("command").Inc()
		b.send(ctx, chatID, b.conv.Start(ctx, chatID))
	case text == "/cancel":
		metrics.UpdatesReceived.WithLabelValues("command").Inc()
		b.send(ctx, chatID, b.conv.OnCancel(ctx, chatID))
	default:
		metrics.UpdatesReceived.WithLabelValues("text").Inc()
		b.send(ctx, chatID, b.conv.HandleText(ctx, chatID, text))
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, reply session.Reply) {
	if err := b.sender.SendMessage(ctx, chatID, reply.Text, renderMarkup(reply)); err != nil {
		b.logger.Error("failed to send reply", map[string]interface{}{
			"chatId": chatID,
			"error":  err.Error(),
		})
	}
}

// renderMarkup maps a machine reply to the Bot API keyboard shape: one
// inline button per row, reply choices on a single one-time row.
func renderMarkup(reply session.Reply) interface{} {
	switch {
	case len(reply.Inline) > 0:
		rows := make([][]InlineKeyboardButton, 0, len(reply.Inline))
		for _, choice := range reply.Inline {
			rows = append(rows, []InlineKeyboardButton{{Text: choice.Label, CallbackData: choice.Data}})
		}
		return InlineKeyboardMarkup{InlineKeyboard: rows}

	case len(reply.Choices) > 0:
		row := make([]KeyboardButton, 0, len(reply.Choices))
		for _, choice := range reply.Choices {
			row = append(row, KeyboardButton{Text: choice})
		}
		return ReplyKeyboardMarkup{
			Keyboard:        [][]KeyboardButton{row},
			OneTimeKeyboard: true,
			ResizeKeyboard:  true,
		}

	case reply.RemoveKeyboard:
		return ReplyKeyboardRemove{RemoveKeyboard: true}

	default:
		return nil
	}
}
