package telegram

import (
	"context"
	"time"

	"github.com/Rainelz/booko/internal/common/logger"
)

const longPollSeconds = 30

// Poller drives the bot through getUpdates long polling.
type Poller struct {
	client *Client
	bot    *Bot
	period time.Duration
	logger logger.Logger
}

func NewPoller(client *Client, bot *Bot, period time.Duration, log logger.Logger) *Poller {
	return &Poller{
		client: client,
		bot:    bot,
		period: period,
		logger: log.WithFields(map[string]interface{}{"component": "poller"}),
	}
}

// Run polls until ctx is cancelled. Updates are handled on their own
// goroutines so a long search never blocks a /cancel arriving after it.
func (p *Poller) Run(ctx context.Context) error {
	// A leftover webhook makes getUpdates fail.
	if err := p.client.DeleteWebhook(ctx); err != nil {
		p.logger.Warn("failed to delete webhook before polling", map[string]interface{}{"error": err.Error()})
	}

	var offset int64
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := p.client.GetUpdates(ctx, offset, longPollSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("getUpdates failed", map[string]interface{}{"error": err.Error()})

			select {
			case <-time.After(p.period):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			go p.bot.HandleUpdate(ctx, update)
		}
	}
}
