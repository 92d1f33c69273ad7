package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/fillwatch/internal/notify"
)

// Update is the subset of a Telegram webhook update the router reads.
type Update struct {
	Message       *ChatMessage `json:"message"`
	EditedMessage *ChatMessage `json:"edited_message"`
}

// ChatMessage is an incoming chat message.
type ChatMessage struct {
	Chat struct {
		ID json.Number `json:"id"`
	} `json:"chat"`
	Text string `json:"text"`
}

// CommandRouter answers chat commands sent to the bot.
type CommandRouter struct {
	wallet    *WalletService
	out       Deliverer
	formatter *notify.Formatter
	interval  time.Duration
	logger    *slog.Logger
}

// NewCommandRouter creates a CommandRouter. interval is reported by /start.
func NewCommandRouter(wallet *WalletService, out Deliverer, formatter *notify.Formatter, interval time.Duration, logger *slog.Logger) *CommandRouter {
	return &CommandRouter{
		wallet:    wallet,
		out:       out,
		formatter: formatter,
		interval:  interval,
		logger:    logger.With(slog.String("component", "commands")),
	}
}

// Handle dispatches one update. Messages that are not commands are ignored.
func (r *CommandRouter) Handle(ctx context.Context, u Update) error {
	msg := u.Message
	if msg == nil {
		msg = u.EditedMessage
	}
	if msg == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}
	chatID := msg.Chat.ID.String()
	cmd := strings.ToLower(text)

	r.logger.InfoContext(ctx, "command received", slog.String("chat_id", chatID), slog.String("text", text))
	switch {
	case strings.HasPrefix(cmd, "/start"):
		return r.out.Deliver(ctx, notify.KindCommand, chatID, r.formatter.Greeting(r.interval))
	case strings.HasPrefix(cmd, "/walletdebug"):
		return r.wallet.SendDebug(ctx, chatID)
	case strings.HasPrefix(cmd, "/wallet"):
		return r.wallet.SendSnapshot(ctx, chatID)
	default:
		return nil
	}
}
