// Package launcher runs a small bot that answers /start with a button
// opening the Mini-App, forwarding the start parameter as a deep link.
package launcher

import (
	"context"
	"fmt"

	"github.com/blockedby/finlog/internal/logger"
	"github.com/blockedby/finlog/internal/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender sends bot messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Launcher answers bot commands with Mini-App links.
type Launcher struct {
	api    *tgbotapi.BotAPI
	sender Sender
	bot    string
	app    string
	log    *logger.Logger
}

// New connects to the bot API with token.
func New(token, botUsername, appName string, log *logger.Logger) (*Launcher, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	if botUsername == "" {
		botUsername = api.Self.UserName
	}

	l := NewWithSender(api, botUsername, appName, log)
	l.api = api
	return l, nil
}

// NewWithSender creates a launcher that only handles messages; Run is not
// available.
func NewWithSender(s Sender, botUsername, appName string, log *logger.Logger) *Launcher {
	return &Launcher{
		sender: s,
		bot:    botUsername,
		app:    appName,
		log:    log.Component("launcher"),
	}
}

// Run long-polls for updates until ctx is done.
func (l *Launcher) Run(ctx context.Context) error {
	if l.api == nil {
		return fmt.Errorf("launcher has no bot api connection")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := l.api.GetUpdatesChan(u)

	l.log.Info().Str("bot", l.bot).Msg("launcher started")

	for {
		select {
		case <-ctx.Done():
			l.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			if err := l.Handle(update.Message); err != nil {
				l.log.Warn().Err(err).Int64("chat_id", update.Message.Chat.ID).Msg("reply failed")
			}
		}
	}
}

// Handle answers one message. Only commands get a reply.
func (l *Launcher) Handle(msg *tgbotapi.Message) error {
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return nil
	}

	var reply tgbotapi.MessageConfig
	switch msg.Command() {
	case "start", "open":
		reply = StartReply(msg.Chat.ID, l.bot, l.app, msg.CommandArguments())
	case "help":
		reply = tgbotapi.NewMessage(msg.Chat.ID,
			"Send /start to open finlog. Deep links: /start expenses, /start expense_42, /start schedules, /start analytics.")
	default:
		return nil
	}

	_, err := l.sender.Send(reply)
	return err
}

// StartReply builds the reply carrying the Mini-App button. Unknown or
// malformed parameters open the dashboard.
func StartReply(chatID int64, bot, app, arg string) tgbotapi.MessageConfig {
	param := canonicalParam(arg)
	link := telegram.StartAppLink(bot, app, param)

	text := "Open finlog to track your spending."
	if param != "" {
		text = "Open finlog at " + telegram.ParseStartParam(param).Path()
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Open finlog", link),
		),
	)
	return msg
}

func canonicalParam(arg string) string {
	sp := telegram.ParseStartParam(arg)
	if sp.Page == telegram.PageDashboard {
		return ""
	}
	param := string(sp.Page)
	if sp.ID != "" {
		param += "_" + sp.ID
	}
	return param
}
