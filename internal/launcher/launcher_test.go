package launcher

import (
	"errors"
	"testing"

	"github.com/blockedby/finlog/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func command(text string, length int) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: 99},
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: length},
		},
	}
}

func buttonURL(t *testing.T, msg tgbotapi.MessageConfig) string {
	t.Helper()
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 1)
	require.NotNil(t, markup.InlineKeyboard[0][0].URL)
	return *markup.InlineKeyboard[0][0].URL
}

func TestStartReply(t *testing.T) {
	tests := []struct {
		arg  string
		link string
	}{
		{"", "https://t.me/finlog_bot/app"},
		{"expense_42", "https://t.me/finlog_bot/app?startapp=expenses_42"},
		{"schedules", "https://t.me/finlog_bot/app?startapp=schedules"},
		{"stats", "https://t.me/finlog_bot/app?startapp=analytics"},
		{"home", "https://t.me/finlog_bot/app"},
		{"bogus page", "https://t.me/finlog_bot/app"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			msg := StartReply(5, "@finlog_bot", "app", tt.arg)
			assert.Equal(t, int64(5), msg.ChatID)
			assert.Equal(t, tt.link, buttonURL(t, msg))
		})
	}
}

func TestHandle_StartWithParam(t *testing.T) {
	sender := &fakeSender{}
	l := NewWithSender(sender, "finlog_bot", "app", logger.Nop())

	require.NoError(t, l.Handle(command("/start expense_7", 6)))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(99), msg.ChatID)
	assert.Contains(t, msg.Text, "/expenses?id=7")
	assert.Equal(t, "https://t.me/finlog_bot/app?startapp=expenses_7", buttonURL(t, msg))
}

func TestHandle_IgnoresPlainTextAndUnknownCommands(t *testing.T) {
	sender := &fakeSender{}
	l := NewWithSender(sender, "finlog_bot", "app", logger.Nop())

	require.NoError(t, l.Handle(&tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 1}}))
	require.NoError(t, l.Handle(command("/settings", 9)))
	require.NoError(t, l.Handle(nil))

	assert.Empty(t, sender.sent)
}

func TestHandle_Help(t *testing.T) {
	sender := &fakeSender{}
	l := NewWithSender(sender, "finlog_bot", "app", logger.Nop())

	require.NoError(t, l.Handle(command("/help", 5)))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].(tgbotapi.MessageConfig).Text, "/start expense_42")
}

func TestHandle_SendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("blocked by user")}
	l := NewWithSender(sender, "finlog_bot", "app", logger.Nop())

	assert.EqualError(t, l.Handle(command("/start", 6)), "blocked by user")
}

func TestRun_WithoutConnection(t *testing.T) {
	l := NewWithSender(&fakeSender{}, "finlog_bot", "app", logger.Nop())
	assert.Error(t, l.Run(t.Context()))
}
