package telegram

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID int64 = 1000

func command(chatID int64, text string) tgbotapi.Update {
	end := len(text)
	for i, r := range text {
		if r == ' ' {
			end = i
			break
		}
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 5,
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}},
	}}
}

func TestStartForAdmin(t *testing.T) {
	sender := &fakeSender{}
	c := NewCommands(sender, adminID, "https://t.me/owner", func() string { return "" })

	require.NoError(t, c.Handle(context.Background(), command(adminID, "/start")))
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, startedText, msg.Text)
	assert.Equal(t, 5, msg.ReplyToMessageID)
}

func TestStartRefusesOthers(t *testing.T) {
	sender := &fakeSender{}
	c := NewCommands(sender, adminID, "https://t.me/owner", func() string { return "" })

	require.NoError(t, c.Handle(context.Background(), command(42, "/start")))
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, refusalText, msg.Text)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "https://t.me/owner", *markup.InlineKeyboard[0][0].URL)
}

func TestLogSendsTodayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	sender := &fakeSender{}
	c := NewCommands(sender, adminID, "", func() string { return path })

	require.NoError(t, c.Handle(context.Background(), command(adminID, "/l")))
	doc, ok := sender.sent[0].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, adminID, doc.ChatID)
	assert.Equal(t, tgbotapi.FilePath(path), doc.File)
}

func TestLogWithoutFile(t *testing.T) {
	sender := &fakeSender{}
	c := NewCommands(sender, adminID, "", func() string { return filepath.Join(t.TempDir(), "missing.log") })

	require.NoError(t, c.Handle(context.Background(), command(adminID, "/log@LiveNotifierBot")))
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, noLogText, msg.Text)
}

func TestIgnoresNonCommands(t *testing.T) {
	sender := &fakeSender{}
	c := NewCommands(sender, adminID, "", func() string { return "" })

	require.NoError(t, c.Handle(context.Background(), tgbotapi.Update{}))
	require.NoError(t, c.Handle(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: adminID}, Text: "hello"}}))
	require.NoError(t, c.Handle(context.Background(), command(adminID, "/restart")))
	assert.Empty(t, sender.sent)
}

type fakeUpdates struct {
	ch      chan tgbotapi.Update
	stopped bool
}

func (f *fakeUpdates) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.ch
}

func (f *fakeUpdates) StopReceivingUpdates() {
	f.stopped = true
}

func TestListenStopsOnClosedChannel(t *testing.T) {
	sender := &fakeSender{}
	src := &fakeUpdates{ch: make(chan tgbotapi.Update, 1)}
	src.ch <- command(adminID, "/start")
	close(src.ch)

	c := NewCommands(sender, adminID, "", func() string { return "" })
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, c.Listen(ctx, src))
	assert.True(t, src.stopped)
	assert.Len(t, sender.sent, 1)
}
