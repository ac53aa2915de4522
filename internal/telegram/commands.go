package telegram

import (
	"context"
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yuu1111/LiveNotifier/internal/logging"
)

const (
	refusalText   = "Maaf, Anda tidak memiliki izin untuk mengakses bot ini.\nSilahkan angkat kaki anda dari sini!"
	startedText   = "Bot telah dimulai!"
	noLogText     = "Log belum tersedia."
	ownerButton   = "Owner Telegram"
	updateTimeout = 30
)

// UpdateSource はロングポーリングでUpdateを受け取る。*tgbotapi.BotAPI が満たす。
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Commands は管理者向けボットコマンドを処理する。
type Commands struct {
	sender   Sender
	adminID  int64
	ownerURL string
	logPath  func() string
}

// NewCommands はCommandsを作成する。logPathは /log で送るファイルのパスを返す。
func NewCommands(sender Sender, adminID int64, ownerURL string, logPath func() string) *Commands {
	return &Commands{sender: sender, adminID: adminID, ownerURL: ownerURL, logPath: logPath}
}

// Listen はctxが終わるまでUpdateを受け取り続ける。
func (c *Commands) Listen(ctx context.Context, src UpdateSource) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updateTimeout
	updates := src.GetUpdatesChan(cfg)
	defer src.StopReceivingUpdates()

	l := logging.Ctx(ctx)
	l.Info().Msg("ボットコマンドの受付を開始")

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if err := c.Handle(ctx, up); err != nil {
				l.Warn().Err(err).Msg("コマンド処理に失敗")
			}
		}
	}
}

// Handle は1件のUpdateを処理する。コマンド以外は無視する。
func (c *Commands) Handle(ctx context.Context, up tgbotapi.Update) error {
	msg := up.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return nil
	}

	l := logging.Ctx(ctx)
	l.Debug().Str("command", msg.Command()).Int64("chat_id", msg.Chat.ID).Msg("コマンド受信")

	switch msg.Command() {
	case "start":
		if !c.authorized(msg) {
			return c.refuse(msg)
		}
		return c.reply(msg, startedText)
	case "log", "l":
		if !c.authorized(msg) {
			return c.refuse(msg)
		}
		return c.sendLog(msg)
	default:
		return nil
	}
}

func (c *Commands) authorized(msg *tgbotapi.Message) bool {
	return c.adminID != 0 && msg.Chat.ID == c.adminID
}

func (c *Commands) reply(msg *tgbotapi.Message, text string) error {
	cfg := tgbotapi.NewMessage(msg.Chat.ID, text)
	cfg.ReplyToMessageID = msg.MessageID
	if _, err := c.sender.Send(cfg); err != nil {
		return fmt.Errorf("返信に失敗: %w", err)
	}
	return nil
}

func (c *Commands) refuse(msg *tgbotapi.Message) error {
	cfg := tgbotapi.NewMessage(msg.Chat.ID, refusalText)
	cfg.ReplyToMessageID = msg.MessageID
	if c.ownerURL != "" {
		cfg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(ownerButton, c.ownerURL)),
		)
	}
	if _, err := c.sender.Send(cfg); err != nil {
		return fmt.Errorf("拒否メッセージの送信に失敗: %w", err)
	}
	return nil
}

func (c *Commands) sendLog(msg *tgbotapi.Message) error {
	path := c.logPath()
	if _, err := os.Stat(path); err != nil {
		return c.reply(msg, noLogText)
	}

	doc := tgbotapi.NewDocument(c.adminID, tgbotapi.FilePath(path))
	if _, err := c.sender.Send(doc); err != nil {
		return fmt.Errorf("ログファイルの送信に失敗 (%s): %w", path, err)
	}
	return nil
}
