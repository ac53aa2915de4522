// Package telegram はTelegramへの配信通知とボットコマンドを提供する。
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yuu1111/LiveNotifier/internal/history"
	"github.com/yuu1111/LiveNotifier/internal/logging"
	"github.com/yuu1111/LiveNotifier/internal/tracker"
)

// Sender はBotAPIの送信部分。*tgbotapi.BotAPI が満たす。
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Target は送信先。数値のチャットIDか @チャンネル名のどちらか。
type Target struct {
	ChatID   int64
	Username string
}

// ParseTarget は "-1001234" や "@channel" を Target に変換する。
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Target{}, errors.New("送信先が空です")
	}
	if strings.HasPrefix(s, "@") {
		return Target{Username: s}, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Target{}, fmt.Errorf("送信先の解析に失敗 (%s): %w", s, err)
	}
	return Target{ChatID: id}, nil
}

// String は MessageRef.ChatID に保存する表現を返す。
func (t Target) String() string {
	if t.Username != "" {
		return t.Username
	}
	return strconv.FormatInt(t.ChatID, 10)
}

// Notifier は1つの送信先へ配信通知を送る。
type Notifier struct {
	sender    Sender
	target    Target
	playerURL string
}

// NewNotifier はNotifierを作成する。
func NewNotifier(sender Sender, target Target, playerURL string) *Notifier {
	return &Notifier{sender: sender, target: target, playerURL: playerURL}
}

// Target は送信先を返す。
func (n *Notifier) Target() Target {
	return n.target
}

// Announce は配信開始を写真付きで送信し、後で編集するための参照を返す。
func (n *Notifier) Announce(ctx context.Context, key tracker.Key, snap tracker.Snapshot) (tracker.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return tracker.MessageRef{}, err
	}

	a := BuildAnnouncement(key, snap, n.playerURL)

	var msg tgbotapi.Message
	var err error
	photo := a.PhotoURL != ""
	if !photo {
		cfg := n.textConfig(a.Caption)
		cfg.ReplyMarkup = keyboard(a.Buttons)
		msg, err = n.sender.Send(cfg)
	} else {
		cfg := n.photoConfig(tgbotapi.FileURL(a.PhotoURL))
		cfg.Caption = a.Caption
		cfg.ParseMode = tgbotapi.ModeHTML
		cfg.ReplyMarkup = keyboard(a.Buttons)
		msg, err = n.sender.Send(cfg)
	}
	if err != nil {
		return tracker.MessageRef{}, fmt.Errorf("配信開始通知の送信に失敗 (%s): %w", key, err)
	}

	l := logging.Ctx(ctx)
	l.Debug().Str(logging.FieldEntity, key.String()).Int(logging.FieldMessageID, msg.MessageID).Msg("配信開始通知を送信")
	return tracker.MessageRef{ChatID: n.target.String(), MessageID: msg.MessageID, Photo: photo}, nil
}

// Update は配信開始通知を終了サマリに差し替え、ボタンを外す。
// 写真付きならキャプション、テキストのみなら本文を編集する。
// 参照先のチャットは ref に記録されたものを使う。
func (n *Notifier) Update(ctx context.Context, ref tracker.MessageRef, key tracker.Key, session tracker.SessionState, summary history.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ref.IsZero() {
		return errors.New("編集対象のメッセージがありません")
	}

	target := n.target
	if ref.ChatID != "" {
		t, err := ParseTarget(ref.ChatID)
		if err != nil {
			return err
		}
		target = t
	}

	base := tgbotapi.BaseEdit{
		ChatID:          target.ChatID,
		ChannelUsername: target.Username,
		MessageID:       ref.MessageID,
	}
	text := BuildSummary(key, session, summary)

	var cfg tgbotapi.Chattable
	if ref.Photo {
		cfg = tgbotapi.EditMessageCaptionConfig{BaseEdit: base, Caption: text, ParseMode: tgbotapi.ModeHTML}
	} else {
		cfg = tgbotapi.EditMessageTextConfig{BaseEdit: base, Text: text, ParseMode: tgbotapi.ModeHTML}
	}
	if _, err := n.sender.Request(cfg); err != nil {
		return fmt.Errorf("終了サマリへの編集に失敗 (%s message_id=%d): %w", key, ref.MessageID, err)
	}
	return nil
}

// SendText はHTMLテキストを送信する。
func (n *Notifier) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.sender.Send(n.textConfig(text)); err != nil {
		return fmt.Errorf("メッセージ送信に失敗 (%s): %w", n.target, err)
	}
	return nil
}

func (n *Notifier) textConfig(text string) tgbotapi.MessageConfig {
	var cfg tgbotapi.MessageConfig
	if n.target.Username != "" {
		cfg = tgbotapi.NewMessageToChannel(n.target.Username, text)
	} else {
		cfg = tgbotapi.NewMessage(n.target.ChatID, text)
	}
	cfg.ParseMode = tgbotapi.ModeHTML
	return cfg
}

func (n *Notifier) photoConfig(file tgbotapi.RequestFileData) tgbotapi.PhotoConfig {
	if n.target.Username != "" {
		return tgbotapi.NewPhotoToChannel(n.target.Username, file)
	}
	return tgbotapi.NewPhoto(n.target.ChatID, file)
}

// keyboard はボタンが1つもなければ素のnilを返す。
func keyboard(rows [][]Button) interface{} {
	var kb [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var r []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			if b.URL == "" {
				continue
			}
			r = append(r, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
		}
		if len(r) > 0 {
			kb = append(kb, r)
		}
	}
	if len(kb) == 0 {
		return nil
	}
	return tgbotapi.NewInlineKeyboardMarkup(kb...)
}
