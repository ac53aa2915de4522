// Package tracker は配信者ごとのライブ状態遷移の判定と保存を提供する。
package tracker

import (
	"strings"
	"time"
)

// Platform は監視対象プラットフォームを表す。
type Platform string

const (
	PlatformShowroom Platform = "showroom"
	PlatformIDN      Platform = "idn"
	PlatformTikTok   Platform = "tiktok"
)

// Key はプラットフォーム内のエンティティ(ルーム/チャンネル/ユーザー名)を一意に表す。
type Key struct {
	Platform Platform
	Entity   string
}

// NewKey はエンティティ名を小文字に正規化したKeyを作成する。
func NewKey(platform Platform, entity string) Key {
	return Key{Platform: platform, Entity: strings.ToLower(strings.TrimSpace(entity))}
}

func (k Key) String() string {
	return string(k.Platform) + ":" + k.Entity
}

// ParseKey は "platform:entity" 形式の文字列をKeyに戻す。
func ParseKey(s string) (Key, bool) {
	p, e, ok := strings.Cut(s, ":")
	if !ok || p == "" || e == "" {
		return Key{}, false
	}
	return Key{Platform: Platform(p), Entity: e}, true
}

// MessageRef は送信済み通知メッセージのハンドル。編集時に使う。
type MessageRef struct {
	ChatID    string `json:"chat_id,omitempty"`
	MessageID int    `json:"message_id,omitempty"`
	Photo     bool   `json:"photo,omitempty"` // falseならキャプションではなく本文を編集する
}

// IsZero はハンドルが未設定か返す。
func (m MessageRef) IsZero() bool {
	return m.MessageID == 0
}

// SessionState はエンティティごとの最後に観測した状態と配信中のセッション情報。
type SessionState struct {
	Live        bool       `json:"live"`
	StartedAt   time.Time  `json:"started_at,omitempty"`
	ViewerCount int        `json:"viewer_count,omitempty"` // 0は不明扱い
	Message     MessageRef `json:"message,omitempty"`
	Slug        string     `json:"slug,omitempty"` // IDNのみ
	Title       string     `json:"title,omitempty"`
	DisplayName string     `json:"display_name,omitempty"`
}

// Snapshot は1回のポーリングで観測した状態。保存されない。
type Snapshot struct {
	IsLive        bool
	Title         string
	DisplayName   string
	CoverImageURL string
	ViewerCount   int
	PlaybackURL   string
	WebURL        string
	StartedAt     time.Time // 不明ならゼロ値
	EndedAt       time.Time // 配信終了時刻を返すプラットフォームのみ
	Slug          string
	Premium       bool
}
