// Package config はアプリケーション設定の読み込み・保存・バリデーションを提供する。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/yuu1111/LiveNotifier/internal/logging"
	"github.com/yuu1111/LiveNotifier/internal/tracker"
)

// LogLevel はログ出力レベルを表す。
type LogLevel = string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// ストアの種類
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// エンティティを追加・削除するときの監視グループ名
const (
	GroupShowroom     = "showroom"
	GroupIDN          = "idn"
	GroupTikTok       = "tiktok"
	GroupTikTokOthers = "tiktok-others"
)

// DefaultPath は --config 未指定時の設定ファイル。
const DefaultPath = "config.toml"

// 最短ポーリング間隔(秒)
const minIntervalSeconds = 10

// TelegramConfig はボットと送信先の設定。
type TelegramConfig struct {
	Token       string `mapstructure:"token" toml:"token"`
	ChannelID   string `mapstructure:"channel_id" toml:"channel_id"`
	AdminChatID int64  `mapstructure:"admin_chat_id" toml:"admin_chat_id"`
	OwnerURL    string `mapstructure:"owner_url" toml:"owner_url"`
	PlayerURL   string `mapstructure:"player_url" toml:"player_url"`
	Commands    bool   `mapstructure:"commands" toml:"commands"`
}

// ShowroomConfig はSHOWROOMの監視設定。
type ShowroomConfig struct {
	Rooms           []string `mapstructure:"rooms" toml:"rooms"`
	IntervalSeconds int      `mapstructure:"interval_seconds" toml:"interval_seconds"`
	BaseURL         string   `mapstructure:"base_url" toml:"base_url"`
}

// IDNConfig はIDN Liveの監視設定。
type IDNConfig struct {
	Users           []string `mapstructure:"users" toml:"users"`
	IntervalSeconds int      `mapstructure:"interval_seconds" toml:"interval_seconds"`
	GraphQLURL      string   `mapstructure:"graphql_url" toml:"graphql_url"`
	DetailURL       string   `mapstructure:"detail_url" toml:"detail_url"`
	MaxPages        int      `mapstructure:"max_pages" toml:"max_pages"`
}

// TikTokConfig はTikTok LIVEの監視設定。Othersは管理者チャットにだけ通知する。
type TikTokConfig struct {
	Users           []string `mapstructure:"users" toml:"users"`
	Others          []string `mapstructure:"others" toml:"others"`
	IntervalSeconds int      `mapstructure:"interval_seconds" toml:"interval_seconds"`
	WebURL          string   `mapstructure:"web_url" toml:"web_url"`
	WebcastURL      string   `mapstructure:"webcast_url" toml:"webcast_url"`
}

// HistoryConfig はアーカイブAPIの設定。
type HistoryConfig struct {
	BaseURL              string `mapstructure:"base_url" toml:"base_url"`
	Group                string `mapstructure:"group" toml:"group"`
	RetryIntervalSeconds int    `mapstructure:"retry_interval_seconds" toml:"retry_interval_seconds"`
	MaxAttempts          int    `mapstructure:"max_attempts" toml:"max_attempts"`
}

// HTTPConfig は外部APIへのリクエスト設定。
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
}

// StoreConfig はセッション状態の保存先。
type StoreConfig struct {
	Driver string              `mapstructure:"driver" toml:"driver"`
	Redis  tracker.RedisConfig `mapstructure:"redis" toml:"redis"`
}

// ServerConfig はステータスAPIの設定。
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Address string `mapstructure:"address" toml:"address"`
}

// Config はアプリケーション全体の設定。
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram" toml:"telegram"`
	Showroom ShowroomConfig `mapstructure:"showroom" toml:"showroom"`
	IDN      IDNConfig      `mapstructure:"idn" toml:"idn"`
	TikTok   TikTokConfig   `mapstructure:"tiktok" toml:"tiktok"`
	History  HistoryConfig  `mapstructure:"history" toml:"history"`
	HTTP     HTTPConfig     `mapstructure:"http" toml:"http"`
	Store    StoreConfig    `mapstructure:"store" toml:"store"`
	Server   ServerConfig   `mapstructure:"server" toml:"server"`
	Log      logging.Config `mapstructure:"log" toml:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.channel_id", "")
	v.SetDefault("telegram.admin_chat_id", 0)
	v.SetDefault("telegram.owner_url", "")
	v.SetDefault("telegram.player_url", "https://player3.piobot.us.to/player/#")
	v.SetDefault("telegram.commands", true)
	v.SetDefault("showroom.rooms", []string{})
	v.SetDefault("showroom.interval_seconds", 60)
	v.SetDefault("showroom.base_url", "https://www.showroom-live.com")
	v.SetDefault("idn.users", []string{})
	v.SetDefault("idn.interval_seconds", 60)
	v.SetDefault("idn.graphql_url", "https://api.idn.app/graphql")
	v.SetDefault("idn.detail_url", "https://www.idn.app/mobile-api/v3/livestream")
	v.SetDefault("idn.max_pages", 10)
	v.SetDefault("tiktok.users", []string{})
	v.SetDefault("tiktok.others", []string{})
	v.SetDefault("tiktok.interval_seconds", 120)
	v.SetDefault("tiktok.web_url", "https://www.tiktok.com")
	v.SetDefault("tiktok.webcast_url", "https://webcast.tiktok.com")
	v.SetDefault("history.base_url", "https://api.crstlnz.my.id/api")
	v.SetDefault("history.group", "jkt48")
	v.SetDefault("history.retry_interval_seconds", 30)
	v.SetDefault("history.max_attempts", 10)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.redis.address", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key_prefix", "livenotifier")
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("log.level", LogInfo)
	v.SetDefault("log.dir", "./logs")
	v.SetDefault("log.pretty", false)
}

// Load は指定パスのTOMLと環境変数から設定を読み込みバリデーションする。
// ファイルが存在しない場合はデフォルト値と環境変数だけで構築する。
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read はバリデーションせずに設定を読み込む。CLIでの編集用。
func Read(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v)

	v.SetEnvPrefix("LIVENOTIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("telegram.token", "LIVENOTIFIER_TELEGRAM_TOKEN", "TOKEN")
	_ = v.BindEnv("telegram.channel_id", "LIVENOTIFIER_TELEGRAM_CHANNEL_ID", "CHANNEL_ID")
	_ = v.BindEnv("telegram.admin_chat_id", "LIVENOTIFIER_TELEGRAM_ADMIN_CHAT_ID", "CHAT_ID")
	_ = v.BindEnv("server.address", "LIVENOTIFIER_SERVER_ADDRESS", "ADDRESS")
	_ = v.BindEnv("store.redis.address", "LIVENOTIFIER_STORE_REDIS_ADDRESS", "REDIS_ADDRESS")
	_ = v.BindEnv("store.redis.password", "LIVENOTIFIER_STORE_REDIS_PASSWORD", "REDIS_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の解析に失敗: %w", err)
	}
	return &cfg, nil
}

// Save は設定をTOML形式で指定パスに保存する。
func Save(path string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("設定のTOML変換に失敗: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("設定ディレクトリの作成に失敗: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("一時ファイルへの書き込みに失敗: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("一時ファイルの権限設定に失敗: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("一時ファイルのクローズに失敗: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("設定ファイルの置き換えに失敗: %w", err)
	}
	return nil
}

// Validate は設定のバリデーションを行う。
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.tokenは必須です")
	}
	if c.Telegram.ChannelID == "" {
		return fmt.Errorf("telegram.channel_idは必須です")
	}
	if len(c.TikTok.Others) > 0 && c.Telegram.AdminChatID == 0 {
		return fmt.Errorf("tiktok.othersを使う場合はtelegram.admin_chat_idが必須です")
	}

	intervals := []struct {
		name    string
		seconds int
	}{
		{"showroom.interval_seconds", c.Showroom.IntervalSeconds},
		{"idn.interval_seconds", c.IDN.IntervalSeconds},
		{"tiktok.interval_seconds", c.TikTok.IntervalSeconds},
	}
	for _, iv := range intervals {
		if iv.seconds < minIntervalSeconds {
			return fmt.Errorf("%sは%d以上で設定してください", iv.name, minIntervalSeconds)
		}
	}

	for _, u := range c.TikTok.Others {
		if containsFold(c.TikTok.Users, u) {
			return fmt.Errorf("%s が tiktok.users と tiktok.others の両方に登録されています", u)
		}
	}

	if c.EntityCount() == 0 {
		return fmt.Errorf("監視対象を1件以上設定してください (showroom.rooms / idn.users / tiktok.users / tiktok.others)")
	}

	if c.History.MaxAttempts < 1 {
		return fmt.Errorf("history.max_attemptsは1以上で設定してください")
	}
	if c.History.RetryIntervalSeconds < 0 {
		return fmt.Errorf("history.retry_interval_secondsは0以上で設定してください")
	}
	if c.HTTP.TimeoutSeconds < 1 {
		return fmt.Errorf("http.timeout_secondsは1以上で設定してください")
	}

	validLevels := map[string]bool{
		LogDebug: true, LogInfo: true, LogWarn: true, LogError: true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("log.levelは debug/info/warn/error のいずれかを設定してください")
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreRedis:
		if c.Store.Redis.Address == "" {
			return fmt.Errorf("store.redis.addressは必須です")
		}
	default:
		return fmt.Errorf("store.driverは memory/redis のいずれかを設定してください")
	}

	if c.Server.Enabled && c.Server.Address == "" {
		return fmt.Errorf("server.addressは必須です")
	}
	return nil
}

// EntityCount は全監視グループの対象数の合計を返す。
func (c *Config) EntityCount() int {
	return len(c.Showroom.Rooms) + len(c.IDN.Users) + len(c.TikTok.Users) + len(c.TikTok.Others)
}

// Groups は監視グループ名の一覧を返す。
func Groups() []string {
	return []string{GroupShowroom, GroupIDN, GroupTikTok, GroupTikTokOthers}
}

func (c *Config) group(name string) (*[]string, error) {
	switch strings.ToLower(name) {
	case GroupShowroom:
		return &c.Showroom.Rooms, nil
	case GroupIDN:
		return &c.IDN.Users, nil
	case GroupTikTok:
		return &c.TikTok.Users, nil
	case GroupTikTokOthers:
		return &c.TikTok.Others, nil
	default:
		return nil, fmt.Errorf("不明なプラットフォームです: %s (%s)", name, strings.Join(Groups(), " / "))
	}
}

// Entities は監視グループの対象一覧を返す。
func (c *Config) Entities(group string) ([]string, error) {
	list, err := c.group(group)
	if err != nil {
		return nil, err
	}
	return *list, nil
}

// AddEntity は監視グループに対象を追加する。大文字小文字を区別せず重複は拒否する。
func (c *Config) AddEntity(group, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("IDが空です")
	}
	list, err := c.group(group)
	if err != nil {
		return err
	}
	if containsFold(*list, id) {
		return fmt.Errorf("%s は %s に登録済みです", id, group)
	}
	// tiktokとtiktok-othersは同じ状態キーを使うため併用できない
	switch strings.ToLower(group) {
	case GroupTikTok:
		if containsFold(c.TikTok.Others, id) {
			return fmt.Errorf("%s は %s に登録済みです", id, GroupTikTokOthers)
		}
	case GroupTikTokOthers:
		if containsFold(c.TikTok.Users, id) {
			return fmt.Errorf("%s は %s に登録済みです", id, GroupTikTok)
		}
	}
	*list = append(*list, id)
	return nil
}

func containsFold(list []string, id string) bool {
	for _, existing := range list {
		if strings.EqualFold(existing, id) {
			return true
		}
	}
	return false
}

// RemoveEntity は監視グループから対象を削除する。
func (c *Config) RemoveEntity(group, id string) error {
	list, err := c.group(group)
	if err != nil {
		return err
	}
	for i, existing := range *list {
		if strings.EqualFold(existing, strings.TrimSpace(id)) {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s は %s に登録されていません", id, group)
}

// RequestTimeout は外部APIリクエストのタイムアウトを返す。
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// Interval は監視グループのポーリング間隔を返す。
func (c *Config) Interval(group string) time.Duration {
	var sec int
	switch group {
	case GroupShowroom:
		sec = c.Showroom.IntervalSeconds
	case GroupIDN:
		sec = c.IDN.IntervalSeconds
	default:
		sec = c.TikTok.IntervalSeconds
	}
	return time.Duration(sec) * time.Second
}

// RetryInterval はアーカイブ登録待ちの再試行間隔を返す。
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.History.RetryIntervalSeconds) * time.Second
}
