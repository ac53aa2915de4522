package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[telegram]
token = "123:abc"
channel_id = "@jkt48live"
admin_chat_id = 1000

[showroom]
rooms = ["317727", "318208"]

[idn]
users = ["jkt48_freya"]
interval_seconds = 90

[tiktok]
others = ["someone"]

[store]
driver = "redis"

[store.redis]
address = "redis:6379"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, []string{"317727", "318208"}, cfg.Showroom.Rooms)
	assert.Equal(t, 60*time.Second, cfg.Interval(GroupShowroom))
	assert.Equal(t, 90*time.Second, cfg.Interval(GroupIDN))
	assert.Equal(t, 120*time.Second, cfg.Interval(GroupTikTokOthers))
	assert.Equal(t, 30*time.Second, cfg.RetryInterval())
	assert.Equal(t, 10, cfg.History.MaxAttempts)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "https://player3.piobot.us.to/player/#", cfg.Telegram.PlayerURL)
	assert.Equal(t, StoreRedis, cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Address)
	assert.Equal(t, "livenotifier", cfg.Store.Redis.KeyPrefix)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "https://www.idn.app/mobile-api/v3/livestream", cfg.IDN.DetailURL)
	assert.Equal(t, "https://api.idn.app/graphql", cfg.IDN.GraphQLURL)
	assert.Equal(t, LogInfo, cfg.Log.Level)
	assert.Equal(t, "./logs", cfg.Log.Dir)
	assert.Equal(t, 4, cfg.EntityCount())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TOKEN", "from-env")
	t.Setenv("LIVENOTIFIER_LOG_LEVEL", "debug")
	t.Setenv("CHAT_ID", "2000")

	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, LogDebug, cfg.Log.Level)
	assert.Equal(t, int64(2000), cfg.Telegram.AdminChatID)
}

func TestLoadWithoutFileUsesEnv(t *testing.T) {
	t.Setenv("TOKEN", "t")
	t.Setenv("CHANNEL_ID", "@c")

	cfg, err := Read(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "t", cfg.Telegram.Token)
	assert.Equal(t, "@c", cfg.Telegram.ChannelID)

	// 監視対象がないのでLoadは失敗する
	assert.Error(t, cfg.Validate())
}

func TestLoadRejectsBrokenTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "[telegram\ntoken="))
	assert.Error(t, err)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"トークンなし", func(c *Config) { c.Telegram.Token = "" }},
		{"チャンネルなし", func(c *Config) { c.Telegram.ChannelID = "" }},
		{"othersに管理者なし", func(c *Config) { c.Telegram.AdminChatID = 0 }},
		{"間隔が短い", func(c *Config) { c.TikTok.IntervalSeconds = 5 }},
		{"監視対象なし", func(c *Config) {
			c.Showroom.Rooms, c.IDN.Users, c.TikTok.Users, c.TikTok.Others = nil, nil, nil, nil
		}},
		{"試行回数0", func(c *Config) { c.History.MaxAttempts = 0 }},
		{"タイムアウト0", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }},
		{"不明なログレベル", func(c *Config) { c.Log.Level = "trace" }},
		{"不明なストア", func(c *Config) { c.Store.Driver = "sqlite" }},
		{"redisアドレスなし", func(c *Config) { c.Store.Redis.Address = "" }},
		{"サーバーアドレスなし", func(c *Config) { c.Server.Address = "" }},
		{"tiktokの重複登録", func(c *Config) { c.TikTok.Users = []string{"SOMEONE"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			require.NoError(t, cfg.Validate())
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveThenRead(t *testing.T) {
	cfg := validConfig(t)
	require.NoError(t, cfg.AddEntity(GroupTikTok, "freya"))

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Telegram, got.Telegram)
	assert.Equal(t, cfg.Showroom.Rooms, got.Showroom.Rooms)
	assert.Equal(t, []string{"freya"}, got.TikTok.Users)
	assert.Equal(t, cfg.TikTok.Others, got.TikTok.Others)
	assert.Equal(t, cfg.History, got.History)
	assert.Equal(t, cfg.Store, got.Store)
	assert.Equal(t, cfg.Log, got.Log)
}

func TestAddRemoveEntity(t *testing.T) {
	cfg := &Config{}

	require.NoError(t, cfg.AddEntity("showroom", "317727"))
	require.NoError(t, cfg.AddEntity("IDN", "jkt48_freya"))
	assert.Error(t, cfg.AddEntity("idn", "JKT48_Freya"))
	assert.Error(t, cfg.AddEntity("idn", " "))
	assert.Error(t, cfg.AddEntity("youtube", "x"))

	list, err := cfg.Entities(GroupIDN)
	require.NoError(t, err)
	assert.Equal(t, []string{"jkt48_freya"}, list)

	require.NoError(t, cfg.RemoveEntity(GroupIDN, "JKT48_FREYA"))
	assert.Empty(t, cfg.IDN.Users)
	assert.Error(t, cfg.RemoveEntity(GroupIDN, "jkt48_freya"))
	assert.Equal(t, 1, cfg.EntityCount())
}

func TestAddEntityRejectsSameTikTokUserInBothGroups(t *testing.T) {
	cfg := &Config{}

	require.NoError(t, cfg.AddEntity(GroupTikTok, "freya"))
	assert.Error(t, cfg.AddEntity("TikTok-Others", "Freya"))

	require.NoError(t, cfg.AddEntity(GroupTikTokOthers, "someone"))
	assert.Error(t, cfg.AddEntity(GroupTikTok, "SOMEONE"))

	assert.Equal(t, []string{"freya"}, cfg.TikTok.Users)
	assert.Equal(t, []string{"someone"}, cfg.TikTok.Others)
}
