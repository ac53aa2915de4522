package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/yuu1111/LiveNotifier/internal/config"
	"github.com/yuu1111/LiveNotifier/internal/history"
	"github.com/yuu1111/LiveNotifier/internal/logging"
	"github.com/yuu1111/LiveNotifier/internal/monitor"
	"github.com/yuu1111/LiveNotifier/internal/platform"
	"github.com/yuu1111/LiveNotifier/internal/platform/idn"
	"github.com/yuu1111/LiveNotifier/internal/platform/showroom"
	"github.com/yuu1111/LiveNotifier/internal/platform/tiktok"
	"github.com/yuu1111/LiveNotifier/internal/telegram"
	"github.com/yuu1111/LiveNotifier/internal/tracker"
)

// app は起動に必要な部品をまとめたもの。
type app struct {
	pollers  []*monitor.Poller
	channel  *telegram.Notifier
	admin    *telegram.Notifier // admin_chat_id未設定ならnil
	commands *telegram.Commands // 同上
}

// openStore は設定に応じたセッションストアを開く。
func openStore(cfg config.StoreConfig) (tracker.Store, error) {
	switch cfg.Driver {
	case config.StoreRedis:
		return tracker.NewRedisStore(cfg.Redis)
	default:
		return tracker.NewMemoryStore(), nil
	}
}

// wireApp は設定から各プラットフォームのPollerと通知先を組み立てる。
func wireApp(cfg *config.Config, store tracker.Store, sender telegram.Sender) (*app, error) {
	target, err := telegram.ParseTarget(cfg.Telegram.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("telegram.channel_id: %w", err)
	}

	a := &app{channel: telegram.NewNotifier(sender, target, cfg.Telegram.PlayerURL)}
	if cfg.Telegram.AdminChatID != 0 {
		admin := telegram.Target{ChatID: cfg.Telegram.AdminChatID}
		a.admin = telegram.NewNotifier(sender, admin, cfg.Telegram.PlayerURL)
		logDir := cfg.Log.Dir
		a.commands = telegram.NewCommands(sender, cfg.Telegram.AdminChatID, cfg.Telegram.OwnerURL, func() string {
			return logging.TodayLogPath(logDir)
		})
	}

	hc := platform.NewClient(cfg.RequestTimeout())
	resolver := history.NewResolver(
		history.NewClient(hc, cfg.History.BaseURL),
		history.Policy{Interval: cfg.RetryInterval(), MaxAttempts: cfg.History.MaxAttempts},
		cfg.History.Group,
	)

	if len(cfg.Showroom.Rooms) > 0 {
		src := showroom.New(hc, cfg.Showroom.BaseURL)
		a.pollers = append(a.pollers, monitor.NewPoller(
			monitor.Config{Name: config.GroupShowroom, Entities: cfg.Showroom.Rooms, Interval: cfg.Interval(config.GroupShowroom)},
			tracker.New(tracker.PlatformShowroom, store), src, resolver, a.channel,
		))
	}

	if len(cfg.IDN.Users) > 0 {
		interval := cfg.Interval(config.GroupIDN)
		src := idn.New(hc, idn.Config{
			GraphQLURL:   cfg.IDN.GraphQLURL,
			DetailURL:    cfg.IDN.DetailURL,
			MaxPages:     cfg.IDN.MaxPages,
			ListCacheTTL: interval / 2,
		})
		a.pollers = append(a.pollers, monitor.NewPoller(
			monitor.Config{Name: config.GroupIDN, Entities: cfg.IDN.Users, Interval: interval},
			tracker.New(tracker.PlatformIDN, store), src, resolver, a.channel,
		))
	}

	if len(cfg.TikTok.Users) > 0 || len(cfg.TikTok.Others) > 0 {
		src := tiktok.New(tiktok.Config{
			WebURL:     cfg.TikTok.WebURL,
			WebcastURL: cfg.TikTok.WebcastURL,
			Timeout:    cfg.RequestTimeout(),
		})
		if len(cfg.TikTok.Users) > 0 {
			a.pollers = append(a.pollers, monitor.NewPoller(
				monitor.Config{Name: config.GroupTikTok, Entities: cfg.TikTok.Users, Interval: cfg.Interval(config.GroupTikTok)},
				tracker.New(tracker.PlatformTikTok, store), src, nil, a.channel,
			))
		}
		if len(cfg.TikTok.Others) > 0 {
			if a.admin == nil {
				return nil, fmt.Errorf("tiktok.othersにはtelegram.admin_chat_idが必要です")
			}
			a.pollers = append(a.pollers, monitor.NewPoller(
				monitor.Config{Name: config.GroupTikTokOthers, Entities: cfg.TikTok.Others, Interval: cfg.Interval(config.GroupTikTokOthers)},
				tracker.New(tracker.PlatformTikTok, store), src, nil, a.admin,
			))
		}
	}

	return a, nil
}

// announceStartup は管理者チャットとチャンネルに起動メッセージを送る。失敗しても起動は続ける。
func (a *app) announceStartup(ctx context.Context, now time.Time) {
	l := logging.Ctx(ctx)
	text := telegram.StartupText(now)
	for _, n := range []*telegram.Notifier{a.admin, a.channel} {
		if n == nil {
			continue
		}
		if err := n.SendText(ctx, text); err != nil {
			l.Warn().Err(err).Str("target", n.Target().String()).Msg("起動メッセージの送信に失敗")
		}
	}
}
