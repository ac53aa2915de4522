package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/yuu1111/LiveNotifier/internal/config"
	"github.com/yuu1111/LiveNotifier/internal/logging"
	"github.com/yuu1111/LiveNotifier/internal/server"
)

// runMonitor は設定を読み込み、全プラットフォームの監視とステータスAPIを起動する。
func runMonitor(parent context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.Init(cfg.Log)
	logger.Info().Str("config", configPath).Int("entities", cfg.EntityCount()).Msg("Live Notifier 起動中...")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("Telegramボットの初期化に失敗: %w", err)
	}
	logger.Info().Str("bot", bot.Self.UserName).Msg("Telegramに接続")

	store, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("ストアの初期化に失敗: %w", err)
	}
	defer store.Close()

	a, err := wireApp(cfg, store, bot)
	if err != nil {
		return err
	}
	a.announceStartup(ctx, time.Now())

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range a.pollers {
		p := p
		g.Go(func() error {
			return p.Run(gctx)
		})
	}
	if cfg.Server.Enabled {
		g.Go(func() error {
			return server.Run(gctx, cfg.Server.Address, server.NewRouter(store, logger))
		})
	}
	if cfg.Telegram.Commands && a.commands != nil {
		g.Go(func() error {
			return a.commands.Listen(gctx, bot)
		})
	}

	err = g.Wait()
	logger.Info().Msg("Live Notifier 停止")
	return err
}
