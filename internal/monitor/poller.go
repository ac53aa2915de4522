// Package monitor はプラットフォームごとのポーリングループと通知の振り分けを提供する。
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yuu1111/LiveNotifier/internal/history"
	"github.com/yuu1111/LiveNotifier/internal/logging"
	"github.com/yuu1111/LiveNotifier/internal/platform"
	"github.com/yuu1111/LiveNotifier/internal/tracker"
)

// Source はプラットフォームから1エンティティ分のスナップショットを取得する。
type Source interface {
	Platform() tracker.Platform
	Fetch(ctx context.Context, entity string, prev tracker.SessionState) (tracker.Snapshot, error)
}

// Resolver は終了したセッションの統計を解決する。
type Resolver interface {
	Resolve(ctx context.Context, req history.Request) (history.Summary, error)
}

// Notifier は配信開始の通知と終了時の編集を行う。
type Notifier interface {
	Announce(ctx context.Context, key tracker.Key, snap tracker.Snapshot) (tracker.MessageRef, error)
	Update(ctx context.Context, ref tracker.MessageRef, key tracker.Key, session tracker.SessionState, summary history.Summary) error
}

// Config はポーリングループ1本分の設定。
type Config struct {
	Name     string
	Entities []string
	Interval time.Duration
}

// Poller は1プラットフォームのエンティティを順番にポーリングする。
type Poller struct {
	name     string
	entities []string
	interval time.Duration
	tracker  *tracker.Tracker
	source   Source
	resolver Resolver
	notifier Notifier
	now      func() time.Time
}

// NewPoller はPollerを作成する。resolverがnilなら終了時は常に概算を使う。
func NewPoller(cfg Config, tr *tracker.Tracker, src Source, resolver Resolver, notifier Notifier) *Poller {
	name := cfg.Name
	if name == "" {
		name = string(src.Platform())
	}
	return &Poller{
		name:     name,
		entities: cfg.Entities,
		interval: cfg.Interval,
		tracker:  tr,
		source:   src,
		resolver: resolver,
		notifier: notifier,
		now:      time.Now,
	}
}

// Name はループ名を返す。
func (p *Poller) Name() string {
	return p.name
}

// Run はポーリングループを開始する。ctxがキャンセルされるまで実行する。
func (p *Poller) Run(ctx context.Context) error {
	l := logging.Ctx(ctx).With().
		Str(logging.FieldLoop, p.name).
		Str(logging.FieldPlatform, string(p.source.Platform())).
		Logger()
	ctx = logging.WithLogger(ctx, l)

	l.Info().Dur("interval", p.interval).Int("entities", len(p.entities)).Msg("ポーリング開始")

	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("ポーリング停止")
			return nil
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll は全エンティティを1巡評価し、それぞれの結果を返す。
// 1件の失敗は他のエンティティの処理を止めない。
func (p *Poller) Poll(ctx context.Context) []Outcome {
	l := logging.Ctx(ctx).With().Str(logging.FieldCycleID, uuid.NewString()).Logger()
	ctx = logging.WithLogger(ctx, l)

	outcomes := make([]Outcome, 0, len(p.entities))
	for _, entity := range p.entities {
		if ctx.Err() != nil {
			break
		}
		o := p.processEntity(ctx, entity)
		logOutcome(ctx, o)
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func logOutcome(ctx context.Context, o Outcome) {
	l := logging.Ctx(ctx)
	switch o.Kind {
	case KindTransient:
		l.Warn().Err(o.Err).Str(logging.FieldEntity, o.Entity).Str(logging.FieldOutcome, o.Kind.String()).Msg("取得に失敗したため状態を維持")
	case KindFatal:
		l.Error().Err(o.Err).Str(logging.FieldEntity, o.Entity).Str(logging.FieldOutcome, o.Kind.String()).
			Str(logging.FieldTransition, o.Transition.String()).Msg("通知に失敗")
	default:
		if o.Err != nil && errors.Is(o.Err, platform.ErrNotFound) {
			l.Debug().Err(o.Err).Str(logging.FieldEntity, o.Entity).Msg("対象が見つからないためスキップ")
		}
	}
}
