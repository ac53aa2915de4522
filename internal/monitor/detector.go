package monitor

import (
	"context"
	"errors"

	"github.com/yuu1111/LiveNotifier/internal/history"
	"github.com/yuu1111/LiveNotifier/internal/logging"
	"github.com/yuu1111/LiveNotifier/internal/platform"
	"github.com/yuu1111/LiveNotifier/internal/tracker"
)

// processEntity は単一エンティティを取得・評価し、遷移に応じて通知する。
func (p *Poller) processEntity(ctx context.Context, entity string) Outcome {
	key := tracker.NewKey(p.tracker.Platform(), entity)
	out := Outcome{Entity: key.Entity, Transition: tracker.NoChange}

	prev, err := p.tracker.State(ctx, entity)
	if err != nil {
		out.Kind, out.Err = KindTransient, err
		return out
	}

	snap, err := p.source.Fetch(ctx, entity, prev)
	if err != nil {
		out.Err = err
		if errors.Is(err, platform.ErrNotFound) {
			return out
		}
		out.Kind = KindTransient
		return out
	}

	decision, err := p.tracker.Observe(ctx, entity, snap)
	if err != nil {
		out.Kind, out.Err = KindTransient, err
		return out
	}
	out.Transition = decision.Transition

	l := logging.Ctx(ctx).With().
		Str(logging.FieldEntity, key.Entity).
		Str(logging.FieldTransition, decision.Transition.String()).
		Logger()

	switch decision.Transition {
	case tracker.WentLive:
		l.Info().Str("title", snap.Title).Msg("配信開始を検出")
		if snap.StartedAt.IsZero() {
			snap.StartedAt = decision.Session.StartedAt
		}
		ref, err := p.notifier.Announce(ctx, key, snap)
		if err != nil {
			out.Kind, out.Err = KindFatal, err
			return out
		}
		if err := p.tracker.AttachMessage(ctx, entity, ref); err != nil {
			out.Kind, out.Err = KindFatal, err
			return out
		}
		l.Info().Int(logging.FieldMessageID, ref.MessageID).Msg("配信開始を通知")

	case tracker.WentOffline:
		session := decision.Session
		l.Info().Time("started_at", session.StartedAt).Msg("配信終了を検出")

		summary := p.summarize(logging.WithLogger(ctx, l), key, session, snap)
		if session.Message.IsZero() {
			l.Warn().Msg("開始通知が記録されていないため終了サマリを送信しない")
			return out
		}
		if err := p.notifier.Update(ctx, session.Message, key, session, summary); err != nil {
			out.Kind, out.Err = KindFatal, err
			return out
		}
		l.Info().Int(logging.FieldMessageID, session.Message.MessageID).Bool("approximate", summary.Approximate).Msg("終了サマリに更新")
	}

	return out
}

// summarize はアーカイブから統計を解決し、得られなければ概算にフォールバックする。
func (p *Poller) summarize(ctx context.Context, key tracker.Key, session tracker.SessionState, snap tracker.Snapshot) history.Summary {
	if p.resolver != nil && history.Supports(key.Platform) {
		slug := session.Slug
		if slug == "" {
			slug = snap.Slug
		}
		summary, err := p.resolver.Resolve(ctx, history.Request{
			Platform:  key.Platform,
			Entity:    key.Entity,
			Slug:      slug,
			StartedAt: session.StartedAt,
		})
		if err == nil {
			return summary
		}
		l := logging.Ctx(ctx)
		l.Warn().Err(err).Msg("アーカイブから統計を取得できないため概算を使用")
	}
	return history.Approximate(session, snap, p.now())
}
