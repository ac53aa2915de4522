package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotLive は配信中でないエンティティにメッセージを紐付けようとした場合のエラー。
var ErrNotLive = errors.New("entity is not live")

// Tracker は1プラットフォーム分の状態遷移を管理する。
// 同一エンティティへの呼び出しは単一のポーリングループから行うこと。
type Tracker struct {
	platform Platform
	store    Store
	now      func() time.Time
}

// New はTrackerを作成する。
func New(platform Platform, store Store) *Tracker {
	return &Tracker{platform: platform, store: store, now: time.Now}
}

// Platform は対象プラットフォームを返す。
func (t *Tracker) Platform() Platform {
	return t.platform
}

// State はエンティティの現在の状態を返す。未観測ならゼロ値。
func (t *Tracker) State(ctx context.Context, entity string) (SessionState, error) {
	st, _, err := t.store.Get(ctx, NewKey(t.platform, entity))
	if err != nil {
		return SessionState{}, fmt.Errorf("状態の取得に失敗: %w", err)
	}
	return st, nil
}

// Observe はスナップショットを評価し、遷移があれば状態を保存する。
// 配信継続中は最後に見えた視聴者数だけを更新する。
func (t *Tracker) Observe(ctx context.Context, entity string, snap Snapshot) (Decision, error) {
	key := NewKey(t.platform, entity)

	current, _, err := t.store.Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("状態の取得に失敗: %w", err)
	}

	decision, next := Evaluate(current, snap, t.now())
	if decision.Transition == NoChange {
		if current.Live && snap.IsLive && snap.ViewerCount > 0 && snap.ViewerCount != current.ViewerCount {
			current.ViewerCount = snap.ViewerCount
			if err := t.store.Put(ctx, key, current); err != nil {
				return Decision{}, fmt.Errorf("状態の保存に失敗: %w", err)
			}
		}
		return decision, nil
	}

	if err := t.store.Put(ctx, key, next); err != nil {
		return Decision{}, fmt.Errorf("状態の保存に失敗: %w", err)
	}
	return decision, nil
}

// AttachMessage は配信開始通知のハンドルを現在のセッションに紐付ける。
func (t *Tracker) AttachMessage(ctx context.Context, entity string, ref MessageRef) error {
	key := NewKey(t.platform, entity)

	st, _, err := t.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("状態の取得に失敗: %w", err)
	}
	if !st.Live {
		return fmt.Errorf("%s: %w", key, ErrNotLive)
	}

	st.Message = ref
	if err := t.store.Put(ctx, key, st); err != nil {
		return fmt.Errorf("状態の保存に失敗: %w", err)
	}
	return nil
}
