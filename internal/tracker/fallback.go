package tracker

import "context"

// ListFunc は一覧APIからエンティティの現在の識別子を探す。見つからなければ空文字列。
type ListFunc func(ctx context.Context, entity string) (string, error)

// DetailFunc は識別子から詳細スナップショットを取得する。
type DetailFunc func(ctx context.Context, identifier string) (Snapshot, error)

// ResolveWithFallback は一覧APIでエンティティを探し、詳細を取得する。
// 一覧に現れない場合は前回記憶した識別子で詳細を再取得し、
// 一覧取得の取りこぼしだけで終了判定にならないようにする。
func ResolveWithFallback(ctx context.Context, entity string, state SessionState, list ListFunc, detail DetailFunc) (Snapshot, error) {
	id, err := list(ctx, entity)
	if err != nil {
		return Snapshot{}, err
	}

	if id == "" {
		id = state.Slug
		if id == "" {
			return Snapshot{IsLive: false}, nil
		}
	}

	snap, err := detail(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Slug = id
	return snap, nil
}
