package monitor

import "github.com/yuu1111/LiveNotifier/internal/tracker"

// Kind はエンティティ1件の処理結果の分類。
type Kind int

const (
	// KindOK は正常に処理できた。遷移なしも含む。
	KindOK Kind = iota
	// KindTransient は取得や保存に失敗し、状態を変えずに次回へ持ち越した。
	KindTransient
	// KindFatal は状態は進んだが通知に失敗した。
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome はエンティティ1件を評価した結果。
type Outcome struct {
	Entity     string
	Kind       Kind
	Transition tracker.Transition
	Err        error
}
