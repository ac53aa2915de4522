package tracker

import "time"

// Transition は1回のポーリングで判定された状態遷移。
type Transition int

const (
	NoChange Transition = iota
	WentLive
	WentOffline
)

func (t Transition) String() string {
	switch t {
	case WentLive:
		return "went_live"
	case WentOffline:
		return "went_offline"
	default:
		return "no_change"
	}
}

// Decision はEvaluateの判定結果。
// WentLiveでは新しいセッション、WentOfflineでは終了したセッションの情報をSessionに持つ。
type Decision struct {
	Transition Transition
	Session    SessionState
}

// Evaluate は現在の状態とスナップショットから遷移を判定し、次の状態を返す。
// 副作用はなく、同じ入力には常に同じ結果を返す。
func Evaluate(state SessionState, snap Snapshot, now time.Time) (Decision, SessionState) {
	switch {
	case !state.Live && snap.IsLive:
		startedAt := snap.StartedAt
		if startedAt.IsZero() {
			startedAt = now
		}
		next := SessionState{
			Live:        true,
			StartedAt:   startedAt,
			ViewerCount: snap.ViewerCount,
			Slug:        snap.Slug,
			Title:       snap.Title,
			DisplayName: snap.DisplayName,
		}
		return Decision{Transition: WentLive, Session: next}, next

	case state.Live && !snap.IsLive:
		// 終了後はlive=falseのみ残し、セッション情報は破棄する
		return Decision{Transition: WentOffline, Session: state}, SessionState{}

	default:
		return Decision{Transition: NoChange}, state
	}
}
