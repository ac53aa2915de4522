package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/yuu1111/LiveNotifier/internal/logging"
	"github.com/yuu1111/LiveNotifier/internal/platform"
	"github.com/yuu1111/LiveNotifier/internal/tracker"
)

var (
	// ErrUnavailable はアーカイブから統計を得られなかったことを表す。呼び出し側は概算にフォールバックする。
	ErrUnavailable = errors.New("history unavailable")

	// ErrNotIndexed はアーカイブにまだセッションが登録されていないことを表す。
	ErrNotIndexed = errors.New("session not indexed yet")
)

// ギフト1個あたりのルピア換算値
const (
	ShowroomGiftRate int64 = 105
	IDNGiftRate      int64 = 2500
)

// Summary は終了したセッションの統計。
type Summary struct {
	StartedAt     time.Time
	EndedAt       time.Time
	Duration      time.Duration
	Viewers       int
	ActiveViewers int
	Gifts         int
	Comments      int
	Commenters    int
	CurrencyValue int64
	// Approximate はアーカイブを使わずローカルの記録から概算したことを示す。
	// この場合ギフトとコメントの値は持たない。
	Approximate bool
}

// Request は統計を解決する対象セッション。
type Request struct {
	Platform  tracker.Platform
	Entity    string
	Slug      string
	StartedAt time.Time
}

// Policy はアーカイブ登録待ちの再試行方針。
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
}

// Resolver はアーカイブを照会してSummaryを作る。
type Resolver struct {
	archive Archive
	policy  Policy
	group   string
}

// NewResolver はResolverを作成する。
func NewResolver(archive Archive, policy Policy, group string) *Resolver {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if group == "" {
		group = "jkt48"
	}
	return &Resolver{archive: archive, policy: policy, group: group}
}

// Supports はプラットフォームがアーカイブ照会に対応しているか返す。
func Supports(p tracker.Platform) bool {
	return p == tracker.PlatformShowroom || p == tracker.PlatformIDN
}

// Resolve はセッションに一致するアーカイブを探して統計を返す。
// 見つからない間はPolicyに従って待機・再試行し、上限に達したらErrUnavailableを返す。
func (r *Resolver) Resolve(ctx context.Context, req Request) (Summary, error) {
	if !Supports(req.Platform) {
		return Summary{}, fmt.Errorf("%s: %w", req.Platform, ErrUnavailable)
	}

	dataID, err := r.findDataID(ctx, req)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	detail, err := r.archive.Detail(ctx, dataID)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	summary, err := summarize(req.Platform, detail)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return summary, nil
}

func (r *Resolver) findDataID(ctx context.Context, req Request) (string, error) {
	q := RecentQuery{Type: string(req.Platform), Group: r.group}
	if req.Platform == tracker.PlatformShowroom {
		q.RoomID = req.Entity
	}

	var dataID string
	attempt := 0
	op := func() error {
		attempt++
		recents, err := r.archive.Recent(ctx, q)
		if err != nil {
			return err
		}
		for _, rc := range recents {
			if matches(req, rc) {
				dataID = string(rc.DataID)
				return nil
			}
		}
		return ErrNotIndexed
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.policy.Interval), uint64(r.policy.MaxAttempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		l := logging.Ctx(ctx)
		l.Debug().Err(err).
			Int(logging.FieldAttempt, attempt).
			Dur("wait", wait).
			Str(logging.FieldEntity, req.Entity).
			Msg("アーカイブ未登録のため再試行")
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return "", err
	}
	if dataID == "" {
		return "", ErrNotIndexed
	}
	return dataID, nil
}

// matches はアーカイブの1件がセッションに一致するか判定する。
// SHOWROOMは同じルームの複数セッションを開始時刻(WIB秒精度)で区別する。
func matches(req Request, rc Recent) bool {
	switch req.Platform {
	case tracker.PlatformShowroom:
		if string(rc.RoomID) != req.Entity {
			return false
		}
		start, err := parseArchiveTime(rc.LiveInfo.Date.Start)
		if err != nil {
			return false
		}
		return platform.SecondKey(start) == platform.SecondKey(req.StartedAt)
	case tracker.PlatformIDN:
		return req.Slug != "" && rc.IDN.Slug == req.Slug
	default:
		return false
	}
}

func summarize(p tracker.Platform, d Detail) (Summary, error) {
	start, err := parseArchiveTime(d.LiveInfo.Date.Start)
	if err != nil {
		return Summary{}, fmt.Errorf("開始時刻の解析に失敗: %w", err)
	}
	end, err := parseArchiveTime(d.LiveInfo.Date.End)
	if err != nil {
		return Summary{}, fmt.Errorf("終了時刻の解析に失敗: %w", err)
	}

	duration := end.Sub(start)
	if duration < 0 {
		duration = 0
	}

	return Summary{
		StartedAt:     start,
		EndedAt:       end,
		Duration:      duration,
		Viewers:       d.LiveInfo.Viewers.Num,
		ActiveViewers: d.LiveInfo.Viewers.Active,
		Gifts:         d.TotalGifts,
		Comments:      d.LiveInfo.Comments.Num,
		Commenters:    d.LiveInfo.Comments.Users,
		CurrencyValue: CurrencyValue(p, d.TotalGifts),
	}, nil
}

// CurrencyValue はギフト数をプラットフォーム固定レートでルピアに換算する。
func CurrencyValue(p tracker.Platform, gifts int) int64 {
	switch p {
	case tracker.PlatformShowroom:
		return int64(gifts) * ShowroomGiftRate
	case tracker.PlatformIDN:
		return int64(gifts) * IDNGiftRate
	default:
		return 0
	}
}

func parseArchiveTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Approximate はアーカイブを使わずに概算のSummaryを作る。
// 終了時刻はスナップショットが持っていればそれを、なければnowを使う。
// 視聴者数は終了時スナップショットの値を優先し、なければセッション開始時の値。
func Approximate(session tracker.SessionState, snap tracker.Snapshot, now time.Time) Summary {
	ended := now
	if !snap.EndedAt.IsZero() {
		ended = snap.EndedAt
	}

	started := session.StartedAt
	if started.IsZero() {
		started = ended
	}

	duration := ended.Sub(started)
	if duration < 0 {
		duration = 0
	}

	viewers := session.ViewerCount
	if snap.ViewerCount > 0 {
		viewers = snap.ViewerCount
	}

	return Summary{
		StartedAt:   started,
		EndedAt:     ended,
		Duration:    duration,
		Viewers:     viewers,
		Approximate: true,
	}
}
