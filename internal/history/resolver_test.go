package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuu1111/LiveNotifier/internal/tracker"
)

type fakeArchive struct {
	// recents は呼び出し回数ごとの一覧。末尾を超えたら最後の要素を返し続ける。
	recents   [][]Recent
	recentErr error
	details   map[string]Detail
	calls     int
	queries   []RecentQuery
}

func (f *fakeArchive) Recent(_ context.Context, q RecentQuery) ([]Recent, error) {
	f.calls++
	f.queries = append(f.queries, q)
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	if len(f.recents) == 0 {
		return nil, nil
	}
	i := f.calls - 1
	if i >= len(f.recents) {
		i = len(f.recents) - 1
	}
	return f.recents[i], nil
}

func (f *fakeArchive) Detail(_ context.Context, dataID string) (Detail, error) {
	d, ok := f.details[dataID]
	if !ok {
		return Detail{}, errors.New("not found")
	}
	return d, nil
}

func showroomRecent(dataID, roomID, start string) Recent {
	var r Recent
	r.DataID = flexString(dataID)
	r.RoomID = flexString(roomID)
	r.LiveInfo.Date.Start = start
	return r
}

func idnRecent(dataID, slug string) Recent {
	var r Recent
	r.DataID = flexString(dataID)
	r.IDN.Slug = slug
	return r
}

func detail(start, end string, gifts int) Detail {
	var d Detail
	d.TotalGifts = gifts
	d.LiveInfo.Date.Start = start
	d.LiveInfo.Date.End = end
	d.LiveInfo.Viewers.Num = 1200
	d.LiveInfo.Viewers.Active = 800
	d.LiveInfo.Comments.Num = 3000
	d.LiveInfo.Comments.Users = 150
	return d
}

var fastPolicy = Policy{Interval: time.Millisecond, MaxAttempts: 3}

func TestResolveShowroomMatchesByStartSecond(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	archive := &fakeArchive{
		recents: [][]Recent{{
			showroomRecent("old", "317727", "2024-04-30T12:00:00.000Z"),
			showroomRecent("new", "317727", "2024-05-01T12:00:00.400Z"),
		}},
		details: map[string]Detail{
			"new": detail("2024-05-01T12:00:00.000Z", "2024-05-01T13:01:02.000Z", 100),
		},
	}
	r := NewResolver(archive, fastPolicy, "")

	got, err := r.Resolve(context.Background(), Request{Platform: tracker.PlatformShowroom, Entity: "317727", StartedAt: started})
	require.NoError(t, err)
	assert.False(t, got.Approximate)
	assert.Equal(t, time.Hour+time.Minute+2*time.Second, got.Duration)
	assert.Equal(t, 1200, got.Viewers)
	assert.Equal(t, 800, got.ActiveViewers)
	assert.Equal(t, 3000, got.Comments)
	assert.Equal(t, 150, got.Commenters)
	assert.Equal(t, int64(100*105), got.CurrencyValue)
	assert.Equal(t, "317727", archive.queries[0].RoomID)
	assert.Equal(t, "jkt48", archive.queries[0].Group)
}

func TestResolveIDNMatchesBySlugAfterRetry(t *testing.T) {
	archive := &fakeArchive{
		recents: [][]Recent{
			{idnRecent("x", "other-slug")},
			{idnRecent("x", "other-slug"), idnRecent("y", "my-slug")},
		},
		details: map[string]Detail{
			"y": detail("2024-05-01T12:00:00.000Z", "2024-05-01T12:30:00.000Z", 100),
		},
	}
	r := NewResolver(archive, fastPolicy, "jkt48")

	got, err := r.Resolve(context.Background(), Request{Platform: tracker.PlatformIDN, Entity: "jkt48_x", Slug: "my-slug"})
	require.NoError(t, err)
	assert.Equal(t, 2, archive.calls)
	assert.Equal(t, int64(250000), got.CurrencyValue)
	assert.Equal(t, 30*time.Minute, got.Duration)
	assert.Empty(t, archive.queries[0].RoomID)
}

func TestResolveGivesUpAfterMaxAttempts(t *testing.T) {
	archive := &fakeArchive{recents: [][]Recent{{idnRecent("x", "other")}}}
	r := NewResolver(archive, fastPolicy, "")

	_, err := r.Resolve(context.Background(), Request{Platform: tracker.PlatformIDN, Slug: "mine"})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, ErrNotIndexed)
	assert.Equal(t, fastPolicy.MaxAttempts, archive.calls)
}

func TestResolveRetriesArchiveErrors(t *testing.T) {
	archive := &fakeArchive{recentErr: errors.New("connection refused")}
	r := NewResolver(archive, fastPolicy, "")

	_, err := r.Resolve(context.Background(), Request{Platform: tracker.PlatformIDN, Slug: "mine"})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, fastPolicy.MaxAttempts, archive.calls)
}

func TestResolveStopsOnContextCancel(t *testing.T) {
	archive := &fakeArchive{recents: [][]Recent{{}}}
	r := NewResolver(archive, Policy{Interval: time.Hour, MaxAttempts: 10}, "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Resolve(ctx, Request{Platform: tracker.PlatformIDN, Slug: "mine"})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestResolveUnsupportedPlatform(t *testing.T) {
	archive := &fakeArchive{}
	r := NewResolver(archive, fastPolicy, "")

	_, err := r.Resolve(context.Background(), Request{Platform: tracker.PlatformTikTok, Entity: "someone"})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, archive.calls)
}

func TestResolveDetailFailure(t *testing.T) {
	archive := &fakeArchive{recents: [][]Recent{{idnRecent("gone", "mine")}}}
	r := NewResolver(archive, fastPolicy, "")

	_, err := r.Resolve(context.Background(), Request{Platform: tracker.PlatformIDN, Slug: "mine"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCurrencyValue(t *testing.T) {
	assert.Equal(t, int64(250000), CurrencyValue(tracker.PlatformIDN, 100))
	assert.Equal(t, int64(10500), CurrencyValue(tracker.PlatformShowroom, 100))
	assert.Zero(t, CurrencyValue(tracker.PlatformTikTok, 100))
}

func TestApproximate(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := started.Add(95 * time.Minute)

	t.Run("終了時刻がなければnow", func(t *testing.T) {
		got := Approximate(tracker.SessionState{Live: true, StartedAt: started, ViewerCount: 40}, tracker.Snapshot{}, now)
		assert.True(t, got.Approximate)
		assert.Equal(t, 95*time.Minute, got.Duration)
		assert.Equal(t, 40, got.Viewers)
		assert.Equal(t, now, got.EndedAt)
		assert.Zero(t, got.CurrencyValue)
	})

	t.Run("スナップショットの終了時刻と視聴者数を優先", func(t *testing.T) {
		ended := started.Add(time.Hour)
		got := Approximate(tracker.SessionState{Live: true, StartedAt: started, ViewerCount: 40}, tracker.Snapshot{EndedAt: ended, ViewerCount: 90}, now)
		assert.Equal(t, time.Hour, got.Duration)
		assert.Equal(t, 90, got.Viewers)
	})

	t.Run("経過時間ゼロ", func(t *testing.T) {
		got := Approximate(tracker.SessionState{Live: true, StartedAt: started}, tracker.Snapshot{}, started)
		assert.Equal(t, time.Duration(0), got.Duration)
		assert.True(t, got.Approximate)
	})

	t.Run("時計の逆行は0に丸める", func(t *testing.T) {
		got := Approximate(tracker.SessionState{Live: true, StartedAt: now}, tracker.Snapshot{}, started)
		assert.Equal(t, time.Duration(0), got.Duration)
	})
}

func TestFlexString(t *testing.T) {
	var r Recent
	require.NoError(t, r.RoomID.UnmarshalJSON([]byte(`317727`)))
	assert.Equal(t, "317727", string(r.RoomID))
	require.NoError(t, r.RoomID.UnmarshalJSON([]byte(`"abc"`)))
	assert.Equal(t, "abc", string(r.RoomID))
	require.NoError(t, r.RoomID.UnmarshalJSON([]byte(`null`)))
	assert.Empty(t, string(r.RoomID))
}
