// Package showroom はSHOWROOMのルーム状態を取得する。
package showroom

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/yuu1111/LiveNotifier/internal/logging"
	"github.com/yuu1111/LiveNotifier/internal/platform"
	"github.com/yuu1111/LiveNotifier/internal/tracker"
)

const (
	defaultBaseURL = "https://www.showroom-live.com"

	// officialRoomKey は公式ルームのroom_url_key。メンバー名の分解対象外。
	officialRoomKey  = "officialJKT48"
	officialRoomName = "JKT48 Official SHOWROOM"
)

// profile は /api/room/profile のレスポンス。
type profile struct {
	RoomURLKey           string `json:"room_url_key"`
	IsOnlive             bool   `json:"is_onlive"`
	Image                string `json:"image"`
	CurrentLiveStartedAt int64  `json:"current_live_started_at"`
	ShareURLLive         string `json:"share_url_live"`
	PremiumRoomType      int    `json:"premium_room_type"`
	ViewNum              int    `json:"view_num"`
}

type streamingURLs struct {
	List []struct {
		Type  string `json:"type"`
		Label string `json:"label"`
		URL   string `json:"url"`
	} `json:"streaming_url_list"`
}

// Source はSHOWROOMのデータソース。エンティティはroom_id。
type Source struct {
	client  *platform.Client
	baseURL string
}

// New はSourceを作成する。baseURLが空なら本番URL。
func New(client *platform.Client, baseURL string) *Source {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Source{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Platform は対象プラットフォームを返す。
func (s *Source) Platform() tracker.Platform {
	return tracker.PlatformShowroom
}

// Fetch はルームのプロフィールからスナップショットを作る。
// 配信開始を検知するポーリングでのみストリーミングURLを追加取得する。
func (s *Source) Fetch(ctx context.Context, roomID string, prev tracker.SessionState) (tracker.Snapshot, error) {
	endpoint := s.baseURL + "/api/room/profile?room_id=" + url.QueryEscape(roomID)
	p, err := platform.GetJSON[profile](ctx, s.client, endpoint)
	if err != nil {
		return tracker.Snapshot{}, fmt.Errorf("SHOWROOMプロフィール取得に失敗 (room_id=%s): %w", roomID, err)
	}

	snap := tracker.Snapshot{
		IsLive:        p.IsOnlive,
		DisplayName:   DisplayName(p.RoomURLKey),
		CoverImageURL: p.Image,
		ViewerCount:   p.ViewNum,
		WebURL:        platform.StripQuery(p.ShareURLLive),
		Premium:       p.PremiumRoomType == 1,
	}
	if p.IsOnlive {
		snap.StartedAt = platform.FromUnix(p.CurrentLiveStartedAt)
	}

	if p.IsOnlive && !prev.Live && !snap.Premium {
		streamURL, err := s.streamingURL(ctx, roomID)
		if err != nil {
			l := logging.Ctx(ctx)
			l.Warn().Err(err).Str(logging.FieldEntity, roomID).Msg("ストリーミングURL取得失敗")
		}
		snap.PlaybackURL = streamURL
	}

	return snap, nil
}

// streamingURL はHLSのoriginal quality URLを返す。見つからなければ空文字列。
func (s *Source) streamingURL(ctx context.Context, roomID string) (string, error) {
	endpoint := s.baseURL + "/api/live/streaming_url?room_id=" + url.QueryEscape(roomID)
	res, err := platform.GetJSON[streamingURLs](ctx, s.client, endpoint)
	if err != nil {
		return "", err
	}
	for _, st := range res.List {
		if st.Type == "hls" && st.Label == "original quality" {
			return st.URL, nil
		}
	}
	return "", nil
}

// DisplayName はroom_url_keyから表示名を作る。"JKT48_Freya" は "Freya JKT48" になる。
func DisplayName(roomURLKey string) string {
	if roomURLKey == officialRoomKey {
		return officialRoomName
	}
	parts := strings.Split(roomURLKey, "_")
	if len(parts) < 2 {
		return roomURLKey
	}
	return parts[1] + " " + parts[0]
}

// IsOfficial は公式ルームかどうかを返す。
func IsOfficial(displayName string) bool {
	return displayName == officialRoomName
}
