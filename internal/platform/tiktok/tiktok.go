// Package tiktok はTikTok LIVEの配信状態を取得する。
package tiktok

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/yuu1111/LiveNotifier/internal/platform"
	"github.com/yuu1111/LiveNotifier/internal/tracker"
)

// ErrRoomNotFound はライブページからroom_idを取得できない場合のエラー。
var ErrRoomNotFound = fmt.Errorf("tiktok room_id: %w", platform.ErrNotFound)

// statusEnded はLiveRoomInfo.statusの配信終了値。
const statusEnded = 4

var roomIDPattern = regexp.MustCompile(`room_id=(.*?)"/>`)

type detailResponse struct {
	LiveRoomInfo struct {
		Status    int    `json:"status"`
		CoverURL  string `json:"coverUrl"`
		Title     string `json:"title"`
		LiveURL   string `json:"liveUrl"`
		OwnerInfo struct {
			Nickname string `json:"nickname"`
		} `json:"ownerInfo"`
		LiveRoomStats struct {
			UserCount int `json:"userCount"`
		} `json:"liveRoomStats"`
	} `json:"LiveRoomInfo"`
}

type roomInfoResponse struct {
	Data struct {
		StreamURL struct {
			HLSPullURL string `json:"hls_pull_url"`
		} `json:"stream_url"`
		CreateTime int64 `json:"create_time"`
		FinishTime int64 `json:"finish_time"`
	} `json:"data"`
}

// Config はSourceの接続先。空なら本番URL。
type Config struct {
	WebURL     string
	WebcastURL string
	Timeout    time.Duration
}

// Source はTikTok LIVEのデータソース。エンティティはTikTokのユーザー名。
type Source struct {
	client     *platform.Client
	page       *platform.Client
	webURL     string
	webcastURL string
}

// New はSourceを作成する。ライブページ取得ではリダイレクトを追わない。
func New(cfg Config) *Source {
	if cfg.WebURL == "" {
		cfg.WebURL = "https://www.tiktok.com"
	}
	if cfg.WebcastURL == "" {
		cfg.WebcastURL = "https://webcast.tiktok.com"
	}

	noRedirect := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	referer := platform.WithHeader("Referer", "https://www.tiktok.com/")

	return &Source{
		client:     platform.NewClient(cfg.Timeout, referer),
		page:       platform.NewClient(cfg.Timeout, referer, platform.WithHTTPClient(noRedirect)),
		webURL:     strings.TrimRight(cfg.WebURL, "/"),
		webcastURL: strings.TrimRight(cfg.WebcastURL, "/"),
	}
}

// Platform は対象プラットフォームを返す。
func (s *Source) Platform() tracker.Platform {
	return tracker.PlatformTikTok
}

// Fetch はroom_idを解決し、ライブ詳細とルーム情報からスナップショットを作る。
func (s *Source) Fetch(ctx context.Context, username string, _ tracker.SessionState) (tracker.Snapshot, error) {
	roomID, err := s.roomID(ctx, username)
	if err != nil {
		return tracker.Snapshot{}, err
	}

	detail, err := platform.GetJSON[detailResponse](ctx, s.client,
		s.webURL+"/api/live/detail/?aid=1988&roomID="+url.QueryEscape(roomID))
	if err != nil {
		return tracker.Snapshot{}, fmt.Errorf("TikTokライブ詳細の取得に失敗 (@%s): %w", username, err)
	}

	info, err := platform.GetJSON[roomInfoResponse](ctx, s.client,
		s.webcastURL+"/webcast/room/info/?aid=1988&room_id="+url.QueryEscape(roomID))
	if err != nil {
		return tracker.Snapshot{}, fmt.Errorf("TikTokルーム情報の取得に失敗 (@%s): %w", username, err)
	}

	room := detail.LiveRoomInfo
	playback := platform.StripQuery(info.Data.StreamURL.HLSPullURL)
	if playback == "" {
		playback = platform.StripQuery(room.LiveURL)
	}

	return tracker.Snapshot{
		IsLive:        room.Status != statusEnded,
		Title:         room.Title,
		DisplayName:   room.OwnerInfo.Nickname,
		CoverImageURL: room.CoverURL,
		ViewerCount:   room.LiveRoomStats.UserCount,
		PlaybackURL:   playback,
		WebURL:        LiveURL(username),
		StartedAt:     platform.FromUnix(info.Data.CreateTime),
		EndedAt:       platform.FromUnix(info.Data.FinishTime),
	}, nil
}

// roomID はライブページのHTMLからroom_idを抜き出す。
func (s *Source) roomID(ctx context.Context, username string) (string, error) {
	code, body, err := s.page.Do(ctx, http.MethodGet, LiveURLAt(s.webURL, username), nil, "")
	if err != nil {
		return "", fmt.Errorf("TikTokライブページの取得に失敗 (@%s): %w", username, err)
	}
	if code == http.StatusNotFound {
		return "", fmt.Errorf("@%s: %w", username, ErrRoomNotFound)
	}

	m := roomIDPattern.FindSubmatch(body)
	if m == nil || len(m[1]) == 0 {
		return "", fmt.Errorf("@%s: %w", username, ErrRoomNotFound)
	}
	return string(m[1]), nil
}

// LiveURL はユーザーのライブページURLを返す。
func LiveURL(username string) string {
	return LiveURLAt("https://www.tiktok.com", username)
}

// LiveURLAt はbase配下のライブページURLを返す。
func LiveURLAt(base, username string) string {
	return base + "/@" + url.PathEscape(username) + "/live"
}
