// Package idn はIDN Liveの配信状態を取得する。
package idn

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yuu1111/LiveNotifier/internal/platform"
	"github.com/yuu1111/LiveNotifier/internal/tracker"
)

const (
	defaultGraphQLURL = "https://api.idn.app/graphql"
	defaultDetailURL  = "https://www.idn.app/mobile-api/v3/livestream"

	defaultMaxPages = 10
)

const livestreamsQuery = `query GetLivestreams($page: Int, $category: String) {
  getLivestreams(page: $page, category: $category) {
    title
    slug
    status
    creator {
      name
      username
    }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type livestreamsResponse struct {
	Data struct {
		GetLivestreams []struct {
			Slug    string `json:"slug"`
			Title   string `json:"title"`
			Status  string `json:"status"`
			Creator struct {
				Name     string `json:"name"`
				Username string `json:"username"`
			} `json:"creator"`
		} `json:"getLivestreams"`
	} `json:"data"`
}

type detailResponse struct {
	Data struct {
		Status      string `json:"status"`
		Title       string `json:"title"`
		ImageURL    string `json:"image_url"`
		ViewCount   int    `json:"view_count"`
		LiveAt      int64  `json:"live_at"`
		EndAt       int64  `json:"end_at"`
		PlaybackURL string `json:"playback_url"`
		Creator     struct {
			Name     string `json:"name"`
			Username string `json:"username"`
		} `json:"creator"`
	} `json:"data"`
}

// Config はSourceの接続先と一覧取得の設定。
type Config struct {
	GraphQLURL string
	DetailURL  string
	// MaxPages は一覧APIを辿る最大ページ数。
	MaxPages int
	// ListCacheTTL の間は一覧結果を使い回す。1サイクル内の全エンティティで共有される。
	ListCacheTTL time.Duration
}

// Source はIDN Liveのデータソース。エンティティはクリエイターのusername。
type Source struct {
	client *platform.Client
	cfg    Config
	now    func() time.Time

	mu       sync.Mutex
	listed   map[string]string
	listedAt time.Time
}

// New はSourceを作成する。
func New(client *platform.Client, cfg Config) *Source {
	if cfg.GraphQLURL == "" {
		cfg.GraphQLURL = defaultGraphQLURL
	}
	if cfg.DetailURL == "" {
		cfg.DetailURL = defaultDetailURL
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	cfg.DetailURL = strings.TrimRight(cfg.DetailURL, "/")
	return &Source{client: client, cfg: cfg, now: time.Now}
}

// Platform は対象プラットフォームを返す。
func (s *Source) Platform() tracker.Platform {
	return tracker.PlatformIDN
}

// Fetch は一覧からslugを探して詳細を取得する。一覧に見つからない場合は前回のslugで再取得する。
func (s *Source) Fetch(ctx context.Context, username string, prev tracker.SessionState) (tracker.Snapshot, error) {
	return tracker.ResolveWithFallback(ctx, username, prev, s.lookupSlug, s.detail)
}

// lookupSlug は一覧からusernameに一致する配信のslugを返す。
func (s *Source) lookupSlug(ctx context.Context, username string) (string, error) {
	listed, err := s.listLivestreams(ctx)
	if err != nil {
		return "", err
	}
	return listed[username], nil
}

// listLivestreams はusername→slugの一覧を返す。空ページに到達するかMaxPagesで打ち切る。
func (s *Source) listLivestreams(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listed != nil && s.cfg.ListCacheTTL > 0 && s.now().Sub(s.listedAt) < s.cfg.ListCacheTTL {
		return s.listed, nil
	}

	listed := make(map[string]string)
	for page := 1; page <= s.cfg.MaxPages; page++ {
		req := graphQLRequest{
			Query:     livestreamsQuery,
			Variables: map[string]any{"page": page, "category": "all"},
		}
		res, err := platform.PostJSON[livestreamsResponse](ctx, s.client, s.cfg.GraphQLURL, req)
		if err != nil {
			return nil, fmt.Errorf("IDN配信一覧の取得に失敗 (page=%d): %w", page, err)
		}
		if len(res.Data.GetLivestreams) == 0 {
			break
		}
		for _, ls := range res.Data.GetLivestreams {
			if ls.Creator.Username == "" || ls.Slug == "" {
				continue
			}
			if _, seen := listed[ls.Creator.Username]; !seen {
				listed[ls.Creator.Username] = ls.Slug
			}
		}
	}

	s.listed = listed
	s.listedAt = s.now()
	return listed, nil
}

// detail はslugから配信詳細を取得する。
func (s *Source) detail(ctx context.Context, slug string) (tracker.Snapshot, error) {
	res, err := platform.GetJSON[detailResponse](ctx, s.client, s.cfg.DetailURL+"/"+url.PathEscape(slug))
	if err != nil {
		return tracker.Snapshot{}, fmt.Errorf("IDN配信詳細の取得に失敗 (slug=%s): %w", slug, err)
	}

	d := res.Data
	return tracker.Snapshot{
		IsLive:        d.Status == "live",
		Title:         d.Title,
		DisplayName:   d.Creator.Name,
		CoverImageURL: d.ImageURL,
		ViewerCount:   d.ViewCount,
		PlaybackURL:   d.PlaybackURL,
		WebURL:        WebURL(d.Creator.Username, slug),
		StartedAt:     platform.FromUnix(d.LiveAt),
		EndedAt:       platform.FromUnix(d.EndAt),
	}, nil
}

// WebURL はブラウザ視聴用URLを返す。
func WebURL(username, slug string) string {
	return fmt.Sprintf("https://www.idn.app/%s/live/%s", username, slug)
}

// AppURL はIDNアプリを開くディープリンクを返す。
func AppURL(slug string) string {
	return "https://app.idn.media/?link=https://links.idn.media?type%3Dlive%26url%26slug%3D" + slug
}
