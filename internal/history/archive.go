// Package history は終了した配信の統計をアーカイブAPIから取得する。
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/yuu1111/LiveNotifier/internal/platform"
)

const defaultArchiveURL = "https://api.crstlnz.my.id/api"

// flexString は数値と文字列のどちらでも受け付けるJSON値。
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

// RecentQuery はアーカイブ一覧の絞り込み条件。
type RecentQuery struct {
	Type   string // "showroom" | "idn"
	Group  string
	RoomID string // showroomのみ
}

// Recent はアーカイブ一覧の1件。
type Recent struct {
	DataID flexString `json:"data_id"`
	RoomID flexString `json:"room_id"`
	IDN    struct {
		Slug string `json:"slug"`
	} `json:"idn"`
	LiveInfo struct {
		Date struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"date"`
	} `json:"live_info"`
}

type recentResponse struct {
	Recents []Recent `json:"recents"`
}

// Detail はdata_idで取得する配信詳細。
type Detail struct {
	TotalGifts int `json:"total_gifts"`
	LiveInfo   struct {
		Date struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"date"`
		Viewers struct {
			Num    int `json:"num"`
			Active int `json:"active"`
		} `json:"viewers"`
		Comments struct {
			Num   int `json:"num"`
			Users int `json:"users"`
		} `json:"comments"`
	} `json:"live_info"`
}

// Archive はアーカイブAPIの抽象。
type Archive interface {
	Recent(ctx context.Context, q RecentQuery) ([]Recent, error)
	Detail(ctx context.Context, dataID string) (Detail, error)
}

// Client はアーカイブAPIのHTTPクライアント。
type Client struct {
	http    *platform.Client
	baseURL string
}

// NewClient はClientを作成する。baseURLが空なら本番URL。
func NewClient(hc *platform.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultArchiveURL
	}
	return &Client{http: hc, baseURL: strings.TrimRight(baseURL, "/")}
}

// Recent は日付降順の最新アーカイブ一覧を取得する。
func (c *Client) Recent(ctx context.Context, q RecentQuery) ([]Recent, error) {
	params := url.Values{
		"sort":   {"date"},
		"page":   {"1"},
		"filter": {"all"},
		"order":  {"-1"},
		"group":  {q.Group},
		"type":   {q.Type},
	}
	if q.RoomID != "" {
		params.Set("room_id", q.RoomID)
		params.Set("perpage", "1")
		params.Set("search", "")
	}

	res, err := platform.GetJSON[recentResponse](ctx, c.http, c.baseURL+"/recent?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("アーカイブ一覧の取得に失敗: %w", err)
	}
	return res.Recents, nil
}

// Detail はdata_idの配信詳細を取得する。
func (c *Client) Detail(ctx context.Context, dataID string) (Detail, error) {
	d, err := platform.GetJSON[Detail](ctx, c.http, c.baseURL+"/recent/"+url.PathEscape(dataID))
	if err != nil {
		return Detail{}, fmt.Errorf("アーカイブ詳細の取得に失敗 (data_id=%s): %w", dataID, err)
	}
	return d, nil
}
