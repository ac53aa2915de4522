// Package platform は各配信プラットフォームのクライアントが共有するHTTP処理を提供する。
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultUserAgent は各APIへのリクエストに付与するUser-Agent。
const DefaultUserAgent = "Mozilla/5.0 (Linux; Android 10; SM-A107F) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/89.0.4389.105 Mobile Safari/537.36"

// ErrNotFound は監視対象がプラットフォーム上に見つからないことを表す。
// 配信していない状態と区別できないプラットフォームでは状態変化なしとして扱う。
var ErrNotFound = errors.New("entity not found")

// StatusError は2xx以外のレスポンスを表す。
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, truncate(e.Body, 200))
}

// Client はタイムアウト付きの共通HTTPクライアント。
type Client struct {
	http    *http.Client
	timeout time.Duration
	headers http.Header
}

// Option はClientの設定を変更する。
type Option func(*Client)

// WithHTTPClient は内部で使うhttp.Clientを差し替える。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithHeader は全リクエストに付与するヘッダーを追加する。
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// NewClient はClientを作成する。timeoutが0以下なら15秒。
func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		http:    http.DefaultClient,
		timeout: timeout,
		headers: http.Header{},
	}
	c.headers.Set("User-Agent", DefaultUserAgent)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do はリクエストを実行しステータスコードとボディを返す。
// 2xx以外も呼び出し側で扱えるようにエラーにはしない。
func (c *Client) Do(ctx context.Context, method, url string, body io.Reader, contentType string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("リクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("レスポンスの読み込みに失敗: %w", err)
	}
	return resp.StatusCode, data, nil
}

// GetJSON はGETリクエストを送りJSONレスポンスをTに変換する。
func GetJSON[T any](ctx context.Context, c *Client, url string) (T, error) {
	var zero T
	code, data, err := c.Do(ctx, http.MethodGet, url, nil, "")
	if err != nil {
		return zero, err
	}
	return decode[T](code, data)
}

// PostJSON はJSONボディでPOSTリクエストを送りJSONレスポンスをTに変換する。
func PostJSON[T any](ctx context.Context, c *Client, url string, payload any) (T, error) {
	var zero T
	body, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("リクエストのJSON変換に失敗: %w", err)
	}
	code, data, err := c.Do(ctx, http.MethodPost, url, bytes.NewReader(body), "application/json")
	if err != nil {
		return zero, err
	}
	return decode[T](code, data)
}

func decode[T any](code int, data []byte) (T, error) {
	var out T
	if code < 200 || code >= 300 {
		return out, &StatusError{Code: code, Body: string(data)}
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("レスポンスの解析に失敗: %w", err)
	}
	return out, nil
}

// StripQuery はURLのクエリ文字列を取り除く。
func StripQuery(u string) string {
	base, _, _ := strings.Cut(u, "?")
	return base
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
