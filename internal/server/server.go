// Package server は追跡中のセッション状態を返すステータスAPIを提供する。
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yuu1111/LiveNotifier/internal/logging"
	"github.com/yuu1111/LiveNotifier/internal/tracker"
)

const shutdownTimeout = 5 * time.Second

// APIResponse はAPIの共通レスポンス。
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SessionView はセッション状態のAPI表現。
type SessionView struct {
	Platform    string     `json:"platform"`
	Entity      string     `json:"entity"`
	Live        bool       `json:"live"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	ViewerCount int        `json:"viewer_count,omitempty"`
	MessageID   int        `json:"message_id,omitempty"`
	Slug        string     `json:"slug,omitempty"`
	Title       string     `json:"title,omitempty"`
	DisplayName string     `json:"display_name,omitempty"`
}

func toView(e tracker.Entry) SessionView {
	v := SessionView{
		Platform:    string(e.Key.Platform),
		Entity:      e.Key.Entity,
		Live:        e.State.Live,
		ViewerCount: e.State.ViewerCount,
		MessageID:   e.State.Message.MessageID,
		Slug:        e.State.Slug,
		Title:       e.State.Title,
		DisplayName: e.State.DisplayName,
	}
	if !e.State.StartedAt.IsZero() {
		t := e.State.StartedAt
		v.StartedAt = &t
	}
	return v
}

// Handler はステータスAPIのハンドラ。
type Handler struct {
	store tracker.Store
}

// NewHandler はHandlerを作成する。
func NewHandler(store tracker.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes はルートを登録する。
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/live", h.ListLiveSessions)
	}

	r.GET("/health", h.HealthCheck)
}

// HealthCheck は稼働確認用。
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListSessions は追跡中の全セッションを返す。?platform= で絞り込める。
func (h *Handler) ListSessions(c *gin.Context) {
	h.list(c, false)
}

// ListLiveSessions は配信中のセッションだけを返す。
func (h *Handler) ListLiveSessions(c *gin.Context) {
	h.list(c, true)
}

func (h *Handler) list(c *gin.Context, liveOnly bool) {
	entries, err := h.store.List(c.Request.Context())
	if err != nil {
		l := logging.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("セッション一覧の取得に失敗")
		c.JSON(http.StatusInternalServerError, APIResponse{Success: false, Error: "failed to list sessions"})
		return
	}

	platform := c.Query("platform")
	views := make([]SessionView, 0, len(entries))
	for _, e := range entries {
		if liveOnly && !e.State.Live {
			continue
		}
		if platform != "" && string(e.Key.Platform) != platform {
			continue
		}
		views = append(views, toView(e))
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: views})
}

// NewRouter はミドルウェアとルートを設定したginエンジンを作成する。
func NewRouter(store tracker.Store, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	NewHandler(store).RegisterRoutes(r)
	return r
}

// Run はctxが終わるまでHTTPサーバーを動かし、終了時にシャットダウンする。
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l := logging.Ctx(ctx)
		l.Info().Str("address", addr).Msg("ステータスAPI起動")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("ステータスAPIの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ステータスAPIの停止に失敗: %w", err)
	}
	return nil
}
