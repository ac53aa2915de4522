package tiktok

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuu1111/LiveNotifier/internal/tracker"
)

func newServer(t *testing.T, status int, hls string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/@jkt48.official/live", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><meta property="al:android:url" content="snssdk1233://live?room_id=7350000000000000001"/></html>`))
	})
	mux.HandleFunc("/@missing/live", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/@redirected/live", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/api/live/detail/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7350000000000000001", r.URL.Query().Get("roomID"))
		assert.Equal(t, "https://www.tiktok.com/", r.Header.Get("Referer"))
		fmt.Fprintf(w, `{"LiveRoomInfo":{"status":%d,"coverUrl":"https://img/cover.jpg","title":"Live bareng",
			"liveUrl":"https://pull/live.flv?x=1","ownerInfo":{"nickname":"JKT48"},"liveRoomStats":{"userCount":8765}}}`, status)
	})
	mux.HandleFunc("/webcast/room/info/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"stream_url":{"hls_pull_url":%q},"create_time":1714564800,"finish_time":1714568400}}`, hls)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newSource(srv *httptest.Server) *Source {
	return New(Config{WebURL: srv.URL, WebcastURL: srv.URL, Timeout: time.Second})
}

func TestFetchLive(t *testing.T) {
	srv := newServer(t, 2, "https://pull/hls.m3u8?token=abc")

	snap, err := newSource(srv).Fetch(context.Background(), "jkt48.official", tracker.SessionState{})
	require.NoError(t, err)

	assert.True(t, snap.IsLive)
	assert.Equal(t, "JKT48", snap.DisplayName)
	assert.Equal(t, "Live bareng", snap.Title)
	assert.Equal(t, 8765, snap.ViewerCount)
	assert.Equal(t, "https://pull/hls.m3u8", snap.PlaybackURL)
	assert.Equal(t, "https://www.tiktok.com/@jkt48.official/live", snap.WebURL)
	assert.Equal(t, int64(1714564800), snap.StartedAt.Unix())
}

func TestFetchFallsBackToLiveURL(t *testing.T) {
	srv := newServer(t, 2, "")

	snap, err := newSource(srv).Fetch(context.Background(), "jkt48.official", tracker.SessionState{})
	require.NoError(t, err)
	assert.Equal(t, "https://pull/live.flv", snap.PlaybackURL)
}

func TestFetchEndedStatus(t *testing.T) {
	srv := newServer(t, statusEnded, "")

	snap, err := newSource(srv).Fetch(context.Background(), "jkt48.official", tracker.SessionState{Live: true})
	require.NoError(t, err)
	assert.False(t, snap.IsLive)
	assert.Equal(t, int64(1714568400), snap.EndedAt.Unix())
}

func TestFetchRoomNotFound(t *testing.T) {
	srv := newServer(t, 2, "")
	src := newSource(srv)

	_, err := src.Fetch(context.Background(), "missing", tracker.SessionState{})
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = src.Fetch(context.Background(), "redirected", tracker.SessionState{})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
