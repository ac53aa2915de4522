package history

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuu1111/LiveNotifier/internal/platform"
)

func TestClientRecentShowroomQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/recent", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "showroom", q.Get("type"))
		assert.Equal(t, "jkt48", q.Get("group"))
		assert.Equal(t, "317727", q.Get("room_id"))
		assert.Equal(t, "1", q.Get("perpage"))
		assert.Equal(t, "-1", q.Get("order"))
		_, _ = w.Write([]byte(`{"recents":[{"data_id":"abc","room_id":317727,"live_info":{"date":{"start":"2024-05-01T12:00:00.000Z"}}}]}`))
	}))
	defer srv.Close()

	c := NewClient(platform.NewClient(time.Second), srv.URL+"/api/")
	got, err := c.Recent(context.Background(), RecentQuery{Type: "showroom", Group: "jkt48", RoomID: "317727"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "abc", string(got[0].DataID))
	assert.Equal(t, "317727", string(got[0].RoomID))
}

func TestClientRecentIDNHasNoRoomFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "idn", q.Get("type"))
		assert.False(t, q.Has("room_id"))
		_, _ = w.Write([]byte(`{"recents":[{"data_id":"d1","idn":{"slug":"s-1"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(platform.NewClient(time.Second), srv.URL)
	got, err := c.Recent(context.Background(), RecentQuery{Type: "idn", Group: "jkt48"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s-1", got[0].IDN.Slug)
}

func TestClientDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recent/abc", r.URL.Path)
		_, _ = w.Write([]byte(`{"total_gifts":100,"live_info":{"date":{"start":"2024-05-01T12:00:00.000Z","end":"2024-05-01T13:01:02.000Z"},"viewers":{"num":1200,"active":800},"comments":{"num":3000,"users":150}}}`))
	}))
	defer srv.Close()

	c := NewClient(platform.NewClient(time.Second), srv.URL)
	d, err := c.Detail(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 100, d.TotalGifts)
	assert.Equal(t, 1200, d.LiveInfo.Viewers.Num)
	assert.Equal(t, 150, d.LiveInfo.Comments.Users)
}

func TestClientDetailStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(platform.NewClient(time.Second), srv.URL)
	_, err := c.Detail(context.Background(), "missing")
	var statusErr *platform.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}
