package helix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func newTokenServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type: %q", r.Form.Get("grant_type"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok123",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestTokenSourceCachesUntilExpiry(t *testing.T) {
	var calls atomic.Int32
	server := newTokenServer(t, &calls)

	ts := &TokenSource{ClientID: "cid", ClientSecret: "secret", TokenURL: server.URL}
	for i := 0; i < 3; i++ {
		token, err := ts.Get(context.Background())
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if token != "tok123" {
			t.Fatalf("token: %q", token)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one token fetch, got %d", calls.Load())
	}
}

func TestTokenSourceRequiresCredentials(t *testing.T) {
	ts := &TokenSource{}
	if _, err := ts.Get(context.Background()); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func videosHandler(t *testing.T, pages [][]map[string]string) http.HandlerFunc {
	page := 0
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos" {
			t.Errorf("path: %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
			t.Errorf("authorization: %q", got)
		}
		if got := r.URL.Query().Get("type"); got != "archive" && r.URL.Query().Get("id") == "" {
			t.Errorf("type: %q", got)
		}

		var data []map[string]string
		cursor := ""
		if page < len(pages) {
			data = pages[page]
			if first, err := strconv.Atoi(r.URL.Query().Get("first")); err == nil && first < len(data) {
				data = data[:first]
			}
			if page < len(pages)-1 {
				cursor = fmt.Sprintf("cursor-%d", page+1)
			}
		}
		page++

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":       data,
			"pagination": map[string]string{"cursor": cursor},
		})
	}
}

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	tokenServer := newTokenServer(t, nil)
	apiServer := httptest.NewServer(handler)
	t.Cleanup(apiServer.Close)
	return &Client{
		Tokens:   &TokenSource{ClientID: "cid", ClientSecret: "secret", TokenURL: tokenServer.URL},
		ClientID: "cid",
		UserID:   "664177022",
		BaseURL:  apiServer.URL,
	}
}

func TestListVideosPaginates(t *testing.T) {
	client := newClient(t, videosHandler(t, [][]map[string]string{
		{
			{"id": "316307569766", "title": "vod one", "created_at": "2026-02-08T10:15:00Z", "duration": "2h10m5s"},
			{"id": "316307569767", "title": "vod two", "created_at": "2026-02-07T10:00:00Z", "duration": "1h3m"},
		},
		{
			{"id": "316307569768", "title": "vod three", "created_at": "2026-02-06T09:00:00Z", "duration": "45m"},
		},
	}))

	videos, err := client.ListVideos(context.Background(), 150)
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(videos) != 3 {
		t.Fatalf("expected 3 videos, got %d", len(videos))
	}
	first := videos[0]
	if first.ID != "316307569766" || first.Title != "vod one" {
		t.Fatalf("first: %+v", first)
	}
	if !first.CreatedAt.Equal(time.Date(2026, 2, 8, 10, 15, 0, 0, time.UTC)) {
		t.Fatalf("created_at: %v", first.CreatedAt)
	}
	if first.Duration != 2*time.Hour+10*time.Minute+5*time.Second {
		t.Fatalf("duration: %v", first.Duration)
	}
}

func TestListVideosStopsAtLimit(t *testing.T) {
	page := make([]map[string]string, 0, 100)
	for i := 0; i < 100; i++ {
		page = append(page, map[string]string{
			"id":         fmt.Sprintf("3163075697%02d", i),
			"title":      "vod",
			"created_at": "2026-02-08T10:15:00Z",
			"duration":   "1h",
		})
	}
	client := newClient(t, videosHandler(t, [][]map[string]string{page, page, page}))

	videos, err := client.ListVideos(context.Background(), 150)
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(videos) != 150 {
		t.Fatalf("expected 150 videos, got %d", len(videos))
	}
}

func TestGetVideoByID(t *testing.T) {
	client := newClient(t, videosHandler(t, [][]map[string]string{
		{{"id": "316307569766", "title": "vod one", "created_at": "2026-02-08T10:15:00Z", "duration": "2h"}},
	}))

	video, err := client.GetVideo(context.Background(), "316307569766")
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if video.Title != "vod one" {
		t.Fatalf("video: %+v", video)
	}
}

func TestListingAdaptsVideosToRecords(t *testing.T) {
	client := newClient(t, videosHandler(t, [][]map[string]string{
		{{"id": "316307569766", "title": "vod one", "created_at": "2026-02-08T10:15:00Z", "duration": "2h"}},
	}))

	records, err := NewListing(client).Recent(context.Background(), 100)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Platform != "twitch" || records[0].Origin != "fetched" {
		t.Fatalf("record: %+v", records[0])
	}
	if records[0].Duration != 2*time.Hour {
		t.Fatalf("duration: %v", records[0].Duration)
	}
}
