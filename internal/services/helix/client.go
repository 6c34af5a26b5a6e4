package helix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"vigil/internal/platform"
	"vigil/internal/registry"
	"vigil/internal/services"
)

const pageSize = 100

// Video is one archive VOD as Helix reports it.
type Video struct {
	ID        string
	Title     string
	CreatedAt time.Time
	Duration  time.Duration
}

// Client lists a channel's archive VODs.
type Client struct {
	Tokens     *TokenSource
	ClientID   string
	UserID     string
	HTTPClient *http.Client
	BaseURL    string
	Timeout    time.Duration
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "https://api.twitch.tv/helix"
}

// ListVideos paginates through the channel's archive VODs, newest first, up
// to limit entries.
func (c *Client) ListVideos(ctx context.Context, limit int) ([]Video, error) {
	if c.UserID == "" {
		return nil, errors.New("twitch user id required")
	}
	if limit <= 0 {
		limit = pageSize
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var videos []Video
	cursor := ""
	for len(videos) < limit {
		batch := min(pageSize, limit-len(videos))
		page, next, err := c.videosPage(ctx, batch, cursor)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		videos = append(videos, page...)
		if next == "" {
			break
		}
		cursor = next
	}
	return videos, nil
}

// GetVideo fetches a single VOD by id.
func (c *Client) GetVideo(ctx context.Context, id string) (Video, error) {
	if id == "" {
		return Video{}, errors.New("video id required")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	videos, err := c.get(ctx, map[string]string{"id": id})
	if err != nil {
		return Video{}, err
	}
	if len(videos) == 0 {
		return Video{}, services.Wrap(services.ErrNotFound, "helix", "get_video",
			fmt.Sprintf("vod %s not found", id), nil)
	}
	return videos[0], nil
}

func (c *Client) videosPage(ctx context.Context, first int, after string) ([]Video, string, error) {
	params := map[string]string{
		"user_id": c.UserID,
		"type":    "archive",
		"first":   fmt.Sprintf("%d", first),
	}
	if after != "" {
		params["after"] = after
	}
	return c.getPage(ctx, params)
}

func (c *Client) get(ctx context.Context, params map[string]string) ([]Video, error) {
	videos, _, err := c.getPage(ctx, params)
	return videos, err
}

func (c *Client) getPage(ctx context.Context, params map[string]string) ([]Video, string, error) {
	token, err := c.Tokens.Get(ctx)
	if err != nil {
		return nil, "", services.Wrap(services.ErrExternalTool, "helix", "auth", "twitch auth failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/videos", nil)
	if err != nil {
		return nil, "", err
	}
	q := req.URL.Query()
	for key, value := range params {
		q.Set(key, value)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", c.ClientID)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http().Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, "", services.Wrap(services.ErrTimeout, "helix", "videos", "twitch api timed out", err)
		}
		return nil, "", services.Wrap(services.ErrExternalTool, "helix", "videos", "twitch api request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", services.Wrap(services.ErrExternalTool, "helix", "videos",
			fmt.Sprintf("twitch api returned %s", resp.Status), nil)
	}

	var body struct {
		Data []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			CreatedAt string `json:"created_at"`
			Duration  string `json:"duration"`
		} `json:"data"`
		Pagination struct {
			Cursor string `json:"cursor"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", services.Wrap(services.ErrExternalTool, "helix", "videos", "decoding twitch response", err)
	}

	videos := make([]Video, 0, len(body.Data))
	for _, v := range body.Data {
		created, err := time.Parse(time.RFC3339, v.CreatedAt)
		if err != nil {
			continue
		}
		videos = append(videos, Video{
			ID:        v.ID,
			Title:     v.Title,
			CreatedAt: created.UTC(),
			Duration:  parseHelixDuration(v.Duration),
		})
	}
	return videos, body.Pagination.Cursor, nil
}

// parseHelixDuration reads the "3h8m33s" form Helix uses. Unparseable
// values degrade to zero.
func parseHelixDuration(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}

// Listing adapts the client to the registry refresh interface.
type Listing struct {
	client *Client
}

// NewListing builds a registry listing source over a Helix client.
func NewListing(client *Client) *Listing {
	return &Listing{client: client}
}

// Recent implements registry.Listing.
func (l *Listing) Recent(ctx context.Context, limit int) ([]registry.Record, error) {
	videos, err := l.client.ListVideos(ctx, limit)
	if err != nil {
		return nil, err
	}
	records := make([]registry.Record, 0, len(videos))
	for _, v := range videos {
		records = append(records, registry.Record{
			Platform:  platform.Twitch,
			ID:        v.ID,
			Title:     v.Title,
			StartTime: v.CreatedAt,
			Duration:  v.Duration,
			Origin:    registry.OriginFetched,
		})
	}
	return records, nil
}

var _ registry.Listing = (*Listing)(nil)
