// Package twitchapi contains minimal helpers to interact with Twitch Helix APIs
// for user id resolution and listing archived VODs, using an app access token.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultBaseURL  = "https://api.twitch.tv/helix"
	defaultTokenURL = "https://id.twitch.tv/oauth2/token"
)

// HelixClient provides minimal methods needed for VOD discovery.
type HelixClient struct {
	// AppTokens yields app access (client credentials) tokens.
	// NOTE: these tokens CANNOT be used for IRC chat; chat requires a user
	// (bot) OAuth token with chat:read/chat:edit scopes.
	AppTokens  oauth2.TokenSource
	ClientID   string
	BaseURL    string
	HTTPClient *http.Client
}

// NewHelixClient builds a client with a cached client-credentials token source.
func NewHelixClient(clientID, clientSecret string) *HelixClient {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     defaultTokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return &HelixClient{
		AppTokens: cfg.TokenSource(context.Background()),
		ClientID:  clientID,
	}
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return defaultBaseURL
}

func (hc *HelixClient) do(ctx context.Context, path string, query map[string]string, out any) error {
	tok, err := hc.AppTokens.Token()
	if err != nil {
		return fmt.Errorf("twitch app token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+path, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("helix %s failed: %s: %s", path, resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetUserID resolves a login name to its user ID.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	if login == "" {
		return "", fmt.Errorf("login empty")
	}
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := hc.do(ctx, "/users", map[string]string{"login": login}, &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("user not found")
	}
	return body.Data[0].ID, nil
}

// VideoMeta describes an archive video as reported by Helix.
type VideoMeta struct{ ID, Title, Duration, CreatedAt string }

// ListVideos lists archive videos for a user.
func (hc *HelixClient) ListVideos(ctx context.Context, userID, after string, first int) ([]VideoMeta, string, error) {
	if userID == "" {
		return nil, "", fmt.Errorf("userID empty")
	}
	if first <= 0 {
		first = 20
	}
	query := map[string]string{
		"user_id": userID,
		"type":    "archive",
		"first":   fmt.Sprintf("%d", first),
	}
	if after != "" {
		query["after"] = after
	}
	var body struct {
		Data []struct {
			ID, Title, Duration string
			CreatedAt           string `json:"created_at"`
		} `json:"data"`
		Pagination struct {
			Cursor string `json:"cursor"`
		} `json:"pagination"`
	}
	if err := hc.do(ctx, "/videos", query, &body); err != nil {
		return nil, "", err
	}
	out := make([]VideoMeta, 0, len(body.Data))
	for _, v := range body.Data {
		out = append(out, VideoMeta{ID: v.ID, Title: v.Title, Duration: v.Duration, CreatedAt: v.CreatedAt})
	}
	return out, body.Pagination.Cursor, nil
}

// GetVideo fetches a single video by id.
func (hc *HelixClient) GetVideo(ctx context.Context, videoID string) (VideoMeta, error) {
	if videoID == "" {
		return VideoMeta{}, fmt.Errorf("videoID empty")
	}
	var body struct {
		Data []struct {
			ID, Title, Duration string
			CreatedAt           string `json:"created_at"`
		} `json:"data"`
	}
	if err := hc.do(ctx, "/videos", map[string]string{"id": videoID}, &body); err != nil {
		return VideoMeta{}, err
	}
	if len(body.Data) == 0 {
		return VideoMeta{}, fmt.Errorf("video not found")
	}
	v := body.Data[0]
	return VideoMeta{ID: v.ID, Title: v.Title, Duration: v.Duration, CreatedAt: v.CreatedAt}, nil
}

// ParseTwitchDuration converts a Helix duration string (e.g. "3h20m15s") to seconds.
func ParseTwitchDuration(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("duration empty")
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse twitch duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative twitch duration %q", s)
	}
	return int(d.Seconds()), nil
}
