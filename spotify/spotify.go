package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.spotify.com/v1"

// ========================================================== //
// Types

// TrackRef identifies a piece of music for the duration of one
// request/response cycle. Primary artist first in Artists.
type TrackRef struct {
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Album   string   `json:"album"`
	URL     string   `json:"url"`
	ID      string   `json:"id,omitempty"`
}

// PrimaryArtist returns the first credited artist, or "".
func (t TrackRef) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

type TopArtist struct {
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	URL        string   `json:"url"`
	ID         string   `json:"id,omitempty"`
}

type PlayedTrack struct {
	TrackRef
	PlayedAt time.Time `json:"playedAt"`
}

type AudioFeatures struct {
	Tempo            float64 `json:"tempo"`
	Key              int     `json:"key"`
	Mode             int     `json:"mode"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Instrumentalness float64 `json:"instrumentalness"`
	Acousticness     float64 `json:"acousticness"`
	Loudness         float64 `json:"loudness"`
}

type ArtistHit struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image,omitempty"`
}

// Window selects one of the provider's rolling top-item windows.
type Window string

const (
	WindowShort  Window = "short"  // ~4 weeks
	WindowMedium Window = "medium" // ~6 months
	WindowLong   Window = "long"   // several years
)

func (w Window) timeRange() string {
	switch w {
	case WindowShort:
		return "short_term"
	case WindowLong:
		return "long_term"
	default:
		return "medium_term"
	}
}

// ========================================================== //
// Client

// Client wraps the streaming provider's Web API. The bearer token is a
// per-call parameter so one Client instance can safely serve concurrent
// requests for different users.
type Client struct {
	http    *http.Client
	baseURL string
	log     zerolog.Logger
}

func New(log zerolog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: defaultBaseURL,
		log:     log.With().Str("component", "spotify").Logger(),
	}
}

// NewWithBaseURL is used by tests to point the client at a fake server.
func NewWithBaseURL(log zerolog.Logger, baseURL string) *Client {
	c := New(log)
	c.baseURL = baseURL
	return c
}

func (c *Client) get(
	ctx context.Context,
	token string,
	path string,
	query map[string]string,
) ([]byte, int, error) {

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}

	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	return fetchWithRetry(c.http, req, 4)
}

func fetchWithRetry(client *http.Client, req *http.Request, maxRetries int) ([]byte, int, error) {
	var lastErr error
	var status int

	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(backoff(attempt))
			continue
		}

		status = resp.StatusCode
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if status >= 200 && status < 300 {
			return body, status, nil
		}
		if status == 429 {
			time.Sleep(time.Second)
			continue
		}
		if status >= 500 {
			time.Sleep(backoff(attempt))
			continue
		}

		// client / 4xx error
		return body, status, nil
	}

	return nil, status, lastErr
}

func backoff(attempt int) time.Duration {
	base := 20 * time.Millisecond
	f := math.Pow(2, float64(attempt))
	jitter := time.Duration(rand.Intn(200)) * time.Millisecond
	return time.Duration(float64(base)*f) + jitter
}

// ========================================================== //
// Currently playing

type playingResponse struct {
	Item *trackObject `json:"item"`
}

type trackObject struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name string `json:"name"`
	} `json:"album"`
	ExternalURLs map[string]string `json:"external_urls"`
}

func (t *trackObject) toRef() TrackRef {
	ref := TrackRef{
		ID:    t.ID,
		Title: t.Name,
		Album: t.Album.Name,
		URL:   t.ExternalURLs["spotify"],
	}
	for _, a := range t.Artists {
		ref.Artists = append(ref.Artists, a.Name)
	}
	return ref
}

// CurrentlyPlaying returns the active track, or nil when nothing is
// playing or the token was rejected for this call. The caller decides
// whether a rejected token is systemic.
func (c *Client) CurrentlyPlaying(ctx context.Context, token string) (*TrackRef, error) {
	body, status, err := c.get(ctx, token, "/me/player/currently-playing",
		map[string]string{"market": "US"})
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || status == http.StatusUnauthorized {
		return nil, nil
	}
	if status != http.StatusOK {
		c.log.Warn().Int("status", status).Msg("currently-playing lookup failed")
		return nil, nil
	}

	var resp playingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode currently-playing: %w", err)
	}
	if resp.Item == nil {
		return nil, nil
	}

	ref := resp.Item.toRef()
	return &ref, nil
}

// ========================================================== //
// Top tracks / artists

// TopTracks returns the user's top tracks for the given window.
// Never fails hard: upstream errors yield an empty slice.
func (c *Client) TopTracks(ctx context.Context, token string, window Window) []TrackRef {
	body, status, err := c.get(ctx, token, "/me/top/tracks", map[string]string{
		"limit":      "10",
		"time_range": window.timeRange(),
	})
	if err != nil || status != http.StatusOK {
		c.log.Warn().Err(err).Int("status", status).Msg("top tracks unavailable")
		return nil
	}

	var page struct {
		Items []trackObject `json:"items"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		c.log.Warn().Err(err).Msg("decode top tracks")
		return nil
	}

	out := make([]TrackRef, 0, len(page.Items))
	for i := range page.Items {
		out = append(out, page.Items[i].toRef())
	}
	return out
}

// TopArtists returns the user's top artists for the given window.
func (c *Client) TopArtists(ctx context.Context, token string, window Window) []TopArtist {
	body, status, err := c.get(ctx, token, "/me/top/artists", map[string]string{
		"limit":      "10",
		"time_range": window.timeRange(),
	})
	if err != nil || status != http.StatusOK {
		c.log.Warn().Err(err).Int("status", status).Msg("top artists unavailable")
		return nil
	}

	var page struct {
		Items []struct {
			ID           string            `json:"id"`
			Name         string            `json:"name"`
			Genres       []string          `json:"genres"`
			Popularity   int               `json:"popularity"`
			ExternalURLs map[string]string `json:"external_urls"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		c.log.Warn().Err(err).Msg("decode top artists")
		return nil
	}

	out := make([]TopArtist, 0, len(page.Items))
	for _, a := range page.Items {
		out = append(out, TopArtist{
			ID:         a.ID,
			Name:       a.Name,
			Genres:     a.Genres,
			Popularity: a.Popularity,
			URL:        a.ExternalURLs["spotify"],
		})
	}
	return out
}

// ========================================================== //
// Recently played

// RecentlyPlayed returns up to the 20 most recent plays, newest first.
func (c *Client) RecentlyPlayed(ctx context.Context, token string) []PlayedTrack {
	body, status, err := c.get(ctx, token, "/me/player/recently-played",
		map[string]string{"limit": "20"})
	if err != nil || status != http.StatusOK {
		c.log.Warn().Err(err).Int("status", status).Msg("recently played unavailable")
		return nil
	}

	var page struct {
		Items []struct {
			Track    trackObject `json:"track"`
			PlayedAt time.Time   `json:"played_at"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		c.log.Warn().Err(err).Msg("decode recently played")
		return nil
	}

	out := make([]PlayedTrack, 0, len(page.Items))
	for i := range page.Items {
		out = append(out, PlayedTrack{
			TrackRef: page.Items[i].Track.toRef(),
			PlayedAt: page.Items[i].PlayedAt,
		})
	}
	return out
}

// ========================================================== //
// Audio features

// Features returns the provider's numeric descriptors for one track.
func (c *Client) Features(ctx context.Context, token, trackID string) (*AudioFeatures, error) {
	body, status, err := c.get(ctx, token, "/audio-features/"+url.PathEscape(trackID), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("audio-features returned status %d", status)
	}

	var f AudioFeatures
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("decode audio features: %w", err)
	}
	return &f, nil
}

// ========================================================== //
// Artist search (UI search box)

// SearchArtists returns up to limit artist hits for a free-text query.
func (c *Client) SearchArtists(ctx context.Context, token, query string, limit int) ([]ArtistHit, error) {
	if limit <= 0 {
		limit = 5
	}
	body, status, err := c.get(ctx, token, "/search", map[string]string{
		"q":     query,
		"type":  "artist",
		"limit": fmt.Sprint(limit),
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("artist search returned status %d", status)
	}

	var resp struct {
		Artists struct {
			Items []struct {
				ID     string `json:"id"`
				Name   string `json:"name"`
				Images []struct {
					URL string `json:"url"`
				} `json:"images"`
			} `json:"items"`
		} `json:"artists"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode artist search: %w", err)
	}

	out := make([]ArtistHit, 0, len(resp.Artists.Items))
	for _, a := range resp.Artists.Items {
		hit := ArtistHit{ID: a.ID, Name: a.Name}
		if len(a.Images) > 0 {
			hit.ImageURL = a.Images[0].URL
		}
		out = append(out, hit)
	}
	return out, nil
}
