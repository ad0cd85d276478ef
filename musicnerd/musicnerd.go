// Package musicnerd wraps the MusicNerd directory service, which maps
// artists to hand-curated social, web3 and storefront identifiers.
package musicnerd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"encoding/json"

	"github.com/rs/zerolog"
)

// ErrNotFound means the directory has no record for the artist.
// A 404 from the service is an expected condition, not a fault.
var ErrNotFound = errors.New("musicnerd: artist not found")

type Client struct {
	http    *http.Client
	baseURL string
	log     zerolog.Logger
}

func NewClient(log zerolog.Logger, baseURL string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		log:     log.With().Str("component", "musicnerd").Logger(),
	}
}

// Record is a directory entry. All fields are optional; empty means
// the directory does not track that identifier for the artist.
type Record struct {
	Name          string   `json:"name"`
	TwitterHandle string   `json:"twitterHandle"`
	EthAddress    string   `json:"ethAddress"`
	Bandcamp      string   `json:"bandcamp"`
	SoundXYZ      string   `json:"soundxyz"`
	Catalog       string   `json:"catalog"`
	Beatport      string   `json:"beatport"`
	OfficialStore string   `json:"officialStore"`
	MerchLinks    []string `json:"merchLinks"`
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("musicnerd status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// lookup wraps post with the shared error policy: 404 is ErrNotFound
// (debug), anything else is logged at warn and degraded to ErrNotFound
// so a directory outage never aborts an aggregation.
func (c *Client) lookup(ctx context.Context, path string, payload interface{}, out interface{}) error {
	err := c.post(ctx, path, payload, out)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		c.log.Debug().Str("path", path).Msg("no directory record")
		return ErrNotFound
	}
	c.log.Warn().Err(err).Str("path", path).Msg("directory lookup failed")
	return ErrNotFound
}

// FindBySpotifyID looks up a directory record by streaming-provider
// artist id. This is the higher-precision lookup; prefer it when an id
// is available.
func (c *Client) FindBySpotifyID(ctx context.Context, spotifyID string) (*Record, error) {
	var resp struct {
		Result *Record `json:"result"`
	}
	err := c.lookup(ctx, "/findArtistBySpotifyID",
		map[string]string{"spotifyID": spotifyID}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, ErrNotFound
	}
	return resp.Result, nil
}

// FindByName looks up a directory record by artist name. Lower
// precision than FindBySpotifyID; used as fallback.
func (c *Client) FindByName(ctx context.Context, name string) (*Record, error) {
	var resp struct {
		Result *Record `json:"result"`
	}
	err := c.lookup(ctx, "/findArtistByName", map[string]string{"name": name}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, ErrNotFound
	}
	return resp.Result, nil
}

// FindTwitterHandle is the narrow lookup used when only a handle is
// needed.
func (c *Client) FindTwitterHandle(ctx context.Context, name string) (string, error) {
	var resp struct {
		Result string `json:"result"`
	}
	err := c.lookup(ctx, "/findTwitterHandle", map[string]string{"name": name}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Result == "" {
		return "", ErrNotFound
	}
	return resp.Result, nil
}
