package musicbrainz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/musicnerd/backstage/internal/names"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"
const userAgent = "Backstage/1.0 (contact@musicnerd.xyz)"

// ErrNotFound means the service answered but had no matching artist.
var ErrNotFound = errors.New("musicbrainz: not found")

// -------------------------------------------------------
// Core client
// -------------------------------------------------------

type Client struct {
	http     *http.Client
	baseURL  string
	throttle time.Duration
	log      zerolog.Logger
}

func NewClient(log zerolog.Logger) *Client {
	return &Client{
		http:     &http.Client{Timeout: 12 * time.Second},
		baseURL:  defaultBaseURL,
		throttle: time.Second, // MB polite usage: 1 request/second anonymous
		log:      log.With().Str("component", "musicbrainz").Logger(),
	}
}

// NewTestClient points the client at a fake server and disables the
// politeness throttle.
func NewTestClient(log zerolog.Logger, baseURL string) *Client {
	c := NewClient(log)
	c.baseURL = baseURL
	c.throttle = 0
	return c
}

// get performs GET + JSON decode + rate-limit throttle.
func (c *Client) get(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("musicbrainz status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}

	if c.throttle > 0 {
		time.Sleep(c.throttle)
	}
	return nil
}

// -------------------------------------------------------
// Search Artist by Name
// -------------------------------------------------------

type artistSearchResponse struct {
	Artists []searchHit `json:"artists"`
}

type searchHit struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Score          int    `json:"score"`
	Disambiguation string `json:"disambiguation"`
}

// SearchArtist resolves a name to a MusicBrainz artist id.
//
// The upstream search ranks by its own text score; taking its first hit
// blindly mixes up artists with common names, so an exact match on the
// normalized name wins first, then the closest name by edit distance
// among the returned page, then the top hit as a last resort.
func (c *Client) SearchArtist(ctx context.Context, name string) (string, error) {
	q := url.QueryEscape(name)
	u := fmt.Sprintf("%s/artist?query=%s&fmt=json", c.baseURL, q)

	var resp artistSearchResponse
	if err := c.get(ctx, u, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		c.log.Warn().Err(err).Str("artist", name).Msg("artist search failed")
		return "", ErrNotFound
	}
	if len(resp.Artists) == 0 {
		return "", ErrNotFound
	}

	for _, hit := range resp.Artists {
		if names.Equal(hit.Name, name) {
			return hit.ID, nil
		}
	}

	best := resp.Artists[0]
	bestScore := names.Similarity(best.Name, name)
	for _, hit := range resp.Artists[1:] {
		if s := names.Similarity(hit.Name, name); s > bestScore {
			best, bestScore = hit, s
		}
	}
	return best.ID, nil
}

// -------------------------------------------------------
// Lookup Artist (relations, tags, aliases)
// -------------------------------------------------------

// relationKeys maps MusicBrainz URL-relation types to our platform
// keys. Unrecognized relation types are dropped, not surfaced.
var relationKeys = map[string]string{
	"official homepage": "official",
	"bandcamp":          "bandcamp",
	"soundcloud":        "soundcloud",
	"beatport":          "beatport",
	"catalog":           "catalog",
	"sound.xyz":         "soundxyz",
	"wikipedia":         "wikipedia",
	"discogs":           "discogs",
}

type ArtistDetail struct {
	ID             string
	Name           string
	Aliases        []string
	Country        string
	Formed         string
	Disbanded      string
	Genres         []string
	AssociatedActs []string
	Labels         []string

	// RelationLinks holds platform key -> URL for recognized relation
	// types only.
	RelationLinks map[string]string
}

type artistLookupResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	LifeSpan struct {
		Begin string `json:"begin"`
		End   string `json:"end"`
	} `json:"life-span"`
	Tags []struct {
		Name string `json:"name"`
	} `json:"tags"`
	Aliases []struct {
		Name string `json:"name"`
	} `json:"aliases"`
	Relations []struct {
		Type string `json:"type"`
		URL  struct {
			Resource string `json:"resource"`
		} `json:"url"`
		Artist struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"artist"`
		Label struct {
			Name string `json:"name"`
		} `json:"label"`
	} `json:"relations"`
}

// LookupArtist fetches an artist with URL relations, tags and aliases
// and extracts the cross-referenced platform links.
func (c *Client) LookupArtist(ctx context.Context, id string) (*ArtistDetail, error) {
	u := fmt.Sprintf("%s/artist/%s?fmt=json&inc=url-rels+tags+releases+aliases", c.baseURL, id)

	var resp artistLookupResponse
	if err := c.get(ctx, u, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		c.log.Warn().Err(err).Str("mbid", id).Msg("artist lookup failed")
		return nil, ErrNotFound
	}

	detail := &ArtistDetail{
		ID:            resp.ID,
		Name:          resp.Name,
		Country:       resp.Country,
		Formed:        resp.LifeSpan.Begin,
		Disbanded:     resp.LifeSpan.End,
		RelationLinks: map[string]string{},
	}

	for _, t := range resp.Tags {
		detail.Genres = append(detail.Genres, t.Name)
	}
	for _, a := range resp.Aliases {
		detail.Aliases = append(detail.Aliases, a.Name)
	}

	for _, rel := range resp.Relations {
		if key, ok := relationKeys[rel.Type]; ok && rel.URL.Resource != "" {
			if _, exists := detail.RelationLinks[key]; !exists {
				detail.RelationLinks[key] = rel.URL.Resource
			}
			continue
		}
		switch rel.Type {
		case "member of band", "collaboration":
			if rel.Artist.ID != "" {
				detail.AssociatedActs = append(detail.AssociatedActs, rel.Artist.ID)
			}
		case "label":
			if rel.Label.Name != "" {
				detail.Labels = append(detail.Labels, rel.Label.Name)
			}
		}
	}

	return detail, nil
}

// -------------------------------------------------------
// Recording lookup (optional enrichment)
// -------------------------------------------------------

type Recording struct {
	ID     string
	Title  string
	Length int
	ISRCs  []string
}

// FindRecording looks up a recording by artist + title. Best-effort:
// any failure returns nil.
func (c *Client) FindRecording(ctx context.Context, artistName, trackTitle string) *Recording {
	q := url.QueryEscape(fmt.Sprintf("artist:%s AND recording:%s", artistName, trackTitle))
	u := fmt.Sprintf("%s/recording?query=%s&fmt=json", c.baseURL, q)

	var resp struct {
		Recordings []struct {
			ID     string   `json:"id"`
			Title  string   `json:"title"`
			Length int      `json:"length"`
			ISRCs  []string `json:"isrcs"`
		} `json:"recordings"`
	}
	if err := c.get(ctx, u, &resp); err != nil {
		c.log.Debug().Err(err).Str("artist", artistName).Str("track", trackTitle).
			Msg("recording lookup failed")
		return nil
	}
	if len(resp.Recordings) == 0 {
		return nil
	}

	r := resp.Recordings[0]
	return &Recording{ID: r.ID, Title: r.Title, Length: r.Length, ISRCs: r.ISRCs}
}
