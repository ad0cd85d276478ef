// Package profile summarizes a user's listening habits from their
// streaming history for use as chat context.
package profile

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/musicnerd/backstage/spotify"
)

// featuresSampleLimit caps how many top tracks get an audio-features
// lookup per profile build.
const featuresSampleLimit = 10

type Profile struct {
	RecentTracks []spotify.PlayedTrack `json:"recentTracks"`
	TopTracks    []spotify.TrackRef    `json:"topTracks"`
	TopArtists   []spotify.TopArtist   `json:"topArtists"`
	TopGenres    []string              `json:"topGenres"`

	// AverageFeatures is the mean over the sampled top tracks.
	AverageFeatures spotify.AudioFeatures `json:"averageFeatures"`

	// TimeOfDay ranks when the user listens, most frequent first.
	TimeOfDay []string `json:"timeOfDay"`
}

// Summary renders the profile as one compact line of prose, suitable
// for inclusion in a prompt. Empty profile yields "".
func (p *Profile) Summary() string {
	if p == nil {
		return ""
	}

	var parts []string
	if len(p.TopGenres) > 0 {
		n := len(p.TopGenres)
		if n > 5 {
			n = 5
		}
		parts = append(parts, "top genres "+strings.Join(p.TopGenres[:n], ", "))
	}
	if len(p.TopArtists) > 0 {
		names := make([]string, 0, 3)
		for _, a := range p.TopArtists {
			if len(names) == 3 {
				break
			}
			names = append(names, a.Name)
		}
		parts = append(parts, "favorite artists "+strings.Join(names, ", "))
	}
	if len(p.TimeOfDay) > 0 {
		parts = append(parts, "listens mostly in the "+p.TimeOfDay[0])
	}
	return strings.Join(parts, "; ")
}

type Builder struct {
	spotify *spotify.Client
	log     zerolog.Logger
}

func NewBuilder(sp *spotify.Client, log zerolog.Logger) *Builder {
	return &Builder{
		spotify: sp,
		log:     log.With().Str("component", "profile").Logger(),
	}
}

// Build fetches the listening history in parallel and derives the
// summary. Every upstream fetch is best-effort; a profile built from
// partial data is still a profile.
func (b *Builder) Build(ctx context.Context, token string) *Profile {
	p := &Profile{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.RecentTracks = b.spotify.RecentlyPlayed(gctx, token)
		return nil
	})
	g.Go(func() error {
		p.TopTracks = b.spotify.TopTracks(gctx, token, spotify.WindowMedium)
		return nil
	})
	g.Go(func() error {
		p.TopArtists = b.spotify.TopArtists(gctx, token, spotify.WindowMedium)
		return nil
	})
	_ = g.Wait()

	p.TopGenres = topGenres(p.TopArtists, 10)
	p.TimeOfDay = timeOfDayRanking(p.RecentTracks)
	p.AverageFeatures = b.averageFeatures(ctx, token, p.TopTracks)

	return p
}

func (b *Builder) averageFeatures(ctx context.Context, token string, tracks []spotify.TrackRef) spotify.AudioFeatures {
	var sum spotify.AudioFeatures
	n := 0

	for _, tr := range tracks {
		if n >= featuresSampleLimit {
			break
		}
		if tr.ID == "" {
			continue
		}
		f, err := b.spotify.Features(ctx, token, tr.ID)
		if err != nil {
			b.log.Debug().Err(err).Str("track", tr.Title).Msg("features unavailable")
			continue
		}
		sum.Tempo += f.Tempo
		sum.Danceability += f.Danceability
		sum.Energy += f.Energy
		sum.Valence += f.Valence
		sum.Instrumentalness += f.Instrumentalness
		sum.Acousticness += f.Acousticness
		sum.Loudness += f.Loudness
		n++
	}

	if n == 0 {
		return spotify.AudioFeatures{}
	}

	div := float64(n)
	return spotify.AudioFeatures{
		Tempo:            sum.Tempo / div,
		Danceability:     sum.Danceability / div,
		Energy:           sum.Energy / div,
		Valence:          sum.Valence / div,
		Instrumentalness: sum.Instrumentalness / div,
		Acousticness:     sum.Acousticness / div,
		Loudness:         sum.Loudness / div,
	}
}

// topGenres ranks genres by how many top artists carry them.
func topGenres(artists []spotify.TopArtist, limit int) []string {
	counts := map[string]int{}
	for _, a := range artists {
		for _, g := range a.Genres {
			counts[g]++
		}
	}

	genres := make([]string, 0, len(counts))
	for g := range counts {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool {
		if counts[genres[i]] != counts[genres[j]] {
			return counts[genres[i]] > counts[genres[j]]
		}
		return genres[i] < genres[j]
	})

	if len(genres) > limit {
		genres = genres[:limit]
	}
	return genres
}

// timeOfDayRanking buckets recent plays into night / morning /
// afternoon / evening and ranks the buckets by frequency.
func timeOfDayRanking(plays []spotify.PlayedTrack) []string {
	counts := map[string]int{}
	for _, p := range plays {
		counts[bucketFor(p.PlayedAt)]++
	}

	buckets := make([]string, 0, len(counts))
	for b := range counts {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if counts[buckets[i]] != counts[buckets[j]] {
			return counts[buckets[i]] > counts[buckets[j]]
		}
		return buckets[i] < buckets[j]
	})
	return buckets
}

func bucketFor(t time.Time) string {
	return BucketForHour(t.Hour())
}

// BucketForHour maps an hour of day to a listening-pattern bucket.
func BucketForHour(h int) string {
	switch {
	case h < 6:
		return "night"
	case h < 12:
		return "morning"
	case h < 18:
		return "afternoon"
	default:
		return "evening"
	}
}
