package profile_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicnerd/backstage/internal/profile"
	"github.com/musicnerd/backstage/spotify"
)

// fakeSpotify serves just enough of the provider API for Build.
func fakeSpotify(t *testing.T) *spotify.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/me/player/recently-played", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"track": trackJSON("Rival Dealer", "Burial"), "played_at": "2024-03-01T22:30:00Z"},
				{"track": trackJSON("Archangel", "Burial"), "played_at": "2024-03-01T21:10:00Z"},
				{"track": trackJSON("Two Thousand and Seventeen", "Four Tet"), "played_at": "2024-03-01T08:05:00Z"},
			},
		})
	})
	mux.HandleFunc("/me/top/tracks", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				withID(trackJSON("Archangel", "Burial"), "t1"),
				withID(trackJSON("Parallel 1", "Four Tet"), "t2"),
			},
		})
	})
	mux.HandleFunc("/me/top/artists", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "a1", "name": "Burial", "genres": []string{"dubstep", "electronic"}, "popularity": 70, "external_urls": map[string]string{}},
				{"id": "a2", "name": "Four Tet", "genres": []string{"electronic", "folktronica"}, "popularity": 72, "external_urls": map[string]string{}},
			},
		})
	})
	mux.HandleFunc("/audio-features/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"tempo": 120.0, "key": 5, "mode": 1,
			"danceability": 0.5, "energy": 0.6, "valence": 0.4,
			"instrumentalness": 0.8, "acousticness": 0.2, "loudness": -10.0,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return spotify.NewWithBaseURL(zerolog.Nop(), srv.URL)
}

func trackJSON(name, artist string) map[string]any {
	return map[string]any{
		"name":          name,
		"artists":       []map[string]string{{"name": artist}},
		"album":         map[string]string{"name": "album"},
		"external_urls": map[string]string{},
	}
}

func withID(track map[string]any, id string) map[string]any {
	track["id"] = id
	return track
}

func TestBuild(t *testing.T) {
	b := profile.NewBuilder(fakeSpotify(t), zerolog.Nop())

	p := b.Build(context.Background(), "tok")

	require.Len(t, p.RecentTracks, 3)
	require.Len(t, p.TopTracks, 2)
	require.Len(t, p.TopArtists, 2)

	// "electronic" appears for both artists and must rank first.
	require.NotEmpty(t, p.TopGenres)
	assert.Equal(t, "electronic", p.TopGenres[0])

	// Two evening plays vs one morning play.
	require.NotEmpty(t, p.TimeOfDay)
	assert.Equal(t, "evening", p.TimeOfDay[0])

	// Both sampled tracks share the same features, so the mean equals
	// the per-track values.
	assert.InDelta(t, 120.0, p.AverageFeatures.Tempo, 0.001)
	assert.InDelta(t, 0.8, p.AverageFeatures.Instrumentalness, 0.001)
	assert.InDelta(t, -10.0, p.AverageFeatures.Loudness, 0.001)
}

func TestBuild_AllUpstreamsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	b := profile.NewBuilder(spotify.NewWithBaseURL(zerolog.Nop(), srv.URL), zerolog.Nop())
	p := b.Build(context.Background(), "tok")

	assert.Empty(t, p.RecentTracks)
	assert.Empty(t, p.TopTracks)
	assert.Empty(t, p.TopGenres)
	assert.Equal(t, spotify.AudioFeatures{}, p.AverageFeatures)
}

func TestSummary(t *testing.T) {
	b := profile.NewBuilder(fakeSpotify(t), zerolog.Nop())
	p := b.Build(context.Background(), "tok")

	s := p.Summary()
	assert.Contains(t, s, "electronic")
	assert.Contains(t, s, "listens mostly in the evening")

	var empty *profile.Profile
	assert.Empty(t, empty.Summary())
	assert.Empty(t, (&profile.Profile{}).Summary())
}

func TestBucketForHour_Boundaries(t *testing.T) {
	for _, tc := range []struct {
		hour int
		want string
	}{
		{2, "night"}, {5, "night"}, {6, "morning"}, {11, "morning"},
		{12, "afternoon"}, {17, "afternoon"}, {18, "evening"}, {23, "evening"},
	} {
		assert.Equal(t, tc.want, profile.BucketForHour(tc.hour), "hour %d", tc.hour)
	}
}
