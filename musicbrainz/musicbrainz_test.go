package musicbrainz_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicnerd/backstage/musicbrainz"
)

func newTestClient(t *testing.T, handler http.Handler) *musicbrainz.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return musicbrainz.NewTestClient(zerolog.Nop(), srv.URL)
}

func TestSearchArtist_ExactMatchBeatsFirstHit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/artist", r.URL.Path)
		require.Equal(t, "Burial", r.URL.Query().Get("query"))
		// Upstream ranks a tribute act first.
		w.Write([]byte(`{"artists": [
			{"id": "wrong-id", "name": "Burial Chamber", "score": 100},
			{"id": "right-id", "name": "Burial", "score": 98}
		]}`))
	}))

	id, err := c.SearchArtist(context.Background(), "Burial")
	require.NoError(t, err)
	assert.Equal(t, "right-id", id)
}

func TestSearchArtist_ClosestNameWhenNoExactMatch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"artists": [
			{"id": "far-id", "name": "Completely Different Act"},
			{"id": "near-id", "name": "Four Tet Remixes"}
		]}`))
	}))

	id, err := c.SearchArtist(context.Background(), "Four Tet")
	require.NoError(t, err)
	assert.Equal(t, "near-id", id)
}

func TestSearchArtist_NoHits(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"artists": []}`))
	}))

	_, err := c.SearchArtist(context.Background(), "zzzzzz")
	assert.ErrorIs(t, err, musicbrainz.ErrNotFound)
}

func TestSearchArtist_UpstreamFailureIsNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.SearchArtist(context.Background(), "anyone")
	assert.ErrorIs(t, err, musicbrainz.ErrNotFound)
}

func TestLookupArtist_RelationFiltering(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/artist/mbid-1", r.URL.Path)
		require.Equal(t, "url-rels+tags+releases+aliases", r.URL.Query().Get("inc"))
		w.Write([]byte(`{
			"id": "mbid-1",
			"name": "Four Tet",
			"country": "GB",
			"life-span": {"begin": "1998"},
			"tags": [{"name": "electronic"}, {"name": "folktronica"}],
			"aliases": [{"name": "KH"}],
			"relations": [
				{"type": "official homepage", "url": {"resource": "https://fourtet.net"}},
				{"type": "bandcamp", "url": {"resource": "https://fourtet.bandcamp.com"}},
				{"type": "sound.xyz", "url": {"resource": "https://sound.xyz/fourtet"}},
				{"type": "myspace", "url": {"resource": "https://myspace.com/fourtet"}},
				{"type": "member of band", "artist": {"id": "fridge-id", "name": "Fridge"}},
				{"type": "label", "label": {"name": "Text Records"}}
			]
		}`))
	}))

	d, err := c.LookupArtist(context.Background(), "mbid-1")
	require.NoError(t, err)

	assert.Equal(t, "Four Tet", d.Name)
	assert.Equal(t, "GB", d.Country)
	assert.Equal(t, "1998", d.Formed)
	assert.Empty(t, d.Disbanded)
	assert.Equal(t, []string{"electronic", "folktronica"}, d.Genres)
	assert.Equal(t, []string{"KH"}, d.Aliases)
	assert.Equal(t, []string{"fridge-id"}, d.AssociatedActs)
	assert.Equal(t, []string{"Text Records"}, d.Labels)

	assert.Equal(t, "https://fourtet.net", d.RelationLinks["official"])
	assert.Equal(t, "https://fourtet.bandcamp.com", d.RelationLinks["bandcamp"])
	assert.Equal(t, "https://sound.xyz/fourtet", d.RelationLinks["soundxyz"])
	// Unrecognized relation types are dropped.
	_, ok := d.RelationLinks["myspace"]
	assert.False(t, ok)
}

func TestLookupArtist_404(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.LookupArtist(context.Background(), "nope")
	assert.ErrorIs(t, err, musicbrainz.ErrNotFound)
}

func TestFindRecording_BestEffort(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/recording", r.URL.Path)
		w.Write([]byte(`{"recordings": [
			{"id": "rec-1", "title": "Archangel", "length": 238000, "isrcs": ["GBBPC0700187"]}
		]}`))
	}))

	rec := c.FindRecording(context.Background(), "Burial", "Archangel")
	require.NotNil(t, rec)
	assert.Equal(t, "Archangel", rec.Title)
	assert.Equal(t, []string{"GBBPC0700187"}, rec.ISRCs)
}

func TestFindRecording_FailureSwallowed(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := c.FindRecording(context.Background(), "Burial", "Archangel")
	assert.Nil(t, rec)
}
