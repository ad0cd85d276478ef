package musicnerd_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicnerd/backstage/musicnerd"
)

func newTestClient(t *testing.T, handler http.Handler) *musicnerd.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return musicnerd.NewClient(zerolog.Nop(), srv.URL)
}

func TestFindBySpotifyID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/findArtistBySpotifyID", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"spotifyID": "3dz0H3gbODwMhHQh0iPgU5"}`, string(body))
		w.Write([]byte(`{"result": {
			"name": "Burial",
			"twitterHandle": "burialuk",
			"ethAddress": "0xabc",
			"soundxyz": "burial.sound.xyz"
		}}`))
	}))

	rec, err := c.FindBySpotifyID(context.Background(), "3dz0H3gbODwMhHQh0iPgU5")
	require.NoError(t, err)
	assert.Equal(t, "Burial", rec.Name)
	assert.Equal(t, "burialuk", rec.TwitterHandle)
	assert.Equal(t, "burial.sound.xyz", rec.SoundXYZ)
}

func TestFindBySpotifyID_404IsNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.FindBySpotifyID(context.Background(), "nope")
	assert.ErrorIs(t, err, musicnerd.ErrNotFound)
}

func TestFindByName_ServerErrorDegradesToNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.FindByName(context.Background(), "Burial")
	assert.ErrorIs(t, err, musicnerd.ErrNotFound)
}

func TestFindByName_NullResultIsNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": null}`))
	}))

	_, err := c.FindByName(context.Background(), "Burial")
	assert.ErrorIs(t, err, musicnerd.ErrNotFound)
}

func TestFindTwitterHandle(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/findTwitterHandle", r.URL.Path)
		w.Write([]byte(`{"result": "fourtet"}`))
	}))

	handle, err := c.FindTwitterHandle(context.Background(), "Four Tet")
	require.NoError(t, err)
	assert.Equal(t, "fourtet", handle)
}
