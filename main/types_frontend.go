package main

import (
	"github.com/musicnerd/backstage/internal/aggregate"
	"github.com/musicnerd/backstage/musicbrainz"
	"github.com/musicnerd/backstage/spotify"
)

// Request/response shapes for the JSON API. Field names follow the
// frontend's camelCase convention.

type linksRequest struct {
	ArtistName string `json:"artistName"`
	SpotifyID  string `json:"spotifyId"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Artists []spotify.ArtistHit `json:"artists"`
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"sessionId"`
	Response  string `json:"response"`
}

type bioRequest struct {
	ArtistName string `json:"artistName"`
	SpotifyID  string `json:"spotifyId"`
}

type bioResponse struct {
	ArtistName string            `json:"artistName"`
	Bio        string            `json:"bio"`
	Artist     *aggregate.Result `json:"artist"`
}

type nowPlayingResponse struct {
	Track     *spotify.TrackRef      `json:"track"`
	Artist    *aggregate.Result      `json:"artist,omitempty"`
	Recording *musicbrainz.Recording `json:"recording,omitempty"`
}

// authRequired tells the frontend to open the OAuth popup.
type authRequired struct {
	AuthRequired bool   `json:"auth_required"`
	AuthURL      string `json:"auth_url"`
}
