package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/musicnerd/backstage/internal/aggregate"
	"github.com/musicnerd/backstage/internal/auth"
	"github.com/musicnerd/backstage/internal/chat"
	"github.com/musicnerd/backstage/internal/profile"
	"github.com/musicnerd/backstage/internal/secret"
	"github.com/musicnerd/backstage/internal/session"
	"github.com/musicnerd/backstage/internal/store"
	"github.com/musicnerd/backstage/musicbrainz"
	"github.com/musicnerd/backstage/spotify"
)

type app struct {
	spotify  *spotify.Client
	meta     *musicbrainz.Client
	agg      *aggregate.Aggregator
	chat     *chat.Assembler
	profiles *profile.Builder
	sessions *session.Manager
	history  *store.Store
	log      zerolog.Logger

	// accessToken resolves the stored OAuth token; injectable in tests.
	accessToken func(r *http.Request) (string, error)
}

func newApp(log zerolog.Logger) *app {
	return &app{
		log: log.With().Str("component", "http").Logger(),
		accessToken: func(r *http.Request) (string, error) {
			return auth.AccessToken(r.Context())
		},
	}
}

func (a *app) routes() *mux.Router {
	r := mux.NewRouter()

	// Spotify OAuth (public)
	r.HandleFunc("/auth/start", auth.HomePage).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", auth.Authorize).Methods(http.MethodGet)

	r.HandleFunc("/status", a.handleStatus).Methods(http.MethodGet)

	pub := r.PathPrefix("/api").Subrouter()
	pub.HandleFunc("/token", a.handleToken).Methods(http.MethodGet)
	pub.HandleFunc("/chat/welcome", a.handleWelcome).Methods(http.MethodGet)

	// --- PROTECTED ROUTES ---
	sec := r.PathPrefix("/api").Subrouter()
	sec.Use(a.tokenAuth)
	sec.HandleFunc("/artist/links", a.handleArtistLinks).Methods(http.MethodPost)
	sec.HandleFunc("/artist/search", a.handleArtistSearch).Methods(http.MethodPost)
	sec.HandleFunc("/nowplaying", a.handleNowPlaying).Methods(http.MethodGet)
	sec.HandleFunc("/nowplaying/check", a.handleNowPlayingCheck).Methods(http.MethodHead)
	sec.HandleFunc("/chat", a.handleChat).Methods(http.MethodPost)
	sec.HandleFunc("/bio", a.handleBio).Methods(http.MethodPost)

	return r
}

// tokenAuth enforces the short-lived anti-scrape token on API routes.
// With no signing secret configured (local dev) it is a no-op.
func (a *app) tokenAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret.AppConfig.TokenSecret != "" {
			tok := r.Header.Get("X-Backstage-Token")
			if tok == "" || !auth.ValidateToken(tok) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------
// JSON helpers
// ---------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// ---------------------------------------------
// Handlers
// ---------------------------------------------

func (a *app) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *app) handleToken(w http.ResponseWriter, r *http.Request) {
	tok, err := auth.CreateToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (a *app) handleWelcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": chat.Welcome()})
}

// POST /api/artist/links
func (a *app) handleArtistLinks(w http.ResponseWriter, r *http.Request) {
	var req linksRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := a.agg.Aggregate(r.Context(), aggregate.Query{
		Name:      req.ArtistName,
		SpotifyID: req.SpotifyID,
	})
	if err != nil {
		if errors.Is(err, aggregate.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, "artistName or spotifyId required")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// POST /api/artist/search
func (a *app) handleArtistSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	token, err := a.accessToken(r)
	if err != nil {
		writeJSON(w, http.StatusOK, authRequired{AuthRequired: true, AuthURL: "/auth/start"})
		return
	}

	hits, err := a.spotify.SearchArtists(r.Context(), token, req.Query, 8)
	if err != nil {
		a.log.Warn().Err(err).Str("query", req.Query).Msg("artist search failed")
		writeError(w, http.StatusBadGateway, "search failed")
		return
	}
	if hits == nil {
		hits = []spotify.ArtistHit{}
	}

	writeJSON(w, http.StatusOK, searchResponse{Artists: hits})
}

// GET /api/nowplaying
func (a *app) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	token, err := a.accessToken(r)
	if err != nil {
		writeJSON(w, http.StatusOK, authRequired{AuthRequired: true, AuthURL: "/auth/start"})
		return
	}

	track, err := a.spotify.CurrentlyPlaying(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusBadGateway, "playback lookup failed")
		return
	}
	if track == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := nowPlayingResponse{Track: track}
	if name := track.PrimaryArtist(); name != "" {
		if info, err := a.agg.Aggregate(r.Context(), aggregate.Query{Name: name}); err == nil {
			resp.Artist = info
		}
		if a.meta != nil {
			resp.Recording = a.meta.FindRecording(r.Context(), name, track.Title)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// HEAD /api/nowplaying/check: 200 when something is playing, 204 otherwise.
func (a *app) handleNowPlayingCheck(w http.ResponseWriter, r *http.Request) {
	token, err := a.accessToken(r)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	track, err := a.spotify.CurrentlyPlaying(r.Context(), token)
	if err != nil || track == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// POST /api/chat
func (a *app) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}

	sess := a.sessions.Get(req.SessionID)
	if sess == nil {
		sess = a.sessions.Create()
	}
	history := a.sessions.History(sess.ID)

	// Listening context is best-effort: without a Spotify token the chat
	// still works, just without now-playing awareness.
	var (
		track    *spotify.TrackRef
		info     *aggregate.Result
		listener string
	)
	if token, err := a.accessToken(r); err == nil {
		track, _ = a.spotify.CurrentlyPlaying(ctx, token)
		listener = a.profiles.Build(ctx, token).Summary()
	}
	if track != nil {
		if name := track.PrimaryArtist(); name != "" {
			info, _ = a.agg.Aggregate(ctx, aggregate.Query{Name: name})
		}
	}

	reply, err := a.chat.Reply(ctx, history, req.Message, track, info, listener)
	if err != nil {
		writeError(w, http.StatusBadGateway, "chat unavailable")
		return
	}

	a.sessions.Append(sess.ID, chat.Message{Role: "user", Content: req.Message})
	a.sessions.Append(sess.ID, chat.Message{Role: "assistant", Content: reply})
	a.persistTurn(r, sess.ID, req.Message, reply, info)

	writeJSON(w, http.StatusOK, chatResponse{SessionID: sess.ID, Response: reply})
}

func (a *app) persistTurn(r *http.Request, sessionID, userMsg, reply string, info *aggregate.Result) {
	if a.history == nil {
		return
	}
	artist := ""
	if info != nil {
		artist = info.ArtistName
	}
	ctx := r.Context()
	if _, err := a.history.InsertMessage(ctx, sessionID, "user", userMsg, artist); err != nil {
		a.log.Warn().Err(err).Msg("persisting chat turn")
		return
	}
	if _, err := a.history.InsertMessage(ctx, sessionID, "assistant", reply, artist); err != nil {
		a.log.Warn().Err(err).Msg("persisting chat turn")
	}
}

// POST /api/bio
func (a *app) handleBio(w http.ResponseWriter, r *http.Request) {
	var req bioRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ArtistName == "" {
		writeError(w, http.StatusBadRequest, "artistName required")
		return
	}

	info, err := a.agg.Aggregate(r.Context(), aggregate.Query{
		Name:      req.ArtistName,
		SpotifyID: req.SpotifyID,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "artistName or spotifyId required")
		return
	}

	bio, err := a.chat.Bio(r.Context(), info.ArtistName, info)
	if err != nil {
		writeError(w, http.StatusBadGateway, "bio unavailable")
		return
	}

	writeJSON(w, http.StatusOK, bioResponse{
		ArtistName: info.ArtistName,
		Bio:        bio,
		Artist:     info,
	})
}
