package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/musicnerd/backstage/internal/aggregate"
	"github.com/musicnerd/backstage/internal/chat"
	"github.com/musicnerd/backstage/internal/profile"
	"github.com/musicnerd/backstage/internal/secret"
	"github.com/musicnerd/backstage/internal/session"
	"github.com/musicnerd/backstage/internal/store"
	"github.com/musicnerd/backstage/musicbrainz"
	"github.com/musicnerd/backstage/musicnerd"
	"github.com/musicnerd/backstage/spotify"
)

const sessionTTL = 30 * time.Minute

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if lv, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lv != zerolog.NoLevel {
		level = lv
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

func main() {
	log := newLogger()

	if err := secret.LoadSecrets(""); err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}

	sp := spotify.New(log)
	mb := musicbrainz.NewClient(log)
	mn := musicnerd.NewClient(log, secret.AppConfig.MusicNerdBaseURL)

	app := newApp(log)
	app.spotify = sp
	app.meta = mb
	app.agg = aggregate.New(mb, mn, log)
	app.chat = chat.NewAssembler(secret.AppConfig.AnthropicAPIKey, secret.AppConfig.AnthropicModel, log)
	app.profiles = profile.NewBuilder(sp, log)
	app.sessions = session.NewManager(sessionTTL)

	// Chat history persistence is optional; without a DSN conversations
	// live only in memory for the session TTL.
	if dsn := secret.AppConfig.PostgresDSN; dsn != "" {
		st, err := store.Open(dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("opening chat history store")
		}
		mctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := st.Migrate(mctx); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("migrating chat history store")
		}
		cancel()
		app.history = st
		defer st.Close()
	} else {
		log.Warn().Msg("PG_DSN not set, chat history persistence disabled")
	}

	go sweepSessions(app.sessions, log)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      app.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	log.Info().Str("port", port).Msg("listening")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func sweepSessions(m *session.Manager, log zerolog.Logger) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()
	for range t.C {
		if n := m.Sweep(); n > 0 {
			log.Debug().Int("removed", n).Msg("swept expired sessions")
		}
	}
}
