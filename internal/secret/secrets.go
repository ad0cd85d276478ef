package secret

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type SpotifyConfigStruct struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURL  string   `json:"redirect_url"`
	Scopes       []string `json:"scopes"`
}

type Config struct {
	Spotify SpotifyConfigStruct

	// Anthropic chat backend
	AnthropicAPIKey string
	AnthropicModel  string

	// MusicNerd directory service
	MusicNerdBaseURL string

	// Postgres DSN for chat history; empty disables persistence
	PostgresDSN string

	// HMAC secret for the short-lived API token
	TokenSecret string
}

var AppConfig Config

// defaultScopes covers now-playing detection, listening history and
// the top tracks/artists windows.
var defaultScopes = []string{
	"user-read-email",
	"user-read-private",
	"user-read-currently-playing",
	"user-read-playback-state",
	"user-read-recently-played",
	"user-top-read",
}

// LoadSecrets populates AppConfig from:
// 1. Environment variables (optionally seeded from a .env file)
// 2. authconfig.json in the project root (Spotify credentials only)
func LoadSecrets(envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}
	// Missing .env is fine; real deployments set env vars directly.
	_ = godotenv.Load(envFile)

	AppConfig.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	AppConfig.AnthropicModel = os.Getenv("ANTHROPIC_MODEL")

	AppConfig.MusicNerdBaseURL = os.Getenv("MUSICNERD_BASE_URL")
	if AppConfig.MusicNerdBaseURL == "" {
		AppConfig.MusicNerdBaseURL = "https://api.musicnerd.xyz/api"
	}

	AppConfig.PostgresDSN = os.Getenv("PG_DSN")
	AppConfig.TokenSecret = os.Getenv("BACKSTAGE_TOKEN_SECRET")

	// ----- Spotify: environment first -----
	id := os.Getenv("SPOTIFY_CLIENT_ID")
	clientSecret := os.Getenv("SPOTIFY_CLIENT_SECRET")
	redirect := os.Getenv("SPOTIFY_REDIRECT_URI")

	if id != "" && clientSecret != "" && redirect != "" {
		AppConfig.Spotify = SpotifyConfigStruct{
			ClientID:     id,
			ClientSecret: clientSecret,
			RedirectURL:  redirect,
			Scopes:       defaultScopes,
		}
		return nil
	}

	// ----- Fall back to local authconfig.json -----
	b, err := os.ReadFile("authconfig.json")
	if err == nil {
		if err := json.Unmarshal(b, &AppConfig.Spotify); err != nil {
			return fmt.Errorf("invalid authconfig.json: %w", err)
		}
		if len(AppConfig.Spotify.Scopes) == 0 {
			AppConfig.Spotify.Scopes = defaultScopes
		}
		return nil
	}

	return fmt.Errorf("missing Spotify configuration ENV vars or authconfig.json")
}
