package auth

import (
	"encoding/base64"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicnerd/backstage/internal/secret"
)

func withTokenSecret(t *testing.T, key string) {
	t.Helper()
	old := secret.AppConfig.TokenSecret
	secret.AppConfig.TokenSecret = key
	t.Cleanup(func() { secret.AppConfig.TokenSecret = old })
}

func TestTokenRoundTrip(t *testing.T) {
	withTokenSecret(t, "unit-test-secret")

	tok, err := CreateToken()
	require.NoError(t, err)
	assert.True(t, ValidateToken(tok))
}

func TestTokenRejectsTampering(t *testing.T) {
	withTokenSecret(t, "unit-test-secret")

	tok, err := CreateToken()
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 2)

	// Forge a later expiry without re-signing.
	forgedMsg := base64.StdEncoding.EncodeToString(
		[]byte(strconv.FormatInt(time.Now().Add(24*time.Hour).Unix(), 10)))
	assert.False(t, ValidateToken(forgedMsg+"."+parts[1]))

	assert.False(t, ValidateToken("garbage"))
	assert.False(t, ValidateToken("not.base64!"))
}

func TestTokenExpired(t *testing.T) {
	withTokenSecret(t, "unit-test-secret")

	// Sign an already-expired timestamp with the real key.
	expired := buildToken(t, time.Now().Add(-time.Minute))
	assert.False(t, ValidateToken(expired))
}

func TestTokenNoSecret(t *testing.T) {
	withTokenSecret(t, "")

	_, err := CreateToken()
	assert.Error(t, err)
	assert.False(t, ValidateToken("anything.at-all"))
}

func buildToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	msg := []byte(strconv.FormatInt(expiry.Unix(), 10))
	sig := sign(msg)
	return base64.StdEncoding.EncodeToString(msg) + "." + base64.StdEncoding.EncodeToString(sig)
}
