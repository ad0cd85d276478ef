package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/musicnerd/backstage/internal/secret"
)

// CreateToken generates a signed, expiring token
// valid for ~30 minutes.
func CreateToken() (string, error) {
	key := secret.AppConfig.TokenSecret
	if key == "" {
		return "", fmt.Errorf("missing BACKSTAGE_TOKEN_SECRET")
	}

	// expiry = unix timestamp 30 minutes from now
	expiry := time.Now().Add(30 * time.Minute).Unix()
	msg := []byte(strconv.FormatInt(expiry, 10))

	token := base64.StdEncoding.EncodeToString(msg) + "." +
		base64.StdEncoding.EncodeToString(sign(msg))

	return token, nil
}

func sign(msg []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret.AppConfig.TokenSecret))
	mac.Write(msg)
	return mac.Sum(nil)
}

// ValidateToken checks if a token is expired or forged.
func ValidateToken(tok string) bool {
	key := secret.AppConfig.TokenSecret
	if key == "" {
		return false
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 2 {
		return false
	}

	msgB, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	sigB, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	expiry, err := strconv.ParseInt(string(msgB), 10, 64)
	if err != nil {
		return false
	}

	if time.Now().Unix() > expiry {
		return false // expired
	}

	return hmac.Equal(sigB, sign(msgB))
}
