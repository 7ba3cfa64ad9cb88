package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestTokenParser_ParseVerifiesSignatureWhenSecretConfigured(t *testing.T) {
	claims := jwt.MapClaims{
		"host": "agent.example.com", "port": 8080.0, "secure_port": 8443.0,
		"http_base_uri": "https://agent.example.com:9443",
		"iat":           float64(time.Now().Unix()),
		"exp":           float64(time.Now().Add(time.Hour).Unix()),
	}
	raw := signToken(t, "shared-secret", claims)

	p := NewTokenParser("shared-secret", nil)
	tok, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "agent.example.com", tok.Claims.Host)
	assert.Equal(t, 8080, tok.Claims.Port)
	assert.Equal(t, 8443, tok.Claims.SecurePort)
	assert.Equal(t, "https://agent.example.com:9443", tok.Claims.HTTPBaseURI)
	assert.False(t, tok.EXP.IsZero())
}

func TestTokenParser_ParseRejectsBadSignature(t *testing.T) {
	raw := signToken(t, "wrong-secret", jwt.MapClaims{
		"host": "a", "http_base_uri": "http://a",
	})
	p := NewTokenParser("shared-secret", nil)
	_, err := p.Parse(raw)
	assert.Error(t, err)
}

func TestTokenParser_ParseUnverifiedWhenNoSecretConfigured(t *testing.T) {
	raw := signToken(t, "anything", jwt.MapClaims{
		"host": "a.example.com", "http_base_uri": "http://a.example.com",
	})
	p := NewTokenParser("", nil)
	tok, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "a.example.com", tok.Claims.Host)
}

func TestTokenParser_ParseRejectsEmptyOrMissingClaims(t *testing.T) {
	p := NewTokenParser("", nil)

	_, err := p.Parse("")
	assert.Error(t, err)

	missingHost := signToken(t, "s", jwt.MapClaims{"http_base_uri": "http://x"})
	_, err = NewTokenParser("s", nil).Parse(missingHost)
	assert.Error(t, err)

	missingBase := signToken(t, "s", jwt.MapClaims{"host": "x"})
	_, err = NewTokenParser("s", nil).Parse(missingBase)
	assert.Error(t, err)
}

func TestAccessToken_URLBuilders(t *testing.T) {
	tok := &AccessToken{
		Raw: "raw-token",
		Claims: AccessTokenClaims{
			Host: "agent.example.com", Port: 8080, SecurePort: 8443,
		},
	}

	assert.Equal(t, "wss://agent.example.com:8443/ctl/NEW/raw-token/", tok.SecureURL())
	assert.Equal(t, "ws://agent.example.com:8080/ctl/NEW/raw-token/", tok.InsecureURL())
	assert.Equal(t, "wss://agent.example.com:8443/ctl/conn-1/", tok.ReconnectURL(true, "conn-1"))
	assert.Equal(t, "ws://agent.example.com:8080/ctl/conn-1/", tok.ReconnectURL(false, "conn-1"))
}
