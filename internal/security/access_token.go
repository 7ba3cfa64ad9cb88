package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/golang-jwt/jwt/v4"
)

// AccessTokenClaims carries the derived endpoints the cloud embeds in the
// access token (spec.md §3 "Access token"): control-channel host/port
// (secure and insecure), an optional SOCKS proxy URL, and the HTTP base URI
// used for direct uploads.
type AccessTokenClaims struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	SecurePort   int    `json:"secure_port"`
	ProxyURL     string `json:"proxy_url,omitempty"`
	HTTPBaseURI  string `json:"http_base_uri"`
	ConnectionID string `json:"conn_id,omitempty"`
}

// AccessToken is the parsed, immutable result of parsing the opaque
// credential handed to the agent at construction time. Once parsed it is
// never mutated for the lifetime of the process (spec.md §3).
type AccessToken struct {
	Raw    string
	Claims AccessTokenClaims
	IAT    time.Time
	EXP    time.Time
}

// SecureURL builds the wss:// control-channel URL for the initial
// registration, per spec.md §6 URL construction rules.
func (t *AccessToken) SecureURL() string {
	return fmt.Sprintf("wss://%s:%d/ctl/NEW/%s/", t.Claims.Host, t.Claims.SecurePort, t.Raw)
}

// InsecureURL builds the plain ws:// control-channel URL.
func (t *AccessToken) InsecureURL() string {
	return fmt.Sprintf("ws://%s:%d/ctl/NEW/%s/", t.Claims.Host, t.Claims.Port, t.Raw)
}

// ReconnectURL builds the control-channel URL used to resume an existing
// connection id instead of registering anew.
func (t *AccessToken) ReconnectURL(secure bool, connID string) string {
	scheme, port := "ws", t.Claims.Port
	if secure {
		scheme, port = "wss", t.Claims.SecurePort
	}
	return fmt.Sprintf("%s://%s:%d/ctl/%s/", scheme, t.Claims.Host, port, connID)
}

// TokenParser parses and, when a signing secret is configured, verifies the
// access token handed to the agent. Verification mirrors the teacher's
// JWTHandler.ValidateToken (explicit HS256 algorithm restriction to avoid
// algorithm-confusion attacks); it is optional because the token arrives
// out-of-band from the embedder rather than over an untrusted channel.
type TokenParser struct {
	signingSecret string
	logger        *logging.Logger
}

// NewTokenParser builds a parser. signingSecret may be empty, in which case
// tokens are decoded without signature verification.
func NewTokenParser(signingSecret string, logger *logging.Logger) *TokenParser {
	if logger == nil {
		logger = logging.GetLogger("access-token")
	}
	return &TokenParser{signingSecret: signingSecret, logger: logger}
}

// Parse decodes raw into an AccessToken, verifying its signature when a
// secret was configured.
func (p *TokenParser) Parse(raw string) (*AccessToken, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("access token must not be empty")
	}

	var mapClaims jwt.MapClaims
	if p.signingSecret != "" {
		token, err := jwt.ParseWithClaims(raw, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != "HS256" {
				return nil, fmt.Errorf("unsupported signing method: %v", token.Method.Alg())
			}
			return []byte(p.signingSecret), nil
		})
		if err != nil {
			p.logger.WithError(err).Warn("access token signature validation failed")
			return nil, fmt.Errorf("validate access token: %w", err)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			return nil, fmt.Errorf("invalid access token claims")
		}
		mapClaims = claims
	} else {
		token, _, err := new(jwt.Parser).ParseUnverified(raw, jwt.MapClaims{})
		if err != nil {
			return nil, fmt.Errorf("parse access token: %w", err)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return nil, fmt.Errorf("invalid access token claims")
		}
		mapClaims = claims
	}

	host, _ := mapClaims["host"].(string)
	if host == "" {
		return nil, fmt.Errorf("access token missing host claim")
	}
	httpBase, _ := mapClaims["http_base_uri"].(string)
	if httpBase == "" {
		return nil, fmt.Errorf("access token missing http_base_uri claim")
	}

	claims := AccessTokenClaims{
		Host:        host,
		Port:        intClaim(mapClaims, "port"),
		SecurePort:  intClaim(mapClaims, "secure_port"),
		ProxyURL:    stringClaim(mapClaims, "proxy_url"),
		HTTPBaseURI: httpBase,
	}

	tok := &AccessToken{Raw: raw, Claims: claims}
	if iat := floatClaim(mapClaims, "iat"); iat > 0 {
		tok.IAT = time.Unix(int64(iat), 0)
	}
	if exp := floatClaim(mapClaims, "exp"); exp > 0 {
		tok.EXP = time.Unix(int64(exp), 0)
		if time.Now().After(tok.EXP) {
			p.logger.Warn("access token is expired")
		}
	}

	p.logger.WithFields(logging.Fields{
		"host": claims.Host,
		"port": claims.Port,
	}).Debug("access token parsed")

	return tok, nil
}

func intClaim(m jwt.MapClaims, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}

func floatClaim(m jwt.MapClaims, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}

func stringClaim(m jwt.MapClaims, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
