/*
Access token generator for the cloud camera agent.

Issues a JWT carrying the claims internal/security.TokenParser expects
(host, port, secure_port, http_base_uri, optional proxy_url), signed
HS256 with the same secret the agent would be configured to verify
against. Intended for local development and integration tests, where
there is no real cloud control plane available to issue one.

Usage:

	go run ./cmd/jwt-generator --host agent-dev.example.com --port 8080 --secure-port 8443 \
	    --http-base-uri https://agent-dev.example.com:9443 --secret-key dev-secret --expiry-hours 24
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	host         = flag.String("host", "127.0.0.1", "Control-channel host embedded in the token")
	port         = flag.Int("port", 8080, "Insecure control-channel port")
	securePort   = flag.Int("secure-port", 8443, "Secure (wss) control-channel port")
	httpBaseURI  = flag.String("http-base-uri", "http://127.0.0.1:9080", "HTTP base URI for direct uploads")
	proxyURL     = flag.String("proxy-url", "", "Optional SOCKS proxy URL")
	secretKey    = flag.String("secret-key", "dev-secret-change-in-production", "HMAC signing secret")
	expiryHours  = flag.Int("expiry-hours", 24, "Token validity in hours")
	outputFormat = flag.String("format", "token", "Output format: token, json")
)

func main() {
	flag.Parse()

	if *expiryHours <= 0 {
		fmt.Fprintln(os.Stderr, "Error: expiry-hours must be positive")
		os.Exit(1)
	}

	now := time.Now()
	exp := now.Add(time.Duration(*expiryHours) * time.Hour)

	claims := jwt.MapClaims{
		"host":          *host,
		"port":          *port,
		"secure_port":   *securePort,
		"http_base_uri": *httpBaseURI,
		"iat":           now.Unix(),
		"exp":           exp.Unix(),
	}
	if *proxyURL != "" {
		claims["proxy_url"] = *proxyURL
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(*secretKey))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to sign access token: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		fmt.Printf(`{
  "token": "%s",
  "host": "%s",
  "http_base_uri": "%s",
  "expires_at": "%s"
}
`, signed, *host, *httpBaseURI, exp.Format(time.RFC3339))
	case "token":
		fmt.Println(signed)
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid output format %q. Valid formats: token, json\n", *outputFormat)
		os.Exit(1)
	}
}
