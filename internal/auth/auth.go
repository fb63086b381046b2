// Package auth decides whether a request may use the queue endpoints.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"
)

const bearerPrefix = "Bearer "

// Gate accepts a static API key (X-API-Key header or bearer token) or a
// bearer JWT signed with the shared HMAC secret. Empty credentials disable
// the corresponding check.
type Gate struct {
	apiKey    string
	jwtSecret []byte
}

func NewGate(apiKey, jwtSecret string) *Gate {
	g := &Gate{apiKey: apiKey}
	if jwtSecret != "" {
		g.jwtSecret = []byte(jwtSecret)
	}
	return g
}

// Authorized reports whether any configured check accepts r.
func (g *Gate) Authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	token, hasBearer := strings.CutPrefix(header, bearerPrefix)

	if g.apiKey != "" {
		if r.Header.Get("X-API-Key") == g.apiKey {
			return true
		}
		if hasBearer && token == g.apiKey {
			return true
		}
	}

	if g.jwtSecret != nil && hasBearer {
		if err := g.verify(token); err != nil {
			slog.Warn("JWT verification failed", "error", err)
			return false
		}
		return true
	}

	return false
}

func (g *Gate) verify(token string) error {
	_, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.jwtSecret, nil
	})
	return err
}
