package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"
)

const (
	AccessTokenCookie = "access_token"

	accessTokenKey = "access_token"
	subjectKey     = "sub"
)

// KeySetSource supplies the signing keys used to verify access tokens.
type KeySetSource interface {
	KeySet(ctx context.Context) (jwk.Set, error)
}

// CachedKeySet fetches the user pool JWKS and refreshes it in the background.
type CachedKeySet struct {
	url   string
	cache *jwk.Cache
}

func NewCachedKeySet(ctx context.Context, url string, logger zerolog.Logger) (*CachedKeySet, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(url, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("failed to register JWKS URL: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := cache.Refresh(fetchCtx, url); err != nil {
		logger.Warn().Err(err).Str("jwks_url", url).Msg("failed to fetch initial JWKS")
	}

	return &CachedKeySet{url: url, cache: cache}, nil
}

func (k *CachedKeySet) KeySet(ctx context.Context) (jwk.Set, error) {
	return k.cache.Get(ctx, k.url)
}

// StaticKeySet serves a fixed key set.
type StaticKeySet struct {
	Set jwk.Set
}

func (k StaticKeySet) KeySet(context.Context) (jwk.Set, error) {
	return k.Set, nil
}

// TokenMiddleware requires an access token from the Authorization header or
// the access_token cookie. With a key set it also checks the signature,
// expiry, token_use and client_id before the request reaches Cognito.
type TokenMiddleware struct {
	keys     KeySetSource
	clientID string
	logger   zerolog.Logger
}

// NewTokenMiddleware returns a middleware that only extracts the token when
// keys is nil.
func NewTokenMiddleware(keys KeySetSource, clientID string, logger zerolog.Logger) *TokenMiddleware {
	return &TokenMiddleware{
		keys:     keys,
		clientID: clientID,
		logger:   logger,
	}
}

func (m *TokenMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.Request)
		if token == "" {
			if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
				token = cookie
			}
		}
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing access token")
			return
		}

		if m.keys != nil {
			sub, err := m.verify(c.Request.Context(), token)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					c.Abort()
					return
				}
				m.logger.Info().Err(err).Msg("access token rejected")
				abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid access token")
				return
			}
			c.Set(subjectKey, sub)
		}

		c.Set(accessTokenKey, token)
		c.Next()
	}
}

func (m *TokenMiddleware) verify(ctx context.Context, token string) (string, error) {
	keyset, err := m.keys.KeySet(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get JWKS: %w", err)
	}

	parsed, err := jwt.Parse([]byte(token), jwt.WithKeySet(keyset), jwt.WithValidate(true))
	if err != nil {
		return "", err
	}

	if use, _ := claim(parsed, "token_use"); use != "access" {
		return "", fmt.Errorf("unexpected token_use %q", use)
	}
	if m.clientID != "" {
		if id, _ := claim(parsed, "client_id"); id != m.clientID {
			return "", fmt.Errorf("token issued for client %q", id)
		}
	}

	return parsed.Subject(), nil
}

func claim(tok jwt.Token, name string) (string, bool) {
	v, ok := tok.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// extractBearerToken extracts the JWT token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// AccessToken returns the token stored by TokenMiddleware.
func AccessToken(c *gin.Context) string {
	return c.GetString(accessTokenKey)
}

// Subject returns the verified sub claim, or "" when tokens are not verified.
func Subject(c *gin.Context) string {
	return c.GetString(subjectKey)
}

func abortWithError(c *gin.Context, code int, status, message string) {
	c.AbortWithStatusJSON(code, gin.H{
		"error": gin.H{
			"status":  status,
			"message": message,
		},
	})
}
