// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/chirp/internal/errors"
	"github.com/R3E-Network/chirp/internal/httputil"
	"github.com/R3E-Network/chirp/internal/logging"
)

// SessionCookie is the cookie the identity provider's frontend SDK stores the
// session token in.
const SessionCookie = "__session"

const clockSkew = 5 * time.Second

// Claims are the session token claims. The subject is the user ID.
type Claims struct {
	SessionID       string `json:"sid,omitempty"`
	AuthorizedParty string `json:"azp,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies session tokens. Requests without a token pass
// through anonymously; RequireUser rejects them where a user is needed.
type AuthMiddleware struct {
	key     interface{}
	methods []string
	issuer  string
	parties map[string]bool
	logger  *logging.Logger
}

// NewRSAAuthMiddleware verifies RS256 tokens signed by the identity provider.
func NewRSAAuthMiddleware(publicKey *rsa.PublicKey, logger *logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{key: publicKey, methods: []string{"RS256"}, logger: logger}
}

// NewHMACAuthMiddleware verifies HS256 tokens. Intended for development.
func NewHMACAuthMiddleware(secret []byte, logger *logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{key: secret, methods: []string{"HS256"}, logger: logger}
}

// ParseRSAPublicKey decodes a PEM encoded RSA public key.
func ParseRSAPublicKey(pemData string) (*rsa.PublicKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemData))
	if err != nil {
		return nil, fmt.Errorf("parse session public key: %w", err)
	}
	return key, nil
}

// WithIssuer requires the iss claim to match.
func (m *AuthMiddleware) WithIssuer(issuer string) *AuthMiddleware {
	m.issuer = issuer
	return m
}

// WithAuthorizedParties restricts the azp claim. Tokens without azp are
// accepted.
func (m *AuthMiddleware) WithAuthorizedParties(parties ...string) *AuthMiddleware {
	if len(parties) == 0 {
		return m
	}
	m.parties = make(map[string]bool, len(parties))
	for _, p := range parties {
		m.parties[p] = true
	}
	return m
}

type authErrorKey struct{}

// Handler attaches the authenticated user ID to the request context. A token
// that fails verification leaves the request anonymous; RequireUser reports
// the failure where a user is needed.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := extractToken(r)
		if err == nil && tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		var claims *Claims
		if err == nil {
			claims, err = m.validateToken(tokenString)
		}
		if err != nil {
			m.logger.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
				"path":   r.URL.Path,
				"method": r.Method,
			}).Debug("session token rejected; continuing anonymously")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authErrorKey{}, err)))
			return
		}

		ctx := logging.WithUserID(r.Context(), claims.Subject)
		m.logger.WithContext(ctx).WithField("session_id", claims.SessionID).Debug("authenticated")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects anonymous requests. When the request carried a token
// that failed verification, the rejection says so.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			if err, ok := r.Context().Value(authErrorKey{}).(error); ok {
				httputil.WriteServiceError(w, r, err)
				return
			}
			httputil.WriteServiceError(w, r, errors.Unauthorized(""))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken prefers the Authorization header and falls back to the
// session cookie.
func extractToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", errors.Unauthorized("Invalid Authorization header format")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value, nil
	}
	return "", nil
}

func (m *AuthMiddleware) validateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(m.methods),
		jwt.WithLeeway(clockSkew),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.key, nil
	}, opts...)
	if err != nil {
		return nil, errors.InvalidToken(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.InvalidToken(nil).WithDetails("reason", "invalid claims")
	}
	if claims.Subject == "" {
		return nil, errors.InvalidToken(nil).WithDetails("reason", "missing subject")
	}
	if m.parties != nil && claims.AuthorizedParty != "" && !m.parties[claims.AuthorizedParty] {
		return nil, errors.InvalidToken(nil).WithDetails("reason", "unauthorized party")
	}
	return claims, nil
}

// GetUserID returns the authenticated user ID, or "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	return logging.GetUserID(ctx)
}
