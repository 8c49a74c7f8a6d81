package chi

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/leadsearch/internal/logger"
)

// ClientIDHeader identifies the caller when no JWT subject is available.
const ClientIDHeader = "X-Client-ID"

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

type (
	ownerKey   struct{}
	subjectKey struct{}
)

// ContextWithOwner stores the caller identity used to scope search history.
func ContextWithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext returns the caller identity, or "" when unknown.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// SubjectFromContext returns the verified JWT subject, or "" when the request
// was not authenticated by a JWT. Unlike the owner it never comes from a header.
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey{}).(string)
	return subject
}

// AuthConfig configures BearerAuthMiddleware.
type AuthConfig struct {
	APIKeys []string
	// JWTSecret enables HS256 bearer tokens. The token subject becomes the owner.
	JWTSecret string
}

// BearerAuthMiddleware validates Bearer tokens as static API keys or HS256 JWTs.
// If neither keys nor a secret are configured, authentication is disabled and
// only the X-Client-ID owner is resolved.
func BearerAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}
	secret := []byte(cfg.JWTSecret)

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 && len(secret) == 0 {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, withOwner(r, ""))
			})
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			token := auth[len(bearerPrefix):]
			if _, ok := validKeys[token]; ok {
				next.ServeHTTP(w, withOwner(r, ""))
				return
			}
			if len(secret) > 0 {
				if subject, ok := verifyJWT(token, secret); ok {
					next.ServeHTTP(w, withOwner(r, subject))
					return
				}
			}

			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid credentials")
		})
	}
}

// verifyJWT checks an HS256 token and returns its subject.
func verifyJWT(token string, secret []byte) (string, bool) {
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", false
	}
	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", false
	}
	return subject, true
}

// withOwner resolves the owner as the JWT subject, falling back to X-Client-ID.
func withOwner(r *http.Request, subject string) *http.Request {
	owner := subject
	if owner == "" {
		owner = strings.TrimSpace(r.Header.Get(ClientIDHeader))
	}
	if owner == "" {
		return r
	}
	ctx := logger.WithFields(r.Context(), zap.String("owner", owner))
	if subject != "" {
		ctx = context.WithValue(ctx, subjectKey{}, subject)
	}
	return r.WithContext(ContextWithOwner(ctx, owner))
}
