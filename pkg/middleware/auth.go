package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// ErrUnauthenticated indicates the request carried no usable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

type userKey struct{}

// AuthConfig controls how the caller's user ID is established.
// When Enabled is false the UserHeader value is trusted as-is.
type AuthConfig struct {
	Enabled    bool   `toml:"enabled"`
	IssuerURL  string `toml:"issuer_url"`
	ClientID   string `toml:"client_id"`
	UserHeader string `toml:"user_header"`
}

// AuthEnv maps auth config fields to environment variable names for override injection.
type AuthEnv struct {
	Enabled    string
	IssuerURL  string
	ClientID   string
	UserHeader string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AuthConfig) Finalize(env *AuthEnv) error {
	if c.UserHeader == "" {
		c.UserHeader = "X-User-ID"
	}
	if env != nil {
		if v := os.Getenv(env.Enabled); env.Enabled != "" && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = b
			}
		}
		if v := os.Getenv(env.IssuerURL); env.IssuerURL != "" && v != "" {
			c.IssuerURL = v
		}
		if v := os.Getenv(env.ClientID); env.ClientID != "" && v != "" {
			c.ClientID = v
		}
		if v := os.Getenv(env.UserHeader); env.UserHeader != "" && v != "" {
			c.UserHeader = v
		}
	}
	if c.Enabled && (c.IssuerURL == "" || c.ClientID == "") {
		return fmt.Errorf("issuer_url and client_id required when auth is enabled")
	}
	return nil
}

// Merge overwrites fields from overlay. Enabled always applies.
func (c *AuthConfig) Merge(overlay *AuthConfig) {
	c.Enabled = overlay.Enabled
	if overlay.IssuerURL != "" {
		c.IssuerURL = overlay.IssuerURL
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.UserHeader != "" {
		c.UserHeader = overlay.UserHeader
	}
}

// TokenVerifier resolves a raw bearer token to a subject.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (string, error)
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer's keys and returns a verifier for ID tokens
// issued to clientID.
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID string) (TokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return &oidcVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (v *oidcVerifier) Verify(ctx context.Context, raw string) (string, error) {
	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return "", err
	}
	return token.Subject, nil
}

// Auth returns middleware that places the caller's user ID on the request context.
// With a nil verifier the configured header is trusted.
func Auth(cfg *AuthConfig, verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID string

			if verifier == nil {
				userID = strings.TrimSpace(r.Header.Get(cfg.UserHeader))
			} else {
				raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
				if ok {
					sub, err := verifier.Verify(r.Context(), strings.TrimSpace(raw))
					if err != nil {
						logger.Warn("token verification failed", "error", err)
					}
					userID = sub
				}
			}

			if userID == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": ErrUnauthenticated.Error()})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID returns the user ID placed on ctx by Auth.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}
