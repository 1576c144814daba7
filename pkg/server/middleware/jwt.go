package middleware

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/halyard-advisory/halyard/pkg/identity"
	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server/httputil"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

// ErrUnauthorized is returned for any token that fails verification
var ErrUnauthorized = errors.New("unauthorized")

// Claims are the token claims the API relies on
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenVerifier validates a bearer token and returns its claims
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

type jwtVerifier struct {
	keyfunc jwt.Keyfunc
	methods []string
}

// NewJWKSVerifier verifies RS256/ES256 tokens against keys published at
// jwksURL. keyfunc caches the key set and refreshes it in the background
// until ctx is cancelled.
func NewJWKSVerifier(ctx context.Context, jwksURL string) (TokenVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}
	return &jwtVerifier{keyfunc: k.Keyfunc, methods: []string{"RS256", "ES256"}}, nil
}

// NewHMACVerifier verifies HS256 tokens signed with a shared secret. An
// empty secret is refused since any caller could sign with it.
func NewHMACVerifier(secret string) (TokenVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	key := []byte(secret)
	return &jwtVerifier{
		keyfunc: func(*jwt.Token) (interface{}, error) { return key, nil },
		methods: []string{"HS256"},
	}, nil
}

func (v *jwtVerifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyfunc,
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token missing sub claim", ErrUnauthorized)
	}
	return claims, nil
}

// JWTAuthenticator is middleware that validates bearer tokens and resolves
// them to a users row
type JWTAuthenticator struct {
	Verifier TokenVerifier
	Users    store.UsersStore
	// IsAdmin decides the role of users seen for the first time
	IsAdmin func(email string) bool
	Log     logrus.FieldLogger
}

// NewJWTAuthenticator creates a new JWT authenticator middleware
func NewJWTAuthenticator(verifier TokenVerifier, users store.UsersStore, isAdmin func(string) bool, log logrus.FieldLogger) *JWTAuthenticator {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &JWTAuthenticator{Verifier: verifier, Users: users, IsAdmin: isAdmin, Log: log}
}

// bearerToken extracts the token from an "Authorization: Bearer" header
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Middleware returns an HTTP middleware that validates bearer tokens
func (j *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.RespondError(w, http.StatusUnauthorized, "authorization missing")
			return
		}

		tokenStr, ok := bearerToken(authHeader)
		if !ok {
			httputil.RespondError(w, http.StatusUnauthorized, "malformed authorization header")
			return
		}

		claims, err := j.Verifier.Verify(tokenStr)
		if err != nil {
			j.Log.WithError(err).Debug("rejected bearer token")
			httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		user, err := j.ensureUser(claims)
		if errors.Is(err, store.ErrEmailInUse) {
			j.Log.WithField("sub", claims.Subject).Warn("token email belongs to another user")
			httputil.RespondError(w, http.StatusConflict, "email is linked to another account")
			return
		}
		if err != nil {
			j.Log.WithError(err).WithField("sub", claims.Subject).Error("unable to resolve user")
			httputil.RespondError(w, http.StatusInternalServerError, "unable to resolve user")
			return
		}

		id := identity.FromUser(user).WithRemoteIP(ClientIP(r))
		if claims.ExpiresAt != nil {
			id.WithExpiry(claims.ExpiresAt.Time)
		}
		next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
	})
}

// ensureUser retries once when two first requests for a subject race on
// the subject index. Email collisions are not retried.
func (j *JWTAuthenticator) ensureUser(claims *Claims) (*model.User, error) {
	role := model.RoleClient
	if claims.Email != "" && j.IsAdmin(claims.Email) {
		role = model.RoleAdmin
	}

	user, err := j.Users.EnsureUser(claims.Subject, claims.Email, claims.Name, role)
	if errors.Is(err, store.ErrConflict) && !errors.Is(err, store.ErrEmailInUse) {
		user, err = j.Users.EnsureUser(claims.Subject, claims.Email, claims.Name, role)
	}
	return user, err
}

// RequireAdmin rejects requests whose identity is not an admin. It must run
// after the authenticator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			httputil.RespondError(w, http.StatusUnauthorized, "authorization missing")
			return
		}
		if !id.IsAdmin() {
			httputil.RespondError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the request's remote address without its port
func ClientIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}
