package integration

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"

	"github.com/halyard-advisory/halyard/pkg/server/middleware"
)

// signToken issues an HS256 token the server accepts with its shared secret
func signToken(email string) (string, error) {
	claims := middleware.Claims{
		Email: email,
		Name:  splitName(email),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "test|" + email,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
}

// iAmSignedInAs signs in and remembers the user's id as "<local part>_id"
func (s *StepsContext) iAmSignedInAs(email string) error {
	token, err := signToken(email)
	if err != nil {
		return err
	}
	s.authToken = token

	if err := s.send(http.MethodGet, "/api/me", nil); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusOK {
		return fmt.Errorf("sign in as %s failed with %d: %s", email, s.response.StatusCode, string(s.responseBody))
	}
	s.vars[userVar(email)] = gjson.GetBytes(s.responseBody, "id").String()
	return nil
}

// hasSignedInBefore registers a user without changing the current identity
func (s *StepsContext) hasSignedInBefore(email string) error {
	current := s.authToken
	defer func() { s.authToken = current }()
	return s.iAmSignedInAs(email)
}

func userVar(email string) string {
	local, _, _ := strings.Cut(strings.ToLower(email), "@")
	return strings.NewReplacer(".", "_", "-", "_", "+", "_").Replace(local) + "_id"
}
