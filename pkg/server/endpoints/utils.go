package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/halyard-advisory/halyard/pkg/identity"
	"github.com/halyard-advisory/halyard/pkg/server/httputil"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

const (
	maxBodyBytes = 1 << 20
	dateLayout   = "2006-01-02"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	httputil.RespondJSON(w, code, payload)
}

func respondWithError(w http.ResponseWriter, code int, detail string) {
	httputil.RespondError(w, code, detail)
}

// decodeJSON reads a size-limited JSON body, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("malformed JSON body: %v", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func pathID(r *http.Request, name string) (uint, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return uint(id), nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// parseDate accepts YYYY-MM-DD; nil and empty strings yield nil
func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, fmt.Errorf("must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}

// respondStoreError maps store sentinel errors to HTTP problems
func respondStoreError(w http.ResponseWriter, log logrus.FieldLogger, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, store.ErrConflict):
		respondWithError(w, http.StatusConflict, what+" conflicts with an existing record")
	case errors.Is(err, store.ErrInvalidState):
		respondWithError(w, http.StatusConflict, what+" cannot change from its current status")
	default:
		log.WithError(err).Errorf("%s store error", what)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// currentIdentity returns the authenticated identity; the authenticator
// guarantees one on protected routes.
func currentIdentity(r *http.Request) *identity.Identity {
	id, _ := identity.Get(r.Context())
	return id
}

func clientIP(r *http.Request) string {
	if id := currentIdentity(r); id != nil && id.RemoteIP != nil {
		return id.RemoteIP.String()
	}
	return r.RemoteAddr
}
