package endpoints

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

// WhoamiResponse represents the response from the /api/me endpoint
type WhoamiResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// RegisterWhoamiEndpoints registers /api/me and the admin user listing
func RegisterWhoamiEndpoints(s *server.Server) {
	s.Router.Handle("/api/me", s.Protected(handleWhoami())).Methods("GET")
	s.Router.Handle("/api/users", s.AdminOnly(handleListUsers(s.UsersStore, s.Log))).Methods("GET")
}

func handleWhoami() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := currentIdentity(r)
		if id == nil {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}

		respondWithJSON(w, http.StatusOK, WhoamiResponse{
			ID:    id.UserID,
			Email: id.Email,
			Name:  id.Name,
			Role:  id.Role,
		})
	}
}

func handleListUsers(users store.UsersStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.ListUsers()
		if err != nil {
			respondStoreError(w, log, err, "user")
			return
		}
		if list == nil {
			list = []model.User{}
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"users": list})
	}
}
