package endpoints

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

const (
	defaultNewsLimit = 20
	maxNewsLimit     = 100
)

// RegisterNewsEndpoints registers the news listing and manual refresh
func RegisterNewsEndpoints(s *server.Server) {
	s.Router.HandleFunc("/api/news", handleListNews(s.NewsStore, s.Log)).Methods("GET")
	if s.News != nil {
		s.Router.Handle("/api/news/refresh", s.AdminOnly(handleRefreshNews(s.News))).Methods("POST")
	}
}

func handleListNews(news store.NewsStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit := defaultNewsLimit
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}
		if limit > maxNewsLimit {
			limit = maxNewsLimit
		}

		items, err := news.ListItems(q.Get("source"), limit)
		if err != nil {
			respondStoreError(w, log, err, "news item")
			return
		}
		if items == nil {
			items = []model.NewsItem{}
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"items": items})
	}
}

func handleRefreshNews(refresher server.NewsRefresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := refresher.Refresh(r.Context())
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"sources": report})
	}
}
