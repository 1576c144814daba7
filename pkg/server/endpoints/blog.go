package endpoints

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/halyard-advisory/halyard/pkg/content"
	"github.com/halyard-advisory/halyard/pkg/server"
)

// RegisterBlogEndpoints registers the blog JSON API and RSS feed
func RegisterBlogEndpoints(s *server.Server) {
	if s.Blog == nil {
		return
	}
	previews := !s.Config.IsProduction()

	s.Router.HandleFunc("/api/blog", handleListPosts(s.Blog)).Methods("GET")
	s.Router.HandleFunc("/api/blog/{slug}", handleGetPost(s.Blog, previews)).Methods("GET")
	s.Router.HandleFunc("/blog/rss.xml", handleBlogFeed(s.Blog, s.Config.SiteURL, s.Log)).Methods("GET")
}

func handleListPosts(lib *content.Library) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts := lib.List()
		if posts == nil {
			posts = []content.Summary{}
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
	}
}

// handleGetPost serves a published post. Outside production, ?preview=true
// also serves drafts.
func handleGetPost(lib *content.Library, previews bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeDrafts := previews && r.URL.Query().Get("preview") == "true"

		post, ok := lib.Get(mux.Vars(r)["slug"], includeDrafts)
		if !ok {
			respondWithError(w, http.StatusNotFound, "post not found")
			return
		}
		respondWithJSON(w, http.StatusOK, post)
	}
}

func handleBlogFeed(lib *content.Library, siteURL string, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		feed, err := lib.Feed(siteURL)
		if err != nil {
			log.WithError(err).Error("unable to render blog feed")
			respondWithError(w, http.StatusInternalServerError, "unable to render feed")
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=300")
		_, _ = w.Write(feed)
	}
}
