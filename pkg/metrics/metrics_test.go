package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandler_LabelsByRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(InstrumentHandler)
	router.HandleFunc("/api/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/projects/{id}", "418"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/42", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/projects/{id}", "418"))
	assert.Equal(t, before+1, after)
}

func TestRecordFeedFetch(t *testing.T) {
	before := testutil.ToFloat64(feedItems.WithLabelValues("lab"))
	RecordFeedFetch("lab", 3, nil)
	assert.Equal(t, before+3, testutil.ToFloat64(feedItems.WithLabelValues("lab")))

	failures := testutil.ToFloat64(feedFailures.WithLabelValues("lab"))
	RecordFeedFetch("lab", 0, errors.New("timeout"))
	assert.Equal(t, failures+1, testutil.ToFloat64(feedFailures.WithLabelValues("lab")))
}

func TestRecordDocument(t *testing.T) {
	DocumentStarted()
	before := testutil.ToFloat64(documentJobs.WithLabelValues("completed"))
	RecordDocument("completed", 2*time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(documentJobs.WithLabelValues("completed")))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "halyard_http_inflight_requests")
}
