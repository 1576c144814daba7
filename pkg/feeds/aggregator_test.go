package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/halyard-advisory/halyard/pkg/model"
)

const rssFixture = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Lab</title>
<item><title>First</title><link>https://lab.example.com/1</link><guid>g1</guid>
<description>&lt;p&gt;One&lt;/p&gt;</description><pubDate>Mon, 24 Feb 2025 10:00:00 GMT</pubDate></item>
<item><title>First again</title><link>https://lab.example.com/1</link><guid>g1</guid></item>
<item><description>no title or link</description></item>
</channel></rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"><title>Notes</title>
<entry><title>Atom entry</title><link href="https://notes.example.com/a"/><id>tag:notes,2025:a</id>
<updated>2025-02-25T09:00:00Z</updated><summary>Summary text</summary></entry>
</feed>`

type mockNewsStore struct {
	mock.Mock
}

func (m *mockNewsStore) UpsertItems(items []model.NewsItem) (int, error) {
	args := m.Called(items)
	return args.Int(0), args.Error(1)
}

func (m *mockNewsStore) ListItems(source string, limit int) ([]model.NewsItem, error) {
	args := m.Called(source, limit)
	return args.Get(0).([]model.NewsItem), args.Error(1)
}

func (m *mockNewsStore) PruneOlderThan(t time.Time) (int64, error) {
	args := m.Called(t)
	return args.Get(0).(int64), args.Error(1)
}

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	})
	mux.HandleFunc("/atom", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atomFixture))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAggregator_Refresh(t *testing.T) {
	srv := feedServer(t)
	logger, _ := test.NewNullLogger()
	news := &mockNewsStore{}

	news.On("UpsertItems", mock.MatchedBy(func(items []model.NewsItem) bool {
		return len(items) == 1 && items[0].GUID == "g1" && items[0].Summary == "One"
	})).Return(1, nil).Once()
	news.On("UpsertItems", mock.MatchedBy(func(items []model.NewsItem) bool {
		return len(items) == 1 && items[0].GUID == "tag:notes,2025:a" &&
			items[0].PublishedAt.Equal(time.Date(2025, 2, 25, 9, 0, 0, 0, time.UTC))
	})).Return(1, nil).Once()
	news.On("PruneOlderThan", mock.Anything).Return(int64(0), nil)

	agg := NewAggregator([]Source{
		{Name: "lab", URL: srv.URL + "/rss"},
		{Name: "broken", URL: srv.URL + "/broken"},
		{Name: "notes", URL: srv.URL + "/atom"},
	}, NewHTTPFetcher(srv.Client()), news, logger)

	report := agg.Refresh(context.Background())

	require.Len(t, report, 3)
	assert.Equal(t, 1, report["lab"].Items)
	assert.Equal(t, 1, report["notes"].Items)
	assert.NotEmpty(t, report["broken"].Error)
	news.AssertExpectations(t)
}

func TestAggregator_Run_StopsOnCancel(t *testing.T) {
	srv := feedServer(t)
	logger, _ := test.NewNullLogger()
	news := &mockNewsStore{}
	refreshed := make(chan struct{}, 1)
	news.On("UpsertItems", mock.Anything).Return(1, nil)
	news.On("PruneOlderThan", mock.Anything).Return(int64(0), nil).Run(func(mock.Arguments) {
		select {
		case refreshed <- struct{}{}:
		default:
		}
	})

	agg := NewAggregator([]Source{{Name: "lab", URL: srv.URL + "/rss"}}, NewHTTPFetcher(srv.Client()), news, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		agg.Run(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("initial refresh did not run")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
