package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"company-intel/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "key-1", q.Get("key"))
		assert.Equal(t, "cx-1", q.Get("cx"))
		assert.Equal(t, "Acme Corp company news stock performance", q.Get("q"))
		assert.Equal(t, "2", q.Get("num"))

		w.Write([]byte(`{"items": [
			{"link": "https://news.example.com/acme", "title": "Acme shares rise", "snippet": "Acme up 3%"},
			{"link": "https://news.example.com/acme", "title": "duplicate", "snippet": ""},
			{"link": "https://example.com/acme.pdf", "title": "Annual report", "mime": "application/pdf"},
			{"link": "https://www.sec.gov/acme", "title": "Acme filing", "snippet": "10-K"},
			{"link": "https://acme.com/ir", "title": "Acme Investor Relations", "snippet": "IR"}
		]}`))
	}))
	defer server.Close()

	c := NewClient(Config{
		BaseURL:    server.URL,
		APIKey:     "key-1",
		EngineID:   "cx-1",
		Timeout:    time.Second,
		MaxResults: 2,
	}, logger.NewTestLogger(t))

	sources, err := c.Search(context.Background(), "  Acme   Corp ")
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "https://www.sec.gov/acme", sources[0].URL)
	assert.InDelta(t, 1.2, sources[0].Relevance, 1e-9)
	assert.Equal(t, "https://acme.com/ir", sources[1].URL)
	assert.InDelta(t, 1.1, sources[1].Relevance, 1e-9)
}

func TestClient_Search_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, Timeout: 30 * time.Millisecond}, logger.NewNoOpLogger())
	_, err := c.Search(context.Background(), "Acme")
	assert.ErrorIs(t, err, ErrWebSearchTimeout)
}

func TestClient_Search_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, Timeout: time.Second}, logger.NewNoOpLogger())
	_, err := c.Search(context.Background(), "Acme")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrWebSearchTimeout)
	assert.Contains(t, err.Error(), "status 403")
}

func TestProcessResults_MinRelevance(t *testing.T) {
	items := []item{
		{Link: "https://a.example.com", Title: "plain"},
		{Link: "https://b.edu/x", Title: "research"},
	}
	sources := processResults(items, 1.1, 5)
	require.Len(t, sources, 1)
	assert.Equal(t, "https://b.edu/x", sources[0].URL)

	assert.Empty(t, processResults(nil, 0, 5))
}
