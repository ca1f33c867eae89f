package trolley

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"trolleymatch/domain/match"
	"trolleymatch/internal"
	"trolleymatch/internal/config"
	"trolleymatch/internal/errors"
	"trolleymatch/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string, retries int) *Client {
	t.Helper()
	client, err := NewClient(config.ScraperConfig{
		BaseURL:    baseURL,
		Timeout:    2 * time.Second,
		MaxRetries: retries,
		UserAgent:  "trolleymatch-test",
	}, internal.NewLoggerTo(testWriter{t}, internal.LogLevelError))
	require.NoError(t, err)
	return client
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestClient_SearchURL(t *testing.T) {
	client := newTestClient(t, "https://www.trolley.co.uk", 1)

	assert.Equal(t,
		"https://www.trolley.co.uk/search/?from=search&q=Heineken+15+x+440ml",
		client.SearchURL("Heineken 15 x 440ml"))
}

func TestClient_Search(t *testing.T) {
	var gotQuery, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotAgent = r.UserAgent()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(testkit.SearchPageHTML([]match.Product{
			{Brand: "Heineken", Description: "Premium Lager", Size: "440ml", Quantity: "15", Price: "£14.00", URL: "/product/heineken"},
		})))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 1)
	products, searchURL, err := client.Search(context.Background(), "Heineken 15 x 440ml")
	require.NoError(t, err)

	assert.Equal(t, "Heineken 15 x 440ml", gotQuery)
	assert.Equal(t, "trolleymatch-test", gotAgent)
	assert.Equal(t, client.SearchURL("Heineken 15 x 440ml"), searchURL)
	require.Len(t, products, 1)
	assert.Equal(t, "Heineken", products[0].Brand)
	assert.Equal(t, server.URL+"/product/heineken", products[0].URL)
	assert.Equal(t, searchURL, products[0].SearchURL)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(testkit.SearchPageHTML(nil)))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)
	products, _, err := client.Search(context.Background(), "Anything")
	require.NoError(t, err)

	assert.Empty(t, products)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	_, searchURL, err := client.Search(context.Background(), "Anything")
	require.Error(t, err)

	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.NotEmpty(t, searchURL)
}

func TestClient_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testkit.SearchPageHTML(nil)))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, server.URL, 3)
	_, _, err := client.Search(ctx, "Anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_BadSelectorsFile(t *testing.T) {
	_, err := NewClient(config.ScraperConfig{
		BaseURL:       "https://www.trolley.co.uk",
		SelectorsFile: "/does/not/exist.yaml",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
