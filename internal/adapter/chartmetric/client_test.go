package chartmetric

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketera/sellout-forecast/internal/domain"
	"github.com/ticketera/sellout-forecast/internal/observability"
)

const testRefreshToken = "refresh-secret"

func testClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:             baseURL,
		RefreshToken:        testRefreshToken,
		Timeout:             5 * time.Second,
		RequestsPerSecond:   1000,
		RateLimitWaitBudget: 500 * time.Millisecond,
		TransientRetries:    2,
		RetryDelay:          time.Millisecond,
	}, clockwork.NewRealClock(), slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

// newProviderMux returns a mux with a working token endpoint. Tests add
// artist endpoints on top.
func newProviderMux(tokenCalls *atomic.Int64) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if tokenCalls != nil {
			tokenCalls.Add(1)
		}
		fmt.Fprint(w, `{"token": "bearer-1", "expires_in": 3600}`)
	})
	return mux
}

func serveObj(w http.ResponseWriter, obj string) {
	fmt.Fprintf(w, `{"obj": %s}`, obj)
}

func TestClient_ArtistMetrics_MergesEndpoints(t *testing.T) {
	mux := newProviderMux(nil)
	mux.HandleFunc("/artist/42/rank", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer bearer-1", r.Header.Get("Authorization"))
		serveObj(w, `{"cm_artist_rank": 120, "country_rank": 8}`)
	})
	mux.HandleFunc("/artist/42/stat", func(w http.ResponseWriter, _ *http.Request) {
		serveObj(w, `{"spotify_followers": 2500000, "tiktok_likes": 900000}`)
	})
	mux.HandleFunc("/artist/42/instagram-audience", func(w http.ResponseWriter, _ *http.Request) {
		serveObj(w, `{
			"followers": 1200000,
			"female_audience_pct": 0.61,
			"top_countries": [
				{"code": "US", "followers": 200000, "percent": 0.17},
				{"code": "MX", "followers": 480000, "percent": 0.4}
			]
		}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rec, err := testClient(srv.URL).ArtistMetrics(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "42", rec.ArtistID)
	assert.Equal(t, 120.0, rec.CMRank)
	assert.Equal(t, 8.0, rec.CountryRank)
	assert.Equal(t, float64(domain.UnrankedSentinel), rec.GenreRank, "missing rank maps to sentinel")

	require.NotNil(t, rec.SpFollowers)
	assert.Equal(t, 2500000.0, *rec.SpFollowers)
	require.NotNil(t, rec.TTLikes)
	assert.Equal(t, 900000.0, *rec.TTLikes)

	require.NotNil(t, rec.IGFollowersMX)
	assert.Equal(t, 480000.0, *rec.IGFollowersMX)
	require.NotNil(t, rec.IGPercentMX)
	assert.Equal(t, 0.4, *rec.IGPercentMX)
	assert.Nil(t, rec.SpListeners, "unreported metric stays null")
}

func TestClient_ArtistMetrics_RateLimitedThenSuccess(t *testing.T) {
	var rankCalls atomic.Int64
	mux := newProviderMux(nil)
	mux.HandleFunc("/artist/7/rank", func(w http.ResponseWriter, _ *http.Request) {
		if rankCalls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		serveObj(w, `{"cm_artist_rank": 55}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		serveObj(w, `{}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rec, err := testClient(srv.URL).ArtistMetrics(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, int64(3), rankCalls.Load(), "two rate-limited attempts then success")
	assert.Equal(t, 55.0, rec.CMRank)
}

func TestClient_ArtistMetrics_RateLimitBudgetExhausted(t *testing.T) {
	mux := newProviderMux(nil)
	mux.HandleFunc("/artist/7/rank", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rec, err := testClient(srv.URL).ArtistMetrics(context.Background(), 7)
	require.Error(t, err)
	assert.Nil(t, rec)

	var budgetErr *RateLimitBudgetError
	require.ErrorAs(t, err, &budgetErr)
	assert.Equal(t, "rank", budgetErr.Endpoint)
	assert.Equal(t, 500*time.Millisecond, budgetErr.Budget)
}

func TestClient_ArtistMetrics_TransientRetries(t *testing.T) {
	var statCalls atomic.Int64
	mux := newProviderMux(nil)
	mux.HandleFunc("/artist/9/stat", func(w http.ResponseWriter, _ *http.Request) {
		if statCalls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		serveObj(w, `{"spotify_followers": 100}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		serveObj(w, `{}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rec, err := testClient(srv.URL).ArtistMetrics(context.Background(), 9)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(3), statCalls.Load())
	require.NotNil(t, rec.SpFollowers)
	assert.Equal(t, 100.0, *rec.SpFollowers)
}

func TestClient_ArtistMetrics_TransientRetriesExhausted(t *testing.T) {
	mux := newProviderMux(nil)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/token") {
			fmt.Fprint(w, `{"token": "bearer-1", "expires_in": 3600}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rec, err := testClient(srv.URL).ArtistMetrics(context.Background(), 9)
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.Contains(t, err.Error(), "status 500")
}

func TestClient_ArtistMetrics_NoDataAnywhere(t *testing.T) {
	mux := newProviderMux(nil)
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"obj": null}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rec, err := testClient(srv.URL).ArtistMetrics(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, rec, "no endpoint had data")
}

func TestClient_ArtistMetrics_NotFoundIsNoData(t *testing.T) {
	mux := newProviderMux(nil)
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rec, err := testClient(srv.URL).ArtistMetrics(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestClient_TokenReuse(t *testing.T) {
	var tokenCalls atomic.Int64
	mux := newProviderMux(&tokenCalls)
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		serveObj(w, `{"cm_artist_rank": 1}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.ArtistMetrics(context.Background(), 1)
	require.NoError(t, err)
	_, err = c.ArtistMetrics(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, int64(1), tokenCalls.Load(), "cached token covers all requests")
}

func TestClient_RefreshesTokenOn401(t *testing.T) {
	var tokenCalls, rankCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"token": "bearer-%d", "expires_in": 3600}`, tokenCalls.Add(1))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if rankCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer bearer-2", r.Header.Get("Authorization"))
		serveObj(w, `{"cm_artist_rank": 3}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rec, err := testClient(srv.URL).ArtistMetrics(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 3.0, rec.CMRank)
	assert.Equal(t, int64(2), tokenCalls.Load(), "401 forces one token refresh")
}

func TestClient_TokenExchangeFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := testClient(srv.URL).ArtistMetrics(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token exchange")
}

func TestClient_PacesFromRateLimitHeaders(t *testing.T) {
	c := testClient("http://unused")

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-RateLimit-Remaining", "5")
	resp.Header.Set("X-RateLimit-Reset", "10")
	c.paceFromHeaders(resp)
	assert.InDelta(t, 0.5, float64(c.limiter.Limit()), 1e-9, "limiter paced to remaining/reset")

	// A recovered budget restores the configured steady-state rate, never more.
	resp.Header.Set("X-RateLimit-Remaining", "1000000")
	resp.Header.Set("X-RateLimit-Reset", "1")
	c.paceFromHeaders(resp)
	assert.InDelta(t, 1000, float64(c.limiter.Limit()), 1e-9)

	// Missing headers leave the limiter alone.
	c.paceFromHeaders(&http.Response{Header: http.Header{}})
	assert.InDelta(t, 1000, float64(c.limiter.Limit()), 1e-9)
}

func TestRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	assert.Equal(t, time.Millisecond, retryAfter(resp, time.Millisecond))

	resp.Header.Set("Retry-After", "2")
	assert.Equal(t, 2*time.Second, retryAfter(resp, time.Millisecond))

	resp.Header.Set("Retry-After", "soon")
	assert.Equal(t, time.Millisecond, retryAfter(resp, time.Millisecond))
}
