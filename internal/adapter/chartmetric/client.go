package chartmetric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/ticketera/sellout-forecast/internal/domain"
	"github.com/ticketera/sellout-forecast/internal/observability"
)

// RateLimitBudgetError reports that waiting out 429 responses exceeded the
// configured wait budget. The pipeline treats it as missing data.
type RateLimitBudgetError struct {
	Endpoint string
	Budget   time.Duration
}

func (e *RateLimitBudgetError) Error() string {
	return fmt.Sprintf("chartmetric %s: rate-limit wait budget %s exhausted", e.Endpoint, e.Budget)
}

// Config holds the provider client settings.
type Config struct {
	BaseURL      string
	RefreshToken string
	Timeout      time.Duration

	// Proactive pacing: steady-state request rate, adjusted downward when
	// response metadata reports a shrinking remaining budget.
	RequestsPerSecond float64

	// RateLimitWaitBudget caps the total time spent sleeping on 429
	// responses for one logical request.
	RateLimitWaitBudget time.Duration

	// TransientRetries bounds retries of 5xx responses; RetryDelay is the
	// fixed delay between attempts and the 429 fallback delay when the
	// provider sends no Retry-After.
	TransientRetries int
	RetryDelay       time.Duration
}

// Client implements domain.ArtistMetricsSource against the Chartmetric API.
// Authentication is a bearer token obtained from a refresh-credential
// exchange and renewed shortly before expiry or on a 401.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a Chartmetric client.
func NewClient(cfg Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// ArtistMetrics fetches chart ranks, fan metrics, and Instagram audience
// data for one artist and merges them into a single record. Each endpoint
// degrades independently; the result is nil only when no endpoint returned
// data at all.
func (c *Client) ArtistMetrics(ctx context.Context, artistID int64) (*domain.ArtistMetricsRecord, error) {
	rec := domain.NewArtistMetricsRecord()
	rec.ArtistID = strconv.FormatInt(artistID, 10)
	found := false

	var ranks rankPayload
	ok, err := c.getObj(ctx, "rank", fmt.Sprintf("/artist/%d/rank", artistID), &ranks)
	if err != nil {
		return nil, err
	}
	if ok {
		found = true
		rec.CMRank = rankOrSentinel(ranks.CMRank)
		rec.CountryRank = rankOrSentinel(ranks.CountryRank)
		rec.GenreRank = rankOrSentinel(ranks.GenreRank)
		rec.SubgenreRank = rankOrSentinel(ranks.SubgenreRank)
	}

	var fan fanMetricsPayload
	ok, err = c.getObj(ctx, "stat", fmt.Sprintf("/artist/%d/stat", artistID), &fan)
	if err != nil {
		return nil, err
	}
	if ok {
		found = true
		rec.SpFollowers = fan.SpotifyFollowers
		rec.SpPopularity = fan.SpotifyPopularity
		rec.SpListeners = fan.SpotifyListeners
		rec.SpFollowersToListenersRatio = fan.SpotifyFollowersToListeners
		rec.SpMonthlyListenersMX = fan.SpotifyMonthlyListenersMX
		rec.FBLikes = fan.FacebookLikes
		rec.FBTalks = fan.FacebookTalks
		rec.YTChannelViews = fan.YoutubeChannelViews
		rec.YTSubscribers = fan.YoutubeSubscribers
		rec.YTSubscribersMX = fan.YoutubeSubscribersMX
		rec.YTViews = fan.YoutubeViews
		rec.YTVideos = fan.YoutubeVideos
		rec.TTFollowers = fan.TiktokFollowers
		rec.TTFollowersMX = fan.TiktokFollowersMX
		rec.TTLikes = fan.TiktokLikes
	}

	var ig igAudiencePayload
	ok, err = c.getObj(ctx, "instagram-audience", fmt.Sprintf("/artist/%d/instagram-audience", artistID), &ig)
	if err != nil {
		return nil, err
	}
	if ok {
		found = true
		rec.IGFemaleAudience = ig.FemaleAudiencePct
		rec.IGMaleAudience = ig.MaleAudiencePct
		rec.IGFollowers = ig.Followers
		rec.IGFollowersMX, rec.IGPercentMX = ig.audienceFor("MX")
		rec.IGAvgLikes = ig.AvgLikesPerPost
		rec.IGAvgComments = ig.AvgCommentsPerPost
	}

	if !found {
		return nil, nil
	}
	return rec, nil
}

// getObj performs an authenticated GET and decodes the response's nested
// "obj" payload into out. It returns (false, nil) when the provider has no
// data: a non-recoverable status, an empty obj, or an undecodable body.
// 429 responses are waited out within the configured budget; 5xx responses
// retry a bounded number of times.
func (c *Client) getObj(ctx context.Context, endpoint, path string, out any) (bool, error) {
	var rateLimitWaited time.Duration
	transientLeft := c.cfg.TransientRetries
	refreshedToken := false

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, err
		}

		token, err := c.ensureToken(ctx)
		if err != nil {
			c.metrics.ProviderRequests.WithLabelValues(endpoint, "error").Inc()
			return false, fmt.Errorf("chartmetric %s: %w", endpoint, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
		if err != nil {
			return false, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		c.metrics.ProviderAPIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if err != nil {
			if transientLeft > 0 {
				transientLeft--
				c.metrics.ProviderRetries.WithLabelValues(endpoint, "transient").Inc()
				if sleepErr := c.sleep(ctx, c.cfg.RetryDelay); sleepErr != nil {
					return false, sleepErr
				}
				continue
			}
			c.metrics.ProviderRequests.WithLabelValues(endpoint, "error").Inc()
			return false, fmt.Errorf("chartmetric %s: %w", endpoint, err)
		}

		done, ok, err := c.handleResponse(ctx, endpoint, resp, out, &rateLimitWaited, &transientLeft, &refreshedToken)
		if done {
			return ok, err
		}
	}
}

// handleResponse consumes one HTTP response. done=false means the caller
// should retry the request.
func (c *Client) handleResponse(ctx context.Context, endpoint string, resp *http.Response, out any,
	rateLimitWaited *time.Duration, transientLeft *int, refreshedToken *bool) (done, ok bool, err error) {
	defer resp.Body.Close()

	c.paceFromHeaders(resp)

	switch {
	case resp.StatusCode == http.StatusOK:
		var envelope struct {
			Obj json.RawMessage `json:"obj"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || len(envelope.Obj) == 0 || string(envelope.Obj) == "null" {
			c.metrics.ProviderRequests.WithLabelValues(endpoint, "no_data").Inc()
			return true, false, nil
		}
		if err := json.Unmarshal(envelope.Obj, out); err != nil {
			c.logger.Warn("chartmetric payload undecodable", "endpoint", endpoint, "error", err)
			c.metrics.ProviderRequests.WithLabelValues(endpoint, "no_data").Inc()
			return true, false, nil
		}
		c.metrics.ProviderRequests.WithLabelValues(endpoint, "ok").Inc()
		return true, true, nil

	case resp.StatusCode == http.StatusUnauthorized && !*refreshedToken:
		// Token may have been revoked before its reported expiry.
		*refreshedToken = true
		c.invalidateToken()
		return false, false, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		c.metrics.ProviderRetries.WithLabelValues(endpoint, "rate_limit").Inc()
		delay := retryAfter(resp, c.cfg.RetryDelay)
		if *rateLimitWaited+delay > c.cfg.RateLimitWaitBudget {
			c.metrics.ProviderRequests.WithLabelValues(endpoint, "rate_limited").Inc()
			return true, false, &RateLimitBudgetError{Endpoint: endpoint, Budget: c.cfg.RateLimitWaitBudget}
		}
		*rateLimitWaited += delay
		if err := c.sleep(ctx, delay); err != nil {
			return true, false, err
		}
		return false, false, nil

	case resp.StatusCode >= 500:
		if *transientLeft > 0 {
			*transientLeft--
			c.metrics.ProviderRetries.WithLabelValues(endpoint, "transient").Inc()
			if err := c.sleep(ctx, c.cfg.RetryDelay); err != nil {
				return true, false, err
			}
			return false, false, nil
		}
		c.metrics.ProviderRequests.WithLabelValues(endpoint, "error").Inc()
		return true, false, fmt.Errorf("chartmetric %s: status %d after retries", endpoint, resp.StatusCode)

	default:
		c.logger.Warn("chartmetric unexpected status", "endpoint", endpoint, "status", resp.StatusCode)
		c.metrics.ProviderRequests.WithLabelValues(endpoint, "no_data").Inc()
		return true, false, nil
	}
}

// paceFromHeaders slows the limiter when the provider reports a shrinking
// remaining budget, so steady-state traffic never trips the hard limit.
func (c *Client) paceFromHeaders(resp *http.Response) {
	remaining, err1 := strconv.ParseFloat(resp.Header.Get("X-RateLimit-Remaining"), 64)
	resetSecs, err2 := strconv.ParseFloat(resp.Header.Get("X-RateLimit-Reset"), 64)
	if err1 != nil || err2 != nil || resetSecs <= 0 {
		return
	}
	paced := remaining / resetSecs
	if paced <= 0 {
		paced = 0.1
	}
	if paced < c.cfg.RequestsPerSecond {
		c.limiter.SetLimit(rate.Limit(paced))
	} else {
		c.limiter.SetLimit(rate.Limit(c.cfg.RequestsPerSecond))
	}
}

func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

// ensureToken returns a valid bearer token, exchanging the refresh
// credential when none is cached or the cached one is near expiry.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.clock.Now().Add(time.Minute).Before(c.tokenExpiry) {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{"refreshtoken": c.cfg.RefreshToken})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange: status %d", resp.StatusCode)
	}

	var payload struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.Token == "" {
		return "", fmt.Errorf("token exchange: empty token")
	}

	c.token = payload.Token
	c.tokenExpiry = c.clock.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(d):
		return nil
	}
}

func rankOrSentinel(v *float64) float64 {
	if v == nil {
		return domain.UnrankedSentinel
	}
	return *v
}

// Chartmetric API response payloads.

type rankPayload struct {
	CMRank       *float64 `json:"cm_artist_rank"`
	CountryRank  *float64 `json:"country_rank"`
	GenreRank    *float64 `json:"genre_rank"`
	SubgenreRank *float64 `json:"subgenre_rank"`
}

type fanMetricsPayload struct {
	SpotifyFollowers            *float64 `json:"spotify_followers"`
	SpotifyPopularity           *float64 `json:"spotify_popularity"`
	SpotifyListeners            *float64 `json:"spotify_listeners"`
	SpotifyFollowersToListeners *float64 `json:"spotify_followers_to_listeners_ratio"`
	SpotifyMonthlyListenersMX   *float64 `json:"spotify_monthly_listeners_mx"`
	FacebookLikes               *float64 `json:"facebook_likes"`
	FacebookTalks               *float64 `json:"facebook_talks"`
	YoutubeChannelViews         *float64 `json:"youtube_channel_views"`
	YoutubeSubscribers          *float64 `json:"youtube_subscribers"`
	YoutubeSubscribersMX        *float64 `json:"youtube_subscribers_mx"`
	YoutubeViews                *float64 `json:"youtube_views"`
	YoutubeVideos               *float64 `json:"youtube_videos"`
	TiktokFollowers             *float64 `json:"tiktok_followers"`
	TiktokFollowersMX           *float64 `json:"tiktok_followers_mx"`
	TiktokLikes                 *float64 `json:"tiktok_likes"`
}

type igAudiencePayload struct {
	FemaleAudiencePct  *float64         `json:"female_audience_pct"`
	MaleAudiencePct    *float64         `json:"male_audience_pct"`
	Followers          *float64         `json:"followers"`
	AvgLikesPerPost    *float64         `json:"avg_likes_per_post"`
	AvgCommentsPerPost *float64         `json:"avg_comments_per_post"`
	TopCountries       []countryAudience `json:"top_countries"`
}

type countryAudience struct {
	Code      string   `json:"code"`
	Followers *float64 `json:"followers"`
	Percent   *float64 `json:"percent"`
}

// audienceFor extracts the follower count and audience share for one
// country code from the top-countries list. Absent entries yield nils, not
// zeros, so defaulting stays with the Assembler.
func (p igAudiencePayload) audienceFor(code string) (followers, percent *float64) {
	for _, c := range p.TopCountries {
		if c.Code == code {
			return c.Followers, c.Percent
		}
	}
	return nil, nil
}
