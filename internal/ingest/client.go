// Package ingest fetches completed-game records from the balldontlie games
// API: paginated range queries behind a rate limiter and a circuit breaker,
// with linear backoff on 429s.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/signalnoise/nbasignal/internal/domain/facts"
)

// Provider delivers game records for a date range. The pipeline only
// depends on this interface; the HTTP client below is its production
// implementation.
type Provider interface {
	FetchGamesRange(ctx context.Context, start, end time.Time) ([]facts.GameRecord, error)
}

// Client is the balldontlie HTTP provider.
type Client struct {
	baseURL    string
	apiKey     string
	perPage    int
	maxRetries int

	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// Options configure the client; zero values fall back to sane defaults.
type Options struct {
	BaseURL        string
	APIKey         string
	PerPage        int
	RequestsPerSec float64
	MaxRetries     int
	Timeout        time.Duration
}

// NewClient creates a games API client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.balldontlie.io/v1/games"
	}
	if opts.PerPage <= 0 || opts.PerPage > 100 {
		opts.PerPage = 100
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "balldontlie",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("provider circuit breaker state change")
		},
	})

	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		perPage:    opts.PerPage,
		maxRetries: opts.MaxRetries,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
		breaker:    breaker,
	}
}

type apiTeam struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	City     string `json:"city"`
}

type apiGame struct {
	ID               int64   `json:"id"`
	Date             string  `json:"date"`
	Status           string  `json:"status"`
	HomeTeam         apiTeam `json:"home_team"`
	VisitorTeam      apiTeam `json:"visitor_team"`
	HomeTeamScore    *int    `json:"home_team_score"`
	VisitorTeamScore *int    `json:"visitor_team_score"`
}

type apiPage struct {
	Data []apiGame `json:"data"`
	Meta struct {
		TotalPages int `json:"total_pages"`
	} `json:"meta"`
}

// FetchGamesRange pulls every game between start and end (inclusive),
// walking pagination until meta.total_pages is exhausted.
func (c *Client) FetchGamesRange(ctx context.Context, start, end time.Time) ([]facts.GameRecord, error) {
	var out []facts.GameRecord

	for page := 1; ; page++ {
		p, err := c.fetchPage(ctx, start, end, page)
		if err != nil {
			return nil, fmt.Errorf("fetch games page %d: %w", page, err)
		}
		if len(p.Data) == 0 {
			break
		}
		for _, g := range p.Data {
			rec, err := g.record()
			if err != nil {
				log.Warn().Int64("game_id", g.ID).Err(err).Msg("skipping malformed game record")
				continue
			}
			out = append(out, rec)
		}
		if p.Meta.TotalPages == 0 || page >= p.Meta.TotalPages {
			break
		}
	}

	log.Info().
		Str("start", start.Format("2006-01-02")).
		Str("end", end.Format("2006-01-02")).
		Int("games", len(out)).
		Msg("fetched games range")
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, start, end time.Time, page int) (*apiPage, error) {
	params := url.Values{}
	params.Set("start_date", start.Format("2006-01-02"))
	params.Set("end_date", end.Format("2006-01-02"))
	params.Set("per_page", strconv.Itoa(c.perPage))
	params.Set("page", strconv.Itoa(page))
	params.Set("sort", "-date")

	reqURL := c.baseURL + "?" + params.Encode()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.getWithRetry(ctx, reqURL)
	})
	if err != nil {
		return nil, err
	}
	return result.(*apiPage), nil
}

func (c *Client) getWithRetry(ctx context.Context, reqURL string) (*apiPage, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			var page apiPage
			if err := json.Unmarshal(body, &page); err != nil {
				return nil, fmt.Errorf("decode games response: %w", err)
			}
			return &page, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			// Linear backoff; the provider's budget resets quickly.
			wait := time.Duration(attempt+1) * time.Second
			lastErr = fmt.Errorf("rate limited (attempt %d)", attempt+1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}

		default:
			return nil, fmt.Errorf("games API status %d: %s", resp.StatusCode, truncate(string(body), 200))
		}
	}

	return nil, fmt.Errorf("games API failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (g apiGame) record() (facts.GameRecord, error) {
	// The API emits both Z-suffixed timestamps and plain dates.
	var date time.Time
	var err error
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		date, err = time.Parse(layout, g.Date)
		if err == nil {
			break
		}
	}
	if err != nil {
		return facts.GameRecord{}, fmt.Errorf("unparseable game date %q", g.Date)
	}

	rec := facts.GameRecord{
		ID:   g.ID,
		Date: date.UTC(),
		HomeTeam: facts.Team{
			ID:   g.HomeTeam.ID,
			Name: g.HomeTeam.FullName,
			City: g.HomeTeam.City,
		},
		AwayTeam: facts.Team{
			ID:   g.VisitorTeam.ID,
			Name: g.VisitorTeam.FullName,
			City: g.VisitorTeam.City,
		},
	}
	// In-progress games carry partial scores, so score presence alone is
	// not a completion signal. Scores pass through only on final games.
	if g.Status == "Final" {
		rec.HomeScore = g.HomeTeamScore
		rec.AwayScore = g.VisitorTeamScore
	}
	return rec, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
