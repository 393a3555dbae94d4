package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageBody(page, totalPages int, games ...apiGame) []byte {
	var p apiPage
	p.Data = games
	p.Meta.TotalPages = totalPages
	b, _ := json.Marshal(p)
	return b
}

func testGame(id int64, date string, homeScore, awayScore *int) apiGame {
	return apiGame{
		ID:               id,
		Date:             date,
		Status:           "Final",
		HomeTeam:         apiTeam{ID: 1, FullName: "Boston Celtics", City: "Boston"},
		VisitorTeam:      apiTeam{ID: 2, FullName: "Miami Heat", City: "Miami"},
		HomeTeamScore:    homeScore,
		VisitorTeamScore: awayScore,
	}
}

func intp(v int) *int { return &v }

func TestFetchGamesRangeWalksPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		require.Equal(t, "100", r.URL.Query().Get("per_page"))

		switch page {
		case 1:
			w.Write(pageBody(1, 2, testGame(1, "2025-11-01", intp(110), intp(98))))
		case 2:
			w.Write(pageBody(2, 2, testGame(2, "2025-11-02T00:00:00Z", intp(95), intp(99))))
		default:
			t.Errorf("unexpected page %d", page)
		}
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RequestsPerSec: 1000})
	records, err := c.FetchGamesRange(context.Background(),
		time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].ID)
	assert.Equal(t, "Boston", records[0].HomeTeam.City)
	assert.Equal(t, 110, *records[0].HomeScore)
	assert.Equal(t, time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC), records[1].Date)
}

func TestFetchGamesRangeRetriesOn429(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(pageBody(1, 1, testGame(1, "2025-11-01", intp(110), intp(98))))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RequestsPerSec: 1000, MaxRetries: 3})
	records, err := c.FetchGamesRange(context.Background(),
		time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestFetchGamesRangeFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RequestsPerSec: 1000})
	_, err := c.FetchGamesRange(context.Background(), time.Now(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestFetchGamesRangeSendsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		w.Write(pageBody(1, 1))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, APIKey: "secret", RequestsPerSec: 1000})
	_, err := c.FetchGamesRange(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
}

func TestFetchGamesRangeSkipsMalformedDates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(pageBody(1, 1,
			testGame(1, "not-a-date", intp(110), intp(98)),
			testGame(2, "2025-11-01", intp(95), intp(99)),
		))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RequestsPerSec: 1000})
	records, err := c.FetchGamesRange(context.Background(), time.Now(), time.Now())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].ID)
}

func TestInProgressGamesDropPartialScores(t *testing.T) {
	live := testGame(1, "2025-11-01", intp(54), intp(61))
	live.Status = "3rd Qtr"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(pageBody(1, 1, live))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RequestsPerSec: 1000})
	records, err := c.FetchGamesRange(context.Background(), time.Now(), time.Now())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].HomeScore, "partial score must not read as a result")
	assert.False(t, records[0].Completed())
}

func TestScheduledGamesKeepNilScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(pageBody(1, 1, testGame(1, "2025-11-01", nil, nil)))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RequestsPerSec: 1000})
	records, err := c.FetchGamesRange(context.Background(), time.Now(), time.Now())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].HomeScore)
	assert.False(t, records[0].Completed())
}
