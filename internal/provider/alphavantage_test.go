package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const quoteBody = `{
  "Global Quote": {
    "01. symbol": "AAPL",
    "05. price": "170.5000",
    "07. latest trading day": "2025-06-02"
  }
}`

const dailyBody = `{
  "Meta Data": {"2. Symbol": "AAPL"},
  "Time Series (Daily)": {
    "2025-06-02": {"2. high": "172.0000", "4. close": "170.5000"},
    "2025-05-30": {"2. high": "169.0000", "4. close": "168.2500"},
    "2025-06-03": {"2. high": "174.0000", "4. close": "173.1000"}
  }
}`

func newClient(url string) *AlphaVantage {
	return NewAlphaVantage(url, "test-key", 2, time.Millisecond)
}

func TestLatestQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("function") != "GLOBAL_QUOTE" {
			t.Errorf("unexpected function %q", r.URL.Query().Get("function"))
		}
		if r.URL.Query().Get("apikey") != "test-key" {
			t.Errorf("missing api key")
		}
		_, _ = w.Write([]byte(quoteBody))
	}))
	defer srv.Close()

	obs, err := newClient(srv.URL).LatestQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("LatestQuote: %v", err)
	}
	if obs.Symbol != "AAPL" || obs.Price == nil || *obs.Price != 170.5 {
		t.Fatalf("unexpected observation %+v", obs)
	}
	if obs.AsOf.Format("2006-01-02") != "2025-06-02" {
		t.Fatalf("asOf: got %v", obs.AsOf)
	}
}

func TestDailyHistory_SortedAscending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("outputsize") != "full" {
			t.Errorf("expected full output size")
		}
		_, _ = w.Write([]byte(dailyBody))
	}))
	defer srv.Close()

	bars, err := newClient(srv.URL).DailyHistory(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("DailyHistory: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("want 3 bars got %d", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			t.Fatalf("bars not ascending: %v then %v", bars[i-1].Date, bars[i].Date)
		}
	}
	last := bars[len(bars)-1]
	if last.Close != 173.1 || last.High != 174 {
		t.Fatalf("unexpected last bar %+v", last)
	}
}

func TestRetry_RecoversFromTransientFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(quoteBody))
	}))
	defer srv.Close()

	obs, err := newClient(srv.URL).LatestQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("LatestQuote after retry: %v", err)
	}
	if obs.Price == nil || *obs.Price != 170.5 {
		t.Fatalf("unexpected observation %+v", obs)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("want 2 attempts got %d", got)
	}
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := newClient(srv.URL).LatestQuote(context.Background(), "AAPL"); err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	// initial attempt + 2 retries
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("want 3 attempts got %d", got)
	}
}

func TestAPIFailuresInBody(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "error message", body: `{"Error Message": "Invalid API call"}`},
		{name: "rate limit note", body: `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`},
		{name: "empty quote", body: `{"Global Quote": {}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			if _, err := newClient(srv.URL).LatestQuote(context.Background(), "AAPL"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := newClient(srv.URL).LatestQuote(context.Background(), "AAPL"); err == nil {
		t.Fatalf("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", got)
	}
}
