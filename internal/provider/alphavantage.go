package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/tickerpulse/tickerpulse/internal/domain/models"
	"github.com/tickerpulse/tickerpulse/internal/logger"
)

const dateLayout = "2006-01-02"

// AlphaVantage is a Provider backed by the Alpha Vantage REST API.
//
// Requests are retried with exponential backoff on network errors, 5xx
// responses, and 429s. Alpha Vantage signals rate limiting and bad symbols in
// the response body with a 200 status, so those are checked after decoding.
type AlphaVantage struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	maxRetries uint64
	baseDelay  time.Duration
}

// NewAlphaVantage builds a client. maxRetries is the number of retries after
// the initial attempt; baseDelay seeds the exponential backoff.
func NewAlphaVantage(baseURL, apiKey string, maxRetries uint64, baseDelay time.Duration) *AlphaVantage {
	return &AlphaVantage{
		baseURL:    baseURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

func (a *AlphaVantage) Name() string { return "alphavantage" }

type globalQuoteResponse struct {
	Quote  map[string]string `json:"Global Quote"`
	Note   string            `json:"Note"`
	ErrMsg string            `json:"Error Message"`
}

// LatestQuote fetches the GLOBAL_QUOTE endpoint and maps it to an Observation.
func (a *AlphaVantage) LatestQuote(ctx context.Context, symbol string) (models.Observation, error) {
	var out globalQuoteResponse
	params := url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
		"apikey":   {a.apiKey},
	}
	if err := a.getJSON(ctx, params, &out); err != nil {
		return models.Observation{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if err := apiError(out.Note, out.ErrMsg); err != nil {
		return models.Observation{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if len(out.Quote) == 0 {
		return models.Observation{}, fmt.Errorf("quote %s: no data", symbol)
	}

	price, err := strconv.ParseFloat(out.Quote["05. price"], 64)
	if err != nil {
		return models.Observation{}, fmt.Errorf("quote %s: invalid price %q", symbol, out.Quote["05. price"])
	}
	asOf, err := time.Parse(dateLayout, out.Quote["07. latest trading day"])
	if err != nil {
		// Price alone is enough to reconcile; keep going without the date.
		logger.L().Warn().Str("symbol", symbol).Msg("quote missing trading day")
	}

	return models.Observation{Symbol: symbol, Price: &price, AsOf: asOf}, nil
}

type dailySeriesResponse struct {
	Series map[string]map[string]string `json:"Time Series (Daily)"`
	Note   string                       `json:"Note"`
	ErrMsg string                       `json:"Error Message"`
}

// DailyHistory fetches TIME_SERIES_DAILY (full output, enough for the 252-day
// lookback) and returns bars sorted ascending by date.
func (a *AlphaVantage) DailyHistory(ctx context.Context, symbol string) ([]models.Bar, error) {
	var out dailySeriesResponse
	params := url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {symbol},
		"outputsize": {"full"},
		"apikey":     {a.apiKey},
	}
	if err := a.getJSON(ctx, params, &out); err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}
	if err := apiError(out.Note, out.ErrMsg); err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}
	if len(out.Series) == 0 {
		return nil, fmt.Errorf("history %s: no data", symbol)
	}

	bars := make([]models.Bar, 0, len(out.Series))
	for day, fields := range out.Series {
		d, err := time.Parse(dateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("history %s: invalid date %q", symbol, day)
		}
		closePx, err := strconv.ParseFloat(fields["4. close"], 64)
		if err != nil {
			return nil, fmt.Errorf("history %s %s: invalid close %q", symbol, day, fields["4. close"])
		}
		highPx, err := strconv.ParseFloat(fields["2. high"], 64)
		if err != nil {
			return nil, fmt.Errorf("history %s %s: invalid high %q", symbol, day, fields["2. high"])
		}
		bars = append(bars, models.Bar{Date: d, Close: closePx, High: highPx})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// getJSON performs a GET with retry/backoff and decodes the body into out.
func (a *AlphaVantage) getJSON(ctx context.Context, params url.Values, out interface{}) error {
	endpoint := a.baseURL + "?" + params.Encode()

	backoff := retry.WithMaxRetries(a.maxRetries, retry.NewExponential(a.baseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}

		resp, err := a.client.Do(req)
		if err != nil {
			logger.L().Warn().Err(err).Msg("provider request failed, will retry")
			return retry.RetryableError(err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			_, _ = io.Copy(io.Discard, resp.Body)
			logger.L().Warn().Int("status", resp.StatusCode).Msg("provider returned retryable status")
			return retry.RetryableError(fmt.Errorf("status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// apiError maps Alpha Vantage in-body failure signals to errors.
func apiError(note, errMsg string) error {
	if errMsg != "" {
		return fmt.Errorf("api error: %s", errMsg)
	}
	if note != "" {
		return fmt.Errorf("rate limited: %s", note)
	}
	return nil
}
