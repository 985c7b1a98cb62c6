// Package weather is a client for the weatherapi.com v1 REST API.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// API Docs: https://www.weatherapi.com/docs/
// Sample request: https://api.weatherapi.com/v1/forecast.json?key=KEY&q=London&days=3&aqi=no&alerts=no
const (
	DefaultBaseURL      = "https://api.weatherapi.com/v1"
	DefaultTimeout      = 15 * time.Second
	DefaultForecastDays = 3
)

// Config holds client settings.
type Config struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration // applied to each request
	ForecastDays int
}

// Client issues the current-conditions and forecast requests.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	forecastDays int
	logger       *slog.Logger
}

// NewClient creates a client, filling unset fields with defaults.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ForecastDays <= 0 {
		cfg.ForecastDays = DefaultForecastDays
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		forecastDays: cfg.ForecastDays,
		logger:       logger,
	}
}

// Current fetches current conditions for a free-text location.
func (c *Client) Current(ctx context.Context, query string) (*CurrentResponse, error) {
	params := url.Values{}
	params.Set("aqi", "no")

	var out CurrentResponse
	if err := c.get(ctx, "current", "current.json", query, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Forecast fetches the N-day forecast for a free-text location.
func (c *Client) Forecast(ctx context.Context, query string) (*ForecastResponse, error) {
	params := url.Values{}
	params.Set("days", strconv.Itoa(c.forecastDays))
	params.Set("aqi", "no")
	params.Set("alerts", "no")

	var out ForecastResponse
	if err := c.get(ctx, "forecast", "forecast.json", query, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Lookup fetches current conditions, then the forecast, and merges them.
// A provider error on the first call skips the second; any forecast
// failure fails the whole lookup.
func (c *Client) Lookup(ctx context.Context, query string) (*Report, error) {
	cur, err := c.Current(ctx, query)
	if err != nil {
		return nil, err
	}

	fc, err := c.Forecast(ctx, query)
	if err != nil {
		return nil, err
	}

	days, err := forecastDays(fc)
	if err != nil {
		return nil, &TransportError{Op: "forecast", Err: err}
	}

	return newReport(cur, days), nil
}

func (c *Client) get(ctx context.Context, op, endpoint, query string, params url.Values, out any) error {
	u, err := url.Parse(c.baseURL + "/" + endpoint)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to parse base URL: %w", err)}
	}

	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("q", query)
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	c.logger.Debug("weather request", "endpoint", endpoint, "query", query)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(op, redactKey(err))
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(op, fmt.Errorf("failed to read response: %w", err))
	}

	// The provider reports errors in-band, sometimes with a 200 status
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		return &APIError{Message: env.Error.Message, Code: env.Error.Code}
	}

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Op: op, Err: fmt.Errorf("fetch returned status %d: %s", resp.StatusCode, truncate(body, 200))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func classify(op string, err error) error {
	if isTimeout(err) {
		return &TimeoutError{Op: op, Err: err}
	}
	return &TransportError{Op: op, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// redactKey strips the API key from the URL embedded in transport errors.
func redactKey(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	if u, perr := url.Parse(urlErr.URL); perr == nil {
		q := u.Query()
		if q.Has("key") {
			q.Set("key", "REDACTED")
			u.RawQuery = q.Encode()
			urlErr.URL = u.String()
		}
	}
	return err
}

func forecastDays(fc *ForecastResponse) ([]ForecastDay, error) {
	raw := fc.Forecast.ForecastDay
	if len(raw) == 0 {
		return nil, errors.New("forecast contains no days")
	}

	days := make([]ForecastDay, 0, len(raw))
	for _, d := range raw {
		date, err := time.Parse(time.DateOnly, d.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid forecast date %q: %w", d.Date, err)
		}
		days = append(days, ForecastDay{
			Date:     date,
			MaxTempC: d.Day.MaxTempC,
			MinTempC: d.Day.MinTempC,
		})
	}

	slices.SortFunc(days, func(a, b ForecastDay) int {
		return a.Date.Compare(b.Date)
	})
	return days, nil
}

func newReport(cur *CurrentResponse, days []ForecastDay) *Report {
	location := cur.Location.Name
	if cur.Location.Country != "" {
		location += ", " + cur.Location.Country
	}

	return &Report{
		City:       cur.Location.Name,
		Country:    cur.Location.Country,
		Location:   location,
		TempC:      cur.Current.TempC,
		TempF:      cur.Current.TempF,
		Condition:  cur.Current.Condition.Text,
		Humidity:   cur.Current.Humidity,
		WindKPH:    cur.Current.WindKPH,
		FeelsLikeC: cur.Current.FeelsLikeC,
		IconURL:    iconURL(cur.Current.Condition.Icon),
		Forecast:   days,
	}
}

// iconURL qualifies the provider's protocol-relative icon path.
func iconURL(icon string) string {
	if strings.HasPrefix(icon, "//") {
		return "https:" + icon
	}
	return icon
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
