// Package openmeteo fetches instantaneous tilted-surface irradiance from
// the Open-Meteo forecast API. The tilt and azimuth are passed to the
// API so the returned value is already projected onto the panel plane.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/homewatt/homewatt/internal/domain"
	"github.com/homewatt/homewatt/internal/observability/telemetry"
	"github.com/homewatt/homewatt/internal/ports"
)

const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	breaker    *gobreaker.CircuitBreaker
	log        *zap.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		c.backoff = backoff
	}
}

func NewClient(log *zap.Logger, opts ...Option) ports.WeatherProvider {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff:    200 * time.Millisecond,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Weather provider circuit state changed",
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return c
}

// forecastResponse mirrors the minutely_15 block of the Open-Meteo
// forecast endpoint.
type forecastResponse struct {
	Minutely15 struct {
		Time                          []string  `json:"time"`
		GlobalTiltedIrradianceInstant []float64 `json:"global_tilted_irradiance_instant"`
		Temperature2m                 []float64 `json:"temperature_2m"`
		IsDay                         []int     `json:"is_day"`
	} `json:"minutely_15"`
}

// Fetch returns the first 15-minute sample for the given location and
// panel orientation, retrying with linear backoff inside the circuit
// breaker. Any error after retries means the caller must abort its run
// without mutating state.
func (c *Client) Fetch(ctx context.Context, lat, lon, tilt, azimuth float64) (*domain.WeatherSample, error) {
	start := time.Now()

	var sample *domain.WeatherSample
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				telemetry.WeatherRequests.WithLabelValues("cancelled").Inc()
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.fetchOnce(ctx, lat, lon, tilt, azimuth)
		})
		if err == nil {
			sample = result.(*domain.WeatherSample)
			break
		}
		lastErr = err

		c.log.Debug("Weather fetch attempt failed",
			zap.Int("attempt", attempt), zap.Error(err))
	}

	telemetry.WeatherLatency.Observe(time.Since(start).Seconds())

	if sample == nil {
		telemetry.WeatherRequests.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("open-meteo: %w", lastErr)
	}

	telemetry.WeatherRequests.WithLabelValues("ok").Inc()
	return sample, nil
}

func (c *Client) fetchOnce(ctx context.Context, lat, lon, tilt, azimuth float64) (*domain.WeatherSample, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("minutely_15", "global_tilted_irradiance_instant,temperature_2m,is_day")
	q.Set("forecast_minutely_15", "1")
	q.Set("timezone", "auto")
	q.Set("tilt", strconv.FormatFloat(tilt, 'f', -1, 64))
	q.Set("azimuth", strconv.FormatFloat(azimuth, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	m := payload.Minutely15
	if len(m.GlobalTiltedIrradianceInstant) == 0 || len(m.Temperature2m) == 0 || len(m.IsDay) == 0 {
		return nil, fmt.Errorf("empty minutely_15 series")
	}

	return &domain.WeatherSample{
		IrradianceWm2: m.GlobalTiltedIrradianceInstant[0],
		TemperatureC:  m.Temperature2m[0],
		IsDay:         m.IsDay[0] == 1,
	}, nil
}
