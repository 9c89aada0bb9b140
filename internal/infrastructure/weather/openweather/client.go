package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ivgusev/queryrouter/internal/core/domain"
	"github.com/ivgusev/queryrouter/internal/infrastructure/resilience"
)

// Client fetches current conditions from the OpenWeatherMap API. The
// provider signals success through a "cod" field that is sometimes a number
// and sometimes a string; anything but 200 means no data.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey string) *Client {
	return NewWithOptions(baseURL, apiKey, Options{})
}

func NewWithOptions(baseURL, apiKey string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// Current returns a defensively mapped snapshot for city. Missing nested
// fields become nil fields, not errors; a transport failure or a non-200
// cod is "no data" and returns an error instead of a snapshot.
func (c *Client) Current(ctx context.Context, city string) (*domain.WeatherSnapshot, error) {
	var snapshot *domain.WeatherSnapshot
	call := func(callCtx context.Context) error {
		var err error
		snapshot, err = c.fetch(callCtx, city)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "openweather.current", call, classifyWeatherError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (c *Client) fetch(ctx context.Context, city string) (*domain.WeatherSnapshot, error) {
	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", c.apiKey)
	query.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Cod     any    `json:"cod"`
		Message string `json:"message"`
		Name    string `json:"name"`
		Sys     struct {
			Country string `json:"country"`
		} `json:"sys"`
		Main struct {
			Temp      *float64 `json:"temp"`
			FeelsLike *float64 `json:"feels_like"`
			Humidity  *int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed *float64 `json:"speed"`
		} `json:"wind"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}

	if !codeOK(payload.Cod) {
		return nil, domain.WrapError(domain.ErrNoData, "weather lookup",
			fmt.Errorf("city %q: cod=%v message=%q", city, payload.Cod, payload.Message))
	}

	snapshot := &domain.WeatherSnapshot{
		City:        payload.Name,
		Country:     payload.Sys.Country,
		Temperature: payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
	}
	if snapshot.City == "" {
		snapshot.City = city
	}
	if len(payload.Weather) > 0 {
		snapshot.Description = payload.Weather[0].Description
	}
	return snapshot, nil
}

// codeOK accepts the 200 marker in both of its wire forms.
func codeOK(cod any) bool {
	switch v := cod.(type) {
	case float64:
		return v == 200
	case string:
		return v == "200"
	default:
		return false
	}
}

func classifyWeatherError(err error) resilience.Verdict {
	if err == nil {
		return resilience.Verdict{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Verdict{}
	}
	// A non-200 cod is a definitive answer from the provider, not an outage.
	if domain.IsKind(err, domain.ErrNoData) {
		return resilience.Verdict{}
	}
	return resilience.Verdict{Retry: true, CountAsBreakage: true}
}
