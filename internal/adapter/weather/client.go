package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

// Config holds the static request parameters for the provider.
type Config struct {
	BaseURL string
	APIKey  string
	Units   string
	Lang    string
	Timeout time.Duration
}

// Client is an OpenWeather-compatible HTTP client.
type Client struct {
	baseURL    string
	apiKey     string
	units      string
	lang       string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new weather client. The timeout bounds the connect
// phase, the wait for response headers, and the whole exchange.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		units:   cfg.Units,
		lang:    cfg.Lang,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   cfg.Timeout,
				ResponseHeaderTimeout: cfg.Timeout,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		logger: logger,
	}
}

// currentWeatherResponse is the subset of the provider payload we read.
type currentWeatherResponse struct {
	Name string `json:"name"`
	Main *struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// FetchWeather queries GET {base}/weather for the given city.
func (c *Client) FetchWeather(ctx context.Context, city string) (*domain.WeatherSnapshot, error) {
	snapshot, err := c.fetch(ctx, city)
	if err != nil {
		c.logger.Warn("weather lookup failed", zap.String("city", city), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}
	c.logger.Debug("weather lookup succeeded", zap.String("city", city))
	return snapshot, nil
}

func (c *Client) fetch(ctx context.Context, city string) (*domain.WeatherSnapshot, error) {
	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", c.units)
	params.Set("lang", c.lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload currentWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if payload.Main == nil {
		return nil, fmt.Errorf("response has no main section")
	}

	snapshot := &domain.WeatherSnapshot{
		Location:    payload.Name,
		Temperature: payload.Main.Temp,
		Humidity:    payload.Main.Humidity,
	}
	if snapshot.Location == "" {
		snapshot.Location = city
	}
	if len(payload.Weather) > 0 {
		snapshot.Conditions = payload.Weather[0].Description
	}
	return snapshot, nil
}
