// Package weather provides clients for the external weather provider.
package weather

import (
	"context"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

// ProviderName tags replies that were answered from live provider data.
const ProviderName = "OpenWeather"

// Gateway fetches the current weather for a city.
type Gateway interface {
	// FetchWeather returns the current conditions for city. Any failure is
	// reported as an error wrapping domain.ErrExternalService.
	FetchWeather(ctx context.Context, city string) (*domain.WeatherSnapshot, error)
}

// Ensure Client implements Gateway interface.
var _ Gateway = (*Client)(nil)
