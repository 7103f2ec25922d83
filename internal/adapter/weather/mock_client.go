package weather

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

// MockClient is a deterministic Gateway for local runs and tests.
type MockClient struct {
	// FailCities lists cities (case-insensitive) that should fail.
	FailCities map[string]bool
}

// NewMockClient creates a new mock weather client.
func NewMockClient() *MockClient {
	return &MockClient{FailCities: map[string]bool{}}
}

// Ensure MockClient implements Gateway interface.
var _ Gateway = (*MockClient)(nil)

var mockConditions = []string{"cielo claro", "algo de nubes", "lluvia ligera", "nublado"}

// FetchWeather derives a stable reading from the city name.
func (m *MockClient) FetchWeather(ctx context.Context, city string) (*domain.WeatherSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}
	if m.FailCities[strings.ToLower(city)] {
		return nil, fmt.Errorf("%w: mock failure for %s", domain.ErrExternalService, city)
	}

	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(city)))
	sum := h.Sum32()

	return &domain.WeatherSnapshot{
		Location:    city,
		Temperature: float64(sum%350)/10 - 5,
		Humidity:    int(sum % 101),
		Conditions:  mockConditions[sum%uint32(len(mockConditions))],
	}, nil
}
