// Package helpers holds fixtures shared by package tests.
package helpers

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/waegarcia/conversational-assistant/internal/domain"
	"github.com/waegarcia/conversational-assistant/internal/repository"
)

// NewTestSQLiteStore opens an in-memory SQLite store closed at test end.
func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// StubGateway is a weather gateway that returns a fixed snapshot or error and
// records the cities it was asked for.
type StubGateway struct {
	mu       sync.Mutex
	Snapshot *domain.WeatherSnapshot
	Err      error
	Cities   []string
}

// FetchWeather implements weather.Gateway.
func (g *StubGateway) FetchWeather(ctx context.Context, city string) (*domain.WeatherSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Cities = append(g.Cities, city)
	if g.Err != nil {
		return nil, g.Err
	}
	if g.Snapshot != nil {
		s := *g.Snapshot
		return &s, nil
	}
	return &domain.WeatherSnapshot{Location: city, Temperature: 20, Humidity: 50}, nil
}

// FailingGateway returns a gateway that always fails like a provider outage.
func FailingGateway() *StubGateway {
	return &StubGateway{Err: fmt.Errorf("%w: provider down", domain.ErrExternalService)}
}
