package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

func newTestClient(baseURL string, timeout time.Duration) *Client {
	return NewClient(Config{
		BaseURL: baseURL + "/",
		APIKey:  "secret",
		Units:   "metric",
		Lang:    "es",
		Timeout: timeout,
	}, nil)
}

func TestFetchWeatherSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "San Miguel de Tucumán", q.Get("q"))
		assert.Equal(t, "secret", q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "es", q.Get("lang"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"Tucumán","main":{"temp":21.46,"feels_like":20.1,"humidity":64},"weather":[{"main":"Clouds","description":"nubes dispersas"}],"wind":{"speed":3.1}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, time.Second)
	snap, err := client.FetchWeather(context.Background(), "San Miguel de Tucumán")
	require.NoError(t, err)

	assert.Equal(t, "Tucumán", snap.Location)
	assert.InDelta(t, 21.46, snap.Temperature, 0.001)
	assert.Equal(t, 64, snap.Humidity)
	assert.Equal(t, "nubes dispersas", snap.Conditions)
}

func TestFetchWeatherEscapesCity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a&appid=stolen", r.URL.Query().Get("q"))
		assert.Equal(t, "secret", r.URL.Query().Get("appid"))
		w.Write([]byte(`{"name":"","main":{"temp":1,"humidity":2},"weather":[]}`))
	}))
	defer server.Close()

	snap, err := newTestClient(server.URL, time.Second).FetchWeather(context.Background(), "a&appid=stolen")
	require.NoError(t, err)
	assert.Equal(t, "a&appid=stolen", snap.Location)
	assert.Empty(t, snap.Conditions)
}

func TestFetchWeatherFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"cod":"404","message":"city not found"}`))
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"name":`))
		}},
		{"missing main", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"name":"Lima"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			snap, err := newTestClient(server.URL, time.Second).FetchWeather(context.Background(), "Lima")
			assert.Nil(t, snap)
			assert.True(t, errors.Is(err, domain.ErrExternalService))
		})
	}
}

func TestFetchWeatherTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"name":"Lima","main":{"temp":1,"humidity":2}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 50*time.Millisecond).FetchWeather(context.Background(), "Lima")
	assert.True(t, errors.Is(err, domain.ErrExternalService))
}

func TestFetchWeatherUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(url, 100*time.Millisecond).FetchWeather(context.Background(), "Lima")
	assert.True(t, errors.Is(err, domain.ErrExternalService))
}

func TestMockClient(t *testing.T) {
	m := NewMockClient()
	m.FailCities["atlantis"] = true

	a, err := m.FetchWeather(context.Background(), "Lima")
	require.NoError(t, err)
	b, err := m.FetchWeather(context.Background(), "Lima")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "Lima", a.Location)
	assert.GreaterOrEqual(t, a.Humidity, 0)
	assert.LessOrEqual(t, a.Humidity, 100)

	_, err = m.FetchWeather(context.Background(), "Atlantis")
	assert.True(t, errors.Is(err, domain.ErrExternalService))
}

func TestNewGatewayMode(t *testing.T) {
	t.Setenv(EnvMode, ModeMock)
	_, ok := NewGateway(Config{Timeout: time.Second}, nil).(*MockClient)
	assert.True(t, ok)

	t.Setenv(EnvMode, "")
	_, ok = NewGateway(Config{Timeout: time.Second}, nil).(*Client)
	assert.True(t, ok)
}
