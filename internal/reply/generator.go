package reply

import (
	"context"

	"go.uber.org/zap"

	"github.com/waegarcia/conversational-assistant/internal/adapter/weather"
	"github.com/waegarcia/conversational-assistant/internal/domain"
	"github.com/waegarcia/conversational-assistant/internal/intent"
	"github.com/waegarcia/conversational-assistant/internal/metrics"
)

// Generator dispatches on intent. Only the weather reply performs I/O.
type Generator struct {
	registry    *Registry
	gateway     weather.Gateway
	metrics     metrics.Sink
	defaultCity string
	logger      *zap.Logger
}

// NewGenerator builds a generator with the canned replies and the weather
// reply registered.
func NewGenerator(gateway weather.Gateway, sink metrics.Sink, defaultCity string, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{
		registry:    NewRegistry(),
		gateway:     gateway,
		metrics:     sink,
		defaultCity: defaultCity,
		logger:      logger,
	}
	g.registry.MustRegister(domain.IntentGreeting, Static(GreetingText))
	g.registry.MustRegister(domain.IntentFarewell, Static(FarewellText))
	g.registry.MustRegister(domain.IntentHelp, Static(HelpText))
	g.registry.MustRegister(domain.IntentUnknown, Static(UnknownText))
	g.registry.MustRegister(domain.IntentWeatherQuery, g.weatherReply)
	return g
}

// Generate never fails; unexpected errors fall back to the UNKNOWN text.
func (g *Generator) Generate(ctx context.Context, in domain.Intent, utterance string) Reply {
	r, err := g.registry.Execute(ctx, in, utterance)
	if err != nil {
		g.logger.Error("reply generation failed", zap.String("intent", string(in)), zap.Error(err))
		return Reply{Text: UnknownText}
	}
	return r
}

func (g *Generator) weatherReply(ctx context.Context, utterance string) (Reply, error) {
	city := intent.ExtractCity(utterance, g.defaultCity)

	g.metrics.ExternalCall()
	snapshot, err := g.gateway.FetchWeather(ctx, city)
	if err != nil {
		g.metrics.ExternalFailure()
		g.logger.Warn("weather degraded", zap.String("city", city), zap.Error(err))
		return Reply{Text: WeatherUnavailableText}, nil
	}
	return Reply{Text: FormatWeather(snapshot), ExternalService: weather.ProviderName}, nil
}
