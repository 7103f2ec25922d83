package reply

import (
	"fmt"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

const (
	GreetingText = "Hola! Soy tu asistente virtual. Puedo ayudarte con informacion del clima. En que ciudad te gustaria consultar?"
	FarewellText = "Hasta luego! Que tengas un excelente dia."
	HelpText     = "Puedo ayudarte a consultar el clima de cualquier ciudad. Solo preguntame algo como: Que tiempo hace en Buenos Aires?"
	UnknownText  = "Disculpa, no entendi tu consulta. Puedo ayudarte con informacion del clima. Preguntame sobre el tiempo en alguna ciudad."

	// WeatherUnavailableText is the degraded reply when the provider fails.
	WeatherUnavailableText = "Lo siento, no pude obtener la informacion del clima en este momento. Por favor, intenta nuevamente mas tarde."
)

// FormatWeather renders a snapshot; the conditions line is omitted when empty.
func FormatWeather(s *domain.WeatherSnapshot) string {
	conditions := ""
	if s.Conditions != "" {
		conditions = "Condiciones: " + s.Conditions + "\n"
	}
	return fmt.Sprintf("El clima en %s:\nTemperatura: %.1f°C\n%sHumedad: %d%%",
		s.Location, s.Temperature, conditions, s.Humidity)
}
