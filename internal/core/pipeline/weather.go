package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ivgusev/queryrouter/internal/core/domain"
)

// defaultCity is the fallback when the query names no city.
const defaultCity = "London"

// formatWeatherReport renders a snapshot into the fixed textual report fed
// to the answer model. Absent numeric fields render as "N/A"; an absent
// description or country renders as-is.
func formatWeatherReport(w *domain.WeatherSnapshot) string {
	return fmt.Sprintf(
		"Weather in %s, %s:\n"+
			"- Temperature: %s°C (feels like %s°C)\n"+
			"- Condition: %s\n"+
			"- Humidity: %s%%\n"+
			"- Wind Speed: %s m/s",
		w.City, w.Country,
		formatFloat(w.Temperature), formatFloat(w.FeelsLike),
		titleWords(w.Description),
		formatInt(w.Humidity),
		formatFloat(w.WindSpeed),
	)
}

// formatFloat keeps a trailing ".0" on integral values so 20.0 reads
// "20.0", not "20".
func formatFloat(v *float64) string {
	if v == nil {
		return "N/A"
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatInt(v *int) string {
	if v == nil {
		return "N/A"
	}
	return strconv.Itoa(*v)
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
