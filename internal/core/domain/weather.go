package domain

// WeatherSnapshot is one defensive mapping of an upstream weather response.
// Every field except City may be absent when the provider omits it; absence
// is data, not an error.
type WeatherSnapshot struct {
	City        string   `json:"city"`
	Country     string   `json:"country,omitempty"`
	Temperature *float64 `json:"temperature"`
	FeelsLike   *float64 `json:"feels_like"`
	Humidity    *int     `json:"humidity"`
	Description string   `json:"description,omitempty"`
	WindSpeed   *float64 `json:"wind_speed"`
}
