package skills

// WeatherPlaceholder carries the fields a real provider would fill.
type WeatherPlaceholder struct {
	Temperature string `json:"temperature"`
	Description string `json:"description"`
	Humidity    string `json:"humidity"`
	Wind        string `json:"wind"`
}

type WeatherResult struct {
	Type        Kind               `json:"type"`
	Location    string             `json:"location"`
	Note        string             `json:"note"`
	Placeholder WeatherPlaceholder `json:"placeholder"`
}

// Weather is not wired to a provider yet. It returns a placeholder payload
// signalling the missing configuration; callers must not treat it as an error.
func (s *Service) Weather(location string) WeatherResult {
	return WeatherResult{
		Type:     KindWeather,
		Location: location,
		Note:     "Für Wetterdaten wird ein OpenWeatherMap API Key benötigt",
		Placeholder: WeatherPlaceholder{
			Temperature: "--",
			Description: "Nicht verfügbar",
			Humidity:    "--",
			Wind:        "--",
		},
	}
}
