package weather

import "time"

// Report is the merged current + forecast data for one lookup.
type Report struct {
	City       string
	Country    string
	Location   string // "City, Country"
	TempC      float64
	TempF      float64
	Condition  string
	Humidity   int // %
	WindKPH    float64
	FeelsLikeC float64
	IconURL    string
	Forecast   []ForecastDay // ascending by date
}

// ForecastDay is one day of the short-term forecast.
type ForecastDay struct {
	Date     time.Time
	MaxTempC float64
	MinTempC float64
}

// Weekday returns the short day label used on the chart axis.
func (d ForecastDay) Weekday() string {
	return d.Date.Format("Mon")
}

// apiErrorBody is the provider's in-band error payload.
type apiErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// envelope is decoded first to detect the error payload.
type envelope struct {
	Error *apiErrorBody `json:"error"`
}

type apiLocation struct {
	Name    string `json:"name"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

type apiCondition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}

type apiCurrent struct {
	TempC      float64      `json:"temp_c"`
	TempF      float64      `json:"temp_f"`
	Condition  apiCondition `json:"condition"`
	Humidity   int          `json:"humidity"`
	WindKPH    float64      `json:"wind_kph"`
	FeelsLikeC float64      `json:"feelslike_c"`
}

// CurrentResponse is the body of current.json.
type CurrentResponse struct {
	Location apiLocation `json:"location"`
	Current  apiCurrent  `json:"current"`
}

type apiForecastDay struct {
	Date string `json:"date"` // YYYY-MM-DD
	Day  struct {
		MaxTempC float64 `json:"maxtemp_c"`
		MinTempC float64 `json:"mintemp_c"`
	} `json:"day"`
}

// ForecastResponse is the body of forecast.json (only the fields we render).
type ForecastResponse struct {
	Location apiLocation `json:"location"`
	Forecast struct {
		ForecastDay []apiForecastDay `json:"forecastday"`
	} `json:"forecast"`
}
