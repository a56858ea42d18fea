package model

// SiteMetadata is the single metadata row that precedes the data rows of an
// NSRDB CSV download.
type SiteMetadata struct {
	Source     string
	LocationID string
	Latitude   float64
	Longitude  float64
	TimeZone   float64
	Elevation  float64
}

// Observation is one row of a retrieved time series. Fields absent from the
// source hold NaN.
type Observation struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int

	Temperature   float64
	DewPoint      float64
	Pressure      float64
	GHI           float64
	DNI           float64
	DHI           float64
	WindDirection float64
	WindSpeed     float64
	SurfaceAlbedo float64
}

// TimeSeries is one point/year retrieval: the site metadata and its rows in source order.
type TimeSeries struct {
	Site SiteMetadata
	Rows []Observation
}
