package models

// Country is immutable reference data keyed by its ISO 3166-1 alpha-2 code
type Country struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Code string `json:"code" db:"code"`
}

// Region belongs to a country
type Region struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	CountryID int64  `json:"country_id" db:"country_id"`
}

// City belongs to a region and may carry coordinates
type City struct {
	ID        int64    `json:"id" db:"id"`
	Name      string   `json:"name" db:"name"`
	RegionID  int64    `json:"region_id" db:"region_id"`
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`
}

// Route (linea) is an origin-destination service run by an operator.
// Cities referenced as origin or destination cannot be deleted.
type Route struct {
	ID                int64   `json:"id" db:"id"`
	Name              string  `json:"name" db:"name"`
	OperatorName      string  `json:"operator_name" db:"operator_name"`
	OriginCityID      int64   `json:"origin_city_id" db:"origin_city_id"`
	DestinationCityID int64   `json:"destination_city_id" db:"destination_city_id"`
	DurationMinutes   int     `json:"duration_minutes" db:"duration_minutes"`
	BasePrice         float64 `json:"base_price" db:"base_price"`
	IsActive          bool    `json:"is_active" db:"is_active"`
}

// CitySearchResult is one suggestion of the city lookup
type CitySearchResult struct {
	ID   int64  `json:"id" db:"id"`
	Text string `json:"text" db:"text"`
}

// LocationSyncResult counts rows created by a location sync run
type LocationSyncResult struct {
	Countries int `json:"countries"`
	Regions   int `json:"regions"`
	Cities    int `json:"cities"`
}
