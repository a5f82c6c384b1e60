package domain

import "strings"

// DefaultCountry is served when a lookup names no known country.
const DefaultCountry = "zimbabwe"

// Country data source types.
const (
	DataTypeWMS     = "wms"
	DataTypeGeoJSON = "geojson"
)

// Country is the map configuration for one country view.
type Country struct {
	Code           string     `json:"code"`
	Name           string     `json:"name"`
	Center         [2]float64 `json:"center"`
	Zoom           int        `json:"zoom"`
	DataType       string     `json:"dataType"`
	WMSEndpoint    string     `json:"wmsEndpoint"`
	Mask           string     `json:"mask"`
	GeoJSONBaseURL string     `json:"geojsonBaseUrl,omitempty"`
}

// CenterPoint returns Center as a LatLng.
func (c Country) CenterPoint() LatLng {
	return LatLng{Lat: c.Center[0], Lng: c.Center[1]}
}

var countries = map[string]Country{
	"zimbabwe": {
		Code:        "zimbabwe",
		Name:        "Zimbabwe",
		Center:      [2]float64{-19, 27},
		Zoom:        6,
		DataType:    DataTypeWMS,
		WMSEndpoint: "https://dev.cas-zimbabwe.predictia.es/wms",
		Mask:        "zimbabwe",
	},
	"kenya": {
		Code:           "kenya",
		Name:           "Kenya",
		Center:         [2]float64{0.0236, 37.9062},
		Zoom:           6,
		DataType:       DataTypeGeoJSON,
		WMSEndpoint:    "https://dev.cas-zimbabwe.predictia.es/wms",
		Mask:           "kenya",
		GeoJSONBaseURL: "https://raw.githubusercontent.com/sophievanderhorst/data/refs/heads/main/kenya/",
	},
}

// LookupCountry returns the configuration for code, matched case-insensitively.
// Unknown or blank codes return the default country and false.
func LookupCountry(code string) (Country, bool) {
	key := strings.ToLower(strings.TrimSpace(code))
	if key == "" {
		key = DefaultCountry
	}
	if c, ok := countries[key]; ok {
		return c, true
	}
	return countries[DefaultCountry], false
}

// CountryCodes lists the configured countries.
func CountryCodes() []string {
	return []string{"kenya", "zimbabwe"}
}
