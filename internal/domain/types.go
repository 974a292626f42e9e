package domain

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb"
)

// POI is a persisted point of interest. AMapID is the provider-assigned
// external identifier and the sole dedup key; Category is assigned by the
// collector from its query configuration, not by the provider.
type POI struct {
	AMapID   string
	Name     string
	Category string
	Type     string
	Address  string
	Location orb.Point // lng, lat
	City     string
}

// TrafficSnapshot is one append-only capture of road conditions for a target
// area. Evaluation and Roads are stored verbatim as provider JSON; Roads is
// always a JSON array, possibly empty, never null.
type TrafficSnapshot struct {
	District    string
	Description string
	Evaluation  json.RawMessage
	Roads       json.RawMessage
	Area        orb.Polygon
	CapturedAt  time.Time
}

// WeatherSnapshot is one append-only live weather observation. Duplicates
// across runs are acceptable; there is no dedup key.
type WeatherSnapshot struct {
	City          string
	Adcode        string
	Weather       string
	Temperature   float64
	Humidity      float64
	WindDirection string
	WindPower     string
	ReportTime    time.Time
}

// TargetArea names a geographic rectangle the traffic collector visits.
// Rectangle holds two opposite corners as "lng1,lat1;lng2,lat2".
type TargetArea struct {
	District  string `json:"district"`
	Rectangle string `json:"rectangle"`
}

// POICategory binds a collector-assigned category label to an AMap keyword
// expression, e.g. "医疗" → "医院|诊所".
type POICategory struct {
	Name    string `json:"name"`
	Keyword string `json:"keyword"`
}

// FlexString decodes AMap fields that are usually strings but occasionally
// an empty JSON array. Anything that is not a string decodes to "".
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		*s = ""
		return nil
	}
	*s = FlexString(v)
	return nil
}

// RawPOI is one record of a place/text search page, provider-shaped.
type RawPOI struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	Address  FlexString `json:"address"`
	Location FlexString `json:"location"`
}

// RawTrafficInfo is the trafficinfo object of a traffic/status/rectangle
// response. Roads may be empty when the rectangle has no live coverage.
type RawTrafficInfo struct {
	Description FlexString        `json:"description"`
	Evaluation  json.RawMessage   `json:"evaluation"`
	Roads       []json.RawMessage `json:"roads"`
}

// RawLiveWeather is one record of a weather/weatherInfo "lives" list.
type RawLiveWeather struct {
	City          string `json:"city"`
	Adcode        string `json:"adcode"`
	Weather       string `json:"weather"`
	Temperature   string `json:"temperature"`
	WindDirection string `json:"winddirection"`
	WindPower     string `json:"windpower"`
	Humidity      string `json:"humidity"`
	ReportTime    string `json:"reporttime"`
}
