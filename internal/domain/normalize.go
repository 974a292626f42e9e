package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// reportTimeLayout is the AMap observation time format, China Standard Time.
const reportTimeLayout = "2006-01-02 15:04:05"

var cst = time.FixedZone("CST", 8*60*60)

// ParsePoint parses an AMap "lng,lat" string into an orb.Point.
func ParsePoint(s string) (orb.Point, error) {
	lngStr, latStr, ok := strings.Cut(s, ",")
	if !ok {
		return orb.Point{}, fmt.Errorf("%w: location %q has no comma", ErrBadRecord, s)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("%w: longitude %q: %v", ErrBadRecord, lngStr, err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("%w: latitude %q: %v", ErrBadRecord, latStr, err)
	}
	return orb.Point{lng, lat}, nil
}

// NormalizePOI maps one raw search record into the persisted POI shape.
// A record whose location cannot be parsed returns ErrBadRecord and is meant
// to be dropped per-record, not to fail the page. A missing address becomes
// the empty string, never null.
func NormalizePOI(raw RawPOI, category, city string) (POI, error) {
	if raw.ID == "" {
		return POI{}, fmt.Errorf("%w: poi has no id", ErrBadRecord)
	}
	point, err := ParsePoint(string(raw.Location))
	if err != nil {
		return POI{}, err
	}
	return POI{
		AMapID:   raw.ID,
		Name:     raw.Name,
		Category: category,
		Type:     raw.Type,
		Address:  string(raw.Address),
		Location: point,
		City:     city,
	}, nil
}

// RectanglePolygon converts a "lng1,lat1;lng2,lat2" rectangle into a closed
// five-point ring walking the two diagonal corners clockwise:
// (lng1,lat1) → (lng2,lat1) → (lng2,lat2) → (lng1,lat2) → (lng1,lat1).
func RectanglePolygon(rect string) (orb.Polygon, error) {
	c1, c2, ok := strings.Cut(rect, ";")
	if !ok {
		return nil, fmt.Errorf("%w: rectangle %q has no semicolon", ErrBadRecord, rect)
	}
	p1, err := ParsePoint(c1)
	if err != nil {
		return nil, err
	}
	p2, err := ParsePoint(c2)
	if err != nil {
		return nil, err
	}
	ring := orb.Ring{
		{p1[0], p1[1]},
		{p2[0], p1[1]},
		{p2[0], p2[1]},
		{p1[0], p2[1]},
		{p1[0], p1[1]},
	}
	return orb.Polygon{ring}, nil
}

// NormalizeTraffic builds one snapshot for a target area from the provider's
// trafficinfo object. The roads list defaults to an empty JSON array when the
// provider omits it; the capture time comes from the package clock.
func NormalizeTraffic(area TargetArea, info RawTrafficInfo) (TrafficSnapshot, error) {
	polygon, err := RectanglePolygon(area.Rectangle)
	if err != nil {
		return TrafficSnapshot{}, err
	}

	roads := json.RawMessage("[]")
	if len(info.Roads) > 0 {
		b, err := json.Marshal(info.Roads)
		if err != nil {
			return TrafficSnapshot{}, fmt.Errorf("%w: roads: %v", ErrBadRecord, err)
		}
		roads = b
	}

	description := string(info.Description)
	if description != "" {
		description = fmt.Sprintf("[%s] %s", area.District, description)
	}

	return TrafficSnapshot{
		District:    area.District,
		Description: description,
		Evaluation:  info.Evaluation,
		Roads:       roads,
		Area:        polygon,
		CapturedAt:  clock.Now(),
	}, nil
}

// NormalizeWeather maps one live weather record to the persisted shape.
// Temperature and humidity are parsed strictly: a non-numeric value is a
// record failure, never a silent zero. An unparseable reporttime is kept as
// the zero time rather than failing the record.
func NormalizeWeather(raw RawLiveWeather) (WeatherSnapshot, error) {
	temperature, err := strconv.ParseFloat(strings.TrimSpace(raw.Temperature), 64)
	if err != nil {
		return WeatherSnapshot{}, fmt.Errorf("%w: temperature %q: %v", ErrBadRecord, raw.Temperature, err)
	}
	humidity, err := strconv.ParseFloat(strings.TrimSpace(raw.Humidity), 64)
	if err != nil {
		return WeatherSnapshot{}, fmt.Errorf("%w: humidity %q: %v", ErrBadRecord, raw.Humidity, err)
	}

	reportTime, err := time.ParseInLocation(reportTimeLayout, raw.ReportTime, cst)
	if err != nil {
		reportTime = time.Time{}
	}

	return WeatherSnapshot{
		City:          raw.City,
		Adcode:        raw.Adcode,
		Weather:       raw.Weather,
		Temperature:   temperature,
		Humidity:      humidity,
		WindDirection: raw.WindDirection,
		WindPower:     raw.WindPower,
		ReportTime:    reportTime,
	}, nil
}
