// Package domain models the city data collected from the AMap v3 web API.
//
// # Data Source
//
// Records originate from three AMap endpoints: place/text (keyword POI
// search, paginated, 25 records per page), traffic/status/rectangle (road
// traffic conditions for a bounding rectangle), and weather/weatherInfo
// (live weather observations by city adcode). All three share a common
// response envelope whose "status" field is "1" on logical success; any
// other value means the provider rejected the query or has no data, which
// is deliberately not treated as a transport error.
//
// # AMap Conventions
//
// Coordinates:
//
//	GCJ-02 "lng,lat" strings, e.g. "116.404,39.915". Longitude first.
//	Rectangles are two opposite corners joined by a semicolon:
//	"116.354,39.923;116.384,39.893".
//
// Traffic status:
//
//	trafficinfo.evaluation is an opaque congestion summary object and
//	trafficinfo.roads a list of per-road condition objects. Both are stored
//	verbatim as JSON; the collector never interprets their fields. A response
//	may omit trafficinfo entirely, or carry an info object without roads,
//	when the rectangle has no live coverage.
//
// Weather:
//
//	Numeric fields (temperature, humidity) arrive as strings and are parsed
//	strictly: a non-numeric value fails the record rather than silently
//	becoming zero. reporttime is "2006-01-02 15:04:05" in China Standard Time.
//
// Field quirks:
//
//	Optional text fields (address, description) sometimes arrive as an empty
//	JSON array instead of a string. FlexString absorbs that, normalizing
//	anything non-string to "".
//
// # Deduplication
//
// Each POI carries a provider-assigned id that is globally unique. Collection
// is first-write-wins: re-seeing a known id must change nothing, which the
// store guarantees with a unique index and ON CONFLICT DO NOTHING. Traffic
// and weather records are append-only time series with no dedup key.
package domain
