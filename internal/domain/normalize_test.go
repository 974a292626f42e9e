package domain_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wan300/jiaotong/internal/domain"
)

func TestNormalizePOI(t *testing.T) {
	raw := domain.RawPOI{
		ID:       "B000A7BD6C",
		Name:     "人民医院",
		Type:     "医疗保健服务;综合医院",
		Address:  "西直门南大街11号",
		Location: "116.4,39.9",
	}

	poi, err := domain.NormalizePOI(raw, "医疗", "北京")
	require.NoError(t, err)
	assert.Equal(t, "B000A7BD6C", poi.AMapID)
	assert.Equal(t, "医疗", poi.Category)
	assert.Equal(t, "北京", poi.City)
	assert.Equal(t, orb.Point{116.4, 39.9}, poi.Location)
}

func TestNormalizePOI_MissingAddressDefaultsToEmpty(t *testing.T) {
	raw := domain.RawPOI{ID: "B0FFG7XYZ1", Name: "某公司", Location: "116.4,39.9"}

	poi, err := domain.NormalizePOI(raw, "公司", "北京")
	require.NoError(t, err)
	assert.Equal(t, "", poi.Address)
	assert.Equal(t, orb.Point{116.4, 39.9}, poi.Location)
}

func TestNormalizePOI_BadLocation(t *testing.T) {
	cases := []struct {
		name     string
		location string
	}{
		{"no comma", "not-a-pair"},
		{"empty", ""},
		{"non-numeric lng", "abc,39.9"},
		{"non-numeric lat", "116.4,xyz"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := domain.RawPOI{ID: "B0001", Name: "x", Location: domain.FlexString(tc.location)}
			_, err := domain.NormalizePOI(raw, "餐饮", "北京")
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrBadRecord))
		})
	}
}

func TestNormalizePOI_MissingID(t *testing.T) {
	_, err := domain.NormalizePOI(domain.RawPOI{Location: "116.4,39.9"}, "餐饮", "北京")
	assert.ErrorIs(t, err, domain.ErrBadRecord)
}

func TestRectanglePolygon_VertexOrder(t *testing.T) {
	polygon, err := domain.RectanglePolygon("116.0,40.0;116.1,39.9")
	require.NoError(t, err)
	require.Len(t, polygon, 1)

	want := orb.Ring{
		{116.0, 40.0},
		{116.1, 40.0},
		{116.1, 39.9},
		{116.0, 39.9},
		{116.0, 40.0},
	}
	assert.Equal(t, want, polygon[0])
}

func TestRectanglePolygon_Invalid(t *testing.T) {
	for _, rect := range []string{"", "116.0,40.0", "116.0;40.0", "a,b;c,d"} {
		_, err := domain.RectanglePolygon(rect)
		assert.ErrorIs(t, err, domain.ErrBadRecord, "rectangle %q", rect)
	}
}

func TestNormalizeTraffic(t *testing.T) {
	frozen := time.Date(2026, time.March, 5, 8, 30, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { domain.SetClock(nil) })

	area := domain.TargetArea{District: "东城区", Rectangle: "116.354,39.923;116.384,39.893"}
	info := domain.RawTrafficInfo{
		Description: "整体畅通",
		Evaluation:  json.RawMessage(`{"expedite":"80%","status":"1"}`),
		Roads: []json.RawMessage{
			json.RawMessage(`{"name":"长安街","status":"1"}`),
		},
	}

	snapshot, err := domain.NormalizeTraffic(area, info)
	require.NoError(t, err)
	assert.Equal(t, "东城区", snapshot.District)
	assert.Equal(t, "[东城区] 整体畅通", snapshot.Description)
	assert.Equal(t, frozen, snapshot.CapturedAt)
	assert.JSONEq(t, `[{"name":"长安街","status":"1"}]`, string(snapshot.Roads))

	require.Len(t, snapshot.Area, 1)
	ring := snapshot.Area[0]
	require.Len(t, ring, 5)
	assert.Equal(t, ring[0], ring[4], "ring must be closed")
}

func TestNormalizeTraffic_RoadsDefaultToEmptyArray(t *testing.T) {
	area := domain.TargetArea{District: "西城区", Rectangle: "116.0,40.0;116.1,39.9"}

	snapshot, err := domain.NormalizeTraffic(area, domain.RawTrafficInfo{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(snapshot.Roads))
	assert.Equal(t, "", snapshot.Description)
}

func TestNormalizeWeather(t *testing.T) {
	raw := domain.RawLiveWeather{
		City:          "北京市",
		Adcode:        "110000",
		Weather:       "晴",
		Temperature:   "27",
		WindDirection: "东南",
		WindPower:     "≤3",
		Humidity:      "43",
		ReportTime:    "2026-03-05 16:00:00",
	}

	snapshot, err := domain.NormalizeWeather(raw)
	require.NoError(t, err)
	assert.Equal(t, 27.0, snapshot.Temperature)
	assert.Equal(t, 43.0, snapshot.Humidity)
	assert.Equal(t, "110000", snapshot.Adcode)
	assert.Equal(t, 2026, snapshot.ReportTime.Year())
	assert.Equal(t, 16, snapshot.ReportTime.Hour())
}

func TestNormalizeWeather_NonNumericIsHardFailure(t *testing.T) {
	cases := []struct {
		name string
		raw  domain.RawLiveWeather
	}{
		{"temperature", domain.RawLiveWeather{Temperature: "暖", Humidity: "43"}},
		{"humidity", domain.RawLiveWeather{Temperature: "27", Humidity: "n/a"}},
		{"empty temperature", domain.RawLiveWeather{Temperature: "", Humidity: "43"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := domain.NormalizeWeather(tc.raw)
			assert.ErrorIs(t, err, domain.ErrBadRecord)
		})
	}
}

func TestNormalizeWeather_UnparseableReportTimeKeptZero(t *testing.T) {
	raw := domain.RawLiveWeather{Temperature: "10", Humidity: "50", ReportTime: "soon"}
	snapshot, err := domain.NormalizeWeather(raw)
	require.NoError(t, err)
	assert.True(t, snapshot.ReportTime.IsZero())
}

func TestFlexString_ToleratesArray(t *testing.T) {
	var raw domain.RawPOI
	payload := `{"id":"B0001","name":"早餐店","address":[],"location":"116.41,39.92"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))
	assert.Equal(t, domain.FlexString(""), raw.Address)
	assert.Equal(t, domain.FlexString("116.41,39.92"), raw.Location)
}
