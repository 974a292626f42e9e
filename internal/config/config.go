package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/wan300/jiaotong/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL string
	AMapKey     string
	AMapBaseURL string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	TargetCity   string
	TargetAdcode string

	// Collection cadences.
	POIInterval     time.Duration
	TrafficInterval time.Duration
	WeatherInterval time.Duration

	// Provider politeness and bounds.
	RequestDelay   time.Duration
	RequestTimeout time.Duration
	MaxPages       int
	PageSize       int

	TargetAreas   []domain.TargetArea
	POICategories []domain.POICategory
}

// DefaultTargetAreas lists the rectangles the traffic collector walks when
// TARGET_AREAS is unset. The first entry is the historically collected
// central rectangle.
var DefaultTargetAreas = []domain.TargetArea{
	{District: "东城区", Rectangle: "116.354,39.923;116.384,39.893"},
	{District: "西城区", Rectangle: "116.336,39.940;116.375,39.895"},
	{District: "海淀区", Rectangle: "116.270,39.999;116.330,39.950"},
	{District: "朝阳区", Rectangle: "116.430,39.960;116.490,39.910"},
}

// DefaultPOICategories maps collector category labels to AMap keyword
// expressions when POI_CATEGORIES is unset.
var DefaultPOICategories = []domain.POICategory{
	{Name: "购物", Keyword: "商场|购物中心|超市"},
	{Name: "教育", Keyword: "大学|中学|小学"},
	{Name: "医疗", Keyword: "医院|诊所"},
	{Name: "交通", Keyword: "地铁站|公交站"},
	{Name: "餐饮", Keyword: "餐厅|饭店|美食"},
	{Name: "公司", Keyword: "公司|企业|科技园"},
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		AMapKey:      os.Getenv("AMAP_KEY"),
		AMapBaseURL:  envOrDefault("AMAP_BASE_URL", "https://restapi.amap.com/v3"),
		HTTPAddr:     envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		LogFormat:    envOrDefault("LOG_FORMAT", "json"),
		TargetCity:   envOrDefault("TARGET_CITY", "北京"),
		TargetAdcode: envOrDefault("TARGET_ADCODE", "110000"),
	}

	var err error
	if cfg.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.POIInterval, err = envDuration("POI_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TrafficInterval, err = envDuration("TRAFFIC_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.WeatherInterval, err = envDuration("WEATHER_INTERVAL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RequestDelay, err = envDuration("REQUEST_DELAY", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = envInt("MAX_PAGES", 10); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = envInt("PAGE_SIZE", 25); err != nil {
		return nil, err
	}
	if cfg.TargetAreas, err = envAreas("TARGET_AREAS"); err != nil {
		return nil, err
	}
	if cfg.POICategories, err = envCategories("POI_CATEGORIES"); err != nil {
		return nil, err
	}

	// DATABASE_URL is not validated here: only callers that open the store
	// need it, and commands like probe run without a database.
	if cfg.AMapKey == "" {
		return nil, errors.New("AMAP_KEY is required")
	}
	if cfg.POIInterval <= 0 {
		return nil, errors.New("POI_INTERVAL must be positive")
	}
	if cfg.TrafficInterval <= 0 {
		return nil, errors.New("TRAFFIC_INTERVAL must be positive")
	}
	if cfg.WeatherInterval <= 0 {
		return nil, errors.New("WEATHER_INTERVAL must be positive")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, errors.New("REQUEST_TIMEOUT must be positive")
	}
	if cfg.MaxPages <= 0 {
		return nil, errors.New("MAX_PAGES must be positive")
	}
	if cfg.PageSize <= 0 {
		return nil, errors.New("PAGE_SIZE must be positive")
	}
	for _, area := range cfg.TargetAreas {
		if _, err := domain.RectanglePolygon(area.Rectangle); err != nil {
			return nil, fmt.Errorf("TARGET_AREAS: district %q: %w", area.District, err)
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envAreas(key string) ([]domain.TargetArea, error) {
	s := os.Getenv(key)
	if s == "" {
		return DefaultTargetAreas, nil
	}
	var areas []domain.TargetArea
	if err := json.Unmarshal([]byte(s), &areas); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	if len(areas) == 0 {
		return nil, fmt.Errorf("%s must list at least one area", key)
	}
	return areas, nil
}

func envCategories(key string) ([]domain.POICategory, error) {
	s := os.Getenv(key)
	if s == "" {
		return DefaultPOICategories, nil
	}
	var categories []domain.POICategory
	if err := json.Unmarshal([]byte(s), &categories); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("%s must list at least one category", key)
	}
	return categories, nil
}
