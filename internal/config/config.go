package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/evanhutnik/routerisk-service/internal/sampler"
	"github.com/joho/godotenv"
)

// Config holds every setting the service needs; credentials never live in globals.
type Config struct {
	PositionstackApiKey  string
	PositionstackBaseUrl string
	OsrmBaseUrl          string
	OpenweatherApiKey    string
	OpenweatherBaseUrl   string

	RedisAddress    string
	DisableRedis    bool
	WeatherCacheTTL time.Duration
	CacheRadiusKm   float64

	NatsUrl     string
	NatsSubject string

	HTTPAddr        string
	LogLevel        string
	LogDevelopment  bool
	ShutdownTimeout time.Duration

	SampleIntervalKm     float64
	SamplePolicy         sampler.Policy
	MaxConcurrentLookups int
	RequestTimeout       time.Duration
	HTTPRetries          int
}

// Load reads an optional .env file, then the environment, applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []string
	cfg := &Config{
		PositionstackApiKey:  os.Getenv("POSITIONSTACK_APIKEY"),
		PositionstackBaseUrl: envOrDefault("POSITIONSTACK_BASEURL", "http://api.positionstack.com/v1"),
		OsrmBaseUrl:          envOrDefault("OSRM_BASEURL", "https://router.project-osrm.org/route/v1/driving"),
		OpenweatherApiKey:    os.Getenv("OPENWEATHER_APIKEY"),
		OpenweatherBaseUrl:   envOrDefault("OPENWEATHER_BASEURL", "https://api.openweathermap.org/data/2.5"),
		RedisAddress:         envOrDefault("REDIS_ADDRESS", "localhost:6379"),
		NatsUrl:              os.Getenv("NATS_URL"),
		NatsSubject:          envOrDefault("NATS_SUBJECT", "routerisk.reports"),
		HTTPAddr:             envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:             envOrDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.DisableRedis, err = parseBool("DISABLE_REDIS", false); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.LogDevelopment, err = parseBool("LOG_DEVELOPMENT", false); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.WeatherCacheTTL, err = parseDuration("WEATHER_CACHE_TTL", 2*time.Hour); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.ShutdownTimeout, err = parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.RequestTimeout, err = parseDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.CacheRadiusKm, err = parsePositiveFloat("WEATHER_CACHE_RADIUS_KM", 10); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.SampleIntervalKm, err = parsePositiveFloat("SAMPLE_INTERVAL_KM", 50); err != nil {
		errs = append(errs, err.Error())
	} else if cfg.SampleIntervalKm < 1 {
		errs = append(errs, fmt.Sprintf("invalid SAMPLE_INTERVAL_KM: %q must be at least 1", os.Getenv("SAMPLE_INTERVAL_KM")))
	}
	if cfg.SamplePolicy, err = sampler.ParsePolicy(os.Getenv("SAMPLE_POLICY")); err != nil {
		errs = append(errs, fmt.Sprintf("invalid SAMPLE_POLICY: %q", os.Getenv("SAMPLE_POLICY")))
	}
	if cfg.MaxConcurrentLookups, err = parsePositiveInt("MAX_CONCURRENT_LOOKUPS", 8); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.HTTPRetries, err = parsePositiveInt("HTTP_RETRIES", 3); err != nil {
		errs = append(errs, err.Error())
	}

	if cfg.PositionstackApiKey == "" {
		errs = append(errs, "POSITIONSTACK_APIKEY is required")
	}
	if cfg.OpenweatherApiKey == "" {
		errs = append(errs, "OPENWEATHER_APIKEY is required")
	}
	if !cfg.DisableRedis && cfg.RedisAddress == "" {
		errs = append(errs, "REDIS_ADDRESS is required unless DISABLE_REDIS is true")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s: %q", key, v)
	}
	return b, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func parsePositiveFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fallback, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}
