package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Environment   string
	Account       AccountConfig
	Device        DeviceConfig
	Database      DatabaseConfig
	API           APIConfig
	Observability ObservabilityConfig
}

type AccountConfig struct {
	Email    string
	Password string
}

type DeviceConfig struct {
	// Name is the human-readable device name resolved against the account's
	// device list on every run.
	Name string
	// Track is the store section new positions are appended to. Defaults to
	// the device name.
	Track string
}

type DatabaseConfig struct {
	Path      string
	LogTiming bool
}

type APIConfig struct {
	BaseURL string
	// ClientID is the durable client identity. When empty it is read from, or
	// generated into, the meta table of the database on first use.
	ClientID   string
	AppID      string
	AppVersion string
	Locale     string
	UserAgent  string
}

type ObservabilityConfig struct {
	Enabled           bool
	OTLPEndpoint      string
	OTLPTraceHeaders  map[string]string
	OTLPMetricHeaders map[string]string
	ServiceName       string
	ServiceVer        string
	SamplingRatio     float64
	MetricsConsole    bool
}

// Load reads configuration from the environment. Account email, password and
// device name are required; a missing value fails the run before any network
// activity.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("tiletrack_env", "")
	v.SetDefault("app_env", "")
	v.SetDefault("go_env", "")
	v.SetDefault("tiletrack_db_path", "data/tiletrack")
	v.SetDefault("tiletrack_db_timing", false)
	v.SetDefault("tiletrack_api_base_url", "https://production.tile-api.com/api/v1")
	v.SetDefault("tiletrack_app_id", "ios-tile-production")
	v.SetDefault("tiletrack_app_version", "2.89.1.4774")
	v.SetDefault("tiletrack_locale", "en-US")
	v.SetDefault("tiletrack_user_agent", "Tile/4774 CFNetwork/1312 Darwin/21.0.0")
	v.SetDefault("tiletrack_otel_enabled", false)
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_exporter_otlp_headers", "")
	v.SetDefault("otel_exporter_otlp_traces_headers", "")
	v.SetDefault("otel_exporter_otlp_metrics_headers", "")
	v.SetDefault("otel_service_name", "tiletrack")
	v.SetDefault("tiletrack_version", "dev")
	v.SetDefault("tiletrack_otel_sampling_ratio", 1.0)
	v.SetDefault("tiletrack_otel_metrics_console", false)

	email := strings.TrimSpace(v.GetString("tiletrack_email"))
	if email == "" {
		return Config{}, fmt.Errorf("TILETRACK_EMAIL is required")
	}
	password := v.GetString("tiletrack_password")
	if password == "" {
		return Config{}, fmt.Errorf("TILETRACK_PASSWORD is required")
	}
	deviceName := strings.TrimSpace(v.GetString("tiletrack_device_name"))
	if deviceName == "" {
		return Config{}, fmt.Errorf("TILETRACK_DEVICE_NAME is required")
	}

	track := strings.TrimSpace(v.GetString("tiletrack_track_name"))
	if track == "" {
		track = deviceName
	}

	baseURL := strings.TrimRight(strings.TrimSpace(v.GetString("tiletrack_api_base_url")), "/")
	if baseURL == "" {
		return Config{}, fmt.Errorf("TILETRACK_API_BASE_URL must not be blank")
	}

	samplingRatio := v.GetFloat64("tiletrack_otel_sampling_ratio")
	if samplingRatio < 0 {
		samplingRatio = 0
	}
	if samplingRatio > 1 {
		samplingRatio = 1
	}

	otlpEndpoint := strings.TrimSpace(v.GetString("otel_exporter_otlp_endpoint"))
	otlpCommonHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_headers"))
	otlpTraceHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_traces_headers"))
	otlpMetricHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_metrics_headers"))
	metricsConsole := v.GetBool("tiletrack_otel_metrics_console")
	otelEnabled := v.GetBool("tiletrack_otel_enabled") || otlpEndpoint != "" || metricsConsole

	cfg := Config{
		Environment: resolveEnvironment(v),
		Account: AccountConfig{
			Email:    email,
			Password: password,
		},
		Device: DeviceConfig{
			Name:  deviceName,
			Track: track,
		},
		Database: DatabaseConfig{
			Path:      strings.TrimSpace(v.GetString("tiletrack_db_path")),
			LogTiming: v.GetBool("tiletrack_db_timing"),
		},
		API: APIConfig{
			BaseURL:    baseURL,
			ClientID:   strings.TrimSpace(v.GetString("tiletrack_client_id")),
			AppID:      strings.TrimSpace(v.GetString("tiletrack_app_id")),
			AppVersion: strings.TrimSpace(v.GetString("tiletrack_app_version")),
			Locale:     strings.TrimSpace(v.GetString("tiletrack_locale")),
			UserAgent:  strings.TrimSpace(v.GetString("tiletrack_user_agent")),
		},
		Observability: ObservabilityConfig{
			Enabled:           otelEnabled,
			OTLPEndpoint:      otlpEndpoint,
			OTLPTraceHeaders:  mergeHeaderMaps(otlpCommonHeaders, otlpTraceHeaders),
			OTLPMetricHeaders: mergeHeaderMaps(otlpCommonHeaders, otlpMetricHeaders),
			ServiceName:       strings.TrimSpace(v.GetString("otel_service_name")),
			ServiceVer:        strings.TrimSpace(v.GetString("tiletrack_version")),
			SamplingRatio:     samplingRatio,
			MetricsConsole:    metricsConsole,
		},
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/tiletrack"
	}

	return cfg, nil
}

func parseOTLPHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pair := strings.SplitN(part, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key := strings.TrimSpace(pair[0])
		value := strings.TrimSpace(pair[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mergeHeaderMaps(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func (c Config) IsLocalDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

func resolveEnvironment(v *viper.Viper) string {
	for _, key := range []string{"tiletrack_env", "app_env", "go_env"} {
		value := strings.TrimSpace(v.GetString(key))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}
