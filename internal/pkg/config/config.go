package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Traceroute TracerouteConfig `mapstructure:"traceroute"`
	Geo        GeoConfig        `mapstructure:"geo"`
	Globe      GlobeConfig      `mapstructure:"globe"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TracerouteConfig struct {
	Binary         string `mapstructure:"binary"`
	MaxHops        int    `mapstructure:"max_hops"`
	Queries        int    `mapstructure:"queries"`
	WaitSeconds    int    `mapstructure:"wait_seconds"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// GeoConfig selects and tunes the IP geolocation provider.
// Provider is "ipapi", "mmdb", or "chain" (mmdb first, then ipapi).
type GeoConfig struct {
	Provider          string `mapstructure:"provider"`
	APIURL            string `mapstructure:"api_url"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	MMDBPath          string `mapstructure:"mmdb_path"`
	CacheTTLSeconds   int    `mapstructure:"cache_ttl_seconds"`
	Concurrency       int    `mapstructure:"concurrency"`
}

type GlobeConfig struct {
	BordersPath  string  `mapstructure:"borders_path"`
	SphereRadius float64 `mapstructure:"sphere_radius"`
	BorderRadius float64 `mapstructure:"border_radius"`
	ArcRadius    float64 `mapstructure:"arc_radius"`
	ArcPoints    int     `mapstructure:"arc_points"`
	SphereSteps  int     `mapstructure:"sphere_steps"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: GLOBETRACE_GEO_PROVIDER → geo.provider
	v.SetEnvPrefix("GLOBETRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 90)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "globetrace")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "globetrace")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "globetrace-traces")
	v.SetDefault("traceroute.binary", "traceroute")
	v.SetDefault("traceroute.max_hops", 30)
	v.SetDefault("traceroute.queries", 1)
	v.SetDefault("traceroute.wait_seconds", 2)
	v.SetDefault("traceroute.timeout_seconds", 75)
	v.SetDefault("geo.provider", "ipapi")
	v.SetDefault("geo.api_url", "http://ip-api.com")
	v.SetDefault("geo.requests_per_minute", 45)
	v.SetDefault("geo.mmdb_path", "data/GeoLite2-City.mmdb")
	v.SetDefault("geo.cache_ttl_seconds", 86400)
	v.SetDefault("geo.concurrency", 4)
	v.SetDefault("globe.borders_path", "data/ne_110m_admin_0_countries.geojson")
	v.SetDefault("globe.sphere_radius", 1.0)
	v.SetDefault("globe.border_radius", 1.01)
	v.SetDefault("globe.arc_radius", 1.02)
	v.SetDefault("globe.arc_points", 50)
	v.SetDefault("globe.sphere_steps", 100)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Temporal.Enabled && (c.Temporal.HostPort == "" || c.Temporal.TaskQueue == "") {
		errs = append(errs, "temporal.host_port and temporal.task_queue are required")
	}
	if c.Traceroute.Binary == "" {
		errs = append(errs, "traceroute.binary is required")
	}
	if c.Traceroute.MaxHops <= 0 || c.Traceroute.MaxHops > 255 {
		errs = append(errs, fmt.Sprintf("traceroute.max_hops must be 1-255, got %d", c.Traceroute.MaxHops))
	}
	if c.Traceroute.Queries <= 0 || c.Traceroute.Queries > 10 {
		errs = append(errs, fmt.Sprintf("traceroute.queries must be 1-10, got %d", c.Traceroute.Queries))
	}
	if c.Traceroute.WaitSeconds <= 0 {
		errs = append(errs, "traceroute.wait_seconds must be positive")
	}
	if c.Traceroute.TimeoutSeconds <= 0 {
		errs = append(errs, "traceroute.timeout_seconds must be positive")
	}
	switch c.Geo.Provider {
	case "ipapi", "mmdb", "chain":
	default:
		errs = append(errs, fmt.Sprintf("geo.provider must be ipapi, mmdb or chain, got %q", c.Geo.Provider))
	}
	if c.Geo.Provider != "mmdb" && c.Geo.APIURL == "" {
		errs = append(errs, "geo.api_url is required")
	}
	if c.Geo.Provider != "ipapi" && c.Geo.MMDBPath == "" {
		errs = append(errs, "geo.mmdb_path is required")
	}
	if c.Geo.RequestsPerMinute <= 0 {
		errs = append(errs, "geo.requests_per_minute must be positive")
	}
	if c.Geo.Concurrency <= 0 {
		errs = append(errs, "geo.concurrency must be positive")
	}
	if c.Globe.SphereRadius < 0 || c.Globe.BorderRadius < 0 || c.Globe.ArcRadius < 0 {
		errs = append(errs, "globe radii must not be negative")
	}
	if c.Globe.ArcPoints < 2 {
		errs = append(errs, fmt.Sprintf("globe.arc_points must be at least 2, got %d", c.Globe.ArcPoints))
	}
	if c.Globe.SphereSteps < 2 {
		errs = append(errs, fmt.Sprintf("globe.sphere_steps must be at least 2, got %d", c.Globe.SphereSteps))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
