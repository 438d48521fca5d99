package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	DEM       DEMConfig       `mapstructure:"dem"`
	Watershed WatershedConfig `mapstructure:"watershed"`
	Tileset   TilesetConfig   `mapstructure:"tileset"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	TaskQueue string `mapstructure:"task_queue"`
}

// DEMConfig locates the project DEM GeoTIFF.
type DEMConfig struct {
	Path string `mapstructure:"path"`
	// Proj4 describes the DEM's CRS. Korean national DEMs typically ship in
	// EPSG:5179; the default assumes WGS84.
	Proj4 string `mapstructure:"proj4"`
	// OutputDir receives derived rasters (clipped DEM, slope, TWI, score).
	OutputDir string `mapstructure:"output_dir"`
}

// WatershedConfig locates the basin boundary shapefile.
type WatershedConfig struct {
	ShapefilePath string `mapstructure:"shapefile_path"`
	CodeColumn    string `mapstructure:"code_column"`
	NameColumn    string `mapstructure:"name_column"`
}

// TilesetConfig locates a tiled GeoTIFF elevation fallback (SRTM/EU-DEM style).
type TilesetConfig struct {
	Dir     string `mapstructure:"dir"`
	Enabled bool   `mapstructure:"enabled"`
}

// AnalysisConfig tunes the site evaluation.
type AnalysisConfig struct {
	ScoreThreshold   float64 `mapstructure:"score_threshold"`
	MinSpacingMeters float64 `mapstructure:"min_spacing_meters"`
	MaxCandidates    int     `mapstructure:"max_candidates"`
	// MaxAOICells rejects AOIs whose clipped raster would exceed this many
	// cells on the synchronous endpoint.
	MaxAOICells int `mapstructure:"max_aoi_cells"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "terrain")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "ngii_icuh")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.task_queue", "terrain-analysis-queue")
	v.SetDefault("dem.path", "output/dummy_dem.tif")
	v.SetDefault("dem.proj4", "+proj=longlat +datum=WGS84 +no_defs")
	v.SetDefault("dem.output_dir", "output/aoi_analysis")
	v.SetDefault("watershed.shapefile_path", "")
	v.SetDefault("watershed.code_column", "WKW_BSN_CD")
	v.SetDefault("watershed.name_column", "WKW_BSN_NM")
	v.SetDefault("tileset.dir", "")
	v.SetDefault("tileset.enabled", false)
	v.SetDefault("analysis.score_threshold", 70.0)
	v.SetDefault("analysis.min_spacing_meters", 250.0)
	v.SetDefault("analysis.max_candidates", 500)
	v.SetDefault("analysis.max_aoi_cells", 4_000_000)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: NGII_DEM_PATH → dem.path
	v.SetEnvPrefix("NGII")
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

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
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
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.DEM.Proj4 == "" {
		errs = append(errs, "dem.proj4 is required")
	}
	if c.Analysis.ScoreThreshold < 0 || c.Analysis.ScoreThreshold > 100 {
		errs = append(errs, fmt.Sprintf("analysis.score_threshold must be 0-100, got %g", c.Analysis.ScoreThreshold))
	}
	if c.Analysis.MinSpacingMeters < 0 {
		errs = append(errs, "analysis.min_spacing_meters must not be negative")
	}
	if c.Tileset.Enabled && c.Tileset.Dir == "" {
		errs = append(errs, "tileset.dir is required when tileset.enabled is true")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
