package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Log      LogConfig
	Worker   WorkerConfig
	Pipeline PipelineConfig
	Viewer   ViewerConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

// DatabaseConfig - run ledger database. An empty Host disables the ledger.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	ArchivesCacheTTL time.Duration
}

type LogConfig struct {
	Level string
}

type WorkerConfig struct {
	Enabled           bool
	ConsumerGroup     string
	StreamReadTimeout time.Duration
	BatchSize         int
}

// SimplifyConfig - simplification settings for one geometry type.
type SimplifyConfig struct {
	Tolerance        float64
	PreserveTopology bool
}

// TilingConfig - tippecanoe settings for one geometry type.
type TilingConfig struct {
	MinZoom int
	MaxZoom int
	Flags   []string
}

type PipelineConfig struct {
	InputDir       string
	OutputDir      string
	TempDir        string
	Ogr2OgrPath    string
	TippecanoePath string
	ToolTimeout    time.Duration
	FallbackCRS    string
	SampleSeed     uint64

	PolygonSimplify SimplifyConfig
	LineSimplify    SimplifyConfig
	PolygonTiling   TilingConfig
	LineTiling      TilingConfig
	PointTiling     TilingConfig
}

type ViewerConfig struct {
	CatalogPath      string
	TileBaseURL      string
	DiscoverArchives bool
	SessionTTL       time.Duration
	StaticDir        string
}

func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// .env is optional, environment variables still apply
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("API_PORT", 8080)
	v.SetDefault("API_ENV", "development")

	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 300)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 60)

	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("ARCHIVES_CACHE_TTL", 60)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("WORKER_CONSUMER_GROUP", "conversion-workers")
	v.SetDefault("WORKER_STREAM_READ_TIMEOUT", 5000)
	v.SetDefault("WORKER_BATCH_SIZE", 1)

	v.SetDefault("PIPELINE_INPUT_DIR", "data/gpkg")
	v.SetDefault("PIPELINE_OUTPUT_DIR", "data/pmtiles")
	v.SetDefault("PIPELINE_TEMP_DIR", "")
	v.SetDefault("PIPELINE_OGR2OGR", "ogr2ogr")
	v.SetDefault("PIPELINE_TIPPECANOE", "tippecanoe")
	v.SetDefault("PIPELINE_TOOL_TIMEOUT", 0)
	v.SetDefault("PIPELINE_FALLBACK_CRS", "EPSG:27700")
	v.SetDefault("PIPELINE_SAMPLE_SEED", 42)

	v.SetDefault("PIPELINE_POLYGON_TOLERANCE", 0.0005)
	v.SetDefault("PIPELINE_POLYGON_PRESERVE_TOPOLOGY", true)
	v.SetDefault("PIPELINE_LINE_TOLERANCE", 0.001)
	v.SetDefault("PIPELINE_LINE_PRESERVE_TOPOLOGY", false)

	v.SetDefault("PIPELINE_POLYGON_MINZOOM", 4)
	v.SetDefault("PIPELINE_POLYGON_MAXZOOM", 12)
	v.SetDefault("PIPELINE_POLYGON_FLAGS", "--simplification=10,--coalesce-densest-as-needed,--detect-shared-borders")
	v.SetDefault("PIPELINE_LINE_MINZOOM", 6)
	v.SetDefault("PIPELINE_LINE_MAXZOOM", 14)
	v.SetDefault("PIPELINE_LINE_FLAGS", "--simplification=5,--drop-densest-as-needed")
	v.SetDefault("PIPELINE_POINT_MINZOOM", 5)
	v.SetDefault("PIPELINE_POINT_MAXZOOM", 14)
	v.SetDefault("PIPELINE_POINT_FLAGS", "--drop-densest-as-needed,-r1")

	v.SetDefault("VIEWER_CATALOG_PATH", "")
	v.SetDefault("VIEWER_TILE_BASE_URL", "http://localhost:8080/tiles")
	v.SetDefault("VIEWER_DISCOVER_ARCHIVES", false)
	v.SetDefault("VIEWER_SESSION_TTL", 3600)
	v.SetDefault("VIEWER_STATIC_DIR", "./static")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Host: v.GetString("API_HOST"),
			Port: v.GetInt("API_PORT"),
			Env:  v.GetString("API_ENV"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxConns:        v.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(v.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			ArchivesCacheTTL: time.Duration(v.GetInt("ARCHIVES_CACHE_TTL")) * time.Second,
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Worker: WorkerConfig{
			Enabled:           v.GetBool("WORKER_ENABLED"),
			ConsumerGroup:     v.GetString("WORKER_CONSUMER_GROUP"),
			StreamReadTimeout: time.Duration(v.GetInt("WORKER_STREAM_READ_TIMEOUT")) * time.Millisecond,
			BatchSize:         v.GetInt("WORKER_BATCH_SIZE"),
		},
		Pipeline: PipelineConfig{
			InputDir:       v.GetString("PIPELINE_INPUT_DIR"),
			OutputDir:      v.GetString("PIPELINE_OUTPUT_DIR"),
			TempDir:        v.GetString("PIPELINE_TEMP_DIR"),
			Ogr2OgrPath:    v.GetString("PIPELINE_OGR2OGR"),
			TippecanoePath: v.GetString("PIPELINE_TIPPECANOE"),
			ToolTimeout:    time.Duration(v.GetInt("PIPELINE_TOOL_TIMEOUT")) * time.Second,
			FallbackCRS:    v.GetString("PIPELINE_FALLBACK_CRS"),
			SampleSeed:     v.GetUint64("PIPELINE_SAMPLE_SEED"),
			PolygonSimplify: SimplifyConfig{
				Tolerance:        v.GetFloat64("PIPELINE_POLYGON_TOLERANCE"),
				PreserveTopology: v.GetBool("PIPELINE_POLYGON_PRESERVE_TOPOLOGY"),
			},
			LineSimplify: SimplifyConfig{
				Tolerance:        v.GetFloat64("PIPELINE_LINE_TOLERANCE"),
				PreserveTopology: v.GetBool("PIPELINE_LINE_PRESERVE_TOPOLOGY"),
			},
			PolygonTiling: TilingConfig{
				MinZoom: v.GetInt("PIPELINE_POLYGON_MINZOOM"),
				MaxZoom: v.GetInt("PIPELINE_POLYGON_MAXZOOM"),
				Flags:   parseList(v.GetString("PIPELINE_POLYGON_FLAGS")),
			},
			LineTiling: TilingConfig{
				MinZoom: v.GetInt("PIPELINE_LINE_MINZOOM"),
				MaxZoom: v.GetInt("PIPELINE_LINE_MAXZOOM"),
				Flags:   parseList(v.GetString("PIPELINE_LINE_FLAGS")),
			},
			PointTiling: TilingConfig{
				MinZoom: v.GetInt("PIPELINE_POINT_MINZOOM"),
				MaxZoom: v.GetInt("PIPELINE_POINT_MAXZOOM"),
				Flags:   parseList(v.GetString("PIPELINE_POINT_FLAGS")),
			},
		},
		Viewer: ViewerConfig{
			CatalogPath:      v.GetString("VIEWER_CATALOG_PATH"),
			TileBaseURL:      strings.TrimRight(v.GetString("VIEWER_TILE_BASE_URL"), "/"),
			DiscoverArchives: v.GetBool("VIEWER_DISCOVER_ARCHIVES"),
			SessionTTL:       time.Duration(v.GetInt("VIEWER_SESSION_TTL")) * time.Second,
			StaticDir:        v.GetString("VIEWER_STATIC_DIR"),
		},
	}
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return c.Redis.Addr()
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// RedisEnabled reports whether the archive cache and conversion queue are
// configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

// LedgerEnabled reports whether run reports should be written to PostgreSQL.
func (c *Config) LedgerEnabled() bool {
	return c.Database.Host != ""
}

// Simplify returns the simplification settings for a geometry type.
func (p PipelineConfig) Simplify(geometryType string) SimplifyConfig {
	if geometryType == "line" {
		return p.LineSimplify
	}
	return p.PolygonSimplify
}

// Tiling returns the tippecanoe settings for a geometry type.
func (p PipelineConfig) Tiling(geometryType string) TilingConfig {
	switch geometryType {
	case "line":
		return p.LineTiling
	case "point":
		return p.PointTiling
	default:
		return p.PolygonTiling
	}
}
