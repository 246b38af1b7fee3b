package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Catalog sources.
const (
	CatalogSourceSample   = "sample"
	CatalogSourceFile     = "file"
	CatalogSourceDatabase = "database"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Solver   SolverConfig
	Catalog  CatalogConfig
	Runs     RunsConfig
	Exports  ExportsConfig
	Events   EventsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig controls bearer token verification. Tokens are issued elsewhere.
type JWTConfig struct {
	Enabled bool
	Secret  string
	Issuer  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SolverConfig holds the default search tuning. Requests may override it
// within the Max* bounds.
type SolverConfig struct {
	PopulationSize        int
	MaxGenerations        int
	EliteCount            int
	TournamentSize        int
	LocalSearchIterations int
	PlacementAttempts     int
	LowMutationRate       float64
	HighMutationRate      float64
	MutationThreshold     int
	Workers               int
	Timeout               time.Duration
	MaxPopulationSize     int
	MaxGenerationsLimit   int
}

// CatalogConfig selects where the catalog comes from.
type CatalogConfig struct {
	Source   string
	File     string
	CacheTTL time.Duration
}

// RunsConfig sizes the asynchronous run queue.
type RunsConfig struct {
	Workers    int
	QueueSize  int
	RetainFor  time.Duration
	MaxHistory int
}

// ExportsConfig configures stored export artifacts and their signed links.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// EventsConfig points the run event publisher at RabbitMQ. An empty URL
// disables publishing.
type EventsConfig struct {
	AMQPURL        string
	Queue          string
	PublishTimeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Enabled: v.GetBool("AUTH_ENABLED"),
		Secret:  v.GetString("JWT_SECRET"),
		Issuer:  v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Solver = SolverConfig{
		PopulationSize:        v.GetInt("SOLVER_POPULATION_SIZE"),
		MaxGenerations:        v.GetInt("SOLVER_MAX_GENERATIONS"),
		EliteCount:            v.GetInt("SOLVER_ELITE_COUNT"),
		TournamentSize:        v.GetInt("SOLVER_TOURNAMENT_SIZE"),
		LocalSearchIterations: v.GetInt("SOLVER_LOCAL_SEARCH_ITERATIONS"),
		PlacementAttempts:     v.GetInt("SOLVER_PLACEMENT_ATTEMPTS"),
		LowMutationRate:       v.GetFloat64("SOLVER_LOW_MUTATION_RATE"),
		HighMutationRate:      v.GetFloat64("SOLVER_HIGH_MUTATION_RATE"),
		MutationThreshold:     v.GetInt("SOLVER_MUTATION_THRESHOLD"),
		Workers:               v.GetInt("SOLVER_WORKERS"),
		Timeout:               parseDuration(v.GetString("SOLVER_TIMEOUT"), 5*time.Minute),
		MaxPopulationSize:     v.GetInt("SOLVER_MAX_POPULATION_SIZE"),
		MaxGenerationsLimit:   v.GetInt("SOLVER_MAX_GENERATIONS_LIMIT"),
	}

	cfg.Catalog = CatalogConfig{
		Source:   strings.ToLower(v.GetString("CATALOG_SOURCE")),
		File:     v.GetString("CATALOG_FILE"),
		CacheTTL: parseDuration(v.GetString("CATALOG_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Runs = RunsConfig{
		Workers:    v.GetInt("RUNS_WORKERS"),
		QueueSize:  v.GetInt("RUNS_QUEUE_SIZE"),
		RetainFor:  parseDuration(v.GetString("RUNS_RETAIN_FOR"), time.Hour),
		MaxHistory: v.GetInt("RUNS_MAX_HISTORY"),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Events = EventsConfig{
		AMQPURL:        v.GetString("AMQP_URL"),
		Queue:          v.GetString("AMQP_QUEUE"),
		PublishTimeout: parseDuration(v.GetString("AMQP_PUBLISH_TIMEOUT"), 5*time.Second),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SOLVER_POPULATION_SIZE", 300)
	v.SetDefault("SOLVER_MAX_GENERATIONS", 2000)
	v.SetDefault("SOLVER_ELITE_COUNT", 20)
	v.SetDefault("SOLVER_TOURNAMENT_SIZE", 3)
	v.SetDefault("SOLVER_LOCAL_SEARCH_ITERATIONS", 50)
	v.SetDefault("SOLVER_PLACEMENT_ATTEMPTS", 20)
	v.SetDefault("SOLVER_LOW_MUTATION_RATE", 0.15)
	v.SetDefault("SOLVER_HIGH_MUTATION_RATE", 0.30)
	v.SetDefault("SOLVER_MUTATION_THRESHOLD", 50)
	v.SetDefault("SOLVER_WORKERS", 1)
	v.SetDefault("SOLVER_TIMEOUT", "5m")
	v.SetDefault("SOLVER_MAX_POPULATION_SIZE", 2000)
	v.SetDefault("SOLVER_MAX_GENERATIONS_LIMIT", 20000)

	v.SetDefault("CATALOG_SOURCE", CatalogSourceSample)
	v.SetDefault("CATALOG_FILE", "")
	v.SetDefault("CATALOG_CACHE_TTL", "10m")

	v.SetDefault("RUNS_WORKERS", 2)
	v.SetDefault("RUNS_QUEUE_SIZE", 16)
	v.SetDefault("RUNS_RETAIN_FOR", "1h")
	v.SetDefault("RUNS_MAX_HISTORY", 100)

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")

	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_QUEUE", "timetable_runs")
	v.SetDefault("AMQP_PUBLISH_TIMEOUT", "5s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
