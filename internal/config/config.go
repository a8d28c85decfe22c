package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Storage  StorageConfig  `mapstructure:"storage"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	NATS     NATSConfig     `mapstructure:"nats"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Location LocationConfig `mapstructure:"location"`
	Market   MarketConfig   `mapstructure:"market"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type HTTPConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxPhotoBytes   int64         `mapstructure:"max_photo_bytes"`
}

// StorageConfig selects the key-value backend holding the listing collection.
type StorageConfig struct {
	Driver      string        `mapstructure:"driver"` // sqlite, redis, mongo, memory
	SaveTimeout time.Duration `mapstructure:"save_timeout"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	Database       string        `mapstructure:"database"`
	Collection     string        `mapstructure:"collection"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// NATSConfig configures the sync collaborator. An empty URL disables syncing.
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	Subject        string        `mapstructure:"subject"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// MinIOConfig configures photo offload. An empty endpoint keeps photos inline.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// SMTPConfig configures seller notifications. An empty host disables them.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type LocationConfig struct {
	Provider  string        `mapstructure:"provider"` // reported, static
	Latitude  float64       `mapstructure:"latitude"`
	Longitude float64       `mapstructure:"longitude"`
	Accuracy  float64       `mapstructure:"accuracy"`
	MaxAge    time.Duration `mapstructure:"max_age"`
}

type MarketConfig struct {
	Retention      time.Duration `mapstructure:"retention"`
	ExpirySchedule string        `mapstructure:"expiry_schedule"`
	SyncSchedule   string        `mapstructure:"sync_schedule"`
}

type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", "8080")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.max_photo_bytes", 5<<20)

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.save_timeout", "5s")

	v.SetDefault("sqlite.path", "data/market.db")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "market:")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.username", "")
	v.SetDefault("mongo.password", "")
	v.SetDefault("mongo.database", "market_service_db")
	v.SetDefault("mongo.collection", "collections")
	v.SetDefault("mongo.connect_timeout", "10s")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "market.listing.synced")
	v.SetDefault("nats.connect_timeout", "5s")

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "minioadmin")
	v.SetDefault("minio.secret_key", "minioadmin")
	v.SetDefault("minio.bucket", "listing-photos")
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "market@sinyoro.local")

	v.SetDefault("location.provider", "reported")
	v.SetDefault("location.latitude", 0.0)
	v.SetDefault("location.longitude", 0.0)
	v.SetDefault("location.accuracy", 0.0)
	v.SetDefault("location.max_age", "10m")

	v.SetDefault("market.retention", "720h")
	v.SetDefault("market.expiry_schedule", "@every 1h")
	v.SetDefault("market.sync_schedule", "@every 5m")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "market-service")
}

// Load reads defaults, an optional YAML file at path (file or directory),
// a .env file and MARKET_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	v := viper.New()
	setDefaults(v)

	if fi, err := os.Stat(path); path != "" && err == nil {
		if fi.IsDir() {
			v.AddConfigPath(path)
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		} else {
			v.SetConfigFile(path)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("MARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		log.Println("Config file not found; using defaults and environment variables.")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverRedis, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Location.Provider {
	case "reported", "static":
	default:
		return fmt.Errorf("config: unknown location provider %q", c.Location.Provider)
	}
	if c.Market.Retention < 0 {
		return errors.New("config: market.retention must not be negative")
	}
	return nil
}
