package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "BAGSTORE_CONFIG_FILE"

	DefaultWhatsAppNumber = "923141181535"
	DefaultStoreName      = "Dear Her"
	DefaultCartStorageKey = "dearher_cart"
)

var (
	ErrJWTSecretTooShort = errors.New("JWT_SECRET must be at least 32 characters")
	ErrDatabaseURL       = errors.New("DATABASE_URL is required")
	ErrCatalogBackend    = errors.New("catalog backend must be postgres or dynamodb")
)

type HTTP struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	SecureCookies     bool          `mapstructure:"secure_cookies"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Database struct {
	URL string `mapstructure:"url"`
}

type Catalog struct {
	Backend       string `mapstructure:"backend"`
	FeaturedLimit int    `mapstructure:"featured_limit"`
}

type DynamoDB struct {
	Table     string `mapstructure:"table"`
	SlugIndex string `mapstructure:"slug_index"`
}

type AWS struct {
	Region string `mapstructure:"region"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type JWT struct {
	Secret    string        `mapstructure:"secret"`
	AccessTTL time.Duration `mapstructure:"access_ttl"`
}

type WhatsApp struct {
	Number string `mapstructure:"number"`
}

type Store struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"base_url"`
}

type Upload struct {
	Bucket     string        `mapstructure:"bucket"`
	Prefix     string        `mapstructure:"prefix"`
	CDNBaseURL string        `mapstructure:"cdn_base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxBytes   int64         `mapstructure:"max_bytes"`
}

// Cart.TTL is an opt-in idle expiry for stored carts. Zero keeps carts
// until they are cleared.
type Cart struct {
	CookieName string        `mapstructure:"cookie_name"`
	StorageKey string        `mapstructure:"storage_key"`
	TTL        time.Duration `mapstructure:"ttl"`
}

type Config struct {
	HTTP     HTTP     `mapstructure:"http"`
	Log      Log      `mapstructure:"log"`
	Database Database `mapstructure:"database"`
	Catalog  Catalog  `mapstructure:"catalog"`
	DynamoDB DynamoDB `mapstructure:"dynamodb"`
	AWS      AWS      `mapstructure:"aws"`
	Redis    Redis    `mapstructure:"redis"`
	Kafka    Kafka    `mapstructure:"kafka"`
	JWT      JWT      `mapstructure:"jwt"`
	WhatsApp WhatsApp `mapstructure:"whatsapp"`
	Store    Store    `mapstructure:"store"`
	Upload   Upload   `mapstructure:"upload"`
	Cart     Cart     `mapstructure:"cart"`
}

// Load reads .env (if any), an optional YAML file passed with --config, and
// the environment. Environment keys use underscores: HTTP_ADDR, JWT_SECRET.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := configFilepath(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	// AutomaticEnv does not split comma lists for slices.
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		cfg.Kafka.Brokers = splitList(raw)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_header_timeout", 5*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.secure_cookies", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.url", "")

	v.SetDefault("catalog.backend", "postgres")
	v.SetDefault("catalog.featured_limit", 8)

	v.SetDefault("dynamodb.table", "products")
	v.SetDefault("dynamodb.slug_index", "slug-index")
	v.SetDefault("aws.region", "ap-south-1")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "catalog-events")
	v.SetDefault("kafka.group_id", "bagstore-catalog")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl", 24*time.Hour)

	v.SetDefault("whatsapp.number", DefaultWhatsAppNumber)
	v.SetDefault("store.name", DefaultStoreName)
	v.SetDefault("store.base_url", "http://localhost:8080")

	v.SetDefault("upload.bucket", "")
	v.SetDefault("upload.prefix", "dearher")
	v.SetDefault("upload.cdn_base_url", "")
	v.SetDefault("upload.timeout", 60*time.Second)
	v.SetDefault("upload.max_bytes", int64(10<<20))

	v.SetDefault("cart.cookie_name", "cart_id")
	v.SetDefault("cart.storage_key", DefaultCartStorageKey)
	v.SetDefault("cart.ttl", time.Duration(0))
}

// Validate checks the settings the service cannot start without.
func (c Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return ErrJWTSecretTooShort
	}
	// Accounts live in Postgres whichever catalog backend is chosen.
	if c.Database.URL == "" {
		return ErrDatabaseURL
	}
	switch c.Catalog.Backend {
	case "postgres", "dynamodb":
		return nil
	default:
		return ErrCatalogBackend
	}
}

// KafkaEnabled reports whether catalog changes go through Kafka.
func (c Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

func configFilepath() string {
	if env, ok := os.LookupEnv(configFileEnvName); ok {
		return env
	}
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	cmdLine.ParseErrorsWhitelist.UnknownFlags = true
	arg := cmdLine.String("config", "", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	return *arg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
