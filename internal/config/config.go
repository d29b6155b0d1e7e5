package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/makeasinger/fabricator/internal/fabricator"
	"github.com/makeasinger/fabricator/internal/model"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server      ServerConfig
	Redis       RedisConfig
	JWT         JWTConfig
	RateLimit   RateLimitConfig
	R2          R2Config
	Catalog     CatalogConfig
	Fabrication FabricationConfig
	Craft       CraftConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	APIPerMin int
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// CatalogConfig locates the content snapshot. ObjectKey wins over Path when
// object storage is configured.
type CatalogConfig struct {
	Path      string
	ObjectKey string
}

type FabricationConfig struct {
	Workers        int
	CycleDelay     time.Duration
	RetryDelay     time.Duration
	BufferAhead    time.Duration
	RetainSegments int
	ShipTTL        time.Duration
}

type CraftConfig struct {
	MatchWeight      float64
	EntropyLimit     float64
	DirectBoundBonus float64
	DetailTypes      []string
	Seed             int64
}

// Tuning converts the craft settings into the value every fabricator is
// built with. Unknown instrument types are skipped.
func (c CraftConfig) Tuning() fabricator.Tuning {
	t := fabricator.Tuning{
		MatchWeight:      c.MatchWeight,
		EntropyLimit:     c.EntropyLimit,
		DirectBoundBonus: c.DirectBoundBonus,
	}
	for _, name := range c.DetailTypes {
		if it, ok := model.ParseInstrumentType(name); ok {
			t.DetailTypes = append(t.DetailTypes, it)
		}
	}
	return t
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables
	v.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = v.BindEnv("ratelimit.api_per_min", "RATELIMIT_API_PER_MIN")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = v.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = v.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = v.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = v.BindEnv("catalog.path", "CATALOG_PATH")
	_ = v.BindEnv("catalog.object_key", "CATALOG_OBJECT_KEY")
	_ = v.BindEnv("fabrication.workers", "FABRICATION_WORKERS")
	_ = v.BindEnv("fabrication.cycle_delay", "FABRICATION_CYCLE_DELAY")
	_ = v.BindEnv("fabrication.retry_delay", "FABRICATION_RETRY_DELAY")
	_ = v.BindEnv("fabrication.buffer_ahead", "FABRICATION_BUFFER_AHEAD")
	_ = v.BindEnv("fabrication.retain_segments", "FABRICATION_RETAIN_SEGMENTS")
	_ = v.BindEnv("fabrication.ship_ttl", "FABRICATION_SHIP_TTL")
	_ = v.BindEnv("craft.match_weight", "CRAFT_MATCH_WEIGHT")
	_ = v.BindEnv("craft.entropy_limit", "CRAFT_ENTROPY_LIMIT")
	_ = v.BindEnv("craft.direct_bound_bonus", "CRAFT_DIRECT_BOUND_BONUS")
	_ = v.BindEnv("craft.detail_types", "CRAFT_DETAIL_TYPES")
	_ = v.BindEnv("craft.seed", "CRAFT_SEED")

	// Defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expiration", 24)
	v.SetDefault("ratelimit.api_per_min", 120)
	v.SetDefault("catalog.path", "./catalog.json")
	v.SetDefault("fabrication.workers", 4)
	v.SetDefault("fabrication.cycle_delay", "1s")
	v.SetDefault("fabrication.retry_delay", "5s")
	v.SetDefault("fabrication.buffer_ahead", "60s")
	v.SetDefault("fabrication.retain_segments", 16)
	v.SetDefault("fabrication.ship_ttl", "24h")

	tuning := fabricator.DefaultTuning()
	detailTypes := make([]string, 0, len(tuning.DetailTypes))
	for _, it := range tuning.DetailTypes {
		detailTypes = append(detailTypes, string(it))
	}
	v.SetDefault("craft.match_weight", tuning.MatchWeight)
	v.SetDefault("craft.entropy_limit", tuning.EntropyLimit)
	v.SetDefault("craft.direct_bound_bonus", tuning.DirectBoundBonus)
	v.SetDefault("craft.detail_types", detailTypes)
	v.SetDefault("craft.seed", 0)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("server.port"),
			Env:      v.GetString("server.env"),
			LogLevel: v.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Expiration: v.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			APIPerMin: v.GetInt("ratelimit.api_per_min"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
		},
		Catalog: CatalogConfig{
			Path:      v.GetString("catalog.path"),
			ObjectKey: v.GetString("catalog.object_key"),
		},
		Fabrication: FabricationConfig{
			Workers:        v.GetInt("fabrication.workers"),
			CycleDelay:     v.GetDuration("fabrication.cycle_delay"),
			RetryDelay:     v.GetDuration("fabrication.retry_delay"),
			BufferAhead:    v.GetDuration("fabrication.buffer_ahead"),
			RetainSegments: v.GetInt("fabrication.retain_segments"),
			ShipTTL:        v.GetDuration("fabrication.ship_ttl"),
		},
		Craft: CraftConfig{
			MatchWeight:      v.GetFloat64("craft.match_weight"),
			EntropyLimit:     v.GetFloat64("craft.entropy_limit"),
			DirectBoundBonus: v.GetFloat64("craft.direct_bound_bonus"),
			DetailTypes:      detailTypesOf(v),
			Seed:             v.GetInt64("craft.seed"),
		},
	}

	return cfg, nil
}

// detailTypesOf accepts a yaml list or a comma separated env value.
func detailTypesOf(v *viper.Viper) []string {
	var out []string
	for _, s := range v.GetStringSlice("craft.detail_types") {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
