package config

import "time"

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

type Config struct {
	Env              string `env:"ENV" env-required:"true"`
	SerializePerTask bool   `env:"SERIALIZE_PER_TASK" env-default:"false"`
	API              APIConfig
	HTTP             HTTPConfig
	Cache            CacheConfig
}

type APIConfig struct {
	BaseURL        string        `env:"API_BASE_URL" env-default:"http://localhost:8000"`
	Timeout        time.Duration `env:"API_TIMEOUT" env-default:"10s"`
	RefetchTimeout time.Duration `env:"API_REFETCH_TIMEOUT" env-default:"10s"`
}

type HTTPConfig struct {
	Host            string        `env:"HTTP_HOST" env-default:"localhost"`
	Port            string        `env:"HTTP_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type CacheConfig struct {
	Driver        string        `env:"CACHE_DRIVER" env-default:"memory"`
	RedisAddr     string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" env-default:"0"`
	Prefix        string        `env:"CACHE_PREFIX" env-default:"todo:"`
	TTL           time.Duration `env:"CACHE_TTL" env-default:"5m"`
}
