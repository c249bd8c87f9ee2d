package app

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/adanyl0v/go-todo-client/internal/config"
)

func (a *Application) MustReadEnv() {
	cfg, err := config.NewEnvReader().Read()
	if err != nil {
		a.logger.Error().
			Err(err).
			Msg("failed to read env")
		panic(err)
	}
	a.logger.Info().
		Str("env", cfg.Env).
		Str("api_base_url", cfg.API.BaseURL).
		Str("cache_driver", cfg.Cache.Driver).
		Msg("read env")

	a.config = cfg
}
