package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo-client/internal/config"
)

func (a *Application) InitDefaultLogger() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	zerolog.TimestampFieldName = "timestamp"

	a.logger = zerolog.New(os.Stderr).
		With().
		Timestamp().
		Caller().
		Int("pid", os.Getpid()).
		Logger()

	a.logger.Debug().Msg("initialized default logger")
}

// MustInitApplicationLogger picks the level and output for the
// configured env. Logs go to stderr so CLI output stays clean.
func (a *Application) MustInitApplicationLogger() {
	w := io.Writer(os.Stderr)
	switch a.config.Env {
	case config.EnvDev:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case config.EnvProd:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case config.EnvLocal:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)

		consoleWriter := zerolog.NewConsoleWriter()
		consoleWriter.TimeFormat = time.DateTime
		consoleWriter.Out = os.Stderr
		w = consoleWriter
	default:
		a.logger.Error().
			Str("env", a.config.Env).
			Msg("unknown env")
		panic(fmt.Errorf("unknown env: %s", a.config.Env))
	}

	a.logger = a.logger.Output(w)
	a.logger.Debug().Msg("initialized application logger")
}

func (a *Application) componentLogger(name string) zerolog.Logger {
	return a.logger.With().
		Str("component", name).
		Logger()
}
