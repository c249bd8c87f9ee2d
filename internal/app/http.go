package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/adanyl0v/go-todo-client/internal/config"
	"github.com/adanyl0v/go-todo-client/internal/delivery/http/v1"
	"github.com/adanyl0v/go-todo-client/internal/metrics"
)

// MustListenAndServeHTTP blocks until SIGINT or SIGTERM and then shuts
// the server down within the configured timeout.
func (a *Application) MustListenAndServeHTTP() {
	cfg := a.config
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	a.registerRoutes(router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Request contexts derive from ctx, so open event streams end as
	// soon as a shutdown starts.
	server := &http.Server{
		Addr:              net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to listen and serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info().
			Msg("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if err != nil {
		a.logger.Error().
			Err(err).
			Msg("failed to serve http")
		panic(err)
	}
	a.logger.Info().Msg("shut down http server")
}

func (a *Application) registerRoutes(router gin.IRouter) {
	v1Handler := v1.New(
		a.componentLogger("http"),
		a.taskService,
		a.taskStore,
	)
	v1.RegisterRoutes(router, v1Handler)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}
