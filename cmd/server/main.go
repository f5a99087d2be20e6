package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/throttle-go/internal/container"
	"github.com/serroba/throttle-go/internal/events"
	"github.com/serroba/throttle-go/internal/store"
	"go.uber.org/zap"
)

func registerPackages(injector *do.Injector, options *container.Options) {
	do.ProvideValue(injector, options)
	container.LoggerPackage(injector)
	container.RateLimitPackage(injector)
	container.EventsPackage(injector)
	container.HTTPPackage(injector)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		injector := do.New()
		registerPackages(injector, options)

		logger := do.MustInvoke[*zap.Logger](injector)

		var server *http.Server

		hooks.OnStart(func() {
			router := do.MustInvoke[*chi.Mux](injector)

			// Invoke API to trigger middleware and route registration
			_ = do.MustInvoke[huma.API](injector)

			consumer := do.MustInvoke[*events.Consumer](injector)
			if err := consumer.Start(context.Background()); err != nil {
				logger.Fatal("failed to start denial consumer", zap.Error(err))
			}

			server = &http.Server{
				Addr:              fmt.Sprintf(":%d", options.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("server starting",
				zap.Int("port", options.Port),
				zap.Int("window_seconds", options.WindowSeconds),
				zap.Int("limit", options.Limit),
				zap.Int("subnet_bits", options.SubnetBits),
			)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			logger.Info("shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if server != nil {
				if err := server.Shutdown(ctx); err != nil {
					logger.Error("server shutdown error", zap.Error(err))
				}
			}

			counters := do.MustInvoke[*store.CounterMemoryStore](injector)

			// Publisher and consumer implement do's Shutdownable and are
			// closed by the injector
			if err := injector.Shutdown(); err != nil {
				logger.Error("service shutdown error", zap.Error(err))
			}

			counters.Shutdown()

			logger.Info("shutdown complete")
		})
	})

	cli.Run()
}
