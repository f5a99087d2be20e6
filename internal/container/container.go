package container

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/throttle-go/internal/clientkey"
	"github.com/serroba/throttle-go/internal/events"
	"github.com/serroba/throttle-go/internal/handlers"
	"github.com/serroba/throttle-go/internal/health"
	"github.com/serroba/throttle-go/internal/middleware"
	"github.com/serroba/throttle-go/internal/ratelimit"
	"github.com/serroba/throttle-go/internal/store"
	"go.uber.org/zap"
)

// Options holds the runtime configuration. All values reach the core as
// plain arguments; nothing below the container parses configuration.
type Options struct {
	Port          int    `default:"8888"    help:"Port to listen on"                                  short:"p"`
	WindowSeconds int    `default:"60"      help:"Rate limit window length in seconds"                short:"w"`
	Limit         int    `default:"100"     help:"Maximum requests per client key per window"         short:"l"`
	SubnetBits    int    `default:"56"      help:"IPv6 subnet prefix length for key collapsing, 0 disables"`
	KeyCacheSize  int    `default:"10000"   help:"Maximum memoized key normalizations"`
	DenialLogSize int    `default:"1000"    help:"Maximum denial events kept for the ops API"`
	LogFormat     string `default:"console" help:"Log format: console or json"`
}

// LoggerPackage provides the zap logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		if options.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RateLimitPackage provides the key normalizer, the counter store, and the
// limiter built on top of them. The store is armed here with the configured
// window.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*clientkey.Normalizer, error) {
		options := do.MustInvoke[*Options](i)

		return clientkey.NewNormalizer(options.KeyCacheSize), nil
	})

	do.Provide(injector, func(i *do.Injector) (*store.CounterMemoryStore, error) {
		options := do.MustInvoke[*Options](i)

		counters := store.NewCounterMemoryStore()
		counters.Init(time.Duration(options.WindowSeconds) * time.Second)

		return counters, nil
	})

	do.Provide(injector, func(i *do.Injector) (ratelimit.Store, error) {
		return do.MustInvoke[*store.CounterMemoryStore](i), nil
	})

	do.Provide(injector, func(i *do.Injector) (ratelimit.Limiter, error) {
		options := do.MustInvoke[*Options](i)
		counters := do.MustInvoke[ratelimit.Store](i)

		return ratelimit.NewFixedWindowLimiter(counters, int64(options.Limit)), nil
	})
}

// EventsPackage provides the in-process event bus, the denial event
// publisher and consumer, and the denial log backing the ops API.
func EventsPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*gochannel.GoChannel, error) {
		return gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{}), nil
	})

	do.Provide(injector, func(i *do.Injector) (*store.DenialMemoryStore, error) {
		options := do.MustInvoke[*Options](i)

		return store.NewDenialMemoryStore(options.DenialLogSize), nil
	})

	do.Provide(injector, func(i *do.Injector) (*events.Publisher, error) {
		return events.NewPublisher(do.MustInvoke[*gochannel.GoChannel](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*events.Consumer, error) {
		return events.NewConsumer(
			do.MustInvoke[*gochannel.GoChannel](i),
			do.MustInvoke[*store.DenialMemoryStore](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// HTTPPackage provides the router and the API with middleware and routes
// registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		options := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		normalizer := do.MustInvoke[*clientkey.Normalizer](i)
		limiter := do.MustInvoke[ratelimit.Limiter](i)
		counters := do.MustInvoke[*store.CounterMemoryStore](i)
		denials := do.MustInvoke[*store.DenialMemoryStore](i)
		publisher := do.MustInvoke[*events.Publisher](i)

		api := humachi.New(router, huma.DefaultConfig("Throttle", "1.0.0"))

		keyFn := middleware.ClientIPKey(normalizer, options.SubnetBits)
		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.RateLimiter(api, limiter, keyFn, logger, publisher.PublishRequestDenied),
		)

		limitsHandler := handlers.NewLimitsHandler(counters, denials, logger)
		handlers.RegisterRoutes(api, limitsHandler)
		health.RegisterRoutes(api, health.NewHandler(counters, normalizer))

		return api, nil
	})
}
