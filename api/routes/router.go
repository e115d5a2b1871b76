package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/plaidbridge/api/controllers"
	webhookcontrollers "github.com/angelmondragon/plaidbridge/api/controllers/webhooks"
	"github.com/angelmondragon/plaidbridge/api/middleware"
	"github.com/angelmondragon/plaidbridge/internal/items"
	"github.com/angelmondragon/plaidbridge/pkg/config"
	"github.com/angelmondragon/plaidbridge/pkg/logger"
)

// redisStore is the slice of the redis client the router needs.
type redisStore interface {
	controllers.Pinger
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient redisStore,
	itemsService items.Service,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	linkPolicy := middleware.NewRateLimitPolicy(
		"link",
		cfg.RateLimit.Window,
		cfg.RateLimit.LinkIPLimit,
		cfg.RateLimit.LinkUserLimit,
	)
	exchangePolicy := middleware.NewRateLimitPolicy(
		"exchange",
		cfg.RateLimit.Window,
		cfg.RateLimit.LinkIPLimit,
		0,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/plaid", webhookcontrollers.PlaidWebhook(itemsService, logg))
		r.Get("/categories", controllers.Categories(itemsService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.With(middleware.RateLimit(linkPolicy, redisClient, logg)).Post("/link/token", controllers.CreateLinkToken(itemsService, logg))

			r.Route("/items", func(r chi.Router) {
				r.With(middleware.RateLimit(exchangePolicy, redisClient, logg)).Post("/", controllers.CreateItem(itemsService, logg))
				r.Get("/", controllers.ListItems(itemsService, logg))
				r.Get("/{itemID}/accounts", controllers.ItemAccounts(itemsService, logg))
				r.Post("/{itemID}/transactions/sync", controllers.SyncItemTransactions(itemsService, logg))
				r.Delete("/{itemID}", controllers.DeleteItem(itemsService, logg))
			})
		})
	})

	return r
}
