// Package app assembles the storefront service with fx.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dearher/bagstore/config"
	"github.com/dearher/bagstore/internal/api"
	"github.com/dearher/bagstore/internal/api/middleware"
	"github.com/dearher/bagstore/internal/auth"
	"github.com/dearher/bagstore/internal/catalog"
	"github.com/dearher/bagstore/internal/checkout"
	"github.com/dearher/bagstore/internal/command"
	"github.com/dearher/bagstore/internal/domain/cart"
	"github.com/dearher/bagstore/internal/guard"
	"github.com/dearher/bagstore/internal/infrastructure/cache"
	"github.com/dearher/bagstore/internal/infrastructure/kafka"
	"github.com/dearher/bagstore/internal/infrastructure/store"
	"github.com/dearher/bagstore/internal/infrastructure/upload"
	"github.com/dearher/bagstore/internal/observability/logger"
	"github.com/dearher/bagstore/internal/observability/metrics"
	"github.com/dearher/bagstore/internal/projection"
	"github.com/dearher/bagstore/internal/query"
)

// Infrastructure provides configuration, logging, metrics and the
// external clients.
var Infrastructure = fx.Options(
	fx.Provide(
		config.Load,
		newLogger,
		metrics.New,
		newDB,
		newRedis,
		newAWSConfig,
	),
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log.Named("fx")}
	}),
)

// Storefront provides the domain services and the HTTP surface.
var Storefront = fx.Options(
	fx.Provide(
		newCatalogStore,
		newUserStore,
		newHub,
		newNotifier,
		newImageStore,
		newIdentity,
		newGuard,
		newCartService,
		newCheckoutBuilder,
		command.NewHandler,
		newQueryHandler,
		newHandlers,
		newAdminHandlers,
		newAuthHandlers,
		newRouter,
	),
	fx.Invoke(
		migrate,
		observeSessions,
		observeGuard,
		runConsumer,
		runHTTP,
	),
)

func New() *fx.App {
	return fx.New(Infrastructure, Storefront)
}

func newLogger(cfg config.Config, lc fx.Lifecycle) (*zap.Logger, error) {
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func() { _ = log.Sync() }))
	return log, nil
}

func newDB(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*sqlx.DB, error) {
	db, err := store.ConnectPostgres(context.Background(), cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	log.Info("connected to postgres")
	lc.Append(fx.StopHook(db.Close))
	return db, nil
}

func newRedis(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*redis.Client, error) {
	client, err := cache.NewClient(context.Background(), cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	lc.Append(fx.StopHook(client.Close))
	return client, nil
}

func newAWSConfig(cfg config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWS.Region))
}

func migrate(db *sqlx.DB, log *zap.Logger) error {
	return store.Migrate(db, log)
}

func newCatalogStore(cfg config.Config, db *sqlx.DB, awsCfg aws.Config, log *zap.Logger) catalog.Store {
	if cfg.Catalog.Backend == "dynamodb" {
		log.Info("catalog backend: dynamodb", zap.String("table", cfg.DynamoDB.Table))
		return store.NewDynamoCatalogStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDB.Table, cfg.DynamoDB.SlugIndex)
	}
	log.Info("catalog backend: postgres")
	return store.NewPostgresCatalogStore(db)
}

func newUserStore(db *sqlx.DB) auth.UserStore {
	return store.NewPostgresUserStore(db)
}

func newHub(s catalog.Store, log *zap.Logger) *catalog.Hub {
	return catalog.NewHub(s, log)
}

// newNotifier publishes to Kafka when brokers are configured; otherwise
// the hub refreshes itself in-process.
func newNotifier(lc fx.Lifecycle, cfg config.Config, hub *catalog.Hub, log *zap.Logger) catalog.Notifier {
	if !cfg.KafkaEnabled() {
		log.Info("catalog notifications: in-process")
		return hub
	}
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	lc.Append(fx.StopHook(producer.Close))
	log.Info("catalog notifications: kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	return producer
}

func newImageStore(cfg config.Config, awsCfg aws.Config, log *zap.Logger) command.ImageStore {
	return upload.NewS3Uploader(s3.NewFromConfig(awsCfg), upload.Config{
		Bucket:     cfg.Upload.Bucket,
		Prefix:     cfg.Upload.Prefix,
		CDNBaseURL: cfg.Upload.CDNBaseURL,
		Region:     cfg.AWS.Region,
		Timeout:    cfg.Upload.Timeout,
	}, log)
}

func newIdentity(cfg config.Config, users auth.UserStore, client *redis.Client, log *zap.Logger) *auth.Identity {
	jwt := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessTTL)
	return auth.NewIdentity(users, jwt, cache.NewRedisRevocations(client), log)
}

func newGuard(identity *auth.Identity, log *zap.Logger) (*guard.Guard, error) {
	caps, err := guard.NewCapabilities()
	if err != nil {
		return nil, err
	}
	return guard.New(identity, caps, log), nil
}

func newCartService(cfg config.Config, client *redis.Client, log *zap.Logger) *cart.Service {
	return cart.NewService(cache.NewRedisSlotStore(client, cfg.Cart.StorageKey, cfg.Cart.TTL), log)
}

func newCheckoutBuilder(cfg config.Config) *checkout.Builder {
	return checkout.NewBuilder(cfg.WhatsApp.Number, cfg.Store.Name)
}

func newQueryHandler(cfg config.Config, hub *catalog.Hub, s catalog.Store, log *zap.Logger) *query.Handler {
	return query.NewHandler(hub, s, cfg.Catalog.FeaturedLimit, log)
}

func newHandlers(cfg config.Config, q *query.Handler, carts *cart.Service, b *checkout.Builder, hub *catalog.Hub, m *metrics.Metrics, log *zap.Logger) *api.Handlers {
	return api.NewHandlers(q, carts, b, hub, cfg.Store.BaseURL, m, log)
}

func newAdminHandlers(cfg config.Config, cmd *command.Handler, q *query.Handler, g *guard.Guard, log *zap.Logger) *api.AdminHandlers {
	return api.NewAdminHandlers(cmd, q, g, cfg.Upload.MaxBytes, log)
}

func newAuthHandlers(cfg config.Config, identity *auth.Identity, g *guard.Guard, log *zap.Logger) *api.AuthHandlers {
	return api.NewAuthHandlers(identity, g, cfg.HTTP.SecureCookies, log)
}

func newRouter(cfg config.Config, h *api.Handlers, admin *api.AdminHandlers, authHandlers *api.AuthHandlers, g *guard.Guard, m *metrics.Metrics, log *zap.Logger) http.Handler {
	return api.NewRouter(h, admin, authHandlers, g, m, api.RouterConfig{
		Visitor: middleware.VisitorConfig{
			CookieName: cfg.Cart.CookieName,
			TTL:        cfg.Cart.TTL,
			Secure:     cfg.HTTP.SecureCookies,
		},
	}, log)
}

func observeSessions(lc fx.Lifecycle, identity *auth.Identity, m *metrics.Metrics, log *zap.Logger) {
	cancel := identity.Subscribe(func(ev auth.SessionEvent) {
		m.SessionChanges.WithLabelValues(ev.Kind).Inc()
		log.Debug("session changed", zap.String("kind", ev.Kind), zap.String("uid", ev.Session.UserID))
	})
	lc.Append(fx.StopHook(cancel))
}

func observeGuard(g *guard.Guard, m *metrics.Metrics) {
	g.OnDecision(func(s guard.State) {
		m.GuardDecisions.WithLabelValues(string(s)).Inc()
	})
}

// runConsumer feeds broker events into this process's hub. Each instance
// joins its own consumer group so every instance sees every event.
func runConsumer(lc fx.Lifecycle, cfg config.Config, hub *catalog.Hub, m *metrics.Metrics, log *zap.Logger) {
	if !cfg.KafkaEnabled() {
		return
	}
	host, _ := os.Hostname()
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID+"-"+host, log)
	projector := projection.NewProjector(hub, log)
	projector.OnApply(func(result string) {
		m.CatalogRefreshes.WithLabelValues(result).Inc()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := consumer.Consume(ctx, projector.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("catalog consumer stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return consumer.Close()
		},
	})
}

func runHTTP(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, router http.Handler, log *zap.Logger) {
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return err
			}
			log.Info("http server started", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server failed", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
			defer cancel()
			log.Info("http server stopping")
			return server.Shutdown(ctx)
		},
	})
}
