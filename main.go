package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/application"
	appcart "github.com/Zhima-Mochi/restaurant-ordering/internal/application/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/catalog"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/checkout"
	appinventory "github.com/Zhima-Mochi/restaurant-ordering/internal/application/inventory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/notification"
	apporder "github.com/Zhima-Mochi/restaurant-ordering/internal/application/order"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/promotion"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/config"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/audit"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/id"
	inventoryworker "github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/inventory/worker"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/notify"
	infraobs "github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/seed"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/sqlstore"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
	httppresentation "github.com/Zhima-Mochi/restaurant-ordering/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/restaurant-ordering/internal/presentation/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	zl, err := zaplogger.Build(zaplogger.Options{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
		File:     cfg.Log.File,
	},
		observability.F("service", cfg.Service.Name),
		observability.F("env", cfg.Service.Environment),
	)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	baseLogger := zaplogger.Wrap(zl)
	systemLogger := baseLogger.With(observability.F("component", "system"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	counters, histograms := prometrics.Instruments(prometrics.New("", "", reg))
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	tel := infraobs.New(oteltrace.New(cfg.Service.Name), baseLogger, counters, histograms)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(); err != nil {
			systemLogger.Warn("store_close_failed", observability.F("error", err))
		}
	}()
	systemLogger.Info("store_ready", observability.F("driver", cfg.Store.Driver))

	ids := id.NewUUIDGenerator()
	repos := store.Repositories()

	if cfg.Seed.Enabled {
		f, err := seed.Load(cfg.Seed.File)
		switch {
		case errors.Is(err, os.ErrNotExist):
			systemLogger.Warn("seed_file_missing", observability.F("file", cfg.Seed.File))
		case err != nil:
			return err
		default:
			res, err := seed.Apply(ctx, repos, ids, f)
			if err != nil {
				return err
			}
			systemLogger.Info("seed_applied",
				observability.F("ingredients", res.Ingredients),
				observability.F("dishes", res.Dishes),
				observability.F("promo_codes", res.PromoCodes),
			)
		}
	}

	// In-memory event bus (acts as outbox/event publisher)
	bus := outbox.NewBus(baseLogger, outbox.Options{
		QueueSize:      cfg.Outbox.QueueSize,
		Concurrency:    cfg.Outbox.Concurrency,
		HandlerTimeout: cfg.Outbox.HandlerTimeout,
		Decorate:       func(ctx context.Context, base observability.Logger, tid trace.TraceID, sid trace.SpanID, attrs map[string]string) context.Context {
			return workerpresentation.WithEventContext(ctx, base, tel, tid, sid, attrs)
		},
	})
	bus.Start(ctx)

	hub := notify.NewHub(0, baseLogger)
	var notifiers []notification.Notifier
	var redisPub *notify.RedisPublisher
	if cfg.Redis.Enabled {
		redisPub = notify.NewRedisPublisher(notify.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Channel:  cfg.Redis.Channel,
		})
		if err := redisPub.Ping(ctx); err != nil {
			systemLogger.Warn("redis_unreachable", observability.F("addr", cfg.Redis.Addr), observability.F("error", err))
		}
		notifiers = append(notifiers, redisPub)
		// every replica relays the shared channel to its own SSE listeners
		go func() {
			err := redisPub.Listen(ctx, func(msg notification.Message) {
				_ = hub.Notify(ctx, msg)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				systemLogger.Error("redis_listen_stopped", observability.F("error", err))
			}
		}()
	} else {
		notifiers = append(notifiers, hub)
	}

	var recorder *audit.MongoRecorder
	if cfg.MongoDB.Enabled {
		recorder, err = audit.NewMongoRecorder(audit.Options{
			URI:        cfg.MongoDB.URI,
			Database:   cfg.MongoDB.Database,
			Collection: cfg.MongoDB.Collection,
		})
		if err != nil {
			systemLogger.Warn("audit_disabled", observability.F("error", err))
			recorder = nil
		} else {
			notifiers = append(notifiers, recorder)
		}
	}

	notification.NewWorker(bus, tel, notifiers...).Start()
	inventoryworker.New(bus, repos.Ingredients, baseLogger).Start()

	policy, err := checkout.ParseStockPolicy(cfg.Checkout.StockMode)
	if err != nil {
		return err
	}
	services := httppresentation.Services{
		Catalog:   catalog.NewService(repos.Dishes, tel),
		Inventory: appinventory.NewService(repos.Ingredients, repos.Dishes, bus, tel),
		Cart:      appcart.NewService(repos, ids, tel),
		Orders:    apporder.NewService(repos.Orders, bus, tel),
		Checkout: checkout.NewConfirmOrderUseCase(store, promotion.NewEngine(nil), ids, bus, checkout.Config{
			Policy:         policy,
			Currency:       cfg.Checkout.Currency,
			PublishTimeout: cfg.Checkout.PublishTimeout,
		}, tel),
	}

	opts := httppresentation.Options{
		Logger:        baseLogger,
		Observability: tel,
		Verifier:      httppresentation.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Stream:        hub,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Ready:         store.ping,
	}
	if recorder != nil {
		opts.Audit = recorder
	}
	if cfg.Service.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Auth.JWTSecret == "" {
		systemLogger.Warn("auth_not_configured")
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      httppresentation.NewHandler(services, opts).Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		systemLogger.Info("http_server_start",
			observability.F("addr", server.Addr),
			observability.F("stock_mode", string(policy)),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error", observability.F("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", observability.F("error", err))
	} else {
		systemLogger.Info("http_server_stopped")
	}
	bus.Stop(shutdownCtx)
	if redisPub != nil {
		_ = redisPub.Close()
	}
	if recorder != nil {
		_ = recorder.Close(shutdownCtx)
	}
	return nil
}

type backingStore struct {
	application.Transactor
	ping  func(ctx context.Context) error
	close func() error
}

func openStore(ctx context.Context, cfg config.StoreConfig) (*backingStore, error) {
	if cfg.Driver == config.StoreMemory {
		return &backingStore{
			Transactor: memory.NewStore(),
			ping:       func(context.Context) error { return nil },
			close:      func() error { return nil },
		}, nil
	}

	s, err := sqlstore.Open(sqlstore.Options{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN(),
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		AutoMigrate:     cfg.AutoMigrate,
		LogLevel:        cfg.LogLevel,
	})
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return &backingStore{Transactor: s, ping: s.Ping, close: s.Close}, nil
}
