// README: Entry point; loads config, wires stores and services, serves the HTTP API until signalled.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"toda/internal/config"
	httptransport "toda/internal/http"
	"toda/internal/infra"
	"toda/internal/logging"
	"toda/internal/modules/booking"
	"toda/internal/modules/chat"
	"toda/internal/modules/dispatch"
	"toda/internal/modules/fleet"
	"toda/internal/modules/pricing"
	"toda/internal/modules/trust"
)

// riderStore is what both profile store drivers provide.
type riderStore interface {
	dispatch.TrustSource
	booking.OutcomeRecorder
	httptransport.RiderStore
}

type stores struct {
	bookings  booking.Store
	riders    riderStore
	fleet     fleet.Store
	schedules pricing.ScheduleSource
	counter   dispatch.DailyCounter
	sinks     []booking.EventSink
	closers   []func()
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("toda-api stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("toda-api stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if cfg.Firebase.ProjectID == "" {
		return errors.New("TODA_FIREBASE_PROJECT_ID is required")
	}
	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile, cfg.Firebase.DatabaseURL)
	if err != nil {
		return err
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, app)
	if err != nil {
		return err
	}

	var chatSvc chat.Service
	if cfg.Firebase.DatabaseURL != "" {
		rtdb, err := infra.NewRTDB(ctx, app)
		if err != nil {
			return err
		}
		chatSvc = chat.NewFirebaseService(rtdb)
	} else {
		logger.Warn("TODA_FIREBASE_DATABASE_URL not set; chat channels are kept in process")
		chatSvc = chat.NewMemoryService()
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		for i := len(st.closers) - 1; i >= 0; i-- {
			st.closers[i]()
		}
	}()

	bookingSvc := booking.NewService(st.bookings, st.riders, logger, st.sinks...)
	fleetSvc := fleet.NewService(st.fleet)
	dispatchSvc := dispatch.NewService(dispatch.Deps{
		Bookings: bookingSvc,
		Fleet:    fleetSvc,
		Trust:    st.riders,
		Fares:    pricing.NewService(st.schedules, cfg.FareSchedule()),
		Chat:     chatSvc,
		Counter:  st.counter,
		Logger:   logger,
	})

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Dispatch: dispatchSvc,
		Fleet:    fleetSvc,
		Riders:   st.riders,
		Verifier: verifier,
		Logger:   logger,
	})
	return httptransport.NewServer(cfg.HTTP.Addr, router, logger).Run(ctx)
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	st := &stores{}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		bookingStore := booking.NewPostgresStore(pool)
		st.bookings = bookingStore
		st.sinks = append(st.sinks, bookingStore)
		st.riders = trust.NewPostgresStore(pool, cfg.ScorePolicy(), cfg.SecurityConfig())
		st.fleet = fleet.NewPostgresStore(pool)
		st.schedules = pricing.NewStore(pool)
		st.counter = dispatch.NewStoreCounter(bookingStore)
	case config.DriverMemory:
		logger.Warn("memory store driver: state is lost on restart")
		st.bookings = booking.NewMemoryStore()
		st.riders = trust.NewMemoryStore(cfg.ScorePolicy(), cfg.SecurityConfig())
		st.fleet = fleet.NewMemoryStore()
		st.counter = dispatch.NewMemoryCounter()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.Redis.Addr != "" {
		client, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		st.closers = append(st.closers, func() { _ = client.Close() })
		st.counter = dispatch.NewRedisCounter(client)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		writer := infra.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		st.closers = append(st.closers, func() { _ = writer.Close() })
		st.sinks = append(st.sinks, booking.NewKafkaSink(writer))
		logger.Info("publishing booking events", "topic", cfg.Kafka.Topic)
	}
	return st, nil
}
