// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/courtbook/internal/authz"
	"github.com/codr1/courtbook/internal/availability"
	"github.com/codr1/courtbook/internal/booking"
	"github.com/codr1/courtbook/internal/config"
	"github.com/codr1/courtbook/internal/db"
	"github.com/codr1/courtbook/internal/lock"
	"github.com/codr1/courtbook/internal/models"
	"github.com/codr1/courtbook/internal/ratelimit"
	"github.com/codr1/courtbook/internal/scheduler"
	"github.com/codr1/courtbook/internal/venue"
)

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Features.EnableDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.App.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func newLocker(ctx context.Context, cfg config.LockingConfig) (lock.Locker, func(), error) {
	if cfg.Driver != config.LockDriverRedis {
		return lock.NewMemory(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	return lock.NewRedis(client, cfg.TTL, cfg.RetryDelay), func() { _ = client.Close() }, nil
}

func newCalendar(cfg config.BookingConfig) availability.Calendar {
	if cfg.AvailabilityStrategy == config.AvailabilityFixedGrid {
		return availability.FixedGrid{
			OpenHour:    cfg.Grid.OpenHour,
			CloseHour:   cfg.Grid.CloseHour,
			SlotMinutes: cfg.Grid.SlotMinutes,
			Price:       models.MoneyFromFloat(cfg.Grid.Price),
		}
	}
	return availability.Template{}
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	roles, err := authz.LoadRoleDirectory(ctx, database.Queries)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load roles")
	}

	locker, closeLocker, err := newLocker(ctx, cfg.Locking)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize court locks")
	}
	defer closeLocker()

	bookingService := booking.NewService(database, booking.Options{
		Locker:             locker,
		Calendar:           newCalendar(cfg.Booking),
		CancellationCutoff: cfg.Booking.CancellationCutoff,
		PendingHold:        cfg.Booking.PendingHold,
	})
	venueService := venue.NewService(database)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(&ratelimit.Config{
			MinInterval:  cfg.RateLimit.MinInterval,
			MaxPerHour:   cfg.RateLimit.MaxPerHour,
			MaxIPPerHour: cfg.RateLimit.MaxPerIPPerHour,
		})
		defer limiter.Close()
	}

	var jobs *scheduler.Service
	if cfg.Scheduler.Enabled {
		jobs, err = scheduler.New()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create scheduler")
		}
		if err := scheduler.RegisterBookingJobs(jobs, bookingService, cfg.Scheduler, cfg.Booking.PendingHold); err != nil {
			log.Fatal().Err(err).Msg("Failed to register booking jobs")
		}
		jobs.Start()
	}

	server := newServer(cfg, serverDeps{
		database: database,
		roles:    roles,
		bookings: bookingService,
		venues:   venueService,
		limiter:  limiter,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Int("port", cfg.App.Port).
			Str("locking", cfg.Locking.Driver).
			Str("availability", cfg.Booking.AvailabilityStrategy).
			Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if jobs != nil {
			if err := jobs.Stop(); err != nil {
				log.Error().Err(err).Msg("Failed to stop scheduler")
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
