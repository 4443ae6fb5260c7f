// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server and the
// notification worker.
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

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/certificate"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/codegen"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/config"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/database"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/handler"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/inventory"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/logging"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/notify"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/payment"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository/memory"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/seed"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/service"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/ticketing"
)

// storage is everything the components need from a backend.
type storage interface {
	service.EventStore
	service.TicketStore
	inventory.TierStore
	ticketing.TicketStore
	ticketing.RSVPStore
	certificate.Repository
	seed.Seeder
}

func main() {
	issueCertificates := pflag.Bool("issue-certificates", false, "email certificates for past events that have none, then exit")
	seedFile := pflag.String("seed", "", "YAML file of events and tiers to load at startup (overrides SEED_FILE)")
	pflag.Parse()

	cfg := config.Load()
	if *seedFile != "" {
		cfg.SeedFile = *seedFile
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *issueCertificates, log); err != nil {
		log.WithError(err).Error("exiting")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, issueCertificates bool, log *logrus.Logger) error {
	health := map[string]func(context.Context) error{}

	// ── 1. Storage ───────────────────────────────────────────────────────
	var store storage
	switch cfg.Storage {
	case config.StorageMemory:
		store = memory.New()
		log.Warn("using in-memory storage; data is lost on exit")
	default:
		pool, err := database.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
		store = repository.New(pool)
		health["postgres"] = pool.Ping
		log.Info("connected to PostgreSQL")
	}

	if cfg.SeedFile != "" {
		events, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		if err := seed.Apply(ctx, store, events, log); err != nil {
			return err
		}
	}

	// ── 2. Wire up components ────────────────────────────────────────────
	var mailer notify.Mailer = notify.LogMailer{Log: log}
	if cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTPAddr(), cfg.SMTPHost, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom, cfg.MailFromName)
	}

	certs := certificate.NewStore(store, certificate.PDFRenderer{Issuer: cfg.CertificateIssuer}, log)
	dispatcher := notify.NewDispatcher(mailer, certs, cfg.BaseURL, log)

	deps := service.Deps{
		Events:       store,
		Tickets:      store,
		Inventory:    inventory.NewManager(store, log),
		Issuer:       ticketing.NewIssuer(store, store, codegen.NewPNGEncoder(), log),
		Payments:     payment.Simulated{DeclineAll: cfg.PaymentDeclineAll, Log: log},
		Certificates: certs,
		Notifier:     dispatcher,
	}

	if issueCertificates {
		sent, err := service.NewBookingService(deps, log).IssueDueCertificates(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		log.WithField("sent", sent).Info("certificates issued")
		return nil
	}

	var worker *notify.Worker
	if cfg.NotifyAsync {
		var rdb redis.UniversalClient
		if cfg.RedisURL != "" {
			client, err := database.NewRedisClient(ctx, cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			defer client.Close()
			rdb = client
			health["redis"] = func(ctx context.Context) error { return database.RedisHealthCheck(ctx, client) }
		}

		pub, sub, err := notify.NewTransport(rdb, log)
		if err != nil {
			return err
		}
		worker, err = notify.NewWorker(sub, store, dispatcher, log)
		if err != nil {
			return err
		}
		deps.Queue = notify.NewPublisher(pub)
	}

	svc := service.NewBookingService(deps, log)
	router := handler.NewRouter(handler.NewEventHandler(svc, log), health, log)

	// ── 3. Run server and worker until a signal arrives ──────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// gochannel drops messages published before the worker subscribes.
		if worker != nil {
			select {
			case <-worker.Running():
			case <-gctx.Done():
				return nil
			}
		}
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	if worker != nil {
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		if worker != nil {
			return worker.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}
