package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	apphandler "admission/internal/application/handler"
	appmodels "admission/internal/application/models"
	appservice "admission/internal/application/service"
	appstore "admission/internal/application/store"
	"admission/internal/application/validation"
	authhandler "admission/internal/auth/handler"
	authservice "admission/internal/auth/service"
	"admission/internal/auth/store/revocation"
	"admission/internal/events"
	httpapi "admission/internal/http"
	jwttoken "admission/internal/jwt_token"
	"admission/internal/platform/config"
	"admission/internal/platform/httpserver"
	"admission/internal/platform/logger"
	"admission/internal/platform/metrics"
	"admission/internal/platform/middleware"
	"admission/internal/platform/postgres"
	platformredis "admission/internal/platform/redis"
	rlmiddleware "admission/internal/ratelimit/middleware"
	rlmodels "admission/internal/ratelimit/models"
	"admission/internal/ratelimit/store/bucket"
	reghandler "admission/internal/registration/handler"
	"admission/internal/registration/notifier"
	regservice "admission/internal/registration/service"
	"admission/internal/registration/store/candidate"
	"admission/internal/registration/store/otp"
)

const (
	// revocationPurgeInterval is how often expired Postgres revocations are removed.
	revocationPurgeInterval = time.Hour
	workspaceSweepInterval  = 10 * time.Minute
)

func main() {
	configFile := flag.String("config", os.Getenv("ADMISSION_CONFIG_FILE"), "optional config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// infra holds the optional backing services. Nil fields select in-memory
// implementations.
type infra struct {
	redis *platformredis.Client
	db    *sql.DB
}

func (i infra) close() {
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (infra, error) {
	var in infra
	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return in, err
	}
	in.redis = client

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		in.close()
		return infra{}, err
	}
	if db != nil {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			in.close()
			return infra{}, err
		}
	}
	in.db = db

	log.Info("backing services",
		"redis", in.redis != nil,
		"postgres", in.db != nil,
	)
	return in, nil
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	in, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.close()

	sink, closeSink, err := newEventSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()
	publisher := events.NewPublisher(cfg.Application.EventBuffer, events.WithLogger(log), events.WithMetrics(m))
	worker := events.NewWorker(sink, publisher.Inbox(), log, m)

	sms, err := newNotifier(ctx, cfg, log)
	if err != nil {
		return err
	}

	// Stores: Redis for short-lived state, Postgres for records.
	var (
		progress    appservice.ProgressStore   = appstore.NewInMemoryProgressStore(cfg.Draft.TTL)
		submissions appservice.SubmissionStore = appstore.NewInMemorySubmissionStore()
		candidates  interface {
			regservice.CandidateStore
			authservice.CandidateStore
		} = candidate.NewInMemoryStore()
		otps    regservice.OTPStore      = otp.NewInMemoryStore()
		buckets rlmiddleware.BucketStore = bucket.NewInMemoryBucketStore()
		trl     interface {
			authservice.RevocationList
			middleware.RevocationChecker
		} = revocation.NewInMemoryTRL(nil)
		pgTRL *revocation.PostgresTRL
	)
	healthChecks := map[string]httpapi.HealthCheck{}
	if in.db != nil {
		submissions = appstore.NewPostgresSubmissionStore(in.db)
		candidates = candidate.NewPostgresStore(in.db)
		pgTRL = revocation.NewPostgresTRL(in.db)
		trl = pgTRL
		healthChecks["postgres"] = in.db.PingContext
	}
	if in.redis != nil {
		progress = appstore.NewRedisProgressStore(in.redis.Client, cfg.Draft.TTL)
		otps = otp.NewRedisStore(in.redis.Client)
		buckets = bucket.NewRedisBucketStore(in.redis.Client)
		trl = revocation.NewRedisTRL(in.redis.Client, revocation.WithLatencyObserver(m.RevocationChecks))
		pgTRL = nil
		healthChecks["redis"] = in.redis.Health
	}

	validator, err := validation.New()
	if err != nil {
		return fmt.Errorf("load section schemas: %w", err)
	}
	applications := appservice.New(progress, submissions, validator, cfg.Application.IDPrefix,
		appservice.WithLogger(log),
		appservice.WithMetrics(m),
		appservice.WithPublisher(publisher),
		appservice.WithDocumentPolicy(appmodels.DocumentPolicy{
			DefaultMaxBytes: cfg.Documents.DefaultMaxBytes,
			MaxBytes:        cfg.Documents.MaxBytes,
		}),
	)
	registrations := regservice.New(candidates, otps, sms, regservice.Config{
		OTPLength:      cfg.OTP.Length,
		OTPTTL:         cfg.OTP.TTL,
		MaxAttempts:    cfg.OTP.MaxAttempts,
		ResendInterval: cfg.OTP.ResendInterval,
		ResendBurst:    cfg.OTP.ResendBurst,
		FixedCode:      cfg.OTP.FixedCode,
	},
		regservice.WithLogger(log),
		regservice.WithMetrics(m),
		regservice.WithPublisher(publisher),
	)
	jwt := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	auth := authservice.New(candidates, jwt, trl, applications, authservice.Config{
		SessionTTL:    cfg.Auth.SessionTTL,
		RememberMeTTL: cfg.Auth.RememberMeTTL,
	},
		authservice.WithLogger(log),
		authservice.WithMetrics(m),
		authservice.WithPublisher(publisher),
	)

	limiter := rlmiddleware.New(buckets, map[rlmodels.EndpointClass]rlmodels.Policy{
		rlmodels.ClassRegistration: {Limit: cfg.RateLimit.RegistrationRequests, Window: cfg.RateLimit.Window},
		rlmodels.ClassAuth:         {Limit: cfg.RateLimit.AuthRequests, Window: cfg.RateLimit.Window},
	}, log, rlmiddleware.WithDisabled(!cfg.RateLimit.Enabled))
	requireAuth := middleware.RequireAuth(jwttoken.NewJWTServiceAdapter(jwt), trl, log)

	router := httpapi.NewRouter(httpapi.Config{
		Logger:         log,
		Metrics:        m,
		Gatherer:       reg,
		RequestTimeout: cfg.Server.RequestTimeout,
		HealthChecks:   healthChecks,
	},
		reghandler.New(registrations, log, reghandler.WithThrottle(limiter.RateLimit(rlmodels.ClassRegistration))),
		authhandler.New(auth, requireAuth, log, authhandler.WithLoginThrottle(limiter.RateLimit(rlmodels.ClassAuth))),
		apphandler.New(applications, requireAuth, log),
	)
	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting admission portal", "addr", cfg.Server.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if pgTRL != nil {
		g.Go(func() error { return purgeRevocations(gctx, pgTRL, log) })
	}
	// No token outlives the longer TTL, so a workspace idle that long has no
	// session left to use it.
	idle := max(cfg.Auth.SessionTTL, cfg.Auth.RememberMeTTL)
	g.Go(func() error { return sweepWorkspaces(gctx, applications, idle) })
	return g.Wait()
}

func newEventSink(ctx context.Context, cfg *config.Config, log *slog.Logger) (events.Sink, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.NewLogSink(log), func() {}, nil
	}
	client, err := events.NewKafkaClient(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return nil, nil, err
	}
	log.Info("publishing events to kafka", "topic", cfg.Kafka.Topic)
	return events.NewKafkaSink(client, cfg.Kafka.Topic), client.Close, nil
}

func newNotifier(ctx context.Context, cfg *config.Config, log *slog.Logger) (regservice.Notifier, error) {
	if !cfg.Notify.SMSEnabled {
		return notifier.NewLogNotifier(log, !cfg.IsProduction()), nil
	}
	client, err := notifier.NewSNSClient(ctx, cfg.Notify.Region)
	if err != nil {
		return nil, err
	}
	return notifier.NewSNSNotifier(client, cfg.Notify.SenderID), nil
}

func purgeRevocations(ctx context.Context, trl *revocation.PostgresTRL, log *slog.Logger) error {
	ticker := time.NewTicker(revocationPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := trl.PurgeExpired(ctx)
			if err != nil {
				log.WarnContext(ctx, "failed to purge token revocations", "error", err)
				continue
			}
			log.DebugContext(ctx, "purged token revocations", "count", n)
		}
	}
}

func sweepWorkspaces(ctx context.Context, svc *appservice.Service, idle time.Duration) error {
	ticker := time.NewTicker(workspaceSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			svc.SweepWorkspaces(ctx, idle)
		}
	}
}
