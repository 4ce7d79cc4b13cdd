package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/config"
	"quiz-duel-service/internal/infra/memory"
	"quiz-duel-service/internal/infra/postgres"
	redisinfra "quiz-duel-service/internal/infra/redis"
	"quiz-duel-service/internal/logger"
	"quiz-duel-service/internal/metrics"
	transport "quiz-duel-service/internal/transport/http"
)

const serviceName = "quiz-duel-service"

// userStore is what both the engine and the websocket handler need from user storage.
type userStore interface {
	app.UserRepository
	transport.PlayerDirectory
}

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz duel server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func matchSettings(m config.Match) app.Settings {
	d := app.DefaultSettings()
	return app.Settings{
		Duration:          config.Duration(m.Duration, d.Duration),
		TotalQuestions:    config.Int(m.TotalQuestions, d.TotalQuestions),
		BroadcastInterval: config.Duration(m.BroadcastInterval, d.BroadcastInterval),
		TimeoutGrace:      config.Duration(m.TimeoutGrace, d.TimeoutGrace),
		KFactor:           config.Int(m.KFactor, d.KFactor),
		RatingFloor:       config.Int(m.RatingFloor, d.RatingFloor),
		DefaultRating:     config.Int(m.DefaultRating, d.DefaultRating),
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(serviceName, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	settings := matchSettings(cfg.Match)
	instanceID := uuid.NewString()
	prefix := config.String(cfg.Redis.Prefix, config.DefaultRedisPrefix)
	topic := config.String(cfg.Questions.Topic, config.DefaultTopic)
	cacheTTL := config.Duration(cfg.Questions.CacheTTL, 10*time.Minute)
	m := metrics.New()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}

	var (
		loader  memory.QuestionLoader = memory.NewStaticQuestionLoader(memory.DefaultBank())
		matches app.MatchRepository   = memory.NewMatchRepository()
		users   userStore             = memory.NewUserRepository()
	)
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		db := openBun(cfg.Postgres.URL)
		defer db.Close()

		loader = postgres.NewQuestionLoader(pool)
		matches = postgres.NewMatchRepository(db)
		users = postgres.NewUserRepository(db)
	} else {
		log.Warn("postgres not configured, matches and ratings are kept in memory")
	}

	hub := transport.NewHub(log)

	var (
		questions app.QuestionProvider
		sessions  app.SessionRepository
		notifier  app.Notifier = hub
		relay     *redisinfra.Relay
	)
	if redisClient != nil {
		questions = redisinfra.NewQuestionCache(redisClient, loader, prefix, topic, cacheTTL)
		sessions = redisinfra.NewSessionStore(redisClient, prefix, instanceID,
			config.Duration(cfg.Redis.TTL, 10*time.Minute))
		notifier = app.MultiNotifier{hub, redisinfra.NewPublisher(redisClient, prefix, instanceID)}
		relay = redisinfra.NewRelay(redisClient, prefix, instanceID, hub, log)
	} else {
		questions = memory.NewQuestionRepository(loader, topic, cacheTTL)
		sessions = memory.NewSessionStore()
	}

	service := app.NewMatchService(app.Config{
		Sessions:  sessions,
		Matches:   matches,
		Users:     users,
		Questions: questions,
		Notifier:  notifier,
		Logger:    log,
		Metrics:   m,
		Settings:  settings,
	})

	swept, err := service.SweepOrphans(ctx)
	if err != nil {
		log.WithError(err).Error("orphan sweep failed")
	} else if swept > 0 {
		log.WithField("matches", swept).Info("settled orphaned matches")
	}

	router := transport.NewRouter(transport.RouterConfig{
		Matches: service,
		WS: transport.NewWSHandler(transport.WSConfig{
			Service:       service,
			Hub:           hub,
			Auth:          transport.NewAuthenticator(cfg.Auth.JWTSecret),
			Players:       users,
			DefaultRating: settings.DefaultRating,
			Logger:        log,
		}),
		Metrics: m.Handler(),
		Logger:  log,
	})

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{"port": finalPort, "instance_id": instanceID}).Info("starting quiz duel service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
