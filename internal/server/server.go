package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/orbitq/orbitq/internal/api"
	"github.com/orbitq/orbitq/internal/event"
	"github.com/orbitq/orbitq/internal/identity"
	"github.com/orbitq/orbitq/internal/leaderboard"
	"github.com/orbitq/orbitq/internal/question"
	"github.com/orbitq/orbitq/internal/score"
	"github.com/orbitq/orbitq/internal/session"
	"github.com/orbitq/orbitq/internal/store"
	"github.com/orbitq/orbitq/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Leaderboard struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Addr string
		User string
		Pass string
		Name string
	}

	Identity struct {
		JWTSecret string
	}

	Quiz struct {
		MaxPoints             int64
		FloorPoints           int64
		QuestionTimeLimitSecs int64
		SessionCodeLength     int
		LeaderboardRetention  time.Duration
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
		}

		postgres *pgxpool.Pool
	}

	service struct {
		store       *store.Service
		bank        *question.Bank
		session     *session.Service
		leaderboard *leaderboard.Service
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.leaderboard, err = connect(s.c.Redis.Leaderboard.Addrs, s.c.Redis.Leaderboard.Pass)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s",
		s.c.Postgres.User, s.c.Postgres.Pass, s.c.Postgres.Addr, s.c.Postgres.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initService() error {
	s.service.store = store.NewService(store.Config{
		DB: s.infra.postgres,
	})

	s.service.bank = question.NewBank(question.Config{
		Store: s.service.store,
	})

	policy := score.Policy{
		MaxPoints:   s.c.Quiz.MaxPoints,
		FloorPoints: s.c.Quiz.FloorPoints,
	}
	if policy == (score.Policy{}) {
		policy = score.DefaultPolicy
	}
	if err := policy.Validate(); err != nil {
		return err
	}

	s.service.session = session.NewService(session.Config{
		Bank:              s.service.bank,
		Store:             s.service.store,
		EventBus:          s.eb,
		Scoring:           policy,
		QuestionTimeLimit: time.Duration(s.c.Quiz.QuestionTimeLimitSecs) * time.Second,
		CodeLength:        s.c.Quiz.SessionCodeLength,
	})

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus:  s.eb,
		Redis:     s.infra.redis.leaderboard,
		Prefix:    s.c.Redis.Leaderboard.Prefix,
		Sessions:  s.service.session,
		Store:     s.service.store,
		Retention: s.c.Quiz.LeaderboardRetention,
	})

	return nil
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	api.New(api.Config{
		Engine:       e,
		EventBus:     s.eb,
		Session:      s.service.session,
		Leaderboard:  s.service.leaderboard,
		Categories:   s.service.store,
		Identity:     identity.NewJWT(identity.Config{Secret: s.c.Identity.JWTSecret}),
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	s.service.session.Start()

	slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.service.session.Stop()
	s.eb.Stop()

	s.infra.postgres.Close()

	slog.InfoContext(ctx, "server: shutdown completed")
}
