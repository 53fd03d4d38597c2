package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/judge"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/cachestore"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/countstore"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/engine"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/flagstore"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/jobs"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/store"
	"github.com/Abhijit-Sethi/humane-ai-rater/util"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Server struct {
	logger    *slog.Logger
	engine    *trustmod.Engine
	jobs      *jobs.Scheduler
	evaluator *judge.Evaluator
	forwarder *engine.HTTPForwarder
	rdb       *redis.Client
	echo      *echo.Echo

	adminPassword string
}

type Config struct {
	RedisURL           string
	AdminPassword      string
	DailyLimit         int
	AggregateThreshold float64
	ForwardURL         string
	SlackWebhookURL    string
	SlackMaxPerDay     int64
	OpenAIKey          string
	JudgeBaseURL       string
	JudgeModel         string
	JudgeRateLimit     float64
	Logger             *slog.Logger
}

func NewServer(db *gorm.DB, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	ratings, err := store.New(db)
	if err != nil {
		return nil, fmt.Errorf("initializing ratings store: %w", err)
	}

	var counters countstore.CountStore
	var cache cachestore.CacheStore
	var flags flagstore.FlagStore
	var rdb *redis.Client
	if config.RedisURL != "" {
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb = redis.NewClient(opt)
		// check redis connection
		_, err = rdb.Ping(context.TODO()).Result()
		if err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		// one client, shared by all the redis-backed stores
		counters = countstore.NewRedisCountStore(rdb)
		cache = cachestore.NewRedisCacheStore(rdb, 5*time.Minute)
		flags = flagstore.NewRedisFlagStore(rdb)
	} else {
		cnt, err := countstore.NewGormCountStore(db)
		if err != nil {
			return nil, fmt.Errorf("initializing countstore: %v", err)
		}
		counters = cnt
		flg, err := flagstore.NewGormFlagStore(db)
		if err != nil {
			return nil, fmt.Errorf("initializing flagstore: %v", err)
		}
		flags = flg
		cache = cachestore.NewMemCacheStore(1_000, 5*time.Minute)
	}

	cfg := trustmod.DefaultConfig()
	if config.DailyLimit > 0 {
		cfg.DailyCeiling = config.DailyLimit
	}
	if config.AggregateThreshold > 0 {
		cfg.AggregateThreshold = config.AggregateThreshold
	}

	eng, err := trustmod.NewEngine(cfg, trustmod.DefaultRules(), ratings, counters, flags, cache, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		logger:        logger,
		engine:        eng,
		jobs:          jobs.NewScheduler(eng, logger),
		rdb:           rdb,
		adminPassword: config.AdminPassword,
	}

	if config.ForwardURL != "" {
		logger.Info("forwarding processed ratings", "url", config.ForwardURL)
		s.forwarder = engine.NewHTTPForwarder(config.ForwardURL, util.RobustHTTPClient(), 1_000, logger)
		eng.Forwarders = append(eng.Forwarders, s.forwarder)
	}
	if config.SlackWebhookURL != "" {
		eng.Forwarders = append(eng.Forwarders, engine.NewSlackNotifier(config.SlackWebhookURL, util.PooledHTTPClient(30*time.Second), config.SlackMaxPerDay, logger))
	}
	if config.OpenAIKey != "" {
		c := judge.NewOpenAICompleter(config.OpenAIKey, config.JudgeBaseURL, config.JudgeModel, util.PooledHTTPClient(2*time.Minute))
		s.evaluator = judge.NewEvaluator(c, config.JudgeRateLimit, logger)
	}

	s.echo = s.newEcho()
	return s, nil
}

func (s *Server) RunMetrics(ctx context.Context, listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return s.serve(ctx, &http.Server{Addr: listen, Handler: mux})
}

func (s *Server) RunAPI(ctx context.Context, bind string) error {
	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)
	s.logger.Info("starting server", "bind", bind)
	return s.serve(ctx, &http.Server{
		Addr:           bind,
		Handler:        s.echo,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	})
}

func (s *Server) serve(ctx context.Context, httpd *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		errc <- httpd.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return fmt.Errorf("listening on %s: %w", httpd.Addr, err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpd.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Runs the forwarding queue and (optionally) the periodic jobs until ctx is done.
func (s *Server) RunWorkers(ctx context.Context, withJobs bool) error {
	eg, ctx := errgroup.WithContext(ctx)
	if s.forwarder != nil {
		eg.Go(func() error {
			return s.forwarder.Run(ctx)
		})
	}
	if withJobs {
		eg.Go(func() error {
			return s.jobs.Run(ctx)
		})
	}
	err := eg.Wait()
	if cerr := s.Close(); cerr != nil {
		s.logger.Error("failed to close redis client", "err", cerr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Releases the shared redis client, if any.
func (s *Server) Close() error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
