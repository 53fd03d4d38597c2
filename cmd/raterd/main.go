package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/jobs"
	"github.com/Abhijit-Sethi/humane-ai-rater/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"
	"gorm.io/plugin/opentelemetry/tracing"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting process", "err", err.Error())
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "raterd",
		Usage:   "crowdsourced chatbot rating service (trust scoring, aggregation, judge validation)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			Value:   "info",
			EnvVars: []string{"RATER_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format (text or json)",
			Value:   "json",
			EnvVars: []string{"RATER_LOG_FORMAT", "LOG_FORMAT"},
		},
		&cli.StringFlag{
			Name:    "log-file",
			Usage:   "append logs to this file instead of the console ('-' for console)",
			EnvVars: []string{"RATER_LOG_FILE"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database connection string for ratings and aggregates",
			Value:   "sqlite://data/raterd/rater.db",
			EnvVars: []string{"RATER_DATABASE_URL", "DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"RATER_MAX_DB_CONNECTIONS"},
			Value:   40,
		},
	}

	app.Commands = []*cli.Command{
		serveCmd,
		fakeRatingsCmd,
		runJobCmd,
	}

	return app.Run(args)
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run the HTTP API and background jobs",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3100",
			EnvVars: []string{"RATER_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3101",
			EnvVars: []string{"RATER_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL; counters, review queue and cache live in process memory if not set",
			EnvVars: []string{"RATER_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "admin-password",
			Usage:   "HTTP basic auth password for the review queue and stats endpoints (user 'admin')",
			EnvVars: []string{"RATER_ADMIN_PASSWORD"},
		},
		&cli.IntFlag{
			Name:    "daily-rating-limit",
			Usage:   "max ratings accepted per device fingerprint per UTC day",
			Value:   50,
			EnvVars: []string{"RATER_DAILY_RATING_LIMIT"},
		},
		&cli.Float64Flag{
			Name:    "aggregate-threshold",
			Usage:   "minimum trust weight for a rating to count in platform aggregates",
			Value:   0.5,
			EnvVars: []string{"RATER_AGGREGATE_THRESHOLD"},
		},
		&cli.StringFlag{
			Name:    "forward-url",
			Usage:   "if set, every processed rating is POSTed here as JSON",
			EnvVars: []string{"RATER_FORWARD_URL"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "Slack webhook for review queue notifications",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.Int64Flag{
			Name:    "slack-max-per-day",
			Usage:   "cap on Slack review notifications per 24 hours",
			Value:   100,
			EnvVars: []string{"RATER_SLACK_MAX_PER_DAY"},
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			Usage:   "API key for the LLM judge; evaluation endpoint is disabled if not set",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "judge-base-url",
			Usage:   "override base URL of the OpenAI-compatible judge API",
			EnvVars: []string{"RATER_JUDGE_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "judge-model",
			Value:   "gpt-4o-mini",
			EnvVars: []string{"RATER_JUDGE_MODEL"},
		},
		&cli.Float64Flag{
			Name:    "judge-rate-limit",
			Usage:   "max judge requests per second",
			Value:   2,
			EnvVars: []string{"RATER_JUDGE_RATE_LIMIT"},
		},
		&cli.BoolFlag{
			Name:    "disable-jobs",
			Usage:   "don't run the trend and retention schedulers in this process",
			EnvVars: []string{"RATER_DISABLE_JOBS"},
		},
		&cli.BoolFlag{
			Name:    "enable-db-tracing",
			EnvVars: []string{"RATER_ENABLE_DB_TRACING"},
		},
	},
	Action: runServe,
}

var runJobCmd = &cli.Command{
	Name:      "run-job",
	Usage:     "run a single maintenance job once, then exit",
	ArgsUsage: "<trend|retention>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "redis-url",
			EnvVars: []string{"RATER_REDIS_URL"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := cctx.Context
		logger, err := configLogger(cctx, os.Stdout)
		if err != nil {
			return err
		}

		job := cctx.Args().First()
		if job != jobs.JobTrend && job != jobs.JobRetention {
			return fmt.Errorf("unknown job: %q", job)
		}

		db, err := cliutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}
		srv, err := NewServer(db, Config{
			RedisURL: cctx.String("redis-url"),
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		defer srv.Close()

		switch job {
		case jobs.JobTrend:
			scores, err := srv.jobs.RunTrend(ctx)
			if err != nil {
				return err
			}
			for p, s := range scores {
				fmt.Printf("%s\t%d\n", p, s)
			}
		case jobs.JobRetention:
			n, err := srv.jobs.RunRetention(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("purged %d counter rows\n", n)
		}
		return srv.jobs.MarkRun(ctx, job)
	},
}

func configLogger(cctx *cli.Context, writer io.Writer) (*slog.Logger, error) {
	return cliutil.SetupSlog(cliutil.LogOptions{
		LogPath:   cctx.String("log-file"),
		Writer:    writer,
		LogFormat: cctx.String("log-format"),
		LogLevel:  cctx.String("log-level"),
	})
}

func runServe(cctx *cli.Context) error {
	ctx, cancel := context.WithCancel(cctx.Context)
	defer cancel()
	logger, err := configLogger(cctx, os.Stdout)
	if err != nil {
		return err
	}

	shutdownOTEL := configOTEL(ctx, "raterd")
	defer shutdownOTEL()

	db, err := cliutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
	if err != nil {
		return err
	}
	if cctx.Bool("enable-db-tracing") {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return err
		}
	}

	srv, err := NewServer(db, Config{
		RedisURL:           cctx.String("redis-url"),
		AdminPassword:      cctx.String("admin-password"),
		DailyLimit:         cctx.Int("daily-rating-limit"),
		AggregateThreshold: cctx.Float64("aggregate-threshold"),
		ForwardURL:         cctx.String("forward-url"),
		SlackWebhookURL:    cctx.String("slack-webhook-url"),
		SlackMaxPerDay:     cctx.Int64("slack-max-per-day"),
		OpenAIKey:          cctx.String("openai-api-key"),
		JudgeBaseURL:       cctx.String("judge-base-url"),
		JudgeModel:         cctx.String("judge-model"),
		JudgeRateLimit:     cctx.Float64("judge-rate-limit"),
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	// Trap SIGINT to trigger a shutdown.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		logger.Info("received OS exit signal", "signal", sig)
		cancel()
	}()

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return srv.RunMetrics(gctx, cctx.String("metrics-listen"))
	})
	eg.Go(func() error {
		return srv.RunAPI(gctx, cctx.String("bind"))
	})
	eg.Go(func() error {
		return srv.RunWorkers(gctx, !cctx.Bool("disable-jobs"))
	})
	err = eg.Wait()
	logger.Info("graceful shutdown complete")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

const shutdownTimeout = 10 * time.Second
