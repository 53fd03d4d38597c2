package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"

	"golang.org/x/time/rate"
)

var ErrInvalidRequest = errors.New("invalid evaluation request")

// External text-generation service used as the judge
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Request struct {
	Platform   models.Platform
	UserPrompt string
	AIResponse string
}

type Evaluation struct {
	Platform models.Platform `json:"platform"`
	Scores   []Score         `json:"scores"`
	Overall  float64         `json:"overall"`
	Attempts int             `json:"attempts"`
}

// Calls the judge and validates its output, re-prompting on invalid output up to MaxAttempts times.
type Evaluator struct {
	Completer   Completer
	MaxAttempts int
	// throttles calls to the judge service (optional)
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

func NewEvaluator(c Completer, perSecond float64, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	var lim *rate.Limiter
	if perSecond > 0 {
		lim = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return &Evaluator{
		Completer:   c,
		MaxAttempts: 3,
		Limiter:     lim,
		Logger:      logger.With("system", "judge"),
	}
}

func (e *Evaluator) Evaluate(ctx context.Context, req Request) (*Evaluation, error) {
	if _, err := models.ParsePlatform(string(req.Platform)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.AIResponse == "" {
		return nil, fmt.Errorf("%w: empty AI response", ErrInvalidRequest)
	}

	attempts := e.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sys := systemPrompt()
	user := userPrompt(&req)

	var lastErr error
	for i := 1; i <= attempts; i++ {
		if e.Limiter != nil {
			if err := e.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		start := time.Now()
		raw, err := e.Completer.Complete(ctx, sys, user)
		judgeCallDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			judgeCallCount.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("judge call failed: %w", err)
		}
		scores, err := ParseAndValidate(raw)
		if err == nil {
			judgeCallCount.WithLabelValues("ok").Inc()
			return &Evaluation{
				Platform: req.Platform,
				Scores:   scores,
				Overall:  Overall(scores),
				Attempts: i,
			}, nil
		}
		if !errors.Is(err, ErrInvalidOutput) {
			return nil, err
		}
		judgeCallCount.WithLabelValues("invalid").Inc()
		e.Logger.Warn("judge output rejected", "attempt", i, "err", err)
		lastErr = err
		user = retryPrompt(&req, err)
	}
	return nil, fmt.Errorf("judge output invalid after %d attempts: %w", attempts, lastErr)
}
