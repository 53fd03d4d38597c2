package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/cachestore"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/countstore"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/flagstore"
	"github.com/Abhijit-Sethi/humane-ai-rater/trustmod/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("trustmod")

var ErrInvalidSubmission = errors.New("invalid rating submission")

// runtime for validating ratings: rate limiting, anomaly rules, trust scoring, aggregation and review queueing.
//
// Construct with NewEngine; several fields are pointers or interfaces which must not be nil.
type Engine struct {
	Logger   *slog.Logger
	Rules    RuleSet
	Ratings  *store.Store
	Counters countstore.CountStore
	Flags    flagstore.FlagStore
	Cache    cachestore.CacheStore
	// best-effort side channels, notified after each rating is committed (optional)
	Forwarders []Forwarder
	// overridable clock, for tests. nil means time.Now
	Clock func() time.Time
	// upper bound on retrying a conflicting commit transaction
	CommitMaxTries uint

	config   Config
	limiter  RateLimiter
	scorer   TrustScorer
	reviewer ReviewFlagger
}

func NewEngine(cfg Config, rules RuleSet, ratings *store.Store, counters countstore.CountStore, flags flagstore.FlagStore, cache cachestore.CacheStore, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.clone()
	eng := Engine{
		Logger:         logger.With("system", "trustmod"),
		Rules:          rules,
		Ratings:        ratings,
		Counters:       counters,
		Flags:          flags,
		Cache:          cache,
		CommitMaxTries: 5,
		config:         cfg,
		scorer:         NewTrustScorer(cfg),
		reviewer: ReviewFlagger{
			Flags:        flags,
			MinFlagCount: cfg.ReviewFlagCount,
			MinWeight:    cfg.ReviewWeight,
		},
	}
	eng.limiter = RateLimiter{
		Counters: counters,
		Ceiling:  cfg.DailyCeiling,
		Now:      eng.now,
	}
	return &eng, nil
}

func (eng *Engine) Config() Config {
	return eng.config.clone()
}

func (eng *Engine) now() time.Time {
	if eng.Clock != nil {
		return eng.Clock()
	}
	return time.Now()
}

// Inbound rating payload. Untrusted: only shape is checked, everything else is scored.
type Submission struct {
	DeviceID      string
	Platform      models.Platform
	Polarity      models.Polarity
	DwellMillis   int64
	MouseMovement bool
	Touch         bool
	TabVisible    bool
}

func (s *Submission) Validate() error {
	if s.DeviceID == "" || len(s.DeviceID) > 128 {
		return fmt.Errorf("%w: device fingerprint must be 1-128 characters", ErrInvalidSubmission)
	}
	if _, err := models.ParsePlatform(string(s.Platform)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	if _, err := models.ParsePolarity(string(s.Polarity)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	if s.DwellMillis < 0 {
		return fmt.Errorf("%w: negative dwell time", ErrInvalidSubmission)
	}
	return nil
}

// Outcome of running a single rating through the pipeline.
type Result struct {
	Rating           models.Rating
	Flags            []models.Flag
	TrustWeight      *float64
	Applied          bool
	FlaggedForReview bool
	RateLimited      bool
}

// Appends the submission to the ratings ledger, then validates, scores and (if trusted enough) aggregates it.
func (eng *Engine) ProcessRating(ctx context.Context, sub Submission) (*Result, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	platform, _ := models.ParsePlatform(string(sub.Platform))
	r := models.Rating{
		ID:            uuid.NewString(),
		DeviceID:      sub.DeviceID,
		Platform:      platform,
		Polarity:      sub.Polarity,
		CreatedAt:     eng.now().UTC(),
		DwellMillis:   sub.DwellMillis,
		MouseMovement: sub.MouseMovement,
		Touch:         sub.Touch,
		TabVisible:    sub.TabVisible,
	}
	if err := eng.Ratings.InsertRating(ctx, &r); err != nil {
		return nil, err
	}
	return eng.ProcessStoredRating(ctx, &r)
}

// Runs the pipeline for a rating already present (and unprocessed) in the ledger.
func (eng *Engine) ProcessStoredRating(ctx context.Context, r *models.Rating) (_ *Result, err error) {
	// similar to an HTTP server, we want to recover any panics from pipeline execution
	defer func() {
		if rec := recover(); rec != nil {
			eng.Logger.Error("rating pipeline exception", "err", rec, "rating", r.ID)
			ratingErrorCount.WithLabelValues("panic").Inc()
			err = fmt.Errorf("rating pipeline panic: %v", rec)
		}
	}()

	if r.IsProcessed() {
		return nil, store.ErrAlreadyProcessed
	}

	ctx, span := tracer.Start(ctx, "ProcessRating", trace.WithAttributes(
		attribute.String("platform", string(r.Platform)),
		attribute.String("rating", r.ID),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		ratingProcessDuration.WithLabelValues(string(r.Platform)).Observe(time.Since(start).Seconds())
	}()
	ratingProcessCount.WithLabelValues(string(r.Platform)).Inc()

	logger := eng.Logger.With("rating", r.ID, "device", r.DeviceID, "platform", r.Platform)

	// rate-limit accounting happens first, and independently of everything else
	allowed, err := eng.limiter.CheckAndReserve(ctx, r.DeviceID)
	if err != nil {
		logger.Error("rate limit check failed", "err", err)
		return eng.finalizeFailed(ctx, r, nil, nil, fmt.Errorf("rate limit check: %w", err))
	}
	if !allowed {
		res := &Result{
			Rating:      *r,
			Flags:       []models.Flag{models.FlagRateLimited},
			RateLimited: true,
		}
		out := store.Outcome{Flags: res.Flags, ProcessedAt: eng.now()}
		if err := eng.commit(ctx, r, out); err != nil {
			if errors.Is(err, store.ErrAlreadyProcessed) {
				return nil, err
			}
			logger.Error("rate-limited rating commit failed", "err", err)
			return eng.finalizeFailed(ctx, r, &Effects{Flags: res.Flags}, nil, err)
		}
		eng.persistCounters(ctx, &Effects{CounterIncrements: flagCounterRefs(res.Flags)})
		eng.finish(ctx, logger, res, out)
		return res, nil
	}

	rc := NewRatingContext(ctx, eng, *r)
	if err := eng.runRules(&rc); err != nil {
		logger.Error("rating rules failed", "err", err)
		return eng.finalizeFailed(ctx, r, rc.effects, nil, err)
	}

	flags := rc.Flags()
	weight := eng.scorer.Score(flags)
	res := &Result{
		Rating:      *r,
		Flags:       flags,
		TrustWeight: &weight,
		Applied:     weight >= eng.config.AggregateThreshold,
	}
	out := store.Outcome{
		Flags:       flags,
		TrustWeight: &weight,
		Apply:       res.Applied,
		ProcessedAt: eng.now(),
	}
	if err := eng.commit(ctx, r, out); err != nil {
		if errors.Is(err, store.ErrAlreadyProcessed) {
			return nil, err
		}
		logger.Error("rating commit failed", "err", err)
		return eng.finalizeFailed(ctx, r, rc.effects, &weight, err)
	}
	rc.effects.CounterIncrements = append(rc.effects.CounterIncrements, flagCounterRefs(flags)...)
	eng.persistCounters(ctx, rc.effects)

	if res.Applied {
		eng.PurgeAggregateCache(ctx, r.Platform)
	}
	if eng.reviewer.ShouldReview(flags, &weight) {
		res.FlaggedForReview = true
		if _, err := eng.reviewer.Flag(ctx, r, flags, weight, eng.now()); err != nil {
			// advisory only: the rating outcome stands
			logger.Error("failed to queue rating for review", "err", err)
			reviewQueueErrorCount.Inc()
		}
	}
	eng.finish(ctx, logger, res, out)
	return res, nil
}

func (eng *Engine) runRules(rc *RatingContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ratingErrorCount.WithLabelValues("panic").Inc()
			err = fmt.Errorf("rule execution panic: %v", rec)
		}
	}()
	return eng.Rules.CallRatingRules(rc)
}

// Persists the rating as unverified, with PROCESSING_ERROR and the error message, so it is never silently dropped. The review queue still sees it.
func (eng *Engine) finalizeFailed(ctx context.Context, r *models.Rating, eff *Effects, weight *float64, cause error) (*Result, error) {
	ratingErrorCount.WithLabelValues("processing").Inc()
	flags := []models.Flag{models.FlagProcessingError}
	if eff != nil {
		flags = append(flags, eff.Flags...)
	}
	flags = models.NormalizeFlags(flags)
	out := store.Outcome{
		Flags:        flags,
		TrustWeight:  weight,
		Apply:        false,
		ErrorMessage: cause.Error(),
		ProcessedAt:  eng.now(),
	}
	if err := eng.Ratings.Finalize(ctx, r, out); err != nil {
		return nil, fmt.Errorf("persisting failed rating (%w): %w", cause, err)
	}
	logger := eng.Logger.With("rating", r.ID, "device", r.DeviceID, "platform", r.Platform)
	res := &Result{
		Rating:      *r,
		Flags:       flags,
		TrustWeight: weight,
		RateLimited: slices.Contains(flags, models.FlagRateLimited),
	}
	eng.persistCounters(ctx, &Effects{CounterIncrements: flagCounterRefs(flags)})

	if eng.reviewer.ShouldReview(flags, weight) {
		res.FlaggedForReview = true
		// unscored ratings go into the queue with zero weight
		known := 0.0
		if weight != nil {
			known = *weight
		}
		if _, err := eng.reviewer.Flag(ctx, r, flags, known, eng.now()); err != nil {
			logger.Error("failed to queue rating for review", "err", err)
			reviewQueueErrorCount.Inc()
		}
	}
	eng.finish(ctx, logger, res, out)
	return res, nil
}

// canonical log line, then hand the outcome to the side channels
func (eng *Engine) finish(ctx context.Context, logger *slog.Logger, res *Result, out store.Outcome) {
	res.Rating.Flags = models.JoinFlags(out.Flags)
	res.Rating.FlagCount = len(models.NormalizeFlags(out.Flags))
	res.Rating.Verified = res.Rating.FlagCount == 0
	res.Rating.TrustWeight = out.TrustWeight
	res.Rating.ErrorMessage = out.ErrorMessage
	processedAt := out.ProcessedAt.UTC()
	res.Rating.ProcessedAt = &processedAt

	weight := -1.0
	if res.TrustWeight != nil {
		weight = *res.TrustWeight
	}
	logger.Info("rating processed",
		"flags", res.Rating.Flags,
		"weight", weight,
		"applied", res.Applied,
		"review", res.FlaggedForReview,
		"rateLimited", res.RateLimited,
	)
	if res.Applied {
		ratingAppliedCount.WithLabelValues(string(res.Rating.Platform), string(res.Rating.Polarity)).Inc()
	}
	eng.forward(ctx, res)
}

func flagCounterRefs(flags []models.Flag) []CounterRef {
	out := make([]CounterRef, 0, len(flags))
	for _, f := range flags {
		out = append(out, CounterRef{Name: flagCounter, Val: string(f)})
	}
	return out
}

// Current time according to the engine's clock
func (eng *Engine) Now() time.Time {
	return eng.now()
}
