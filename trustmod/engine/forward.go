package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Best-effort side channel for processed ratings (eg, syncing to a secondary system). Implementations must not block the caller, and their failures never affect the committed pipeline outcome.
type Forwarder interface {
	Forward(ctx context.Context, res *Result)
}

func (eng *Engine) forward(ctx context.Context, res *Result) {
	for _, f := range eng.Forwarders {
		f.Forward(ctx, res)
	}
}

// Body POSTed to the secondary sync endpoint
type ForwardedRating struct {
	ID               string     `json:"id"`
	DeviceID         string     `json:"device_id"`
	Platform         string     `json:"platform"`
	Polarity         string     `json:"polarity"`
	CreatedAt        time.Time  `json:"created_at"`
	Flags            []string   `json:"flags"`
	TrustWeight      *float64   `json:"trust_weight"`
	Applied          bool       `json:"applied"`
	FlaggedForReview bool       `json:"flagged_for_review"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

func newForwardedRating(res *Result) ForwardedRating {
	flags := []string{}
	for _, f := range res.Flags {
		flags = append(flags, string(f))
	}
	return ForwardedRating{
		ID:               res.Rating.ID,
		DeviceID:         res.Rating.DeviceID,
		Platform:         string(res.Rating.Platform),
		Polarity:         string(res.Rating.Polarity),
		CreatedAt:        res.Rating.CreatedAt,
		Flags:            flags,
		TrustWeight:      res.TrustWeight,
		Applied:          res.Applied,
		FlaggedForReview: res.FlaggedForReview,
		ProcessedAt:      res.Rating.ProcessedAt,
	}
}

// Asynchronously POSTs processed ratings to a secondary HTTP endpoint, through a bounded queue drained by a single worker. When the queue is full, ratings are dropped (and counted).
type HTTPForwarder struct {
	URL    string
	Client *http.Client
	Logger *slog.Logger

	queue chan ForwardedRating
}

func NewHTTPForwarder(url string, client *http.Client, queueSize int, logger *slog.Logger) *HTTPForwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPForwarder{
		URL:    url,
		Client: client,
		Logger: logger.With("system", "forwarder"),
		queue:  make(chan ForwardedRating, queueSize),
	}
}

func (f *HTTPForwarder) Forward(ctx context.Context, res *Result) {
	select {
	case f.queue <- newForwardedRating(res):
	default:
		forwardCount.WithLabelValues("http", "dropped").Inc()
		f.Logger.Warn("forward queue full, dropping rating", "rating", res.Rating.ID)
	}
}

// Drains the queue until ctx is done.
func (f *HTTPForwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case fr := <-f.queue:
			if err := f.send(ctx, fr); err != nil {
				forwardCount.WithLabelValues("http", "error").Inc()
				f.Logger.Error("failed to forward rating", "rating", fr.ID, "err", err)
				continue
			}
			forwardCount.WithLabelValues("http", "ok").Inc()
		}
	}
}

func (f *HTTPForwarder) send(ctx context.Context, fr ForwardedRating) error {
	body, err := json.Marshal(fr)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("forward endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

var _ Forwarder = (*HTTPForwarder)(nil)
