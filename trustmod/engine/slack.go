package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/RussellLuo/slidingwindow"
)

// Posts a short alert to a Slack "incoming webhook" for each rating queued for review, capped per day so a bot flood can't flood the channel too.
type SlackNotifier struct {
	SlackWebhookURL string
	Client          *http.Client
	Logger          *slog.Logger

	perDay *slidingwindow.Limiter
}

func NewSlackNotifier(webhookURL string, client *http.Client, maxPerDay int64, logger *slog.Logger) *SlackNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	// second return is the window's StopFunc, a no-op for local windows
	lim, _ := slidingwindow.NewLimiter(24*time.Hour, maxPerDay, func() (slidingwindow.Window, slidingwindow.StopFunc) {
		return slidingwindow.NewLocalWindow()
	})
	return &SlackNotifier{
		SlackWebhookURL: webhookURL,
		Client:          client,
		Logger:          logger.With("system", "slack"),
		perDay:          lim,
	}
}

func (n *SlackNotifier) Forward(ctx context.Context, res *Result) {
	if !res.FlaggedForReview {
		return
	}
	if !n.perDay.Allow() {
		forwardCount.WithLabelValues("slack", "dropped").Inc()
		return
	}
	msg := slackBody(res)
	// don't hold up the rating request on slack
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := n.sendSlackMsg(ctx, msg); err != nil {
			forwardCount.WithLabelValues("slack", "error").Inc()
			n.Logger.Error("failed to send slack notification", "rating", res.Rating.ID, "err", err)
			return
		}
		forwardCount.WithLabelValues("slack", "ok").Inc()
	}()
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func slackBody(res *Result) string {
	flags := []string{}
	for _, f := range res.Flags {
		flags = append(flags, string(f))
	}
	weight := "none"
	if res.TrustWeight != nil {
		weight = fmt.Sprintf("%.3f", *res.TrustWeight)
	}
	msg := "⚠️ Rating Queued for Review ⚠️\n"
	msg += fmt.Sprintf("`%s` on `%s` (%s)\n", res.Rating.ID, res.Rating.Platform, res.Rating.Polarity)
	msg += fmt.Sprintf("Flags: `%s`\n", strings.Join(flags, "`, `"))
	msg += fmt.Sprintf("Trust weight: `%s`\n", weight)
	return msg
}

var _ Forwarder = (*SlackNotifier)(nil)
