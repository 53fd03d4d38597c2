package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"
	"github.com/Abhijit-Sethi/humane-ai-rater/util"

	"github.com/brianvoe/gofakeit/v6"
	petname "github.com/dustinkirkland/golang-petname"
	cli "github.com/urfave/cli/v2"
)

var fakeRatingsCmd = &cli.Command{
	Name:  "fake-ratings",
	Usage: "submit synthetic ratings to a running server, mixing human-like, bot-like and burst traffic",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Usage:   "method, hostname, and port of raterd API",
			Value:   "http://localhost:3100",
			EnvVars: []string{"RATER_HOST"},
		},
		&cli.IntFlag{
			Name:  "count-humans",
			Usage: "number of human-like devices, each submitting a handful of ratings",
			Value: 50,
		},
		&cli.IntFlag{
			Name:  "count-bots",
			Usage: "number of scripted devices",
			Value: 10,
		},
		&cli.IntFlag{
			Name:  "burst-size",
			Usage: "ratings submitted back-to-back by a single burst device",
			Value: 15,
		},
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "random seed (0 means non-deterministic)",
		},
	},
	Action: genFakeRatings,
}

func genFakeRatings(cctx *cli.Context) error {
	logger, err := configLogger(cctx, os.Stderr)
	if err != nil {
		return err
	}
	gofakeit.Seed(cctx.Int64("seed"))

	client := util.RobustHTTPClient()
	url := strings.TrimSuffix(cctx.String("host"), "/") + "/v1/ratings"

	var subs []ratingRequest
	for i := 0; i < cctx.Int("count-humans"); i++ {
		device := fakeDevice()
		for j := 0; j < gofakeit.Number(1, 5); j++ {
			subs = append(subs, humanRating(device))
		}
	}
	for i := 0; i < cctx.Int("count-bots"); i++ {
		subs = append(subs, botRating(fakeDevice()))
	}
	burst := fakeDevice()
	logger.Info("burst device", "device", burst, "name", petname.Generate(2, "-"))
	for i := 0; i < cctx.Int("burst-size"); i++ {
		subs = append(subs, humanRating(burst))
	}

	tally := map[string]int{}
	for _, sub := range subs {
		res, err := postRating(cctx, client, url, sub)
		if err != nil {
			return err
		}
		switch {
		case res.RateLimited:
			tally["rate_limited"]++
		case res.Applied:
			tally["applied"]++
		default:
			tally["discounted"]++
		}
		if res.FlaggedForReview {
			tally["flagged"]++
		}
	}
	logger.Info("fake ratings submitted", "total", len(subs), "applied", tally["applied"], "discounted", tally["discounted"], "rate_limited", tally["rate_limited"], "flagged", tally["flagged"])
	return nil
}

func fakeDevice() string {
	return strings.ReplaceAll(gofakeit.UUID(), "-", "")
}

func fakePlatform() string {
	return string(models.Platforms[gofakeit.Number(0, len(models.Platforms)-1)])
}

func humanRating(device string) ratingRequest {
	polarity := models.PolarityNegative
	if gofakeit.Float64Range(0, 1) < 0.6 {
		polarity = models.PolarityPositive
	}
	return ratingRequest{
		DeviceID:      device,
		Platform:      fakePlatform(),
		Polarity:      string(polarity),
		DwellMillis:   int64(gofakeit.Number(1_500, 30_000)),
		MouseMovement: gofakeit.Float64Range(0, 1) < 0.8,
		Touch:         gofakeit.Float64Range(0, 1) < 0.3,
		TabVisible:    true,
	}
}

func botRating(device string) ratingRequest {
	return ratingRequest{
		DeviceID:    device,
		Platform:    fakePlatform(),
		Polarity:    string(models.PolarityPositive),
		DwellMillis: int64(gofakeit.Number(20, 400)),
		TabVisible:  gofakeit.Bool(),
	}
}

func postRating(cctx *cli.Context, client *http.Client, url string, sub ratingRequest) (*ratingResponse, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(cctx.Context, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rating submission failed: HTTP %d", resp.StatusCode)
	}
	var out ratingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	fakeSubmitDuration.Observe(time.Since(start).Seconds())
	return &out, nil
}
