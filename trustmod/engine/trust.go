package engine

import (
	"math"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"
)

// Combines anomaly flags into a trust weight in [floor, 1.0].
type TrustScorer struct {
	penalties map[models.Flag]float64
	floor     float64
}

func NewTrustScorer(cfg Config) TrustScorer {
	cfg = cfg.clone()
	return TrustScorer{
		penalties: cfg.Penalties,
		floor:     cfg.WeightFloor,
	}
}

// Penalties multiply, so independent signals compound. Each distinct flag counts once. The result is rounded to three decimal places for storage.
func (s TrustScorer) Score(flags []models.Flag) float64 {
	w := 1.0
	for _, f := range models.NormalizeFlags(flags) {
		if p, ok := s.penalties[f]; ok {
			w *= p
		}
	}
	w = math.Max(s.floor, w)
	return roundWeight(w)
}

func roundWeight(w float64) float64 {
	return math.Round(w*1000) / 1000
}
