package engine

import (
	"github.com/Abhijit-Sethi/humane-ai-rater/models"
)

type CounterRef struct {
	Name string
	Val  string
}

// Mutable container for the side-effects of rule execution on a single rating.
type Effects struct {
	// Anomaly flags emitted by rules. May contain duplicates; normalized before scoring.
	Flags []models.Flag
	// Counters which should be incremented as part of processing this rating. Collected during rule execution and persisted in bulk at the end.
	CounterIncrements []CounterRef
}

func (e *Effects) AddFlag(f models.Flag) {
	e.Flags = append(e.Flags, f)
}

// Enqueues the named counter (for the current UTC day) to be incremented at the end of rule processing.
func (e *Effects) Increment(name, val string) {
	e.CounterIncrements = append(e.CounterIncrements, CounterRef{Name: name, Val: val})
}
