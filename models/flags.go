package models

import (
	"sort"
	"strings"
)

// Anomaly code attached to a rating during validation
type Flag string

const (
	FlagTooFast         = Flag("TOO_FAST")
	FlagNoInteraction   = Flag("NO_INTERACTION")
	FlagBackgroundTab   = Flag("BACKGROUND_TAB")
	FlagBurstActivity   = Flag("BURST_ACTIVITY")
	FlagUniformRatings  = Flag("UNIFORM_RATINGS")
	FlagRateLimited     = Flag("RATE_LIMITED")
	FlagProcessingError = Flag("PROCESSING_ERROR")
)

// Returns a sorted copy with duplicates and empty values removed.
func NormalizeFlags(flags []Flag) []Flag {
	seen := make(map[Flag]bool, len(flags))
	out := []Flag{}
	for _, f := range flags {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func JoinFlags(flags []Flag) string {
	parts := make([]string, 0, len(flags))
	for _, f := range NormalizeFlags(flags) {
		parts = append(parts, string(f))
	}
	return strings.Join(parts, ",")
}

func ParseFlags(s string) []Flag {
	if s == "" {
		return []Flag{}
	}
	out := []Flag{}
	for _, p := range strings.Split(s, ",") {
		out = append(out, Flag(strings.TrimSpace(p)))
	}
	return NormalizeFlags(out)
}
