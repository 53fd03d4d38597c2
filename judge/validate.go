package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rivo/uniseg"
)

var ErrInvalidOutput = errors.New("invalid judge output")

// Typed validation failure. Matches ErrInvalidOutput with errors.Is.
type InvalidOutputError struct {
	Reason string
}

func (e *InvalidOutputError) Error() string {
	return "invalid judge output: " + e.Reason
}

func (e *InvalidOutputError) Is(target error) bool {
	return target == ErrInvalidOutput
}

func invalid(format string, args ...any) error {
	return &InvalidOutputError{Reason: fmt.Sprintf(format, args...)}
}

// the judge model sometimes writes "+0.5", which isn't valid JSON
var plusNumberRegex = regexp.MustCompile(`(:\s*)\+(\d)`)

// Strips a '+' sign between a colon and a digit.
func RepairJSON(raw string) string {
	return plusNumberRegex.ReplaceAllString(raw, "${1}${2}")
}

// Removes surrounding code fences and any prose outside the outermost braces.
func extractObject(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// drop a language tag on the opening fence line
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.Contains(s[:i], "{") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", invalid("no JSON object found")
	}
	return s[start : end+1], nil
}

// Rationales longer than this (in grapheme clusters) are cut short rather than rejected
const MaxRationaleLength = 1000

func truncateGraphemes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	gr := uniseg.NewGraphemes(s)
	var b strings.Builder
	for n := 0; n < limit && gr.Next(); n++ {
		b.WriteString(gr.Str())
	}
	return b.String()
}

type rawOutput struct {
	Principles []rawScore `json:"principles"`
}

type rawScore struct {
	Name      string   `json:"name"`
	Score     *float64 `json:"score"`
	Rationale string   `json:"rationale"`
}

// Parses the judge model's free-text output into exactly one score per principle. Any deviation from the schema is an *InvalidOutputError; no score is ever defaulted.
func ParseAndValidate(raw string) ([]Score, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return nil, err
	}
	var out rawOutput
	if err := json.Unmarshal([]byte(RepairJSON(obj)), &out); err != nil {
		return nil, invalid("malformed JSON: %v", err)
	}
	if len(out.Principles) != len(Principles) {
		return nil, invalid("expected %d principles, got %d", len(Principles), len(out.Principles))
	}

	// every valid entry removes its code from the pool; the pool must end up empty
	expected := make(map[Principle]bool, len(Principles))
	for _, p := range Principles {
		expected[p] = true
	}

	scores := make([]Score, 0, len(out.Principles))
	for i, rs := range out.Principles {
		p := Principle(strings.TrimSpace(rs.Name))
		if _, known := principleDescriptions[p]; !known {
			return nil, invalid("entry %d: unknown principle %q", i, rs.Name)
		}
		if !expected[p] {
			return nil, invalid("entry %d: duplicate principle %q", i, p)
		}
		delete(expected, p)

		if rs.Score == nil {
			return nil, invalid("entry %d (%s): missing score", i, p)
		}
		if !validScore(*rs.Score) {
			return nil, invalid("entry %d (%s): score %v not in allowed set", i, p, *rs.Score)
		}
		rationale := truncateGraphemes(strings.TrimSpace(rs.Rationale), MaxRationaleLength)
		if *rs.Score <= -0.5 && rationale == "" {
			return nil, invalid("entry %d (%s): negative score requires a rationale", i, p)
		}
		scores = append(scores, Score{
			Principle: p,
			Score:     *rs.Score,
			Rationale: rationale,
		})
	}
	if len(expected) != 0 {
		return nil, invalid("missing %d principles", len(expected))
	}
	return scores, nil
}
