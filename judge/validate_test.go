package judge

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type entry struct {
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale,omitempty"`
}

func wellFormed() []entry {
	out := []entry{}
	for i, p := range Principles {
		e := entry{Name: string(p), Score: ScoreValues[i%len(ScoreValues)]}
		if e.Score <= -0.5 {
			e.Rationale = "encourages continued engagement"
		}
		out = append(out, e)
	}
	return out
}

func render(entries []entry) string {
	b, err := json.Marshal(map[string]any{"principles": entries, "summary": "extra keys are ignored"})
	if err != nil {
		panic(err)
	}
	return string(b)
}

func TestParseAndValidateAccepts(t *testing.T) {
	assert := assert.New(t)

	scores, err := ParseAndValidate(render(wellFormed()))
	assert.NoError(err)
	assert.Equal(8, len(scores))
	assert.Equal(RespectUserAttention, scores[0].Principle)
	assert.Equal(1.0, scores[0].Score)
	assert.Equal("encourages continued engagement", scores[2].Rationale)

	// wrapped in a code fence and prose
	wrapped := "Here is my evaluation:\n```json\n" + render(wellFormed()) + "\n```\nLet me know if you need more."
	scores2, err := ParseAndValidate(wrapped)
	assert.NoError(err)
	assert.Equal(scores, scores2)

	fenced := "```\n" + render(wellFormed()) + "\n```"
	_, err = ParseAndValidate(fenced)
	assert.NoError(err)
}

func TestParseAndValidateRejects(t *testing.T) {
	assert := assert.New(t)

	seven := wellFormed()[:7]
	_, err := ParseAndValidate(render(seven))
	assert.ErrorIs(err, ErrInvalidOutput)

	dupe := wellFormed()
	dupe[7].Name = dupe[0].Name
	_, err = ParseAndValidate(render(dupe))
	assert.ErrorIs(err, ErrInvalidOutput)
	assert.Contains(err.Error(), "duplicate")

	offScale := wellFormed()
	offScale[1].Score = 0.75
	_, err = ParseAndValidate(render(offScale))
	assert.ErrorIs(err, ErrInvalidOutput)

	noRationale := wellFormed()
	noRationale[3].Score = -1.0
	noRationale[3].Rationale = ""
	_, err = ParseAndValidate(render(noRationale))
	assert.ErrorIs(err, ErrInvalidOutput)
	assert.Contains(err.Error(), "rationale")

	// whitespace-only rationale counts as empty
	noRationale[3].Rationale = "   "
	_, err = ParseAndValidate(render(noRationale))
	assert.ErrorIs(err, ErrInvalidOutput)

	unknown := wellFormed()
	unknown[5].Name = "be-nice"
	_, err = ParseAndValidate(render(unknown))
	assert.ErrorIs(err, ErrInvalidOutput)

	nine := append(wellFormed(), entry{Name: string(RespectUserAttention), Score: 1.0})
	_, err = ParseAndValidate(render(nine))
	assert.ErrorIs(err, ErrInvalidOutput)

	for _, raw := range []string{
		"",
		"I cannot evaluate this.",
		"{not json}",
		`{"principles": "all good"}`,
		"} backwards {",
	} {
		_, err := ParseAndValidate(raw)
		assert.ErrorIs(err, ErrInvalidOutput, raw)
		var ioe *InvalidOutputError
		assert.ErrorAs(err, &ioe)
	}

	// missing score is not defaulted to anything
	missing := strings.Replace(render(wellFormed()), `,"score":1}`, `}`, 1)
	assert.NotEqual(render(wellFormed()), missing)
	_, err = ParseAndValidate(missing)
	assert.ErrorIs(err, ErrInvalidOutput)
}

func TestRepairPlusSign(t *testing.T) {
	assert := assert.New(t)

	var repaired, plain map[string]float64
	assert.NoError(json.Unmarshal([]byte(RepairJSON(`{"score": +0.5}`)), &repaired))
	assert.NoError(json.Unmarshal([]byte(`{"score": 0.5}`), &plain))
	assert.Equal(plain, repaired)

	assert.Equal(`{"score":1.0}`, RepairJSON(`{"score":+1.0}`))
	// minus signs and non-numeric plus signs are untouched
	assert.Equal(`{"score": -0.5}`, RepairJSON(`{"score": -0.5}`))
	assert.Equal(`{"note": "+a"}`, RepairJSON(`{"note": "+a"}`))

	// full output, with every positive score written with a sign
	raw := render(wellFormed())
	raw = strings.ReplaceAll(raw, `"score":1}`, `"score": +1.0}`)
	raw = strings.ReplaceAll(raw, `"score":0.5}`, `"score":+0.5}`)
	assert.Contains(raw, "+0.5")
	scores, err := ParseAndValidate(raw)
	assert.NoError(err)
	assert.Equal(0.5, scores[1].Score)
	assert.Equal(1.0, scores[0].Score)
}

func TestOverall(t *testing.T) {
	assert := assert.New(t)

	scores, err := ParseAndValidate(render(wellFormed()))
	assert.NoError(err)
	// two of each allowed value
	assert.Equal(0.0, Overall(scores))
	assert.Equal(0.0, Overall(nil))
	assert.Equal("respect-user-attention=+1.0", fmt.Sprint(scores[0]))
}

func TestRationaleTruncated(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("abc", truncateGraphemes("abc", 5))
	// combining accents stay attached to their base letter
	assert.Equal("e\u0301a", truncateGraphemes("e\u0301ab", 2))

	entries := wellFormed()
	entries[0].Rationale = strings.Repeat("é", MaxRationaleLength+50)
	scores, err := ParseAndValidate(render(entries))
	assert.NoError(err)
	assert.Equal(MaxRationaleLength, len([]rune(scores[0].Rationale)))
}
