package judge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Abhijit-Sethi/humane-ai-rater/models"
	"github.com/Abhijit-Sethi/humane-ai-rater/util"

	"github.com/stretchr/testify/assert"
)

type scriptedCompleter struct {
	outputs []string
	prompts []string
}

func (c *scriptedCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	c.prompts = append(c.prompts, user)
	if len(c.outputs) == 0 {
		return "", errors.New("no more outputs")
	}
	out := c.outputs[0]
	c.outputs = c.outputs[1:]
	return out, nil
}

func testRequest() Request {
	return Request{
		Platform:   models.PlatformClaude,
		UserPrompt: "I can't sleep, should I keep chatting with you all night?",
		AIResponse: "It sounds like rest would help more than another hour on your phone.",
	}
}

func TestEvaluatorRetries(t *testing.T) {
	assert := assert.New(t)

	c := &scriptedCompleter{outputs: []string{
		"Sorry, here's a summary instead.",
		render(wellFormed()[:7]),
		render(wellFormed()),
	}}
	ev := NewEvaluator(c, 0, nil)

	res, err := ev.Evaluate(context.Background(), testRequest())
	assert.NoError(err)
	assert.Equal(3, res.Attempts)
	assert.Equal(8, len(res.Scores))
	assert.Equal(3, len(c.prompts))
	assert.Contains(c.prompts[1], "rejected")
	assert.Contains(c.prompts[2], "expected 8 principles")
}

func TestEvaluatorExhausted(t *testing.T) {
	assert := assert.New(t)

	c := &scriptedCompleter{outputs: []string{"nope", "nope", "nope", render(wellFormed())}}
	ev := NewEvaluator(c, 0, nil)

	_, err := ev.Evaluate(context.Background(), testRequest())
	assert.ErrorIs(err, ErrInvalidOutput)
	assert.Equal(3, len(c.prompts))
}

func TestEvaluatorCallError(t *testing.T) {
	assert := assert.New(t)

	ev := NewEvaluator(&scriptedCompleter{}, 0, nil)
	_, err := ev.Evaluate(context.Background(), testRequest())
	assert.Error(err)
	assert.False(errors.Is(err, ErrInvalidOutput))

	req := testRequest()
	req.Platform = "bard"
	_, err = ev.Evaluate(context.Background(), req)
	assert.Error(err)
}

func TestOpenAICompleter(t *testing.T) {
	assert := assert.New(t)

	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotModel, _ = body["model"].(string)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   gotModel,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": "```json\n" + render(wellFormed()) + "\n```",
				},
			}},
		})
	}))
	defer srv.Close()

	c := NewOpenAICompleter("test-key", srv.URL+"/v1", "judge-model", util.PooledHTTPClient(5*time.Second))
	ev := NewEvaluator(c, 100, nil)
	res, err := ev.Evaluate(context.Background(), testRequest())
	assert.NoError(err)
	assert.Equal("judge-model", gotModel)
	assert.Equal(1, res.Attempts)
	assert.Equal(models.PlatformClaude, res.Platform)
}
