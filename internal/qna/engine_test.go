package qna

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	response string
	err      error
	calls    int

	gotSystem string
	gotUser   string
}

func (f *fakeLLM) Invoke(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.gotSystem = system
	f.gotUser = user
	return f.response, f.err
}

func baseAnswerFor(question string) string {
	extracted := Extract(question)
	f := Simulate(extracted.Location, extracted.When)
	return fmt.Sprintf(
		"Weather forecast for %s (%s): %s. Temperatures around High %d°C / Low %d°C. %s",
		f.Location, f.When, f.Summary, f.High, f.Low, f.Advice,
	)
}

func TestAnswerWithoutBackend(t *testing.T) {
	engine := NewEngine(nil, 0, nil)

	answer := engine.Answer(context.Background(), "What's the weather in Paris tomorrow?")

	assert.True(t, strings.HasPrefix(answer, "Weather forecast for Paris (tomorrow):"),
		"got: %s", answer)
}

func TestAnswerWithoutBackendIsDeterministic(t *testing.T) {
	engine := NewEngine(nil, 0, nil)

	q := "weather in Oslo this weekend"
	assert.Equal(t, engine.Answer(context.Background(), q), engine.Answer(context.Background(), q))
}

func TestAnswerFallsBackOnBackendError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("connection refused")}
	engine := NewEngine(llm, time.Second, nil)

	q := "weather in Paris tomorrow"
	answer := engine.Answer(context.Background(), q)

	assert.Equal(t, baseAnswerFor(q), answer)
	assert.Equal(t, 1, llm.calls)
}

func TestAnswerFallsBackOnEmptyResponse(t *testing.T) {
	tests := []string{"", "   ", "\n\t"}
	for _, response := range tests {
		llm := &fakeLLM{response: response}
		engine := NewEngine(llm, time.Second, nil)

		q := "weather in Paris tomorrow"
		assert.Equal(t, baseAnswerFor(q), engine.Answer(context.Background(), q))
	}
}

func TestAnswerUsesBackendResponse(t *testing.T) {
	llm := &fakeLLM{response: "  Expect sunshine in Paris tomorrow, around 25°C.  "}
	engine := NewEngine(llm, time.Second, nil)

	answer := engine.Answer(context.Background(), "weather in Paris tomorrow")

	assert.Equal(t, "Expect sunshine in Paris tomorrow, around 25°C.", answer)
}

func TestAnswerBackendPromptContents(t *testing.T) {
	llm := &fakeLLM{response: "ok"}
	engine := NewEngine(llm, time.Second, nil)

	q := "weather in Paris tomorrow"
	engine.Answer(context.Background(), q)

	require.Equal(t, 1, llm.calls)
	assert.Contains(t, llm.gotSystem, "weather assistant")
	assert.Contains(t, llm.gotUser, q)
	assert.Contains(t, llm.gotUser, "Paris")
}

func TestAnswerEnforcesInvokeDeadline(t *testing.T) {
	var sawDeadline bool
	llm := &deadlineProbe{onInvoke: func(ctx context.Context) {
		_, sawDeadline = ctx.Deadline()
	}}
	engine := NewEngine(llm, 50*time.Millisecond, nil)

	engine.Answer(context.Background(), "weather in Paris")

	assert.True(t, sawDeadline, "invoke context must carry a deadline")
}

type deadlineProbe struct {
	onInvoke func(ctx context.Context)
}

func (d *deadlineProbe) Invoke(ctx context.Context, system, user string) (string, error) {
	d.onInvoke(ctx)
	return "", errors.New("probe")
}
