package qna

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const defaultInvokeTimeout = 15 * time.Second

const systemPrompt = "You are a helpful weather assistant. You have access to a trusted internal " +
	"weather tool (MCP) that returns simulated but consistent forecasts. " +
	"Use the provided tool output to craft a concise, clear answer."

// LLMClient invokes a language-model backend with a system instruction and a
// user message, returning the generated text.
type LLMClient interface {
	Invoke(ctx context.Context, system, user string) (string, error)
}

// Engine orchestrates the answer pipeline: extraction, forecast simulation,
// and composition with an optional language-model rewrite.
type Engine struct {
	llm           LLMClient // nil means pure simulated mode
	invokeTimeout time.Duration
	logger        *slog.Logger
}

// NewEngine creates an Engine. A nil llm disables the rewrite step entirely;
// answers are then fully deterministic. A zero timeout falls back to the
// default.
func NewEngine(llm LLMClient, invokeTimeout time.Duration, logger *slog.Logger) *Engine {
	if invokeTimeout <= 0 {
		invokeTimeout = defaultInvokeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{llm: llm, invokeTimeout: invokeTimeout, logger: logger}
}

// Answer generates an answer for a weather question. The language-model
// rewrite is best-effort: any backend failure, timeout, or empty response
// silently falls back to the deterministic base answer. Answer never fails.
func (e *Engine) Answer(ctx context.Context, question string) string {
	extracted := Extract(question)
	forecast := Simulate(extracted.Location, extracted.When)

	base := fmt.Sprintf(
		"Weather forecast for %s (%s): %s. Temperatures around High %d°C / Low %d°C. %s",
		forecast.Location, forecast.When, forecast.Summary,
		forecast.High, forecast.Low, forecast.Advice,
	)

	if e.llm == nil {
		return base
	}

	rewritten, ok := e.rewrite(ctx, question, forecast)
	if !ok {
		return base
	}
	return rewritten
}

// rewrite asks the language model to restyle the base answer around the
// forecast data. Returns false on any failure.
func (e *Engine) rewrite(ctx context.Context, question string, forecast Forecast) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.invokeTimeout)
	defer cancel()

	userContent := fmt.Sprintf(
		"User question: %s\n"+
			"Tool data (simulated MCP): %+v\n"+
			"Write a friendly, 2-3 sentence answer. Keep it factual and avoid mentioning that it's simulated.",
		question, forecast,
	)

	text, err := e.llm.Invoke(ctx, systemPrompt, userContent)
	if err != nil {
		e.logger.Warn("language model invocation failed, using base answer", "error", err)
		return "", false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		e.logger.Warn("language model returned empty response, using base answer")
		return "", false
	}

	return text, true
}
