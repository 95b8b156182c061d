package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stitchfin/payops-agent/internal/domain"
	pkgerrors "github.com/stitchfin/payops-agent/internal/pkg/errors"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

const oracleSystemPrompt = `You are the reasoning engine of an autonomous payment-operations agent.
You receive a JSON bundle describing the current state of a payment-routing
system: aggregate metrics, detected anomalies, per-bank health, recent error
logs, model failure predictions, and summaries of past incidents.

Respond with a single JSON object and nothing else:
{
  "hypothesis": "<one or two sentences naming the most likely root cause>",
  "severity": <number between 0.0 and 1.0>,
  "patterns": ["<short pattern labels>"],
  "memory_analysis": "<how past incidents inform this assessment, or empty>"
}`

// OracleService turns a context bundle into a structured hypothesis by
// consulting a chat model.
type OracleService interface {
	ReasonAboutState(ctx context.Context, bundle domain.ContextBundle) (domain.OracleResult, error)
}

type oracleService struct {
	log     *logger.Logger
	client  AIClient
	timeout time.Duration
}

func NewOracleService(log *logger.Logger, client AIClient, timeout time.Duration) OracleService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &oracleService{
		log:     log.With("service", "OracleService"),
		client:  client,
		timeout: timeout,
	}
}

func (s *oracleService) ReasonAboutState(ctx context.Context, bundle domain.ContextBundle) (domain.OracleResult, error) {
	if s.client == nil {
		return domain.OracleResult{}, fmt.Errorf("reasoning model not configured")
	}

	payload, err := json.Marshal(bundle)
	if err != nil {
		return domain.OracleResult{}, fmt.Errorf("encode bundle: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	content, err := s.client.Chat(callCtx, []AIMessage{
		{Role: "system", Content: oracleSystemPrompt},
		{Role: "user", Content: string(payload)},
	}, &AIOptions{Temperature: 0.2})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return domain.OracleResult{}, fmt.Errorf("oracle call: %w", pkgerrors.ErrOracleTimeout)
		}
		return domain.OracleResult{}, fmt.Errorf("oracle call: %w", err)
	}

	result, err := parseOracleResult(content)
	if err != nil {
		s.log.Warn("oracle returned unparseable output", "error", err)
		return domain.OracleResult{}, fmt.Errorf("oracle parse: %w", pkgerrors.ErrOracleParse)
	}
	return result, nil
}

// parseOracleResult tolerates markdown code fences around the JSON object.
func parseOracleResult(content string) (domain.OracleResult, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	var result domain.OracleResult
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return domain.OracleResult{}, err
	}
	if result.Hypothesis == "" {
		return domain.OracleResult{}, fmt.Errorf("empty hypothesis")
	}
	if result.Severity < 0 {
		result.Severity = 0
	}
	if result.Severity > 1 {
		result.Severity = 1
	}
	return result, nil
}
