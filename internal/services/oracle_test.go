package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stitchfin/payops-agent/internal/domain"
	pkgerrors "github.com/stitchfin/payops-agent/internal/pkg/errors"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

type scriptedAIClient struct {
	content string
	err     error
}

func (c *scriptedAIClient) Chat(context.Context, []AIMessage, *AIOptions) (string, error) {
	return c.content, c.err
}

func TestParseOracleResult_PlainJSON(t *testing.T) {
	result, err := parseOracleResult(`{"hypothesis":"HDFC timing out","severity":0.8,"patterns":["timeout"]}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if result.Hypothesis != "HDFC timing out" || result.Severity != 0.8 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestParseOracleResult_CodeFenced(t *testing.T) {
	content := "```json\n{\"hypothesis\":\"overload\",\"severity\":0.6}\n```"
	result, err := parseOracleResult(content)
	if err != nil {
		t.Fatalf("fenced JSON should parse: %v", err)
	}
	if result.Hypothesis != "overload" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestParseOracleResult_ClampsSeverity(t *testing.T) {
	result, err := parseOracleResult(`{"hypothesis":"x","severity":1.7}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if result.Severity != 1 {
		t.Fatalf("severity should clamp to 1, got %v", result.Severity)
	}
}

func TestReasonAboutState_ParseErrorWraps(t *testing.T) {
	svc := NewOracleService(logger.NewNop(), &scriptedAIClient{content: "not json"}, 0)

	_, err := svc.ReasonAboutState(context.Background(), domain.ContextBundle{})
	if !errors.Is(err, pkgerrors.ErrOracleParse) {
		t.Fatalf("expected ErrOracleParse, got %v", err)
	}
}

func TestReasonAboutState_Success(t *testing.T) {
	svc := NewOracleService(logger.NewNop(), &scriptedAIClient{
		content: `{"hypothesis":"bank outage","severity":0.9}`,
	}, 0)

	result, err := svc.ReasonAboutState(context.Background(), domain.ContextBundle{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Hypothesis != "bank outage" || result.Severity != 0.9 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
