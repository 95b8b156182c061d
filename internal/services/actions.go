package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stitchfin/payops-agent/internal/domain"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

const (
	keyRetryConfig      = "payops:config:retry"
	keySuppressedPrefix = "payops:suppressed:"
)

// RetryConfig is the gateway retry policy the agent tunes.
type RetryConfig struct {
	MaxRetries        int     `json:"max_retries"`
	BackoffMultiplier float64 `json:"backoff_multiplier"`
	UpdatedAt         string  `json:"updated_at"`
}

// ActionService executes the agent's interventions against the routing
// layer. All actions are idempotent: re-applying a weight shift or retry
// config is safe.
type ActionService interface {
	SwitchGateway(ctx context.Context, fromBank, toBank string, percentage int) error
	AdjustRetryConfig(ctx context.Context, maxRetries int, backoffMultiplier float64) error
	SendAlert(ctx context.Context, message string, severity domain.AlertSeverity) error
	SuppressPaymentMethod(ctx context.Context, method string, duration time.Duration) error
}

type actionService struct {
	log     *logger.Logger
	rdb     *redis.Client
	webhook AlertWebhook
}

func NewActionService(log *logger.Logger, rdb *redis.Client, webhook AlertWebhook) ActionService {
	return &actionService{
		log:     log.With("service", "ActionService"),
		rdb:     rdb,
		webhook: webhook,
	}
}

// SwitchGateway moves percentage% of the source bank's routing weight to the
// target bank and persists the new table.
func (s *actionService) SwitchGateway(ctx context.Context, fromBank, toBank string, percentage int) error {
	if s.rdb == nil {
		return fmt.Errorf("routing table unavailable: redis not connected")
	}

	banks, err := s.loadBanks(ctx)
	if err != nil {
		return fmt.Errorf("switch gateway: %w", err)
	}

	fromIdx, toIdx := -1, -1
	for i := range banks {
		switch banks[i].Name {
		case fromBank:
			fromIdx = i
		case toBank:
			toIdx = i
		}
	}
	if fromIdx < 0 || toIdx < 0 {
		return fmt.Errorf("switch gateway: unknown bank in %s -> %s", fromBank, toBank)
	}

	moved := banks[fromIdx].Weight * percentage / 100
	banks[fromIdx].Weight -= moved
	banks[toIdx].Weight += moved
	banks[fromIdx].LastUpdated = time.Now().UTC()
	banks[toIdx].LastUpdated = time.Now().UTC()

	if err := s.saveBanks(ctx, banks); err != nil {
		return fmt.Errorf("switch gateway: %w", err)
	}
	s.log.Info("traffic rerouted", "from", fromBank, "to", toBank, "percentage", percentage, "weight_moved", moved)
	return nil
}

func (s *actionService) AdjustRetryConfig(ctx context.Context, maxRetries int, backoffMultiplier float64) error {
	cfg := RetryConfig{
		MaxRetries:        maxRetries,
		BackoffMultiplier: backoffMultiplier,
		UpdatedAt:         time.Now().UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	if s.rdb != nil {
		if err := s.rdb.Set(ctx, keyRetryConfig, raw, 0).Err(); err != nil {
			return fmt.Errorf("adjust retry config: %w", err)
		}
	}
	s.log.Info("retry config adjusted", "max_retries", maxRetries, "backoff_multiplier", backoffMultiplier)
	return nil
}

// SendAlert posts to the operator webhook and appends to the alert stream.
// Webhook failure fails the action; the stream write is best-effort.
func (s *actionService) SendAlert(ctx context.Context, message string, severity domain.AlertSeverity) error {
	if s.rdb != nil {
		err := s.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: keyAlertsStream,
			MaxLen: 1000,
			Approx: true,
			Values: map[string]any{
				"message":  message,
				"severity": string(severity),
				"at":       time.Now().UTC().Format(time.RFC3339),
			},
		}).Err()
		if err != nil {
			s.log.Warn("alert stream append failed", "error", err)
		}
	}

	if s.webhook == nil {
		s.log.Info("alert raised (no webhook configured)", "severity", severity, "message", message)
		return nil
	}
	return s.webhook.Post(ctx, message, severity)
}

func (s *actionService) SuppressPaymentMethod(ctx context.Context, method string, duration time.Duration) error {
	if method == "" {
		return fmt.Errorf("suppress: method required")
	}
	if s.rdb == nil {
		return fmt.Errorf("suppress: redis not connected")
	}
	if err := s.rdb.Set(ctx, keySuppressedPrefix+method, "1", duration).Err(); err != nil {
		return fmt.Errorf("suppress %s: %w", method, err)
	}
	s.log.Info("payment method suppressed", "method", method, "duration", duration)
	return nil
}

func (s *actionService) loadBanks(ctx context.Context) ([]domain.BankHealth, error) {
	raw, err := s.rdb.Get(ctx, keyCurrentBanks).Result()
	if err == redis.Nil {
		return DefaultBanks(), nil
	}
	if err != nil {
		return nil, err
	}
	var banks []domain.BankHealth
	if err := json.Unmarshal([]byte(raw), &banks); err != nil {
		return nil, err
	}
	return banks, nil
}

func (s *actionService) saveBanks(ctx context.Context, banks []domain.BankHealth) error {
	raw, err := json.Marshal(banks)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyCurrentBanks, raw, 0).Err()
}
