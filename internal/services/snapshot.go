package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stitchfin/payops-agent/internal/domain"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

// Redis key layout shared by the snapshot reader and the traffic simulator.
const (
	keyCurrentMetrics    = "payops:current:metrics"
	keyCurrentBanks      = "payops:current:banks"
	keyErrorLogs         = "payops:errors"
	keyAgentMemory       = "payops:agent:memory"
	keyAlertsStream      = "payops:alerts"
	keyTransactionStream = "payops:transactions"
)

// Anomaly thresholds. Warning level first, high-severity level second.
const (
	successRateThreshold     = 99.0
	successRateHighThreshold = 95.0
	latencyThreshold         = 220.0
	latencyHighThreshold     = 400.0
	errorRateThreshold       = 1.0
	errorRateHighThreshold   = 5.0
)

// SnapshotService reads the observed system state from Redis. When Redis is
// unavailable it degrades to a healthy synthetic baseline so the agent loop
// keeps running.
type SnapshotService interface {
	GetMetrics(ctx context.Context) (domain.SystemMetrics, error)
	GetBankHealth(ctx context.Context) ([]domain.BankHealth, error)
	GetErrorLogs(ctx context.Context, limit int) ([]domain.ErrorLog, error)
	DetectAnomalies(metrics domain.SystemMetrics) []domain.Anomaly
}

type snapshotService struct {
	log *logger.Logger
	rdb *redis.Client
}

func NewSnapshotService(log *logger.Logger, rdb *redis.Client) SnapshotService {
	return &snapshotService{
		log: log.With("service", "SnapshotService"),
		rdb: rdb,
	}
}

func (s *snapshotService) GetMetrics(ctx context.Context) (domain.SystemMetrics, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, keyCurrentMetrics).Result()
		if err == nil {
			var m domain.SystemMetrics
			uErr := json.Unmarshal([]byte(raw), &m)
			if uErr == nil {
				return m, nil
			}
			s.log.Warn("bad metrics payload in redis", "error", uErr)
		} else if err != redis.Nil {
			s.log.Warn("metrics read failed", "error", err)
		}
	}
	return defaultMetrics(), nil
}

func (s *snapshotService) GetBankHealth(ctx context.Context) ([]domain.BankHealth, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, keyCurrentBanks).Result()
		if err == nil {
			var banks []domain.BankHealth
			if uErr := json.Unmarshal([]byte(raw), &banks); uErr == nil {
				return banks, nil
			}
		} else if err != redis.Nil {
			s.log.Warn("bank health read failed", "error", err)
		}
	}
	return DefaultBanks(), nil
}

func (s *snapshotService) GetErrorLogs(ctx context.Context, limit int) ([]domain.ErrorLog, error) {
	if limit <= 0 {
		limit = 10
	}
	if s.rdb == nil {
		return nil, nil
	}

	raws, err := s.rdb.LRange(ctx, keyErrorLogs, 0, int64(limit-1)).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn("error log read failed", "error", err)
		}
		return nil, nil
	}

	logs := make([]domain.ErrorLog, 0, len(raws))
	for _, raw := range raws {
		var e domain.ErrorLog
		if uErr := json.Unmarshal([]byte(raw), &e); uErr != nil {
			continue
		}
		logs = append(logs, e)
	}
	return logs, nil
}

func (s *snapshotService) DetectAnomalies(metrics domain.SystemMetrics) []domain.Anomaly {
	now := time.Now().UTC()
	var anomalies []domain.Anomaly

	if metrics.SuccessRate < successRateThreshold {
		severity := "medium"
		if metrics.SuccessRate < successRateHighThreshold {
			severity = "high"
		}
		anomalies = append(anomalies, domain.Anomaly{
			Type:       "success_rate_drop",
			Severity:   severity,
			Value:      metrics.SuccessRate,
			Threshold:  successRateThreshold,
			Message:    "Success rate below threshold",
			DetectedAt: now,
		})
	}
	if metrics.AvgLatency > latencyThreshold {
		severity := "medium"
		if metrics.AvgLatency > latencyHighThreshold {
			severity = "high"
		}
		anomalies = append(anomalies, domain.Anomaly{
			Type:       "latency_spike",
			Severity:   severity,
			Value:      metrics.AvgLatency,
			Threshold:  latencyThreshold,
			Message:    "Average latency above threshold",
			DetectedAt: now,
		})
	}
	if metrics.ErrorRate > errorRateThreshold {
		severity := "medium"
		if metrics.ErrorRate > errorRateHighThreshold {
			severity = "high"
		}
		anomalies = append(anomalies, domain.Anomaly{
			Type:       "error_rate_spike",
			Severity:   severity,
			Value:      metrics.ErrorRate,
			Threshold:  errorRateThreshold,
			Message:    "Error rate above threshold",
			DetectedAt: now,
		})
	}
	return anomalies
}

func defaultMetrics() domain.SystemMetrics {
	return domain.SystemMetrics{
		SuccessRate:       99.5,
		AvgLatency:        150,
		TransactionVolume: 0,
		ErrorRate:         0.3,
		Timestamp:         time.Now().UTC(),
	}
}

// DefaultBanks is the baseline routing table before any simulator or live
// feed has written state.
func DefaultBanks() []domain.BankHealth {
	now := time.Now().UTC()
	return []domain.BankHealth{
		{Name: "hdfc", DisplayName: "HDFC Bank", Status: domain.BankHealthy, SuccessRate: 99.2, AvgLatency: 140, Weight: 40, LastUpdated: now},
		{Name: "icici", DisplayName: "ICICI Bank", Status: domain.BankHealthy, SuccessRate: 99.4, AvgLatency: 130, Weight: 30, LastUpdated: now},
		{Name: "sbi", DisplayName: "State Bank of India", Status: domain.BankHealthy, SuccessRate: 99.0, AvgLatency: 160, Weight: 20, LastUpdated: now},
		{Name: "axis", DisplayName: "Axis Bank", Status: domain.BankHealthy, SuccessRate: 99.1, AvgLatency: 150, Weight: 10, LastUpdated: now},
	}
}
