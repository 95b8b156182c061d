package domain

import "time"

type BankStatus string

const (
	BankHealthy  BankStatus = "healthy"
	BankDegraded BankStatus = "degraded"
	BankDown     BankStatus = "down"
)

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// SystemMetrics is the aggregate view of the payment pipeline over the
// current measurement window. Rates are percentages, latency is milliseconds.
type SystemMetrics struct {
	SuccessRate       float64   `json:"success_rate"`
	AvgLatency        float64   `json:"avg_latency"`
	TransactionVolume int       `json:"transaction_volume"`
	ErrorRate         float64   `json:"error_rate"`
	Timestamp         time.Time `json:"timestamp"`
}

// BankHealth describes one issuer/acquirer route.
type BankHealth struct {
	Name                        string     `json:"name"`
	DisplayName                 string     `json:"display_name"`
	Status                      BankStatus `json:"status"`
	SuccessRate                 float64    `json:"success_rate"`
	AvgLatency                  float64    `json:"avg_latency"`
	Weight                      int        `json:"weight"`
	PredictedFailureProbability float64    `json:"predicted_failure_probability"`
	FailureReason               string     `json:"failure_reason,omitempty"`
	LastUpdated                 time.Time  `json:"last_updated"`
}

type Anomaly struct {
	Type       string    `json:"type"`
	Severity   string    `json:"severity"` // low, medium, high
	Value      float64   `json:"value"`
	Threshold  float64   `json:"threshold"`
	Message    string    `json:"message"`
	DetectedAt time.Time `json:"detected_at"`
}

type ErrorLog struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Description   string    `json:"description"`
	Bank          string    `json:"bank"`
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

type Transaction struct {
	ID            string    `json:"id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method"`
	Bank          string    `json:"bank"`
	Status        string    `json:"status"` // success, failed
	ErrorCode     string    `json:"error_code,omitempty"`
	LatencyMS     float64   `json:"latency_ms"`
	Timestamp     time.Time `json:"timestamp"`
	RetryCount    int       `json:"retry_count"`
}

// Snapshot is the captured system-health state a single decision cycle works
// from. Immutable once taken: later stages never mutate it.
type Snapshot struct {
	Metrics    SystemMetrics `json:"metrics"`
	BankHealth []BankHealth  `json:"bank_health"`
	ErrorLogs  []ErrorLog    `json:"error_logs"`
	Anomalies  []Anomaly     `json:"anomalies"`
}

// FailurePrediction is a per-bank failure-risk estimate with the dominant
// contributing reason.
type FailurePrediction struct {
	Risk   float64 `json:"risk"`
	Reason string  `json:"reason"`
}
