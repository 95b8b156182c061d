package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/stitchfin/payops-agent/internal/domain"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

const (
	simulatorTick  = 100 * time.Millisecond
	metricsWindow  = 200
	errorLogsLimit = 100
)

// ScenarioEffect degrades one bank (or every bank when Bank is empty) for
// the scenario's duration.
type ScenarioEffect struct {
	Bank        string  `yaml:"bank"`
	SuccessRate float64 `yaml:"success_rate"`
	LatencyMS   float64 `yaml:"latency_ms"`
	ErrorCode   string  `yaml:"error_code"`
}

// Scenario is a named failure injection.
type Scenario struct {
	Name        string
	Description string
	Duration    time.Duration
	Effects     []ScenarioEffect
}

type scenarioYAML struct {
	Description string           `yaml:"description"`
	Duration    string           `yaml:"duration"`
	Effects     []ScenarioEffect `yaml:"effects"`
}

type scenarioFile struct {
	Scenarios map[string]scenarioYAML `yaml:"scenarios"`
}

// LoadScenarios reads the scenario catalog from a YAML file, falling back to
// the built-in set when the path is empty or unreadable.
func LoadScenarios(log *logger.Logger, path string) map[string]Scenario {
	scenarios := defaultScenarios()
	if path == "" {
		return scenarios
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("scenario file unreadable, using defaults", "path", path, "error", err)
		return scenarios
	}
	var parsed scenarioFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		log.Warn("scenario file invalid, using defaults", "path", path, "error", err)
		return scenarios
	}
	for name, y := range parsed.Scenarios {
		sc := Scenario{
			Name:        name,
			Description: y.Description,
			Duration:    60 * time.Second,
			Effects:     y.Effects,
		}
		if y.Duration != "" {
			if d, pErr := time.ParseDuration(y.Duration); pErr == nil && d > 0 {
				sc.Duration = d
			} else {
				log.Warn("bad scenario duration, using 60s", "scenario", name, "duration", y.Duration)
			}
		}
		scenarios[name] = sc
	}
	return scenarios
}

func defaultScenarios() map[string]Scenario {
	mk := func(name, desc string, d time.Duration, effects ...ScenarioEffect) Scenario {
		return Scenario{Name: name, Description: desc, Duration: d, Effects: effects}
	}
	return map[string]Scenario{
		"hdfc_timeout": mk("hdfc_timeout", "HDFC gateway timing out", 60*time.Second,
			ScenarioEffect{Bank: "hdfc", SuccessRate: 60, LatencyMS: 450, ErrorCode: "504"}),
		"visa_degradation": mk("visa_degradation", "Card network degradation across banks", 90*time.Second,
			ScenarioEffect{SuccessRate: 92, LatencyMS: 280, ErrorCode: "91"}),
		"system_overload": mk("system_overload", "Traffic spike overloading every route", 120*time.Second,
			ScenarioEffect{SuccessRate: 88, LatencyMS: 380, ErrorCode: "503"}),
		"bank_outage": mk("bank_outage", "Full HDFC outage", 60*time.Second,
			ScenarioEffect{Bank: "hdfc", SuccessRate: 5, LatencyMS: 900, ErrorCode: "connection_refused"}),
	}
}

// SimulatorService produces a synthetic payment stream and maintains the
// observed state in Redis: per-bank health, window metrics and error logs.
type SimulatorService interface {
	Start()
	Stop()
	Running() bool
	Scenarios() []Scenario
	TriggerScenario(name string) error
	TriggerCustom(sc Scenario)
}

type simulatorService struct {
	log       *logger.Logger
	rdb       *redis.Client
	notifier  OpsNotifier
	scenarios map[string]Scenario

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	window   []domain.Transaction
	active   *Scenario
	activeAt time.Time
	rng      *rand.Rand
}

var paymentMethods = []string{"card", "upi", "netbanking", "wallet"}

func NewSimulatorService(log *logger.Logger, rdb *redis.Client, notifier OpsNotifier, scenarios map[string]Scenario) SimulatorService {
	if scenarios == nil {
		scenarios = defaultScenarios()
	}
	return &simulatorService{
		log:       log.With("service", "SimulatorService"),
		rdb:       rdb,
		notifier:  notifier,
		scenarios: scenarios,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start launches the traffic loop. It runs until Stop is called; lifecycle
// is owned by the app, not by any single request.
func (s *simulatorService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.cancel = cancel
	s.mu.Unlock()

	s.log.Info("simulator starting", "tick", simulatorTick)
	go s.run(runCtx)
}

func (s *simulatorService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	s.running = false
	s.log.Info("simulator stopped")
}

func (s *simulatorService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *simulatorService) Scenarios() []Scenario {
	out := make([]Scenario, 0, len(s.scenarios))
	for _, sc := range s.scenarios {
		out = append(out, sc)
	}
	return out
}

func (s *simulatorService) TriggerScenario(name string) error {
	sc, ok := s.scenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario %q", name)
	}
	s.TriggerCustom(sc)
	return nil
}

func (s *simulatorService) TriggerCustom(sc Scenario) {
	if sc.Duration <= 0 {
		sc.Duration = 60 * time.Second
	}
	s.mu.Lock()
	s.active = &sc
	s.activeAt = time.Now()
	s.mu.Unlock()

	s.log.Info("scenario triggered", "scenario", sc.Name, "duration", sc.Duration)
	if s.notifier != nil {
		s.notifier.ScenarioTriggered(sc.Name)
	}
}

func (s *simulatorService) run(ctx context.Context) {
	ticker := time.NewTicker(simulatorTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *simulatorService) tick(ctx context.Context) {
	s.mu.Lock()
	if s.active != nil && time.Since(s.activeAt) > s.active.Duration {
		s.log.Info("scenario expired", "scenario", s.active.Name)
		s.active = nil
	}
	active := s.active
	s.mu.Unlock()

	banks := s.loadBanks(ctx)
	txn := s.generateTransaction(ctx, banks, active)

	s.mu.Lock()
	s.window = append(s.window, txn)
	if len(s.window) > metricsWindow {
		s.window = s.window[len(s.window)-metricsWindow:]
	}
	window := make([]domain.Transaction, len(s.window))
	copy(window, s.window)
	s.mu.Unlock()

	s.publishState(ctx, banks, window, txn)
}

// generateTransaction routes one payment through the weighted bank table and
// resolves it against the bank's effective health.
func (s *simulatorService) generateTransaction(ctx context.Context, banks []domain.BankHealth, active *Scenario) domain.Transaction {
	bank := s.pickBank(banks)
	method := s.pickMethod(ctx)

	successRate, latency, errorCode := baselineFor(bank)
	if active != nil {
		for _, eff := range active.Effects {
			if eff.Bank != "" && eff.Bank != bank.Name {
				continue
			}
			if eff.SuccessRate > 0 {
				successRate = eff.SuccessRate
			}
			if eff.LatencyMS > 0 {
				latency = eff.LatencyMS
			}
			if eff.ErrorCode != "" {
				errorCode = eff.ErrorCode
			}
		}
	}

	// Latency noise: +/- 30% around the target.
	observed := latency * (0.7 + s.rng.Float64()*0.6)
	txn := domain.Transaction{
		ID:            uuid.NewString(),
		Amount:        10 + s.rng.Float64()*4990,
		Currency:      "INR",
		PaymentMethod: method,
		Bank:          bank.Name,
		LatencyMS:     observed,
		Timestamp:     time.Now().UTC(),
	}
	if s.rng.Float64()*100 < successRate {
		txn.Status = "success"
	} else {
		txn.Status = "failed"
		txn.ErrorCode = errorCode
	}
	return txn
}

func (s *simulatorService) pickBank(banks []domain.BankHealth) domain.BankHealth {
	total := 0
	for _, b := range banks {
		total += b.Weight
	}
	if total <= 0 {
		return banks[s.rng.Intn(len(banks))]
	}
	n := s.rng.Intn(total)
	for _, b := range banks {
		if n < b.Weight {
			return b
		}
		n -= b.Weight
	}
	return banks[len(banks)-1]
}

func (s *simulatorService) pickMethod(ctx context.Context) string {
	method := paymentMethods[s.rng.Intn(len(paymentMethods))]
	if s.rdb != nil {
		if suppressed, err := s.rdb.Exists(ctx, keySuppressedPrefix+method).Result(); err == nil && suppressed > 0 {
			// Route around the suppressed method.
			for _, alt := range paymentMethods {
				if alt != method {
					return alt
				}
			}
		}
	}
	return method
}

// bankBaselines keeps routes slightly uneven so the dashboard shows texture.
var bankBaselines = map[string]struct {
	successRate float64
	latency     float64
}{
	"hdfc":  {99.2, 140},
	"icici": {99.4, 130},
	"sbi":   {99.0, 160},
	"axis":  {99.1, 150},
}

func baselineFor(bank domain.BankHealth) (successRate, latency float64, errorCode string) {
	successRate, latency, errorCode = 99.2, 150, "50"
	if base, ok := bankBaselines[bank.Name]; ok {
		successRate, latency = base.successRate, base.latency
	}
	return successRate, latency, errorCode
}

// publishState recomputes window aggregates and writes the observed state
// back to Redis for the snapshot reader.
func (s *simulatorService) publishState(ctx context.Context, banks []domain.BankHealth, window []domain.Transaction, latest domain.Transaction) {
	if s.rdb == nil {
		return
	}

	metrics := computeMetrics(window)
	updated := computeBankHealth(banks, window)

	if raw, err := json.Marshal(metrics); err == nil {
		if err := s.rdb.Set(ctx, keyCurrentMetrics, raw, 0).Err(); err != nil {
			s.log.Warn("metrics write failed", "error", err)
		}
	}
	if raw, err := json.Marshal(updated); err == nil {
		if err := s.rdb.Set(ctx, keyCurrentBanks, raw, 0).Err(); err != nil {
			s.log.Warn("bank health write failed", "error", err)
		}
	}

	if raw, err := json.Marshal(latest); err == nil {
		err := s.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: keyTransactionStream,
			MaxLen: metricsWindow,
			Approx: true,
			Values: map[string]any{"txn": raw},
		}).Err()
		if err != nil {
			s.log.Warn("transaction stream write failed", "error", err)
		}
	}

	if latest.Status == "failed" {
		entry := domain.ErrorLog{
			ID:            uuid.NewString(),
			Code:          latest.ErrorCode,
			Description:   "Transaction failed at " + latest.Bank,
			Bank:          latest.Bank,
			TransactionID: latest.ID,
			Timestamp:     latest.Timestamp,
		}
		if raw, err := json.Marshal(entry); err == nil {
			pipe := s.rdb.Pipeline()
			pipe.LPush(ctx, keyErrorLogs, raw)
			pipe.LTrim(ctx, keyErrorLogs, 0, errorLogsLimit-1)
			if _, err := pipe.Exec(ctx); err != nil {
				s.log.Warn("error log write failed", "error", err)
			}
		}
	}
}

func computeMetrics(window []domain.Transaction) domain.SystemMetrics {
	if len(window) == 0 {
		return defaultMetrics()
	}
	var success, latencySum float64
	for _, t := range window {
		if t.Status == "success" {
			success++
		}
		latencySum += t.LatencyMS
	}
	n := float64(len(window))
	return domain.SystemMetrics{
		SuccessRate:       success / n * 100,
		AvgLatency:        latencySum / n,
		TransactionVolume: len(window),
		ErrorRate:         (n - success) / n * 100,
		Timestamp:         time.Now().UTC(),
	}
}

func computeBankHealth(banks []domain.BankHealth, window []domain.Transaction) []domain.BankHealth {
	type agg struct {
		total, success int
		latencySum     float64
	}
	perBank := make(map[string]*agg)
	for _, t := range window {
		a, ok := perBank[t.Bank]
		if !ok {
			a = &agg{}
			perBank[t.Bank] = a
		}
		a.total++
		if t.Status == "success" {
			a.success++
		}
		a.latencySum += t.LatencyMS
	}

	now := time.Now().UTC()
	out := make([]domain.BankHealth, len(banks))
	for i, b := range banks {
		b.LastUpdated = now
		if a, ok := perBank[b.Name]; ok && a.total > 0 {
			b.SuccessRate = float64(a.success) / float64(a.total) * 100
			b.AvgLatency = a.latencySum / float64(a.total)
		}
		switch {
		case b.SuccessRate < 70:
			b.Status = domain.BankDown
		case b.SuccessRate < 90:
			b.Status = domain.BankDegraded
		default:
			b.Status = domain.BankHealthy
		}
		out[i] = b
	}
	return out
}

func (s *simulatorService) loadBanks(ctx context.Context) []domain.BankHealth {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, keyCurrentBanks).Result(); err == nil {
			var banks []domain.BankHealth
			if uErr := json.Unmarshal([]byte(raw), &banks); uErr == nil && len(banks) > 0 {
				return banks
			}
		}
	}
	return DefaultBanks()
}
