package app

import (
	"github.com/redis/go-redis/v9"

	"github.com/stitchfin/payops-agent/internal/agent"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
	"github.com/stitchfin/payops-agent/internal/policy"
	"github.com/stitchfin/payops-agent/internal/services"
	"github.com/stitchfin/payops-agent/internal/sse"
)

type Services struct {
	Snapshots  services.SnapshotService
	Predictor  services.PredictorService
	Memory     services.MemoryService
	Oracle     services.OracleService
	Actions    services.ActionService
	Notifier   services.OpsNotifier
	Simulator  services.SimulatorService
	Telemetry  services.TelemetryService
	Bus        services.SSEBus
	Learner    *policy.LinearLearner
	Controller *agent.Controller
}

func wireServices(log *logger.Logger, cfg Config, rdb *redis.Client, hub *sse.SSEHub) Services {
	// With Redis up, events go through the pub/sub bus so every replica's
	// dashboards see the same stream. Without it, emit straight to the hub.
	var (
		emitter services.SSEEmitter
		bus     services.SSEBus
	)
	if rdb != nil {
		if b, err := services.NewRedisSSEBus(log, rdb, cfg.RedisChannel); err == nil {
			bus = b
			emitter = &services.RedisEmitter{Bus: b}
		}
	}
	if emitter == nil {
		emitter = &services.HubEmitter{Hub: hub}
	}
	notifier := services.NewOpsNotifier(emitter)

	snapshots := services.NewSnapshotService(log, rdb)
	predictor := services.NewPredictorService(log, snapshots)
	memory := services.NewMemoryService(log, rdb)

	aiClient, err := services.NewAIClient(log)
	if err != nil {
		log.Warn("reasoning model unavailable, agent will use fallback hypotheses", "error", err)
	}
	oracle := services.NewOracleService(log, aiClient, cfg.OracleTimeout)

	webhook := services.NewAlertWebhook(log, cfg.SlackWebhookURL)
	actions := services.NewActionService(log, rdb, webhook)

	scenarios := services.LoadScenarios(log, cfg.ScenarioFile)
	simulator := services.NewSimulatorService(log, rdb, notifier, scenarios)
	telemetry := services.NewTelemetryService(log, snapshots, notifier, cfg.TelemetryInterval)

	learner := policy.NewLinearLearner(log)
	controller := agent.NewController(
		log,
		snapshots,
		predictor,
		memory,
		oracle,
		actions,
		learner,
		agent.NewGuardrails(),
		notifier,
		agent.Options{
			LoopInterval: cfg.LoopInterval,
			ErrorBackoff: cfg.ErrorBackoff,
			RewardGrace:  cfg.RewardGrace,
		},
	)

	return Services{
		Snapshots:  snapshots,
		Predictor:  predictor,
		Memory:     memory,
		Oracle:     oracle,
		Actions:    actions,
		Notifier:   notifier,
		Simulator:  simulator,
		Telemetry:  telemetry,
		Bus:        bus,
		Learner:    learner,
		Controller: controller,
	}
}
