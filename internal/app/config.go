package app

import (
	"time"

	"github.com/stitchfin/payops-agent/internal/pkg/logger"
	"github.com/stitchfin/payops-agent/internal/utils"
)

type Config struct {
	Port         string
	RedisAddr    string
	RedisChannel string

	LoopInterval time.Duration
	ErrorBackoff time.Duration
	RewardGrace  time.Duration

	OracleTimeout time.Duration

	SlackWebhookURL string

	SimulatorEnabled  bool
	ScenarioFile      string
	TelemetryInterval time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:         utils.GetEnv("PORT", "8080", log),
		RedisAddr:    utils.GetEnv("REDIS_ADDR", "localhost:6379", log),
		RedisChannel: utils.GetEnv("REDIS_CHANNEL", "payops:sse", log),

		LoopInterval: utils.GetEnvAsDuration("AGENT_LOOP_INTERVAL", 5*time.Second, log),
		ErrorBackoff: utils.GetEnvAsDuration("AGENT_ERROR_BACKOFF", 10*time.Second, log),
		RewardGrace:  utils.GetEnvAsDuration("AGENT_REWARD_GRACE", 2*time.Second, log),

		OracleTimeout: utils.GetEnvAsDuration("ORACLE_TIMEOUT", 30*time.Second, log),

		SlackWebhookURL: utils.GetEnv("SLACK_WEBHOOK_URL", "", log),

		SimulatorEnabled:  utils.GetEnvAsBool("SIMULATOR_ENABLED", true, log),
		ScenarioFile:      utils.GetEnv("SCENARIO_FILE", "configs/scenarios.yaml", log),
		TelemetryInterval: utils.GetEnvAsDuration("TELEMETRY_INTERVAL", time.Second, log),
	}
}
