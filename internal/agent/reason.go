package agent

import (
	"context"
	goerrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/stitchfin/payops-agent/internal/domain"
	pkgerrors "github.com/stitchfin/payops-agent/internal/pkg/errors"
)

const (
	maxBundleAnomalies = 5
	maxBundleBanks     = 5
	maxBundleErrors    = 10
	memoryRecallLimit  = 3

	mlPredictionThreshold = 0.5
	mlOverrideThreshold   = 0.6
)

// reason forms a risk hypothesis from the snapshot, the failure predictor and
// the reasoning oracle. It never returns an error: every failure path
// degrades to a fallback hypothesis so the loop keeps moving.
func (c *Controller) reason(ctx context.Context, st *cycleState) update {
	snapshot := st.snapshot
	if len(snapshot.Anomalies) == 0 {
		hyp := domain.Hypothesis{
			Text:      "All systems healthy. No anomalies detected.",
			RiskScore: 0,
			Source:    domain.SourceFallback,
		}
		c.think(domain.StageReason, hyp.Text)
		return update{hypothesis: &hyp}
	}

	predictions := c.fetchPredictions(ctx)
	if bank, pred, ok := highestPrediction(predictions, mlPredictionThreshold); ok {
		// The predictor sees trouble beyond what the threshold detectors
		// flagged. Add it to the picture the oracle reasons over.
		snapshot.Anomalies = append(append([]domain.Anomaly{}, snapshot.Anomalies...), domain.Anomaly{
			Type:       "predicted_failure",
			Severity:   "high",
			Value:      pred.Risk,
			Threshold:  mlPredictionThreshold,
			Message:    fmt.Sprintf("Model predicts failure risk %.2f for %s: %s", pred.Risk, bank, pred.Reason),
			DetectedAt: time.Now().UTC(),
		})
	}

	bundle := c.buildBundle(ctx, snapshot, predictions)
	hyp := c.consultOracle(ctx, bundle)

	// A confident model prediction overrides a milder oracle verdict.
	if bank, pred, ok := highestPrediction(predictions, mlOverrideThreshold); ok && pred.Risk > hyp.RiskScore {
		hyp.RiskScore = pred.Risk
		hyp.Text = fmt.Sprintf("Model predicts high failure risk for %s (%s). %s", bank, pred.Reason, hyp.Text)
	}
	hyp.RiskScore = clamp01(hyp.RiskScore)

	c.think(domain.StageReason, fmt.Sprintf("Hypothesis (risk %.2f, %s): %s", hyp.RiskScore, hyp.Source, hyp.Text))
	return update{snapshot: &snapshot, hypothesis: &hyp, predictions: predictions}
}

func (c *Controller) fetchPredictions(ctx context.Context) map[string]domain.FailurePrediction {
	predictions, err := c.predictor.GetFailurePredictions(ctx)
	if err != nil {
		c.log.Warn("failure predictions unavailable", "error", err)
		return nil
	}
	return predictions
}

func (c *Controller) buildBundle(ctx context.Context, snapshot domain.Snapshot, predictions map[string]domain.FailurePrediction) domain.ContextBundle {
	bundle := domain.ContextBundle{
		Metrics:     snapshot.Metrics,
		Predictions: predictions,
	}

	bundle.Anomalies = snapshot.Anomalies
	if len(bundle.Anomalies) > maxBundleAnomalies {
		bundle.Anomalies = bundle.Anomalies[:maxBundleAnomalies]
	}
	for _, b := range snapshot.BankHealth {
		bundle.Banks = append(bundle.Banks, domain.BankSummary{
			Name:        b.Name,
			Status:      b.Status,
			SuccessRate: b.SuccessRate,
		})
		if len(bundle.Banks) == maxBundleBanks {
			break
		}
	}
	bundle.RecentErrors = snapshot.ErrorLogs
	if len(bundle.RecentErrors) > maxBundleErrors {
		bundle.RecentErrors = bundle.RecentErrors[:maxBundleErrors]
	}

	memories, err := c.memory.RecallSimilarPatterns(ctx, snapshot.Anomalies, memoryRecallLimit)
	if err != nil {
		c.log.Warn("memory recall failed", "error", err)
	}
	for _, m := range memories {
		bundle.Memories = append(bundle.Memories, fmt.Sprintf(
			"Past incident: %s -> %s (%s, improvement %.1f)",
			m.Hypothesis, m.Intervention.Description, m.Outcome, m.Improvement))
	}
	return bundle
}

func (c *Controller) consultOracle(ctx context.Context, bundle domain.ContextBundle) domain.Hypothesis {
	result, err := c.oracle.ReasonAboutState(ctx, bundle)
	if err != nil {
		if goerrors.Is(err, pkgerrors.ErrOracleTimeout) {
			c.log.Warn("oracle timed out, using fallback hypothesis")
			return domain.Hypothesis{
				Text:      fallbackText(bundle.Anomalies),
				RiskScore: 0.4,
				Source:    domain.SourceFallback,
			}
		}
		c.log.Error("oracle call failed", "error", err)
		return domain.Hypothesis{
			Text:      fallbackText(bundle.Anomalies),
			RiskScore: clamp01(0.5 + 0.1*float64(len(bundle.Anomalies))),
			Source:    domain.SourceFallback,
		}
	}
	return domain.Hypothesis{
		Text:      result.Hypothesis,
		RiskScore: clamp01(result.Severity),
		Source:    domain.SourceOracle,
	}
}

func fallbackText(anomalies []domain.Anomaly) string {
	if len(anomalies) == 0 {
		return "Reasoning unavailable; no anomalies on record"
	}
	return fmt.Sprintf("Anomaly detected: %s", anomalies[0].Message)
}

// highestPrediction returns the bank with the largest predicted risk at or
// above the threshold. Iteration over the map is made deterministic by
// breaking ties on bank name.
func highestPrediction(predictions map[string]domain.FailurePrediction, threshold float64) (string, domain.FailurePrediction, bool) {
	names := make([]string, 0, len(predictions))
	for name := range predictions {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		bestName string
		best     domain.FailurePrediction
		found    bool
	)
	for _, name := range names {
		p := predictions[name]
		if p.Risk > threshold && (!found || p.Risk > best.Risk) {
			bestName, best, found = name, p, true
		}
	}
	return bestName, best, found
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
