// Package cost tracks token usage and USD cost for the external model calls
// stage 3 (web-research workers), stage 7 (validator) and stage 9
// (aggregator) make, against a static per-model pricing table.
package cost

import (
	"fmt"
	"sync"
	"time"
)

// ModelPricing is USD cost per 1M tokens.
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// defaultPricing covers the chat and research models the pipeline's
// provider adapters are wired to (providers/chat, providers/webresearch).
var defaultPricing = map[string]ModelPricing{
	"gpt-4o":                     {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":                {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4-turbo":                {InputPer1M: 10.00, OutputPer1M: 30.00},
	"claude-3-5-sonnet-20241022": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-5-haiku-20241022":  {InputPer1M: 0.80, OutputPer1M: 4.00},
	"claude-3-opus-20240229":     {InputPer1M: 15.00, OutputPer1M: 75.00},
	"gemini-1.5-pro":             {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-flash":           {InputPer1M: 0.075, OutputPer1M: 0.30},
}

// Call records a single external model invocation.
type Call struct {
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Timestamp    time.Time
	StageID      string
}

// Tracker accumulates cost across a single run. Safe for concurrent use by
// stage 3 workers and the aggregator.
type Tracker struct {
	RunID    string
	Currency string

	mu         sync.RWMutex
	pricing    map[string]ModelPricing
	calls      []Call
	totalCost  float64
	byModel    map[string]float64
	inputToks  int64
	outputToks int64
}

// New returns a Tracker seeded with the default pricing table.
func New(runID string) *Tracker {
	return &Tracker{
		RunID:    runID,
		Currency: "USD",
		pricing:  defaultPricing,
		calls:    make([]Call, 0, 16),
		byModel:  make(map[string]float64),
	}
}

// Record logs one model call and returns its computed cost. An unrecognized
// model is recorded at zero cost rather than rejected, so a newly onboarded
// model never blocks a run.
func (t *Tracker) Record(stageID, model string, inputTokens, outputTokens int) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	pricing := t.pricing[model] // zero value if absent: zero cost
	inputCost := float64(inputTokens) / 1_000_000 * pricing.InputPer1M
	outputCost := float64(outputTokens) / 1_000_000 * pricing.OutputPer1M
	total := inputCost + outputCost

	t.calls = append(t.calls, Call{
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      total,
		StageID:      stageID,
	})
	t.totalCost += total
	t.byModel[model] += total
	t.inputToks += int64(inputTokens)
	t.outputToks += int64(outputTokens)

	return total
}

// TotalCost returns the run's cumulative cost.
func (t *Tracker) TotalCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalCost
}

// ByModel returns a copy of the per-model cost breakdown.
func (t *Tracker) ByModel() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.byModel))
	for k, v := range t.byModel {
		out[k] = v
	}
	return out
}

// TokenUsage returns cumulative input/output token counts.
func (t *Tracker) TokenUsage() (input, output int64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.inputToks, t.outputToks
}

func (t *Tracker) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return fmt.Sprintf("cost.Tracker{run=%s calls=%d total=$%.4f %s}", t.RunID, len(t.calls), t.totalCost, t.Currency)
}
