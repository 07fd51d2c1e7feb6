package telemetry

import (
	"context"
	"time"

	"github.com/petasbytes/autotriage/internal/metrics"
)

// base collects the ids carried by ctx.
func base(ctx context.Context) map[string]any {
	m := map[string]any{}
	if id, ok := TurnIDFromContext(ctx); ok {
		m["turn_id"] = id
	}
	if id, ok := ProblemIDFromContext(ctx); ok {
		m["problem_id"] = id
	}
	return m
}

func errField(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

// ModelCall records one model round-trip by response size only.
func ModelCall(ctx context.Context, model string, modelCalls int, response string, d time.Duration, err error) {
	if !ObserveEnabled() {
		return
	}
	m := base(ctx)
	for k, v := range metrics.CountFeatures(response).Fields("response") {
		m[k] = v
	}
	m["model"] = model
	m["model_calls"] = modelCalls
	m["duration_ms"] = d.Milliseconds()
	m["error"] = errField(err)
	Emit("model_call", m)
}

// ToolExec records one tool dispatch. errStr is a short category, not the
// raw error, to avoid leaking payloads.
func ToolExec(ctx context.Context, tool string, d time.Duration, inputSize, outputSize int, errStr string) {
	if !ObserveEnabled() {
		return
	}
	m := base(ctx)
	m["tool_name"] = tool
	m["duration_ms"] = d.Milliseconds()
	m["input_size"] = inputSize
	m["output_size"] = outputSize
	if errStr != "" {
		m["error"] = errStr
	} else {
		m["error"] = nil
	}
	Emit("tool_exec", m)
}

// WindowEstimate records the estimated conversation size before a model call.
func WindowEstimate(ctx context.Context, total, budget int) {
	if !ObserveEnabled() {
		return
	}
	m := base(ctx)
	m["total_estimated"] = total
	m["budget"] = budget
	m["over_budget"] = budget > 0 && total > budget
	Emit("window_estimate", m)
}

// AnalysisDone records the terminal state of one problem.
func AnalysisDone(ctx context.Context, state string, modelCalls, steps int, failed bool) {
	if !ObserveEnabled() {
		return
	}
	m := base(ctx)
	m["state"] = state
	m["model_calls"] = modelCalls
	m["steps"] = steps
	m["analysis_failed"] = failed
	Emit("analysis_done", m)
}
