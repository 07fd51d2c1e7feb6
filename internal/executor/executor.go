// Package executor dispatches tool calls by name at the validation boundary.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/logging"
	"github.com/petasbytes/autotriage/internal/telemetry"
	"github.com/petasbytes/autotriage/tools"
)

// Executor runs tools from one registry against one run's environment.
type Executor struct {
	reg *tools.Registry
	env tools.Env
}

func New(reg *tools.Registry, env tools.Env) *Executor {
	return &Executor{reg: reg, env: env.WithDefaults()}
}

// Env returns the environment tools run against.
func (e *Executor) Env() tools.Env { return e.env }

// Execute runs the named tool and always returns a result map carrying a
// boolean "success". Failures never escape as panics: an unknown name,
// invalid parameters, a tool error or a panic become {success:false, error}.
// The returned error classifies dispatch failures (errs.CodeToolNotFound,
// errs.CodeToolParamsInvalid) for callers that react to them; it is nil when
// the tool ran, even if the tool itself reported failure.
func (e *Executor) Execute(ctx context.Context, name string, params map[string]any) (tools.Result, error) {
	start := time.Now()
	inSize := 0
	if b, err := json.Marshal(params); err == nil {
		inSize = len(b)
	}
	log := logging.With("executor")

	def, ok := e.reg.Get(name)
	if !ok {
		telemetry.ToolExec(ctx, name, time.Since(start), inSize, 0, "tool not found")
		return tools.Result{"success": false, "error": "Unknown tool: " + name},
			errs.New(errs.CodeToolNotFound, "unknown tool: "+name, errs.FieldTool(name))
	}

	input, err := def.Validate(params)
	if err != nil {
		telemetry.ToolExec(ctx, name, time.Since(start), inSize, 0, "invalid params")
		return tools.Result{"success": false, "error": err.Error()}, err
	}

	res := e.run(ctx, def, input)
	if _, ok := res["success"]; !ok {
		res["success"] = true
	}

	outSize := 0
	if b, err := json.Marshal(res); err == nil {
		outSize = len(b)
	}
	errStr := ""
	if s, _ := res["success"].(bool); !s {
		errStr = "tool error"
	}
	telemetry.ToolExec(ctx, name, time.Since(start), len(input), outSize, errStr)
	log.Debug().Str("tool", name).Dur("took", time.Since(start)).Bool("success", errStr == "").Msg("tool executed")
	return res, nil
}

func (e *Executor) run(ctx context.Context, def tools.ToolDefinition, input json.RawMessage) (res tools.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = tools.Result{"success": false, "error": fmt.Sprintf("Tool execution failed: panic: %v", r)}
		}
	}()
	out, err := def.Function(ctx, e.env, input)
	if err != nil {
		return tools.Result{"success": false, "error": "Tool execution failed: " + err.Error()}
	}
	if out == nil {
		out = tools.Result{}
	}
	return out
}
