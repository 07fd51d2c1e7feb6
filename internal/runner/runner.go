package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/petasbytes/autotriage/internal/availability"
	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/executor"
	"github.com/petasbytes/autotriage/internal/logging"
	"github.com/petasbytes/autotriage/internal/provider"
	"github.com/petasbytes/autotriage/internal/sanitize"
	"github.com/petasbytes/autotriage/internal/telemetry"
	"github.com/petasbytes/autotriage/internal/triage"
	"github.com/petasbytes/autotriage/internal/windowing"
	"github.com/petasbytes/autotriage/tools"
)

// State is the terminal state of one run.
type State string

const (
	StateIterating        State = "iterating"
	StateConcluded        State = "concluded"
	StateForcedConclusion State = "forced_conclusion"
	StateFailed           State = "failed"
)

// Defaults applied to zero Options.
const (
	DefaultMaxIterations      = 5
	DefaultToolResultMaxRunes = 12000
	rawPreviewRunes           = 500
)

type Options struct {
	MaxIterations      int
	ContextBudget      int // estimated tokens; exceeding it only warns
	ToolResultMaxRunes int
	Model              string // recorded in telemetry
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.ToolResultMaxRunes <= 0 {
		o.ToolResultMaxRunes = DefaultToolResultMaxRunes
	}
	return o
}

// Result is everything one run produced.
type Result struct {
	Verdict    triage.Verdict
	Steps      []triage.Step
	Messages   []provider.Message
	ModelCalls int
	State      State
}

// Runner investigates problems one at a time. It holds no per-problem state;
// each Analyze call builds its own conversation, checker and executor.
type Runner struct {
	client provider.Client
	reg    *tools.Registry
	env    tools.Env
	opts   Options
	log    zerolog.Logger
}

func New(client provider.Client, reg *tools.Registry, env tools.Env, opts Options) *Runner {
	return &Runner{
		client: client,
		reg:    reg,
		env:    env.WithDefaults(),
		opts:   opts.withDefaults(),
		log:    logging.With("runner"),
	}
}

// run is the mutable state of one Analyze call.
type run struct {
	*Runner
	problem   triage.Problem
	log       zerolog.Logger
	exec      *executor.Executor
	names     []string
	msgs      []provider.Message
	steps     []triage.Step
	reasoning []string
	calls     int
	corrected bool
}

// Analyze investigates p and always returns a Result with a Verdict. The
// error is non-nil only for failures that will repeat for every problem
// (non-retryable model errors, a cancelled context); the Result then carries a
// fallback verdict.
func (r *Runner) Analyze(ctx context.Context, p triage.Problem) (Result, error) {
	ctx = telemetry.WithProblemID(ctx, p.ID)
	st := &run{
		Runner:  r,
		problem: p,
		log:     r.log.With().Str("problem_id", p.ID).Logger(),
	}

	// INIT
	checker := availability.New(r.env.WorkspaceRoot, r.env.InputDir)
	available := checker.Filter(r.reg.Definitions())
	runReg, err := tools.NewRegistry(available...)
	if err != nil {
		return st.fail(ctx, "tool catalog could not be built: "+err.Error()), nil
	}
	st.exec = executor.New(runReg, r.env)
	st.names = runReg.Names()
	st.msgs = []provider.Message{
		{Role: provider.RoleSystem, Content: systemPrompt},
		{Role: provider.RoleUser, Content: userPrompt(p, available, r.opts.MaxIterations, r.opts.ToolResultMaxRunes)},
	}
	st.log.Info().Int("tools", len(available)).Int("max_iterations", r.opts.MaxIterations).Msg("analysis started")

	// ITERATING
	for iter := 1; iter <= r.opts.MaxIterations; iter++ {
		st.log.Debug().Int("iteration", iter).Msg("iteration start")
		raw, err := st.query(ctx, iter)
		if err != nil {
			return st.modelFailure(ctx, iter, err)
		}

		obj, err := sanitize.Parse(raw)
		if err != nil {
			st.reply(raw)
			return st.parseFailure(ctx, iter, raw, "Failed to parse model response as JSON: "+err.Error()), nil
		}
		call, ok := asToolCall(obj.Object)
		if !ok {
			st.reply(raw)
			return st.parseFailure(ctx, iter, raw, `Model response is not a tool call (missing "tool" key)`), nil
		}
		if call.Reasoning != "" {
			st.reasoning = append(st.reasoning, call.Reasoning)
		}

		if call.Tool == tools.ConclusionTool {
			params, renamed := renameFields(call.Params)
			if len(renamed) > 0 {
				st.log.Debug().Strs("renamed", renamed).Msg("conclusion fields renamed")
			}
			missing := triage.MissingConclusionFields(params)
			if len(missing) > 0 && !st.corrected {
				st.corrected = true
				st.log.Warn().Strs("missing", missing).Msg("incomplete conclusion, requesting correction")
				msg := missingFieldsMessage(missing)
				st.steps = append(st.steps, triage.Step{
					Iteration: iter, Action: triage.ActionConclusionIncomplete, Tool: call.Tool,
					Parameters: params, Message: msg,
				})
				st.exchange(raw, msg)
				continue
			}
			st.reply(raw)
			return st.conclude(ctx, iter, triage.ActionConclusion, StateConcluded, params), nil
		}

		if _, ok := runReg.Get(call.Tool); !ok {
			msg := unknownToolMessage(call.Tool, st.names, r.opts.MaxIterations-iter)
			st.log.Warn().Str("tool", call.Tool).Msg("unknown tool requested")
			st.steps = append(st.steps, triage.Step{
				Iteration: iter, Action: triage.ActionUnknownTool, Tool: call.Tool,
				Parameters: call.Params, Message: msg,
			})
			st.exchange(raw, msg)
			continue
		}

		st.dispatch(ctx, iter, raw, call)
	}

	// FORCED_CONCLUSION
	return st.force(ctx)
}

// query sends the conversation once and records telemetry.
func (st *run) query(ctx context.Context, iter int) (string, error) {
	ctx = telemetry.WithTurnID(ctx, fmt.Sprintf("%s#%d", st.problem.ID, iter))

	stats := windowing.Estimate(st.msgs, st.opts.ContextBudget, windowing.HeuristicCounter{})
	telemetry.WindowEstimate(ctx, stats.Total, stats.Budget)
	if stats.OverBudget {
		st.log.Warn().Int("total_estimated", stats.Total).Int("budget", stats.Budget).
			Msg("conversation exceeds context budget")
	}

	start := time.Now()
	st.calls++
	raw, err := st.client.Complete(ctx, st.msgs)
	telemetry.ModelCall(ctx, st.opts.Model, st.calls, raw, time.Since(start), err)
	return raw, err
}

// dispatch executes a known tool and feeds its result back.
func (st *run) dispatch(ctx context.Context, iter int, raw string, call toolCall) {
	st.log.Debug().Str("tool", call.Tool).Msg("dispatching tool")
	res, err := st.exec.Execute(ctx, call.Tool, call.Params)

	action := triage.ActionToolCall
	if errs.HasCode(err, errs.CodeToolParamsInvalid) {
		action = triage.ActionInvalidParams
	}
	st.steps = append(st.steps, triage.Step{
		Iteration: iter, Action: action, Tool: call.Tool, Parameters: call.Params, Result: res,
	})

	body, mErr := json.MarshalIndent(res, "", "  ")
	if mErr != nil {
		body = []byte(fmt.Sprintf(`{"success": false, "error": %q}`, "result not serializable: "+mErr.Error()))
	}
	clamped, cut := windowing.Clamp(string(body), st.opts.ToolResultMaxRunes)
	if cut {
		st.log.Debug().Str("tool", call.Tool).Int("max_runes", st.opts.ToolResultMaxRunes).Msg("tool result clamped")
	}
	st.exchange(raw, toolResultMessage(call.Tool, clamped, st.opts.MaxIterations-iter))
}

// force issues the single extra conclude-now call.
func (st *run) force(ctx context.Context) (Result, error) {
	iter := st.opts.MaxIterations + 1
	st.log.Info().Int("iterations", st.opts.MaxIterations).Msg("no conclusion yet, forcing one")
	st.msgs = append(st.msgs, provider.Message{Role: provider.RoleUser, Content: forcedConclusionMessage(st.opts.MaxIterations)})

	raw, err := st.query(ctx, iter)
	if err != nil {
		return st.modelFailure(ctx, iter, err)
	}
	st.reply(raw)

	obj, err := sanitize.Parse(raw)
	if err != nil {
		return st.parseFailure(ctx, iter, raw, fmt.Sprintf(
			"No valid conclusion after %d iterations; forced conclusion unparseable: %v", st.opts.MaxIterations, err)), nil
	}

	var params map[string]any
	if call, ok := asToolCall(obj.Object); ok {
		if call.Tool != tools.ConclusionTool {
			return st.parseFailure(ctx, iter, raw, fmt.Sprintf(
				"No valid conclusion after %d iterations; forced reply called %s", st.opts.MaxIterations, call.Tool)), nil
		}
		if call.Reasoning != "" {
			st.reasoning = append(st.reasoning, call.Reasoning)
		}
		params = call.Params
	} else if looksLikeConclusion(obj.Object) {
		params = obj.Object
	} else {
		return st.parseFailure(ctx, iter, raw, fmt.Sprintf(
			"No valid conclusion after %d iterations; forced reply is not a tool call", st.opts.MaxIterations)), nil
	}

	params, _ = renameFields(params)
	return st.conclude(ctx, iter, triage.ActionForcedConclusion, StateForcedConclusion, params), nil
}

// conclude turns conclusion parameters into the final verdict. Missing fields
// are defaulted and listed in the verdict's limitations.
func (st *run) conclude(ctx context.Context, iter int, action string, state State, params map[string]any) Result {
	v, filled := triage.NewVerdict(st.problem, params)
	if len(filled) > 0 {
		st.log.Warn().Strs("defaulted", filled).Msg("conclusion accepted with defaults")
	}
	st.steps = append(st.steps, triage.Step{
		Iteration: iter, Action: action, Tool: tools.ConclusionTool, Parameters: params,
	})
	v.Reasoning = append([]string{}, st.reasoning...)
	v.Steps = st.steps
	st.log.Info().Str("state", string(state)).Bool("applicable", v.IsApplicable).
		Str("severity", string(v.Severity)).Int("model_calls", st.calls).Msg("analysis concluded")
	return st.finish(ctx, v, state)
}

func (st *run) parseFailure(ctx context.Context, iter int, raw, reason string) Result {
	st.log.Warn().Int("iteration", iter).Str("reason", reason).Msg("falling back")
	st.steps = append(st.steps, triage.Step{
		Iteration: iter, Action: triage.ActionParseFailure, Message: reason,
		Result: map[string]any{"raw_response": preview(raw)},
	})
	return st.fail(ctx, reason)
}

// modelFailure ends the run after the client gave up. Non-retryable and
// cancellation errors are returned so the caller can stop the batch.
func (st *run) modelFailure(ctx context.Context, iter int, err error) (Result, error) {
	reason := "Model query failed: " + err.Error()
	st.log.Error().Err(err).Int("iteration", iter).Msg("model query failed")
	st.steps = append(st.steps, triage.Step{Iteration: iter, Action: triage.ActionModelError, Message: reason})
	res := st.fail(ctx, reason)
	if errs.HasCode(err, errs.CodeProviderAuthInvalid) || ctx.Err() != nil {
		return res, err
	}
	return res, nil
}

func (st *run) fail(ctx context.Context, reason string) Result {
	v := triage.FallbackVerdict(st.problem, reason)
	v.Reasoning = append([]string{}, st.reasoning...)
	v.Steps = st.steps
	return st.finish(ctx, v, StateFailed)
}

func (st *run) finish(ctx context.Context, v triage.Verdict, state State) Result {
	telemetry.AnalysisDone(ctx, string(state), st.calls, len(st.steps), v.AnalysisFailed)
	return Result{
		Verdict:    v,
		Steps:      st.steps,
		Messages:   st.msgs,
		ModelCalls: st.calls,
		State:      state,
	}
}

func (st *run) reply(raw string) {
	st.msgs = append(st.msgs, provider.Message{Role: provider.RoleAssistant, Content: raw})
}

// exchange appends the model's raw reply and our answer to it.
func (st *run) exchange(raw, reply string) {
	st.msgs = append(st.msgs,
		provider.Message{Role: provider.RoleAssistant, Content: raw},
		provider.Message{Role: provider.RoleUser, Content: reply},
	)
}

func preview(s string) string {
	clamped, _ := windowing.Clamp(s, rawPreviewRunes)
	return clamped
}
