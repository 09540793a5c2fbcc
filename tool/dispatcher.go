package tool

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/A-calculus/personalisedU/internal/schema"
	"github.com/A-calculus/personalisedU/logging"
	"github.com/A-calculus/personalisedU/model"
)

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Logger logging.Logger
}

// Dispatcher resolves tool invocations against a registry, executes them and
// normalizes every outcome into a Result. Executor failures and panics are
// downgraded to failed Results so one broken tool never aborts its siblings;
// only an invocation naming an unregistered tool surfaces as an error.
type Dispatcher struct {
	registry *Registry
	logger   logging.Logger
}

// NewDispatcher constructs a Dispatcher over the given registry.
func NewDispatcher(registry *Registry, optFns ...func(o *DispatcherOptions)) *Dispatcher {
	opts := DispatcherOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{registry: registry, logger: opts.Logger}
}

// Dispatch executes a single invocation. The returned error is non-nil only
// for an unknown tool name; every execution-level failure is reported inside
// the Result.
func (d *Dispatcher) Dispatch(toolCtx *ToolContext, call model.ToolCall) (Result, error) {
	t, ok := d.registry.Lookup(call.Name)
	if !ok {
		d.logger.Warn("tool.dispatch.unknown", "tool", call.Name)
		return Result{}, &UnknownToolError{Name: call.Name}
	}

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if err := schema.CheckRequired(args, t.Parameters()); err != nil {
		return Result{Success: false, Message: err.Error()}, nil
	}

	start := time.Now()
	res := d.invoke(t, toolCtx, args)
	d.logger.Info("tool.dispatch.settled",
		"tool", call.Name,
		"conversation", toolCtx.ConversationKey,
		"success", res.Success,
		"duration", time.Since(start).String())
	return res, nil
}

// invoke runs the executor behind a panic recovery boundary.
func (d *Dispatcher) invoke(t Tool, toolCtx *ToolContext, args map[string]any) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool.dispatch.panic", "tool", t.Name(), "panic", fmt.Sprint(r))
			res = Result{Success: false, Message: fmt.Sprintf("tool %s panicked: %v", t.Name(), r)}
		}
	}()

	out, err := t.Call(toolCtx, args)
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	if out == nil {
		return Result{Success: false, Message: fmt.Sprintf("tool %s returned no result", t.Name())}
	}
	return *out
}

// Settled is the outcome of one dispatched invocation. Err is set only for an
// unknown tool.
type Settled struct {
	Call   model.ToolCall
	Result Result
	Err    error
}

// DispatchAll fans the invocations out concurrently and collects outcomes in
// completion order, which is the order they are reported and returned in.
// onSettled, when non-nil, is called once per outcome from the collecting
// goroutine, so it needs no locking of its own. DispatchAll returns after
// every invocation has settled.
func (d *Dispatcher) DispatchAll(toolCtx *ToolContext, calls []model.ToolCall, onSettled func(Settled)) []Settled {
	if len(calls) == 0 {
		return nil
	}

	results := make(chan Settled, len(calls))
	var wg sync.WaitGroup
	for _, call := range calls {
		wg.Add(1)
		go func(call model.ToolCall) {
			defer wg.Done()
			res, err := d.Dispatch(toolCtx, call)
			results <- Settled{Call: call, Result: res, Err: err}
		}(call)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	settled := make([]Settled, 0, len(calls))
	for s := range results {
		if onSettled != nil {
			onSettled(s)
		}
		settled = append(settled, s)
	}
	return settled
}

// decodeArguments tolerates absent, empty and null argument payloads, all of
// which mean "no arguments".
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
