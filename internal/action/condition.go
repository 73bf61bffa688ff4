package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/expr-lang/expr"

	"formhub-backend/internal/model"
)

// DefaultConditionTimeout bounds custom condition scripts.
const DefaultConditionTimeout = 500 * time.Millisecond

// ConditionEvaluator decides per invocation whether an action's optional
// condition permits execution. It never returns an error: any internal fault
// resolves to false ("do not execute"). Fail-closed, unlike the ownership
// default in the permission evaluator.
type ConditionEvaluator struct {
	Timeout time.Duration
}

func NewConditionEvaluator(timeout time.Duration) *ConditionEvaluator {
	if timeout <= 0 {
		timeout = DefaultConditionTimeout
	}
	return &ConditionEvaluator{Timeout: timeout}
}

// ShouldExecute applies the action's condition against the request's
// submission data. Custom scripts take precedence over the declarative form;
// no condition, or a vacuous one, means execute.
func (e *ConditionEvaluator) ShouldExecute(ctx context.Context, a *model.Action, data map[string]any) bool {
	cond := a.Condition
	if cond == nil {
		return true
	}

	if cond.Custom != "" {
		ok, err := e.runCustom(ctx, cond.Custom, data)
		if err != nil {
			log.Printf("WARN: action %s (%s) condition script failed, skipping: %v", a.ID, a.Name, err)
			return false
		}
		return ok
	}

	// Declarative comparison. Any missing piece makes the condition vacuous.
	if cond.Field == "" || cond.Eq == "" || cond.Value == nil {
		return true
	}
	got := fmt.Sprintf("%v", data[cond.Field])
	want := fmt.Sprintf("%v", cond.Value)
	switch cond.Eq {
	case "equals":
		return got == want
	case "notEqual":
		return got != want
	default:
		return true
	}
}

// runCustom evaluates the script as a boolean expression over an immutable
// copy of the submission data, inside a wall-clock bound. The expression has
// exactly one binding, "data"; its boolean result is the execute flag.
func (e *ConditionEvaluator) runCustom(ctx context.Context, script string, data map[string]any) (bool, error) {
	prog, err := expr.Compile(script, expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile condition: %w", err)
	}

	env := map[string]any{"data": copyData(data)}

	type outcome struct {
		ok  bool
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("condition panicked: %v", r)}
			}
		}()
		result, err := expr.Run(prog, env)
		if err != nil {
			done <- outcome{err: fmt.Errorf("evaluate condition: %w", err)}
			return
		}
		ok, isBool := result.(bool)
		if !isBool {
			done <- outcome{err: fmt.Errorf("condition did not return bool")}
			return
		}
		done <- outcome{ok: ok}
	}()

	timer := time.NewTimer(e.Timeout)
	defer timer.Stop()
	select {
	case out := <-done:
		return out.ok, out.err
	case <-timer.C:
		return false, fmt.Errorf("condition timed out after %s", e.Timeout)
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// copyData deep-copies the data map so a condition script can never observe
// or affect mutations made by concurrently dispatched work.
func copyData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}
