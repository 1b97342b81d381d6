package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var ErrNoSteps = errors.New("pipeline: no steps to run")

type RunnerOption func(r *Runner)

// Runner executes steps in Order, feeding each output into the next input.
type Runner struct {
	steps []Step
	mdls  []Middleware
}

func NewRunner(steps []Step, opts ...RunnerOption) *Runner {
	res := &Runner{
		steps: Sort(steps),
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// RunnerWithMiddleware wraps every step execution, first middleware outermost.
func RunnerWithMiddleware(mdls ...Middleware) RunnerOption {
	return func(r *Runner) {
		r.mdls = mdls
	}
}

// Steps returns the steps in execution order.
func (r *Runner) Steps() []Step {
	res := make([]Step, len(r.steps))
	copy(res, r.steps)
	return res
}

// Run stops at the first failing step and returns its error wrapped with the
// step name. A done ctx is checked before every step.
func (r *Runner) Run(ctx context.Context, input any) (any, error) {
	if len(r.steps) == 0 {
		return nil, ErrNoSteps
	}
	var root Handler = execute
	for i := len(r.mdls) - 1; i >= 0; i-- {
		root = r.mdls[i](root)
	}

	val := input
	for i, step := range r.steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline: before step %q: %w", step.Name(), err)
		}
		res := root(ctx, &StepContext{Step: step, Index: i, Input: val})
		if res.Err != nil {
			return nil, fmt.Errorf("pipeline: step %q: %w", step.Name(), res.Err)
		}
		val = res.Output
	}
	return val, nil
}

func execute(ctx context.Context, sc *StepContext) *StepResult {
	out, err := sc.Step.Execute(ctx, sc.Input)
	return &StepResult{Output: out, Err: err}
}

// Sort returns a copy of steps ordered by Order. Steps sharing an Order keep
// their relative position.
func Sort(steps []Step) []Step {
	res := make([]Step, len(steps))
	copy(res, steps)
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Order() < res[j].Order()
	})
	return res
}
