// Package pipeline models ordered processing steps and runs them in sequence.
package pipeline

import "context"

// Step is one unit of a pipeline. Steps with a lower Order run first.
type Step interface {
	Order() int
	Name() string
	// Execute transforms input into output. Implementations should return
	// promptly once ctx is done.
	Execute(ctx context.Context, input any) (any, error)
}

// BaseStep carries the order and name of a step. Embed it and implement
// Execute.
type BaseStep struct {
	order int
	name  string
}

func NewBaseStep(order int, name string) BaseStep {
	return BaseStep{order: order, name: name}
}

func (b BaseStep) Order() int {
	return b.order
}

func (b BaseStep) Name() string {
	return b.name
}

var _ Step = StepFunc{}

// StepFunc adapts a function into a Step.
type StepFunc struct {
	BaseStep
	Fn func(ctx context.Context, input any) (any, error)
}

func NewStepFunc(order int, name string, fn func(ctx context.Context, input any) (any, error)) StepFunc {
	return StepFunc{BaseStep: NewBaseStep(order, name), Fn: fn}
}

func (s StepFunc) Execute(ctx context.Context, input any) (any, error) {
	return s.Fn(ctx, input)
}
