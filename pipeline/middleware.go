package pipeline

import "context"

// StepContext describes the step about to run.
type StepContext struct {
	Step Step
	// Index is the position of the step after sorting.
	Index int
	Input any
}

type StepResult struct {
	Output any
	Err    error
}

type Handler func(ctx context.Context, sc *StepContext) *StepResult

type Middleware func(next Handler) Handler
