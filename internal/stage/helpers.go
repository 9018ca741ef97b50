package stage

import (
	"errors"
	"fmt"

	"archivist/internal/ledger"
)

// StepError tags a pipeline failure with the ledger stage and the step
// that produced it.
type StepError struct {
	Stage ledger.Stage
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Fail wraps err as a StepError. A nil err stays nil.
func Fail(stage ledger.Stage, step string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Stage: stage, Step: step, Err: err}
}

// StageOf returns the ledger stage carried by err, or StageOther.
func StageOf(err error) ledger.Stage {
	var stepErr *StepError
	if errors.As(err, &stepErr) && stepErr.Stage != "" {
		return stepErr.Stage
	}
	return ledger.StageOther
}

// StepOf returns the step name carried by err.
func StepOf(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return ""
}
