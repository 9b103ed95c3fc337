package pipeline

import "errors"

var (
	ErrUnknownStage  = errors.New("unknown stage")
	ErrTerminalState = errors.New("lead is in a terminal stage")
	ErrNotTerminal   = errors.New("only closed leads can be reopened")
	ErrLeadNotFound  = errors.New("lead not found")
	ErrNothingToRun  = errors.New("lead has no pending automations")

	// ErrPersistence wraps any failure of the Store. It is returned for the
	// stage write and reported as a warning afterwards.
	ErrPersistence = errors.New("persistence failure")
	// ErrVersionConflict is returned by Store.UpdateLeadStage when the lead
	// changed since it was read.
	ErrVersionConflict = errors.New("lead was modified concurrently")

	ErrAutomationAction = errors.New("automation action failed")
	ErrUnknownAction    = errors.New("unknown automation action")
)
