package contract

import "errors"

var (
	ErrInitialization         = errors.New("agent initialization failed")
	ErrNotImplemented         = errors.New("execute is not implemented")
	ErrUnregisteredCapability = errors.New("capability is not registered")
	ErrCapabilityConflict     = errors.New("capability is already registered")
	ErrUnknownGoal            = errors.New("goal is not defined")
	ErrExecution              = errors.New("step execution failed")
	ErrIO                     = errors.New("state io failed")
	ErrFormat                 = errors.New("state format is invalid")

	ErrValidation  = errors.New("validation failed")
	ErrModelInvoke = errors.New("model invoke failed")
	ErrModelAbsent = errors.New("model is not configured")
	ErrProvider    = errors.New("provider request failed")
)
