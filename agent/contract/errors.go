package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrInterpretation  = errors.New("request interpretation failed")
	ErrSessionState    = errors.New("session state corrupt")
	ErrValidation      = errors.New("validation failed")
)
