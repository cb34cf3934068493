package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound      = errors.New("resource not found")
	ErrRunNotFound   = fmt.Errorf("%w: run", ErrNotFound)
	ErrStudyNotFound = fmt.Errorf("%w: study", ErrNotFound)

	// Parameter validation errors
	ErrInvalidParameter = errors.New("invalid simulation parameter")
	ErrInvalidPoolSize  = fmt.Errorf("%w: species pool size must be positive", ErrInvalidParameter)
	ErrInvalidTotal     = fmt.Errorf("%w: individual count must be positive", ErrInvalidParameter)
	ErrInvalidShape     = fmt.Errorf("%w: abundance shape must be positive", ErrInvalidParameter)
	ErrInvalidGrain     = fmt.Errorf("%w: quadrat grain must be positive", ErrInvalidParameter)
	ErrInvalidQuadrats  = fmt.Errorf("%w: quadrat count must be positive", ErrInvalidParameter)

	// Metric errors
	ErrUndefinedMetric   = errors.New("metric undefined for sample")
	ErrUndefinedLogRatio = errors.New("log-ratio effect size undefined")
	ErrEmptySample       = errors.New("sample contains no individuals")

	// Standardization errors
	ErrRarefactionTarget = errors.New("rarefaction target exceeds sample total")
	ErrNoSamples         = errors.New("no samples available for standardization")

	// Determinism errors
	ErrSeedMismatch = errors.New("seed mismatch")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewParameterError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidParameter, field, reason)
}

func NewRarefactionError(target, total int) error {
	return fmt.Errorf("%w: target %d > total %d", ErrRarefactionTarget, target, total)
}

func NewUndefinedMetricError(metric string, reason string) error {
	return fmt.Errorf("%w: %s (%s)", ErrUndefinedMetric, metric, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsParameterError(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}

func IsUndefinedMetricError(err error) bool {
	return errors.Is(err, ErrUndefinedMetric) ||
		errors.Is(err, ErrUndefinedLogRatio)
}

func IsStandardizationError(err error) bool {
	return errors.Is(err, ErrRarefactionTarget) ||
		errors.Is(err, ErrNoSamples)
}
