package stats

import (
	"errors"
	"fmt"

	"anovadash/domain/core"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrInsufficientGroupSize = errors.New("insufficient group size")
	ErrDegeneratePair        = errors.New("degenerate post-hoc pair")
	ErrModelFit              = errors.New("model fit failed")
)

// InsufficientGroupSizeError reports a category with too few observations
// for variance estimation. Fatal for the variable being analysed.
type InsufficientGroupSizeError struct {
	Variable core.VariableKey
	Group    string
	Size     int
	Required int
}

func (e *InsufficientGroupSizeError) Error() string {
	return fmt.Sprintf("%s: group %q has %d observation(s), need at least %d",
		e.Variable, e.Group, e.Size, e.Required)
}

func (e *InsufficientGroupSizeError) Is(target error) bool {
	return target == ErrInsufficientGroupSize
}

// DegeneratePairError marks a single post-hoc pair that could not be estimated.
type DegeneratePairError struct {
	GroupA string
	GroupB string
	Reason string
}

func (e *DegeneratePairError) Error() string {
	return fmt.Sprintf("pair %s - %s omitted: %s", e.GroupA, e.GroupB, e.Reason)
}

func (e *DegeneratePairError) Is(target error) bool {
	return target == ErrDegeneratePair
}

// ModelFitError is returned when the underlying linear model cannot be fitted
// (too few groups, rank-deficient design, zero residual variance).
type ModelFitError struct {
	Variable core.VariableKey
	Reason   string
	Cause    error
}

func (e *ModelFitError) Error() string {
	msg := fmt.Sprintf("%s: model fit failed: %s", e.Variable, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ModelFitError) Is(target error) bool {
	return target == ErrModelFit
}

func (e *ModelFitError) Unwrap() error {
	return e.Cause
}

// IsVariableScoped reports whether err should skip one variable rather than
// abort the whole analysis.
func IsVariableScoped(err error) bool {
	return errors.Is(err, ErrInsufficientGroupSize) || errors.Is(err, ErrModelFit)
}
