// Package sandbox provides the resource-bounded execution environment for
// plugin code. Limits are enforced per execution, never shared, so one
// runaway plugin cannot starve another node's sandbox.
package sandbox

import (
	"errors"
	"fmt"
)

// Limit identifiers reported on violations.
const (
	LimitMemory     = "memory_mb"
	LimitCPU        = "cpu_s"
	LimitWallClock  = "wall_clock_s"
	LimitFilesystem = "filesystem"
	LimitNetwork    = "network"
)

// Violation reports which sandbox limit an execution breached. It is always
// fatal to the current attempt; the executor's retry policy sits above it.
type Violation struct {
	Limit    string  // which limit was breached
	Ceiling  float64 // the configured ceiling
	Observed float64 // the observed value at termination
}

func (v *Violation) Error() string {
	return fmt.Sprintf("sandbox violation: %s limit exceeded (ceiling %.2f, observed %.2f)", v.Limit, v.Ceiling, v.Observed)
}

// AsViolation unwraps err to a *Violation if it is one.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}

	return nil, false
}
