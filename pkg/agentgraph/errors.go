package agentgraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when an operation references an unregistered agent.
	ErrNotFound = errors.New("agent not found")

	// ErrAlreadyExists is returned when an agent ID is registered twice.
	ErrAlreadyExists = errors.New("agent already exists")

	// ErrInvalidAgent is returned for malformed registrations, such as an empty ID.
	ErrInvalidAgent = errors.New("invalid agent")

	// ErrSelfDependency is returned when an agent is made to depend on itself.
	ErrSelfDependency = errors.New("agent cannot depend on itself")

	// ErrCycleDetected is matched by *CycleError.
	ErrCycleDetected = errors.New("circular dependency detected")
)

// CycleError reports that no execution order exists.
// Cycle lists one offending cycle; the last agent depends on the first.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return ErrCycleDetected.Error()
	}
	return fmt.Sprintf("%s: %s -> %s", ErrCycleDetected, strings.Join(e.Cycle, " -> "), e.Cycle[0])
}

// Is reports whether target is ErrCycleDetected.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

func notFound(id string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}
