package opt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is matched by every validation failure below.
	ErrInvalidInput = errors.New("invalid scheduling input")

	ErrEmptyPool       = errors.New("worker pool is empty")
	ErrEmptyWorkerID   = errors.New("worker id is empty")
	ErrDuplicateWorker = errors.New("duplicate worker id")
	ErrInvalidWindow   = errors.New("working window start must be before end")

	ErrEmptyOrderID       = errors.New("order id is empty")
	ErrDuplicateOrder     = errors.New("duplicate order id")
	ErrInvalidPickingTime = errors.New("picking time must be positive")
)

// ValidationError collects every problem found in a batch. The batch is
// rejected as a whole; nothing is scheduled.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "invalid scheduling input: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error {
	return append([]error{ErrInvalidInput}, e.Problems...)
}

func (e *ValidationError) add(sentinel error, format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...))
}

// ValidatePool checks the picker list and working window.
func ValidatePool(pool WorkerPool) error {
	v := &ValidationError{}
	validatePool(v, pool)
	if len(v.Problems) > 0 {
		return v
	}
	return nil
}

// Validate checks a whole scheduling batch. It reports every problem at
// once rather than stopping at the first.
func Validate(orders []Order, pool WorkerPool) error {
	v := &ValidationError{}
	validatePool(v, pool)
	seen := make(map[string]struct{}, len(orders))
	for i, o := range orders {
		if o.ID == "" {
			v.add(ErrEmptyOrderID, "order #%d", i)
		} else if _, dup := seen[o.ID]; dup {
			v.add(ErrDuplicateOrder, "%s", o.ID)
		} else {
			seen[o.ID] = struct{}{}
		}
		if o.PickingTime <= 0 {
			v.add(ErrInvalidPickingTime, "order %q has %s", o.ID, o.PickingTime)
		}
	}
	if len(v.Problems) > 0 {
		return v
	}
	return nil
}

func validatePool(v *ValidationError, pool WorkerPool) {
	if len(pool.Workers) == 0 {
		v.add(ErrEmptyPool, "at least one picker is required")
	}
	seen := make(map[string]struct{}, len(pool.Workers))
	for i, w := range pool.Workers {
		if w == "" {
			v.add(ErrEmptyWorkerID, "picker #%d", i)
			continue
		}
		if _, dup := seen[w]; dup {
			v.add(ErrDuplicateWorker, "%s", w)
		}
		seen[w] = struct{}{}
	}
	if !pool.Window.Start.Before(pool.Window.End) {
		v.add(ErrInvalidWindow, "%s-%s", pool.Window.Start, pool.Window.End)
	}
}
