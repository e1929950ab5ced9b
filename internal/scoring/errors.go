package scoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/Siteselect/internal/profile"
)

// ErrIncompleteAggregate is matched by errors.Is for every *IncompleteAggregateError.
var ErrIncompleteAggregate = errors.New("incomplete aggregate set")

// IncompleteAggregateError reports a provider that omitted requested sub-metrics.
type IncompleteAggregateError struct {
	TypeID  string
	Missing []profile.Metric
}

func (e *IncompleteAggregateError) Error() string {
	names := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		names[i] = string(m)
	}
	return fmt.Sprintf("aggregate provider omitted %s for type %q", strings.Join(names, ", "), e.TypeID)
}

func (e *IncompleteAggregateError) Unwrap() error { return ErrIncompleteAggregate }

// StageError wraps a scoring failure with the last stage the request reached.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("score after %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
