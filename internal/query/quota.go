package query

import "github.com/roach88/xqdb/internal/xdm"

// DefaultMaxSteps is the default step budget of one evaluation. Zero means
// unlimited.
const DefaultMaxSteps = 0

// Quota counts clause steps of one evaluation and enforces a maximum.
//
// A step is one call of a clause evaluator's Next. The budget bounds the
// work of runaway queries (large cartesian products) independently of
// wall-clock timeouts.
type Quota struct {
	maxSteps int64
	current  int64
}

// NewQuota creates a quota allowing maxSteps steps. maxSteps <= 0 means
// unlimited.
func NewQuota(maxSteps int64) *Quota {
	return &Quota{maxSteps: maxSteps}
}

// Check counts one step and fails once the budget is exceeded.
func (q *Quota) Check() error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return xdm.StepsExceeded(q.current, q.maxSteps)
	}
	return nil
}

// Current returns the number of steps taken.
func (q *Quota) Current() int64 { return q.current }

// MaxSteps returns the step limit.
func (q *Quota) MaxSteps() int64 { return q.maxSteps }

// Reset sets the step counter to zero.
func (q *Quota) Reset() { q.current = 0 }
