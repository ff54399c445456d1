// Package pipeline provides the stage contract and the middleware that wraps
// feature stages: timing, memoized skipping and pre/postcondition checks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yourusername/race-features/internal/frame"
)

// ErrPrecondition and ErrPostcondition report stage contract violations
var (
	ErrPrecondition  = errors.New("stage precondition failed")
	ErrPostcondition = errors.New("stage postcondition failed")
)

// StageFunc transforms a table into a new table
type StageFunc func(ctx context.Context, t *frame.Table) (*frame.Table, error)

// Stage is a named table transform with its required input columns and the
// output columns it guarantees.
type Stage struct {
	Name     string
	Requires []string
	Provides []string
	Run      StageFunc
}

// Check validates the stage preconditions against t
func (s Stage) Check(t *frame.Table) error {
	if missing := t.Missing(s.Requires...); len(missing) > 0 {
		return fmt.Errorf("%w: %s requires %s", ErrPrecondition, s.Name, strings.Join(missing, ", "))
	}
	return nil
}

// Apply checks preconditions, runs the stage and checks postconditions
func (s Stage) Apply(ctx context.Context, t *frame.Table) (*frame.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.Check(t); err != nil {
		return nil, err
	}
	out, err := s.Run(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	if missing := out.Missing(s.Provides...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s did not produce %s", ErrPostcondition, s.Name, strings.Join(missing, ", "))
	}
	return out, nil
}

// Run applies stages in order, feeding each the previous output
func Run(ctx context.Context, t *frame.Table, stages ...Stage) (*frame.Table, error) {
	var err error
	for _, s := range stages {
		t, err = s.Apply(ctx, t)
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}
