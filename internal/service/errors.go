package service

import (
	"errors"
	"fmt"
)

var (
	ErrAreaNotFound  = errors.New("area not found")
	ErrNoTables      = errors.New("layout has no tables")
	ErrMissingName   = errors.New("table has no name")
	ErrSessionClosed = errors.New("editor session is closed")
)

// Step is the editor step a validation failure sends the user back to.
type Step string

const (
	StepLayout Step = "layout"
	StepNaming Step = "naming"
)

// ValidationError blocks a publish before any external call is made.
type ValidationError struct {
	Field  string
	Step   Step
	ItemID string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("invalid %s on item %s: %v", e.Field, e.ItemID, e.Err)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

type Phase string

const (
	PhaseDirectory Phase = "directory"
	PhaseLayout    Phase = "layout"
)

// PublishError reports which external call of a publish failed. Consistent is
// false when the Table Directory already accepted the new tables but the
// layout could not be stored; the two are then out of sync until the user
// publishes again.
type PublishError struct {
	Phase      Phase
	Consistent bool
	Err        error
}

func (e *PublishError) Error() string {
	if e.Consistent {
		return fmt.Sprintf("publish failed in %s phase: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("publish failed in %s phase, table directory and layout are out of sync: %v", e.Phase, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// LoadError is returned alongside a usable, empty session when the editor
// could not fetch the area's tables or layout.
type LoadError struct {
	AreaID int64
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load floor plan for area %d: %v", e.AreaID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
