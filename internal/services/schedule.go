// Package services provides the business logic around the ledger: the
// recurrence engine that expands and materializes templates, and the
// command-layer service the presentation shell calls.
//
// This file implements the Strategy Pattern for schedule expansion. Each
// frequency type (daily, weekly, monthly, yearly) has its own stepper
// that encapsulates the date arithmetic for one period kind.

package services

import (
	"fmt"

	"budget/internal/core"
)

// Stepper is the strategy interface for schedule date arithmetic. Step
// returns the date n periods after the anchor; implementations must
// always compute from the anchor so day-of-month clamping never
// accumulates across periods.
type Stepper interface {
	Step(anchor core.Date, n int) core.Date
}

// DailyStepper implements Stepper for daily schedules.
type DailyStepper struct{}

func (DailyStepper) Step(anchor core.Date, n int) core.Date {
	return anchor.AddPeriods(core.Daily, n)
}

// WeeklyStepper implements Stepper for weekly schedules.
type WeeklyStepper struct{}

func (WeeklyStepper) Step(anchor core.Date, n int) core.Date {
	return anchor.AddPeriods(core.Weekly, n)
}

// MonthlyStepper implements Stepper for monthly schedules. An anchor on
// day 29/30/31 clamps to the last day of shorter months.
type MonthlyStepper struct{}

func (MonthlyStepper) Step(anchor core.Date, n int) core.Date {
	return anchor.AddPeriods(core.Monthly, n)
}

// YearlyStepper implements Stepper for yearly schedules. A Feb 29 anchor
// clamps to Feb 28 in non-leap years.
type YearlyStepper struct{}

func (YearlyStepper) Step(anchor core.Date, n int) core.Date {
	return anchor.AddPeriods(core.Yearly, n)
}

// scheduleSteppers maps frequencies to their steppers. The registry
// enables O(1) lookup and extension with new frequency types.
var scheduleSteppers = map[core.Frequency]Stepper{
	core.Daily:   DailyStepper{},
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// GetStepper returns the stepper for a frequency, or an error for
// unsupported frequencies.
func GetStepper(frequency core.Frequency) (Stepper, error) {
	stepper, ok := scheduleSteppers[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownFrequency, frequency)
	}
	return stepper, nil
}

// RegisterStepper registers a custom stepper for a new frequency type.
func RegisterStepper(frequency core.Frequency, stepper Stepper) {
	scheduleSteppers[frequency] = stepper
}

// ExpandDue returns, in ascending order, every occurrence date d of the
// template with StartDate <= d <= min(asOf, EndDate) and
// d > LastMaterializedThrough. Both window boundaries are inclusive.
// The result is exactly the set of occurrences that still need to be
// materialized as of asOf.
func ExpandDue(rt core.RecurrenceTemplate, asOf core.Date) ([]core.Date, error) {
	if err := rt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid template %d: %w", rt.ID, err)
	}
	stepper, err := GetStepper(rt.Frequency)
	if err != nil {
		return nil, err
	}

	limit := asOf
	if !rt.EndDate.IsZero() && rt.EndDate.Before(limit) {
		limit = rt.EndDate
	}
	if rt.StartDate.After(limit) {
		return nil, nil
	}

	var due []core.Date
	for k := 0; ; k++ {
		d := stepper.Step(rt.StartDate, k*rt.Interval)
		if d.After(limit) {
			break
		}
		if rt.LastMaterializedThrough.IsZero() || d.After(rt.LastMaterializedThrough) {
			due = append(due, d)
		}
	}
	return due, nil
}
