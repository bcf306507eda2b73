package services

import (
	"errors"
	"testing"

	"budget/internal/core"
)

func dateList(dates []core.Date) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}

func TestExpandDueMonthlyClamping(t *testing.T) {
	rt := core.RecurrenceTemplate{
		ID:        1,
		Amount:    core.Money{Cents: -5000},
		Category:  "Rent",
		Person:    "Alice",
		Frequency: core.Monthly,
		Interval:  1,
		StartDate: core.NewDate(2024, 1, 31),
	}

	due, err := ExpandDue(rt, core.NewDate(2024, 4, 15))
	if err != nil {
		t.Fatalf("ExpandDue returned error: %v", err)
	}

	want := []string{"2024-01-31", "2024-02-29", "2024-03-31"}
	got := dateList(due)
	if len(got) != len(want) {
		t.Fatalf("expected %d due dates, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("due[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestExpandDueHonorsWatermark(t *testing.T) {
	rt := core.RecurrenceTemplate{
		ID:                      2,
		Amount:                  core.Money{Cents: -1500},
		Category:                "Streaming",
		Person:                  "Bob",
		Frequency:               core.Monthly,
		Interval:                1,
		StartDate:               core.NewDate(2024, 1, 31),
		LastMaterializedThrough: core.NewDate(2024, 2, 29),
	}

	due, err := ExpandDue(rt, core.NewDate(2024, 4, 15))
	if err != nil {
		t.Fatalf("ExpandDue returned error: %v", err)
	}
	got := dateList(due)
	if len(got) != 1 || got[0] != "2024-03-31" {
		t.Fatalf("expected only 2024-03-31 past the watermark, got %v", got)
	}
}

func TestExpandDueRespectsEndDate(t *testing.T) {
	rt := core.RecurrenceTemplate{
		ID:        3,
		Amount:    core.Money{Cents: -2000},
		Category:  "Gym",
		Person:    "Alice",
		Frequency: core.Weekly,
		Interval:  2,
		StartDate: core.NewDate(2024, 1, 1),
		EndDate:   core.NewDate(2024, 1, 31),
	}

	due, err := ExpandDue(rt, core.NewDate(2024, 6, 1))
	if err != nil {
		t.Fatalf("ExpandDue returned error: %v", err)
	}
	want := []string{"2024-01-01", "2024-01-15", "2024-01-29"}
	got := dateList(due)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("due[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestExpandDueBeforeStart(t *testing.T) {
	rt := core.RecurrenceTemplate{
		ID:        4,
		Amount:    core.Money{Cents: -5000},
		Category:  "Rent",
		Person:    "Alice",
		Frequency: core.Monthly,
		Interval:  1,
		StartDate: core.NewDate(2024, 6, 1),
	}

	due, err := ExpandDue(rt, core.NewDate(2024, 5, 31))
	if err != nil {
		t.Fatalf("ExpandDue returned error: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected no due dates before the start date, got %v", dateList(due))
	}
}

func TestExpandDueNoDriftAcrossYears(t *testing.T) {
	rt := core.RecurrenceTemplate{
		ID:        5,
		Amount:    core.Money{Cents: -9900},
		Category:  "Insurance",
		Person:    "Bob",
		Frequency: core.Monthly,
		Interval:  1,
		StartDate: core.NewDate(2024, 1, 31),
	}

	due, err := ExpandDue(rt, core.NewDate(2025, 1, 31))
	if err != nil {
		t.Fatalf("ExpandDue returned error: %v", err)
	}
	// Occurrence 12 must anchor back to day 31, not inherit February's clamp.
	got := dateList(due)
	if got[len(got)-1] != "2025-01-31" {
		t.Errorf("last occurrence = %s, want 2025-01-31", got[len(got)-1])
	}
	if got[12] != "2025-01-31" {
		t.Errorf("occurrence 12 = %s, want 2025-01-31", got[12])
	}
}

func TestGetStepperUnknownFrequency(t *testing.T) {
	if _, err := GetStepper("fortnightly"); !errors.Is(err, core.ErrUnknownFrequency) {
		t.Fatalf("expected ErrUnknownFrequency, got %v", err)
	}
}
