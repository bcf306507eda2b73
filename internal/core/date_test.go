package core

import "testing"

func TestAddPeriodsMonthlyClamping(t *testing.T) {
	// A schedule anchored on Jan 31 is the trickiest case: February must
	// clamp, and March must come back to the 31st.
	anchor := NewDate(2024, 1, 31)

	cases := []struct {
		n    int
		want Date
	}{
		{0, NewDate(2024, 1, 31)},
		{1, NewDate(2024, 2, 29)}, // 2024 is a leap year
		{2, NewDate(2024, 3, 31)},
		{3, NewDate(2024, 4, 30)},
		{13, NewDate(2025, 2, 28)}, // non-leap February
		{12, NewDate(2025, 1, 31)},
	}
	for _, tc := range cases {
		got := anchor.AddPeriods(Monthly, tc.n)
		if !got.Equal(tc.want) {
			t.Errorf("AddPeriods(Monthly, %d) = %s, want %s", tc.n, got, tc.want)
		}
	}
}

func TestAddPeriodsYearlyClamping(t *testing.T) {
	anchor := NewDate(2024, 2, 29)
	if got, want := anchor.AddPeriods(Yearly, 1), NewDate(2025, 2, 28); !got.Equal(want) {
		t.Errorf("AddPeriods(Yearly, 1) = %s, want %s", got, want)
	}
	if got, want := anchor.AddPeriods(Yearly, 4), NewDate(2028, 2, 29); !got.Equal(want) {
		t.Errorf("AddPeriods(Yearly, 4) = %s, want %s", got, want)
	}
}

func TestAddPeriodsDailyWeekly(t *testing.T) {
	anchor := NewDate(2024, 12, 30)
	if got, want := anchor.AddPeriods(Daily, 3), NewDate(2025, 1, 2); !got.Equal(want) {
		t.Errorf("AddPeriods(Daily, 3) = %s, want %s", got, want)
	}
	if got, want := anchor.AddPeriods(Weekly, 2), NewDate(2025, 1, 13); !got.Equal(want) {
		t.Errorf("AddPeriods(Weekly, 2) = %s, want %s", got, want)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-04-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !d.Equal(NewDate(2024, 4, 15)) {
		t.Fatalf("ParseDate = %s, want 2024-04-15", d)
	}
	if _, err := ParseDate("15/04/2024"); err == nil {
		t.Fatal("expected error for wrong format")
	}
}

func TestDateString(t *testing.T) {
	if s := NewDate(2024, 1, 5).String(); s != "2024-01-05" {
		t.Fatalf("String() = %q", s)
	}
	if s := (Date{}).String(); s != "" {
		t.Fatalf("zero date String() = %q, want empty", s)
	}
}
