package period

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStart(t *testing.T) {
	tests := []struct {
		name   string
		d      time.Time
		payday int
		want   time.Time
	}{
		{"before payday steps back a month", date(2024, 1, 5), 10, date(2023, 12, 10)},
		{"on payday starts new period", date(2024, 1, 10), 10, date(2024, 1, 10)},
		{"after payday stays in month", date(2024, 1, 15), 10, date(2024, 1, 10)},
		{"january wraps to previous december", date(2024, 1, 1), 10, date(2023, 12, 10)},
		{"payday 1 matches calendar month", date(2024, 7, 31), 1, date(2024, 7, 1)},
		{"payday 28 in february", date(2024, 2, 27), 28, date(2024, 1, 28)},
		{"payday 28 on the day", date(2024, 2, 28), 28, date(2024, 2, 28)},
		{"time of day is ignored", time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC), 10, date(2024, 1, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Start(tt.d, tt.payday); !got.Equal(tt.want) {
				t.Errorf("Start(%v, %d) = %v, want %v", tt.d, tt.payday, got, tt.want)
			}
		})
	}
}

func TestStartBoundsContainDate(t *testing.T) {
	// Start(d) <= d < End(Start(d)) for every payday and a spread of dates.
	for payday := 1; payday <= 28; payday++ {
		d := date(2023, 11, 20)
		for i := 0; i < 400; i += 7 {
			probe := d.AddDate(0, 0, i)
			start := Start(probe, payday)
			if probe.Before(start) {
				t.Fatalf("payday %d date %v: start %v is after date", payday, probe, start)
			}
			if !probe.Before(End(start)) {
				t.Fatalf("payday %d date %v: end %v not after date", payday, probe, End(start))
			}
		}
	}
}

func TestEnd(t *testing.T) {
	if got := End(date(2024, 1, 10)); !got.Equal(date(2024, 2, 10)) {
		t.Fatalf("End(2024-01-10) = %v", got)
	}
	if got := End(date(2023, 12, 28)); !got.Equal(date(2024, 1, 28)) {
		t.Fatalf("End(2023-12-28) = %v", got)
	}
}

func TestKeyStableAndGroups(t *testing.T) {
	a := date(2024, 1, 12)
	if Key(a, 10) != Key(a, 10) {
		t.Fatal("key must be deterministic")
	}
	if Key(a, 10) != "2024-01-10" {
		t.Fatalf("unexpected key %s", Key(a, 10))
	}
	// Same period, different days.
	if Key(date(2024, 1, 10), 10) != Key(date(2024, 2, 9), 10) {
		t.Fatal("dates in one period must share a key")
	}
	// Adjacent periods differ.
	if Key(date(2024, 2, 9), 10) == Key(date(2024, 2, 10), 10) {
		t.Fatal("period boundary must change the key")
	}
}

func TestSameCycle(t *testing.T) {
	if !SameCycle(date(2024, 1, 10), date(2024, 2, 9), 10) {
		t.Fatal("expected same cycle")
	}
	if SameCycle(date(2024, 1, 9), date(2024, 1, 10), 10) {
		t.Fatal("expected different cycles across payday")
	}
}

func TestContains(t *testing.T) {
	start := date(2024, 1, 10)
	if !Contains(start, start) {
		t.Fatal("start is inclusive")
	}
	if !Contains(start, date(2024, 2, 9)) {
		t.Fatal("last day belongs to the period")
	}
	if Contains(start, End(start)) {
		t.Fatal("end is exclusive")
	}
	if Contains(start, date(2024, 1, 9)) {
		t.Fatal("day before start excluded")
	}
}

func TestDaysElapsed(t *testing.T) {
	start := date(2024, 1, 10)
	if got := DaysElapsed(start, start); got != 1 {
		t.Fatalf("first day should count as 1, got %d", got)
	}
	if got := DaysElapsed(start, date(2024, 1, 19)); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	// A clock running slightly behind the stored start never yields zero.
	if got := DaysElapsed(start, start.Add(-time.Hour)); got != 1 {
		t.Fatalf("expected floor of 1, got %d", got)
	}
}

func TestBack(t *testing.T) {
	d := date(2024, 3, 15)
	if got := Back(d, 10, 0); !got.Equal(date(2024, 3, 10)) {
		t.Fatalf("Back 0 = %v", got)
	}
	if got := Back(d, 10, 2); !got.Equal(date(2024, 1, 10)) {
		t.Fatalf("Back 2 = %v", got)
	}
	if got := Back(d, 10, 3); !got.Equal(date(2023, 12, 10)) {
		t.Fatalf("Back 3 = %v", got)
	}
}
