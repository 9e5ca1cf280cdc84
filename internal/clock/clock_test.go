package clock

import (
	"testing"
	"time"
)

func TestFixedClock(t *testing.T) {
	c := NewFixed(time.Date(2025, time.June, 10, 17, 45, 0, 0, time.UTC))

	want := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	if !c.Today().Equal(want) {
		t.Fatalf("Expected %v, got %v", want, c.Today())
	}

	c.Advance(3)
	if got := c.Today(); !got.Equal(want.AddDate(0, 0, 3)) {
		t.Errorf("Expected %v after advance, got %v", want.AddDate(0, 0, 3), got)
	}
}

func TestSystemClockUsesZoneDate(t *testing.T) {
	// A zone far ahead of UTC can already be on the next calendar day.
	zone := time.FixedZone("UTC+14", 14*60*60)
	c := NewSystem(zone)

	got := c.Today()
	if got.Location() != time.UTC || got.Hour() != 0 {
		t.Errorf("Expected midnight UTC, got %v", got)
	}

	y, m, d := time.Now().In(zone).Date()
	if got.Year() != y || got.Month() != m || got.Day() != d {
		t.Errorf("Expected %04d-%02d-%02d, got %v", y, m, d, got)
	}
}

func TestNewSystemInZone_Invalid(t *testing.T) {
	if _, err := NewSystemInZone("Not/AZone"); err == nil {
		t.Error("Expected error for unknown zone")
	}
}
