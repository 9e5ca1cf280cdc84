package clock

import (
	"fmt"
	"sync"
	"time"

	"challenge-goals-go/internal/streak"
)

// Clock supplies the current calendar date. Dates are returned as midnight UTC
// of the local date in the clock's zone, so they compare and persist cleanly.
type Clock interface {
	Today() time.Time
}

// System reads the wall clock in a configured time zone.
type System struct {
	loc *time.Location
}

func NewSystem(loc *time.Location) *System {
	if loc == nil {
		loc = time.UTC
	}
	return &System{loc: loc}
}

// NewSystemInZone resolves an IANA zone name such as "America/Sao_Paulo".
func NewSystemInZone(name string) (*System, error) {
	if name == "" {
		return NewSystem(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unable to load time zone %q: %w", name, err)
	}
	return NewSystem(loc), nil
}

func (c *System) Today() time.Time {
	return streak.Date(time.Now().In(c.loc))
}

func (c *System) Location() *time.Location {
	return c.loc
}

// Fixed is a manually driven clock for tests and replays.
type Fixed struct {
	mu  sync.RWMutex
	day time.Time
}

func NewFixed(day time.Time) *Fixed {
	return &Fixed{day: streak.Date(day)}
}

func (c *Fixed) Today() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.day
}

func (c *Fixed) Set(day time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day = streak.Date(day)
}

// Advance moves the clock forward by n calendar days.
func (c *Fixed) Advance(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day = c.day.AddDate(0, 0, n)
}
