package scheduler

import (
	"fmt"
	"time"
)

// operatingDay is the length of the daily window between opening and closing.
const operatingDay = time.Duration(ClosingTime-OpeningTime) * time.Minute

// NoFreeTime is the answer EarliestFreeSlot gives when nothing fits.
const NoFreeTime = "No free time"

// Slot is the start of a free period.
type Slot struct {
	Day   Weekday
	Start TimeOfDay
}

// String renders the slot as "MONDAY 08:00".
func (s Slot) String() string {
	return fmt.Sprintf("%s %s", s.Day.FullName(), s.Start)
}

// FreeSlotFinder searches a registry for the earliest gap of a given length.
// It never mutates the registry.
type FreeSlotFinder struct {
	registry *Registry
}

// NewFreeSlotFinder returns a finder reading from registry.
func NewFreeSlotFinder(registry *Registry) *FreeSlotFinder {
	return &FreeSlotFinder{registry: registry}
}

// Find returns the earliest slot, Monday through Sunday inside the operating
// window, where a period of length d overlaps no registered session. A period
// ending exactly at closing time fits. d must be at least one minute; any
// sub-minute remainder is dropped.
func (f *FreeSlotFinder) Find(d time.Duration) (Slot, error) {
	if d < time.Minute {
		return Slot{}, ErrInvalidDuration
	}
	if d > operatingDay {
		return Slot{}, ErrNoFreeTime
	}
	for _, day := range Weekdays {
		start := OpeningTime
		end := start.Add(d)
		if f.registry != nil {
			for s := range f.registry.OnDay(day) {
				if s.start >= end {
					break
				}
				if s.end > start {
					start = s.end
					end = start.Add(d)
				}
			}
		}
		if end <= ClosingTime {
			return Slot{Day: day, Start: start}, nil
		}
	}
	return Slot{}, ErrNoFreeTime
}

// EarliestFreeSlot answers in display form: "MONDAY 08:00" or "No free time".
func (f *FreeSlotFinder) EarliestFreeSlot(durationHours int) string {
	if durationHours <= 0 || durationHours > int(operatingDay/time.Hour) {
		return NoFreeTime
	}
	slot, err := f.Find(time.Duration(durationHours) * time.Hour)
	if err != nil {
		return NoFreeTime
	}
	return slot.String()
}
