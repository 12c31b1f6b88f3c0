package schedule

import "sort"

// DefaultSlotMinutes is the size of a bookable candidate slot.
const DefaultSlotMinutes = 30

const hourEpsilon = 1e-9

// Window is a half-open interval [Start, End) within one day.
type Window struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

func NewWindow(start, end Clock) Window {
	return Window{Start: start, End: end}
}

func (w Window) Valid() bool {
	return w.Start >= Midnight && w.End <= EndOfDay && w.Start < w.End
}

func (w Window) Covers(other Window) bool {
	return w.Start <= other.Start && other.End <= w.End
}

// Overlaps uses half-open semantics: touching intervals do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start < other.End && w.End > other.Start
}

func (w Window) Minutes() int {
	return int(w.End - w.Start)
}

func (w Window) Hours() float64 {
	return float64(w.Minutes()) / 60
}

type Slot struct {
	Start     Clock `json:"start"`
	End       Clock `json:"end"`
	Available bool  `json:"available"`
}

// Override replaces the weekly windows of a single date.
type Override struct {
	Blocked bool
	Windows []Window
}

// Resolve applies a same-date override to weekly windows. A blocked override yields
// no windows; an available override with explicit hours replaces the weekly set.
func Resolve(weekly []Window, override *Override) []Window {
	if override == nil {
		return weekly
	}
	if override.Blocked {
		return nil
	}
	if len(override.Windows) > 0 {
		return override.Windows
	}
	return weekly
}

// Partition splits each window into fixed-size candidates. A trailing remainder shorter
// than size is dropped; candidates shared by overlapping windows appear once.
func Partition(windows []Window, size int) []Window {
	if size <= 0 {
		size = DefaultSlotMinutes
	}
	seen := make(map[Window]struct{})
	result := make([]Window, 0)
	for _, w := range windows {
		if !w.Valid() {
			continue
		}
		for start := w.Start; start.Add(size) <= w.End; start = start.Add(size) {
			candidate := Window{Start: start, End: start.Add(size)}
			if _, ok := seen[candidate]; ok {
				continue
			}
			seen[candidate] = struct{}{}
			result = append(result, candidate)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Start == result[j].Start {
			return result[i].End < result[j].End
		}
		return result[i].Start < result[j].Start
	})
	return result
}

// Slots partitions windows and marks each candidate unavailable when it overlaps a booking.
func Slots(windows, booked []Window, size int) []Slot {
	candidates := Partition(windows, size)
	slots := make([]Slot, 0, len(candidates))
	for _, c := range candidates {
		_, conflict := FirstConflict(booked, c)
		slots = append(slots, Slot{Start: c.Start, End: c.End, Available: !conflict})
	}
	return slots
}

func AnyCovers(windows []Window, w Window) bool {
	for _, candidate := range windows {
		if candidate.Covers(w) {
			return true
		}
	}
	return false
}

func FirstConflict(booked []Window, w Window) (Window, bool) {
	for _, b := range booked {
		if b.Overlaps(w) {
			return b, true
		}
	}
	return Window{}, false
}

// Remaining is the bookable budget: total minus consumed minus hours still pending in
// scheduled sessions.
func Remaining(total, consumed float64, pending []float64) float64 {
	remaining := total - consumed
	for _, h := range pending {
		remaining -= h
	}
	return remaining
}

// Exceeds reports whether hours is larger than budget, tolerating float noise.
func Exceeds(hours, budget float64) bool {
	return hours-budget > hourEpsilon
}
