package occupancy

import (
	"hash/fnv"
	"time"

	"github.com/aangelzurita/calendario-cloudbeds/internal/core"
)

// Palette shared with the calendar UI. Canonical properties take the
// color at their canonical index, so colors never shuffle when the
// upstream response order changes.
var colorPool = []string{
	"bg-emerald-500",
	"bg-blue-500",
	"bg-amber-500",
	"bg-pink-500",
	"bg-purple-500",
}

// Merger reconciles the canonical property list with whatever the
// upstream actually returned.
type Merger struct {
	canonical []core.Property
	index     map[string]int
}

func NewMerger(canonical []core.Property) *Merger {
	index := make(map[string]int, len(canonical))
	for i, p := range canonical {
		index[p.ID] = i
	}
	return &Merger{canonical: canonical, index: index}
}

// ColorFor assigns a display color as a pure function of the property
// id: canonical properties by canonical position, anything else by a
// deterministic hash of the id.
func (m *Merger) ColorFor(id string) string {
	if i, ok := m.index[id]; ok {
		return colorPool[i%len(colorPool)]
	}
	h := fnv.New32a()
	h.Write([]byte(id))
	return colorPool[int(h.Sum32())%len(colorPool)]
}

// Merge produces the final property list for one month: every
// canonical property exactly once in canonical order, then any
// property the upstream returned that is not canonical, in response
// order. A canonical property missing from the results is rendered as
// successful with an all-free month.
func (m *Merger) Merge(results []core.PropertyResult, year int, month time.Month, mode core.OccupancyMode) []core.MergedProperty {
	byID := make(map[string]core.PropertyResult, len(results))
	for _, r := range results {
		byID[r.PropertyID] = r
	}

	merged := make([]core.MergedProperty, 0, len(m.canonical))
	for _, p := range m.canonical {
		r, ok := byID[p.ID]
		if !ok {
			merged = append(merged, core.MergedProperty{
				ID:        p.ID,
				Name:      p.Name,
				Color:     m.ColorFor(p.ID),
				Success:   true,
				Occupancy: make([]bool, core.DaysInMonth(year, month)),
			})
			continue
		}
		merged = append(merged, m.toMerged(r, year, month, mode))
	}

	for _, r := range results {
		if _, canonical := m.index[r.PropertyID]; canonical {
			continue
		}
		merged = append(merged, m.toMerged(r, year, month, mode))
	}
	return merged
}

func (m *Merger) toMerged(r core.PropertyResult, year int, month time.Month, mode core.OccupancyMode) core.MergedProperty {
	mp := core.MergedProperty{
		ID:      r.PropertyID,
		Name:    r.Name,
		Color:   m.ColorFor(r.PropertyID),
		Success: r.Success,
		Error:   r.Error,
	}
	switch mode {
	case core.ModeAvailability:
		mp.Occupancy = ComputeAvailabilityBitmap(r.RoomTypes, year, month)
	default:
		mp.Occupancy = ComputeBitmap(r.Reservations, year, month)
		mp.Reservations = r.Reservations
	}
	return mp
}
