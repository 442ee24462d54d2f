// Package occupancy turns per-property Cloudbeds data into the
// per-day occupancy model the calendar renders.
package occupancy

import (
	"time"

	"github.com/aangelzurita/calendario-cloudbeds/internal/core"
)

// ComputeBitmap builds the per-day occupancy array for one month from
// discrete reservations. Index 0 is day 1. Each stay marks the
// half-open range [StartDate, EndDate): the checkout day stays free.
// Days outside the target month contribute nothing; a reservation
// with StartDate >= EndDate marks no days.
func ComputeBitmap(reservations []core.Reservation, year int, month time.Month) []bool {
	bitmap := make([]bool, core.DaysInMonth(year, month))
	for _, r := range reservations {
		for d := r.StartDate; d.Before(r.EndDate); d = d.Next() {
			if d.In(year, month) {
				bitmap[d.Day-1] = true
			}
		}
	}
	return bitmap
}

// ComputeAvailabilityBitmap approximates occupancy from room-type
// availability counts: if at least one room type reports zero rooms
// available over the queried range, the whole month is flagged. This
// is deliberately coarse — availability mode has no per-day signal.
func ComputeAvailabilityBitmap(roomTypes []core.RoomTypeAvailability, year int, month time.Month) []bool {
	bitmap := make([]bool, core.DaysInMonth(year, month))
	soldOut := false
	for _, rt := range roomTypes {
		if rt.RoomsAvailable <= 0 {
			soldOut = true
			break
		}
	}
	if soldOut {
		for i := range bitmap {
			bitmap[i] = true
		}
	}
	return bitmap
}
