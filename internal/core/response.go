package core

import "strconv"

// OccupancyMode selects how per-day occupancy is derived.
type OccupancyMode string

const (
	// ModeHistory builds occupancy from discrete reservations.
	ModeHistory OccupancyMode = "history"
	// ModeAvailability approximates occupancy from room-type
	// availability counts over the queried range.
	ModeAvailability OccupancyMode = "availability"
)

// OccupancyQuery is a validated aggregate request. Start and End
// bound the queried range; the bitmap month is Start's month.
type OccupancyQuery struct {
	Mode   OccupancyMode
	Start  LocalDate
	End    LocalDate
	Adults int
}

// CacheKey is the normalized query signature used by the response
// cache. Two identical queries within the TTL window share a payload.
func (q OccupancyQuery) CacheKey() string {
	return string(q.Mode) + ":" + q.Start.String() + ":" + q.End.String() + ":" + strconv.Itoa(q.Adults)
}

// OccupancyResponse is the aggregate payload served to the calendar.
// Success is false only for invalid request parameters; per-property
// failures are reported inline and Degraded marks the fallback case
// where no property returned usable data.
type OccupancyResponse struct {
	Success    bool             `json:"success"`
	Properties []MergedProperty `json:"properties"`
	Degraded   bool             `json:"degraded,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// DayDetail is the per-property reservation list covering one day.
type DayDetail struct {
	PropertyID   string        `json:"id"`
	Name         string        `json:"name"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	Reservations []Reservation `json:"reservations"`
}

// DayDetailResponse answers the reservations-by-date lookup.
type DayDetailResponse struct {
	Success    bool        `json:"success"`
	Date       string      `json:"date"`
	Properties []DayDetail `json:"properties"`
	Message    string      `json:"message,omitempty"`
}

// RoomsResult lists one property's physical rooms.
type RoomsResult struct {
	PropertyID string `json:"id"`
	Name       string `json:"name"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Rooms      []Room `json:"rooms"`
}

// AssignmentsResult lists one property's room assignments for a day.
type AssignmentsResult struct {
	PropertyID  string       `json:"id"`
	Name        string       `json:"name"`
	Success     bool         `json:"success"`
	Error       string       `json:"error,omitempty"`
	Assignments []Assignment `json:"assignments"`
}
