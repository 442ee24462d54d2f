package core

// Property is one independently managed Cloudbeds property. Each one
// has its own OAuth credentials and is queried separately.
type Property struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CloudbedsID string `json:"-"` // numeric propertyID used by some Cloudbeds endpoints
}

// Credentials holds the OAuth material for one property. Loaded once
// at startup, never mutated afterwards.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Complete reports whether all three fields required for the
// refresh-token exchange are present.
func (c Credentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// MergedProperty is a property as rendered to the calendar: canonical
// or upstream-discovered, with a stable display color and its per-day
// occupancy for the requested month.
type MergedProperty struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Occupancy []bool `json:"occupancy"`

	// Reservations backing the bitmap; empty in availability mode.
	Reservations []Reservation `json:"reservations,omitempty"`
}
