package core

// Reservation is a normalized booking. The Cloudbeds payload uses a
// handful of field name variants for the stay range; normalization
// happens once at the fetch boundary and the rest of the engine only
// sees this shape. The stay interval is half-open: [StartDate,
// EndDate), checkout day is free.
type Reservation struct {
	ID        string    `json:"id"`
	GuestName string    `json:"guestName,omitempty"`
	Status    string    `json:"status,omitempty"`
	StartDate LocalDate `json:"startDate"`
	EndDate   LocalDate `json:"endDate"`
}

// Covers reports whether the stay includes the given day.
func (r Reservation) Covers(d LocalDate) bool {
	return !d.Before(r.StartDate) && d.Before(r.EndDate)
}

// RoomTypeAvailability is the normalized availability-mode signal for
// one room type: how many rooms of this type are open over the
// queried range. It is intentionally coarse compared to
// reservation-derived occupancy.
type RoomTypeAvailability struct {
	RoomTypeID     string `json:"roomTypeID"`
	RoomTypeName   string `json:"roomTypeName"`
	RoomsAvailable int    `json:"roomsAvailable"`
}

// Room is a single physical room, from the getRooms endpoint.
type Room struct {
	RoomID            string `json:"roomID"`
	RoomName          string `json:"roomName"`
	RoomTypeID        string `json:"roomTypeID"`
	RoomTypeName      string `json:"roomTypeName"`
	RoomTypeNameShort string `json:"roomTypeNameShort,omitempty"`
	MaxGuests         int    `json:"maxGuests,omitempty"`
	IsPrivate         bool   `json:"isPrivate"`
	IsVirtual         bool   `json:"isVirtual"`
	RoomBlocked       bool   `json:"roomBlocked"`
}

// RoomTypeOccupancy is the per-room-type occupied flag for a single
// probe date, derived from getRoomTypes (roomsAvailable == 0).
type RoomTypeOccupancy struct {
	RoomTypeID string `json:"roomTypeID"`
	Name       string `json:"name"`
	Occupied   bool   `json:"occupied"`
}

// Assignment is a room assignment for a reservation on a given day.
type Assignment struct {
	ReservationID string `json:"reservationID"`
	RoomID        string `json:"roomID"`
	RoomName      string `json:"roomName,omitempty"`
	GuestName     string `json:"guestName,omitempty"`
}

// PropertyResult is the outcome of querying one property. Failure is
// always local: a failed property never aborts the aggregate.
type PropertyResult struct {
	PropertyID string `json:"id"`
	Name       string `json:"name"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`

	Reservations []Reservation          `json:"reservations,omitempty"`
	RoomTypes    []RoomTypeAvailability `json:"roomTypes,omitempty"`
}
