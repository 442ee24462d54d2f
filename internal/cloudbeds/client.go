// Package cloudbeds is the adapter for the Cloudbeds REST API. All
// upstream payload shapes stay inside this package; everything is
// normalized into core types at this boundary.
package cloudbeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/aangelzurita/calendario-cloudbeds/internal/core"
	"github.com/aangelzurita/calendario-cloudbeds/internal/metrics"
)

// ErrRequestFailed covers network errors, non-2xx statuses, malformed
// bodies and upstream success=false responses.
var ErrRequestFailed = errors.New("cloudbeds request failed")

// TokenSource resolves a valid bearer token for a property.
type TokenSource interface {
	GetToken(ctx context.Context, propertyID string) (string, error)
}

type Client struct {
	apiURL    string // v1.3 API
	legacyURL string // v1.1 API, used by getRoomTypes
	http      *http.Client
	tokens    TokenSource
	logger    *zap.Logger
	metrics   *metrics.Collector
}

type ClientOptions struct {
	APIURL    string
	LegacyURL string
	Timeout   time.Duration
	Tokens    TokenSource
	Logger    *zap.Logger
	Metrics   *metrics.Collector
}

func NewClient(opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	legacyURL := opts.LegacyURL
	if legacyURL == "" {
		legacyURL = "https://hotels.cloudbeds.com/api/v1.1"
	}
	return &Client{
		apiURL:    opts.APIURL,
		legacyURL: legacyURL,
		http:      &http.Client{Timeout: timeout},
		tokens:    opts.Tokens,
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

// envelope is the common Cloudbeds response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, property core.Property, operation, baseURL, path string, params url.Values, headers map[string]string) (json.RawMessage, error) {
	token, err := c.tokens.GetToken(ctx, property.ID)
	if err != nil {
		return nil, err
	}

	u := baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.RecordUpstreamRequest(property.ID, operation, err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: invalid body (status %d): %v", ErrRequestFailed, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, msg)
	}
	return env.Data, nil
}

// rawReservation tolerates the stay-range field aliases Cloudbeds has
// used across endpoints and API versions.
type rawReservation struct {
	ReservationID string `json:"reservationID"`
	ID            string `json:"id"`
	GuestName     string `json:"guestName"`
	Status        string `json:"status"`

	StartDate   string `json:"startDate"`
	CheckIn     string `json:"checkIn"`
	CheckInDate string `json:"checkInDate"`
	DateFrom    string `json:"dateFrom"`
	CheckinAlt  string `json:"checkin_date"`

	EndDate      string `json:"endDate"`
	CheckOut     string `json:"checkOut"`
	CheckOutDate string `json:"checkOutDate"`
	DateTo       string `json:"dateTo"`
	CheckoutAlt  string `json:"checkout_date"`
}

func firstNonEmpty(candidates ...string) string {
	for _, s := range candidates {
		if s != "" {
			return s
		}
	}
	return ""
}

func (r rawReservation) normalize() (core.Reservation, bool) {
	startRaw := firstNonEmpty(r.StartDate, r.CheckIn, r.CheckInDate, r.DateFrom, r.CheckinAlt)
	endRaw := firstNonEmpty(r.EndDate, r.CheckOut, r.CheckOutDate, r.DateTo, r.CheckoutAlt)
	if startRaw == "" || endRaw == "" {
		return core.Reservation{}, false
	}
	start, err := core.ParseDate(startRaw)
	if err != nil {
		return core.Reservation{}, false
	}
	end, err := core.ParseDate(endRaw)
	if err != nil {
		return core.Reservation{}, false
	}
	return core.Reservation{
		ID:        firstNonEmpty(r.ReservationID, r.ID),
		GuestName: r.GuestName,
		Status:    r.Status,
		StartDate: start,
		EndDate:   end,
	}, true
}

// GetReservations fetches the reservations whose stay overlaps the
// [start, end] range, normalized. Records without a usable stay range
// are dropped rather than failing the whole property.
func (c *Client) GetReservations(ctx context.Context, property core.Property, start, end core.LocalDate) ([]core.Reservation, error) {
	params := url.Values{
		"startDate": {start.String()},
		"endDate":   {end.String()},
	}
	data, err := c.get(ctx, property, "getReservations", c.apiURL, "/getReservations", params, nil)
	if err != nil {
		return nil, err
	}

	var raw []rawReservation
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: unexpected reservations payload: %v", ErrRequestFailed, err)
	}

	reservations := make([]core.Reservation, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		normalized, ok := r.normalize()
		if !ok {
			dropped++
			continue
		}
		reservations = append(reservations, normalized)
	}
	if dropped > 0 {
		c.logger.Warn("dropped reservations without usable dates",
			zap.String("property", property.ID),
			zap.Int("dropped", dropped),
		)
	}
	return reservations, nil
}

// GetAvailableRoomTypes fetches room-type availability counts for the
// range. The payload nests rooms under data[0].propertyRooms.
func (c *Client) GetAvailableRoomTypes(ctx context.Context, property core.Property, start, end core.LocalDate, adults int) ([]core.RoomTypeAvailability, error) {
	params := url.Values{
		"startDate": {start.String()},
		"endDate":   {end.String()},
		"adults":    {fmt.Sprintf("%d", adults)},
	}
	data, err := c.get(ctx, property, "getAvailableRoomTypes", c.apiURL, "/getAvailableRoomTypes", params, nil)
	if err != nil {
		return nil, err
	}

	var blocks []struct {
		PropertyRooms []struct {
			RoomTypeID     json.Number `json:"roomTypeID"`
			RoomTypeName   string      `json:"roomTypeName"`
			RoomsAvailable json.Number `json:"roomsAvailable"`
		} `json:"propertyRooms"`
	}
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("%w: unexpected availability payload: %v", ErrRequestFailed, err)
	}

	var out []core.RoomTypeAvailability
	for _, b := range blocks {
		for _, r := range b.PropertyRooms {
			n, _ := r.RoomsAvailable.Int64()
			out = append(out, core.RoomTypeAvailability{
				RoomTypeID:     r.RoomTypeID.String(),
				RoomTypeName:   r.RoomTypeName,
				RoomsAvailable: int(n),
			})
		}
	}
	return out, nil
}

// GetRoomTypes probes per-room-type occupancy for a property via the
// v1.1 API; occupied means zero rooms of that type available.
func (c *Client) GetRoomTypes(ctx context.Context, property core.Property) ([]core.RoomTypeOccupancy, error) {
	params := url.Values{"propertyID": {property.CloudbedsID}}
	data, err := c.get(ctx, property, "getRoomTypes", c.legacyURL, "/getRoomTypes", params, nil)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		RoomTypeID     json.Number `json:"roomTypeID"`
		RoomTypeName   string      `json:"roomTypeName"`
		RoomsAvailable json.Number `json:"roomsAvailable"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: unexpected room types payload: %v", ErrRequestFailed, err)
	}

	out := make([]core.RoomTypeOccupancy, 0, len(raw))
	for _, r := range raw {
		n, _ := r.RoomsAvailable.Int64()
		out = append(out, core.RoomTypeOccupancy{
			RoomTypeID: r.RoomTypeID.String(),
			Name:       r.RoomTypeName,
			Occupied:   n == 0,
		})
	}
	return out, nil
}

// GetRooms lists the physical rooms of a property. The payload nests
// rooms under data[].rooms, which gets flattened here.
func (c *Client) GetRooms(ctx context.Context, property core.Property) ([]core.Room, error) {
	params := url.Values{"includeRoomTypeDetails": {"true"}}
	headers := map[string]string{"X-Property-ID": property.CloudbedsID}
	data, err := c.get(ctx, property, "getRooms", c.apiURL, "/getRooms", params, headers)
	if err != nil {
		return nil, err
	}

	var blocks []struct {
		Rooms []struct {
			RoomID            json.Number `json:"roomID"`
			RoomName          string      `json:"roomName"`
			RoomTypeID        json.Number `json:"roomTypeID"`
			RoomTypeName      string      `json:"roomTypeName"`
			RoomTypeNameShort string      `json:"roomTypeNameShort"`
			MaxGuests         json.Number `json:"maxGuests"`
			IsPrivate         bool        `json:"isPrivate"`
			IsVirtual         bool        `json:"isVirtual"`
			RoomBlocked       bool        `json:"roomBlocked"`
		} `json:"rooms"`
	}
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("%w: unexpected rooms payload: %v", ErrRequestFailed, err)
	}

	var out []core.Room
	for _, b := range blocks {
		for _, r := range b.Rooms {
			guests, _ := r.MaxGuests.Int64()
			out = append(out, core.Room{
				RoomID:            r.RoomID.String(),
				RoomName:          r.RoomName,
				RoomTypeID:        r.RoomTypeID.String(),
				RoomTypeName:      r.RoomTypeName,
				RoomTypeNameShort: r.RoomTypeNameShort,
				MaxGuests:         int(guests),
				IsPrivate:         r.IsPrivate,
				IsVirtual:         r.IsVirtual,
				RoomBlocked:       r.RoomBlocked,
			})
		}
	}
	return out, nil
}

// GetAssignments fetches the room assignments for one date.
func (c *Client) GetAssignments(ctx context.Context, property core.Property, date core.LocalDate) ([]core.Assignment, error) {
	params := url.Values{"date": {date.String()}}
	data, err := c.get(ctx, property, "getReservationAssignments", c.apiURL, "/getReservationAssignments", params, nil)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		ReservationID json.Number `json:"reservationID"`
		RoomID        json.Number `json:"roomID"`
		RoomName      string      `json:"roomName"`
		GuestName     string      `json:"guestName"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: unexpected assignments payload: %v", ErrRequestFailed, err)
	}

	out := make([]core.Assignment, 0, len(raw))
	for _, a := range raw {
		out = append(out, core.Assignment{
			ReservationID: a.ReservationID.String(),
			RoomID:        a.RoomID.String(),
			RoomName:      a.RoomName,
			GuestName:     a.GuestName,
		})
	}
	return out, nil
}
