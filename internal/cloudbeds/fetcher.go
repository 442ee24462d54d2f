package cloudbeds

import (
	"context"

	"go.uber.org/zap"

	"github.com/aangelzurita/calendario-cloudbeds/internal/core"
)

// Fetcher queries one property and folds every possible failure into
// the result record. Nothing escapes this boundary as a Go error: one
// property going down must not abort the aggregation of the others.
type Fetcher struct {
	client *Client
	logger *zap.Logger
}

func NewFetcher(client *Client, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, logger: logger}
}

// FetchProperty runs the query for a single property. The result's
// Success flag and Error field carry per-property failures inline.
func (f *Fetcher) FetchProperty(ctx context.Context, property core.Property, query core.OccupancyQuery) core.PropertyResult {
	result := core.PropertyResult{
		PropertyID: property.ID,
		Name:       property.Name,
	}

	switch query.Mode {
	case core.ModeAvailability:
		roomTypes, err := f.client.GetAvailableRoomTypes(ctx, property, query.Start, query.End, query.Adults)
		if err != nil {
			return f.failed(property, result, err)
		}
		result.Success = true
		result.RoomTypes = roomTypes
	default:
		reservations, err := f.client.GetReservations(ctx, property, query.Start, query.End)
		if err != nil {
			return f.failed(property, result, err)
		}
		result.Success = true
		result.Reservations = reservations
	}
	return result
}

func (f *Fetcher) failed(property core.Property, result core.PropertyResult, err error) core.PropertyResult {
	f.logger.Warn("property fetch failed",
		zap.String("property", property.ID),
		zap.Error(err),
	)
	result.Success = false
	result.Error = err.Error()
	return result
}
