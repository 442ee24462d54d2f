package occupancy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/aangelzurita/calendario-cloudbeds/internal/cache"
	"github.com/aangelzurita/calendario-cloudbeds/internal/core"
	"github.com/aangelzurita/calendario-cloudbeds/internal/metrics"
)

// ErrInvalidRequest marks caller-input defects (missing or malformed
// date range). It is the only error that aborts a whole request;
// everything upstream-related is reported inline per property.
var ErrInvalidRequest = errors.New("invalid request parameters")

// PropertyFetcher queries one property, folding failures inline.
type PropertyFetcher interface {
	FetchProperty(ctx context.Context, property core.Property, query core.OccupancyQuery) core.PropertyResult
}

// UpstreamClient covers the per-property detail endpoints.
type UpstreamClient interface {
	GetRoomTypes(ctx context.Context, property core.Property) ([]core.RoomTypeOccupancy, error)
	GetRooms(ctx context.Context, property core.Property) ([]core.Room, error)
	GetAssignments(ctx context.Context, property core.Property, date core.LocalDate) ([]core.Assignment, error)
}

// Service is the aggregate occupancy engine: response cache in front,
// bounded fan-out behind, bitmaps and property merging on the way out.
type Service struct {
	properties []core.Property
	fetcher    PropertyFetcher
	client     UpstreamClient
	merger     *Merger
	cache      *cache.Cache
	ttl        time.Duration
	sem        *semaphore.Weighted
	logger     *zap.Logger
	metrics    *metrics.Collector
}

type ServiceOptions struct {
	Properties  []core.Property
	Fetcher     PropertyFetcher
	Client      UpstreamClient
	Cache       *cache.Cache
	CacheTTL    time.Duration
	Concurrency int
	Logger      *zap.Logger
	Metrics     *metrics.Collector
}

func NewService(opts ServiceOptions) *Service {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = len(opts.Properties)
		if concurrency < 1 {
			concurrency = 1
		}
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := opts.Cache
	if c == nil {
		c = cache.New()
	}
	return &Service{
		properties: opts.Properties,
		fetcher:    opts.Fetcher,
		client:     opts.Client,
		merger:     NewMerger(opts.Properties),
		cache:      c,
		ttl:        ttl,
		sem:        semaphore.NewWeighted(int64(concurrency)),
		logger:     logger,
		metrics:    opts.Metrics,
	}
}

// ParseQuery validates raw query-string parameters into an
// OccupancyQuery. Any defect maps to ErrInvalidRequest.
func ParseQuery(mode core.OccupancyMode, startRaw, endRaw, adultsRaw string) (core.OccupancyQuery, error) {
	if startRaw == "" || endRaw == "" {
		return core.OccupancyQuery{}, fmt.Errorf("%w: missing startDate or endDate", ErrInvalidRequest)
	}
	start, err := core.ParseDate(startRaw)
	if err != nil {
		return core.OccupancyQuery{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	end, err := core.ParseDate(endRaw)
	if err != nil {
		return core.OccupancyQuery{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if end.Before(start) {
		return core.OccupancyQuery{}, fmt.Errorf("%w: endDate before startDate", ErrInvalidRequest)
	}

	adults := 2 // Cloudbeds default used by the calendar
	if adultsRaw != "" {
		adults, err = strconv.Atoi(adultsRaw)
		if err != nil || adults < 1 {
			return core.OccupancyQuery{}, fmt.Errorf("%w: invalid adults %q", ErrInvalidRequest, adultsRaw)
		}
	}

	return core.OccupancyQuery{Mode: mode, Start: start, End: end, Adults: adults}, nil
}

// GetOccupancy serves the aggregate payload for a query, from cache
// when possible. The returned bytes are the exact marshaled response;
// repeat queries within the TTL replay them without touching
// Cloudbeds.
func (s *Service) GetOccupancy(ctx context.Context, query core.OccupancyQuery) ([]byte, error) {
	if query.Start.IsZero() || query.End.IsZero() {
		return nil, fmt.Errorf("%w: missing date range", ErrInvalidRequest)
	}

	key := query.CacheKey()
	if payload, ok := s.cache.Get(key); ok {
		s.metrics.RecordCacheHit()
		return payload, nil
	}
	s.metrics.RecordCacheMiss()

	results := s.fetchAll(ctx, query)

	usable := false
	for _, r := range results {
		if r.Success {
			usable = true
			break
		}
	}

	response := core.OccupancyResponse{
		Success:    true,
		Properties: s.merger.Merge(results, query.Start.Year, query.Start.Month, query.Mode),
	}
	if !usable {
		// Fallback: canonical list with an all-free month, flagged so
		// the caller can tell it apart from genuinely empty data.
		response.Degraded = true
		response.Message = "no property returned usable data"
		s.logger.Warn("serving degraded occupancy response",
			zap.String("mode", string(query.Mode)),
			zap.String("start", query.Start.String()),
			zap.String("end", query.End.String()),
		)
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("marshal occupancy response: %w", err)
	}
	s.cache.Set(key, payload, s.ttl)
	return payload, nil
}

// fetchAll queries every configured property with at most the
// configured number in flight, results aligned with the property
// list's order regardless of completion order.
func (s *Service) fetchAll(ctx context.Context, query core.OccupancyQuery) []core.PropertyResult {
	results := make([]core.PropertyResult, len(s.properties))
	var wg sync.WaitGroup
	for i, p := range s.properties {
		wg.Add(1)
		go func(i int, p core.Property) {
			defer wg.Done()
			if err := s.sem.Acquire(ctx, 1); err != nil {
				results[i] = core.PropertyResult{
					PropertyID: p.ID,
					Name:       p.Name,
					Error:      err.Error(),
				}
				return
			}
			defer s.sem.Release(1)

			s.metrics.FetchStarted()
			defer s.metrics.FetchFinished()
			results[i] = s.fetcher.FetchProperty(ctx, p, query)
		}(i, p)
	}
	wg.Wait()
	return results
}

// GetReservationsForDay lists, per property, the reservations whose
// stay covers the given day. Derived from the month aggregate so that
// repeat day lookups within the TTL share one upstream round.
func (s *Service) GetReservationsForDay(ctx context.Context, date, monthStart, monthEnd core.LocalDate) (*core.DayDetailResponse, error) {
	if date.IsZero() || monthStart.IsZero() || monthEnd.IsZero() {
		return nil, fmt.Errorf("%w: missing date or month range", ErrInvalidRequest)
	}

	payload, err := s.GetOccupancy(ctx, core.OccupancyQuery{
		Mode:   core.ModeHistory,
		Start:  monthStart,
		End:    monthEnd,
		Adults: 2,
	})
	if err != nil {
		return nil, err
	}

	var month core.OccupancyResponse
	if err := json.Unmarshal(payload, &month); err != nil {
		return nil, fmt.Errorf("decode cached month payload: %w", err)
	}

	detail := core.DayDetailResponse{
		Success:    true,
		Date:       date.String(),
		Properties: make([]core.DayDetail, 0, len(month.Properties)),
	}
	for _, p := range month.Properties {
		covering := make([]core.Reservation, 0, len(p.Reservations))
		for _, r := range p.Reservations {
			if r.Covers(date) {
				covering = append(covering, r)
			}
		}
		detail.Properties = append(detail.Properties, core.DayDetail{
			PropertyID:   p.ID,
			Name:         p.Name,
			Success:      p.Success,
			Error:        p.Error,
			Reservations: covering,
		})
	}
	return &detail, nil
}

// RoomAvailability probes per-room-type occupancy for one property.
func (s *Service) RoomAvailability(ctx context.Context, propertyID string) ([]core.RoomTypeOccupancy, error) {
	property, ok := s.propertyByID(propertyID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown property %q", ErrInvalidRequest, propertyID)
	}
	return s.client.GetRoomTypes(ctx, property)
}

// ListRooms fetches every property's room list, failures inline.
func (s *Service) ListRooms(ctx context.Context) []core.RoomsResult {
	out := make([]core.RoomsResult, len(s.properties))
	var wg sync.WaitGroup
	for i, p := range s.properties {
		wg.Add(1)
		go func(i int, p core.Property) {
			defer wg.Done()
			rooms, err := s.client.GetRooms(ctx, p)
			out[i] = core.RoomsResult{
				PropertyID: p.ID,
				Name:       p.Name,
				Success:    err == nil,
				Rooms:      rooms,
			}
			if err != nil {
				out[i].Error = err.Error()
				out[i].Rooms = []core.Room{}
			}
		}(i, p)
	}
	wg.Wait()
	return out
}

// Assignments fetches every property's room assignments for a day.
func (s *Service) Assignments(ctx context.Context, date core.LocalDate) ([]core.AssignmentsResult, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: missing date", ErrInvalidRequest)
	}
	out := make([]core.AssignmentsResult, len(s.properties))
	var wg sync.WaitGroup
	for i, p := range s.properties {
		wg.Add(1)
		go func(i int, p core.Property) {
			defer wg.Done()
			assignments, err := s.client.GetAssignments(ctx, p, date)
			out[i] = core.AssignmentsResult{
				PropertyID:  p.ID,
				Name:        p.Name,
				Success:     err == nil,
				Assignments: assignments,
			}
			if err != nil {
				out[i].Error = err.Error()
				out[i].Assignments = []core.Assignment{}
			}
		}(i, p)
	}
	wg.Wait()
	return out, nil
}

func (s *Service) propertyByID(id string) (core.Property, bool) {
	for _, p := range s.properties {
		if p.ID == id {
			return p, true
		}
	}
	return core.Property{}, false
}
