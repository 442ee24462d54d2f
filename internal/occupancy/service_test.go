package occupancy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aangelzurita/calendario-cloudbeds/internal/cache"
	"github.com/aangelzurita/calendario-cloudbeds/internal/core"
)

type fakeFetcher struct {
	mu       sync.Mutex
	calls    int64
	inUse    int64
	maxInUse int64
	delay    time.Duration
	results  map[string]core.PropertyResult
}

func (f *fakeFetcher) FetchProperty(_ context.Context, p core.Property, _ core.OccupancyQuery) core.PropertyResult {
	atomic.AddInt64(&f.calls, 1)
	cur := atomic.AddInt64(&f.inUse, 1)
	defer atomic.AddInt64(&f.inUse, -1)

	f.mu.Lock()
	if cur > f.maxInUse {
		f.maxInUse = cur
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if r, ok := f.results[p.ID]; ok {
		return r
	}
	return core.PropertyResult{PropertyID: p.ID, Name: p.Name, Success: true}
}

func monthQuery() core.OccupancyQuery {
	return core.OccupancyQuery{
		Mode:   core.ModeHistory,
		Start:  core.LocalDate{Year: 2025, Month: 11, Day: 1},
		End:    core.LocalDate{Year: 2025, Month: 11, Day: 30},
		Adults: 2,
	}
}

func newTestService(f *fakeFetcher, c *cache.Cache) *Service {
	return NewService(ServiceOptions{
		Properties: canonical,
		Fetcher:    f,
		Cache:      c,
		CacheTTL:   time.Minute,
	})
}

func TestGetOccupancyIdempotentWithinTTL(t *testing.T) {
	f := &fakeFetcher{}
	s := newTestService(f, cache.New())

	first, err := s.GetOccupancy(context.Background(), monthQuery())
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.GetOccupancy(context.Background(), monthQuery())
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Fatal("cached payload differs from original")
	}
	if got := atomic.LoadInt64(&f.calls); got != int64(len(canonical)) {
		t.Fatalf("fetch calls = %d, want %d (second request must not refetch)", got, len(canonical))
	}
}

func TestGetOccupancyRefetchesAfterTTL(t *testing.T) {
	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeFetcher{}
	s := NewService(ServiceOptions{
		Properties: canonical,
		Fetcher:    f,
		Cache:      cache.NewWithClock(func() time.Time { return now }),
		CacheTTL:   time.Minute,
	})

	if _, err := s.GetOccupancy(context.Background(), monthQuery()); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := s.GetOccupancy(context.Background(), monthQuery()); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&f.calls); got != int64(2*len(canonical)) {
		t.Fatalf("fetch calls = %d, want %d", got, 2*len(canonical))
	}
}

func TestPartialFailureIsolation(t *testing.T) {
	f := &fakeFetcher{
		results: map[string]core.PropertyResult{
			"lapunta": {PropertyID: "lapunta", Name: "Aguamiel La Punta", Success: false, Error: "token refresh failed: invalid_grant"},
			"aguablanca": {
				PropertyID: "aguablanca",
				Name:       "Aguamiel Agua Blanca",
				Success:    true,
				Reservations: []core.Reservation{
					{ID: "r1", StartDate: d(2025, 11, 5), EndDate: d(2025, 11, 8)},
				},
			},
		},
	}
	s := newTestService(f, cache.New())

	payload, err := s.GetOccupancy(context.Background(), monthQuery())
	if err != nil {
		t.Fatal(err)
	}

	var resp core.OccupancyResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		t.Fatal(err)
	}

	if !resp.Success {
		t.Fatal("top-level success must be true despite one failed property")
	}
	if resp.Degraded {
		t.Fatal("degraded must be false when some property succeeded")
	}

	byID := map[string]core.MergedProperty{}
	for _, p := range resp.Properties {
		byID[p.ID] = p
	}
	if byID["lapunta"].Success || byID["lapunta"].Error == "" {
		t.Fatalf("lapunta = %+v", byID["lapunta"])
	}
	if !byID["aguablanca"].Success {
		t.Fatalf("aguablanca = %+v", byID["aguablanca"])
	}
	if !byID["aguablanca"].Occupancy[4] || byID["aguablanca"].Occupancy[7] {
		t.Fatalf("aguablanca occupancy = %v", byID["aguablanca"].Occupancy[:10])
	}
}

func TestDegradedWhenEveryPropertyFails(t *testing.T) {
	f := &fakeFetcher{results: map[string]core.PropertyResult{}}
	for _, p := range canonical {
		f.results[p.ID] = core.PropertyResult{PropertyID: p.ID, Name: p.Name, Success: false, Error: "down"}
	}
	s := newTestService(f, cache.New())

	payload, err := s.GetOccupancy(context.Background(), monthQuery())
	if err != nil {
		t.Fatal(err)
	}

	var resp core.OccupancyResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Fatal("degraded responses are still renderable: success must stay true")
	}
	if !resp.Degraded {
		t.Fatal("expected degraded flag")
	}
	if len(resp.Properties) != len(canonical) {
		t.Fatalf("properties = %d, want full canonical list", len(resp.Properties))
	}
}

func TestFanOutPreservesOrderAndBound(t *testing.T) {
	props := make([]core.Property, 8)
	for i := range props {
		props[i] = core.Property{ID: string(rune('a' + i)), Name: "P"}
	}
	f := &fakeFetcher{delay: 20 * time.Millisecond}
	s := NewService(ServiceOptions{
		Properties:  props,
		Fetcher:     f,
		Concurrency: 3,
		CacheTTL:    time.Minute,
	})

	payload, err := s.GetOccupancy(context.Background(), monthQuery())
	if err != nil {
		t.Fatal(err)
	}

	var resp core.OccupancyResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		t.Fatal(err)
	}
	for i, p := range props {
		if resp.Properties[i].ID != p.ID {
			t.Fatalf("position %d = %s, want %s", i, resp.Properties[i].ID, p.ID)
		}
	}

	f.mu.Lock()
	peak := f.maxInUse
	f.mu.Unlock()
	if peak > 3 {
		t.Fatalf("observed %d concurrent fetches, bound is 3", peak)
	}
}

func TestParseQuery(t *testing.T) {
	if _, err := ParseQuery(core.ModeHistory, "", "2025-11-30", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing start: err = %v", err)
	}
	if _, err := ParseQuery(core.ModeHistory, "2025-11-01", "", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing end: err = %v", err)
	}
	if _, err := ParseQuery(core.ModeHistory, "not-a-date", "2025-11-30", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("malformed start: err = %v", err)
	}
	if _, err := ParseQuery(core.ModeHistory, "2025-11-30", "2025-11-01", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("inverted range: err = %v", err)
	}
	if _, err := ParseQuery(core.ModeAvailability, "2025-11-01", "2025-11-30", "zero"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("bad adults: err = %v", err)
	}

	q, err := ParseQuery(core.ModeAvailability, "2025-11-01", "2025-11-30", "")
	if err != nil {
		t.Fatal(err)
	}
	if q.Adults != 2 {
		t.Fatalf("default adults = %d, want 2", q.Adults)
	}
}

func TestInvalidQueryMakesNoUpstreamCalls(t *testing.T) {
	f := &fakeFetcher{}
	s := newTestService(f, cache.New())

	_, err := s.GetOccupancy(context.Background(), core.OccupancyQuery{Mode: core.ModeHistory})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v", err)
	}
	if atomic.LoadInt64(&f.calls) != 0 {
		t.Fatal("invalid request must not reach upstream")
	}
}

func TestGetReservationsForDay(t *testing.T) {
	f := &fakeFetcher{
		results: map[string]core.PropertyResult{
			"lapunta": {
				PropertyID: "lapunta",
				Name:       "Aguamiel La Punta",
				Success:    true,
				Reservations: []core.Reservation{
					{ID: "covers", StartDate: d(2025, 11, 5), EndDate: d(2025, 11, 8)},
					{ID: "checkout-day", StartDate: d(2025, 11, 1), EndDate: d(2025, 11, 6)},
					{ID: "elsewhere", StartDate: d(2025, 11, 20), EndDate: d(2025, 11, 22)},
				},
			},
		},
	}
	s := newTestService(f, cache.New())

	detail, err := s.GetReservationsForDay(context.Background(),
		d(2025, 11, 6),
		d(2025, 11, 1),
		d(2025, 11, 30),
	)
	if err != nil {
		t.Fatal(err)
	}

	var lapunta *core.DayDetail
	for i := range detail.Properties {
		if detail.Properties[i].PropertyID == "lapunta" {
			lapunta = &detail.Properties[i]
		}
	}
	if lapunta == nil {
		t.Fatal("lapunta missing from day detail")
	}
	if len(lapunta.Reservations) != 1 || lapunta.Reservations[0].ID != "covers" {
		// the Nov 1-6 stay checks out on the 6th, so it must not
		// appear for that day
		t.Fatalf("day reservations = %+v", lapunta.Reservations)
	}

	// the day lookup reuses the month aggregate from cache
	if _, err := s.GetReservationsForDay(context.Background(), d(2025, 11, 7), d(2025, 11, 1), d(2025, 11, 30)); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt64(&f.calls); got != int64(len(canonical)) {
		t.Fatalf("fetch calls = %d, want %d", got, len(canonical))
	}
}
