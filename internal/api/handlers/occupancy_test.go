package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aangelzurita/calendario-cloudbeds/internal/api/handlers"
	"github.com/aangelzurita/calendario-cloudbeds/internal/core"
	"github.com/aangelzurita/calendario-cloudbeds/internal/occupancy"
)

type fakeFetcher struct {
	calls int64
}

func (f *fakeFetcher) FetchProperty(_ context.Context, p core.Property, _ core.OccupancyQuery) core.PropertyResult {
	atomic.AddInt64(&f.calls, 1)
	return core.PropertyResult{
		PropertyID: p.ID,
		Name:       p.Name,
		Success:    true,
		Reservations: []core.Reservation{
			{ID: "r1",
				StartDate: core.LocalDate{Year: 2025, Month: time.November, Day: 5},
				EndDate:   core.LocalDate{Year: 2025, Month: time.November, Day: 8}},
		},
	}
}

func newTestRouter(f *fakeFetcher) *gin.Engine {
	gin.SetMode(gin.TestMode)

	service := occupancy.NewService(occupancy.ServiceOptions{
		Properties: []core.Property{{ID: "lapunta", Name: "Aguamiel La Punta"}},
		Fetcher:    f,
		CacheTTL:   time.Minute,
	})

	h := handlers.NewOccupancyHandler(service, zap.NewNop())
	router := gin.New()
	router.GET("/api/cloudbeds/reservations", h.GetReservations)
	router.GET("/api/cloudbeds/reservations-by-date", h.GetReservationsByDate)
	return router
}

func TestReservationsEndpoint(t *testing.T) {
	f := &fakeFetcher{}
	router := newTestRouter(f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/cloudbeds/reservations?startDate=2025-11-01&endDate=2025-11-30", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp core.OccupancyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || len(resp.Properties) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	occ := resp.Properties[0].Occupancy
	if len(occ) != 30 || !occ[4] || !occ[6] || occ[7] {
		t.Fatalf("occupancy = %v", occ[:10])
	}
}

func TestReservationsMissingParams(t *testing.T) {
	f := &fakeFetcher{}
	router := newTestRouter(f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/cloudbeds/reservations?startDate=2025-11-01", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["success"] != false {
		t.Fatalf("body = %v", resp)
	}
	if msg, _ := resp["message"].(string); msg == "" {
		t.Fatal("expected descriptive message")
	}
	if atomic.LoadInt64(&f.calls) != 0 {
		t.Fatal("invalid request must not reach upstream")
	}
}

func TestSecondRequestServedFromCache(t *testing.T) {
	f := &fakeFetcher{}
	router := newTestRouter(f)

	var bodies []string
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/cloudbeds/reservations?startDate=2025-11-01&endDate=2025-11-30", nil)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
		bodies = append(bodies, w.Body.String())
	}

	if bodies[0] != bodies[1] {
		t.Fatal("cached response differs")
	}
	if got := atomic.LoadInt64(&f.calls); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
}

func TestReservationsByDateMissingParams(t *testing.T) {
	router := newTestRouter(&fakeFetcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/cloudbeds/reservations-by-date?date=2025-11-06", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestReservationsByDate(t *testing.T) {
	router := newTestRouter(&fakeFetcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/cloudbeds/reservations-by-date?date=2025-11-06&monthStart=2025-11-01&monthEnd=2025-11-30", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp core.DayDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Date != "2025-11-06" {
		t.Fatalf("response = %+v", resp)
	}
	if len(resp.Properties) != 1 || len(resp.Properties[0].Reservations) != 1 {
		t.Fatalf("properties = %+v", resp.Properties)
	}
}
