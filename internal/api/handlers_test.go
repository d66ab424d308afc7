package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/logging"
	"infinite-experiment/dispatchboard/internal/metrics"
	"infinite-experiment/dispatchboard/internal/providers"
	"infinite-experiment/dispatchboard/internal/scheduling"
	"infinite-experiment/dispatchboard/internal/services"
)

var base = time.Date(2025, 5, 13, 10, 0, 0, 0, time.UTC)

// In-memory FlightStore
type memStore struct {
	mu        sync.Mutex
	flights   map[string]scheduling.FlightOperation
	mutateErr error
	nextID    int
}

func (m *memStore) Load(ctx context.Context, window scheduling.TimeRange) ([]scheduling.FlightOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []scheduling.FlightOperation
	for _, f := range m.flights {
		if window.Contains(f.OperativeTime) {
			out = append(out, f.Clone())
		}
	}
	return out, nil
}

func (m *memStore) Mutate(ctx context.Context, recordID string, write providers.AssignmentWrite) (scheduling.FlightOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutateErr != nil {
		return scheduling.FlightOperation{}, m.mutateErr
	}
	f, ok := m.flights[recordID]
	if !ok {
		return scheduling.FlightOperation{}, providers.ErrFlightNotFound
	}
	f = write.Apply(f)
	m.flights[recordID] = f
	return f, nil
}

func (m *memStore) Insert(ctx context.Context, flights []scheduling.FlightOperation) ([]scheduling.FlightOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]scheduling.FlightOperation, 0, len(flights))
	for _, f := range flights {
		m.nextID++
		f.RecordID = "imported-" + strconv.Itoa(m.nextID)
		m.flights[f.RecordID] = f
		out = append(out, f)
	}
	return out, nil
}

func (m *memStore) Delete(ctx context.Context, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.flights[recordID]; !ok {
		return providers.ErrFlightNotFound
	}
	delete(m.flights, recordID)
	return nil
}

func (m *memStore) Count(ctx context.Context, window scheduling.TimeRange) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, f := range m.flights {
		if window.Contains(f.OperativeTime) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Subscribe(ctx context.Context) (<-chan common.ChangeEvent, error) {
	ch := make(chan common.ChangeEvent)
	close(ch)
	return ch, nil
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router   chi.Router
	store    *memStore
	dispatch *services.DispatchService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logging.UseNop()

	store := &memStore{flights: map[string]scheduling.FlightOperation{
		"r1": {RecordID: "r1", ID: "VN1", OperativeTime: base, Gate: scheduling.Unassigned},
		"r2": {RecordID: "r2", ID: "VN2", OperativeTime: base.Add(5 * time.Minute), Gate: scheduling.Unassigned,
			Checkins: []scheduling.CheckinWindow{{CounterID: "01", Start: base.Add(-3 * time.Hour), End: base.Add(-40 * time.Minute)}}},
		"r3": {RecordID: "r3", ID: "VN3", OperativeTime: base.Add(50 * time.Minute), Gate: "G01"},
	}}
	reg := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	dispatch := services.NewDispatchService(store, nil, scheduling.DefaultGateBuffer, reg)
	require.NoError(t, dispatch.InitPool(context.Background(), scheduling.ResourcePool{
		Gates:    scheduling.DefaultGates(4),
		Counters: scheduling.DefaultCounters(),
	}))
	analysis := services.NewAnalysisService(dispatch, common.NewCacheService(60, 120), time.Minute, reg)
	h := NewHandlers(NewDependencies(dispatch, analysis))

	r := chi.NewRouter()
	r.Put("/window", h.SetWindow())
	r.Get("/flights", h.GetFlights())
	r.Post("/flights", h.ImportFlights())
	r.Delete("/flights/{record_id}", h.DeleteFlight())
	r.Put("/flights/{record_id}/gate", h.AssignGate())
	r.Delete("/flights/{record_id}/gate", h.UnassignGate())
	r.Put("/flights/{record_id}/checkins", h.SetCheckins())
	r.Put("/flights/{record_id}/checkins/{index}", h.MoveCheckin())
	r.Delete("/flights/{record_id}/checkins/{index}", h.RemoveCheckin())
	r.Get("/flights/{record_id}/checkins/default", h.DefaultCheckins())
	r.Get("/flights/{record_id}/checkins/overlap", h.CheckinOverlap())
	r.Get("/conflicts", h.Conflicts())
	r.Get("/queue", h.Queue())
	r.Get("/occupancy", h.Occupancy())
	r.Get("/capacity", h.Capacity())
	r.Get("/peak", h.Peak())
	r.Get("/density", h.Density())
	r.Get("/pool", h.GetPool())
	r.Put("/pool/gates/{gate_id}", h.AddGate())
	r.Delete("/pool/gates/{gate_id}", h.RemoveGate())
	r.Get("/buffer", h.GetBuffer())
	r.Put("/buffer", h.SetBuffer())

	return &testServer{router: r, store: store, dispatch: dispatch}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env), "body: %s", rr.Body.String())
	return rr.Code, env
}

func (s *testServer) load(t *testing.T) {
	t.Helper()
	code, _ := s.do(t, http.MethodPut, "/window", map[string]string{
		"start": "2025-05-13T08:00:00Z",
		"end":   "2025-05-13T18:00:00Z",
	})
	require.Equal(t, http.StatusOK, code)
}

func TestSetWindow(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPut, "/window", map[string]string{"start": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPut, "/window", map[string]string{"start": "2025-05-13T08:00:00Z"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPut, "/window", map[string]string{
		"start": "2025-05-13T18:00:00Z",
		"end":   "2025-05-13T08:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPut, "/window", map[string]string{
		"start": "2025-05-01T00:00:00Z",
		"end":   "2025-06-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, code, "longer than the window limit")
	assert.False(t, s.dispatch.Loaded())

	code, env := s.do(t, http.MethodPut, "/window", map[string]string{
		"start": "2025-05-13T08:00:00Z",
		"end":   "2025-05-13T18:00:00Z",
	})
	require.Equal(t, http.StatusOK, code)
	var snap services.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	require.Len(t, snap.Flights, 3)
	assert.Equal(t, "VN1", snap.Flights[0].ID)
	assert.True(t, snap.Window.Start.Equal(base.Add(-2*time.Hour)))
}

func TestGetFlights(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/flights", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "error", env.Status)

	code, _ = s.do(t, http.MethodGet, "/flights?from=2025-05-13T08:00:00Z&to=2025-05-13T18:00:00Z", nil)
	assert.Equal(t, http.StatusConflict, code, "a read never loads a window")
	assert.False(t, s.dispatch.Loaded())

	s.load(t)
	window := s.dispatch.Snapshot().Window

	code, _ = s.do(t, http.MethodGet, "/flights?from=yesterday&to=2025-05-13T18:00:00Z", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/flights?from=2025-05-13T08:00:00Z", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/flights?from=2025-05-13T18:00:00Z&to=2025-05-13T08:00:00Z", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/flights?from=2025-05-14T08:00:00Z&to=2025-05-14T18:00:00Z", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodGet, "/flights?from=2025-05-13T09:55:00Z&to=2025-05-13T10:10:00Z", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", env.Status)

	var snap services.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	require.Len(t, snap.Flights, 2)
	assert.Equal(t, "VN1", snap.Flights[0].ID)
	assert.Equal(t, "VN2", snap.Flights[1].ID)

	after := s.dispatch.Snapshot().Window
	assert.True(t, after.Start.Equal(window.Start), "reads leave the shared window alone")
	assert.True(t, after.End.Equal(window.End))

	code, env = s.do(t, http.MethodGet, "/flights", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Len(t, snap.Flights, 3)
}

func TestAssignGate(t *testing.T) {
	s := newTestServer(t)
	s.load(t)

	code, env := s.do(t, http.MethodPut, "/flights/r1/gate", map[string]string{"gate": "G02"})
	require.Equal(t, http.StatusOK, code)
	var res services.MutationResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "confirmed", res.Outcome)
	assert.Equal(t, "G02", res.Flight.Gate)

	code, _ = s.do(t, http.MethodPut, "/flights/r1/gate", map[string]string{"gate": "G77"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPut, "/flights/nope/gate", map[string]string{"gate": "G01"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPut, "/flights/r1/gate", map[string]string{"terminal": "T1"})
	assert.Equal(t, http.StatusBadRequest, code, "unknown fields are rejected")

	code, env = s.do(t, http.MethodDelete, "/flights/r1/gate", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, scheduling.Unassigned, res.Flight.Gate)
}

func TestAssignGate_RolledBack(t *testing.T) {
	s := newTestServer(t)
	s.load(t)
	s.store.mutateErr = errors.New("permission denied")

	code, env := s.do(t, http.MethodPut, "/flights/r1/gate", map[string]string{"gate": "G02"})
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "error", env.Status)

	var res services.MutationResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.RolledBack())
	assert.Equal(t, scheduling.Unassigned, res.Flight.Gate)
	assert.Contains(t, res.Reason, "permission denied")
}

func TestCheckinRoutes(t *testing.T) {
	s := newTestServer(t)
	s.load(t)

	code, _ := s.do(t, http.MethodPut, "/flights/r2/checkins/x", map[string]string{"counter": "02"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPut, "/flights/r2/checkins/3", map[string]string{"counter": "02"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := s.do(t, http.MethodPut, "/flights/r2/checkins/0", map[string]string{"counter": "02"})
	require.Equal(t, http.StatusOK, code)
	var res services.MutationResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "02", res.Flight.Checkins[0].CounterID)

	windows := map[string]any{"windows": []map[string]string{
		{"ctr": "05", "start": "2025-05-13T07:00:00Z", "end": "2025-05-13T09:20:00Z"},
		{"ctr": "06", "start": "2025-05-13T07:00:00Z", "end": "2025-05-13T06:00:00Z"},
	}}
	code, _ = s.do(t, http.MethodPut, "/flights/r1/checkins", windows)
	assert.Equal(t, http.StatusBadRequest, code)

	windows["windows"] = windows["windows"].([]map[string]string)[:1]
	code, env = s.do(t, http.MethodPut, "/flights/r1/checkins", windows)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res.Flight.Checkins, 1)
	assert.Equal(t, "05", res.Flight.Checkins[0].CounterID)

	code, env = s.do(t, http.MethodDelete, "/flights/r1/checkins/0", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Empty(t, res.Flight.Checkins)
}

func TestCheckinHelpers(t *testing.T) {
	s := newTestServer(t)
	s.load(t)

	code, env := s.do(t, http.MethodGet, "/flights/r1/checkins/default?counter=10&n=3", nil)
	require.Equal(t, http.StatusOK, code)
	var windows []scheduling.CheckinWindow
	require.NoError(t, json.Unmarshal(env.Data, &windows))
	require.Len(t, windows, 3)
	assert.Equal(t, "12", windows[2].CounterID)
	assert.True(t, windows[0].Start.Equal(base.Add(-3*time.Hour)))

	code, env = s.do(t, http.MethodGet, "/flights/r1/checkins/overlap?counter=01&start=2025-05-13T08:00:00Z&end=2025-05-13T09:00:00Z", nil)
	require.Equal(t, http.StatusOK, code)
	var check services.OverlapCheck
	require.NoError(t, json.Unmarshal(env.Data, &check))
	assert.True(t, check.Overlaps)
	assert.Equal(t, []string{"VN2"}, check.Flights)

	code, _ = s.do(t, http.MethodGet, "/flights/r1/checkins/overlap?counter=01", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestViews(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/queue", nil)
	assert.Equal(t, http.StatusConflict, code)

	s.load(t)

	code, _ = s.do(t, http.MethodGet, "/queue?zoom=0", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/queue?class=runway", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := s.do(t, http.MethodGet, "/queue?class=gate&zoom=3", nil)
	require.Equal(t, http.StatusOK, code)
	var queue services.QueueView
	require.NoError(t, json.Unmarshal(env.Data, &queue))
	assert.Len(t, queue.Items, 2, "r3 already holds a gate")

	code, env = s.do(t, http.MethodGet, "/conflicts?class=counter", nil)
	require.Equal(t, http.StatusOK, code)
	var conflicts services.ConflictView
	require.NoError(t, json.Unmarshal(env.Data, &conflicts))
	assert.Equal(t, scheduling.ClassCounter, conflicts.Class)
	assert.Len(t, conflicts.Lanes, len(scheduling.DefaultCounters()))
}

func TestAnalysisRoutes(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/occupancy", nil)
	assert.Equal(t, http.StatusConflict, code)

	s.load(t)

	code, env := s.do(t, http.MethodGet, "/occupancy?class=gate&from=2025-05-13T10:00:00Z&to=2025-05-13T10:00:00Z&demand=true", nil)
	require.Equal(t, http.StatusOK, code)
	var occ services.OccupancyResult
	require.NoError(t, json.Unmarshal(env.Data, &occ))
	require.Len(t, occ.Series, 1)
	assert.True(t, occ.Demand)
	assert.Equal(t, 2, occ.Series[0].Count, "r3's interval starts at 10:10")

	code, _ = s.do(t, http.MethodGet, "/occupancy?bucket=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/occupancy?hourly=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodGet, "/capacity?class=gate&hourly=true", nil)
	require.Equal(t, http.StatusOK, code)
	var capRes services.CapacityResult
	require.NoError(t, json.Unmarshal(env.Data, &capRes))
	assert.Equal(t, 4, capRes.Summary.PoolSize)

	code, _ = s.do(t, http.MethodGet, "/peak?bucket=30", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/density", nil)
	require.Equal(t, http.StatusOK, code)
	var density scheduling.DensityMatrix
	require.NoError(t, json.Unmarshal(env.Data, &density))
	assert.Equal(t, 3, density.HourlyTotals[10])

	// ranges past the loaded window have no flights to count
	code, _ = s.do(t, http.MethodGet, "/occupancy?class=gate&from=2025-05-13T12:00:00Z&to=2025-05-13T20:00:00Z", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/density?from=2025-05-12T08:00:00Z&to=2025-05-13T08:00:00Z", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAnalysisRoutes_SeriesLengthIsBounded(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodPut, "/window", map[string]string{
		"start": "2025-05-10T00:00:00Z",
		"end":   "2025-05-24T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/occupancy?class=gate&bucket=1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/capacity?class=counter&bucket=1&hourly=true", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := s.do(t, http.MethodGet, "/occupancy?class=gate&bucket=60", nil)
	require.Equal(t, http.StatusOK, code)
	var occ services.OccupancyResult
	require.NoError(t, json.Unmarshal(env.Data, &occ))
	assert.Len(t, occ.Series, 14*24+1)
}

func TestPoolAndBuffer(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPut, "/pool/gates/G09", nil)
	require.Equal(t, http.StatusOK, code)
	var pool scheduling.ResourcePool
	require.NoError(t, json.Unmarshal(env.Data, &pool))
	assert.Contains(t, pool.Gates, "G09")

	code, _ = s.do(t, http.MethodDelete, "/pool/gates/G42", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPut, "/buffer", map[string]int{"pre_minutes": -1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodPut, "/buffer", map[string]int{"post_minutes": 25})
	require.Equal(t, http.StatusOK, code)
	var buf scheduling.GateBuffer
	require.NoError(t, json.Unmarshal(env.Data, &buf))
	assert.Equal(t, scheduling.GateBuffer{PreMinutes: 40, PostMinutes: 25}, buf)
	assert.Equal(t, buf, s.dispatch.GateBuffer())
}

func TestImportAndDelete(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/flights", map[string]any{"flights": []any{}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := s.do(t, http.MethodPost, "/flights", map[string]any{"flights": []map[string]any{
		{"flight_no": "VN900", "target_time": "2025-05-13T12:00:00Z", "ac_type": "787"},
		{"flight_no": "VN901", "target_time": "2025-05-13T12:30:00Z", "gate": "G02"},
	}})
	require.Equal(t, http.StatusCreated, code)
	var imported struct {
		Inserted int      `json:"inserted"`
		IDs      []string `json:"record_ids"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &imported))
	assert.Equal(t, 2, imported.Inserted)
	assert.Len(t, s.store.flights, 5)

	code, _ = s.do(t, http.MethodDelete, "/flights/"+imported.IDs[0], nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodDelete, "/flights/"+imported.IDs[0], nil)
	assert.Equal(t, http.StatusNotFound, code)
}
