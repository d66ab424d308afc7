package dtos

import (
	"testing"
	"time"

	"infinite-experiment/dispatchboard/internal/scheduling"
)

func TestImportRequest_ToOperations(t *testing.T) {
	target := time.Date(2025, 5, 13, 12, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	req := ImportRequest{Flights: []ImportFlight{{
		FlightNo:   " VN123 ",
		TargetTime: target,
		IsETD:      true,
		ACType:     "321",
		Checkins: []CheckinWindowDTO{
			{Counter: "01", Start: target.Add(-3 * time.Hour), End: target.Add(-40 * time.Minute)},
		},
	}}}

	ops, err := req.ToOperations()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	op := ops[0]
	if op.ID != "VN123" {
		t.Errorf("Expected trimmed flight number, got %q", op.ID)
	}
	if op.Gate != scheduling.Unassigned {
		t.Errorf("Expected unassigned gate, got %q", op.Gate)
	}
	if op.OperativeTime.Location() != time.UTC || !op.OperativeTime.Equal(target) {
		t.Errorf("Expected UTC operative time, got %s", op.OperativeTime)
	}
	if len(op.Checkins) != 1 || op.Checkins[0].CounterID != "01" {
		t.Errorf("Unexpected check-ins %+v", op.Checkins)
	}
}

func TestImportRequest_Rejects(t *testing.T) {
	target := time.Date(2025, 5, 13, 12, 0, 0, 0, time.UTC)
	inverted := ImportRequest{Flights: []ImportFlight{{
		FlightNo:   "VN1",
		TargetTime: target,
		Checkins:   []CheckinWindowDTO{{Counter: "01", Start: target, End: target.Add(-time.Hour)}},
	}}}
	cases := map[string]ImportRequest{
		"empty":           {},
		"no number":       {Flights: []ImportFlight{{TargetTime: target}}},
		"no target time":  {Flights: []ImportFlight{{FlightNo: "VN1"}}},
		"inverted window": inverted,
	}
	for name, req := range cases {
		if _, err := req.ToOperations(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestBufferRequest_Merge(t *testing.T) {
	pre := 30
	got := BufferRequest{PreMinutes: &pre}.Buffer(scheduling.DefaultGateBuffer)
	if got.PreMinutes != 30 || got.PostMinutes != 15 {
		t.Errorf("Unexpected buffer %+v", got)
	}
}
