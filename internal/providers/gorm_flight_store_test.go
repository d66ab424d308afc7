package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/constants"
	"infinite-experiment/dispatchboard/internal/db"
	"infinite-experiment/dispatchboard/internal/db/repositories"
	"infinite-experiment/dispatchboard/internal/logging"
	"infinite-experiment/dispatchboard/internal/scheduling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var base = time.Date(2025, 5, 13, 10, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) (*GormFlightStore, *common.LocalNotifier) {
	t.Helper()
	logging.UseNop()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(gdb))

	n := common.NewLocalNotifier()
	t.Cleanup(func() { n.Close() })
	return NewGormFlightStore(repositories.NewFlightRepo(gdb), n), n
}

func flight(no string, offsetMin int) scheduling.FlightOperation {
	return scheduling.FlightOperation{
		ID:            no,
		OperativeTime: base.Add(time.Duration(offsetMin) * time.Minute),
		AircraftType:  "A321",
	}
}

func TestGormFlightStore_InsertAssignsIDsAndDefaults(t *testing.T) {
	store, _ := setupStore(t)

	out, err := store.Insert(context.Background(), []scheduling.FlightOperation{flight("VN123", 0)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NotEmpty(t, out[0].RecordID)
	assert.Equal(t, scheduling.Unassigned, out[0].Gate)
	assert.Equal(t, "C", out[0].AircraftCategory)

	loaded, err := store.Load(context.Background(), scheduling.TimeRange{Start: base, End: base.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, out[0].RecordID, loaded[0].RecordID)
	assert.False(t, loaded[0].HasGate())
}

func TestGormFlightStore_InsertRejectsBadWindow(t *testing.T) {
	store, _ := setupStore(t)
	f := flight("VN1", 0)
	f.Checkins = []scheduling.CheckinWindow{{CounterID: "01", Start: base, End: base}}

	_, err := store.Insert(context.Background(), []scheduling.FlightOperation{f})
	assert.ErrorIs(t, err, scheduling.ErrInvalidArgument)
}

func TestGormFlightStore_MutatePublishesUpdate(t *testing.T) {
	store, n := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := store.Insert(context.Background(), []scheduling.FlightOperation{flight("VN1", 0)})
	require.NoError(t, err)

	events, err := n.Subscribe(ctx)
	require.NoError(t, err)

	got, err := store.Mutate(context.Background(), out[0].RecordID, GateWrite("G04"))
	require.NoError(t, err)
	assert.Equal(t, "G04", got.Gate)

	select {
	case ev := <-events:
		assert.Equal(t, constants.ChangeUpdate, ev.Type)
		require.NotNil(t, ev.Flight)
		assert.Equal(t, "G04", ev.Flight.Gate)
	case <-time.After(time.Second):
		t.Fatal("no update event")
	}
}

func TestGormFlightStore_MutateCheckins(t *testing.T) {
	store, _ := setupStore(t)
	out, err := store.Insert(context.Background(), []scheduling.FlightOperation{flight("VN1", 240)})
	require.NoError(t, err)

	windows := []scheduling.CheckinWindow{
		{CounterID: "12", Start: base.Add(60 * time.Minute), End: base.Add(200 * time.Minute)},
	}
	got, err := store.Mutate(context.Background(), out[0].RecordID, CheckinWrite(windows))
	require.NoError(t, err)
	require.Len(t, got.Checkins, 1)
	assert.Equal(t, "12", got.Checkins[0].CounterID)
	assert.True(t, got.Checkins[0].End.Equal(base.Add(200*time.Minute)))
}

func TestGormFlightStore_MutateRejections(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.Mutate(context.Background(), "missing", GateWrite("G01"))
	assert.ErrorIs(t, err, scheduling.ErrMutationRejected)
	assert.ErrorIs(t, err, ErrFlightNotFound)

	bad := CheckinWrite([]scheduling.CheckinWindow{{CounterID: "01", Start: base.Add(time.Hour), End: base}})
	_, err = store.Mutate(context.Background(), "missing", bad)
	assert.ErrorIs(t, err, scheduling.ErrMutationRejected)
	assert.ErrorIs(t, err, scheduling.ErrInvalidArgument)
}

func TestGormFlightStore_CountMatchesLoad(t *testing.T) {
	store, _ := setupStore(t)
	_, err := store.Insert(context.Background(), []scheduling.FlightOperation{
		flight("VN1", 0), flight("VN2", 60), flight("VN3", 61),
	})
	require.NoError(t, err)

	window := scheduling.TimeRange{Start: base, End: base.Add(time.Hour)}
	n, err := store.Count(context.Background(), window)
	require.NoError(t, err)
	loaded, err := store.Load(context.Background(), window)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, loaded, int(n))

	_, err = store.Count(context.Background(), scheduling.TimeRange{Start: base, End: base.Add(-time.Minute)})
	assert.ErrorIs(t, err, scheduling.ErrInvalidArgument)
}

func TestGormFlightStore_Delete(t *testing.T) {
	store, _ := setupStore(t)
	out, err := store.Insert(context.Background(), []scheduling.FlightOperation{flight("VN1", 0)})
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), out[0].RecordID))
	err = store.Delete(context.Background(), out[0].RecordID)
	assert.True(t, errors.Is(err, ErrFlightNotFound))
}

func TestAssignmentWrite_Apply(t *testing.T) {
	f := flight("VN1", 0)
	f.Checkins = []scheduling.CheckinWindow{{CounterID: "01", Start: base, End: base.Add(time.Hour)}}

	gated := GateWrite("G02").Apply(f)
	assert.Equal(t, "G02", gated.Gate)
	assert.Equal(t, f.Checkins, gated.Checkins)
	assert.Equal(t, "", f.Gate, "input must not change")

	cleared := CheckinWrite(nil).Apply(f)
	assert.Empty(t, cleared.Checkins)
	assert.Len(t, f.Checkins, 1)

	assert.Equal(t, scheduling.Unassigned, GateWrite("").Gate)
}
