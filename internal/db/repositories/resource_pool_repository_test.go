package repositories

import (
	"context"
	"testing"

	"infinite-experiment/dispatchboard/internal/scheduling"
)

func TestResourcePoolRepo_SeedOnlyOnce(t *testing.T) {
	repo := NewResourcePoolRepo(setupTestSQLX(t, setupTestDB(t)))
	ctx := context.Background()

	if err := repo.Seed(ctx, scheduling.ClassGate, scheduling.DefaultGates(3)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := repo.Remove(ctx, scheduling.ClassGate, "G02"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := repo.Seed(ctx, scheduling.ClassGate, scheduling.DefaultGates(3)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	gates, err := repo.List(ctx, scheduling.ClassGate)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(gates) != 2 || gates[0] != "G01" || gates[1] != "G03" {
		t.Errorf("Expected [G01 G03], got %v", gates)
	}
}

func TestResourcePoolRepo_AddIsIdempotent(t *testing.T) {
	repo := NewResourcePoolRepo(setupTestSQLX(t, setupTestDB(t)))
	ctx := context.Background()

	added, err := repo.Add(ctx, scheduling.ClassGate, "G11")
	if err != nil || !added {
		t.Fatalf("Expected first add to write, got %v (%v)", added, err)
	}
	added, err = repo.Add(ctx, scheduling.ClassGate, "G11")
	if err != nil || added {
		t.Errorf("Expected second add to be a no-op, got %v (%v)", added, err)
	}

	counters, err := repo.List(ctx, scheduling.ClassCounter)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(counters) != 0 {
		t.Errorf("Expected classes to be separate, got %v", counters)
	}
}

func TestResourcePoolRepo_RemoveMissing(t *testing.T) {
	repo := NewResourcePoolRepo(setupTestSQLX(t, setupTestDB(t)))

	removed, err := repo.Remove(context.Background(), scheduling.ClassGate, "G99")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if removed {
		t.Error("Expected nothing removed")
	}
}
