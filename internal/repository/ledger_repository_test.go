package repository

import (
	"context"
	"testing"

	"github.com/lewtec/triador/internal/domain"
)

func TestLedgerRepository_PutAndGet(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)
	ctx := context.Background()

	t.Run("returns nil for unknown hash", func(t *testing.T) {
		rec, err := repo.Get(ctx, "deadbeef")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if rec != nil {
			t.Errorf("expected nil record, got %+v", rec)
		}
	})

	t.Run("stores and retrieves a record", func(t *testing.T) {
		if err := repo.Put(ctx, "hash1", "cats"); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		rec, err := repo.Get(ctx, "hash1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if rec == nil {
			t.Fatal("expected record, got nil")
		}
		if rec.Category != "cats" {
			t.Errorf("Category = %v, want cats", rec.Category)
		}
		if rec.TrainedAt.IsZero() {
			t.Error("TrainedAt should not be zero")
		}
	})

	t.Run("upserts on existing hash", func(t *testing.T) {
		if err := repo.Put(ctx, "hash1", "dogs"); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		rec, err := repo.Get(ctx, "hash1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if rec.Category != "dogs" {
			t.Errorf("Category = %v, want dogs", rec.Category)
		}
		count, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count != 1 {
			t.Errorf("Count = %d, want 1", count)
		}
	})
}

func TestLedgerRepository_Snapshot(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)
	ctx := context.Background()

	snapshot, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snapshot) != 0 {
		t.Errorf("expected empty snapshot, got %d entries", len(snapshot))
	}

	if err := repo.Put(ctx, "hash1", "cats"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := repo.Put(ctx, "hash2", "dogs"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	snapshot, err = repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snapshot))
	}
	if snapshot["hash1"] != "cats" || snapshot["hash2"] != "dogs" {
		t.Errorf("unexpected snapshot contents: %v", snapshot)
	}
}

func TestLedgerRepository_Replace(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)
	ctx := context.Background()

	if err := repo.Put(ctx, "old", "cats"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	records := []domain.TrainingRecord{
		{ContentHash: "new1", Category: "dogs"},
		{ContentHash: "new2", Category: "birds"},
	}
	if err := repo.Replace(ctx, records); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	snapshot, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 entries after replace, got %d", len(snapshot))
	}
	if _, ok := snapshot["old"]; ok {
		t.Error("replaced ledger still contains old entry")
	}

	t.Run("replace with nil clears the ledger", func(t *testing.T) {
		if err := repo.Replace(ctx, nil); err != nil {
			t.Fatalf("Replace() error = %v", err)
		}
		count, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count != 0 {
			t.Errorf("Count = %d, want 0", count)
		}
	})
}
