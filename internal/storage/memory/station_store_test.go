package memory

import (
	"context"
	"errors"
	"testing"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/storage"
)

func TestStationStore_InsertAssignsIDs(t *testing.T) {
	store := NewStationStore()
	ctx := context.Background()

	a := domain.NewStation(0, "Shell Berlin", "https://www.shell.de/berlin", "Berlin", domain.Color{R: 1})
	b := domain.NewStation(0, "Shell Hamburg", "https://www.shell.de/hamburg", "Hamburg", domain.Color{G: 1})

	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, b); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if a.ID != 1 || b.ID != 2 {
		t.Errorf("ids: got %d, %d, want 1, 2", a.ID, b.ID)
	}

	got, err := store.GetByID(ctx, 2)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Shell Hamburg" || got.Address != "Hamburg" {
		t.Errorf("unexpected station: %+v", got)
	}
}

func TestStationStore_DuplicateNameIgnoresCase(t *testing.T) {
	store := NewStationStore()
	ctx := context.Background()

	if err := store.Insert(ctx, domain.NewStation(0, "Shell Berlin", "", "", domain.Color{})); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := store.Insert(ctx, domain.NewStation(0, "SHELL berlin", "", "", domain.Color{}))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestStationStore_InvalidInput(t *testing.T) {
	store := NewStationStore()

	err := store.Insert(context.Background(), domain.NewStation(0, "  ", "", "", domain.Color{}))
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestStationStore_GetByName(t *testing.T) {
	store := NewStationStore()
	ctx := context.Background()

	if err := store.Insert(ctx, domain.NewStation(0, "Aral Mitte", "", "", domain.Color{})); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByName(ctx, "aral mitte")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if got.ID != 1 {
		t.Errorf("ID: got %d, want 1", got.ID)
	}

	_, err = store.GetByName(ctx, "aral")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStationStore_UpdateAndDelete(t *testing.T) {
	store := NewStationStore()
	ctx := context.Background()

	st := domain.NewStation(0, "Aral Mitte", "", "", domain.Color{})
	if err := store.Insert(ctx, st); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	st.Address = "Mitte 1"
	if err := store.Update(ctx, st); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ := store.GetByID(ctx, st.ID)
	if got.Address != "Mitte 1" {
		t.Errorf("Address: got %q, want %q", got.Address, "Mitte 1")
	}

	if err := store.Delete(ctx, st.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, st.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.Update(ctx, st); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStationStore_ReturnsCopies(t *testing.T) {
	store := NewStationStore()
	ctx := context.Background()

	st := domain.NewStation(0, "Aral Mitte", "", "", domain.Color{})
	if err := store.Insert(ctx, st); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	st.Name = "changed"
	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	all[0].Address = "changed"

	got, _ := store.GetByID(ctx, st.ID)
	if got.Name != "Aral Mitte" || got.Address != "" {
		t.Errorf("store was mutated through a returned pointer: %+v", got)
	}
}
