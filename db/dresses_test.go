package db

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestDressCRUD(t *testing.T) {
	testDB := setupTestDB(t)
	ctx := context.Background()

	id, err := testDB.DressCreate(ctx, Dress{
		Name:      "Vera gown",
		BasePrice: 450,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := testDB.DressGet(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	want := Dress{
		ID:          id,
		Name:        "Vera gown",
		BasePrice:   450,
		Status:      DressAvailable, // defaulted
		IntendedUse: UseRental,      // defaulted
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Dress{}, "CreatedAt")); diff != "" {
		t.Errorf("dress mismatch (-want +got):\n%s", diff)
	}

	got.Status = DressRetired
	got.Notes = "hem damage"
	if err := testDB.DressUpdate(ctx, got); err != nil {
		t.Fatal(err)
	}
	if err := testDB.DressPhotoUpdate(ctx, id, "dresses/1/photo.jpg"); err != nil {
		t.Fatal(err)
	}
	updated, err := testDB.DressGet(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != DressRetired || updated.Notes != "hem damage" {
		t.Errorf("update not applied: %+v", updated)
	}
	if updated.PhotoPath != "dresses/1/photo.jpg" {
		t.Errorf("photo path: %q", updated.PhotoPath)
	}
}

func TestDressesGetFilters(t *testing.T) {
	testDB := setupTestDB(t)
	ctx := context.Background()

	mustCreateDress(t, testDB, "Vera gown", 450, UseRental)
	mustCreateDress(t, testDB, "Silk slip", 300, UseSale)
	retiredID := mustCreateDress(t, testDB, "Old lace", 200, UseRental)
	retired, err := testDB.DressGet(ctx, retiredID)
	if err != nil {
		t.Fatal(err)
	}
	retired.Status = DressRetired
	if err := testDB.DressUpdate(ctx, retired); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		status      string
		intendedUse string
		search      string
		want        int
	}{
		{"all", "", "", "", 3},
		{"available only", DressAvailable, "", "", 2},
		{"sale stock", "", UseSale, "", 1},
		{"name search", "", "", "gown", 1},
		{"status and search", DressRetired, "", "lace", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dresses, err := testDB.DressesGet(ctx, tt.status, tt.intendedUse, tt.search, 10, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(dresses) != tt.want {
				t.Errorf("got %d dresses, want %d", len(dresses), tt.want)
			}
		})
	}
}

// TestDressActivity covers the lifetime figures: they are bumped when
// an order item is created and never wound back by a cancellation.
func TestDressActivity(t *testing.T) {
	testDB := setupTestDB(t)
	ctx := context.Background()

	customerID := mustCreateCustomer(t, testDB, "Dana Levi", "0501111111")
	dressID := mustCreateDress(t, testDB, "Vera gown", 450, UseRental)

	orderID, err := testDB.OrderCreate(ctx, NewOrder{
		CustomerID: &customerID,
		EventDate:  "2026-06-01",
		TotalPrice: 500,
		Items: []NewOrderItem{
			{DressID: &dressID, ItemType: ItemRental, BasePrice: 450, AdditionalPayments: 50},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	dress, err := testDB.DressGet(ctx, dressID)
	if err != nil {
		t.Fatal(err)
	}
	if dress.RentalCount != 1 || dress.TotalIncome != 500 {
		t.Errorf("activity: count %d income %v", dress.RentalCount, dress.TotalIncome)
	}

	history, err := testDB.DressHistoryGet(ctx, dressID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("got %d history entries, want 1", len(history))
	}
	entry := history[0]
	if entry.OrderID != orderID || entry.CustomerID != customerID ||
		entry.Amount != 500 || entry.EntryType != ItemRental ||
		entry.CustomerName != "Dana Levi" {
		t.Errorf("history entry: %+v", entry)
	}

	// Cancelling leaves the lifetime figures alone.
	if err := testDB.OrderCancel(ctx, orderID); err != nil {
		t.Fatal(err)
	}
	dress, err = testDB.DressGet(ctx, dressID)
	if err != nil {
		t.Fatal(err)
	}
	if dress.RentalCount != 1 || dress.TotalIncome != 500 {
		t.Errorf("figures changed by cancel: count %d income %v", dress.RentalCount, dress.TotalIncome)
	}
}
