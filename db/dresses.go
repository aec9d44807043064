package db

// dresses.go deals with dress inventory database calls, including the
// sale-status synchronisation run by the order operations.

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Dress statuses. Available, rented and sold are working states; a
// retired dress stays retired regardless of order activity.
const (
	DressAvailable = "available"
	DressRented    = "rented"
	DressSold      = "sold"
	DressRetired   = "retired"
)

// Dress intended uses.
const (
	UseRental = "rental"
	UseSale   = "sale"
)

// Dress is an inventory item. TotalIncome and RentalCount are
// lifetime aggregates, incremented when a linked order item is
// created and never decremented by cancellations or merges.
type Dress struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	BasePrice   float64 `db:"base_price" json:"basePrice"`
	TotalIncome float64 `db:"total_income" json:"totalIncome"`
	RentalCount int     `db:"rental_count" json:"rentalCount"`
	Status      string  `db:"status" json:"status"`
	IntendedUse string  `db:"intended_use" json:"intendedUse"`
	PhotoPath   string  `db:"photo_path" json:"photoPath"`
	Notes       string  `db:"notes" json:"notes"`
	CreatedAt   string  `db:"created_at" json:"createdAt"`
	RowCount    int     `db:"row_count" json:"-"`
}

// DressHistoryEntry is an append-only activity log row for a dress.
type DressHistoryEntry struct {
	ID           int64   `db:"id" json:"id"`
	DressID      int64   `db:"dress_id" json:"dressId"`
	CustomerID   int64   `db:"customer_id" json:"customerId"`
	OrderID      int64   `db:"order_id" json:"orderId"`
	Amount       float64 `db:"amount" json:"amount"`
	EntryType    string  `db:"entry_type" json:"entryType"`
	CreatedAt    string  `db:"created_at" json:"createdAt"`
	CustomerName string  `db:"customer_name" json:"customerName"`
}

// DressesGet returns a page of dresses, newest first, optionally
// narrowed by status, intended use and a name search. Empty filter
// values are ignored.
func (db *DB) DressesGet(ctx context.Context, status, intendedUse, search string, limit, offset int) ([]Dress, error) {
	dresses := []Dress{}
	err := db.selectStmt(ctx, &dresses, qDresses, map[string]any{
		"Status":      status,
		"IntendedUse": intendedUse,
		"TextSearch":  search,
		"HereLimit":   limit,
		"HereOffset":  offset,
	})
	return dresses, err
}

// DressGet fetches a single dress by id, returning sql.ErrNoRows if
// none exists.
func (db *DB) DressGet(ctx context.Context, dressID int64) (Dress, error) {
	var dress Dress
	err := db.getStmt(ctx, &dress, qDress, map[string]any{"DressID": dressID})
	return dress, err
}

// DressCreate inserts a dress and returns the new id. Status defaults
// to available and intended use to rental.
func (db *DB) DressCreate(ctx context.Context, d Dress) (int64, error) {
	if d.Status == "" {
		d.Status = DressAvailable
	}
	if d.IntendedUse == "" {
		d.IntendedUse = UseRental
	}
	res, err := db.execStmt(ctx, qDressInsert, map[string]any{
		"Name":        d.Name,
		"BasePrice":   d.BasePrice,
		"Status":      d.Status,
		"IntendedUse": d.IntendedUse,
		"Notes":       d.Notes,
	})
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DressUpdate updates a dress's editable fields. The lifetime
// aggregates are not touched.
func (db *DB) DressUpdate(ctx context.Context, d Dress) error {
	_, err := db.execStmt(ctx, qDressUpdate, map[string]any{
		"DressID":     d.ID,
		"Name":        d.Name,
		"BasePrice":   d.BasePrice,
		"Status":      d.Status,
		"IntendedUse": d.IntendedUse,
		"Notes":       d.Notes,
	})
	return err
}

// DressPhotoUpdate records the stored photo path for a dress.
func (db *DB) DressPhotoUpdate(ctx context.Context, dressID int64, photoPath string) error {
	_, err := db.execStmt(ctx, qDressPhotoUpdate, map[string]any{
		"DressID":   dressID,
		"PhotoPath": photoPath,
	})
	return err
}

// DressHistoryGet returns the activity log for a dress, newest first.
func (db *DB) DressHistoryGet(ctx context.Context, dressID int64) ([]DressHistoryEntry, error) {
	entries := []DressHistoryEntry{}
	err := db.selectStmt(ctx, &entries, qDressHistory, map[string]any{
		"DressID": dressID,
	})
	return entries, err
}

// syncDressSaleStatus recomputes a dress's sale status from its live
// sale items. The dress is marked sold while at least one sale item
// on a non-cancelled order references it; when the last such item
// goes away it is released back to available, unless it has been
// retired in the meantime.
func (db *DB) syncDressSaleStatus(ctx context.Context, tx *sqlx.Tx, dressID int64) error {
	var count struct {
		SaleCount int `db:"sale_count"`
	}
	err := db.getTx(ctx, tx, &count, qDressSaleCount, map[string]any{"DressID": dressID})
	if err != nil {
		return err
	}
	name := qDressRelease
	if count.SaleCount > 0 {
		name = qDressMarkSold
	}
	_, err = db.execTx(ctx, tx, name, map[string]any{"DressID": dressID})
	return err
}

// incrementDressActivity bumps a dress's lifetime rental count and
// income figures for a newly created order item.
func (db *DB) incrementDressActivity(ctx context.Context, tx *sqlx.Tx, dressID int64, amount float64) error {
	_, err := db.execTx(ctx, tx, qDressActivity, map[string]any{
		"DressID": dressID,
		"Amount":  amount,
	})
	return err
}

// dressHistoryInsert appends a dress history entry.
func (db *DB) dressHistoryInsert(ctx context.Context, tx *sqlx.Tx, dressID, customerID, orderID int64, amount float64, entryType string) error {
	_, err := db.execTx(ctx, tx, qDressHistoryInsert, map[string]any{
		"DressID":    dressID,
		"CustomerID": customerID,
		"OrderID":    orderID,
		"Amount":     amount,
		"EntryType":  entryType,
	})
	return err
}
