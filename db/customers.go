package db

// customers.go deals with customer-related database calls.

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Customer is a client of the shop. Phone numbers are stored in
// canonical form (see NormalizePhone); the phone column is the dedup
// key for customers created inline with an order submission.
type Customer struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Phone     string `db:"phone" json:"phone"`
	Email     string `db:"email" json:"email"`
	Source    string `db:"source" json:"source"`
	Notes     string `db:"notes" json:"notes"`
	CreatedAt string `db:"created_at" json:"createdAt"`
	RowCount  int    `db:"row_count" json:"-"`
}

// CustomersGet returns a page of customers, newest first, optionally
// narrowed by a free-text search over name, phone and email. Each row
// carries the unpaginated result count in RowCount.
func (db *DB) CustomersGet(ctx context.Context, search string, limit, offset int) ([]Customer, error) {
	customers := []Customer{}
	err := db.selectStmt(ctx, &customers, qCustomers, map[string]any{
		"TextSearch": search,
		"HereLimit":  limit,
		"HereOffset": offset,
	})
	return customers, err
}

// CustomerGet fetches a single customer by id, returning
// sql.ErrNoRows if none exists.
func (db *DB) CustomerGet(ctx context.Context, customerID int64) (Customer, error) {
	var customer Customer
	err := db.getStmt(ctx, &customer, qCustomer, map[string]any{
		"CustomerID": customerID,
	})
	return customer, err
}

// CustomerByPhone finds a customer by phone number, normalising the
// supplied number first. Returns sql.ErrNoRows if no customer has the
// canonical number.
func (db *DB) CustomerByPhone(ctx context.Context, phone string) (Customer, error) {
	var customer Customer
	err := db.getStmt(ctx, &customer, qCustomerByPhone, map[string]any{
		"Phone": NormalizePhone(phone),
	})
	return customer, err
}

// CustomerCreate inserts a customer and returns the new id. The phone
// number is normalised before storage.
func (db *DB) CustomerCreate(ctx context.Context, c Customer) (int64, error) {
	res, err := db.execStmt(ctx, qCustomerInsert, map[string]any{
		"Name":   c.Name,
		"Phone":  NormalizePhone(c.Phone),
		"Email":  c.Email,
		"Source": c.Source,
		"Notes":  c.Notes,
	})
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CustomerUpdate updates a customer's stored fields.
func (db *DB) CustomerUpdate(ctx context.Context, c Customer) error {
	_, err := db.execStmt(ctx, qCustomerUpdate, map[string]any{
		"CustomerID": c.ID,
		"Name":       c.Name,
		"Phone":      NormalizePhone(c.Phone),
		"Email":      c.Email,
		"Source":     c.Source,
		"Notes":      c.Notes,
	})
	return err
}

// CustomersMerge folds the source customer into the target. All child
// records (orders, transactions, dress history, agreements) are
// reassigned to the target, the target's fields are set to the
// supplied final values, and the source row is deleted. The operation
// runs in a single transaction; a merge of a customer with itself is
// rejected before any write.
func (db *DB) CustomersMerge(ctx context.Context, targetID, sourceID int64, finals Customer) error {
	if targetID == sourceID {
		return ErrSelfMerge
	}
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		var target, source Customer
		if err := db.getTx(ctx, tx, &target, qCustomer, map[string]any{"CustomerID": targetID}); err != nil {
			return fmt.Errorf("merge target customer %d: %w", targetID, err)
		}
		if err := db.getTx(ctx, tx, &source, qCustomer, map[string]any{"CustomerID": sourceID}); err != nil {
			return fmt.Errorf("merge source customer %d: %w", sourceID, err)
		}

		reassign := map[string]any{"TargetID": targetID, "SourceID": sourceID}
		for _, name := range []string{
			qCustomerMergeOrders,
			qCustomerMergeTransactions,
			qCustomerMergeHistory,
			qCustomerMergeAgreements,
		} {
			if _, err := db.execTx(ctx, tx, name, reassign); err != nil {
				return fmt.Errorf("merge reassignment %q: %w", name, err)
			}
		}

		if _, err := db.execTx(ctx, tx, qCustomerUpdate, map[string]any{
			"CustomerID": targetID,
			"Name":       finals.Name,
			"Phone":      NormalizePhone(finals.Phone),
			"Email":      finals.Email,
			"Source":     finals.Source,
			"Notes":      finals.Notes,
		}); err != nil {
			return err
		}

		_, err := db.execTx(ctx, tx, qCustomerDelete, map[string]any{"CustomerID": sourceID})
		return err
	})
}
