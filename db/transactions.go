package db

// transactions.go deals with the income and expense ledger, including
// the category-filtered report queries.

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Transaction directions.
const (
	TxIncome  = "income"
	TxExpense = "expense"
)

// Transaction is a ledger row, optionally linked to an order and a
// customer. Linked income transactions feed the order's paid_amount.
type Transaction struct {
	ID           int64   `db:"id" json:"id"`
	Direction    string  `db:"direction" json:"direction"`
	Amount       float64 `db:"amount" json:"amount"`
	Date         string  `db:"date" json:"date"`
	Category     string  `db:"category" json:"category"`
	Description  string  `db:"description" json:"description"`
	OrderID      *int64  `db:"order_id" json:"orderId"`
	CustomerID   *int64  `db:"customer_id" json:"customerId"`
	ReceiptPath  string  `db:"receipt_path" json:"receiptPath"`
	CreatedAt    string  `db:"created_at" json:"createdAt"`
	CustomerName string  `db:"customer_name" json:"customerName"`
	RowCount     int     `db:"row_count" json:"-"`
}

// TransactionsFilter narrows the ledger listing. Zero values disable
// each filter.
type TransactionsFilter struct {
	Direction string
	DateFrom  string
	DateTo    string
	OrderID   int64
}

// TransactionsGet returns a page of ledger transactions, newest first.
func (db *DB) TransactionsGet(ctx context.Context, filter TransactionsFilter, limit, offset int) ([]Transaction, error) {
	transactions := []Transaction{}
	err := db.selectStmt(ctx, &transactions, qTransactions, map[string]any{
		"Direction":  filter.Direction,
		"DateFrom":   filter.DateFrom,
		"DateTo":     filter.DateTo,
		"OrderID":    filter.OrderID,
		"HereLimit":  limit,
		"HereOffset": offset,
	})
	return transactions, err
}

// TransactionCreate inserts a ledger transaction and, when it is
// linked to an order, refreshes that order's paid total in the same
// transaction. The new id is returned.
func (db *DB) TransactionCreate(ctx context.Context, t Transaction) (int64, error) {
	var transactionID int64
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := db.execTx(ctx, tx, qTransactionInsert, map[string]any{
			"Direction":   t.Direction,
			"Amount":      t.Amount,
			"EntryDate":   t.Date,
			"Category":    t.Category,
			"Description": t.Description,
			"OrderID":     nullableID(t.OrderID),
			"CustomerID":  nullableID(t.CustomerID),
			"ReceiptPath": t.ReceiptPath,
		})
		if err != nil {
			return err
		}
		transactionID, err = res.LastInsertId()
		if err != nil {
			return err
		}
		if t.OrderID != nil {
			return db.refreshOrderPaid(ctx, tx, *t.OrderID)
		}
		return nil
	})
	return transactionID, err
}

// TransactionUpdate updates a ledger transaction's editable fields.
// The order and customer links are immutable; if the row is
// order-linked the order's paid total is refreshed.
func (db *DB) TransactionUpdate(ctx context.Context, t Transaction) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		var existing Transaction
		if err := db.getTx(ctx, tx, &existing, qTransaction, map[string]any{"TransactionID": t.ID}); err != nil {
			return err
		}
		if _, err := db.execTx(ctx, tx, qTransactionUpdate, map[string]any{
			"TransactionID": t.ID,
			"Direction":     t.Direction,
			"Amount":        t.Amount,
			"EntryDate":     t.Date,
			"Category":      t.Category,
			"Description":   t.Description,
		}); err != nil {
			return err
		}
		if existing.OrderID != nil {
			return db.refreshOrderPaid(ctx, tx, *existing.OrderID)
		}
		return nil
	})
}

// TransactionDelete removes a ledger transaction, refreshing the
// linked order's paid total if there is one.
func (db *DB) TransactionDelete(ctx context.Context, transactionID int64) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		var existing Transaction
		if err := db.getTx(ctx, tx, &existing, qTransaction, map[string]any{"TransactionID": transactionID}); err != nil {
			return err
		}
		if _, err := db.execTx(ctx, tx, qTransactionDelete, map[string]any{
			"TransactionID": transactionID,
		}); err != nil {
			return err
		}
		if existing.OrderID != nil {
			return db.refreshOrderPaid(ctx, tx, *existing.OrderID)
		}
		return nil
	})
}

// ReportTransaction is an income ledger row joined with its linked
// order's total price, the raw material for the pro-rated category
// report. Unlinked rows carry a zero order id and total.
type ReportTransaction struct {
	ID              int64   `db:"id" json:"id"`
	Amount          float64 `db:"amount" json:"amount"`
	Date            string  `db:"date" json:"date"`
	Category        string  `db:"category" json:"category"`
	Description     string  `db:"description" json:"description"`
	OrderID         int64   `db:"order_id" json:"orderId"`
	OrderTotalPrice float64 `db:"order_total_price" json:"orderTotalPrice"`
}

// ReportTransactions returns the income transactions in a date window
// with their linked order totals, oldest first.
func (db *DB) ReportTransactions(ctx context.Context, dateFrom, dateTo string) ([]ReportTransaction, error) {
	rows := []ReportTransaction{}
	err := db.selectStmt(ctx, &rows, qTransactionsReport, map[string]any{
		"DateFrom": dateFrom,
		"DateTo":   dateTo,
	})
	return rows, err
}

// ReportMatchedTotals returns, per order, the sum of item prices whose
// item type matches the given regular expression, for example
// `^(rental|sale)$`.
func (db *DB) ReportMatchedTotals(ctx context.Context, categories string) (map[int64]float64, error) {
	rows := []struct {
		OrderID      int64   `db:"order_id"`
		MatchedTotal float64 `db:"matched_total"`
	}{}
	err := db.selectStmt(ctx, &rows, qReportItems, map[string]any{
		"Categories": categories,
	})
	if err != nil {
		return nil, err
	}
	totals := make(map[int64]float64, len(rows))
	for _, row := range rows {
		totals[row.OrderID] = row.MatchedTotal
	}
	return totals, nil
}
