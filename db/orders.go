package db

// orders.go deals with order-related database calls. The multi-row
// business operations (create, update, cancel, merge) each run in a
// single transaction and keep the dress sale statuses and the order's
// derived columns in step with the item and payment rows.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Order statuses. Cancellation is soft; the only hard delete of an
// order row happens when a merge removes the fully reassigned source.
const (
	OrderActive    = "active"
	OrderCancelled = "cancelled"
)

// Order item types.
const (
	ItemRental          = "rental"
	ItemSewing          = "sewing"
	ItemSewingForRental = "sewing_for_rental"
	ItemSale            = "sale"
)

// Order is a customer booking with derived columns: total_price and
// deposit_amount are set by the operator, paid_amount is recomputed
// from linked income transactions, and order_summary is a
// denormalised one-line rollup of the items.
type Order struct {
	ID            int64   `db:"id" json:"id"`
	CustomerID    int64   `db:"customer_id" json:"customerId"`
	EventDate     string  `db:"event_date" json:"eventDate"`
	TotalPrice    float64 `db:"total_price" json:"totalPrice"`
	DepositAmount float64 `db:"deposit_amount" json:"depositAmount"`
	PaidAmount    float64 `db:"paid_amount" json:"paidAmount"`
	Status        string  `db:"status" json:"status"`
	OrderSummary  string  `db:"order_summary" json:"orderSummary"`
	Notes         string  `db:"notes" json:"notes"`
	CreatedAt     string  `db:"created_at" json:"createdAt"`
	CustomerName  string  `db:"customer_name" json:"customerName"`
	CustomerPhone string  `db:"customer_phone" json:"customerPhone"`
	RowCount      int     `db:"row_count" json:"-"`
}

// OrderItem is a line item belonging to an order. Item ids are not
// stable across an order edit, which replaces the full item set.
type OrderItem struct {
	ID                 int64   `db:"item_id" json:"id"`
	DressID            *int64  `db:"item_dress_id" json:"dressId"`
	ItemType           string  `db:"item_type" json:"itemType"`
	Description        string  `db:"item_description" json:"description"`
	BasePrice          float64 `db:"item_base_price" json:"basePrice"`
	AdditionalPayments float64 `db:"item_additional_payments" json:"additionalPayments"`
	FinalPrice         float64 `db:"item_final_price" json:"finalPrice"`
}

// orderWideRow is the scan target for the order detail query, which
// returns one row per item with the order columns repeated. The item
// columns are null for an order without items.
type orderWideRow struct {
	Order
	ItemID                 *int64   `db:"item_id"`
	ItemDressID            *int64   `db:"item_dress_id"`
	ItemType               *string  `db:"item_type"`
	ItemDescription        *string  `db:"item_description"`
	ItemBasePrice          *float64 `db:"item_base_price"`
	ItemAdditionalPayments *float64 `db:"item_additional_payments"`
	ItemFinalPrice         *float64 `db:"item_final_price"`
}

// NewOrderItem is a line item submitted with an order create or edit.
// A nil FinalPrice resolves to BasePrice plus AdditionalPayments.
type NewOrderItem struct {
	DressID            *int64
	ItemType           string
	Description        string
	BasePrice          float64
	AdditionalPayments float64
	FinalPrice         *float64
}

// resolveFinal returns the item's effective final price.
func (i NewOrderItem) resolveFinal() float64 {
	if i.FinalPrice != nil {
		return *i.FinalPrice
	}
	return i.BasePrice + i.AdditionalPayments
}

// NewOrderCustomer is an inline new-customer submission attached to an
// order. If a customer with the same canonical phone number already
// exists the order is attached to that customer instead.
type NewOrderCustomer struct {
	Name   string
	Phone  string
	Email  string
	Source string
}

// DepositPayment is a payment taken at order creation, recorded as a
// linked income transaction.
type DepositPayment struct {
	Amount      float64
	Date        string
	Category    string // defaults to "deposit"
	Description string
	ReceiptPath string
}

// NewOrder is the input to OrderCreate. Exactly one of CustomerID and
// NewCustomer must be set.
type NewOrder struct {
	CustomerID    *int64
	NewCustomer   *NewOrderCustomer
	EventDate     string
	TotalPrice    float64
	DepositAmount float64
	Notes         string
	Items         []NewOrderItem
	Deposits      []DepositPayment
}

// OrderEdit is the input to OrderUpdate. When ReplaceItems is set the
// order's item set is deleted and reinserted from Items.
type OrderEdit struct {
	EventDate     string
	TotalPrice    float64
	DepositAmount float64
	Notes         string
	ReplaceItems  bool
	Items         []NewOrderItem
}

// OrdersFilter narrows the order listing. Zero values disable each
// filter.
type OrdersFilter struct {
	Status     string
	DateFrom   string
	DateTo     string
	TextSearch string
}

// OrdersGet returns a page of orders with customer display fields,
// most recent event first.
func (db *DB) OrdersGet(ctx context.Context, filter OrdersFilter, limit, offset int) ([]Order, error) {
	orders := []Order{}
	err := db.selectStmt(ctx, &orders, qOrders, map[string]any{
		"Status":     filter.Status,
		"DateFrom":   filter.DateFrom,
		"DateTo":     filter.DateTo,
		"TextSearch": filter.TextSearch,
		"HereLimit":  limit,
		"HereOffset": offset,
	})
	return orders, err
}

// OrderWRGet fetches an order and its items from the wide-row detail
// query, returning sql.ErrNoRows if the order does not exist.
func (db *DB) OrderWRGet(ctx context.Context, orderID int64) (Order, []OrderItem, error) {
	rows := []orderWideRow{}
	err := db.selectStmt(ctx, &rows, qOrder, map[string]any{"OrderID": orderID})
	if err != nil {
		return Order{}, nil, err
	}
	if len(rows) == 0 {
		return Order{}, nil, sql.ErrNoRows
	}
	order := rows[0].Order
	items := []OrderItem{}
	for _, r := range rows {
		if r.ItemID == nil {
			continue
		}
		items = append(items, OrderItem{
			ID:                 *r.ItemID,
			DressID:            r.ItemDressID,
			ItemType:           *r.ItemType,
			Description:        *r.ItemDescription,
			BasePrice:          *r.ItemBasePrice,
			AdditionalPayments: *r.ItemAdditionalPayments,
			FinalPrice:         *r.ItemFinalPrice,
		})
	}
	return order, items, nil
}

// OrderCreate inserts an order with its items and any deposit
// payments in a single transaction, resolving or creating the
// customer, bumping the lifetime figures and history of each linked
// dress and synchronising dress sale statuses. The new order id is
// returned.
func (db *DB) OrderCreate(ctx context.Context, no NewOrder) (int64, error) {
	var orderID int64
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		customerID, err := db.resolveCustomer(ctx, tx, no)
		if err != nil {
			return err
		}

		res, err := db.execTx(ctx, tx, qOrderInsert, map[string]any{
			"CustomerID":    customerID,
			"EventDate":     no.EventDate,
			"TotalPrice":    no.TotalPrice,
			"DepositAmount": no.DepositAmount,
			"OrderSummary":  summarizeNewItems(no.Items),
			"Notes":         no.Notes,
		})
		if err != nil {
			return err
		}
		orderID, err = res.LastInsertId()
		if err != nil {
			return err
		}

		if err := db.insertOrderItems(ctx, tx, orderID, customerID, no.Items, true); err != nil {
			return err
		}
		for _, dressID := range saleDressIDsOf(no.Items) {
			if err := db.syncDressSaleStatus(ctx, tx, dressID); err != nil {
				return err
			}
		}

		for _, d := range no.Deposits {
			category := d.Category
			if category == "" {
				category = "deposit"
			}
			if _, err := db.execTx(ctx, tx, qTransactionInsert, map[string]any{
				"Direction":   TxIncome,
				"Amount":      d.Amount,
				"EntryDate":   d.Date,
				"Category":    category,
				"Description": d.Description,
				"OrderID":     orderID,
				"CustomerID":  customerID,
				"ReceiptPath": d.ReceiptPath,
			}); err != nil {
				return err
			}
		}
		if len(no.Deposits) > 0 {
			return db.refreshOrderPaid(ctx, tx, orderID)
		}
		return nil
	})
	return orderID, err
}

// OrderUpdate updates an order's own fields and, when edit includes a
// replacement item set, deletes and reinserts the items, regenerates
// the summary and resynchronises the sale status of every dress the
// old or new item set touches. Item replacement does not bump dress
// lifetime figures; those record item creation on the original order
// only.
func (db *DB) OrderUpdate(ctx context.Context, orderID int64, edit OrderEdit) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		var order Order
		if err := db.getTx(ctx, tx, &order, qOrderRow, map[string]any{"OrderID": orderID}); err != nil {
			return err
		}

		oldSaleDresses, err := db.saleDressIDs(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if _, err := db.execTx(ctx, tx, qOrderUpdate, map[string]any{
			"OrderID":       orderID,
			"EventDate":     edit.EventDate,
			"TotalPrice":    edit.TotalPrice,
			"DepositAmount": edit.DepositAmount,
			"Notes":         edit.Notes,
		}); err != nil {
			return err
		}

		if !edit.ReplaceItems {
			return nil
		}

		if _, err := db.execTx(ctx, tx, qOrderItemsDelete, map[string]any{"OrderID": orderID}); err != nil {
			return err
		}
		if err := db.insertOrderItems(ctx, tx, orderID, order.CustomerID, edit.Items, false); err != nil {
			return err
		}
		if _, err := db.execTx(ctx, tx, qOrderSummaryUpdate, map[string]any{
			"OrderID":      orderID,
			"OrderSummary": summarizeNewItems(edit.Items),
		}); err != nil {
			return err
		}

		for _, dressID := range unionIDs(oldSaleDresses, saleDressIDsOf(edit.Items)) {
			if err := db.syncDressSaleStatus(ctx, tx, dressID); err != nil {
				return err
			}
		}
		return nil
	})
}

// OrderCancel soft-cancels an order and releases any dresses whose
// sold status rested on this order's sale items. The order's items,
// transactions and history rows are left in place.
func (db *DB) OrderCancel(ctx context.Context, orderID int64) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		saleDresses, err := db.saleDressIDs(ctx, tx, orderID)
		if err != nil {
			return err
		}
		res, err := db.execTx(ctx, tx, qOrderCancel, map[string]any{"OrderID": orderID})
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		for _, dressID := range saleDresses {
			if err := db.syncDressSaleStatus(ctx, tx, dressID); err != nil {
				return err
			}
		}
		return nil
	})
}

// OrdersMerge folds the source order into the target: items,
// transactions, agreements and history rows are reassigned, the
// target's totals and summary are recomputed from the merged
// children, the deposit amounts are summed, the source row is hard
// deleted and every affected dress has its sale status
// resynchronised. A merge of an order with itself is rejected before
// any write.
func (db *DB) OrdersMerge(ctx context.Context, targetID, sourceID int64) error {
	if targetID == sourceID {
		return ErrSelfMerge
	}
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		var target, source Order
		if err := db.getTx(ctx, tx, &target, qOrderRow, map[string]any{"OrderID": targetID}); err != nil {
			return fmt.Errorf("merge target order %d: %w", targetID, err)
		}
		if err := db.getTx(ctx, tx, &source, qOrderRow, map[string]any{"OrderID": sourceID}); err != nil {
			return fmt.Errorf("merge source order %d: %w", sourceID, err)
		}

		targetSale, err := db.saleDressIDs(ctx, tx, targetID)
		if err != nil {
			return err
		}
		sourceSale, err := db.saleDressIDs(ctx, tx, sourceID)
		if err != nil {
			return err
		}

		reassign := map[string]any{"TargetID": targetID, "SourceID": sourceID}
		for _, name := range []string{
			qOrderMergeItems,
			qOrderMergeTransactions,
			qOrderMergeAgreements,
			qOrderMergeHistory,
		} {
			if _, err := db.execTx(ctx, tx, name, reassign); err != nil {
				return fmt.Errorf("merge reassignment %q: %w", name, err)
			}
		}

		var totals orderTotals
		if err := db.getTx(ctx, tx, &totals, qOrderTotals, map[string]any{"OrderID": targetID}); err != nil {
			return err
		}
		items := []OrderItem{}
		if err := db.selectTx(ctx, tx, &items, qOrderItems, map[string]any{"OrderID": targetID}); err != nil {
			return err
		}

		if _, err := db.execTx(ctx, tx, qOrderMergeUpdate, map[string]any{
			"OrderID":       targetID,
			"TotalPrice":    totals.ItemsTotal,
			"DepositAmount": target.DepositAmount + source.DepositAmount,
			"PaidAmount":    totals.PaidTotal,
			"OrderSummary":  summarizeItems(items),
		}); err != nil {
			return err
		}

		if _, err := db.execTx(ctx, tx, qOrderDelete, map[string]any{"OrderID": sourceID}); err != nil {
			return err
		}

		for _, dressID := range unionIDs(targetSale, sourceSale) {
			if err := db.syncDressSaleStatus(ctx, tx, dressID); err != nil {
				return err
			}
		}
		return nil
	})
}

// orderTotals is the scan target for the derived totals query.
type orderTotals struct {
	ItemsTotal float64 `db:"items_total"`
	PaidTotal  float64 `db:"paid_total"`
}

// resolveCustomer returns the customer id an order belongs to,
// deduplicating an inline new-customer submission by canonical phone
// number and creating the customer if no match exists.
func (db *DB) resolveCustomer(ctx context.Context, tx *sqlx.Tx, no NewOrder) (int64, error) {
	if no.CustomerID != nil {
		return *no.CustomerID, nil
	}
	if no.NewCustomer == nil {
		return 0, errors.New("order needs either a customer id or a new customer")
	}
	phone := NormalizePhone(no.NewCustomer.Phone)
	var existing Customer
	err := db.getTx(ctx, tx, &existing, qCustomerByPhone, map[string]any{"Phone": phone})
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	res, err := db.execTx(ctx, tx, qCustomerInsert, map[string]any{
		"Name":   no.NewCustomer.Name,
		"Phone":  phone,
		"Email":  no.NewCustomer.Email,
		"Source": no.NewCustomer.Source,
		"Notes":  "",
	})
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// insertOrderItems inserts the given items for an order. When
// recordActivity is set each dress-linked item also bumps the dress's
// lifetime figures and appends a history entry; an order edit
// reinserting items does not.
func (db *DB) insertOrderItems(ctx context.Context, tx *sqlx.Tx, orderID, customerID int64, items []NewOrderItem, recordActivity bool) error {
	for _, item := range items {
		finalPrice := item.resolveFinal()
		if _, err := db.execTx(ctx, tx, qOrderItemInsert, map[string]any{
			"OrderID":            orderID,
			"DressID":            nullableID(item.DressID),
			"ItemType":           item.ItemType,
			"Description":        item.Description,
			"BasePrice":          item.BasePrice,
			"AdditionalPayments": item.AdditionalPayments,
			"FinalPrice":         finalPrice,
		}); err != nil {
			return err
		}
		if !recordActivity || item.DressID == nil {
			continue
		}
		if err := db.incrementDressActivity(ctx, tx, *item.DressID, finalPrice); err != nil {
			return err
		}
		if err := db.dressHistoryInsert(ctx, tx, *item.DressID, customerID, orderID, finalPrice, item.ItemType); err != nil {
			return err
		}
	}
	return nil
}

// saleDressIDs returns the distinct dress ids carried by sale items on
// an order.
func (db *DB) saleDressIDs(ctx context.Context, tx *sqlx.Tx, orderID int64) ([]int64, error) {
	ids := []int64{}
	err := db.selectTx(ctx, tx, &ids, qOrderSaleDresses, map[string]any{"OrderID": orderID})
	return ids, err
}

// refreshOrderPaid recomputes an order's paid_amount from its linked
// income transactions, leaving the operator-set fields alone.
func (db *DB) refreshOrderPaid(ctx context.Context, tx *sqlx.Tx, orderID int64) error {
	var order Order
	if err := db.getTx(ctx, tx, &order, qOrderRow, map[string]any{"OrderID": orderID}); err != nil {
		return err
	}
	var totals orderTotals
	if err := db.getTx(ctx, tx, &totals, qOrderTotals, map[string]any{"OrderID": orderID}); err != nil {
		return err
	}
	_, err := db.execTx(ctx, tx, qOrderMergeUpdate, map[string]any{
		"OrderID":       orderID,
		"TotalPrice":    order.TotalPrice,
		"DepositAmount": order.DepositAmount,
		"PaidAmount":    totals.PaidTotal,
		"OrderSummary":  order.OrderSummary,
	})
	return err
}

// saleDressIDsOf returns the distinct dress ids carried by sale items
// in a submitted item set.
func saleDressIDsOf(items []NewOrderItem) []int64 {
	var ids []int64
	for _, item := range items {
		if item.ItemType != ItemSale || item.DressID == nil {
			continue
		}
		ids = appendUniqueID(ids, *item.DressID)
	}
	return ids
}

// unionIDs merges id slices, preserving first-seen order.
func unionIDs(a, b []int64) []int64 {
	var ids []int64
	for _, id := range a {
		ids = appendUniqueID(ids, id)
	}
	for _, id := range b {
		ids = appendUniqueID(ids, id)
	}
	return ids
}

func appendUniqueID(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// nullableID converts an optional id into a named-statement argument.
func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// summarizeNewItems regenerates the denormalised order summary from a
// submitted item set.
func summarizeNewItems(items []NewOrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, summaryPart(item.ItemType, item.Description))
	}
	return strings.Join(parts, "; ")
}

// summarizeItems regenerates the denormalised order summary from
// stored item rows.
func summarizeItems(items []OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, summaryPart(item.ItemType, item.Description))
	}
	return strings.Join(parts, "; ")
}

func summaryPart(itemType, description string) string {
	if description == "" {
		return itemType
	}
	return itemType + ": " + description
}
