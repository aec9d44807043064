package db

// dashboard.go provides the aggregate queries behind the dashboard
// panels and the daily reminder.

import "context"

// MonthlyTotals is one month's income and expense sums.
type MonthlyTotals struct {
	Month    string  `db:"month" json:"month"`
	Income   float64 `db:"income" json:"income"`
	Expenses float64 `db:"expenses" json:"expenses"`
}

// UpcomingOrder is an active order with an event date on or after a
// given day, with the customer fields needed for display and contact.
type UpcomingOrder struct {
	ID            int64   `db:"id" json:"id"`
	CustomerID    int64   `db:"customer_id" json:"customerId"`
	EventDate     string  `db:"event_date" json:"eventDate"`
	TotalPrice    float64 `db:"total_price" json:"totalPrice"`
	PaidAmount    float64 `db:"paid_amount" json:"paidAmount"`
	OrderSummary  string  `db:"order_summary" json:"orderSummary"`
	CustomerName  string  `db:"customer_name" json:"customerName"`
	CustomerPhone string  `db:"customer_phone" json:"customerPhone"`
}

// DressStatusCount is the number of dresses in one status.
type DressStatusCount struct {
	Status     string `db:"status" json:"status"`
	DressCount int    `db:"dress_count" json:"count"`
}

// DashboardMonthly returns per-month income and expense totals over a
// date window.
func (db *DB) DashboardMonthly(ctx context.Context, dateFrom, dateTo string) ([]MonthlyTotals, error) {
	months := []MonthlyTotals{}
	err := db.selectStmt(ctx, &months, qDashboardMonthly, map[string]any{
		"DateFrom": dateFrom,
		"DateTo":   dateTo,
	})
	return months, err
}

// UpcomingOrders returns up to limit active orders with an event date
// on or after today, soonest first.
func (db *DB) UpcomingOrders(ctx context.Context, today string, limit int) ([]UpcomingOrder, error) {
	orders := []UpcomingOrder{}
	err := db.selectStmt(ctx, &orders, qDashboardUpcoming, map[string]any{
		"Today":     today,
		"HereLimit": limit,
	})
	return orders, err
}

// DressStatusCounts returns dress counts grouped by status.
func (db *DB) DressStatusCounts(ctx context.Context) ([]DressStatusCount, error) {
	counts := []DressStatusCount{}
	err := db.selectStmt(ctx, &counts, qDashboardDresses, map[string]any{})
	return counts, err
}
