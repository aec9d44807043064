package web

// transactions.go serves the income and expense ledger endpoints and
// the category-filtered financial report. Report amounts for
// transactions linked to multi-item orders are pro-rated by the share
// of the order's total held by the matching item categories.

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/moyshiginzburg/atelier/db"
)

// handleTransactions serves the ledger listing.
func (web *WebApp) handleTransactions() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		form := &TransactionsSearchForm{Page: 1}
		if err := DecodeURLParams(r, form); err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		validator := NewValidator()
		form.Validate(validator)
		if !validator.Valid() {
			web.invalid(w, validator)
			return
		}

		filter := db.TransactionsFilter{
			Direction: form.Direction,
			DateFrom:  form.DateFrom,
			DateTo:    form.DateTo,
			OrderID:   form.OrderID,
		}
		transactions, err := web.db.TransactionsGet(ctx, filter, pageLen, form.Offset())
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		var recordsNo int
		if len(transactions) > 0 {
			recordsNo = transactions[0].RowCount
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success      bool             `json:"success"`
			Transactions []db.Transaction `json:"transactions"`
			Pagination   *Pagination      `json:"pagination"`
		}{
			Success:      true,
			Transactions: transactions,
			Pagination:   newPagination(recordsNo, form.Page),
		})
	})
}

// handleTransactionCreate records a ledger transaction. Linked income
// transactions update the order's paid total.
func (web *WebApp) handleTransactionCreate() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		payload := &TransactionPayload{}
		if err := decodeJSON(r, payload); err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		validator := NewValidator()
		payload.Validate(validator)
		if !validator.Valid() {
			web.invalid(w, validator)
			return
		}

		web.enrichFromReceipt(r, payload.ReceiptPath, &payload.Description)

		id, err := web.db.TransactionCreate(ctx, payload.toTransaction(0))
		if err != nil {
			web.fail(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusCreated, struct {
			Success bool  `json:"success"`
			ID      int64 `json:"id"`
		}{
			Success: true,
			ID:      id,
		})
	})
}

// handleTransactionUpdate updates a ledger transaction's amount and
// descriptive fields. The order and customer links are immutable.
func (web *WebApp) handleTransactionUpdate() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		id, err := muxID(r)
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		payload := &TransactionPayload{}
		if err := decodeJSON(r, payload); err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		validator := NewValidator()
		payload.Validate(validator)
		if !validator.Valid() {
			web.invalid(w, validator)
			return
		}

		if err := web.db.TransactionUpdate(ctx, payload.toTransaction(id)); err != nil {
			web.fail(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success bool `json:"success"`
		}{
			Success: true,
		})
	})
}

// handleTransactionDelete removes a ledger transaction.
func (web *WebApp) handleTransactionDelete() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		id, err := muxID(r)
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := web.db.TransactionDelete(ctx, id); err != nil {
			web.fail(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success bool `json:"success"`
		}{
			Success: true,
		})
	})
}

// ReportEntry is one income transaction in the financial report.
// DisplayAmount is the pro-rated figure when a category filter is in
// force, otherwise the full amount.
type ReportEntry struct {
	db.ReportTransaction
	DisplayAmount float64 `json:"displayAmount"`
}

// handleTransactionsReport serves the income report over a date
// window, optionally pro-rated to a set of item categories.
func (web *WebApp) handleTransactionsReport() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		form := &ReportForm{}
		if err := DecodeURLParams(r, form); err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		validator := NewValidator()
		form.Validate(validator)
		if !validator.Valid() {
			web.invalid(w, validator)
			return
		}

		// The report query needs a bounded window.
		if form.DateFrom == "" {
			form.DateFrom = "0001-01-01"
		}
		if form.DateTo == "" {
			form.DateTo = "9999-12-31"
		}

		rows, err := web.db.ReportTransactions(ctx, form.DateFrom, form.DateTo)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		categories := form.CategoryList()
		matched := map[int64]float64{}
		if len(categories) > 0 {
			matched, err = web.db.ReportMatchedTotals(ctx, categoryPattern(categories))
			if err != nil {
				web.ServerError(w, r, err)
				return
			}
		}

		entries := prorateByCategory(rows, categories, matched)
		var total float64
		for _, entry := range entries {
			total += entry.DisplayAmount
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success      bool          `json:"success"`
			Transactions []ReportEntry `json:"transactions"`
			Total        float64       `json:"total"`
		}{
			Success:      true,
			Transactions: entries,
			Total:        total,
		})
	})
}

// categoryPattern builds an anchored alternation regex matching any
// of the given item categories.
func categoryPattern(categories []string) string {
	quoted := make([]string, len(categories))
	for i, c := range categories {
		quoted[i] = regexp.QuoteMeta(c)
	}
	return "^(" + strings.Join(quoted, "|") + ")$"
}

// prorateByCategory computes the display amount of each report row.
// With no category filter each row shows its full amount. With a
// filter, a transaction linked to an order is scaled by the share of
// the order's total price held by items in the matching categories; a
// transaction with no order link is included at full amount only when
// its own category matches, and rows scaling to zero are dropped.
func prorateByCategory(rows []db.ReportTransaction, categories []string, matched map[int64]float64) []ReportEntry {
	entries := make([]ReportEntry, 0, len(rows))
	if len(categories) == 0 {
		for _, row := range rows {
			entries = append(entries, ReportEntry{ReportTransaction: row, DisplayAmount: row.Amount})
		}
		return entries
	}

	inSet := map[string]bool{}
	for _, c := range categories {
		inSet[c] = true
	}
	for _, row := range rows {
		var display float64
		switch {
		case row.OrderID == 0:
			if inSet[row.Category] {
				display = row.Amount
			}
		case row.OrderTotalPrice > 0:
			display = row.Amount * matched[row.OrderID] / row.OrderTotalPrice
		}
		if display == 0 {
			continue
		}
		entries = append(entries, ReportEntry{ReportTransaction: row, DisplayAmount: display})
	}
	return entries
}
