package web

// orders.go serves the order endpoints. Order creation is the
// busiest write path: it resolves or creates the customer, inserts
// the items and deposit payments, triggers a webhook notification and
// optionally enriches deposit descriptions from uploaded receipts.

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/moyshiginzburg/atelier/apiclients/receipts"
	"github.com/moyshiginzburg/atelier/db"
	"github.com/moyshiginzburg/atelier/internal/notify"
)

// handleOrders serves the order listing.
func (web *WebApp) handleOrders() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		form := &OrdersSearchForm{SearchForm: *NewSearchForm()}
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

		filter := db.OrdersFilter{
			Status:     form.Status,
			DateFrom:   form.DateFrom,
			DateTo:     form.DateTo,
			TextSearch: form.Search,
		}
		orders, err := web.db.OrdersGet(ctx, filter, pageLen, form.Offset())
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		var recordsNo int
		if len(orders) > 0 {
			recordsNo = orders[0].RowCount
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success    bool        `json:"success"`
			Orders     []db.Order  `json:"orders"`
			Pagination *Pagination `json:"pagination"`
		}{
			Success:    true,
			Orders:     orders,
			Pagination: newPagination(recordsNo, form.Page),
		})
	})
}

// orderResponse is the detail representation of an order with its
// items.
type orderResponse struct {
	Success bool           `json:"success"`
	Order   db.Order       `json:"order"`
	Items   []db.OrderItem `json:"items"`
}

// handleOrderDetail serves a single order with its items.
func (web *WebApp) handleOrderDetail() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		id, err := muxID(r)
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		order, items, err := web.db.OrderWRGet(ctx, id)
		if err != nil {
			web.fail(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, orderResponse{
			Success: true,
			Order:   order,
			Items:   items,
		})
	})
}

// handleOrderCreate creates an order with its items and deposit
// payments, then notifies the webhook.
func (web *WebApp) handleOrderCreate() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		payload := &OrderCreatePayload{}
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

		newOrder := payload.toNewOrder()
		for i := range newOrder.Deposits {
			web.enrichFromReceipt(r, newOrder.Deposits[i].ReceiptPath, &newOrder.Deposits[i].Description)
		}

		id, err := web.db.OrderCreate(ctx, newOrder)
		if err != nil {
			web.fail(w, r, err)
			return
		}
		order, items, err := web.db.OrderWRGet(ctx, id)
		if err != nil {
			web.fail(w, r, err)
			return
		}

		web.notifier.Send(notify.Event{
			Kind:         notify.KindOrderCreated,
			Message:      fmt.Sprintf("new order #%d: %s", order.ID, order.OrderSummary),
			OrderID:      order.ID,
			CustomerName: order.CustomerName,
			EventDate:    order.EventDate,
			Amount:       order.TotalPrice,
		})

		web.respondJSON(w, http.StatusCreated, orderResponse{
			Success: true,
			Order:   order,
			Items:   items,
		})
	})
}

// handleOrderUpdate updates an order, optionally replacing its item
// set.
func (web *WebApp) handleOrderUpdate() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		id, err := muxID(r)
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		payload := &OrderUpdatePayload{}
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

		if err := web.db.OrderUpdate(ctx, id, payload.toEdit()); err != nil {
			web.fail(w, r, err)
			return
		}
		order, items, err := web.db.OrderWRGet(ctx, id)
		if err != nil {
			web.fail(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, orderResponse{
			Success: true,
			Order:   order,
			Items:   items,
		})
	})
}

// handleOrderCancel soft-cancels an order. The order and its items
// remain on record; any sale dresses are released.
func (web *WebApp) handleOrderCancel() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		id, err := muxID(r)
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := web.db.OrderCancel(ctx, id); err != nil {
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

// handleOrdersMerge merges one order into another, reassigning all
// linked records and deleting the source.
func (web *WebApp) handleOrdersMerge() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		payload := &OrdersMergePayload{}
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

		if err := web.db.OrdersMerge(ctx, payload.TargetID, payload.SourceID); err != nil {
			web.fail(w, r, err)
			return
		}
		order, items, err := web.db.OrderWRGet(ctx, payload.TargetID)
		if err != nil {
			web.fail(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, orderResponse{
			Success: true,
			Order:   order,
			Items:   items,
		})
	})
}

// enrichFromReceipt fills an empty payment description from the
// receipt extraction service. Extraction is best effort; any failure
// is logged and the description left empty.
func (web *WebApp) enrichFromReceipt(r *http.Request, receiptPath string, description *string) {
	if web.receipts == nil || receiptPath == "" || *description != "" {
		return
	}
	fullPath := filepath.Join(web.cfg.Uploads.Dir, filepath.FromSlash(receiptPath))
	content, err := os.ReadFile(fullPath)
	if err != nil {
		web.log.Warn("could not read receipt for extraction", "path", receiptPath, "error", err)
		return
	}
	extracted, err := web.receipts.Extract(r.Context(), receipts.ExtractQuery{
		Filename: filepath.Base(receiptPath),
	}, content)
	if err != nil {
		web.log.Warn("receipt extraction failed", "path", receiptPath, "error", err)
		return
	}
	if extracted.Vendor == "" && extracted.Reference == "" {
		return
	}
	*description = extracted.Vendor
	if extracted.Reference != "" {
		if *description != "" {
			*description += " "
		}
		*description += extracted.Reference
	}
}
