package web

// customers.go serves the customer CRUD and merge endpoints.

import (
	"net/http"

	"github.com/moyshiginzburg/atelier/db"
)

// handleCustomers serves the customer listing.
func (web *WebApp) handleCustomers() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		form := NewSearchForm()
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

		customers, err := web.db.CustomersGet(ctx, form.Search, pageLen, form.Offset())
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		var recordsNo int
		if len(customers) > 0 {
			recordsNo = customers[0].RowCount
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success    bool          `json:"success"`
			Customers  []db.Customer `json:"customers"`
			Pagination *Pagination   `json:"pagination"`
		}{
			Success:    true,
			Customers:  customers,
			Pagination: newPagination(recordsNo, form.Page),
		})
	})
}

// handleCustomerDetail serves a single customer.
func (web *WebApp) handleCustomerDetail() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		id, err := muxID(r)
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		customer, err := web.db.CustomerGet(ctx, id)
		if err != nil {
			web.fail(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success  bool        `json:"success"`
			Customer db.Customer `json:"customer"`
		}{
			Success:  true,
			Customer: customer,
		})
	})
}

// handleCustomerCreate creates a customer.
func (web *WebApp) handleCustomerCreate() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		payload := &CustomerPayload{}
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

		id, err := web.db.CustomerCreate(ctx, payload.toCustomer(0))
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

// handleCustomerUpdate updates a customer.
func (web *WebApp) handleCustomerUpdate() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		id, err := muxID(r)
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		payload := &CustomerPayload{}
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

		if err := web.db.CustomerUpdate(ctx, payload.toCustomer(id)); err != nil {
			web.fail(w, r, err)
			return
		}
		customer, err := web.db.CustomerGet(ctx, id)
		if err != nil {
			web.fail(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success  bool        `json:"success"`
			Customer db.Customer `json:"customer"`
		}{
			Success:  true,
			Customer: customer,
		})
	})
}

// handleCustomersMerge merges one customer record into another,
// reassigning all linked records and deleting the source.
func (web *WebApp) handleCustomersMerge() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		payload := &CustomersMergePayload{}
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

		err := web.db.CustomersMerge(ctx, payload.TargetID, payload.SourceID,
			payload.Final.toCustomer(payload.TargetID))
		if err != nil {
			web.fail(w, r, err)
			return
		}
		customer, err := web.db.CustomerGet(ctx, payload.TargetID)
		if err != nil {
			web.fail(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success  bool        `json:"success"`
			Customer db.Customer `json:"customer"`
		}{
			Success:  true,
			Customer: customer,
		})
	})
}
