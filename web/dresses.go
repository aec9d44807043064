package web

// dresses.go serves the dress inventory endpoints, including the
// per-dress activity history and photo upload.

import (
	"net/http"

	"github.com/moyshiginzburg/atelier/db"
)

// handleDresses serves the dress listing.
func (web *WebApp) handleDresses() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		form := &DressesSearchForm{SearchForm: *NewSearchForm()}
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

		dresses, err := web.db.DressesGet(
			ctx, form.Status, form.IntendedUse, form.Search, pageLen, form.Offset())
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		var recordsNo int
		if len(dresses) > 0 {
			recordsNo = dresses[0].RowCount
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success    bool        `json:"success"`
			Dresses    []db.Dress  `json:"dresses"`
			Pagination *Pagination `json:"pagination"`
		}{
			Success:    true,
			Dresses:    dresses,
			Pagination: newPagination(recordsNo, form.Page),
		})
	})
}

// handleDressDetail serves a single dress.
func (web *WebApp) handleDressDetail() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		id, err := muxID(r)
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		dress, err := web.db.DressGet(ctx, id)
		if err != nil {
			web.fail(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success bool     `json:"success"`
			Dress   db.Dress `json:"dress"`
		}{
			Success: true,
			Dress:   dress,
		})
	})
}

// handleDressCreate creates a dress.
func (web *WebApp) handleDressCreate() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		payload := &DressPayload{}
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

		id, err := web.db.DressCreate(ctx, payload.toDress(0))
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

// handleDressUpdate updates a dress's operator-editable fields. The
// lifetime aggregates are only ever written by the order operations.
func (web *WebApp) handleDressUpdate() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		id, err := muxID(r)
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		payload := &DressPayload{}
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

		if err := web.db.DressUpdate(ctx, payload.toDress(id)); err != nil {
			web.fail(w, r, err)
			return
		}
		dress, err := web.db.DressGet(ctx, id)
		if err != nil {
			web.fail(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success bool     `json:"success"`
			Dress   db.Dress `json:"dress"`
		}{
			Success: true,
			Dress:   dress,
		})
	})
}

// handleDressHistory serves a dress's append-only activity log.
func (web *WebApp) handleDressHistory() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		id, err := muxID(r)
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := web.db.DressGet(ctx, id); err != nil {
			web.fail(w, r, err)
			return
		}
		history, err := web.db.DressHistoryGet(ctx, id)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success bool                   `json:"success"`
			History []db.DressHistoryEntry `json:"history"`
		}{
			Success: true,
			History: history,
		})
	})
}

// handleDressPhoto accepts a multipart photo upload for a dress and
// records its path.
func (web *WebApp) handleDressPhoto() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		id, err := muxID(r)
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := web.db.DressGet(ctx, id); err != nil {
			web.fail(w, r, err)
			return
		}

		path, err := web.saveUpload(r, "photos")
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := web.db.DressPhotoUpdate(ctx, id, path); err != nil {
			web.fail(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success   bool   `json:"success"`
			PhotoPath string `json:"photoPath"`
		}{
			Success:   true,
			PhotoPath: path,
		})
	})
}
