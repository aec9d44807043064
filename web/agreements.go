package web

// agreements.go serves the e-signature agreement endpoints. The
// back-office side creates agreements and receives a shareable
// signing link; the customer-facing side is public and identified
// only by the signed link token.

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moyshiginzburg/atelier/db"
	"github.com/moyshiginzburg/atelier/internal/notify"
	"github.com/moyshiginzburg/atelier/internal/token"
)

// agreementTermsKey is the settings key holding the rental agreement
// terms text shown on the public signing page.
const agreementTermsKey = "agreement_terms"

// handleAgreements serves the agreement listing.
func (web *WebApp) handleAgreements() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		form := &AgreementsSearchForm{Page: 1}
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

		agreements, err := web.db.AgreementsGet(ctx, form.Status, pageLen, form.Offset())
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		var recordsNo int
		if len(agreements) > 0 {
			recordsNo = agreements[0].RowCount
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success    bool           `json:"success"`
			Agreements []db.Agreement `json:"agreements"`
			Pagination *Pagination    `json:"pagination"`
		}{
			Success:    true,
			Agreements: agreements,
			Pagination: newPagination(recordsNo, form.Page),
		})
	})
}

// handleAgreementDetail serves a single agreement.
func (web *WebApp) handleAgreementDetail() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		id, err := muxID(r)
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		agreement, err := web.db.AgreementGet(ctx, id)
		if err != nil {
			web.fail(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success   bool         `json:"success"`
			Agreement db.Agreement `json:"agreement"`
		}{
			Success:   true,
			Agreement: agreement,
		})
	})
}

// handleAgreementCreate creates a pending agreement for an order and
// returns a time-limited share token for the public signing link.
func (web *WebApp) handleAgreementCreate() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		payload := &AgreementCreatePayload{}
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

		order, _, err := web.db.OrderWRGet(ctx, payload.OrderID)
		if err != nil {
			web.fail(w, r, err)
			return
		}

		signToken, err := token.NewSignToken()
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		id, err := web.db.AgreementCreate(ctx, order.ID, order.CustomerID, signToken, payload.PdfPath)
		if err != nil {
			web.fail(w, r, err)
			return
		}
		shareToken, err := web.signer.IssueAgreement(signToken, web.cfg.Auth.SigningLinkLifetime)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		web.respondJSON(w, http.StatusCreated, struct {
			Success    bool   `json:"success"`
			ID         int64  `json:"id"`
			ShareToken string `json:"shareToken"`
		}{
			Success:    true,
			ID:         id,
			ShareToken: shareToken,
		})
	})
}

// handleAgreementTerms serves the agreement terms text for the public
// signing page.
func (web *WebApp) handleAgreementTerms() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		settings, err := web.db.SettingsGet(ctx)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success bool   `json:"success"`
			Terms   string `json:"terms"`
		}{
			Success: true,
			Terms:   settings[agreementTermsKey],
		})
	})
}

// handleAgreementPrefill resolves a share token to the agreement
// details shown on the public signing page.
func (web *WebApp) handleAgreementPrefill() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		agreement, err := web.agreementFromShareToken(ctx, r.URL.Query().Get("token"))
		if err != nil {
			web.fail(w, r, err)
			return
		}
		web.respondJSON(w, http.StatusOK, struct {
			Success      bool   `json:"success"`
			CustomerName string `json:"customerName"`
			EventDate    string `json:"eventDate"`
			Status       string `json:"status"`
		}{
			Success:      true,
			CustomerName: agreement.CustomerName,
			EventDate:    agreement.EventDate,
			Status:       agreement.Status,
		})
	})
}

// handleAgreementSign records a customer signature against a pending
// agreement, saving the signature image and notifying the webhook.
// Signing an already-signed agreement is rejected.
func (web *WebApp) handleAgreementSign() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		payload := &AgreementSignPayload{}
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

		agreement, err := web.agreementFromShareToken(ctx, payload.Token)
		if err != nil {
			web.fail(w, r, err)
			return
		}

		signaturePath, err := web.saveSignature(agreement.ID, payload.Signature)
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}

		signedAt := time.Now().UTC().Format(time.RFC3339)
		if err := web.db.AgreementSign(ctx, agreement.ID, signaturePath, signedAt); err != nil {
			web.fail(w, r, err)
			return
		}

		web.notifier.Send(notify.Event{
			Kind:         notify.KindAgreementSigned,
			Message:      fmt.Sprintf("agreement #%d signed", agreement.ID),
			OrderID:      agreement.OrderID,
			CustomerName: agreement.CustomerName,
			EventDate:    agreement.EventDate,
		})

		web.respondJSON(w, http.StatusOK, struct {
			Success  bool   `json:"success"`
			SignedAt string `json:"signedAt"`
		}{
			Success:  true,
			SignedAt: signedAt,
		})
	})
}

// agreementFromShareToken verifies a share token and loads the
// agreement it identifies.
func (web *WebApp) agreementFromShareToken(ctx context.Context, shareToken string) (db.Agreement, error) {
	signToken, err := web.signer.VerifyAgreement(shareToken)
	if err != nil {
		return db.Agreement{}, err
	}
	return web.db.AgreementByToken(ctx, signToken)
}

// saveSignature decodes a base64 PNG signature, with or without a
// data URL prefix, and writes it under the uploads directory.
func (web *WebApp) saveSignature(agreementID int64, signature string) (string, error) {
	if idx := strings.Index(signature, ";base64,"); idx != -1 {
		signature = signature[idx+len(";base64,"):]
	}
	content, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return "", fmt.Errorf("signature is not valid base64: %w", err)
	}

	relPath := filepath.Join("signatures", fmt.Sprintf("agreement_%d.png", agreementID))
	fullPath := filepath.Join(web.cfg.Uploads.Dir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		return "", err
	}
	return filepath.ToSlash(relPath), nil
}
