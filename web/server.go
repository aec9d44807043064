// Package web serves the back-office JSON API: customers, dress
// inventory, orders, the payments ledger, e-signature agreements,
// dashboard aggregates and dataset export. All routes except login
// and the public agreement-signing flow require a bearer token.
package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/moyshiginzburg/atelier/apiclients/receipts"
	"github.com/moyshiginzburg/atelier/config"
	"github.com/moyshiginzburg/atelier/db"
	"github.com/moyshiginzburg/atelier/internal/notify"
	"github.com/moyshiginzburg/atelier/internal/token"
)

// WebApp is the configuration object for the web server.
type WebApp struct {
	log      *log.Logger
	cfg      *config.Config
	db       *db.DB
	signer   *token.Signer
	notifier *notify.Notifier
	receipts *receipts.Client // nil when extraction is not configured
	server   *http.Server
}

// New initialises a WebApp. The receipts client may be nil, which
// disables receipt data extraction.
func New(
	logger *log.Logger,
	cfg *config.Config,
	database *db.DB,
	signer *token.Signer,
	notifier *notify.Notifier,
	receiptsClient *receipts.Client,
) (*WebApp, error) {
	if logger == nil || cfg == nil || database == nil || signer == nil || notifier == nil {
		return nil, errors.New("web.New: missing required dependency")
	}

	server := &http.Server{
		Addr:              cfg.Web.ListenAddress,
		ReadHeaderTimeout: time.Duration(30 * time.Second),
		WriteTimeout:      time.Duration(30 * time.Second),
		MaxHeaderBytes:    1 << 19,
	}

	webApp := &WebApp{
		log:      logger,
		cfg:      cfg,
		db:       database,
		signer:   signer,
		notifier: notifier,
		receipts: receiptsClient,
		server:   server,
	}
	return webApp, nil
}

// StartServer starts a WebApp.
func (web *WebApp) StartServer() error {
	web.server.Handler = web.routes()
	web.log.Info("starting server", "address", web.cfg.Web.ListenAddress)
	return web.server.ListenAndServe()
}

// Shutdown stops the server gracefully and waits for in-flight
// notification posts to finish.
func (web *WebApp) Shutdown(ctx context.Context) error {
	err := web.server.Shutdown(ctx)
	web.notifier.Wait()
	return err
}

// routes connects all of the endpoints and provides middleware.
func (web *WebApp) routes() http.Handler {

	r := mux.NewRouter()

	// Public endpoints.
	r.Handle("/login", web.handleLogin()).Methods("POST")
	r.Handle("/agreements/terms", web.handleAgreementTerms()).Methods("GET")
	r.Handle("/agreements/prefill", web.handleAgreementPrefill()).Methods("GET")
	r.Handle("/agreements/sign", web.handleAgreementSign()).Methods("POST")

	// Customers.
	r.Handle("/customers", web.requireAuth(web.handleCustomers())).Methods("GET")
	r.Handle("/customers", web.requireAuth(web.handleCustomerCreate())).Methods("POST")
	r.Handle("/customers/merge", web.requireAuth(web.handleCustomersMerge())).Methods("POST")
	r.Handle("/customers/{id:[0-9]+}", web.requireAuth(web.handleCustomerDetail())).Methods("GET")
	r.Handle("/customers/{id:[0-9]+}", web.requireAuth(web.handleCustomerUpdate())).Methods("PUT")

	// Dresses.
	r.Handle("/dresses", web.requireAuth(web.handleDresses())).Methods("GET")
	r.Handle("/dresses", web.requireAuth(web.handleDressCreate())).Methods("POST")
	r.Handle("/dresses/{id:[0-9]+}", web.requireAuth(web.handleDressDetail())).Methods("GET")
	r.Handle("/dresses/{id:[0-9]+}", web.requireAuth(web.handleDressUpdate())).Methods("PUT")
	r.Handle("/dresses/{id:[0-9]+}/history", web.requireAuth(web.handleDressHistory())).Methods("GET")
	r.Handle("/dresses/{id:[0-9]+}/photo", web.requireAuth(web.handleDressPhoto())).Methods("POST")

	// Orders.
	r.Handle("/orders", web.requireAuth(web.handleOrders())).Methods("GET")
	r.Handle("/orders", web.requireAuth(web.handleOrderCreate())).Methods("POST")
	r.Handle("/orders/merge", web.requireAuth(web.handleOrdersMerge())).Methods("POST")
	r.Handle("/orders/{id:[0-9]+}", web.requireAuth(web.handleOrderDetail())).Methods("GET")
	r.Handle("/orders/{id:[0-9]+}", web.requireAuth(web.handleOrderUpdate())).Methods("PUT")
	r.Handle("/orders/{id:[0-9]+}", web.requireAuth(web.handleOrderCancel())).Methods("DELETE")

	// Ledger transactions.
	r.Handle("/transactions", web.requireAuth(web.handleTransactions())).Methods("GET")
	r.Handle("/transactions", web.requireAuth(web.handleTransactionCreate())).Methods("POST")
	r.Handle("/transactions/report", web.requireAuth(web.handleTransactionsReport())).Methods("GET")
	r.Handle("/transactions/{id:[0-9]+}", web.requireAuth(web.handleTransactionUpdate())).Methods("PUT")
	r.Handle("/transactions/{id:[0-9]+}", web.requireAuth(web.handleTransactionDelete())).Methods("DELETE")

	// Agreements (back-office side).
	r.Handle("/agreements", web.requireAuth(web.handleAgreements())).Methods("GET")
	r.Handle("/agreements", web.requireAuth(web.handleAgreementCreate())).Methods("POST")
	r.Handle("/agreements/{id:[0-9]+}", web.requireAuth(web.handleAgreementDetail())).Methods("GET")

	// Dashboard, export, settings, uploads.
	r.Handle("/dashboard", web.requireAuth(web.handleDashboard())).Methods("GET")
	r.Handle("/export", web.requireAuth(web.handleExport())).Methods("GET")
	r.Handle("/settings", web.requireAuth(web.handleSettings())).Methods("GET")
	r.Handle("/settings", web.requireAuth(web.handleSettingsUpdate())).Methods("PUT")
	r.Handle("/uploads/{kind:(?:photos|receipts|signatures|agreements)}",
		web.requireAuth(web.handleUpload())).Methods("POST")
	r.PathPrefix("/files/").Handler(
		web.requireAuth(http.StripPrefix("/files/",
			http.FileServer(http.Dir(web.cfg.Uploads.Dir)))))

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		web.notFound(w, r, "no such endpoint")
	})

	var handler http.Handler = r
	if len(web.cfg.Web.AllowedOrigins) > 0 {
		handler = handlers.CORS(
			handlers.AllowedOrigins(web.cfg.Web.AllowedOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		)(handler)
	}
	return handlers.LoggingHandler(os.Stdout, handler)
}

/* -------------------------------------------------------------------------- */
// Helpers
/* -------------------------------------------------------------------------- */

// respondJSON marshals data and writes it with the given status. The
// marshal runs into a buffer first so an encoding failure can still
// become a 500.
func (web *WebApp) respondJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		web.log.Error("response encoding failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// errorEnvelope is the body of every error response.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ServerError logs and returns an internal server error. The error
// detail is only exposed in development mode.
func (web *WebApp) ServerError(w http.ResponseWriter, r *http.Request, errs ...error) {
	err := errors.Join(errs...)
	web.log.Error("server error", "error", err, "method", r.Method, "uri", r.URL.RequestURI())
	message := http.StatusText(http.StatusInternalServerError)
	if web.cfg.Web.DevelopmentMode {
		message = err.Error()
	}
	web.respondJSON(w, http.StatusInternalServerError, errorEnvelope{Message: message})
}

// clientError returns a client error in the JSON envelope.
func (web *WebApp) clientError(w http.ResponseWriter, message string, status int) {
	if message == "" {
		message = http.StatusText(status)
	}
	web.respondJSON(w, status, errorEnvelope{Message: message})
}

// notFound raises a 404 clientError.
func (web *WebApp) notFound(w http.ResponseWriter, r *http.Request, message string) {
	web.clientError(w, message, http.StatusNotFound)
}

// fail maps a database or token error onto the appropriate HTTP
// response.
func (web *WebApp) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		web.notFound(w, r, "record not found")
	case errors.Is(err, db.ErrSelfMerge):
		web.clientError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, db.ErrAlreadySigned):
		web.clientError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, token.ErrInvalidToken):
		web.clientError(w, "invalid or expired token", http.StatusUnauthorized)
	case db.IsConstraintViolation(err):
		web.clientError(w, "the change conflicts with existing data", http.StatusConflict)
	default:
		web.ServerError(w, r, err)
	}
}

// invalid returns a 400 with the validator's flattened failures.
func (web *WebApp) invalid(w http.ResponseWriter, v *Validator) {
	web.clientError(w, v.ErrorMessage(), http.StatusBadRequest)
}

// muxID extracts the numeric {id} route variable.
func muxID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %w", err)
	}
	return id, nil
}

// today gives the current ISO-8601 calendar date.
func today() string {
	return time.Now().Format("2006-01-02")
}
