package web

// forms.go holds the request payload types, their validation, and the
// decoding helpers for JSON bodies and URL query parameters.

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/schema"

	"github.com/moyshiginzburg/atelier/db"
)

// maxBodyBytes caps the size of a JSON request body.
const maxBodyBytes = 1 << 20

// Validator collects validation failures by field name.
type Validator struct {
	Errors map[string]string
}

// NewValidator makes a new Validator.
func NewValidator() *Validator {
	return &Validator{Errors: map[string]string{}}
}

// Valid reports whether no failures were recorded.
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records a failure for a field, keeping the first failure
// when a field is checked more than once.
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check records a failure for field unless ok holds.
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// ErrorMessage flattens the failures into a single deterministic
// message for the JSON error envelope.
func (v *Validator) ErrorMessage() string {
	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, v.Errors[field]))
	}
	return strings.Join(parts, "; ")
}

// decodeJSON decodes a request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("could not decode request body: %w", err)
	}
	return nil
}

// newSchemaDecoder makes a new gorilla/schema decoder for query
// parameter decoding.
func newSchemaDecoder() *schema.Decoder {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return decoder
}

var schemaDecoder = newSchemaDecoder()

// DecodeURLParams decodes URL query parameters into form.
func DecodeURLParams(r *http.Request, form any) error {
	if err := schemaDecoder.Decode(form, r.URL.Query()); err != nil {
		return fmt.Errorf("could not decode query parameters: %w", err)
	}
	return nil
}

// validDate reports whether s is an ISO-8601 calendar date.
func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// optionalDate reports whether s is empty or a valid date.
func optionalDate(s string) bool {
	return s == "" || validDate(s)
}

// oneOf reports whether s is empty or a member of the allowed set.
func oneOf(s string, allowed ...string) bool {
	if s == "" {
		return true
	}
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

/* -------------------------------------------------------------------------- */
// Listing forms, decoded from query parameters.
/* -------------------------------------------------------------------------- */

// SearchForm is the base listing form with pagination and a free-text
// search.
type SearchForm struct {
	Page   int    `schema:"page"`
	Search string `schema:"search"`
}

// NewSearchForm makes a new SearchForm starting at page 1.
func NewSearchForm() *SearchForm {
	return &SearchForm{Page: 1}
}

// Validate validates the form.
func (f *SearchForm) Validate(v *Validator) {
	v.Check(f.Page >= 1, "page", "must be 1 or greater")
}

// Offset gives the record offset of the form's page.
func (f *SearchForm) Offset() int {
	return (f.Page - 1) * pageLen
}

// DressesSearchForm narrows the dress listing.
type DressesSearchForm struct {
	SearchForm
	Status      string `schema:"status"`
	IntendedUse string `schema:"intendedUse"`
}

func (f *DressesSearchForm) Validate(v *Validator) {
	f.SearchForm.Validate(v)
	v.Check(oneOf(f.Status, db.DressAvailable, db.DressRented, db.DressSold, db.DressRetired),
		"status", "unknown dress status")
	v.Check(oneOf(f.IntendedUse, db.UseRental, db.UseSale), "intendedUse", "unknown intended use")
}

// OrdersSearchForm narrows the order listing.
type OrdersSearchForm struct {
	SearchForm
	Status   string `schema:"status"`
	DateFrom string `schema:"dateFrom"`
	DateTo   string `schema:"dateTo"`
}

func (f *OrdersSearchForm) Validate(v *Validator) {
	f.SearchForm.Validate(v)
	v.Check(oneOf(f.Status, db.OrderActive, db.OrderCancelled), "status", "unknown order status")
	v.Check(optionalDate(f.DateFrom), "dateFrom", "must be a date in YYYY-MM-DD form")
	v.Check(optionalDate(f.DateTo), "dateTo", "must be a date in YYYY-MM-DD form")
}

// TransactionsSearchForm narrows the ledger listing.
type TransactionsSearchForm struct {
	Page      int    `schema:"page"`
	Direction string `schema:"direction"`
	DateFrom  string `schema:"dateFrom"`
	DateTo    string `schema:"dateTo"`
	OrderID   int64  `schema:"orderId"`
}

func (f *TransactionsSearchForm) Validate(v *Validator) {
	v.Check(f.Page >= 1, "page", "must be 1 or greater")
	v.Check(oneOf(f.Direction, db.TxIncome, db.TxExpense), "direction", "unknown direction")
	v.Check(optionalDate(f.DateFrom), "dateFrom", "must be a date in YYYY-MM-DD form")
	v.Check(optionalDate(f.DateTo), "dateTo", "must be a date in YYYY-MM-DD form")
}

// Offset gives the record offset of the form's page.
func (f *TransactionsSearchForm) Offset() int {
	return (f.Page - 1) * pageLen
}

// AgreementsSearchForm narrows the agreement listing.
type AgreementsSearchForm struct {
	Page   int    `schema:"page"`
	Status string `schema:"status"`
}

func (f *AgreementsSearchForm) Validate(v *Validator) {
	v.Check(f.Page >= 1, "page", "must be 1 or greater")
	v.Check(oneOf(f.Status, db.AgreementPending, db.AgreementSigned), "status", "unknown agreement status")
}

// Offset gives the record offset of the form's page.
func (f *AgreementsSearchForm) Offset() int {
	return (f.Page - 1) * pageLen
}

// ReportForm selects the financial report window and the optional
// item categories the amounts are pro-rated against.
type ReportForm struct {
	DateFrom   string `schema:"dateFrom"`
	DateTo     string `schema:"dateTo"`
	Categories string `schema:"categories"` // comma-separated item types
}

func (f *ReportForm) Validate(v *Validator) {
	v.Check(optionalDate(f.DateFrom), "dateFrom", "must be a date in YYYY-MM-DD form")
	v.Check(optionalDate(f.DateTo), "dateTo", "must be a date in YYYY-MM-DD form")
	for _, c := range f.CategoryList() {
		v.Check(oneOf(c, db.ItemRental, db.ItemSewing, db.ItemSewingForRental, db.ItemSale, "deposit"),
			"categories", "unknown item category")
	}
}

// CategoryList splits the comma-separated category filter, dropping
// empty entries.
func (f *ReportForm) CategoryList() []string {
	if f.Categories == "" {
		return nil
	}
	parts := strings.Split(f.Categories, ",")
	categories := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			categories = append(categories, p)
		}
	}
	return categories
}

/* -------------------------------------------------------------------------- */
// JSON body payloads.
/* -------------------------------------------------------------------------- */

// LoginPayload is the body of a login request.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (p *LoginPayload) Validate(v *Validator) {
	v.Check(p.Username != "", "username", "must be provided")
	v.Check(p.Password != "", "password", "must be provided")
}

// CustomerPayload is the body of a customer create or update.
type CustomerPayload struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Source string `json:"source"`
	Notes  string `json:"notes"`
}

func (p *CustomerPayload) Validate(v *Validator) {
	v.Check(p.Name != "", "name", "must be provided")
	v.Check(p.Phone != "", "phone", "must be provided")
}

// toCustomer maps the payload onto a db customer record.
func (p *CustomerPayload) toCustomer(id int64) db.Customer {
	return db.Customer{
		ID:     id,
		Name:   p.Name,
		Phone:  p.Phone,
		Email:  p.Email,
		Source: p.Source,
		Notes:  p.Notes,
	}
}

// CustomersMergePayload merges the source customer into the target,
// with Final giving the merged record's field values.
type CustomersMergePayload struct {
	TargetID int64           `json:"targetId"`
	SourceID int64           `json:"sourceId"`
	Final    CustomerPayload `json:"final"`
}

func (p *CustomersMergePayload) Validate(v *Validator) {
	v.Check(p.TargetID > 0, "targetId", "must be provided")
	v.Check(p.SourceID > 0, "sourceId", "must be provided")
	p.Final.Validate(v)
}

// DressPayload is the body of a dress create or update.
type DressPayload struct {
	Name        string  `json:"name"`
	BasePrice   float64 `json:"basePrice"`
	Status      string  `json:"status"`
	IntendedUse string  `json:"intendedUse"`
	Notes       string  `json:"notes"`
}

func (p *DressPayload) Validate(v *Validator) {
	v.Check(p.Name != "", "name", "must be provided")
	v.Check(p.BasePrice >= 0, "basePrice", "must not be negative")
	v.Check(oneOf(p.Status, db.DressAvailable, db.DressRented, db.DressSold, db.DressRetired),
		"status", "unknown dress status")
	v.Check(oneOf(p.IntendedUse, db.UseRental, db.UseSale), "intendedUse", "unknown intended use")
}

func (p *DressPayload) toDress(id int64) db.Dress {
	return db.Dress{
		ID:          id,
		Name:        p.Name,
		BasePrice:   p.BasePrice,
		Status:      p.Status,
		IntendedUse: p.IntendedUse,
		Notes:       p.Notes,
	}
}

// OrderItemPayload is a line item within an order create or update.
type OrderItemPayload struct {
	DressID            *int64   `json:"dressId"`
	ItemType           string   `json:"itemType"`
	Description        string   `json:"description"`
	BasePrice          float64  `json:"basePrice"`
	AdditionalPayments float64  `json:"additionalPayments"`
	FinalPrice         *float64 `json:"finalPrice"`
}

func (p *OrderItemPayload) Validate(v *Validator) {
	v.Check(p.ItemType != "", "items.itemType", "must be provided")
	v.Check(oneOf(p.ItemType, db.ItemRental, db.ItemSewing, db.ItemSewingForRental, db.ItemSale),
		"items.itemType", "unknown item type")
	v.Check(p.BasePrice >= 0, "items.basePrice", "must not be negative")
}

func (p *OrderItemPayload) toItem() db.NewOrderItem {
	return db.NewOrderItem{
		DressID:            p.DressID,
		ItemType:           p.ItemType,
		Description:        p.Description,
		BasePrice:          p.BasePrice,
		AdditionalPayments: p.AdditionalPayments,
		FinalPrice:         p.FinalPrice,
	}
}

// NewCustomerPayload is an inline customer submitted with an order.
type NewCustomerPayload struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Source string `json:"source"`
}

// DepositPayload is a payment taken with an order create.
type DepositPayload struct {
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	ReceiptPath string  `json:"receiptPath"`
}

// OrderCreatePayload is the body of an order create. Exactly one of
// CustomerID and NewCustomer identifies the customer.
type OrderCreatePayload struct {
	CustomerID    *int64              `json:"customerId"`
	NewCustomer   *NewCustomerPayload `json:"newCustomer"`
	EventDate     string              `json:"eventDate"`
	TotalPrice    float64             `json:"totalPrice"`
	DepositAmount float64             `json:"depositAmount"`
	Notes         string              `json:"notes"`
	Items         []OrderItemPayload  `json:"items"`
	Deposits      []DepositPayload    `json:"deposits"`
}

func (p *OrderCreatePayload) Validate(v *Validator) {
	switch {
	case p.CustomerID == nil && p.NewCustomer == nil:
		v.AddError("customerId", "either customerId or newCustomer must be provided")
	case p.CustomerID != nil && p.NewCustomer != nil:
		v.AddError("customerId", "customerId and newCustomer are mutually exclusive")
	case p.NewCustomer != nil:
		v.Check(p.NewCustomer.Name != "", "newCustomer.name", "must be provided")
		v.Check(p.NewCustomer.Phone != "", "newCustomer.phone", "must be provided")
	}
	v.Check(validDate(p.EventDate), "eventDate", "must be a date in YYYY-MM-DD form")
	v.Check(p.TotalPrice > 0, "totalPrice", "must be greater than zero")
	v.Check(len(p.Items) > 0, "items", "at least one item must be provided")
	for _, item := range p.Items {
		item.Validate(v)
	}
	for _, deposit := range p.Deposits {
		v.Check(deposit.Amount > 0, "deposits.amount", "must be greater than zero")
		v.Check(optionalDate(deposit.Date), "deposits.date", "must be a date in YYYY-MM-DD form")
	}
}

func (p *OrderCreatePayload) toNewOrder() db.NewOrder {
	no := db.NewOrder{
		CustomerID:    p.CustomerID,
		EventDate:     p.EventDate,
		TotalPrice:    p.TotalPrice,
		DepositAmount: p.DepositAmount,
		Notes:         p.Notes,
	}
	if p.NewCustomer != nil {
		no.NewCustomer = &db.NewOrderCustomer{
			Name:   p.NewCustomer.Name,
			Phone:  p.NewCustomer.Phone,
			Email:  p.NewCustomer.Email,
			Source: p.NewCustomer.Source,
		}
	}
	for _, item := range p.Items {
		no.Items = append(no.Items, item.toItem())
	}
	for _, deposit := range p.Deposits {
		no.Deposits = append(no.Deposits, db.DepositPayment{
			Amount:      deposit.Amount,
			Date:        deposit.Date,
			Category:    deposit.Category,
			Description: deposit.Description,
			ReceiptPath: deposit.ReceiptPath,
		})
	}
	return no
}

// OrderUpdatePayload is the body of an order update. A non-nil Items
// replaces the order's full item set; nil leaves the items untouched.
type OrderUpdatePayload struct {
	EventDate     string              `json:"eventDate"`
	TotalPrice    float64             `json:"totalPrice"`
	DepositAmount float64             `json:"depositAmount"`
	Notes         string              `json:"notes"`
	Items         *[]OrderItemPayload `json:"items"`
}

func (p *OrderUpdatePayload) Validate(v *Validator) {
	v.Check(validDate(p.EventDate), "eventDate", "must be a date in YYYY-MM-DD form")
	v.Check(p.TotalPrice > 0, "totalPrice", "must be greater than zero")
	if p.Items != nil {
		v.Check(len(*p.Items) > 0, "items", "at least one item must be provided")
		for _, item := range *p.Items {
			item.Validate(v)
		}
	}
}

func (p *OrderUpdatePayload) toEdit() db.OrderEdit {
	edit := db.OrderEdit{
		EventDate:     p.EventDate,
		TotalPrice:    p.TotalPrice,
		DepositAmount: p.DepositAmount,
		Notes:         p.Notes,
	}
	if p.Items != nil {
		edit.ReplaceItems = true
		for _, item := range *p.Items {
			edit.Items = append(edit.Items, item.toItem())
		}
	}
	return edit
}

// OrdersMergePayload merges the source order into the target.
type OrdersMergePayload struct {
	TargetID int64 `json:"targetId"`
	SourceID int64 `json:"sourceId"`
}

func (p *OrdersMergePayload) Validate(v *Validator) {
	v.Check(p.TargetID > 0, "targetId", "must be provided")
	v.Check(p.SourceID > 0, "sourceId", "must be provided")
}

// TransactionPayload is the body of a ledger transaction create or
// update.
type TransactionPayload struct {
	Direction   string  `json:"direction"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	OrderID     *int64  `json:"orderId"`
	CustomerID  *int64  `json:"customerId"`
	ReceiptPath string  `json:"receiptPath"`
}

func (p *TransactionPayload) Validate(v *Validator) {
	v.Check(p.Direction == db.TxIncome || p.Direction == db.TxExpense,
		"direction", "must be income or expense")
	v.Check(p.Amount > 0, "amount", "must be greater than zero")
	v.Check(validDate(p.Date), "date", "must be a date in YYYY-MM-DD form")
	v.Check(p.Category != "", "category", "must be provided")
}

func (p *TransactionPayload) toTransaction(id int64) db.Transaction {
	return db.Transaction{
		ID:          id,
		Direction:   p.Direction,
		Amount:      p.Amount,
		Date:        p.Date,
		Category:    p.Category,
		Description: p.Description,
		OrderID:     p.OrderID,
		CustomerID:  p.CustomerID,
		ReceiptPath: p.ReceiptPath,
	}
}

// AgreementCreatePayload is the body of an agreement create.
type AgreementCreatePayload struct {
	OrderID int64  `json:"orderId"`
	PdfPath string `json:"pdfPath"`
}

func (p *AgreementCreatePayload) Validate(v *Validator) {
	v.Check(p.OrderID > 0, "orderId", "must be provided")
}

// AgreementSignPayload is the body of a public signing submission.
// Signature carries the signature image as base64-encoded PNG bytes.
type AgreementSignPayload struct {
	Token     string `json:"token"`
	Signature string `json:"signature"`
}

func (p *AgreementSignPayload) Validate(v *Validator) {
	v.Check(p.Token != "", "token", "must be provided")
	v.Check(p.Signature != "", "signature", "must be provided")
}

// SettingsPayload is the body of a settings update.
type SettingsPayload map[string]string
