package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/moyshiginzburg/atelier/config"
	"github.com/moyshiginzburg/atelier/db"
	"github.com/moyshiginzburg/atelier/internal/notify"
	"github.com/moyshiginzburg/atelier/internal/token"
)

// newTestApp returns a WebApp over a fresh named in-memory database
// with a seeded login user.
func newTestApp(t *testing.T) *WebApp {
	t.Helper()

	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, t.Name())
	dsn := fmt.Sprintf("file:web_%s?mode=memory&cache=shared", name)

	logger := log.New(io.Discard)
	testDB, err := db.NewConnection(dsn, logger)
	if err != nil {
		t.Fatalf("could not open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = testDB.Close()
	})

	cfg := &config.Config{
		Web: config.WebConfig{
			ListenAddress:   "localhost:0",
			DevelopmentMode: true,
		},
		Auth: config.AuthConfig{
			JWTSecret:           "test-secret",
			TokenLifetime:       time.Hour,
			SigningLinkLifetime: time.Hour,
		},
		Uploads: config.UploadsConfig{Dir: t.TempDir()},
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := testDB.UserCreate(context.Background(), "moyshe", string(hash)); err != nil {
		t.Fatal(err)
	}

	app, err := New(logger, cfg, testDB, token.NewSigner(cfg.Auth.JWTSecret),
		notify.New("", logger), nil)
	if err != nil {
		t.Fatal(err)
	}
	return app
}

// doJSON performs a request against the handler, optionally with a
// bearer token and a JSON body.
func doJSON(t *testing.T, handler http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// decodeBody decodes a recorded JSON response into dst.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("could not decode response %q: %v", rec.Body.String(), err)
	}
}

// login logs the seeded user in and returns a bearer token.
func login(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec := doJSON(t, handler, "POST", "/login", "", LoginPayload{
		Username: "moyshe",
		Password: "correct horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var response struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	decodeBody(t, rec, &response)
	if !response.Success || response.Token == "" {
		t.Fatalf("unexpected login response: %+v", response)
	}
	return response.Token
}

// createCustomer makes a customer through the API for use by other
// tests.
func createCustomer(t *testing.T, handler http.Handler, bearer, name, phone string) int64 {
	t.Helper()
	rec := doJSON(t, handler, "POST", "/customers", bearer, CustomerPayload{
		Name:  name,
		Phone: phone,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("customer create failed: %d %s", rec.Code, rec.Body.String())
	}
	var response struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &response)
	return response.ID
}

// createDress makes a dress through the API for use by other tests.
func createDress(t *testing.T, handler http.Handler, bearer, name string, basePrice float64, intendedUse string) int64 {
	t.Helper()
	rec := doJSON(t, handler, "POST", "/dresses", bearer, DressPayload{
		Name:        name,
		BasePrice:   basePrice,
		IntendedUse: intendedUse,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("dress create failed: %d %s", rec.Code, rec.Body.String())
	}
	var response struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &response)
	return response.ID
}

func TestLoginAndAuth(t *testing.T) {
	app := newTestApp(t)
	handler := app.routes()

	// A protected endpoint without a token.
	rec := doJSON(t, handler, "GET", "/customers", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d want 401", rec.Code)
	}
	var envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, rec, &envelope)
	if envelope.Success || envelope.Message == "" {
		t.Errorf("unexpected error envelope: %+v", envelope)
	}

	// Bad credentials.
	rec = doJSON(t, handler, "POST", "/login", "", LoginPayload{
		Username: "moyshe",
		Password: "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: got %d want 401", rec.Code)
	}
	rec = doJSON(t, handler, "POST", "/login", "", LoginPayload{
		Username: "nobody",
		Password: "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: got %d want 401", rec.Code)
	}

	// A garbage token.
	rec = doJSON(t, handler, "GET", "/customers", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: got %d want 401", rec.Code)
	}

	// The real thing.
	bearer := login(t, handler)
	rec = doJSON(t, handler, "GET", "/customers", bearer, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("authorised listing: got %d want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestCustomerEndpoints(t *testing.T) {
	app := newTestApp(t)
	handler := app.routes()
	bearer := login(t, handler)

	id := createCustomer(t, handler, bearer, "Rivka Stern", "+972-50-1234567")

	// The stored phone is normalised.
	rec := doJSON(t, handler, "GET", fmt.Sprintf("/customers/%d", id), bearer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("customer get: %d %s", rec.Code, rec.Body.String())
	}
	var detail struct {
		Customer db.Customer `json:"customer"`
	}
	decodeBody(t, rec, &detail)
	if detail.Customer.Phone != "0501234567" {
		t.Errorf("phone not normalised: %q", detail.Customer.Phone)
	}

	// Validation failure.
	rec = doJSON(t, handler, "POST", "/customers", bearer, CustomerPayload{Name: "No Phone"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing phone: got %d want 400", rec.Code)
	}

	// Update.
	rec = doJSON(t, handler, "PUT", fmt.Sprintf("/customers/%d", id), bearer, CustomerPayload{
		Name:  "Rivka Stern-Katz",
		Phone: "0501234567",
		Notes: "prefers evening fittings",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("customer update: %d %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &detail)
	if detail.Customer.Name != "Rivka Stern-Katz" {
		t.Errorf("update not applied: %+v", detail.Customer)
	}

	// Listing with pagination.
	rec = doJSON(t, handler, "GET", "/customers?search=stern", bearer, nil)
	var listing struct {
		Customers  []db.Customer `json:"customers"`
		Pagination *Pagination   `json:"pagination"`
	}
	decodeBody(t, rec, &listing)
	if len(listing.Customers) != 1 {
		t.Fatalf("listing rows: got %d want 1", len(listing.Customers))
	}
	if listing.Pagination.TotalRecords != 1 || listing.Pagination.Pages != 1 {
		t.Errorf("pagination: %+v", listing.Pagination)
	}

	// Unknown customer.
	rec = doJSON(t, handler, "GET", "/customers/9999", bearer, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing customer: got %d want 404", rec.Code)
	}

	// Merge two duplicates.
	dupID := createCustomer(t, handler, bearer, "R. Stern", "0529999999")
	rec = doJSON(t, handler, "POST", "/customers/merge", bearer, CustomersMergePayload{
		TargetID: id,
		SourceID: dupID,
		Final: CustomerPayload{
			Name:  "Rivka Stern-Katz",
			Phone: "0501234567",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("customer merge: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, "GET", fmt.Sprintf("/customers/%d", dupID), bearer, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("merged source still present: got %d want 404", rec.Code)
	}

	// Self-merge is rejected before any writes.
	rec = doJSON(t, handler, "POST", "/customers/merge", bearer, CustomersMergePayload{
		TargetID: id,
		SourceID: id,
		Final:    CustomerPayload{Name: "X", Phone: "0501234567"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("self merge: got %d want 400", rec.Code)
	}
}

func TestOrderFlow(t *testing.T) {
	app := newTestApp(t)
	handler := app.routes()
	bearer := login(t, handler)

	customerID := createCustomer(t, handler, bearer, "Dina Azulay", "0521111111")
	dressID := createDress(t, handler, bearer, "silk slip", 900, db.UseSale)

	// An order without a customer reference is rejected.
	rec := doJSON(t, handler, "POST", "/orders", bearer, OrderCreatePayload{
		EventDate:  "2026-10-01",
		TotalPrice: 900,
		Items:      []OrderItemPayload{{ItemType: db.ItemSale, DressID: &dressID}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("no customer: got %d want 400: %s", rec.Code, rec.Body.String())
	}

	// Create with a sale item and a deposit.
	rec = doJSON(t, handler, "POST", "/orders", bearer, OrderCreatePayload{
		CustomerID: &customerID,
		EventDate:  "2026-10-01",
		TotalPrice: 900,
		Items: []OrderItemPayload{{
			ItemType:    db.ItemSale,
			DressID:     &dressID,
			Description: "silk slip",
			BasePrice:   900,
		}},
		Deposits: []DepositPayload{{Amount: 300, Date: "2026-09-01"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("order create: %d %s", rec.Code, rec.Body.String())
	}
	var created orderResponse
	decodeBody(t, rec, &created)
	if created.Order.PaidAmount != 300 {
		t.Errorf("paid amount: got %v want 300", created.Order.PaidAmount)
	}
	if len(created.Items) != 1 {
		t.Fatalf("items: got %d want 1", len(created.Items))
	}

	// The sale dress is now sold.
	rec = doJSON(t, handler, "GET", fmt.Sprintf("/dresses/%d", dressID), bearer, nil)
	var dressDetail struct {
		Dress db.Dress `json:"dress"`
	}
	decodeBody(t, rec, &dressDetail)
	if dressDetail.Dress.Status != db.DressSold {
		t.Errorf("dress status after sale: got %q want sold", dressDetail.Dress.Status)
	}

	// The dress history records the sale.
	rec = doJSON(t, handler, "GET", fmt.Sprintf("/dresses/%d/history", dressID), bearer, nil)
	var history struct {
		History []db.DressHistoryEntry `json:"history"`
	}
	decodeBody(t, rec, &history)
	if len(history.History) != 1 {
		t.Errorf("history entries: got %d want 1", len(history.History))
	}

	// Cancelling the order releases the dress.
	rec = doJSON(t, handler, "DELETE", fmt.Sprintf("/orders/%d", created.Order.ID), bearer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("order cancel: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, "GET", fmt.Sprintf("/dresses/%d", dressID), bearer, nil)
	decodeBody(t, rec, &dressDetail)
	if dressDetail.Dress.Status != db.DressAvailable {
		t.Errorf("dress status after cancel: got %q want available", dressDetail.Dress.Status)
	}

	// Cancelling an unknown order is a 404.
	rec = doJSON(t, handler, "DELETE", "/orders/9999", bearer, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing order cancel: got %d want 404", rec.Code)
	}
}

func TestOrderCreateWithInlineCustomer(t *testing.T) {
	app := newTestApp(t)
	handler := app.routes()
	bearer := login(t, handler)

	existingID := createCustomer(t, handler, bearer, "Tamar Peretz", "+972-54-7654321")

	// The inline customer matches the existing one by canonical phone.
	rec := doJSON(t, handler, "POST", "/orders", bearer, OrderCreatePayload{
		NewCustomer: &NewCustomerPayload{Name: "Tamar P", Phone: "0547654321"},
		EventDate:   "2026-11-15",
		TotalPrice:  450,
		Items: []OrderItemPayload{{
			ItemType:    db.ItemRental,
			Description: "evening gown",
			BasePrice:   450,
		}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("order create: %d %s", rec.Code, rec.Body.String())
	}
	var created orderResponse
	decodeBody(t, rec, &created)
	if created.Order.CustomerID != existingID {
		t.Errorf("customer dedup: got %d want %d", created.Order.CustomerID, existingID)
	}
}

func TestOrderUpdateAndMerge(t *testing.T) {
	app := newTestApp(t)
	handler := app.routes()
	bearer := login(t, handler)

	customerID := createCustomer(t, handler, bearer, "Noa Baruch", "0533333333")

	makeOrder := func(total float64, itemType, description string) orderResponse {
		rec := doJSON(t, handler, "POST", "/orders", bearer, OrderCreatePayload{
			CustomerID: &customerID,
			EventDate:  "2026-12-01",
			TotalPrice: total,
			Items: []OrderItemPayload{{
				ItemType:    itemType,
				Description: description,
				BasePrice:   total,
			}},
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("order create: %d %s", rec.Code, rec.Body.String())
		}
		var created orderResponse
		decodeBody(t, rec, &created)
		return created
	}

	target := makeOrder(400, db.ItemRental, "ball gown")
	source := makeOrder(250, db.ItemSewing, "hem adjustment")

	// Update the target with a replaced item set.
	items := []OrderItemPayload{{
		ItemType:    db.ItemRental,
		Description: "ball gown with shawl",
		BasePrice:   420,
	}}
	rec := doJSON(t, handler, "PUT", fmt.Sprintf("/orders/%d", target.Order.ID), bearer,
		OrderUpdatePayload{
			EventDate:  "2026-12-02",
			TotalPrice: 420,
			Items:      &items,
		})
	if rec.Code != http.StatusOK {
		t.Fatalf("order update: %d %s", rec.Code, rec.Body.String())
	}
	var updated orderResponse
	decodeBody(t, rec, &updated)
	if updated.Order.EventDate != "2026-12-02" || updated.Order.TotalPrice != 420 {
		t.Errorf("update not applied: %+v", updated.Order)
	}
	if len(updated.Items) != 1 || updated.Items[0].Description != "ball gown with shawl" {
		t.Errorf("items not replaced: %+v", updated.Items)
	}

	// Merge the source into the target.
	rec = doJSON(t, handler, "POST", "/orders/merge", bearer, OrdersMergePayload{
		TargetID: target.Order.ID,
		SourceID: source.Order.ID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("order merge: %d %s", rec.Code, rec.Body.String())
	}
	var merged orderResponse
	decodeBody(t, rec, &merged)
	if len(merged.Items) != 2 {
		t.Errorf("merged items: got %d want 2", len(merged.Items))
	}
	if merged.Order.TotalPrice != 670 {
		t.Errorf("merged total: got %v want 670", merged.Order.TotalPrice)
	}
	rec = doJSON(t, handler, "GET", fmt.Sprintf("/orders/%d", source.Order.ID), bearer, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("merged source still present: got %d want 404", rec.Code)
	}

	// Self-merge is rejected.
	rec = doJSON(t, handler, "POST", "/orders/merge", bearer, OrdersMergePayload{
		TargetID: target.Order.ID,
		SourceID: target.Order.ID,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("self merge: got %d want 400", rec.Code)
	}
}

func TestOrderCreateNotifies(t *testing.T) {
	received := make(chan notify.Event, 1)
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event notify.Event
		_ = json.NewDecoder(r.Body).Decode(&event)
		received <- event
	}))
	defer webhook.Close()

	app := newTestApp(t)
	app.notifier = notify.New(webhook.URL, app.log)
	handler := app.routes()
	bearer := login(t, handler)

	customerID := createCustomer(t, handler, bearer, "Shira Levi", "0544444444")
	rec := doJSON(t, handler, "POST", "/orders", bearer, OrderCreatePayload{
		CustomerID: &customerID,
		EventDate:  "2026-10-20",
		TotalPrice: 500,
		Items: []OrderItemPayload{{
			ItemType:    db.ItemRental,
			Description: "lace gown",
			BasePrice:   500,
		}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("order create: %d %s", rec.Code, rec.Body.String())
	}
	app.notifier.Wait()

	select {
	case event := <-received:
		if event.Kind != notify.KindOrderCreated {
			t.Errorf("event kind: got %q want order_created", event.Kind)
		}
		if event.CustomerName != "Shira Levi" {
			t.Errorf("event customer: %q", event.CustomerName)
		}
	default:
		t.Fatal("no webhook event received")
	}
}

func TestAgreementSigningFlow(t *testing.T) {
	app := newTestApp(t)
	handler := app.routes()
	bearer := login(t, handler)

	customerID := createCustomer(t, handler, bearer, "Yael Mizrahi", "0555555555")
	rec := doJSON(t, handler, "POST", "/orders", bearer, OrderCreatePayload{
		CustomerID: &customerID,
		EventDate:  "2026-11-01",
		TotalPrice: 600,
		Items: []OrderItemPayload{{
			ItemType:    db.ItemRental,
			Description: "chiffon gown",
			BasePrice:   600,
		}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("order create: %d %s", rec.Code, rec.Body.String())
	}
	var created orderResponse
	decodeBody(t, rec, &created)

	// Terms come from settings, served publicly.
	rec = doJSON(t, handler, "PUT", "/settings", bearer, SettingsPayload{
		agreementTermsKey: "returned clean and on time",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("settings update: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, "GET", "/agreements/terms", "", nil)
	var terms struct {
		Terms string `json:"terms"`
	}
	decodeBody(t, rec, &terms)
	if terms.Terms != "returned clean and on time" {
		t.Errorf("terms: %q", terms.Terms)
	}

	// Create the agreement and get the share token.
	rec = doJSON(t, handler, "POST", "/agreements", bearer, AgreementCreatePayload{
		OrderID: created.Order.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("agreement create: %d %s", rec.Code, rec.Body.String())
	}
	var agreement struct {
		ID         int64  `json:"id"`
		ShareToken string `json:"shareToken"`
	}
	decodeBody(t, rec, &agreement)
	if agreement.ShareToken == "" {
		t.Fatal("no share token returned")
	}

	// Public prefill, no auth header.
	rec = doJSON(t, handler, "GET", "/agreements/prefill?token="+agreement.ShareToken, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("prefill: %d %s", rec.Code, rec.Body.String())
	}
	var prefill struct {
		CustomerName string `json:"customerName"`
		EventDate    string `json:"eventDate"`
		Status       string `json:"status"`
	}
	decodeBody(t, rec, &prefill)
	if prefill.CustomerName != "Yael Mizrahi" || prefill.Status != db.AgreementPending {
		t.Errorf("prefill: %+v", prefill)
	}

	// A tampered token is rejected.
	rec = doJSON(t, handler, "GET", "/agreements/prefill?token=bogus", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bogus token: got %d want 401", rec.Code)
	}

	// Sign with a data-URL signature.
	signature := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png bytes"))
	rec = doJSON(t, handler, "POST", "/agreements/sign", "", AgreementSignPayload{
		Token:     agreement.ShareToken,
		Signature: signature,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sign: %d %s", rec.Code, rec.Body.String())
	}

	// The signature image landed under the uploads directory.
	signaturePath := filepath.Join(app.cfg.Uploads.Dir, "signatures",
		fmt.Sprintf("agreement_%d.png", agreement.ID))
	if content, err := os.ReadFile(signaturePath); err != nil || string(content) != "png bytes" {
		t.Errorf("signature file: %q %v", content, err)
	}

	// Signing again conflicts.
	rec = doJSON(t, handler, "POST", "/agreements/sign", "", AgreementSignPayload{
		Token:     agreement.ShareToken,
		Signature: signature,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("re-sign: got %d want 409", rec.Code)
	}

	// The back-office view shows the signed state.
	rec = doJSON(t, handler, "GET", fmt.Sprintf("/agreements/%d", agreement.ID), bearer, nil)
	var detail struct {
		Agreement db.Agreement `json:"agreement"`
	}
	decodeBody(t, rec, &detail)
	if detail.Agreement.Status != db.AgreementSigned || detail.Agreement.SignedAt == nil {
		t.Errorf("agreement after signing: %+v", detail.Agreement)
	}
}

func TestDashboard(t *testing.T) {
	app := newTestApp(t)
	handler := app.routes()
	bearer := login(t, handler)

	customerID := createCustomer(t, handler, bearer, "Maya Cohen", "0566666666")
	eventDate := time.Now().AddDate(0, 1, 0).Format("2006-01-02")
	rec := doJSON(t, handler, "POST", "/orders", bearer, OrderCreatePayload{
		CustomerID: &customerID,
		EventDate:  eventDate,
		TotalPrice: 800,
		Items: []OrderItemPayload{{
			ItemType:    db.ItemRental,
			Description: "velvet gown",
			BasePrice:   800,
		}},
		Deposits: []DepositPayload{{Amount: 200, Date: today()}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("order create: %d %s", rec.Code, rec.Body.String())
	}
	createDress(t, handler, bearer, "tulle gown", 300, db.UseRental)

	rec = doJSON(t, handler, "GET", "/dashboard", bearer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: %d %s", rec.Code, rec.Body.String())
	}
	var dashboard struct {
		Monthly     []db.MonthlyTotals    `json:"monthly"`
		Upcoming    []db.UpcomingOrder    `json:"upcoming"`
		DressCounts []db.DressStatusCount `json:"dressCounts"`
	}
	decodeBody(t, rec, &dashboard)
	if len(dashboard.Monthly) != 1 || dashboard.Monthly[0].Income != 200 {
		t.Errorf("monthly totals: %+v", dashboard.Monthly)
	}
	if len(dashboard.Upcoming) != 1 || dashboard.Upcoming[0].CustomerName != "Maya Cohen" {
		t.Errorf("upcoming orders: %+v", dashboard.Upcoming)
	}
	if len(dashboard.DressCounts) != 1 || dashboard.DressCounts[0].DressCount != 1 {
		t.Errorf("dress counts: %+v", dashboard.DressCounts)
	}
}

func TestUploadAndDressPhoto(t *testing.T) {
	app := newTestApp(t)
	handler := app.routes()
	bearer := login(t, handler)

	// A receipt upload.
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "receipt one.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("pdf bytes")); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/uploads/receipts", body)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	var uploaded struct {
		Path string `json:"path"`
	}
	decodeBody(t, rec, &uploaded)
	if !strings.HasPrefix(uploaded.Path, "receipts/") {
		t.Errorf("upload path: %q", uploaded.Path)
	}
	if !strings.HasSuffix(uploaded.Path, "receipt_one.pdf") {
		t.Errorf("filename not sanitised: %q", uploaded.Path)
	}
	fullPath := filepath.Join(app.cfg.Uploads.Dir, filepath.FromSlash(uploaded.Path))
	if content, err := os.ReadFile(fullPath); err != nil || string(content) != "pdf bytes" {
		t.Errorf("uploaded file: %q %v", content, err)
	}

	// A dress photo upload sets the dress's photo path.
	dressID := createDress(t, handler, bearer, "satin gown", 500, db.UseRental)
	body = new(bytes.Buffer)
	mw = multipart.NewWriter(body)
	part, err = mw.CreateFormFile("file", "front.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("jpeg bytes")); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest("POST", fmt.Sprintf("/dresses/%d/photo", dressID), body)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("dress photo: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, "GET", fmt.Sprintf("/dresses/%d", dressID), bearer, nil)
	var detail struct {
		Dress db.Dress `json:"dress"`
	}
	decodeBody(t, rec, &detail)
	if !strings.HasPrefix(detail.Dress.PhotoPath, "photos/") {
		t.Errorf("dress photo path: %q", detail.Dress.PhotoPath)
	}
}
