package receipts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/moyshiginzburg/atelier/config"
)

// newTestService stands in for both the token endpoint and the
// extraction endpoint.
func newTestService(t *testing.T, extract http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-access-token","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/v1/extract", extract)
	return httptest.NewServer(mux)
}

func testConfig(serverURL string) *config.Config {
	return &config.Config{
		Receipts: config.ReceiptConfig{
			URL:          serverURL,
			TokenURL:     serverURL + "/oauth/token",
			ClientID:     "client-id",
			ClientSecret: "client-secret",
		},
	}
}

func TestNewClientDisabled(t *testing.T) {
	_, err := NewClient(context.Background(), &config.Config{}, log.New(io.Discard))
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("got %v want ErrDisabled", err)
	}
}

func TestExtract(t *testing.T) {
	server := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); !strings.Contains(got, "test-access-token") {
			t.Errorf("authorization header: %q", got)
		}
		if got := r.URL.Query().Get("filename"); got != "r1.pdf" {
			t.Errorf("filename param: %q", got)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatal(err)
		}
		if string(body) != "pdf bytes" {
			t.Errorf("request body: %q", body)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"vendor":"Silk Supply Co","amount":120.5,"date":"2026-05-01","reference":"INV-99"}`)
	})
	defer server.Close()

	client, err := NewClient(context.Background(), testConfig(server.URL), log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}

	got, err := client.Extract(context.Background(), ExtractQuery{Filename: "r1.pdf"}, []byte("pdf bytes"))
	if err != nil {
		t.Fatal(err)
	}
	want := &ExtractedReceipt{
		Vendor:    "Silk Supply Co",
		Amount:    120.5,
		Date:      "2026-05-01",
		Reference: "INV-99",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("extraction mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractServiceError(t *testing.T) {
	server := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unreadable receipt", http.StatusUnprocessableEntity)
	})
	defer server.Close()

	client, err := NewClient(context.Background(), testConfig(server.URL), log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Extract(context.Background(), ExtractQuery{Filename: "bad.jpg"}, []byte("x")); err == nil {
		t.Fatal("expected an error for a non-2xx response")
	}
}
