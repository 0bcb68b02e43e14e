package erpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"sirius-system/internal/draft"
)

func newTestOrder() *draft.Draft {
	d := draft.New()
	d.OrderNumber = 1
	return d
}

func TestRequestCarriesAuthAndTenantHeaders(t *testing.T) {
	var gotAuth, gotCompany string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCompany = r.Header.Get("X-Empresa-Id")
		w.Write([]byte(`{"success":true,"data":{"number":42}}`))
	}))
	defer server.Close()

	c := New(server.URL, "tok-123", 7)
	number, err := c.NextOrderNumber(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if number != 42 {
		t.Errorf("expected number 42, got %d", number)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("expected bearer header, got %q", gotAuth)
	}
	if gotCompany != "7" {
		t.Errorf("expected tenant header 7, got %q", gotCompany)
	}
}

func TestServerMessageSurfacedVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"success":false,"message":"insufficient stock for Café Torrado"}`))
	}))
	defer server.Close()

	c := New(server.URL, "tok", 1)
	_, err := c.SubmitOrder(context.Background(), *newTestOrder())
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "insufficient stock for Café Torrado" {
		t.Errorf("expected verbatim server message, got %q", err.Error())
	}
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := New(server.URL, "expired", 1)
	if _, err := c.NextOrderNumber(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTransportFailureIsGenericConnectivityError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // force a connection error

	c := New(server.URL, "tok", 1)
	_, err := c.ListPaymentMethods(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); len(got) == 0 || got[:23] != "erp service unreachable" {
		t.Errorf("expected connectivity error, got %q", got)
	}
}

func TestSearchProductsDecodesSnapshots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("term") != "café" {
			t.Errorf("expected term query, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"success":true,"data":[
			{"id":1,"code":"001","description":"Café Torrado","unit":"KG","price":"32.90","stock":"12.500"}
		]}`))
	}))
	defer server.Close()

	c := New(server.URL, "tok", 1)
	products, err := c.SearchProducts(context.Background(), "café")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	if products[0].Price.StringFixed(2) != "32.90" {
		t.Errorf("expected price 32.90, got %s", products[0].Price)
	}
	if products[0].Stock.StringFixed(3) != "12.500" {
		t.Errorf("expected stock 12.500, got %s", products[0].Stock)
	}
}
