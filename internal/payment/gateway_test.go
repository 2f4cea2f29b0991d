package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/config"
)

func newTestClient(gatewayURL string) *Client {
	return NewClient(&config.PaymentConfig{GatewayURL: gatewayURL})
}

func TestGatewayCreateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("gateway received unparseable form: %v", err)
		}
		if r.PostFormValue("merchant_id") != "M-1" {
			t.Errorf("merchant_id = %q", r.PostFormValue("merchant_id"))
		}
		if r.PostFormValue("signature") == "" {
			t.Error("request must carry a signature")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","checkout_url":"https://pay.example.com/c/1","payment_id":"PAY-9"}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).Create(context.Background(), map[string]string{
		"merchant_id": "M-1",
		"order_id":    "SO1",
		"amount":      "1999",
		"signature":   "deadbeef",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if resp.CheckoutURL != "https://pay.example.com/c/1" || resp.PaymentID != "PAY-9" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGatewayCreateErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"error","message":"merchant not found"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Create(context.Background(), map[string]string{"order_id": "SO1"})
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gwErr.Message != "merchant not found" {
		t.Fatalf("gateway message must pass through unmodified, got %q", gwErr.Message)
	}
}

func TestGatewayCreateNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Create(context.Background(), map[string]string{"order_id": "SO1"})
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
}

func TestGatewayCreateInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Create(context.Background(), map[string]string{"order_id": "SO1"})
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
}

func TestGatewayCreateMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Create(context.Background(), map[string]string{"order_id": "SO1"})
	if err == nil {
		t.Fatal("success envelope without checkout_url/payment_id must be rejected")
	}
}
