package billingsync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(srv *httptest.Server) *billingClient {
	return &billingClient{
		baseURL:   srv.URL,
		apiKey:    "test-key",
		apiKeyHdr: "X-API-Key",
		http:      srv.Client(),
		limiter:   time.Tick(time.Microsecond),
	}
}

func TestListInvoicesFollowsCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if r.URL.Path != "/v1/customers/CUST-1/invoices" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			fmt.Fprint(w, `{"data":[{"id":"INV-1","total_amt":100,"balance":0}],"next_cursor":"p2"}`)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"INV-2","total_amt":200,"balance":50}],"next_cursor":""}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	invoices, err := c.ListInvoices(context.Background(), "CUST-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(invoices) != 2 || invoices[0].ID != "INV-1" || invoices[1].ID != "INV-2" {
		t.Fatalf("invoices = %+v", invoices)
	}
	if invoices[1].Balance.String() != "50" {
		t.Fatalf("balance = %s", invoices[1].Balance)
	}
}

func TestListRecurringChargesItemsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"id":"RCPT-1","total_amt":"89.99","processor_response":{"status":"Declined"}}],"has_more":false}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	charges, err := c.ListRecurringCharges(context.Background(), "CUST-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(charges) != 1 || charges[0].ProcessorResponse.Status != "Declined" {
		t.Fatalf("charges = %+v", charges)
	}
}

func TestListPaymentsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	if _, err := c.ListPayments(context.Background(), "CUST-1"); err == nil {
		t.Fatal("expected an error on 502")
	}
}

func TestNewBillingClientRequiresConfig(t *testing.T) {
	t.Setenv("BILLING_API_BASE_URL", "")
	t.Setenv("BILLING_API_KEY", "")
	if _, err := newBillingClient(); err == nil {
		t.Fatal("missing base url should fail")
	}

	t.Setenv("BILLING_API_BASE_URL", "https://billing.example.com")
	if _, err := newBillingClient(); err == nil {
		t.Fatal("missing api key should fail")
	}

	t.Setenv("BILLING_API_KEY", "k")
	c, err := newBillingClient()
	if err != nil {
		t.Fatal(err)
	}
	if c.apiKeyHdr != "X-API-Key" {
		t.Fatalf("default header = %s", c.apiKeyHdr)
	}
}
