package billingsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// billingAPI is what the sync worker needs from the external billing
// system: the three per-customer record lists.
type billingAPI interface {
	ListInvoices(ctx context.Context, customerID string) ([]billingInvoice, error)
	ListRecurringCharges(ctx context.Context, customerID string) ([]billingCharge, error)
	ListPayments(ctx context.Context, customerID string) ([]billingPayment, error)
}

type billingClient struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
	limiter   <-chan time.Time
}

func newBillingClient() (*billingClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("BILLING_API_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("BILLING_API_BASE_URL is not set")
	}
	apiKey := strings.TrimSpace(os.Getenv("BILLING_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("BILLING_API_KEY is not set")
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("BILLING_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	rateLimitPerMin := int64(60)
	if v := strings.TrimSpace(os.Getenv("BILLING_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &billingClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   time.Tick(interval),
	}, nil
}

type billingListResponse struct {
	Data       []json.RawMessage `json:"data"`
	Items      []json.RawMessage `json:"items"`
	NextCursor string            `json:"next_cursor"`
	HasMore    *bool             `json:"has_more"`
}

func (c *billingClient) getList(ctx context.Context, path string, params url.Values) (billingListResponse, error) {
	<-c.limiter
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return billingListResponse{}, err
	}
	req.Header.Set(c.apiKeyHdr, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return billingListResponse{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return billingListResponse{}, fmt.Errorf("billing api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed billingListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return billingListResponse{}, err
	}
	return parsed, nil
}

// listAll follows cursor pagination until the API reports no more pages.
func (c *billingClient) listAll(ctx context.Context, path string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	cursor := ""
	for {
		params := url.Values{}
		params.Set("limit", "200")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		resp, err := c.getList(ctx, path, params)
		if err != nil {
			return all, err
		}

		items := resp.Data
		if len(items) == 0 {
			items = resp.Items
		}
		all = append(all, items...)

		if resp.NextCursor == "" || (resp.HasMore != nil && !*resp.HasMore) {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}

func (c *billingClient) ListInvoices(ctx context.Context, customerID string) ([]billingInvoice, error) {
	raws, err := c.listAll(ctx, "/v1/customers/"+url.PathEscape(customerID)+"/invoices")
	if err != nil {
		return nil, err
	}
	out := make([]billingInvoice, 0, len(raws))
	for _, raw := range raws {
		var inv billingInvoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, nil
}

func (c *billingClient) ListRecurringCharges(ctx context.Context, customerID string) ([]billingCharge, error) {
	raws, err := c.listAll(ctx, "/v1/customers/"+url.PathEscape(customerID)+"/recurring-charges")
	if err != nil {
		return nil, err
	}
	out := make([]billingCharge, 0, len(raws))
	for _, raw := range raws {
		var ch billingCharge
		if err := json.Unmarshal(raw, &ch); err != nil {
			return nil, fmt.Errorf("decode recurring charge: %w", err)
		}
		out = append(out, ch)
	}
	return out, nil
}

func (c *billingClient) ListPayments(ctx context.Context, customerID string) ([]billingPayment, error) {
	raws, err := c.listAll(ctx, "/v1/customers/"+url.PathEscape(customerID)+"/payments")
	if err != nil {
		return nil, err
	}
	out := make([]billingPayment, 0, len(raws))
	for _, raw := range raws {
		var p billingPayment
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode payment: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}
