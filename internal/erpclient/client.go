// Package erpclient talks to the Sirius ERP API over HTTP. Every request
// carries the bearer token and the X-Empresa-Id tenant header; the package
// implements the collaborator ports the draft controller consumes.
package erpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"sirius-system/internal/draft"
)

// ErrUnauthorized means the token was missing, expired or rejected; the
// caller is expected to route the operator back to login.
var ErrUnauthorized = errors.New("not authenticated")

type Client struct {
	baseURL   string
	token     string
	companyID int64
	http      *http.Client
}

func New(baseURL, token string, companyID int64) *Client {
	return &Client{
		baseURL:   baseURL,
		token:     token,
		companyID: companyID,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do sends one request and decodes the success/message envelope into out.
// Transport failures come back as a generic connectivity error; a
// success:false response surfaces the server message verbatim.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Empresa-Id", fmt.Sprintf("%d", c.companyID))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("erp service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("erp service returned an invalid response: %w", err)
	}

	if !envelope.Success {
		if envelope.Message != "" {
			return errors.New(envelope.Message)
		}
		return fmt.Errorf("erp service request failed with status %d", resp.StatusCode)
	}

	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("erp service returned an invalid response: %w", err)
		}
	}
	return nil
}

// --- Draft collaborator ports ---

func (c *Client) NextOrderNumber(ctx context.Context) (int64, error) {
	var data struct {
		Number int64 `json:"number"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/pdv/next-number", nil, &data); err != nil {
		return 0, err
	}
	return data.Number, nil
}

func (c *Client) DefaultClient(ctx context.Context) (*draft.Client, error) {
	var data draft.Client
	if err := c.do(ctx, http.MethodGet, "/api/v1/pdv/default-client", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) ListPaymentMethods(ctx context.Context) ([]draft.PaymentMethod, error) {
	var data []draft.PaymentMethod
	if err := c.do(ctx, http.MethodGet, "/api/v1/pdv/payment-methods", nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) SubmitOrder(ctx context.Context, order draft.Draft) (*draft.Confirmation, error) {
	var data draft.Confirmation
	if err := c.do(ctx, http.MethodPost, "/api/v1/pdv/orders/finalize", order, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// --- Catalog and client search ---

func (c *Client) SearchProducts(ctx context.Context, term string) ([]draft.ProductSnapshot, error) {
	var data []draft.ProductSnapshot
	path := "/api/v1/pdv/products/search?term=" + url.QueryEscape(term)
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) SearchClients(ctx context.Context, term string) ([]draft.Client, error) {
	var data []draft.Client
	path := "/api/v1/pdv/clients/search?term=" + url.QueryEscape(term)
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}
