// Package backend is the REST client for the order backend. Calls are never
// retried here; a circuit breaker fails fast while the backend is down.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

const maxErrorBody = 4 << 10

// Client talks to the order backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*reply]
	sfg        singleflight.Group
}

type reply struct {
	status int
	body   []byte
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithBreakerSettings replaces the circuit breaker configuration.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Client) { c.breaker = gobreaker.NewCircuitBreaker[*reply](st) }
}

// New creates a client for the backend rooted at baseURL (e.g. http://host/api).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    gobreaker.NewCircuitBreaker[*reply](DefaultBreakerSettings()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultBreakerSettings opens the breaker after five consecutive failures
// and lets a trial call through after thirty seconds.
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "order-backend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	}
}

// CreateOrder stores a new order. The order number doubles as the idempotency
// key; a 409 carrying the already-stored order counts as success.
func (c *Client) CreateOrder(ctx context.Context, o Order) (*Order, error) {
	var out Order
	err := c.do(ctx, "create order", http.MethodPost, "/orders/", o.OrderNumber, o, &out, http.StatusConflict)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder fetches one order. Concurrent lookups of the same id share one
// request, which runs detached from any single caller's ctx and is bounded by
// the client timeout. Each caller still returns when its own ctx is done.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.sfg.DoChan(id, func() (interface{}, error) {
		var out Order
		if err := c.do(shared, "get order", http.MethodGet, "/orders/"+url.PathEscape(id)+"/", "", nil, &out); err != nil {
			var ne *NetworkError
			if errors.As(err, &ne) && ne.StatusCode == http.StatusNotFound {
				ne.Err = ErrOrderNotFound
			}
			return nil, err
		}
		return &out, nil
	})

	select {
	case <-ctx.Done():
		return nil, &NetworkError{Op: "get order", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		o := *res.Val.(*Order)
		return &o, nil
	}
}

func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.do(ctx, "list orders", http.MethodGet, "/orders/", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateGatewayOrder opens a payment-gateway order for an already stored order.
func (c *Client) CreateGatewayOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error) {
	var out GatewayOrder
	if err := c.do(ctx, "create gateway order", http.MethodPost, "/create-razorpay-order/", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTransaction records a gateway charge. The payment id is the idempotency
// key, so redelivering the same payment does not create a second record.
func (c *Client) CreateTransaction(ctx context.Context, tx Transaction) (*Transaction, error) {
	var out Transaction
	err := c.do(ctx, "create transaction", http.MethodPost, "/transactions/", tx.PaymentID, tx, &out, http.StatusConflict)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs one call. 2xx answers (plus any status in accept) are decoded into out.
func (c *Client) do(ctx context.Context, op, method, path, idempotencyKey string, in, out any, accept ...int) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &NetworkError{Op: op, Message: "encode request", Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &NetworkError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	rep, err := c.breaker.Execute(func() (*reply, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		rep := &reply{status: resp.StatusCode, body: data}
		if resp.StatusCode >= 500 {
			return rep, fmt.Errorf("server error %d", resp.StatusCode)
		}
		return rep, nil
	})
	if err != nil {
		if rep != nil {
			return &NetworkError{Op: op, StatusCode: rep.status, Message: errorMessage(rep.body), Err: err}
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &NetworkError{Op: op, Message: "backend unavailable", Err: err}
		}
		return &NetworkError{Op: op, Err: err}
	}

	if !accepted(rep.status, accept) {
		return &NetworkError{Op: op, StatusCode: rep.status, Message: errorMessage(rep.body)}
	}

	if out == nil || len(bytes.TrimSpace(rep.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(rep.body, out); err != nil {
		return &NetworkError{Op: op, StatusCode: rep.status, Message: "decode response", Err: err}
	}
	return nil
}

func accepted(status int, extra []int) bool {
	if status >= 200 && status < 300 {
		return true
	}
	for _, s := range extra {
		if status == s {
			return true
		}
	}
	return false
}

// errorMessage extracts the backend's "detail"/"error" field, falling back to the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}
