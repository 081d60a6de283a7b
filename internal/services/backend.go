package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tickets-web/internal/models"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxResponseBytes caps how much of a backend response is read
const maxResponseBytes = 4 << 20

// BackendConfig represents the booking backend client configuration
type BackendConfig struct {
	BaseURL            string
	Timeout            time.Duration
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
	Transport          http.RoundTripper // nil uses http.DefaultTransport
}

// BackendClient talks to the booking backend over HTTP
type BackendClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*backendResponse]
	logger  *slog.Logger
}

// backendResponse is a fully read HTTP response
type backendResponse struct {
	statusCode int
	body       []byte
}

// envelope is the {"data": ..., "message": ...} wrapper used by the backend
type envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message"`
}

var errServerStatus = errors.New("backend server error")

// NewBackendClient creates a new booking backend client
func NewBackendClient(config BackendConfig, logger *slog.Logger) *BackendClient {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	transport := config.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	maxFailures := uint32(5)
	if config.BreakerMaxFailures > 0 {
		maxFailures = uint32(config.BreakerMaxFailures)
	}

	breaker := gobreaker.NewCircuitBreaker[*backendResponse](gobreaker.Settings{
		Name:    "booking-backend",
		Timeout: config.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &BackendClient{
		baseURL: config.BaseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		breaker: breaker,
		logger:  logger,
	}
}

// GetCart fetches the caller's pending cart lines
func (c *BackendClient) GetCart(ctx context.Context, token string) ([]models.CartLine, error) {
	resp, err := c.do(ctx, "get cart", http.MethodGet, "/cart", token, nil)
	if err != nil {
		return nil, err
	}

	var out envelope[[]models.CartLine]
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode cart response: %w", err)
	}
	if out.Data == nil {
		return []models.CartLine{}, nil
	}
	return out.Data, nil
}

// DeleteCartLine removes one cart line
func (c *BackendClient) DeleteCartLine(ctx context.Context, token string, id int64) error {
	path := "/cart/" + strconv.FormatInt(id, 10)
	_, err := c.do(ctx, "delete cart line", http.MethodDelete, path, token, nil)
	return err
}

// Checkout submits the selected cart lines for payment
func (c *BackendClient) Checkout(ctx context.Context, token string, req *models.CheckoutRequest) (*models.CheckoutResult, error) {
	resp, err := c.do(ctx, "checkout", http.MethodPost, "/checkout", token, req)
	if err != nil {
		return nil, err
	}

	var result models.CheckoutResult
	if err := json.Unmarshal(resp.body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode checkout response: %w", err)
	}
	if result.BookingCode == "" {
		return nil, &models.BusinessError{StatusCode: resp.statusCode, Message: "booking code missing from checkout response"}
	}
	return &result, nil
}

// GetBooking fetches one booking by its code, scoped to the caller
func (c *BackendClient) GetBooking(ctx context.Context, token string, code string) (*models.Booking, error) {
	resp, err := c.do(ctx, "get booking", http.MethodGet, "/bookings/"+url.PathEscape(code), token, nil)
	if err != nil {
		return nil, err
	}

	var out envelope[*models.Booking]
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode booking response: %w", err)
	}
	if out.Data == nil {
		return nil, &models.BusinessError{StatusCode: http.StatusNotFound, Message: "booking missing from response"}
	}
	return out.Data, nil
}

// Login exchanges credentials for a bearer token
func (c *BackendClient) Login(ctx context.Context, email, password string) (string, error) {
	resp, err := c.do(ctx, "login", http.MethodPost, "/login", "", &LoginRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}

	var out LoginResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if out.BearerToken() == "" {
		return "", &models.AuthError{StatusCode: resp.statusCode, Message: "no token in login response"}
	}
	return out.BearerToken(), nil
}

// do sends one request through the circuit breaker and classifies the outcome
func (c *BackendClient) do(ctx context.Context, op, method, path, token string, payload any) (*backendResponse, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*backendResponse, error) {
		return c.roundTrip(ctx, method, path, token, body)
	})
	if err != nil && !errors.Is(err, errServerStatus) {
		c.logger.Warn("backend request failed", "op", op, "method", method, "path", path, "error", err)
		return nil, &models.TransportError{Op: op, Err: err}
	}

	c.logger.Debug("backend request", "op", op, "method", method, "path", path,
		"status", resp.statusCode, "duration", time.Since(start))

	if err := classifyStatus(resp.statusCode, resp.body); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *BackendClient) roundTrip(ctx context.Context, method, path, token string, body []byte) (*backendResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	out := &backendResponse{statusCode: resp.StatusCode, body: bodyBytes}
	if resp.StatusCode >= http.StatusInternalServerError {
		// Counted as a breaker failure, still handed back to the caller.
		return out, errServerStatus
	}
	return out, nil
}

// classifyStatus maps a non-2xx response onto the error taxonomy
func classifyStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	message := decodeMessage(body)
	if message == "" {
		message = http.StatusText(statusCode)
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &models.AuthError{StatusCode: statusCode, Message: message}
	default:
		return &models.BusinessError{StatusCode: statusCode, Message: message}
	}
}

func decodeMessage(body []byte) string {
	var out struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return ""
	}
	return out.Message
}
