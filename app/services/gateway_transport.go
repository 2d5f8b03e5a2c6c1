package services

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// GatewayHTTPRequest is a fully built outbound request; credentials are already in Headers
type GatewayHTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    []byte
}

// GatewayHTTPResponse is the raw reply of the gateway
type GatewayHTTPResponse struct {
	StatusCode int
	Body       []byte
}

// GatewayTransport sends one request and returns the raw response. It does not retry.
type GatewayTransport interface {
	Send(ctx context.Context, req *GatewayHTTPRequest) (*GatewayHTTPResponse, error)
}

// RestyTransport implements GatewayTransport on a resty client
type RestyTransport struct {
	client *resty.Client
}

// NewRestyTransport creates a transport whose every call is bounded by timeout
func NewRestyTransport(timeout time.Duration) GatewayTransport {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &RestyTransport{client: client}
}

// Send executes the request
func (t *RestyTransport) Send(ctx context.Context, req *GatewayHTTPRequest) (*GatewayHTTPResponse, error) {
	r := t.client.R().
		SetContext(ctx).
		SetHeaders(req.Headers).
		SetQueryParams(req.Query)
	if req.Body != nil {
		r = r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, err
	}

	return &GatewayHTTPResponse{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}, nil
}
