package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPTransport forwards dispatch records to the configured repository
// webhook (dispatch.template_repo, authenticated with
// dispatch.dispatch_token). The unprefixed TEMPLATE_REPO and
// DISPATCH_TOKEN environment variables are not read.
type HTTPTransport struct {
	client *resty.Client
}

// NewHTTPTransport builds a transport bound to webhookURL, authenticating
// with token as a bearer credential. attemptTimeout bounds each request
// the client makes; resty's own retry machinery is left disabled here
// since Dispatcher implements the bounded-backoff policy itself.
func NewHTTPTransport(webhookURL, token string, attemptTimeout time.Duration) *HTTPTransport {
	client := resty.New().
		SetBaseURL(webhookURL).
		SetTimeout(attemptTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetHeader("Authorization", "Bearer "+token)
	}
	return &HTTPTransport{client: client}
}

func (t *HTTPTransport) Send(ctx context.Context, record DispatchRecord) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(record).
		Post("")
	if err != nil {
		return &TransportError{Kind: FailureUnreachable, Err: err}
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return &TransportError{Kind: FailureUnauthorized, Err: fmt.Errorf("status %d", resp.StatusCode())}
	case resp.StatusCode() >= 500:
		return &TransportError{Kind: FailureUnreachable, Err: fmt.Errorf("status %d", resp.StatusCode())}
	case resp.StatusCode() >= 400:
		return &TransportError{Kind: FailureMalformedResponse, Err: fmt.Errorf("status %d", resp.StatusCode())}
	}
	return nil
}
