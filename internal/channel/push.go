package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/talentgrid/interview-engine/internal/domain"
)

const defaultPushTimeout = 10 * time.Second

type pushRequest struct {
	Token    string      `json:"token"`
	Platform string      `json:"platform"`
	Payload  PushPayload `json:"payload"`
}

// PushAdapter renders the typed push template and fans it out to every
// registered device endpoint through the push gateway.
type PushAdapter struct {
	client     *resty.Client
	gatewayURL string
}

func NewPushAdapter(gatewayURL string) (*PushAdapter, error) {
	client := resty.New()
	client.SetTimeout(defaultPushTimeout)
	client.SetRetryCount(0)

	return NewPushAdapterWithClient(gatewayURL, client)
}

func NewPushAdapterWithClient(gatewayURL string, client *resty.Client) (*PushAdapter, error) {
	trimmedURL := strings.TrimSpace(gatewayURL)
	if trimmedURL == "" {
		return nil, fmt.Errorf("push gateway url is required")
	}
	if _, err := url.ParseRequestURI(trimmedURL); err != nil {
		return nil, fmt.Errorf("invalid push gateway url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultPushTimeout)
	}
	client.SetRetryCount(0)

	return &PushAdapter{
		client:     client,
		gatewayURL: trimmedURL,
	}, nil
}

var _ Pusher = (*PushAdapter)(nil)

// Send posts the rendered payload to each target. An empty target set is a
// vacuous success. The returned error is non-nil only when every target
// failed; transient if any individual failure was transient.
func (a *PushAdapter) Send(ctx context.Context, n domain.Notification, targets []PushTarget) (*PushOutcome, error) {
	if a == nil || a.client == nil {
		return nil, fmt.Errorf("push adapter is not initialized")
	}

	outcome := &PushOutcome{}
	if len(targets) == 0 {
		return outcome, nil
	}

	payload := RenderPush(n)

	anyTransient := false
	var lastErr error
	for _, target := range targets {
		if err := a.sendOne(ctx, target, payload); err != nil {
			outcome.Failed++
			lastErr = err
			if IsTransient(err) {
				anyTransient = true
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			continue
		}
		outcome.Delivered++
	}

	if outcome.Delivered == 0 && outcome.Failed > 0 {
		return outcome, &AdapterError{
			Message:   fmt.Sprintf("all %d push targets failed", outcome.Failed),
			Transient: anyTransient,
			Cause:     lastErr,
		}
	}

	return outcome, nil
}

func (a *PushAdapter) sendOne(ctx context.Context, target PushTarget, payload PushPayload) error {
	endpoint := strings.TrimSpace(target.Endpoint)
	if endpoint == "" {
		endpoint = a.gatewayURL
	}

	response, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(pushRequest{
			Token:    target.Token,
			Platform: target.Platform,
			Payload:  payload,
		}).
		Post(endpoint)
	if err != nil {
		return &AdapterError{
			Message:   "push gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &AdapterError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("push gateway returned status %d", statusCode),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}
