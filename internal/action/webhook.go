package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"formhub-backend/internal/instrument"
	"formhub-backend/internal/model"
)

// WebhookPayload is the JSON body sent to webhook endpoints.
type WebhookPayload struct {
	Event          string         `json:"event"` // before or after
	Form           string         `json:"form"`
	Method         string         `json:"method"` // create, read, update, delete, index
	Submission     map[string]any `json:"submission,omitempty"`
	User           map[string]any `json:"user,omitempty"`
	Timestamp      string         `json:"timestamp"`
	IdempotencyKey string         `json:"idempotency_key"`
}

// Webhook posts the request's submission to a configured URL.
//
// Settings:
//
//	url      target endpoint (required)
//	method   override HTTP method (default POST)
//	headers  extra request headers; values may reference {{env.VAR}}
//	block    when true the pipeline waits for the response and a non-2xx
//	         aborts it; otherwise delivery is fire-and-forget
type Webhook struct {
	client *http.Client
}

// NewWebhook creates the unit with a shared HTTP client. A zero timeout
// falls back to 30s.
func NewWebhook(timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Webhook{client: &http.Client{Timeout: timeout}}
}

func (w *Webhook) Resolve(ctx context.Context, a *model.Action, handler, method string, ectx *ExecutionContext) error {
	url, _ := a.Settings["url"].(string)
	if url == "" {
		return fmt.Errorf("%w: webhook action %s has no url", ErrBadConfig, a.ID)
	}

	httpMethod, _ := a.Settings["method"].(string)
	if httpMethod == "" {
		httpMethod = http.MethodPost
	}
	httpMethod = strings.ToUpper(httpMethod)

	headers := map[string]string{}
	if raw, ok := a.Settings["headers"].(map[string]any); ok {
		for k, v := range raw {
			headers[k] = resolveEnvVars(fmt.Sprintf("%v", v))
		}
	}

	payload := w.buildPayload(handler, method, ectx)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	block, _ := a.Settings["block"].(bool)
	if !block {
		// Fire and forget. Detach from the request context so an early
		// response does not cancel the delivery mid-flight.
		go func() {
			if err := w.dispatch(context.Background(), url, httpMethod, headers, body); err != nil {
				log.Printf("WARN: webhook %s delivery failed: %v", a.ID, err)
			}
		}()
		return nil
	}

	if err := w.dispatch(ctx, url, httpMethod, headers, body); err != nil {
		return fmt.Errorf("webhook %s: %w", a.ID, err)
	}
	return nil
}

func (w *Webhook) buildPayload(handler, method string, ectx *ExecutionContext) *WebhookPayload {
	p := &WebhookPayload{
		Event:          handler,
		Method:         method,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		IdempotencyKey: "wh_" + uuid.New().String(),
	}
	if ectx.Form != nil {
		p.Form = ectx.Form.ID
	}
	if ectx.Submission != nil {
		p.Submission = map[string]any{
			"id":    ectx.Submission.ID,
			"data":  ectx.Submission.Data,
			"owner": ectx.Submission.Owner,
		}
	} else if len(ectx.Payload) > 0 {
		p.Submission = map[string]any{"data": ectx.Data()}
	}
	if !ectx.Identity.Anonymous() {
		p.User = map[string]any{"id": ectx.Identity.UserID, "roles": ectx.Identity.Roles}
	}
	return p
}

// dispatch performs the HTTP call and fails on transport errors or non-2xx.
func (w *Webhook) dispatch(ctx context.Context, url, method string, headers map[string]string, body []byte) error {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "action", "webhook", "webhook.dispatch")
	defer span.End()
	span.SetMetadata("url", url)
	span.SetMetadata("method", method)

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		span.SetStatus("error")
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		span.SetStatus("error")
		return fmt.Errorf("http call: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	span.SetMetadata("status_code", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus("error")
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	span.SetStatus("ok")
	return nil
}

// resolveEnvVars replaces {{env.VAR_NAME}} in header values with os env values.
func resolveEnvVars(s string) string {
	for {
		start := strings.Index(s, "{{env.")
		if start == -1 {
			return s
		}
		end := strings.Index(s[start:], "}}")
		if end == -1 {
			return s
		}
		end += start
		s = s[:start] + os.Getenv(s[start+6:end]) + s[end+2:]
	}
}
