package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
)

// Outbound automation triggers. Each named trigger posts a signed-by-
// convention payload (timestamp, action tag, source) to its configured
// endpoint, forwarding uploaded files as multipart fields when present.

var (
	// ErrNotConfigured means the trigger has no endpoint URL.
	ErrNotConfigured = errors.New("webhook not configured")
	// ErrUnknownTrigger means the trigger name is not recognized.
	ErrUnknownTrigger = errors.New("unknown webhook trigger")
	// ErrDelivery means the endpoint answered outside the 2xx range.
	ErrDelivery = errors.New("webhook delivery failed")
)

const sourceTag = "web_app"

// Config holds the automation endpoint URLs.
type Config struct {
	GastosURL       string
	IngresosURL     string
	ContabilidadURL string
	Timeout         time.Duration
}

// File is an upload forwarded to the automation endpoint.
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

// Result reports a delivered trigger.
type Result struct {
	Message  string
	Response string
}

type endpoint struct {
	url     string
	action  string
	message string
}

// Trigger fires outbound automation webhooks.
type Trigger struct {
	client    *resty.Client
	endpoints map[string]endpoint
}

// NewTrigger wires the configured endpoints. Triggers with an empty URL
// stay registered and fail with ErrNotConfigured when fired.
func NewTrigger(cfg Config) *Trigger {
	client := resty.New()
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &Trigger{
		client: client,
		endpoints: map[string]endpoint{
			"gastos":       {url: cfg.GastosURL, action: "subir_gastos", message: "Gastos enviados"},
			"ingresos":     {url: cfg.IngresosURL, action: "subir_ingresos", message: "Ingresos enviados"},
			"contabilidad": {url: cfg.ContabilidadURL, action: "trigger_accounting_process", message: "Proceso contable activado correctamente"},
		},
	}
}

// Fire posts the JSON trigger payload for a named endpoint.
func (t *Trigger) Fire(ctx context.Context, name string) (*Result, error) {
	ep, err := t.resolve(name)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"action":    ep.action,
			"source":    sourceTag,
		}).
		Post(ep.url)
	return t.finish(ep, resp, err)
}

// Forward posts a multipart trigger, passing through the caller's form
// fields and files. The timestamp and action tag are always appended;
// the source tag only when the caller did not set one.
func (t *Trigger) Forward(ctx context.Context, name string, fields map[string]string, files []File) (*Result, error) {
	ep, err := t.resolve(name)
	if err != nil {
		return nil, err
	}
	req := t.client.R().SetContext(ctx)
	for key, value := range fields {
		req.SetMultipartFormData(map[string]string{key: value})
	}
	for _, file := range files {
		req.SetMultipartField(file.Field, file.Name, "application/octet-stream", file.Content)
	}
	req.SetMultipartFormData(map[string]string{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"action":    ep.action,
	})
	if _, ok := fields["source"]; !ok {
		req.SetMultipartFormData(map[string]string{"source": sourceTag})
	}
	resp, err := req.Post(ep.url)
	return t.finish(ep, resp, err)
}

func (t *Trigger) resolve(name string) (endpoint, error) {
	ep, ok := t.endpoints[name]
	if !ok {
		return endpoint{}, fmt.Errorf("%w: %q", ErrUnknownTrigger, name)
	}
	if ep.url == "" {
		return endpoint{}, fmt.Errorf("%w: %q", ErrNotConfigured, name)
	}
	return ep, nil
}

func (t *Trigger) finish(ep endpoint, resp *resty.Response, err error) (*Result, error) {
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrDelivery, resp.StatusCode())
	}
	return &Result{Message: ep.message, Response: resp.String()}, nil
}
