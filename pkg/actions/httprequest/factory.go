package httprequest

import (
	"context"

	"github.com/dvmsuite/clinicflow/pkg/protocol"
)

// ActionFactory creates HTTP request actions.
type ActionFactory struct{}

// NewActionFactory creates a new instance of ActionFactory.
func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

// ID returns the unique identifier for the action factory.
func (*ActionFactory) ID() string {
	return "http_request"
}

// Name returns the name of the action factory.
func (*ActionFactory) Name() string {
	return "HTTP Request"
}

// Description returns a brief description of the action.
func (*ActionFactory) Description() string {
	return "Performs an HTTP request against an internal or external endpoint, with optional headers, body and retries."
}

// Create creates a new Action instance with the provided configuration.
func (f *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewAction(config)
}

// Schema returns the JSON schema for the action configuration.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Target URL for the request",
				"examples":    []string{"https://api.example.com/invoices"},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method",
				"default":     "GET",
				"enum":        []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Request headers as string key/value pairs",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Raw request body",
			},
			"retry": map[string]any{
				"type":        "object",
				"description": "Retry behavior",
				"properties": map[string]any{
					"attempts": map[string]any{"type": "number", "default": 1},
					"delay":    map[string]any{"type": "number", "description": "Delay between attempts in seconds"},
				},
			},
		},
		"required": []string{"url"},
	}
}
