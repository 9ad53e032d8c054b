package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/iapod/internal/errors"
	"github.com/hpungsan/iapod/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	svc *ops.Services
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *ops.Services) *Handlers {
	return &Handlers{svc: svc}
}

// Request types for each tool

// ListRequest represents the arguments for episode_list.
type ListRequest struct {
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
	Subject string `json:"subject,omitempty"`
}

// FetchRequest represents the arguments for episode_fetch.
type FetchRequest struct {
	Identifier  string `json:"identifier"`
	IncludeBody *bool  `json:"include_body,omitempty"`
	Public      bool   `json:"public,omitempty"`
}

// DeliveriesRequest represents the arguments for delivery_list.
type DeliveriesRequest struct {
	Identifier string `json:"identifier,omitempty"`
	Channel    string `json:"channel,omitempty"`
	RunID      string `json:"run_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// RunsRequest represents the arguments for run_list.
type RunsRequest struct {
	Limit int `json:"limit,omitempty"`
}

// HandleList handles the episode_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.List(h.svc.Store, ops.ListInput{
		Limit:   input.Limit,
		Offset:  input.Offset,
		Subject: input.Subject,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the episode_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Fetch(h.svc.Store, h.svc.Config.ArchiveURL, ops.FetchInput{
		Identifier:  input.Identifier,
		IncludeBody: input.IncludeBody,
		Public:      input.Public,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleNormalize handles the episode_normalize tool call.
func (h *Handlers) HandleNormalize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Normalize(h.svc.Store)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSync handles the catalog_sync tool call.
func (h *Handlers) HandleSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Sync(ctx, h.svc)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDeliveries handles the delivery_list tool call.
func (h *Handlers) HandleDeliveries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeliveriesRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Deliveries(ctx, h.svc.DB, ops.DeliveriesInput{
		Identifier: input.Identifier,
		Channel:    input.Channel,
		RunID:      input.RunID,
		Limit:      input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRuns handles the run_list tool call.
func (h *Handlers) HandleRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunsRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Runs(ctx, h.svc.DB, input.Limit)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// decode maps the request arguments onto T through a JSON round trip.
// Failures are INVALID_REQUEST.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, errors.NewInvalidRequest("arguments: " + err.Error())
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, errors.NewInvalidRequest("arguments: " + err.Error())
	}
	return result, nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if e, ok := err.(*errors.Error); ok {
		errorObj := map[string]any{
			"code":    e.Code,
			"message": e.Message,
			"status":  e.Status,
		}
		if e.Code != errors.ErrInternal && e.Details != nil {
			errorObj["details"] = e.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
