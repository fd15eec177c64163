package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) activeWorkout(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	view, err := h.ds.Workout(ctx)
	if err != nil {
		return nil, err
	}

	timer, err := h.ds.RestTimer(ctx)
	if err != nil {
		h.log.Warn("active_workout: rest timer query failed", "error", err)
	}

	data, err := json.Marshal(map[string]any{
		"workout":    view,
		"rest_timer": timer,
	})
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
