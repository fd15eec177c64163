package mcp

import (
	"context"

	"github.com/claude/liftrest/internal/resttimer"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get the workout in progress: exercises, sets with weight/reps/completed flags, elapsed seconds. Returns null when no workout is open."),
)

var toolGetRestTimer = mcp.NewTool("get_rest_timer",
	mcp.WithDescription("Get the rest timer: status (idle, picker, running, completed), duration, remaining seconds and end timestamp."),
)

var toolStartRestTimer = mcp.NewTool("start_rest_timer",
	mcp.WithDescription("Start a rest countdown, replacing any running one."),
	mcp.WithNumber("seconds", mcp.Required(), mcp.Description("Rest duration in seconds (1-5999)"), mcp.Min(resttimer.MinDurationSeconds), mcp.Max(resttimer.MaxDurationSeconds)),
)

var toolAdjustRestTimer = mcp.NewTool("adjust_rest_timer",
	mcp.WithDescription("Add or remove seconds from the running rest countdown. Reaching zero completes it."),
	mcp.WithNumber("delta", mcp.Required(), mcp.Description("Seconds to add, negative to subtract (e.g. 15 or -15)")),
)

var toolSkipRestTimer = mcp.NewTool("skip_rest_timer",
	mcp.WithDescription("Abandon the current rest and return to duration selection."),
)

var toolCompleteSet = mcp.NewTool("complete_set",
	mcp.WithDescription("Mark a set as completed and start its rest countdown. The set needs weight and reps filled in."),
	mcp.WithNumber("exercise", mcp.Required(), mcp.Description("Zero-based exercise index within the workout")),
	mcp.WithNumber("set", mcp.Required(), mcp.Description("Zero-based set index within the exercise")),
)

// --- Tool handlers ---

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := h.ds.Workout(ctx)
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(view)
}

func (h *handlers) getRestTimer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.ds.RestTimer(ctx)
	if err != nil {
		h.log.Error("mcp get_rest_timer", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(st)
}

func (h *handlers) startRestTimer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seconds, err := req.RequireInt("seconds")
	if err != nil {
		return mcp.NewToolResultError("seconds parameter is required"), nil
	}

	st, err := h.ds.StartRestTimer(ctx, seconds)
	if err != nil {
		return mcp.NewToolResultError("start failed: " + err.Error()), nil
	}
	return jsonResult(st)
}

func (h *handlers) adjustRestTimer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	delta, err := req.RequireInt("delta")
	if err != nil {
		return mcp.NewToolResultError("delta parameter is required"), nil
	}

	st, err := h.ds.AdjustRestTimer(ctx, delta)
	if err != nil {
		return mcp.NewToolResultError("adjust failed: " + err.Error()), nil
	}
	return jsonResult(st)
}

func (h *handlers) skipRestTimer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.ds.SkipRestTimer(ctx)
	if err != nil {
		h.log.Error("mcp skip_rest_timer", "error", err)
		return mcp.NewToolResultError("skip failed: " + err.Error()), nil
	}
	return jsonResult(st)
}

func (h *handlers) completeSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireInt("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	set, err := req.RequireInt("set")
	if err != nil {
		return mcp.NewToolResultError("set parameter is required"), nil
	}

	res, err := h.ds.CompleteSet(ctx, exercise, set)
	if err != nil {
		return mcp.NewToolResultError("complete failed: " + err.Error()), nil
	}
	return jsonResult(res)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
