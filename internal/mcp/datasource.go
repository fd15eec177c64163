package mcp

import (
	"context"

	"github.com/claude/liftrest/internal/client"
	"github.com/claude/liftrest/internal/models"
	"github.com/claude/liftrest/internal/resttimer"
	"github.com/claude/liftrest/internal/tracker"
)

// DataSource abstracts the tracker for MCP tools. Both *tracker.Tracker
// (in process) and *client.Client (remote via REST API) satisfy this
// interface.
type DataSource interface {
	Workout(ctx context.Context) (*models.WorkoutView, error)
	RestTimer(ctx context.Context) (resttimer.State, error)
	StartRestTimer(ctx context.Context, seconds int) (resttimer.State, error)
	AdjustRestTimer(ctx context.Context, delta int) (resttimer.State, error)
	SkipRestTimer(ctx context.Context) (resttimer.State, error)
	CompleteSet(ctx context.Context, exercise, set int) (*models.SetCompletion, error)
}

// Compile-time checks.
var (
	_ DataSource = (*tracker.Tracker)(nil)
	_ DataSource = (*client.Client)(nil)
)
