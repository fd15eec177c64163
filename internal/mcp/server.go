package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftRest", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftRest workout tracker. Read the active workout, complete sets and control the rest timer between sets. Set and exercise indexes are zero-based."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolGetRestTimer, Handler: h.getRestTimer},
		server.ServerTool{Tool: toolStartRestTimer, Handler: h.startRestTimer},
		server.ServerTool{Tool: toolAdjustRestTimer, Handler: h.adjustRestTimer},
		server.ServerTool{Tool: toolSkipRestTimer, Handler: h.skipRestTimer},
		server.ServerTool{Tool: toolCompleteSet, Handler: h.completeSet},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resActiveWorkout, Handler: h.activeWorkout},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resActiveWorkout = mcp.NewResource(
	"liftrest://active_workout",
	"Active Workout",
	mcp.WithResourceDescription("The workout in progress with elapsed time, plus the rest timer state"),
	mcp.WithMIMEType("application/json"),
)
