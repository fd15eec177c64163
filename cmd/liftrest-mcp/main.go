package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/liftrest/internal/client"
	"github.com/claude/liftrest/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", os.Getenv("LIFTREST_URL"), "LiftRest server URL (e.g. https://liftrest.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("LIFTREST_AUTH_API_KEY"), "API key, when the server requires one")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftrest-mcp", Version)
		return
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftrest-mcp -server <URL> [-api-key KEY]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ds := client.New(*serverURL, *apiKey)
	s := mcp.New(ds, Version, log)

	log.Info("serving MCP over stdio", "server", *serverURL)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
