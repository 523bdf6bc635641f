// Package mcp exposes the scoring pipeline as Model Context Protocol tools
// over stdio transport.
package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"devkpi/internal/engine"
)

const (
	serverName    = "devkpi"
	serverVersion = "0.1.0"
)

// Server wraps the MCP SDK server with the scoring tool registrations.
type Server struct {
	inner *mcpsdk.Server
	cfg   engine.Config
	opts  engine.Options
}

// NewServer creates an MCP server bound to a validated engine configuration.
func NewServer(cfg engine.Config, opts engine.Options) *Server {
	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
		&mcpsdk.ServerOptions{},
	)

	srv := &Server{inner: inner, cfg: cfg, opts: opts}
	srv.registerTools()
	return srv
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	if err := s.inner.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameTimeBreakdown,
		Description: "Compute active and paused working hours from a work item's state-change history, honoring office hours, working weekdays, and the daily cap.",
		InputSchema: mustSchema[BreakdownInput](),
	}, s.handleTimeBreakdown)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameScoreItem,
		Description: "Score a single work item: fair efficiency percentage, delivery tier, and timing adjustments.",
		InputSchema: mustSchema[ItemInput](),
	}, s.handleScoreItem)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameScoreDevelopers,
		Description: "Score a batch of work items and aggregate weighted per-developer summaries.",
		InputSchema: mustSchema[BatchInput](),
	}, s.handleScoreDevelopers)
}

// mustSchema derives the JSON schema for a tool input type. Inputs are static
// structs, so a derivation failure is a programming error.
func mustSchema[T any]() *jsonschema.Schema {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("derive input schema: %v", err))
	}
	return schema
}
