package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/roomgate/internal/gate"
	"github.com/fyrsmithlabs/roomgate/internal/logging"
)

// Processor runs an exchange through the gate. *gate.Service satisfies it.
type Processor interface {
	Process(ctx context.Context, text string, opts gate.Options) (gate.Decision, error)
}

// Server is the roomgate MCP server.
type Server struct {
	mcp     *mcp.Server
	gate    Processor
	metrics *Metrics
	logger  *logging.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "roomgate")
	Name string

	// Version is the server version (default: "dev")
	Version string

	// Logger for structured logging. Must write to stderr; stdout carries
	// the protocol.
	Logger *logging.Logger
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "roomgate",
		Version: "dev",
	}
}

// NewServer creates an MCP server backed by the given gate.
func NewServer(cfg *Config, g Processor) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if g == nil {
		return nil, fmt.Errorf("gate cannot be nil")
	}
	if cfg.Name == "" {
		cfg.Name = "roomgate"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	impl := &mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}

	s := &Server{
		mcp:     mcp.NewServer(impl, nil),
		gate:    g,
		metrics: NewMetrics(logger.Underlying()),
		logger:  logger,
	}
	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves MCP on stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves MCP on the given transport.
func (s *Server) RunTransport(ctx context.Context, t mcp.Transport) error {
	ctx = logging.WithSurface(ctx, logging.SurfaceMCP)
	s.logger.Info(ctx, "starting MCP server")
	if err := s.mcp.Run(ctx, t); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
