package mcp

import (
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/proofchain/internal/transport"
)

// Config contains server configuration.
type Config struct {
	Handler       *Handler
	Resolver      transport.CallerResolver
	AuthEnabled   bool
	DefaultCaller string
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "proofchain",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	identify := noAuthMiddleware(cfg.DefaultCaller)
	if cfg.AuthEnabled {
		identify = authMiddleware(cfg.Resolver)
	}
	// The first middleware is outermost, so call logging sees the caller.
	server.AddReceivingMiddleware(identify, callLoggingMiddleware(cfg.Logger))

	registerTools(server, cfg.Handler)

	return server
}
