// Package mcpadapter exposes post operations to LLM agents over the Model
// Context Protocol, served as streamable HTTP at /mcp and as SSE at /sse.
package mcpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
)

// ServerName is the name announced to MCP clients.
const ServerName = "WordPress MCP Server"

const instructions = "WordPress MCP Server for managing WordPress posts. " +
	"Every tool acts on behalf of an owner and uses that owner's stored WordPress connection: " +
	"connection_id selects a specific one, otherwise the first enabled connection is used. " +
	"Call list_connections to see what an owner has configured."

// PostOperations is the application surface the tools call into.
type PostOperations interface {
	CreatePost(ctx context.Context, owner, connectionID string, post model.NewPost) model.PostResult
	UpdatePost(ctx context.Context, owner, connectionID string, postID int64, patch model.PostPatch) model.PostResult
	GetPosts(ctx context.Context, owner, connectionID string, perPage, page int) model.PostListResult
	DeletePost(ctx context.Context, owner, connectionID string, postID int64) model.PostResult
	ListConnections(ctx context.Context, owner string) ([]model.WordPressConnection, error)
}

// ToolInfo describes a registered tool for the server info endpoint.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Server is the MCP driving adapter.
type Server struct {
	mcp    *server.MCPServer
	posts  PostOperations
	tools  []ToolInfo
	logger *slog.Logger
}

// NewServer creates the MCP server and registers every tool.
func NewServer(posts PostOperations, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{posts: posts, logger: logger}
	s.mcp = server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
		server.WithInstructions(instructions),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(s.observeTool),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Tools lists the registered tools in registration order.
func (s *Server) Tools() []ToolInfo {
	out := make([]ToolInfo, len(s.tools))
	copy(out, s.tools)
	return out
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
	s.tools = append(s.tools, ToolInfo{Name: tool.Name, Description: tool.Description})
}

// observeTool logs and counts every tool call.
func (s *Server) observeTool(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := next(ctx, req)

		outcome := "success"
		if err != nil || (result != nil && result.IsError) {
			outcome = "error"
		}
		toolCalls.WithLabelValues(req.Params.Name, outcome).Inc()

		s.logger.Info("mcp tool call",
			"tool", req.Params.Name,
			"owner", req.GetString("owner", ""),
			"outcome", outcome,
			"duration", time.Since(start).Round(time.Microsecond),
		)
		return result, err
	}
}

// RegisterRoutes mounts the streamable HTTP endpoint at /mcp and the SSE
// endpoints at /sse and /message. baseURL is the public origin advertised to
// SSE clients; empty keeps the message endpoint relative.
func RegisterRoutes(mux *http.ServeMux, s *Server, baseURL string) {
	streamable := server.NewStreamableHTTPServer(s.mcp, server.WithEndpointPath("/mcp"))
	mux.Handle("/mcp", streamable)

	sse := server.NewSSEServer(s.mcp,
		server.WithBaseURL(baseURL),
		server.WithKeepAlive(true),
	)
	mux.Handle("GET /sse", sse.SSEHandler())
	mux.Handle("POST /message", sse.MessageHandler())
}
