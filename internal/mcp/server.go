package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/shellgate/internal/gateway"
	"github.com/ppiankov/shellgate/internal/logging"
)

// Server exposes a Gateway as MCP tools. It holds no state of its own.
type Server struct {
	mcpServer *mcpsdk.Server
	gw        *gateway.Gateway
	log       *slog.Logger
}

// New creates an MCP server backed by gw.
func New(gw *gateway.Gateway, version string, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{gw: gw, log: log}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "shellgate",
			Version: version,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP on stdio. Blocks until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Handler returns a streamable HTTP handler. Every HTTP session shares the
// same gateway and therefore the same logical shell session.
func (s *Server) Handler() http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return s.mcpServer
	}, nil)
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", s.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("mcp http listening", "addr", addr, "path", "/mcp")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// registerTools adds all shellgate tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name: "execute_command",
		Description: "Run one allow-listed command with literal arguments inside the session directory. " +
			"No shell is involved: pipes, redirection, globbing and command chaining are rejected. " +
			"Rejected requests return an error naming the rule that was violated.",
	}, s.handleExecute)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "change_directory",
		Description: "Change the session's current directory. The target must exist and stay inside the boundary root.",
	}, s.handleChangeDirectory)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_current_directory",
		Description: "Return the session's current directory.",
	}, s.handleCurrentDirectory)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_allowed_commands",
		Description: "List the commands execute_command accepts, with the exact flags each one permits.",
	}, s.handleListCommands)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "check_command",
		Description: "Check whether execute_command would accept a command without running it (dry-run).",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "session_info",
		Description: "Return the session ID, boundary root, current directory, and the last command with its exit code.",
	}, s.handleSession)
}
