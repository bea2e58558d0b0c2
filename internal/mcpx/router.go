package mcpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
)

// NewRouter wraps the streamable HTTP transport in a chi router so the
// HTTP mode gets request ids, logging, panic recovery and a health
// endpoint for free.
func NewRouter(s *server.MCPServer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	streamable := server.NewStreamableHTTPServer(s)
	r.Handle("/mcp", streamable)

	return r
}
