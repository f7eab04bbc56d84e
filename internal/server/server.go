// Package server provides HTTP server initialization and lifecycle management
// for the Lineage API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/lineagekit/lineage/internal/config"
	"github.com/lineagekit/lineage/internal/engine"
	"github.com/lineagekit/lineage/internal/storage"
	"github.com/lineagekit/lineage/web/handlers"
)

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// methods dispatches a request to the handler registered for its method,
// rejecting everything else with 405.
func methods(m map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := m[r.Method]; ok {
			h(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Start initializes and starts the HTTP server.
// Returns the actual address being listened on (useful for testing with port 0)
// and the WebSocketHub so callers can broadcast their own events.
func Start(ctx context.Context, cfg *config.Config, store storage.TreeStore) (string, *handlers.WebSocketHub) {
	mux := http.NewServeMux()

	// Create WebSocket hub; origin validation is pinned to the configured
	// listen address.
	wsHub := handlers.NewWebSocketHub([]string{
		fmt.Sprintf("localhost:%d", cfg.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
		fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
	})
	go wsHub.Run()

	rps, burst := cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = 40
	}
	rateLimiter := handlers.NewRateLimiter(rps, burst)

	// The snapshot cache sits between the store and the inference engine so
	// repeated relationship queries against the same tree skip the database.
	cacheSize := cfg.Engine.SnapshotCacheSize
	if cacheSize < 1 {
		cacheSize = 16
	}
	cache, err := engine.NewSnapshotCache(store, cacheSize)
	if err != nil {
		log.Fatalf("Failed to create snapshot cache: %v", err)
	}

	apiHandlers := handlers.NewAPIHandlers(store, cfg, cache)
	apiHandlers.SetHub(wsHub)

	importHandler := handlers.NewImportHandlers(store)

	// API routes (require auth in production mode)
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/trees", methods(map[string]http.HandlerFunc{
		http.MethodGet:  apiHandlers.ListTrees,
		http.MethodPost: apiHandlers.CreateTree,
	}))
	apiMux.HandleFunc("/api/trees/{id}", methods(map[string]http.HandlerFunc{
		http.MethodGet:    apiHandlers.GetTree,
		http.MethodDelete: apiHandlers.DeleteTree,
	}))
	apiMux.HandleFunc("/api/trees/{id}/members", methods(map[string]http.HandlerFunc{
		http.MethodGet:  apiHandlers.ListMembers,
		http.MethodPost: apiHandlers.CreateMember,
	}))
	apiMux.HandleFunc("/api/members/{id}", methods(map[string]http.HandlerFunc{
		http.MethodGet:    apiHandlers.GetMember,
		http.MethodDelete: apiHandlers.DeleteMember,
	}))
	apiMux.HandleFunc("/api/trees/{id}/edges", methods(map[string]http.HandlerFunc{
		http.MethodGet:  apiHandlers.ListEdges,
		http.MethodPost: apiHandlers.CreateEdge,
	}))
	apiMux.HandleFunc("/api/trees/{id}/marriages", methods(map[string]http.HandlerFunc{
		http.MethodGet:  apiHandlers.ListMarriages,
		http.MethodPost: apiHandlers.CreateMarriage,
	}))

	// Inference routes
	apiMux.HandleFunc("GET /api/trees/{id}/relationship", apiHandlers.GetRelationship)
	apiMux.HandleFunc("GET /api/trees/{id}/summary", apiHandlers.GetSummary)
	apiMux.HandleFunc("GET /api/trees/{id}/cousins", apiHandlers.GetCousins)
	apiMux.HandleFunc("GET /api/trees/{id}/inlaws", apiHandlers.GetInLaws)
	apiMux.HandleFunc("GET /api/trees/{id}/members/{memberID}/relationships", apiHandlers.GetMemberRelationships)
	apiMux.HandleFunc("GET /api/trees/{id}/members/{memberID}/ancestors", apiHandlers.GetAncestors)
	apiMux.HandleFunc("GET /api/trees/{id}/members/{memberID}/descendants", apiHandlers.GetDescendants)
	apiMux.HandleFunc("GET /api/trees/{id}/members/{memberID}/siblings", apiHandlers.GetSiblings)
	apiMux.HandleFunc("GET /api/trees/{id}/members/{memberID}/suggestions", apiHandlers.GetSuggestions)

	// Import routes (YAML tree files)
	apiMux.HandleFunc("POST /api/import", importHandler.PostImport)
	apiMux.HandleFunc("GET /api/import/status/{job_id}", importHandler.GetImportStatus)

	// Owner settings
	apiMux.HandleFunc("/api/config/owner", methods(map[string]http.HandlerFunc{
		http.MethodGet:  apiHandlers.GetOwnerConfig,
		http.MethodPost: apiHandlers.PostOwnerConfig,
	}))

	// Health endpoint, no auth required, used by monitoring
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","version":"1.0.0"}`))
	})

	// Wrap API routes with auth middleware
	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))

	// WebSocket endpoint (no auth required - origin validation handles security)
	if cfg.Features.EnableWebSocket {
		mux.Handle("/ws", wsHub)
	}

	// Wrap entire server with rate limiting, then security headers
	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = securityHeadersMiddleware(handler)

	// Create server with security timeouts
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	return actualAddr, wsHub
}
