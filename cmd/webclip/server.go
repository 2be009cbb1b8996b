package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/webclip/webclip"
)

const version = "1.0.0"

func runServe(ctx context.Context, logger *slog.Logger, cfg *webclip.Config) error {
	svc, cleanup, err := newService(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.Start(ctx); err != nil {
		return err
	}

	var mcpSrv *mcp.Server
	if cfg.Server.MCPTransport != "" {
		mcpSrv = mcp.NewServer(&mcp.Implementation{Name: "webclip", Version: version}, nil)
		svc.RegisterMCP(mcpSrv)
	}

	switch cfg.Server.MCPTransport {
	case "", "http":
	case "stdio":
		go func() {
			logger.Info("webclip: MCP on stdio")
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				logger.Error("webclip: MCP stdio", "error", err)
			}
		}()
	default:
		return fmt.Errorf("unknown MCP transport %q", cfg.Server.MCPTransport)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(svc, cfg, mcpSrv, logger),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.JobTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("webclip: server starting", "port", cfg.Server.Port, "mcp", cfg.Server.MCPTransport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("webclip: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("webclip: shutdown", "error", err)
	}
	logger.Info("webclip: server stopped")
	return nil
}

// newRouter builds the HTTP API. mcpSrv is mounted on /mcp when the MCP
// transport is "http".
func newRouter(svc *webclip.Service, cfg *webclip.Config, mcpSrv *mcp.Server, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(requireKey(cfg.Server.APIKeyHash))

		r.Post("/v1/process", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				URL  string `json:"url"`
				Mode string `json:"mode"`
			}
			if err := decodeBody(w, r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), cfg.Server.JobTimeout)
			defer cancel()

			rep, err := svc.Process(ctx, req.URL, req.Mode)
			if rep == nil {
				writeError(w, errorStatus(err), err)
				return
			}
			// A failed job is still a result: the report says why.
			writeJSON(w, http.StatusOK, rep)
		})

		r.Post("/v1/batch", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				URLs []string `json:"urls"`
			}
			if err := decodeBody(w, r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), cfg.Server.JobTimeout)
			defer cancel()

			b, err := svc.ProcessBatch(ctx, req.URLs)
			if b == nil {
				writeError(w, errorStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, b)
		})

		r.Get("/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
			jobs, err := svc.Jobs(r.Context(), queryInt(r, "limit", 50))
			if err != nil {
				writeError(w, errorStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, jobs)
		})

		r.Get("/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
			job, err := svc.Job(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, errorStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, job)
		})

		if mcpSrv != nil && cfg.Server.MCPTransport == "http" {
			h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil)
			r.Handle("/mcp", h)
		}
	})
	return r
}

// requireKey enforces "Authorization: Bearer <key>" against a bcrypt hash.
// An empty hash disables authentication.
func requireKey(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// securityHeaders sets the headers every JSON response carries.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("webclip: http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, webclip.ErrInvalidURL), errors.Is(err, webclip.ErrInvalidMode):
		return http.StatusBadRequest
	case errors.Is(err, webclip.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, webclip.ErrNoStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
