// internal/server/server.go

// Package server exposes the question-answering pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mwiater/ragqa/internal/logging"
	"github.com/mwiater/ragqa/internal/rag"
)

const (
	maxBodyBytes      = 1 << 20 // 1 MiB
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second

	rootMessage = "RAG Q&A Bot is running. Use /ask to query."
)

const askSchema = `{
  "type": "object",
  "properties": {
    "question": {"type": "string"}
  },
  "required": ["question"]
}`

// Asker answers a single question.
type Asker interface {
	Ask(ctx context.Context, query string) (rag.Response, error)
}

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question"`
}

// ErrorResponse is returned for rejected requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DetailResponse is returned when the pipeline fails.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// Server routes HTTP requests to an Asker.
type Server struct {
	asker  Asker
	schema *gojsonschema.Schema
}

// New compiles the request schema and returns a server for asker.
func New(asker Asker) (*Server, error) {
	if asker == nil {
		return nil, errors.New("server: asker is required")
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(askSchema))
	if err != nil {
		return nil, fmt.Errorf("compile ask schema: %w", err)
	}
	return &Server{asker: asker, schema: schema}, nil
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": rootMessage})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /ask", s.handleAsk)
	return mux
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.LogEvent("[SERVER] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logging.LogEvent("[SERVER] shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeAsk(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	logging.LogEvent("[SERVER] Received question: %s", req.Question)
	resp, err := s.asker.Ask(r.Context(), req.Question)
	if err != nil {
		logging.LogEvent("[SERVER] Error in /ask endpoint: %v", err)
		writeJSON(w, http.StatusInternalServerError, DetailResponse{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decodeAsk(w http.ResponseWriter, r *http.Request) (AskRequest, error) {
	if r.Body == nil {
		return AskRequest{}, errors.New("empty body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return AskRequest{}, fmt.Errorf("read body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return AskRequest{}, errors.New("empty body")
	}

	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return AskRequest{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return AskRequest{}, fmt.Errorf("JSON validation failed: %s", strings.Join(errs, ", "))
	}

	var req AskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return AskRequest{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
