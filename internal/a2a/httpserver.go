package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Routes returns the HTTP handler serving the agent card and JSON-RPC
// endpoint. Useful for mounting the worker under httptest or another mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+AgentCardPath, s.handleAgentCard)
	mux.HandleFunc("POST /", s.handleJSONRPC)
	return mux
}

// Start binds addr and serves in a background goroutine. Bind errors are
// returned synchronously.
func (s *Server) Start(ctx context.Context, addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("a2a: listen %s: %w", addr, err)
	}
	s.http = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("a2a server stopped", "addr", ln.Addr().String(), "err", err)
		}
	}()
	return ln.Addr(), nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.card); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONRPCError(w, nil, ErrCodeParse, "parse error: "+err.Error())
		return
	}

	ctx := r.Context()
	switch req.Method {
	case MethodSendMessage:
		dispatch(ctx, w, &req, s.handler.HandleSendMessage)
	case MethodGetTask:
		dispatch(ctx, w, &req, s.handler.HandleGetTask)
	case MethodListTasks:
		dispatch(ctx, w, &req, s.handler.HandleListTasks)
	case MethodCancelTask:
		dispatch(ctx, w, &req, s.handler.HandleCancelTask)
	default:
		writeJSONRPCError(w, req.ID, ErrCodeMethodNotFound, "method not found: "+req.Method)
	}
}

// dispatch decodes the params for one method and writes the handler's answer.
func dispatch[P, R any](ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest, fn func(context.Context, P) (R, error)) {
	var params P
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "invalid params: "+err.Error())
		return
	}

	result, err := fn(ctx, params)
	if err != nil {
		code := ErrCodeInternal
		if errors.Is(err, ErrTaskNotFound) {
			code = ErrCodeTaskNotFound
		}
		writeJSONRPCError(w, req.ID, code, err.Error())
		return
	}
	writeJSONRPCResult(w, req.ID, result)
}

func writeJSONRPCResult(w http.ResponseWriter, id any, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		writeJSONRPCError(w, id, ErrCodeInternal, "marshal result: "+err.Error())
		return
	}
	_ = json.NewEncoder(w).Encode(JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  data,
	})
}

func writeJSONRPCError(w http.ResponseWriter, id any, code int, message string) {
	_ = json.NewEncoder(w).Encode(JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	})
}
