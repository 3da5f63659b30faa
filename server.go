package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Server exposes the engine over JSON-RPC 2.0 on stdio. It owns the single
// active engine; the connect tool replaces it with the previous handle
// closed first, so there is never a window with two live connections.
type Server struct {
	engine      *Engine
	cfg         Config
	logger      *slog.Logger
	initialized bool
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewServer wraps an already-connected engine. The engine may be nil when
// the process starts unconnected; the connect tool brings one up later.
func NewServer(ctx context.Context, engine *Engine, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	serverCtx, serverCancel := context.WithCancel(ctx)
	return &Server{
		engine: engine,
		cfg:    cfg,
		logger: logger,
		ctx:    serverCtx,
		cancel: serverCancel,
	}
}

// Run reads requests from stdin and writes responses to stdout until EOF or
// cancellation. Logging goes to stderr; stdout carries only protocol frames.
func (s *Server) Run() error {
	reader := bufio.NewReader(os.Stdin)

	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		response := s.handleMessage([]byte(line))
		if response != nil {
			responseBytes, err := json.Marshal(response)
			if err != nil {
				s.logger.Error("failed to marshal response", "error", err)
				continue
			}
			fmt.Println(string(responseBytes))
		}
	}
}

func (s *Server) handleMessage(data []byte) *JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      nil,
			Error: &Error{
				Code:    ParseError,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}
	}

	if req.JSONRPC != "2.0" {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    InvalidRequest,
				Message: "Invalid JSON-RPC version",
			},
		}
	}

	return s.handleRequest(&req)
}

func (s *Server) handleRequest(req *JSONRPCRequest) *JSONRPCResponse {
	var result any
	var err *Error

	switch req.Method {
	case "initialize":
		result, err = s.handleInitialize(req.Params)
	case "initialized":
		// Notification, no response needed
		return nil
	case "tools/list":
		result, err = s.handleListTools()
	case "tools/call":
		result, err = s.handleCallTool(req.Params)
	case "resources/list":
		result, err = s.handleListResources()
	case "resources/read":
		result, err = s.handleReadResource(req.Params)
	case "ping":
		result = map[string]any{}
	default:
		err = &Error{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   err,
	}
}

// Shutdown stops the read loop.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Close releases the server and its engine.
func (s *Server) Close() error {
	s.Shutdown()
	if s.engine != nil {
		return s.engine.Close()
	}
	return nil
}
