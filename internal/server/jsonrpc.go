package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ldap2kanboard/internal/storage/sqlite"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

var errInvalidParams = errors.New("invalid params")

// method handles one JSON-RPC method. A store error marking a refused operation
// becomes a false result.
type method func(ctx context.Context, params json.RawMessage) (any, error)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      json.RawMessage `json:"id"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func (s *Server) registerMethods() {
	s.methods = map[string]method{}
	s.registerUserMethods()
	s.registerProjectMethods()
	s.registerTaskMethods()
}

// handleRPC answers a single request or a batch.
func (s *Server) handleRPC(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	ctx := c.Request.Context()
	body = bytes.TrimSpace(body)

	if len(body) > 0 && body[0] == '[' {
		var batch []json.RawMessage
		if err := json.Unmarshal(body, &batch); err != nil {
			c.JSON(http.StatusOK, errorResponse(nil, codeParseError, "Parse error"))
			return
		}
		if len(batch) == 0 {
			c.JSON(http.StatusOK, errorResponse(nil, codeInvalidRequest, "Invalid Request"))
			return
		}
		responses := make([]rpcResponse, 0, len(batch))
		for _, raw := range batch {
			responses = append(responses, s.dispatch(ctx, raw))
		}
		c.JSON(http.StatusOK, responses)
		return
	}

	c.JSON(http.StatusOK, s.dispatch(ctx, body))
}

func (s *Server) dispatch(ctx context.Context, raw []byte) rpcResponse {
	var req rpcRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, codeParseError, "Parse error")
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return errorResponse(req.ID, codeInvalidRequest, "Invalid Request")
	}

	m, ok := s.methods[req.Method]
	if !ok {
		return errorResponse(req.ID, codeMethodNotFound, "Method not found")
	}

	result, err := m(ctx, req.Params)
	switch {
	case errors.Is(err, errInvalidParams):
		return errorResponse(req.ID, codeInvalidParams, err.Error())
	case refused(err):
		s.logger.Debug("request refused", "method", req.Method, "reason", err.Error())
		result = false
	case err != nil:
		s.logger.Error("request failed", "method", req.Method, slog.String("error", err.Error()))
		return errorResponse(req.ID, codeInternalError, "Internal error")
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("encode result", "method", req.Method, slog.String("error", err.Error()))
		return errorResponse(req.ID, codeInternalError, "Internal error")
	}
	return rpcResponse{JSONRPC: "2.0", ID: idOrNull(req.ID), Result: encoded}
}

func refused(err error) bool {
	return errors.Is(err, sqlite.ErrNotFound) || errors.Is(err, sqlite.ErrConflict) || errors.Is(err, sqlite.ErrInvalid)
}

func errorResponse(id json.RawMessage, code int, message string) rpcResponse {
	return rpcResponse{JSONRPC: "2.0", ID: idOrNull(id), Error: &rpcError{Code: code, Message: message}}
}

func idOrNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// bind decodes method params into T. Missing params leave T at its zero value.
func bind[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return out, nil
}
