// Package daemontest provides an in-process wallet daemon for tests.
package daemontest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/rpc/v2/json2"
)

const (
	AuthToken = "auth-request-token"
	Token     = "permissions-token"
)

type Call struct {
	Method        string
	Params        json.RawMessage
	Authorization string
}

// Handler answers one JSON-RPC method. A non-nil error is sent as the JSON-RPC error object.
type Handler func(params json.RawMessage) (any, *json2.Error)

type Server struct {
	*httptest.Server

	mu           sync.Mutex
	handlers     map[string]Handler
	calls        []Call
	requireToken bool
}

// New starts a daemon that accepts logins and commits every transaction inline.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		handlers:     map[string]Handler{},
		requireToken: true,
	}
	s.Handle("auth.request", func(json.RawMessage) (any, *json2.Error) {
		return map[string]any{"auth_token": AuthToken}, nil
	})
	s.Handle("auth.accept", func(params json.RawMessage) (any, *json2.Error) {
		var p struct {
			AuthToken string `json:"auth_token"`
		}
		if err := json.Unmarshal(params, &p); err != nil || p.AuthToken != AuthToken {
			return nil, &json2.Error{Code: 401, Message: "unauthorized: unknown auth token"}
		}
		return map[string]any{"permissions_token": Token}, nil
	})
	s.Handle("transactions.submit", func(json.RawMessage) (any, *json2.Error) {
		return Committed("tx-1"), nil
	})
	s.Handle("transactions.submit_instruction", func(json.RawMessage) (any, *json2.Error) {
		return Committed("tx-1"), nil
	})
	s.Handle("transactions.wait_result", func(json.RawMessage) (any, *json2.Error) {
		return map[string]any{"transaction_id": "tx-1", "result": finalize(map[string]any{"Accept": map[string]any{}}), "timed_out": false}, nil
	})
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// AllowAnonymous stops the server from checking bearer tokens.
func (s *Server) AllowAnonymous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireToken = false
}

func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Server) CallsTo(method string) []Call {
	out := make([]Call, 0)
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Committed is a submit reply carrying an inline accepted result.
func Committed(txID string) map[string]any {
	return map[string]any{
		"transaction_id": txID,
		"result":         finalize(map[string]any{"Accept": map[string]any{"up_substates": []any{}}}),
	}
}

// Rejected is a submit reply carrying an inline rejection.
func Rejected(txID, reason string) map[string]any {
	return map[string]any{
		"transaction_id": txID,
		"result":         finalize(map[string]any{"Reject": map[string]any{"ExecutionFailure": reason}}),
	}
}

// Pending is a submit reply without a result, forcing a wait_result call.
func Pending(txID string) map[string]any {
	return map[string]any{"transaction_id": txID, "result": nil}
}

func finalize(decision map[string]any) map[string]any {
	return map[string]any{
		"result":            decision,
		"execution_results": []any{map[string]any{"type": "unit"}},
		"buckets":           []any{map[string]any{"bucket_id": 1, "resource_address": "resource_" + strings.Repeat("b", 64), "amount": 10}},
		"final_fee":         42,
	}
}

type request struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

type response struct {
	Version string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *json2.Error    `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, response{Version: "2.0", Error: &json2.Error{Code: json2.E_PARSE, Message: err.Error()}, ID: json.RawMessage("null")})
		return
	}
	auth := r.Header.Get("Authorization")

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: req.Method, Params: req.Params, Authorization: auth})
	handler, ok := s.handlers[req.Method]
	requireToken := s.requireToken
	s.mu.Unlock()

	resp := response{Version: "2.0", ID: req.ID}
	switch {
	case !ok:
		resp.Error = &json2.Error{Code: json2.E_NO_METHOD, Message: "method not found: " + req.Method}
	case requireToken && !strings.HasPrefix(req.Method, "auth.") && auth != "Bearer "+Token:
		resp.Error = &json2.Error{Code: 401, Message: "unauthorized: missing or invalid token"}
	default:
		result, rpcErr := handler(req.Params)
		resp.Result = result
		resp.Error = rpcErr
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
