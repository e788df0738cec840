// Package daemon is the JSON-RPC client for the wallet daemon that executes
// transactions on the client's behalf.
package daemon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
	"github.com/ggonzalez94/coinctl/internal/execution"
	"github.com/ggonzalez94/coinctl/internal/httpx"
	"github.com/gorilla/rpc/v2/json2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	MethodAuthRequest       = "auth.request"
	MethodAuthAccept        = "auth.accept"
	MethodSubmit            = "transactions.submit"
	MethodSubmitInstruction = "transactions.submit_instruction"
	MethodWaitResult        = "transactions.wait_result"
)

const (
	DefaultEndpoint   = "http://127.0.0.1:18016/json_rpc"
	DefaultClientName = "coinctl"
	tracerName        = "github.com/ggonzalez94/coinctl/internal/daemon"
)

type Options struct {
	Endpoint   string
	Token      string
	ClientName string
	Logger     *slog.Logger
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Client holds one session with the daemon. It runs at most one submission at a time.
type Client struct {
	http       *httpx.Client
	endpoint   string
	clientName string
	logger     *slog.Logger
	tracer     trace.Tracer

	mu       sync.RWMutex
	token    string
	inFlight atomic.Bool
}

var _ execution.Daemon = (*Client)(nil)

func New(httpClient *httpx.Client, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	name := strings.TrimSpace(opts.ClientName)
	if name == "" {
		name = DefaultClientName
	}
	return &Client{
		http:       httpClient,
		endpoint:   NormalizeEndpoint(opts.Endpoint),
		clientName: name,
		logger:     logger,
		tracer:     tp.Tracer(tracerName),
		token:      strings.TrimSpace(opts.Token),
	}
}

// NormalizeEndpoint appends the /json_rpc path when the endpoint has none.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/json_rpc"
	}
	return u.String()
}

func (c *Client) Endpoint() string { return c.endpoint }

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

type authRequestParams struct {
	Permissions []string `json:"permissions"`
}

type authRequestResult struct {
	AuthToken string `json:"auth_token"`
}

type authAcceptParams struct {
	AuthToken string `json:"auth_token"`
	Name      string `json:"name"`
}

type authAcceptResult struct {
	PermissionsToken string `json:"permissions_token"`
}

// Login performs the auth.request/auth.accept handshake and keeps the
// resulting token for later calls.
func (c *Client) Login(ctx context.Context) (string, error) {
	var requested authRequestResult
	if err := c.call(ctx, MethodAuthRequest, authRequestParams{Permissions: []string{"Admin"}}, &requested, false); err != nil {
		return "", loginError(err)
	}
	if strings.TrimSpace(requested.AuthToken) == "" {
		return "", clierr.New(clierr.CodeDecode, "auth.request returned no auth token")
	}
	var accepted authAcceptResult
	params := authAcceptParams{AuthToken: requested.AuthToken, Name: c.clientName}
	if err := c.call(ctx, MethodAuthAccept, params, &accepted, false); err != nil {
		return "", loginError(err)
	}
	token := strings.TrimSpace(accepted.PermissionsToken)
	if token == "" {
		return "", clierr.New(clierr.CodeDecode, "auth.accept returned no permissions token")
	}
	c.SetToken(token)
	return token, nil
}

type submitInstructionParams struct {
	Instruction    execution.Instruction           `json:"instruction"`
	RequiredInputs []execution.SubstateRequirement `json:"required_inputs"`
	FeeBudget      uint64                          `json:"fee_budget"`
	DryRun         bool                            `json:"dry_run"`
	DumpOutputs    bool                            `json:"dump_outputs"`
	FeeAccount     string                          `json:"fee_account,omitempty"`
}

type waitResultParams struct {
	TransactionID string `json:"transaction_id"`
}

// Submit sends a full transaction and blocks until the daemon reports a
// terminal result.
func (c *Client) Submit(ctx context.Context, req execution.SubmitRequest, observe execution.StateFunc) (execution.Outcome, error) {
	if req.RequiredInputs == nil {
		req.RequiredInputs = []execution.SubstateRequirement{}
	}
	return c.submit(ctx, MethodSubmit, req, req.DumpOutputs, req.DryRun, observe)
}

// SubmitInstruction sends one instruction with no required inputs.
func (c *Client) SubmitInstruction(ctx context.Context, instruction execution.Instruction, opts execution.SubmitOptions, observe execution.StateFunc) (execution.Outcome, error) {
	params := submitInstructionParams{
		Instruction:    instruction,
		RequiredInputs: []execution.SubstateRequirement{},
		FeeBudget:      opts.FeeBudget,
		DryRun:         opts.DryRun,
		DumpOutputs:    opts.DumpBuckets,
		FeeAccount:     opts.FeeAccount,
	}
	return c.submit(ctx, MethodSubmitInstruction, params, opts.DumpBuckets, opts.DryRun, observe)
}

// submit runs one exchange. A dry run never reports a state change.
func (c *Client) submit(ctx context.Context, method string, params any, dump, dryRun bool, observe execution.StateFunc) (execution.Outcome, error) {
	outcome, err := c.exchange(ctx, method, params, dump, observe)
	if err != nil {
		return outcome, err
	}
	outcome.DryRun = dryRun
	outcome.StateChanged = outcome.Status == execution.OutcomeCommitted && !dryRun
	return outcome, nil
}

func (c *Client) exchange(ctx context.Context, method string, params any, dump bool, observe execution.StateFunc) (execution.Outcome, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return execution.Outcome{}, clierr.New(clierr.CodeBlocked, "another submission is already in flight on this client")
	}
	defer c.inFlight.Store(false)
	if observe == nil {
		observe = func(execution.SubmissionState) {}
	}
	if c.Token() == "" {
		return execution.Outcome{}, clierr.New(clierr.CodeAuth, "no daemon credential; run login or pass --token")
	}

	observe(execution.StateAwaitingConnection)
	var submitted submitResult
	if err := c.call(ctx, method, params, &submitted, true); err != nil {
		if rej, ok := asRejection(err); ok {
			return rej, nil
		}
		return execution.Outcome{}, err
	}
	if strings.TrimSpace(submitted.TransactionID) == "" {
		return execution.Outcome{}, clierr.New(clierr.CodeDecode, fmt.Sprintf("%s returned no transaction id", method))
	}
	observe(execution.StateAwaitingResult)
	if submitted.Result != nil {
		return decodeFinalize(submitted.TransactionID, submitted.Result, dump)
	}

	var waited waitResult
	if err := c.call(ctx, MethodWaitResult, waitResultParams{TransactionID: submitted.TransactionID}, &waited, true); err != nil {
		if rej, ok := asRejection(err); ok {
			rej.TransactionID = submitted.TransactionID
			return rej, nil
		}
		return execution.Outcome{}, err
	}
	if waited.TimedOut {
		return execution.Outcome{}, clierr.New(clierr.CodeTimeout, fmt.Sprintf("daemon timed out waiting for transaction %s", submitted.TransactionID))
	}
	if waited.Result == nil {
		return execution.Outcome{}, clierr.New(clierr.CodeDecode, fmt.Sprintf("wait_result for %s returned no result", submitted.TransactionID))
	}
	if waited.Result.FinalFee == 0 {
		waited.Result.FinalFee = waited.FinalFee
	}
	return decodeFinalize(submitted.TransactionID, waited.Result, dump)
}

// rejection marks a daemon-side application error raised while handling a transaction.
type rejection struct {
	message string
}

func (r *rejection) Error() string { return r.message }

func asRejection(err error) (execution.Outcome, bool) {
	var rej *rejection
	if !errors.As(err, &rej) {
		return execution.Outcome{}, false
	}
	return execution.Outcome{Status: execution.OutcomeRejected, RejectReason: rej.message}, true
}

func loginError(err error) error {
	if _, ok := clierr.As(err); ok {
		return err
	}
	return clierr.Wrap(clierr.CodeAuth, "daemon refused login", err)
}

func (c *Client) call(ctx context.Context, method string, params, reply any, authenticated bool) (err error) {
	ctx, span := c.tracer.Start(ctx, "jsonrpc "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json2.EncodeClientRequest(method, params)
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, fmt.Sprintf("encode %s request", method), err)
	}
	headers := map[string]string{}
	if token := c.Token(); authenticated && token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	c.logger.Debug("jsonrpc request", "method", method, "endpoint", c.endpoint, "bytes", len(body))
	resp, err := c.http.PostJSON(ctx, c.endpoint, body, headers)
	if err != nil {
		c.logger.Debug("jsonrpc transport error", "method", method, "error", err)
		return err
	}
	span.SetAttributes(attribute.Int("rpc.response_bytes", len(resp)))
	if err := json2.DecodeClientResponse(bytes.NewReader(resp), reply); err != nil {
		c.logger.Debug("jsonrpc error", "method", method, "error", err)
		return mapRPCError(method, err)
	}
	return nil
}

func mapRPCError(method string, err error) error {
	if errors.Is(err, json2.ErrNullResult) {
		return clierr.Wrap(clierr.CodeDecode, fmt.Sprintf("%s returned a null result", method), err)
	}
	var rpcErr *json2.Error
	if !errors.As(err, &rpcErr) {
		return clierr.Wrap(clierr.CodeDecode, fmt.Sprintf("decode %s response", method), err)
	}
	msg := fmt.Sprintf("%s: %s (code %d)", method, rpcErr.Message, rpcErr.Code)
	switch {
	case isAuthError(rpcErr):
		return clierr.New(clierr.CodeAuth, msg)
	case isProtocolError(rpcErr.Code):
		return clierr.New(clierr.CodeDecode, msg)
	default:
		return &rejection{message: rpcErr.Message}
	}
}

func isProtocolError(code json2.ErrorCode) bool {
	switch code {
	case json2.E_PARSE, json2.E_INVALID_REQ, json2.E_NO_METHOD, json2.E_BAD_PARAMS:
		return true
	default:
		return false
	}
}

// Session failures carry an HTTP-style code or name the token itself.
// Other authorization failures (missing badge proof, vault access rules) are rejections.
func isAuthError(e *json2.Error) bool {
	if e.Code == 401 || e.Code == 403 {
		return true
	}
	msg := strings.ToLower(e.Message)
	for _, needle := range []string{"token expired", "expired token", "invalid token", "not authenticated"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
