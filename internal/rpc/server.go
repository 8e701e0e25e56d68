package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/rs/zerolog"
	"github.com/vouchsafe/vouchsafe/common/logging"
	"github.com/vouchsafe/vouchsafe/internal/protocol"
	"github.com/vouchsafe/vouchsafe/internal/storage"
	"github.com/vouchsafe/vouchsafe/internal/types"
)

const (
	jsonrpcVersion = "2.0"

	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	// Protocol failures map to -32000 - ErrorCode so that clients can match
	// on the exact rejection without string comparison.
	codeProtocolBase = -32000
)

const maxRequestBody = 1 << 20

type ServerConfig struct {
	Endpoint string
}

type Server struct {
	config   ServerConfig
	verifier *protocol.Verifier
	logger   zerolog.Logger
	methods  map[string]methodHandler
}

type methodHandler func(ctx context.Context, params json.RawMessage) (any, *rpcError)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Id      json.RawMessage `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Id      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func NewServer(config ServerConfig, verifier *protocol.Verifier, logger zerolog.Logger) *Server {
	s := &Server{
		config:   config,
		verifier: verifier,
		logger:   logger,
	}
	s.methods = map[string]methodHandler{
		"vouch_createTask":   withParams(s.createTask),
		"vouch_commitResult": withParams(s.commitResult),
		"vouch_revealResult": withParams(s.revealResult),
		"vouch_resolveTask":  withParams(s.resolveTask),
		"vouch_getTask":      withParams(s.getTask),
		"vouch_getEvents":    withParams(s.getEvents),
		"vouch_getBalance":   withParams(s.getBalance),
	}
	return s
}

// withParams decodes the params object, then delegates to the typed handler.
func withParams[P any](handler func(ctx context.Context, params P) (any, *rpcError)) methodHandler {
	return func(ctx context.Context, raw json.RawMessage) (any, *rpcError) {
		var params P
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &params); err != nil {
				return nil, &rpcError{Code: codeInvalidParams, Message: "invalid params", Data: err.Error()}
			}
		}
		return handler(ctx, params)
	}
}

func protocolError(err error) *rpcError {
	// Read helpers report unknown tasks as a storage error; clients get the
	// same numeric code as the mutating operations use for it.
	if errors.Is(err, storage.ErrTaskNotFound) {
		err = types.NewVerboseError(types.ErrorTaskNotActive, "%s", err)
	}
	if code, ok := types.IsProtocolError(err); ok {
		return &rpcError{
			Code:    codeProtocolBase - int(code),
			Message: err.Error(),
			Data:    code.String(),
		}
	}
	return &rpcError{Code: codeInternalError, Message: err.Error()}
}

func (s *Server) createTask(ctx context.Context, params CreateTaskParams) (any, *rpcError) {
	taskId, err := s.verifier.CreateTask(
		ctx, params.Client, params.Descriptor, params.Servers, params.Stake, params.Payment)
	if err != nil {
		return nil, protocolError(err)
	}
	return CreateTaskResult{TaskId: taskId}, nil
}

func (s *Server) commitResult(ctx context.Context, params CommitResultParams) (any, *rpcError) {
	err := s.verifier.Commit(ctx, params.TaskId, params.Server, params.Commitment, params.Stake)
	if err != nil {
		return nil, protocolError(err)
	}
	return true, nil
}

func (s *Server) revealResult(ctx context.Context, params RevealResultParams) (any, *rpcError) {
	err := s.verifier.Reveal(ctx, params.TaskId, params.Server, params.Result, params.Nonce)
	if err != nil {
		return nil, protocolError(err)
	}
	return true, nil
}

func (s *Server) resolveTask(ctx context.Context, params ResolveTaskParams) (any, *rpcError) {
	verdict, err := s.verifier.Resolve(ctx, params.TaskId, params.Caller)
	if err != nil {
		return nil, protocolError(err)
	}
	return ResolveTaskResult{
		MajorityReached: verdict.MajorityReached,
		MajorityHash:    verdict.MajorityHash,
		MajorityCount:   verdict.MajorityCount,
		CommittedCount:  verdict.CommittedCount,
	}, nil
}

func (s *Server) getTask(ctx context.Context, params GetTaskParams) (any, *rpcError) {
	task, err := s.verifier.GetTask(ctx, params.TaskId)
	if err != nil {
		return nil, protocolError(err)
	}
	return TaskView{
		Id:         task.Id,
		Client:     task.Client,
		Descriptor: task.Descriptor,
		Servers:    task.Servers,
		Stake:      task.Stake,
		Payment:    task.Payment,
		Completed:  task.Completed,
	}, nil
}

func (s *Server) getEvents(ctx context.Context, params GetEventsParams) (any, *rpcError) {
	events, err := s.verifier.Events(ctx, params.TaskId)
	if err != nil {
		return nil, protocolError(err)
	}
	return events, nil
}

func (s *Server) getBalance(ctx context.Context, params GetBalanceParams) (any, *rpcError) {
	balance, err := s.verifier.AccountBalance(ctx, params.Address)
	if err != nil {
		return nil, protocolError(err)
	}
	return GetBalanceResult{Balance: balance}, nil
}

// Router returns the full handler stack: gzip compression and panic
// recovery around the JSON-RPC dispatcher.
func (s *Server) Router() http.Handler {
	var handler http.Handler = http.HandlerFunc(s.serveRequest)
	handler = handlers.CompressHandler(handler)
	handler = handlers.RecoveryHandler(handlers.RecoveryLogger(&recoveryLogger{s.logger}))(handler)
	return handler
}

type recoveryLogger struct {
	logger zerolog.Logger
}

func (l *recoveryLogger) Println(args ...any) {
	l.logger.Error().Msgf("panic in rpc handler: %v", args)
}

func (s *Server) serveRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reqId := uuid.New().String()
	logger := s.logger.With().Str(logging.FieldReqId, reqId).Logger()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeResponse(w, logger, rpcResponse{
			JSONRPC: jsonrpcVersion,
			Error:   &rpcError{Code: codeParseError, Message: "failed to read request"},
		})
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeResponse(w, logger, rpcResponse{
			JSONRPC: jsonrpcVersion,
			Error:   &rpcError{Code: codeParseError, Message: "invalid json", Data: err.Error()},
		})
		return
	}
	if req.JSONRPC != jsonrpcVersion || req.Method == "" {
		writeResponse(w, logger, rpcResponse{
			JSONRPC: jsonrpcVersion,
			Id:      req.Id,
			Error:   &rpcError{Code: codeInvalidRequest, Message: "invalid request"},
		})
		return
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		writeResponse(w, logger, rpcResponse{
			JSONRPC: jsonrpcVersion,
			Id:      req.Id,
			Error:   &rpcError{Code: codeMethodNotFound, Message: "method not found", Data: req.Method},
		})
		return
	}

	start := time.Now()
	result, rpcErr := handler(r.Context(), req.Params)

	event := logger.Debug().
		Str(logging.FieldRpcMethod, req.Method).
		Dur(logging.FieldDuration, time.Since(start))
	if rpcErr != nil {
		event = logger.Warn().
			Str(logging.FieldRpcMethod, req.Method).
			Int("rpcErrorCode", rpcErr.Code).
			Str(logging.FieldError, rpcErr.Message)
	}
	event.Msg("Served rpc request")

	writeResponse(w, logger, rpcResponse{
		JSONRPC: jsonrpcVersion,
		Id:      req.Id,
		Result:  result,
		Error:   rpcErr,
	})
}

func writeResponse(w http.ResponseWriter, logger zerolog.Logger, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Msg("failed to write rpc response")
	}
}

// Run serves the endpoint until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Endpoint,
		Handler:           s.Router(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info().Str(logging.FieldUrl, s.config.Endpoint).Msg("JsonRpc endpoint opened")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.logger.Info().Str(logging.FieldUrl, s.config.Endpoint).Msg("HTTP endpoint closed")
		return nil
	}
}
