package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"nftstake/core"
	"nftstake/native/token"
	"nftstake/observability/logging"
	"nftstake/observability/metrics"
	"nftstake/storage/eventindex"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	limiterIdleTTL  = 10 * time.Minute
	requestIDHeader = "X-Request-ID"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeTxRejected     = -32002
	codeNotFound       = -32004
	codeRateLimited    = -32020
)

// ServerConfig tunes the JSON-RPC listener.
type ServerConfig struct {
	// AuthToken guards stake_sendTransaction. Submissions are refused while
	// neither AuthToken nor JWTSecret is set.
	AuthToken string
	// JWTSecret additionally admits HS256 bearer tokens signed with it. They
	// must carry an expiry and, when JWTIssuer is set, a matching issuer.
	JWTSecret         string
	JWTIssuer         string
	JWTClockSkew      time.Duration
	RateLimitPerSec   float64
	RateLimitBurst    int
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	// TrustForwardedFor makes the limiter key on X-Forwarded-For.
	TrustForwardedFor bool
}

type sourceLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Server struct {
	node    *core.Node
	cfg     ServerConfig
	logger  *slog.Logger
	metrics *metrics.StakingMetrics
	nowFn   func() time.Time

	eventIndex *eventindex.Index

	mu       sync.Mutex
	limiters map[string]*sourceLimiter

	serverMu   sync.Mutex
	httpServer *http.Server
}

func NewServer(node *core.Node, logger *slog.Logger, cfg ServerConfig) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = 20
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 1
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.JWTClockSkew <= 0 {
		cfg.JWTClockSkew = 2 * time.Minute
	}
	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	return &Server{
		node:     node,
		cfg:      cfg,
		logger:   logger.With("component", "rpc"),
		metrics:  metrics.Staking(),
		nowFn:    time.Now,
		limiters: make(map[string]*sourceLimiter),
	}
}

// Handler returns the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.handleEventsWS)
	r.Post("/", s.handle)
	return otelhttp.NewHandler(r, "nftstake.rpc")
}

// Serve accepts connections on listener until Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	s.serverMu.Lock()
	s.httpServer = srv
	s.serverMu.Unlock()

	s.logger.Info("json-rpc server listening", "address", listener.Addr().String())
	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpc: listen %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.serverMu.Lock()
	srv := s.httpServer
	s.serverMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type requestIDKey struct{}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeLedgerError renders a ledger failure with its kind attached.
func writeLedgerError(w http.ResponseWriter, id interface{}, err error) {
	kind := core.ErrorKind(err)
	code, status := codeServerError, http.StatusInternalServerError
	switch {
	case kind == "RecordNotFound", kind == "RewardMintNotFound",
		errors.Is(err, token.ErrAccountNotFound), errors.Is(err, token.ErrMintNotFound):
		code, status = codeNotFound, http.StatusNotFound
	case kind == "Internal":
	default:
		code, status = codeInvalidParams, http.StatusBadRequest
	}
	writeError(w, status, id, code, err.Error(), ErrorData{Kind: kind})
}

// handle decodes a JSON-RPC request and routes it to its method handler.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, nil)
		return
	}

	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	handler, ok := s.methods()[req.Method]
	if !ok {
		writeError(rec, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
	} else {
		handler(rec, r, &req)
	}

	outcome := "ok"
	if rec.status >= http.StatusBadRequest {
		outcome = "error"
	}
	s.metrics.ObserveRPC(req.Method, outcome)
	s.logger.Debug("rpc request",
		"method", req.Method,
		"requestid", requestIDFrom(r.Context()),
		"status", rec.status,
		logging.MaskField("source", clientSource(r, s.cfg.TrustForwardedFor)))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type methodHandler func(http.ResponseWriter, *http.Request, *RPCRequest)

func (s *Server) methods() map[string]methodHandler {
	return map[string]methodHandler{
		"stake_sendTransaction":  s.handleSendTransaction,
		"stake_getRecord":        s.handleGetRecord,
		"stake_getStatus":        s.handleGetStatus,
		"stake_previewRewards":   s.handlePreviewRewards,
		"stake_getTokenAccount":  s.handleGetTokenAccount,
		"stake_getMint":          s.handleGetMint,
		"stake_getRewardBalance": s.handleGetRewardBalance,
		"stake_getStakedAssets":  s.handleGetStakedAssets,
		"stake_getAccount":       s.handleGetAccount,
		"stake_getNonce":         s.handleGetNonce,
		"stake_getAuthorities":   s.handleGetAuthorities,
		"stake_getEvents":        s.handleGetEvents,
	}
}

// allowSource applies the per-source token bucket. Buckets idle for longer
// than limiterIdleTTL are dropped.
func (s *Server) allowSource(source string, now time.Time) bool {
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(s.limiters, key)
		}
	}
	entry, ok := s.limiters[source]
	if !ok {
		entry = &sourceLimiter{limiter: rate.NewLimiter(rate.Limit(s.cfg.RateLimitPerSec), s.cfg.RateLimitBurst)}
		s.limiters[source] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func clientSource(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			candidate := strings.TrimSpace(strings.Split(forwarded, ",")[0])
			if candidate != "" {
				return candidate
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
