package jsonrpc

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/gorilla/websocket"
	"github.com/mezonai/remit/commitment"
	"github.com/mezonai/remit/events"
	"github.com/mezonai/remit/exception"
	"github.com/mezonai/remit/ledger"
	"github.com/mezonai/remit/logx"
	"github.com/mezonai/remit/monitoring"
	"github.com/mezonai/remit/types"
	"github.com/mezonai/remit/utils"
)

type Server struct {
	addr       string
	ledger     *ledger.Ledger
	corsConfig CORSConfig
	upgrader   websocket.Upgrader
	httpServer *http.Server
	bridge     io.Closer
	ws         *wsHub
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

func NewServer(addr string, l *ledger.Ledger) *Server {
	return &Server{
		addr:   addr,
		ledger: l,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ws: newWSHub(),
	}
}

// SetCORSConfig allows configuring CORS settings
func (s *Server) SetCORSConfig(config CORSConfig) {
	s.corsConfig = config
}

// Handler serves JSON-RPC on /, the live event feed on /ws/events and
// Prometheus metrics on /metrics.
func (s *Server) Handler() http.Handler {
	methods := s.buildMethodMap()
	jh := jhttp.NewBridge(methods, &jhttp.BridgeOptions{Server: &jrpc2.ServerOptions{}})
	if s.bridge != nil {
		_ = s.bridge.Close()
	}
	s.bridge = jh

	mux := http.NewServeMux()
	monitoring.RegisterMetrics(mux)
	mux.HandleFunc(PathEvents, s.handleEventsWS)
	mux.Handle(PathRPC, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.setCORSHeaders(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		logx.Debug("JSONRPC", "Request from ", extractClientIPFromRequest(r))
		jh.ServeHTTP(w, r)
	}))
	return mux
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logx.Info("JSONRPC", "Serving on ", ln.Addr().String())
	exception.SafeGo("jsonrpc.Serve", func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			logx.Error("JSONRPC", "Server stopped: ", err)
		}
	})
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.ws.closeAll()
	if s.bridge != nil {
		_ = s.bridge.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Build jrpc2 method map
func (s *Server) buildMethodMap() handler.Map {
	return handler.Map{
		MethodRemitHash: handler.New(func(ctx context.Context, p HashParams) (*HashResult, error) {
			h, err := s.ledger.Commit(types.Address(p.Claimant), commitment.Secrets{First: p.Secret1, Second: p.Secret2})
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return &HashResult{Commitment: h}, nil
		}),
		MethodRemitDeposit: handler.New(func(ctx context.Context, p DepositParams) (*EventResult, error) {
			req, err := p.toRequest()
			if err != nil {
				return nil, err
			}
			return s.eventResult(s.ledger.Deposit(types.Address(p.Caller), req))
		}),
		MethodRemitWithdraw: handler.New(func(ctx context.Context, p WithdrawParams) (*EventResult, error) {
			secrets := commitment.Secrets{First: p.Secret1, Second: p.Secret2}
			return s.eventResult(s.ledger.Withdraw(types.Address(p.Caller), types.TransferID(p.ID), secrets))
		}),
		MethodRemitRefund: handler.New(func(ctx context.Context, p RefundParams) (*EventResult, error) {
			return s.eventResult(s.ledger.Refund(types.Address(p.Caller), types.TransferID(p.ID)))
		}),
		MethodRemitWithdrawBenefits: handler.New(func(ctx context.Context, p CallerParams) (*EventResult, error) {
			return s.eventResult(s.ledger.WithdrawBenefits(types.Address(p.Caller)))
		}),
		MethodRemitPause: handler.New(func(ctx context.Context, p CallerParams) (*EventResult, error) {
			return s.eventResult(s.ledger.Pause(types.Address(p.Caller)))
		}),
		MethodRemitUnpause: handler.New(func(ctx context.Context, p CallerParams) (*EventResult, error) {
			return s.eventResult(s.ledger.Unpause(types.Address(p.Caller)))
		}),
		MethodRemitKill: handler.New(func(ctx context.Context, p CallerParams) (*EventResult, error) {
			return s.eventResult(s.ledger.Kill(types.Address(p.Caller)))
		}),
		MethodRemitStatus: handler.New(func(ctx context.Context) (*types.LedgerStatus, error) {
			status, err := s.ledger.Status()
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return status, nil
		}),
		MethodRemitTransfer: handler.New(func(ctx context.Context, p TransferParams) (*types.Transfer, error) {
			if p.ID == "" {
				return nil, invalidParams("id cannot be empty")
			}
			t, err := s.ledger.Transfer(types.TransferID(p.ID))
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return t, nil
		}),
		MethodAccountBalance: handler.New(func(ctx context.Context, p BalanceParams) (*BalanceResult, error) {
			if p.Address == "" {
				return nil, invalidParams("address cannot be empty")
			}
			bal, err := s.ledger.Balance(types.Address(p.Address))
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return &BalanceResult{Address: types.Address(p.Address), Balance: utils.Uint256ToString(bal), Decimals: utils.Decimals}, nil
		}),
		MethodEventsHead: handler.New(func(ctx context.Context) (*HeadResult, error) {
			head, err := s.ledger.Head(ctx)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return &HeadResult{Head: head}, nil
		}),
		MethodEventsRange: handler.New(func(ctx context.Context, p RangeParams) (*RangeResult, error) {
			if p.From == 0 {
				p.From = 1
			}
			if p.To < p.From {
				return &RangeResult{Events: nil}, nil
			}
			if p.To-p.From >= MaxRangeSize {
				p.To = p.From + MaxRangeSize - 1
			}
			evs, err := s.ledger.Range(ctx, p.From, p.To)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return &RangeResult{Events: evs}, nil
		}),
		MethodHealthCheck: handler.New(func(ctx context.Context) (*HealthResult, error) {
			head, err := s.ledger.Head(ctx)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return &HealthResult{Status: "ok", Instance: s.ledger.Instance(), Head: head}, nil
		}),
	}
}

func (s *Server) eventResult(ev *events.Event, err error) (*EventResult, error) {
	if err != nil {
		return nil, toJRPC2Error(err)
	}
	return &EventResult{Event: ev}, nil
}

func (p DepositParams) toRequest() (ledger.DepositRequest, error) {
	var req ledger.DepositRequest
	h, err := types.ParseHash(p.Commitment)
	if err != nil {
		return req, invalidParams("invalid commitment: %v", err)
	}
	window, err := time.ParseDuration(strings.TrimSpace(p.Window))
	if err != nil {
		return req, invalidParams("invalid window %q: %v", p.Window, err)
	}
	amount, err := utils.ParseAmount(p.Amount)
	if err != nil {
		return req, invalidParams("invalid amount %q: %v", p.Amount, err)
	}
	req.Commitment = h
	req.Claimant = types.Address(p.Claimant)
	req.Window = window
	req.Amount = amount
	return req, nil
}

func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsConfig.AllowedOrigins) > 0 {
		if s.corsConfig.AllowedOrigins[0] == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			origin := r.Header.Get("Origin")
			for _, allowedOrigin := range s.corsConfig.AllowedOrigins {
				if origin == allowedOrigin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
	}
	if len(s.corsConfig.AllowedMethods) > 0 {
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(s.corsConfig.AllowedMethods, ", "))
	}
	if len(s.corsConfig.AllowedHeaders) > 0 {
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(s.corsConfig.AllowedHeaders, ", "))
	}
	if s.corsConfig.MaxAge > 0 {
		w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", s.corsConfig.MaxAge))
	}
}
