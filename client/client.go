package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/holiman/uint256"
	"github.com/mezonai/remit/commitment"
	"github.com/mezonai/remit/errors"
	"github.com/mezonai/remit/events"
	"github.com/mezonai/remit/jsonrpc"
	"github.com/mezonai/remit/ledger"
	"github.com/mezonai/remit/types"
	"github.com/mezonai/remit/utils"
)

type Config struct {
	// Endpoint is the node's base URL, e.g. http://127.0.0.1:8545
	Endpoint string
}

type RemitClient struct {
	cfg   Config
	rpc   *jrpc2.Client
	wsURL string
}

func NewClient(cfg Config) (*RemitClient, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", cfg.Endpoint, err)
	}
	ws := *u
	switch u.Scheme {
	case "http":
		ws.Scheme = "ws"
	case "https":
		ws.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	ws.Path = strings.TrimRight(u.Path, "/") + jsonrpc.PathEvents

	return &RemitClient{
		cfg:   cfg,
		rpc:   jrpc2.NewClient(jhttp.NewChannel(endpoint+jsonrpc.PathRPC, nil), nil),
		wsURL: ws.String(),
	}, nil
}

func (c *RemitClient) call(ctx context.Context, method string, params, result interface{}) error {
	return fromRPCError(c.rpc.CallResult(ctx, method, params, result))
}

// fromRPCError turns a server-side rejection back into its LedgerError so
// callers can match it with errors.Is.
func fromRPCError(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr *jrpc2.Error
	if !stderrors.As(err, &rpcErr) || len(rpcErr.Data) == 0 {
		return err
	}
	var le errors.LedgerError
	if json.Unmarshal(rpcErr.Data, &le) != nil || le.Code == "" {
		return err
	}
	return &le
}

func (c *RemitClient) CheckHealth(ctx context.Context) (*jsonrpc.HealthResult, error) {
	var res jsonrpc.HealthResult
	if err := c.call(ctx, jsonrpc.MethodHealthCheck, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Hash asks the node for the commitment of claimant and secrets on its
// instance. The secrets travel to the node, so use a node you trust.
func (c *RemitClient) Hash(ctx context.Context, claimant types.Address, secrets commitment.Secrets) (types.Hash, error) {
	var res jsonrpc.HashResult
	err := c.call(ctx, jsonrpc.MethodRemitHash, jsonrpc.HashParams{
		Claimant: string(claimant),
		Secret1:  secrets.First,
		Secret2:  secrets.Second,
	}, &res)
	return res.Commitment, err
}

func (c *RemitClient) Deposit(ctx context.Context, caller types.Address, req ledger.DepositRequest) (*events.Event, error) {
	return c.event(ctx, jsonrpc.MethodRemitDeposit, jsonrpc.DepositParams{
		Caller:     string(caller),
		Commitment: req.Commitment.Hex(),
		Claimant:   string(req.Claimant),
		Window:     req.Window.String(),
		Amount:     utils.Uint256ToString(req.Amount),
	})
}

func (c *RemitClient) Withdraw(ctx context.Context, caller types.Address, id types.TransferID, secrets commitment.Secrets) (*events.Event, error) {
	return c.event(ctx, jsonrpc.MethodRemitWithdraw, jsonrpc.WithdrawParams{
		Caller:  string(caller),
		ID:      string(id),
		Secret1: secrets.First,
		Secret2: secrets.Second,
	})
}

func (c *RemitClient) Refund(ctx context.Context, caller types.Address, id types.TransferID) (*events.Event, error) {
	return c.event(ctx, jsonrpc.MethodRemitRefund, jsonrpc.RefundParams{Caller: string(caller), ID: string(id)})
}

func (c *RemitClient) WithdrawBenefits(ctx context.Context, caller types.Address) (*events.Event, error) {
	return c.event(ctx, jsonrpc.MethodRemitWithdrawBenefits, jsonrpc.CallerParams{Caller: string(caller)})
}

func (c *RemitClient) Pause(ctx context.Context, caller types.Address) (*events.Event, error) {
	return c.event(ctx, jsonrpc.MethodRemitPause, jsonrpc.CallerParams{Caller: string(caller)})
}

func (c *RemitClient) Unpause(ctx context.Context, caller types.Address) (*events.Event, error) {
	return c.event(ctx, jsonrpc.MethodRemitUnpause, jsonrpc.CallerParams{Caller: string(caller)})
}

func (c *RemitClient) Kill(ctx context.Context, caller types.Address) (*events.Event, error) {
	return c.event(ctx, jsonrpc.MethodRemitKill, jsonrpc.CallerParams{Caller: string(caller)})
}

func (c *RemitClient) event(ctx context.Context, method string, params interface{}) (*events.Event, error) {
	var res jsonrpc.EventResult
	if err := c.call(ctx, method, params, &res); err != nil {
		return nil, err
	}
	return res.Event, nil
}

func (c *RemitClient) Status(ctx context.Context) (*types.LedgerStatus, error) {
	var res types.LedgerStatus
	if err := c.call(ctx, jsonrpc.MethodRemitStatus, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *RemitClient) Transfer(ctx context.Context, id types.TransferID) (*types.Transfer, error) {
	var res types.Transfer
	if err := c.call(ctx, jsonrpc.MethodRemitTransfer, jsonrpc.TransferParams{ID: string(id)}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *RemitClient) Balance(ctx context.Context, addr types.Address) (*uint256.Int, error) {
	var res jsonrpc.BalanceResult
	if err := c.call(ctx, jsonrpc.MethodAccountBalance, jsonrpc.BalanceParams{Address: string(addr)}, &res); err != nil {
		return nil, err
	}
	bal, err := uint256.FromDecimal(res.Balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q from node: %w", res.Balance, err)
	}
	return bal, nil
}

func (c *RemitClient) Head(ctx context.Context) (uint64, error) {
	var res jsonrpc.HeadResult
	if err := c.call(ctx, jsonrpc.MethodEventsHead, nil, &res); err != nil {
		return 0, err
	}
	return res.Head, nil
}

// Range fetches events with from <= seq <= to. The node caps a single call at
// jsonrpc.MaxRangeSize events, so callers page.
func (c *RemitClient) Range(ctx context.Context, from, to uint64) ([]*events.Event, error) {
	var res jsonrpc.RangeResult
	if err := c.call(ctx, jsonrpc.MethodEventsRange, jsonrpc.RangeParams{From: from, To: to}, &res); err != nil {
		return nil, err
	}
	return res.Events, nil
}

// Close closes the RPC client; open subscriptions are closed separately
func (c *RemitClient) Close() error {
	c.rpc.Close()
	return nil
}
