package jsonrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/gorilla/websocket"
	"github.com/mezonai/remit/errors"
	"github.com/mezonai/remit/events"
	"github.com/mezonai/remit/ledger"
	"github.com/mezonai/remit/store"
	"github.com/mezonai/remit/types"
	"github.com/mezonai/remit/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testNode struct {
	ledger *ledger.Ledger
	clock  *ledger.ManualClock
	http   *httptest.Server
	client *jrpc2.Client
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()
	funds, err := utils.ParseUnits("10")
	require.NoError(t, err)
	clock := ledger.NewManualClock(start)
	l, err := ledger.New(store.NewMemoryStores(), ledger.Options{
		Policy:   ledger.DefaultPolicy(),
		Operator: "operator",
		Salt:     []byte("rpc-test"),
		Genesis:  []types.Allocation{{Address: "alice", Amount: funds}},
		Clock:    clock,
	})
	require.NoError(t, err)

	srv := NewServer("127.0.0.1:0", l)
	hs := httptest.NewServer(srv.Handler())
	cli := jrpc2.NewClient(jhttp.NewChannel(hs.URL, nil), nil)
	t.Cleanup(func() {
		cli.Close()
		_ = srv.Shutdown(context.Background())
		hs.Close()
	})
	return &testNode{ledger: l, clock: clock, http: hs, client: cli}
}

func (n *testNode) call(t *testing.T, method string, params, result interface{}) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return n.client.CallResult(ctx, method, params, result)
}

func ledgerCode(t *testing.T, err error) errors.ErrorCode {
	t.Helper()
	require.Error(t, err)
	var rpcErr *jrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	var le errors.LedgerError
	require.NoError(t, json.Unmarshal(rpcErr.Data, &le))
	return le.Code
}

func TestDepositWithdrawOverRPC(t *testing.T) {
	n := newTestNode(t)

	var hash HashResult
	require.NoError(t, n.call(t, MethodRemitHash, HashParams{Claimant: "bob", Secret1: "s1", Secret2: "s2"}, &hash))
	assert.False(t, hash.Commitment.IsZero())

	var created EventResult
	require.NoError(t, n.call(t, MethodRemitDeposit, DepositParams{
		Caller:     "alice",
		Commitment: hash.Commitment.Hex(),
		Window:     "48h",
		Amount:     "2u",
	}, &created))
	require.NotNil(t, created.Event)
	assert.Equal(t, uint64(1), created.Event.Seq)
	payload, ok := created.Event.Payload.(*events.TransferCreated)
	require.True(t, ok)

	var withdrawn EventResult
	require.NoError(t, n.call(t, MethodRemitWithdraw, WithdrawParams{
		Caller: "bob", ID: string(payload.TransferID), Secret1: "s1", Secret2: "s2",
	}, &withdrawn))
	assert.Equal(t, events.KindTransferWithdrawn, withdrawn.Event.Kind())

	var bal BalanceResult
	require.NoError(t, n.call(t, MethodAccountBalance, BalanceParams{Address: "bob"}, &bal))
	assert.Equal(t, uint32(utils.Decimals), bal.Decimals)
	assert.NotEqual(t, "0", bal.Balance)

	var tr types.Transfer
	require.NoError(t, n.call(t, MethodRemitTransfer, TransferParams{ID: string(payload.TransferID)}, &tr))
	assert.True(t, tr.Withdrawn())

	err := n.call(t, MethodRemitWithdraw, WithdrawParams{
		Caller: "bob", ID: string(payload.TransferID), Secret1: "s1", Secret2: "s2",
	}, &withdrawn)
	assert.Equal(t, errors.ErrCodeAlreadySettled, ledgerCode(t, err))
}

func TestRejectionsCarryLedgerCodes(t *testing.T) {
	n := newTestNode(t)

	var res EventResult
	err := n.call(t, MethodRemitPause, CallerParams{Caller: "alice"}, &res)
	assert.Equal(t, errors.ErrCodeNotOperator, ledgerCode(t, err))

	err = n.call(t, MethodRemitDeposit, DepositParams{
		Caller: "alice", Commitment: "zz", Window: "1h", Amount: "1",
	}, &res)
	assert.Equal(t, errors.ErrCodeInvalidInput, ledgerCode(t, err))
	var rpcErr *jrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, jrpc2.InvalidParams, rpcErr.Code)

	var hash HashResult
	require.NoError(t, n.call(t, MethodRemitHash, HashParams{Claimant: "bob", Secret1: "a", Secret2: "b"}, &hash))
	err = n.call(t, MethodRemitDeposit, DepositParams{
		Caller: "alice", Commitment: hash.Commitment.Hex(), Window: "0s", Amount: "1",
	}, &res)
	assert.Equal(t, errors.ErrCodeInvalidExpiration, ledgerCode(t, err))

	require.NoError(t, n.call(t, MethodRemitPause, CallerParams{Caller: "operator"}, &res))
	err = n.call(t, MethodRemitDeposit, DepositParams{
		Caller: "alice", Commitment: hash.Commitment.Hex(), Window: "1h", Amount: "1",
	}, &res)
	assert.Equal(t, errors.ErrCodeInstanceLockedOut, ledgerCode(t, err))

	var status types.LedgerStatus
	require.NoError(t, n.call(t, MethodRemitStatus, nil, &status))
	assert.True(t, status.Paused)
}

func TestEventsRangeAndHead(t *testing.T) {
	n := newTestNode(t)

	var res EventResult
	require.NoError(t, n.call(t, MethodRemitPause, CallerParams{Caller: "operator"}, &res))
	require.NoError(t, n.call(t, MethodRemitUnpause, CallerParams{Caller: "operator"}, &res))
	require.NoError(t, n.call(t, MethodRemitPause, CallerParams{Caller: "operator"}, &res))

	var head HeadResult
	require.NoError(t, n.call(t, MethodEventsHead, nil, &head))
	assert.Equal(t, uint64(3), head.Head)

	var rng RangeResult
	require.NoError(t, n.call(t, MethodEventsRange, RangeParams{From: 2, To: 10}, &rng))
	require.Len(t, rng.Events, 2)
	assert.Equal(t, uint64(2), rng.Events[0].Seq)
	assert.Equal(t, events.KindUnpaused, rng.Events[0].Kind())

	require.NoError(t, n.call(t, MethodEventsRange, RangeParams{From: 3, To: 1}, &rng))
	assert.Empty(t, rng.Events)

	var health HealthResult
	require.NoError(t, n.call(t, MethodHealthCheck, nil, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, n.ledger.Instance(), health.Instance)
}

func TestEventFeed(t *testing.T) {
	n := newTestNode(t)

	url := "ws" + strings.TrimPrefix(n.http.URL, "http") + PathEvents
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, 1, n.ledger.Bus().GetTotalSubscriptions())

	_, err = n.ledger.Pause("operator")
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev events.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, uint64(1), ev.Seq)
	assert.Equal(t, events.KindPaused, ev.Kind())
	assert.Equal(t, n.ledger.Instance(), ev.Instance)
}

func TestCORSPreflight(t *testing.T) {
	n := newTestNode(t)
	srv := NewServer("", n.ledger)
	srv.SetCORSConfig(CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"POST"}})

	req := httptest.NewRequest(http.MethodOptions, PathRPC, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestEventFeedRejectedUpgradeLeavesNoSubscriber(t *testing.T) {
	n := newTestNode(t)

	resp, err := http.Get(n.http.URL + PathEvents)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, n.ledger.Bus().GetTotalSubscriptions())
}
