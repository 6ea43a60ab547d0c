package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mezonai/remit/commitment"
	"github.com/mezonai/remit/errors"
	"github.com/mezonai/remit/events"
	"github.com/mezonai/remit/jsonrpc"
	"github.com/mezonai/remit/ledger"
	"github.com/mezonai/remit/store"
	"github.com/mezonai/remit/types"
	"github.com/mezonai/remit/utils"
	"github.com/mezonai/remit/viewsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	operator types.Address = "operator"
	alice    types.Address = "alice"
	bob      types.Address = "bob"
)

var secrets = commitment.Secrets{First: "open", Second: "sesame"}

func newTestClient(t *testing.T) (*RemitClient, *ledger.Ledger) {
	t.Helper()
	funds, err := utils.ParseUnits("100")
	require.NoError(t, err)
	l, err := ledger.New(store.NewMemoryStores(), ledger.Options{
		Policy:   ledger.DefaultPolicy(),
		Operator: operator,
		Salt:     []byte("client-test"),
		Genesis:  []types.Allocation{{Address: alice, Amount: funds}},
		Clock:    ledger.NewManualClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	srv := jsonrpc.NewServer("", l)
	hs := httptest.NewServer(srv.Handler())
	c, err := NewClient(Config{Endpoint: hs.URL})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
		_ = srv.Shutdown(context.Background())
		hs.Close()
	})
	return c, l
}

func deposit(t *testing.T, ctx context.Context, c *RemitClient, amount string, s commitment.Secrets) *events.TransferCreated {
	t.Helper()
	h, err := c.Hash(ctx, bob, s)
	require.NoError(t, err)
	v, err := utils.ParseUnits(amount)
	require.NoError(t, err)
	ev, err := c.Deposit(ctx, alice, ledger.DepositRequest{Commitment: h, Window: 24 * time.Hour, Amount: v})
	require.NoError(t, err)
	created, ok := ev.Payload.(*events.TransferCreated)
	require.True(t, ok)
	return created
}

func TestNewClientEndpoints(t *testing.T) {
	c, err := NewClient(Config{Endpoint: "127.0.0.1:8545"})
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:8545/ws/events", c.wsURL)

	c, err = NewClient(Config{Endpoint: "https://node.example/api/"})
	require.NoError(t, err)
	assert.Equal(t, "wss://node.example/api/ws/events", c.wsURL)

	_, err = NewClient(Config{Endpoint: "ftp://node"})
	assert.Error(t, err)
}

func TestClientRoundTrip(t *testing.T) {
	c, l := newTestClient(t)
	ctx := context.Background()

	health, err := c.CheckHealth(ctx)
	require.NoError(t, err)
	assert.Equal(t, l.Instance(), health.Instance)

	created := deposit(t, ctx, c, "5", secrets)
	_, err = c.Withdraw(ctx, bob, created.TransferID, secrets)
	require.NoError(t, err)

	bal, err := c.Balance(ctx, bob)
	require.NoError(t, err)
	want, err := l.Balance(bob)
	require.NoError(t, err)
	assert.Equal(t, want, bal)

	tr, err := c.Transfer(ctx, created.TransferID)
	require.NoError(t, err)
	assert.True(t, tr.Withdrawn())

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), status.Head)
}

func TestClientMapsRejections(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	created := deposit(t, ctx, c, "1", secrets)
	_, err := c.Refund(ctx, bob, created.TransferID)
	assert.True(t, errors.Is(err, errors.ErrNotSender))

	_, err = c.Refund(ctx, alice, created.TransferID)
	assert.True(t, errors.Is(err, errors.ErrNotYetExpired))

	_, err = c.WithdrawBenefits(ctx, alice)
	assert.True(t, errors.Is(err, errors.ErrNotOperator))

	_, err = c.Pause(ctx, operator)
	require.NoError(t, err)
	_, err = c.Pause(ctx, operator)
	assert.True(t, errors.Is(err, errors.ErrAlreadyPaused))
	_, err = c.Unpause(ctx, operator)
	require.NoError(t, err)
	_, err = c.Kill(ctx, operator)
	require.NoError(t, err)
	_, err = c.Unpause(ctx, operator)
	assert.True(t, errors.Is(err, errors.ErrInstanceKilled))
}

func TestClientRangeAndSubscribe(t *testing.T) {
	c, l := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := c.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	// the node is subscribed by the time the handshake returns
	assert.Equal(t, 1, l.Bus().GetTotalSubscriptions())

	deposit(t, ctx, c, "1", secrets)
	select {
	case ev := <-sub.Events():
		require.NotNil(t, ev)
		assert.Equal(t, uint64(1), ev.Seq)
		assert.Equal(t, events.KindTransferCreated, ev.Kind())
	case <-ctx.Done():
		t.Fatal("no event on the live feed")
	}

	head, err := c.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), head)
	evs, err := c.Range(ctx, 1, head)
	require.NoError(t, err)
	require.Len(t, evs, 1)
}

func TestSynchronizerOverRPC(t *testing.T) {
	c, l := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deposit(t, ctx, c, "2", commitment.Secrets{First: "first", Second: "deposit"})

	sync := viewsync.New(c, viewsync.Options{Instance: l.Instance(), PageSize: 1, RetryMin: 10 * time.Millisecond})
	done := make(chan error, 1)
	go func() { done <- sync.Run(ctx) }()

	require.Eventually(t, func() bool { return sync.LastSeq() == 1 }, 3*time.Second, 10*time.Millisecond)

	created := deposit(t, ctx, c, "3", secrets)
	_, err := c.Withdraw(ctx, bob, created.TransferID, secrets)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sync.LastSeq() == 3 }, 3*time.Second, 10*time.Millisecond)
	snap := sync.Snapshot()
	require.Len(t, snap.Rows, 2)
	assert.True(t, snap.Rows[1].Amount.IsZero())
	assert.False(t, snap.Rows[0].Amount.IsZero())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
