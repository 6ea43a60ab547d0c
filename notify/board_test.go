package notify

import (
	"bytes"
	stderrors "errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestBoardExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBoard(0, clock.now)

	b.Success("deposited %s", "1.5")
	clock.t = clock.t.Add(2 * time.Second)
	b.Error("refund failed")

	active := b.Active()
	require.Len(t, active, 2)
	assert.Equal(t, LevelError, active[0].Level)
	assert.Equal(t, "deposited 1.5", active[1].Text)

	clock.t = clock.t.Add(3 * time.Second)
	active = b.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "refund failed", active[0].Text)

	clock.t = clock.t.Add(2 * time.Second)
	assert.Empty(t, b.Active())
}

func TestBoardReportAndRender(t *testing.T) {
	color.NoColor = true
	b := NewBoard(time.Minute, nil)
	b.Report("withdraw", stderrors.New("expired"))
	b.Report("refund", nil)

	var buf bytes.Buffer
	b.Render(&buf)
	assert.Equal(t, "✓ refund\n✗ withdraw: expired\n", buf.String())
}
