package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mezonai/remit/client"
	"github.com/mezonai/remit/notify"
	"github.com/mezonai/remit/types"
	"github.com/mezonai/remit/utils"
	"github.com/mezonai/remit/viewsync"
	"github.com/spf13/cobra"
)

var watchRefresh time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the event log and show the transfer table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchRefresh, "refresh", time.Second, "redraw interval for expiration countdowns")
}

func runWatch(out io.Writer) error {
	c, err := client.NewClient(client.Config{Endpoint: nodeURL})
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health, err := c.CheckHealth(ctx)
	if err != nil {
		return err
	}
	sync := viewsync.New(c, viewsync.Options{Instance: health.Instance})
	done := make(chan error, 1)
	go func() { done <- sync.Run(ctx) }()

	banners := notify.NewBoard(notify.DefaultTTL, nil)
	ticker := time.NewTicker(watchRefresh)
	defer ticker.Stop()
	var prev viewsync.Snapshot
	for {
		select {
		case <-done:
			return nil
		case <-sync.Updates():
		case <-ticker.C:
		}
		snap := sync.Snapshot()
		notifyChanges(banners, prev, snap)
		prev = snap

		fmt.Fprint(out, "\033[H\033[2J")
		renderSnapshot(out, snap, time.Now())
		fmt.Fprintln(out)
		banners.Render(out)
	}
}

// notifyChanges posts a banner for every transfer that appeared or settled and
// for breaker changes between two snapshots.
func notifyChanges(b *notify.Board, prev, next viewsync.Snapshot) {
	if next.LastSeq == prev.LastSeq {
		return
	}
	before := make(map[types.TransferID]viewsync.Row, len(prev.Rows))
	for _, row := range prev.Rows {
		before[row.ID] = row
	}
	for _, row := range next.Rows {
		old, seen := before[row.ID]
		switch {
		case !seen:
			b.Success("transfer %s created: %s from %s", row.ID, utils.FormatUnits(row.Amount), row.Sender)
		case !old.Amount.IsZero() && row.Amount.IsZero():
			b.Success("transfer %s settled", row.ID)
		}
	}
	switch {
	case next.Killed && !prev.Killed:
		b.Error("ledger killed")
	case next.Paused && !prev.Paused:
		b.Error("ledger paused")
	case !next.Paused && prev.Paused:
		b.Success("ledger unpaused")
	}
}

func renderSnapshot(w io.Writer, snap viewsync.Snapshot, now time.Time) {
	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(w, "%-12s %-20s %-20s %24s  %-25s %s\n", "ID", "SENDER", "CLAIMANT", "AMOUNT", "EXPIRES", "REMAINING")
	for _, row := range snap.Rows {
		line := color.New(color.FgWhite)
		switch {
		case row.Amount.IsZero():
			line = color.New(color.Faint)
		case !now.Before(row.ExpirationTime):
			line = color.New(color.FgYellow)
		}
		claimant := string(row.Claimant)
		if claimant == "" {
			claimant = "-"
		}
		line.Fprintf(w, "%-12s %-20s %-20s %24s  %-25s %s\n",
			utils.ShortenID(string(row.ID)),
			utils.ShortenID(string(row.Sender)),
			utils.ShortenID(claimant),
			utils.FormatUnits(row.Amount),
			row.ExpirationTime.UTC().Format(time.RFC3339),
			utils.Remaining(now, row.ExpirationTime))
	}

	state := "active"
	switch {
	case snap.Killed:
		state = "killed"
	case snap.Paused:
		state = "paused"
	}
	fmt.Fprintf(w, "\nbenefits: %s | state: %s | last_seq: %d\n",
		utils.FormatUnits(snap.AvailableBenefits), state, snap.LastSeq)
}
