package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mezonai/remit/client"
	"github.com/mezonai/remit/commitment"
	"github.com/mezonai/remit/events"
	"github.com/mezonai/remit/jsonx"
	"github.com/mezonai/remit/ledger"
	"github.com/mezonai/remit/notify"
	"github.com/mezonai/remit/types"
	"github.com/mezonai/remit/utils"
	"github.com/spf13/cobra"
)

const requestTimeout = 15 * time.Second

type OpConfig struct {
	Claimant   string
	Secret1    string
	Secret2    string
	Commitment string
	Window     time.Duration
	Amount     string
	ID         string
	Address    string
}

var opConfig OpConfig

// board holds the outcome of the one operation a CLI invocation runs. It is
// rendered once before exit; only watch redraws banners until they expire.
var board = notify.NewBoard(notify.DefaultTTL, nil)

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Compute the commitment for a claimant and secrets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.RemitClient) error {
			h, err := c.Hash(ctx, types.Address(opConfig.Claimant), secretsFromFlags())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h.Hex())
			return nil
		})
	},
}

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Lock funds behind a commitment",
	Long: `Deposit locks --amount under a commitment. Pass --commitment directly, or
--claimant with --secret1/--secret2 to have the node compute it.

Examples:
  deposit -c alice --claimant bob --secret1 s1 --secret2 s2 --window 48h --amount 1.5u`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd.OutOrStdout(), "deposit", func(ctx context.Context, c *client.RemitClient) (*events.Event, error) {
			amount, err := utils.ParseAmount(opConfig.Amount)
			if err != nil {
				return nil, err
			}
			var h types.Hash
			if opConfig.Commitment != "" {
				if h, err = types.ParseHash(opConfig.Commitment); err != nil {
					return nil, err
				}
			} else if h, err = c.Hash(ctx, types.Address(opConfig.Claimant), secretsFromFlags()); err != nil {
				return nil, err
			}
			return c.Deposit(ctx, types.Address(caller), ledger.DepositRequest{
				Commitment: h,
				Claimant:   types.Address(opConfig.Claimant),
				Window:     opConfig.Window,
				Amount:     amount,
			})
		})
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Claim a transfer by revealing its secrets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd.OutOrStdout(), "withdraw", func(ctx context.Context, c *client.RemitClient) (*events.Event, error) {
			return c.Withdraw(ctx, types.Address(caller), types.TransferID(opConfig.ID), secretsFromFlags())
		})
	},
}

var refundCmd = &cobra.Command{
	Use:   "refund",
	Short: "Return an expired transfer to its sender",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd.OutOrStdout(), "refund", func(ctx context.Context, c *client.RemitClient) (*events.Event, error) {
			return c.Refund(ctx, types.Address(caller), types.TransferID(opConfig.ID))
		})
	},
}

var benefitsCmd = &cobra.Command{
	Use:   "benefits",
	Short: "Withdraw collected fees to the operator",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd.OutOrStdout(), "benefits", func(ctx context.Context, c *client.RemitClient) (*events.Event, error) {
			return c.WithdrawBenefits(ctx, types.Address(caller))
		})
	},
}

func breakerCmd(use, short string, call func(*client.RemitClient, context.Context, types.Address) (*events.Event, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(cmd.OutOrStdout(), use, func(ctx context.Context, c *client.RemitClient) (*events.Event, error) {
				return call(c, ctx, types.Address(caller))
			})
		},
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show instance flags, benefits and custody",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.RemitClient) error {
			status, err := c.Status(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "instance:  %s\n", status.Instance)
			fmt.Fprintf(out, "operator:  %s\n", status.Operator)
			fmt.Fprintf(out, "paused:    %v\n", status.Paused)
			fmt.Fprintf(out, "killed:    %v\n", status.Killed)
			fmt.Fprintf(out, "benefits:  %s\n", utils.FormatUnits(status.BenefitsToWithdraw))
			fmt.Fprintf(out, "custody:   %s\n", utils.FormatUnits(status.Custody))
			fmt.Fprintf(out, "pending:   %d\n", status.Pending)
			fmt.Fprintf(out, "head:      %d\n", status.Head)
			return nil
		})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show an account balance in units",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.RemitClient) error {
			addr := opConfig.Address
			if addr == "" {
				addr = caller
			}
			bal, err := c.Balance(ctx, types.Address(addr))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", addr, utils.FormatUnits(bal))
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{hashCmd, depositCmd, withdrawCmd} {
		c.Flags().StringVar(&opConfig.Secret1, "secret1", "", "first secret")
		c.Flags().StringVar(&opConfig.Secret2, "secret2", "", "second secret")
	}
	for _, c := range []*cobra.Command{hashCmd, depositCmd} {
		c.Flags().StringVar(&opConfig.Claimant, "claimant", "", "identity allowed to withdraw")
	}
	for _, c := range []*cobra.Command{withdrawCmd, refundCmd} {
		c.Flags().StringVar(&opConfig.ID, "id", "", "transfer identifier")
	}
	depositCmd.Flags().StringVar(&opConfig.Commitment, "commitment", "", "precomputed commitment hex")
	depositCmd.Flags().DurationVar(&opConfig.Window, "window", 24*time.Hour, "time until the transfer can be refunded")
	depositCmd.Flags().StringVarP(&opConfig.Amount, "amount", "a", "", `amount in base units, or units with a "u" suffix`)
	balanceCmd.Flags().StringVar(&opConfig.Address, "address", "", "account address (defaults to --caller)")

	rootCmd.AddCommand(hashCmd, depositCmd, withdrawCmd, refundCmd, benefitsCmd, statusCmd, balanceCmd,
		breakerCmd("pause", "Stop new deposits", (*client.RemitClient).Pause),
		breakerCmd("unpause", "Resume deposits", (*client.RemitClient).Unpause),
		breakerCmd("kill", "Stop new deposits permanently", (*client.RemitClient).Kill),
	)
}

func secretsFromFlags() commitment.Secrets {
	return commitment.Secrets{First: opConfig.Secret1, Second: opConfig.Secret2}
}

func withClient(fn func(ctx context.Context, c *client.RemitClient) error) error {
	c, err := client.NewClient(client.Config{Endpoint: nodeURL})
	if err != nil {
		return err
	}
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return fn(ctx, c)
}

// runOp submits one ledger operation, prints its event and renders the
// outcome banner.
func runOp(out io.Writer, name string, op func(ctx context.Context, c *client.RemitClient) (*events.Event, error)) error {
	err := withClient(func(ctx context.Context, c *client.RemitClient) error {
		ev, err := op(ctx, c)
		if err != nil {
			return err
		}
		data, err := jsonx.MarshalIndent(ev, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	})
	board.Report(name, err)
	board.Render(os.Stderr)
	return err
}
