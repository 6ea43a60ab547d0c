package cmd

import (
	"os"

	"github.com/mezonai/remit/logx"
	"github.com/spf13/cobra"
)

const defaultNodeURL = "http://127.0.0.1:8545"

var (
	nodeURL string
	caller  string
)

var rootCmd = &cobra.Command{
	Use:   "remit",
	Short: "Hash-locked remittance ledger",
	Long: `Command line interface for running a remittance ledger node and for
depositing, withdrawing and refunding hash-locked transfers against it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&nodeURL, "node-url", "u", defaultNodeURL, "ledger node URL")
	rootCmd.PersistentFlags().StringVarP(&caller, "caller", "c", "", "identity the operation is submitted as")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
