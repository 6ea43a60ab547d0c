package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mezonai/remit/config"
	"github.com/mezonai/remit/jsonrpc"
	"github.com/mezonai/remit/ledger"
	"github.com/mezonai/remit/logx"
	"github.com/mezonai/remit/store"
	"github.com/mezonai/remit/types"
	"github.com/spf13/cobra"
)

const defaultNodeConfigPath = "config/node.yml"

var nodeConfigPath string

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run the ledger node",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNode(nodeConfigPath)
	},
}

func init() {
	rootCmd.AddCommand(nodeCmd)
	nodeCmd.Flags().StringVar(&nodeConfigPath, "config", defaultNodeConfigPath, "path to node.yml")
}

func runNode(path string) error {
	cfg, err := config.LoadNodeConfig(path)
	if err != nil {
		return fmt.Errorf("load node config: %w", err)
	}
	ledgerCfg, err := config.LoadLedgerConfig(cfg.LedgerConfig)
	if err != nil {
		return fmt.Errorf("load ledger config: %w", err)
	}
	policy, err := ledger.PolicyFromConfig(ledgerCfg)
	if err != nil {
		return err
	}
	salt, err := cfg.Salt()
	if err != nil {
		return err
	}
	genesis, err := cfg.Allocations()
	if err != nil {
		return err
	}

	stores, err := store.CreateStores(&cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer stores.MustClose()

	ld, err := ledger.New(stores, ledger.Options{
		Policy:   policy,
		Operator: types.Address(cfg.Operator),
		Salt:     salt,
		Genesis:  genesis,
	})
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	if err := ld.CheckCustody(); err != nil {
		logx.Error("CMD", "Custody check failed on startup: ", err)
	}

	srv := jsonrpc.NewServer(cfg.ListenAddr, ld)
	if cors, ok := jsonrpc.CORSFromEnv(); ok {
		srv.SetCORSConfig(cors)
	}
	if err := srv.Start(); err != nil {
		return err
	}
	logx.Info("CMD", fmt.Sprintf("Node running | instance=%s | operator=%s | listen=%s | storage=%s",
		ld.Instance(), ld.Operator(), cfg.ListenAddr, cfg.Storage.Type))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("CMD", "Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
