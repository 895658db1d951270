package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Fragment-Software/grass-claimer/internal/config"
	"github.com/Fragment-Software/grass-claimer/offchain/runner"
)

var version = "dev"

type rootOptions struct {
	configPath string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "grass-claimer",
		Short:         "Claims the GRASS airdrop for a set of Solana wallets and sweeps what is left",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	bindRootFlags(root.PersistentFlags(), opts)

	root.AddCommand(newInitCmd(opts))
	for _, m := range []struct {
		mode  runner.Mode
		short string
	}{
		{runner.ModeClaim, "Claim the airdrop for every unclaimed wallet"},
		{runner.ModeClose, "Close empty GRASS token accounts and reclaim their rent"},
		{runner.ModeCollect, "Sweep wallet SOL to the collector"},
		{runner.ModeCollectClose, "Forward leftover GRASS, close token accounts and sweep SOL in one transaction"},
	} {
		root.AddCommand(newModeCmd(opts, m.mode, m.short))
	}
	root.AddCommand(newStatusCmd(opts))
	return root
}

func bindRootFlags(fs *pflag.FlagSet, opts *rootOptions) {
	fs.StringVar(&opts.configPath, "config", config.DefaultPath, "path to the TOML config; created with defaults when missing")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
}
