package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Fragment-Software/grass-claimer/internal/metrics"
	"github.com/Fragment-Software/grass-claimer/offchain/runner"
	"github.com/Fragment-Software/grass-claimer/offchain/wallets"
)

var errStoreNotEmpty = errors.New("wallet store is not empty")

func newInitCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Build the wallet store from the key, proxy and cex address files in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			existing, err := a.store.Records(ctx)
			if err != nil {
				return err
			}
			if len(existing) > 0 && !force {
				return fmt.Errorf("%w: %d records in %s (use --force to overwrite)", errStoreNotEmpty, len(existing), a.cfg.WalletStorePath)
			}

			records, err := wallets.Import(a.cfg.DataDir, a.cfg.WithdrawToCex)
			if err != nil {
				return err
			}
			if err := a.store.Replace(ctx, records); err != nil {
				return err
			}
			a.log.Info("init: wallet store written", "records", len(records), "path", a.cfg.WalletStorePath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite a non-empty wallet store")
	return cmd
}

func newModeCmd(opts *rootOptions, mode runner.Mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return a.runMode(ctx, mode)
		},
	}
}

func (a *app) runMode(ctx context.Context, mode runner.Mode) error {
	r, err := a.newRunner(mode)
	if err != nil {
		return err
	}
	flush, err := initSentry(a.cfg.SentryDSN)
	if err != nil {
		return err
	}
	defer flush()

	metrics.BuildInfo.WithLabelValues(version).Set(1)

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	if a.cfg.MetricsAddr != "" {
		srv, err := metrics.NewServer(metrics.ServerConfig{
			Logger:     a.log,
			ListenAddr: a.cfg.MetricsAddr,
			Status:     a.status,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Run(runCtx) })
	}

	var report runner.Report
	g.Go(func() error {
		defer stop()
		var err error
		report, err = r.Run(runCtx, mode)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if report.Failed > 0 {
		a.log.Warn("some wallets failed and stay pending", "mode", string(mode), "failed", report.Failed)
	}
	return nil
}

func (a *app) status() any {
	records, err := a.store.Records(context.Background())
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	return wallets.Summarize(records)
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print per-mode completion counts from the wallet store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.store.Records(cmd.Context())
			if err != nil {
				return err
			}
			s := wallets.Summarize(records)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wallets:    %d\n", s.Total)
			fmt.Fprintf(out, "claimed:    %d\n", s.Claimed)
			fmt.Fprintf(out, "closed ata: %d\n", s.ClosedATA)
			fmt.Fprintf(out, "collected:  %d\n", s.Collected)
			fmt.Fprintf(out, "allocation: %s GRASS\n", s.Allocation.String())
			return nil
		},
	}
}
