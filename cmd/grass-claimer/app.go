package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"golang.org/x/time/rate"

	"github.com/Fragment-Software/grass-claimer/internal/config"
	"github.com/Fragment-Software/grass-claimer/internal/logger"
	"github.com/Fragment-Software/grass-claimer/offchain/grassapi"
	"github.com/Fragment-Software/grass-claimer/offchain/helius"
	"github.com/Fragment-Software/grass-claimer/offchain/jito"
	"github.com/Fragment-Software/grass-claimer/offchain/netproxy"
	"github.com/Fragment-Software/grass-claimer/offchain/planner"
	"github.com/Fragment-Software/grass-claimer/offchain/runner"
	"github.com/Fragment-Software/grass-claimer/offchain/solana"
	"github.com/Fragment-Software/grass-claimer/offchain/solanafees"
	"github.com/Fragment-Software/grass-claimer/offchain/solanarpc"
	"github.com/Fragment-Software/grass-claimer/offchain/submit"
	"github.com/Fragment-Software/grass-claimer/offchain/wallets"
)

const relayRequestsPerSecond = 1

type app struct {
	log   *slog.Logger
	cfg   config.Config
	store wallets.Store
}

func loadApp(opts *rootOptions, logOut io.Writer) (*app, error) {
	log := logger.NewWithWriter(logOut, opts.verbose)
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	store, err := wallets.Open(cfg.WalletStore, cfg.WalletStorePath)
	if err != nil {
		return nil, err
	}
	return &app{log: log, cfg: cfg, store: store}, nil
}

func (a *app) Close() error { return a.store.Close() }

func (a *app) newRunner(mode runner.Mode) (*runner.Runner, error) {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	payer, err := cfg.ExternalFeePayer()
	if err != nil {
		return nil, err
	}
	var collector, skim solana.Pubkey
	switch mode {
	case runner.ModeCollect, runner.ModeCollectClose:
		if collector, err = cfg.Collector(); err != nil {
			return nil, err
		}
	}
	switch mode {
	case runner.ModeClose, runner.ModeCollectClose:
		if skim, err = cfg.SkimAddress(); err != nil {
			return nil, err
		}
	}

	rpc := solanarpc.New(cfg.SolanaRPCURL, nil).WithRateLimit(cfg.RPCRequestsPerSecond)
	fees := solanafees.Policy{
		ComputeUnitLimit: cfg.ComputeUnitLimit,
		ComputeUnitPrice: cfg.ComputeUnitPrice,
	}
	if cfg.AutoPriorityFee {
		fees.Estimator = helius.New(rpc)
	}

	plan, err := planner.New(planner.Config{
		Logger:        a.log,
		Chain:         rpc,
		Fees:          fees,
		ExternalPayer: payer,
		Collector:     collector,
		SkimTo:        skim,
		WithdrawToCex: cfg.WithdrawToCex,
	})
	if err != nil {
		return nil, err
	}

	sub, err := a.newSubmitter(rpc)
	if err != nil {
		return nil, err
	}

	var rotator runner.IPRotator
	if cfg.MobileProxies {
		rotator = &netproxy.Rotator{Log: a.log, Link: cfg.SwapIPLink}
	}

	return runner.New(runner.Config{
		Logger:      a.log,
		Store:       a.store,
		Planner:     plan,
		Submitter:   sub,
		Blockhashes: rpc,
		Receipts:    &grassapi.Client{ReceiptURL: cfg.ReceiptAPIURL},
		Rotator:     rotator,
		RequireCex:  cfg.WithdrawToCex,
		SleepMin:    cfg.SleepMin,
		SleepMax:    cfg.SleepMax,
		OnFailure:   reportFailure,
	})
}

func (a *app) newSubmitter(rpc *solanarpc.Client) (submit.Submitter, error) {
	if !a.cfg.UseJito {
		direct, err := submit.NewDirect(submit.DirectConfig{Logger: a.log, Node: rpc})
		if err != nil {
			return nil, err
		}
		return direct, nil
	}
	relay, err := jito.New(jito.Config{
		Logger:         a.log,
		BlockEngineURL: a.cfg.JitoBlockEngineURL,
		Limiter:        rate.NewLimiter(rate.Limit(relayRequestsPerSecond), 1),
		PollInterval:   a.cfg.JitoPollInterval,
		Timeout:        a.cfg.JitoTimeout,
	})
	if err != nil {
		return nil, err
	}
	return submit.NewBundle(relay), nil
}

func initSentry(dsn string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Release: version}); err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// reportFailure is a no-op until sentry.Init has run.
func reportFailure(mode runner.Mode, wallet string, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("mode", string(mode))
		scope.SetTag("wallet", wallet)
		sentry.CaptureException(err)
	})
}
