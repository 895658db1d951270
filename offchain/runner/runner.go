// Package runner drives one mode across the wallet store: it picks unfinished
// wallets in random order, plans and submits each one, and records the result.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Fragment-Software/grass-claimer/internal/metrics"
	"github.com/Fragment-Software/grass-claimer/offchain/airdrop"
	"github.com/Fragment-Software/grass-claimer/offchain/grassapi"
	"github.com/Fragment-Software/grass-claimer/offchain/netproxy"
	"github.com/Fragment-Software/grass-claimer/offchain/planner"
	"github.com/Fragment-Software/grass-claimer/offchain/solana"
	"github.com/Fragment-Software/grass-claimer/offchain/solanarpc"
	"github.com/Fragment-Software/grass-claimer/offchain/submit"
	"github.com/Fragment-Software/grass-claimer/offchain/wallets"
)

const (
	OutcomeSuccess = "success"
	OutcomeSettled = "settled"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

var ErrInvalidWallets = errors.New("invalid wallet records")

type Planner interface {
	Claim(ctx context.Context, req planner.ClaimRequest) (planner.Plan, error)
	Close(ctx context.Context, wallet solana.Keypair) (planner.Plan, error)
	Collect(ctx context.Context, wallet solana.Keypair) (planner.Plan, error)
	CollectAndClose(ctx context.Context, wallet solana.Keypair) (planner.Plan, error)
}

type Blockhashes interface {
	LatestBlockhash(ctx context.Context) (solanarpc.Blockhash, error)
}

type IPRotator interface {
	Swap(ctx context.Context) error
}

type Config struct {
	Logger      *slog.Logger
	Store       wallets.Store
	Planner     Planner
	Submitter   submit.Submitter
	Blockhashes Blockhashes
	Receipts    *grassapi.Client

	// Rotator, when set, is triggered before every receipt request.
	Rotator IPRotator
	// HTTPClient builds the client for a wallet's proxy.
	HTTPClient func(proxy string) (*http.Client, error)

	RequireCex bool
	SleepMin   time.Duration
	SleepMax   time.Duration
	Clock      clockwork.Clock
	Rand       *rand.Rand

	// OnFailure observes every failed attempt.
	OnFailure func(mode Mode, wallet string, err error)
}

func (c *Config) Validate() error {
	switch {
	case c.Store == nil:
		return errors.New("runner: store required")
	case c.Planner == nil:
		return errors.New("runner: planner required")
	case c.Submitter == nil:
		return errors.New("runner: submitter required")
	case c.Blockhashes == nil:
		return errors.New("runner: blockhash source required")
	case c.SleepMin < 0 || c.SleepMax < c.SleepMin:
		return fmt.Errorf("runner: invalid sleep range [%s, %s]", c.SleepMin, c.SleepMax)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = func(proxy string) (*http.Client, error) { return netproxy.HTTPClient(proxy, 0) }
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return nil
}

type Runner struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{log: cfg.Logger, cfg: cfg}, nil
}

// Report tallies one pass.
type Report struct {
	Attempts  int
	Succeeded int
	Settled   int
	Skipped   int
	Failed    int
}

func (r *Report) add(outcome string) {
	r.Attempts++
	switch outcome {
	case OutcomeSuccess:
		r.Succeeded++
	case OutcomeSettled:
		r.Settled++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

// Run makes one pass over the wallets still pending for mode. Each wallet is
// attempted at most once; failed and skipped wallets stay pending for the
// next run.
func (r *Runner) Run(ctx context.Context, mode Mode) (Report, error) {
	log := r.log.With("run_id", uuid.NewString(), "mode", string(mode))

	records, err := r.cfg.Store.Records(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load wallets: %w", err)
	}
	var pending []int
	for i, rec := range records {
		if mode.Pending(rec) {
			pending = append(pending, i)
		}
	}
	if err := r.validate(mode, records, pending); err != nil {
		return Report{}, err
	}
	r.cfg.Rand.Shuffle(len(pending), func(i, j int) { pending[i], pending[j] = pending[j], pending[i] })

	gauge := metrics.PendingWallets.WithLabelValues(string(mode))
	gauge.Set(float64(len(pending)))
	log.Info("runner: starting pass", "pending", len(pending), "total", len(records))

	var report Report
	for n, idx := range pending {
		if n > 0 {
			if err := r.sleep(ctx); err != nil {
				return report, err
			}
		}

		rec := records[idx]
		wlog := log.With("wallet", rec.Address)
		start := r.cfg.Clock.Now()
		outcome, err := r.attempt(ctx, wlog, mode, &rec)
		metrics.AttemptDuration.WithLabelValues(string(mode)).Observe(r.cfg.Clock.Since(start).Seconds())
		metrics.AttemptsTotal.WithLabelValues(string(mode), outcome).Inc()
		report.add(outcome)

		switch outcome {
		case OutcomeSuccess, OutcomeSettled:
			mode.MarkDone(&rec)
			if err := r.cfg.Store.Save(ctx, rec); err != nil {
				return report, fmt.Errorf("save wallet %s: %w", rec.Address, err)
			}
			records[idx] = rec
			gauge.Dec()
		case OutcomeSkipped:
			wlog.Warn("runner: skipped", "reason", err)
		case OutcomeFailed:
			wlog.Error("runner: attempt failed", "err", err)
			if r.cfg.OnFailure != nil {
				r.cfg.OnFailure(mode, rec.Address, err)
			}
		}
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
	}

	log.Info("runner: pass complete",
		"attempts", report.Attempts,
		"succeeded", report.Succeeded,
		"settled", report.Settled,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}

// validate rejects key material or addresses no attempt could use.
func (r *Runner) validate(mode Mode, records []wallets.Record, pending []int) error {
	var errs []error
	for _, idx := range pending {
		rec := records[idx]
		if _, err := rec.Keypair(); err != nil {
			errs = append(errs, err)
			continue
		}
		cex, err := rec.Cex()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if mode == ModeClaim && r.cfg.RequireCex && cex.IsZero() {
			errs = append(errs, fmt.Errorf("%w: %s: cex address missing", wallets.ErrInvalidRecord, rec.Address))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidWallets, errors.Join(errs...))
	}
	return nil
}

func (r *Runner) attempt(ctx context.Context, log *slog.Logger, mode Mode, rec *wallets.Record) (string, error) {
	kp, err := rec.Keypair()
	if err != nil {
		return OutcomeFailed, err
	}
	hc, err := r.cfg.HTTPClient(rec.Proxy)
	if err != nil {
		return OutcomeFailed, err
	}
	log.Info("runner: processing wallet")

	plan, err := r.plan(ctx, log, mode, rec, kp, hc)
	switch {
	case errors.Is(err, planner.ErrSkipped):
		return OutcomeSkipped, err
	case err != nil:
		return OutcomeFailed, err
	case plan.Settled():
		log.Info("runner: nothing to do")
		return OutcomeSettled, nil
	}

	bh, err := r.cfg.Blockhashes.LatestBlockhash(ctx)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("latest blockhash: %w", err)
	}
	tx, err := submit.NewTransaction(bh, plan.FeePayer, plan.Signers, plan.Instructions)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("build transaction: %w", err)
	}
	log.Info("runner: submitting", "signature", tx.Signature, "instructions", len(plan.Instructions))

	res, err := submit.ForWallet(r.cfg.Submitter, hc).Submit(ctx, tx)
	if err != nil {
		return OutcomeFailed, err
	}
	log.Info("runner: landed", "signature", res.Signature, "bundle_id", res.BundleID)
	return OutcomeSuccess, nil
}

func (r *Runner) plan(ctx context.Context, log *slog.Logger, mode Mode, rec *wallets.Record, kp solana.Keypair, hc *http.Client) (planner.Plan, error) {
	switch mode {
	case ModeClaim:
		if r.cfg.Rotator != nil {
			log.Info("runner: rotating ip")
			if err := r.cfg.Rotator.Swap(ctx); err != nil {
				return planner.Plan{}, err
			}
		}
		claim, err := r.cfg.Receipts.WithHTTPClient(hc).FetchClaim(ctx, rec.Address)
		if err != nil {
			return planner.Plan{}, err
		}
		rec.Allocation = airdrop.UIAmount(claim.Allocation)
		log.Info("runner: receipt", "allocation", rec.Allocation.String(), "version", claim.Version, "proof_nodes", len(claim.Proof))

		cex, err := rec.Cex()
		if err != nil {
			return planner.Plan{}, err
		}
		return r.cfg.Planner.Claim(ctx, planner.ClaimRequest{Wallet: kp, Claim: claim, Cex: cex})
	case ModeClose:
		return r.cfg.Planner.Close(ctx, kp)
	case ModeCollect:
		return r.cfg.Planner.Collect(ctx, kp)
	case ModeCollectClose:
		return r.cfg.Planner.CollectAndClose(ctx, kp)
	}
	return planner.Plan{}, fmt.Errorf("unknown mode %q", mode)
}

func (r *Runner) sleep(ctx context.Context) error {
	d := r.cfg.SleepMin
	if span := r.cfg.SleepMax - r.cfg.SleepMin; span > 0 {
		d += time.Duration(r.cfg.Rand.Int64N(int64(span) + 1))
	}
	if d <= 0 {
		return ctx.Err()
	}
	r.log.Debug("runner: sleeping", "duration", d)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.cfg.Clock.After(d):
		return nil
	}
}
