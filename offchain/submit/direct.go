package submit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Fragment-Software/grass-claimer/internal/metrics"
	"github.com/Fragment-Software/grass-claimer/offchain/solanarpc"
)

const DefaultConfirmInterval = 2 * time.Second

type Node interface {
	SendTransaction(ctx context.Context, tx []byte, skipPreflight bool) (string, error)
	SignatureStatuses(ctx context.Context, signatures []string) ([]*solanarpc.SignatureStatus, error)
	BlockHeight(ctx context.Context) (uint64, error)
}

type DirectConfig struct {
	Logger       *slog.Logger
	Node         Node
	Clock        clockwork.Clock
	PollInterval time.Duration
}

func (c *DirectConfig) Validate() error {
	if c.Node == nil {
		return fmt.Errorf("direct submitter: node required")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultConfirmInterval
	}
	return nil
}

// Direct sends with preflight and polls signature status until confirmed,
// failed, or the blockhash can no longer land.
type Direct struct {
	log *slog.Logger
	cfg DirectConfig
}

func NewDirect(cfg DirectConfig) (*Direct, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Direct{log: cfg.Logger, cfg: cfg}, nil
}

func (d *Direct) Strategy() string { return StrategyDirect }

func (d *Direct) Submit(ctx context.Context, tx Transaction) (Result, error) {
	sig, err := d.cfg.Node.SendTransaction(ctx, tx.Raw, false)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(StrategyDirect, "rejected").Inc()
		return Result{}, fmt.Errorf("send transaction: %w", err)
	}
	if sig == "" {
		sig = tx.Signature
	}
	d.log.Info("submit: transaction sent", "signature", sig)

	if err := d.confirm(ctx, sig, tx.Blockhash.LastValidBlockHeight); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(StrategyDirect, "failed").Inc()
		return Result{Signature: sig}, err
	}
	metrics.SubmissionsTotal.WithLabelValues(StrategyDirect, "confirmed").Inc()
	d.log.Info("submit: transaction confirmed", "signature", sig)
	return Result{Signature: sig}, nil
}

func (d *Direct) confirm(ctx context.Context, sig string, lastValid uint64) error {
	for {
		statuses, err := d.cfg.Node.SignatureStatuses(ctx, []string{sig})
		if err != nil {
			return fmt.Errorf("signature status %s: %w", sig, err)
		}
		if st := statuses[0]; st != nil {
			if st.Err != nil {
				return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, sig, st.Err)
			}
			switch st.ConfirmationStatus {
			case solanarpc.CommitmentConfirmed, solanarpc.CommitmentFinalized:
				return nil
			}
		}

		if lastValid > 0 {
			height, err := d.cfg.Node.BlockHeight(ctx)
			if err != nil {
				return fmt.Errorf("block height: %w", err)
			}
			if height > lastValid {
				return fmt.Errorf("%w: %s (height %d > %d)", ErrBlockhashExpired, sig, height, lastValid)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.cfg.Clock.After(d.cfg.PollInterval):
		}
	}
}
