package submit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Fragment-Software/grass-claimer/internal/metrics"
	"github.com/Fragment-Software/grass-claimer/offchain/jito"
)

// Bundle relays each transaction as its own bundle and waits for finalization.
type Bundle struct {
	relay *jito.Client
}

func NewBundle(relay *jito.Client) *Bundle {
	return &Bundle{relay: relay}
}

func (b *Bundle) Strategy() string { return StrategyBundle }

func (b *Bundle) Via(h *http.Client) Submitter {
	return &Bundle{relay: b.relay.WithHTTPClient(h)}
}

func (b *Bundle) Submit(ctx context.Context, tx Transaction) (Result, error) {
	id, err := b.relay.SendAndConfirm(ctx, tx.Raw)
	res := Result{Signature: tx.Signature, BundleID: id}
	if err != nil {
		result := "failed"
		if id == "" {
			result = "rejected"
		}
		metrics.SubmissionsTotal.WithLabelValues(StrategyBundle, result).Inc()
		return res, fmt.Errorf("bundle %s: %w", id, err)
	}
	metrics.SubmissionsTotal.WithLabelValues(StrategyBundle, "finalized").Inc()
	return res, nil
}
