package runner

import (
	"fmt"

	"github.com/Fragment-Software/grass-claimer/offchain/wallets"
)

type Mode string

const (
	ModeClaim        Mode = "claim"
	ModeClose        Mode = "close"
	ModeCollect      Mode = "collect"
	ModeCollectClose Mode = "collect-close"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeClaim, ModeClose, ModeCollect, ModeCollectClose:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Pending reports whether r still has work for the mode.
func (m Mode) Pending(r wallets.Record) bool {
	switch m {
	case ModeClaim:
		return !r.Claimed
	case ModeClose:
		return !r.ClosedATA
	case ModeCollect:
		return !r.CollectedSOL
	case ModeCollectClose:
		return !r.CollectedSOL || !r.ClosedATA
	}
	return false
}

// MarkDone sets exactly the flags the mode owns.
func (m Mode) MarkDone(r *wallets.Record) {
	switch m {
	case ModeClaim:
		r.Claimed = true
	case ModeClose:
		r.ClosedATA = true
	case ModeCollect:
		r.CollectedSOL = true
	case ModeCollectClose:
		r.ClosedATA = true
		r.CollectedSOL = true
	}
}
