package airdrop

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const lamportDecimals = 9

func decimalFromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// UIAmount converts GRASS base units to whole tokens.
func UIAmount(raw uint64) decimal.Decimal {
	return decimalFromUint64(raw).Shift(-int32(TokenDecimals))
}

// SOL converts lamports to SOL.
func SOL(lamports uint64) decimal.Decimal {
	return decimalFromUint64(lamports).Shift(-lamportDecimals)
}
