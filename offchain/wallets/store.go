package wallets

import (
	"context"
	"errors"
	"fmt"
)

const (
	KindJSON   = "json"
	KindSQLite = "sqlite"
)

var ErrUnknownRecord = errors.New("unknown wallet record")

// Store holds the wallet set. Save persists one updated record; Replace
// rewrites the whole set.
type Store interface {
	Records(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, r Record) error
	Replace(ctx context.Context, records []Record) error
	Close() error
}

func Open(kind, path string) (Store, error) {
	switch kind {
	case KindJSON, "":
		return OpenJSON(path)
	case KindSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown wallet store %q", kind)
	}
}
