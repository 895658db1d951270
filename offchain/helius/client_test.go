package helius

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fragment-Software/grass-claimer/offchain/solana"
	"github.com/Fragment-Software/grass-claimer/offchain/solanarpc"
)

func nodeReplying(t *testing.T, reply string) *solanarpc.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string           `json:"method"`
			Params []map[string]any `json:"params"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getPriorityFeeEstimate", req.Method)
		if assert.Len(t, req.Params, 1) {
			assert.Equal(t, []any{solana.SystemProgramID.Base58()}, req.Params[0]["accountKeys"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return solanarpc.New(srv.URL, srv.Client())
}

func TestClient_PriorityFeeEstimate(t *testing.T) {
	t.Parallel()

	node := nodeReplying(t, `{"jsonrpc":"2.0","id":"1","result":{"priorityFeeEstimate":123.4,"priorityFeeLevels":{"min":1,"medium":3}}}`)
	got, err := New(node).PriorityFeeEstimate(context.Background(), []solana.Pubkey{solana.SystemProgramID}, &PriorityFeeOptions{PriorityLevel: PriorityMedium, Recommended: true})
	require.NoError(t, err)
	require.Equal(t, uint64(124), got.MicroLamports)
	require.NotNil(t, got.Levels)
	require.Equal(t, 1.0, got.Levels.Min)
	require.Equal(t, 3.0, got.Levels.Medium)
}

func TestClient_PriorityFeeEstimate_RPCError(t *testing.T) {
	t.Parallel()

	node := nodeReplying(t, `{"jsonrpc":"2.0","id":"1","error":{"code":-32601,"message":"method not found"}}`)
	_, err := New(node).PriorityFeeEstimate(context.Background(), []solana.Pubkey{solana.SystemProgramID}, nil)
	require.ErrorIs(t, err, solanarpc.ErrRPCError)
}

func TestClient_PriorityFeeEstimate_NoAccounts(t *testing.T) {
	t.Parallel()

	_, err := New(solanarpc.New("", nil)).PriorityFeeEstimate(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrNoAccounts)
}

func TestMicroLamports(t *testing.T) {
	for in, want := range map[float64]uint64{-3: 0, 0: 0, 0.1: 1, 123.4: 124, 1e30: ^uint64(0)} {
		require.Equal(t, want, microLamports(in), "%v", in)
	}
}
