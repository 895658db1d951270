package submit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fragment-Software/grass-claimer/offchain/jito"
	"github.com/Fragment-Software/grass-claimer/offchain/solana"
	"github.com/Fragment-Software/grass-claimer/offchain/solanarpc"
)

func newRelay(t *testing.T, tx []byte, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var req struct {
			Method string  `json:"method"`
			Params [][]any `json:"params"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch req.Method {
		case "sendBundle":
			assert.Equal(t, base58.Encode(tx), req.Params[0][0])
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"bundle-7"}`))
		case "getBundleStatuses":
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[{"bundle_id":"bundle-7","confirmation_status":"finalized"}]}}`))
		default:
			t.Errorf("unexpected method %q", req.Method)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBundle_SubmitFinalized(t *testing.T) {
	tx := []byte{9, 8, 7}
	var hits atomic.Int32
	srv := newRelay(t, tx, &hits)

	relay, err := jito.New(jito.Config{BlockEngineURL: srv.URL})
	require.NoError(t, err)

	b := NewBundle(relay)
	require.Equal(t, StrategyBundle, b.Strategy())
	res, err := b.Submit(context.Background(), Transaction{Raw: tx, Signature: "sig"})
	require.NoError(t, err)
	require.Equal(t, "bundle-7", res.BundleID)
	require.Equal(t, "sig", res.Signature)
	require.EqualValues(t, 2, hits.Load())
}

func TestForWallet_RoutesBundleThroughClient(t *testing.T) {
	tx := []byte{1}
	var hits atomic.Int32
	srv := newRelay(t, tx, &hits)

	// The relay URL is unreachable; only the proxy (the test server itself)
	// can answer.
	relay, err := jito.New(jito.Config{BlockEngineURL: "http://relay.invalid"})
	require.NoError(t, err)
	proxyURL, err := url.Parse(srv.URL)
	require.NoError(t, err)
	hc := &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)}}

	s := ForWallet(NewBundle(relay), hc)
	_, err = s.Submit(context.Background(), Transaction{Raw: tx})
	require.NoError(t, err)
	require.EqualValues(t, 2, hits.Load())
}

func TestForWallet_DirectUnchanged(t *testing.T) {
	d, err := NewDirect(DirectConfig{Node: &fakeNode{}})
	require.NoError(t, err)
	require.Same(t, Submitter(d), ForWallet(d, http.DefaultClient))
}

func TestNewTransaction_RecordsSignature(t *testing.T) {
	kp, err := solana.NewKeypairFromSeed(make([]byte, 32))
	require.NoError(t, err)
	bh := solanarpc.Blockhash{Hash: [32]byte{1}, LastValidBlockHeight: 10}

	tx, err := NewTransaction(bh, kp.PublicKey(), []solana.Keypair{kp}, []solana.Instruction{
		solana.SystemTransfer(kp.PublicKey(), solana.SystemProgramID, 1),
	})
	require.NoError(t, err)
	require.Equal(t, bh, tx.Blockhash)
	want, err := solana.TransactionSignature(tx.Raw)
	require.NoError(t, err)
	require.Equal(t, want, tx.Signature)
}
