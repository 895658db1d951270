package solanarpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Fragment-Software/grass-claimer/offchain/solana"
)

type rpcHandler func(method string, params []any) string

func newRPCServer(t *testing.T, h rpcHandler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(h(req.Method, req.Params)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_AccountData(t *testing.T) {
	srv := newRPCServer(t, func(method string, params []any) string {
		if method != "getAccountInfo" {
			t.Errorf("method=%q", method)
		}
		cfg, _ := params[1].(map[string]any)
		if cfg["encoding"] != "base64" || cfg["commitment"] != "processed" {
			t.Errorf("cfg=%v", cfg)
		}
		if params[0] == solana.SystemProgramID.Base58() {
			return `{"jsonrpc":"2.0","id":"1","result":{"context":{"slot":1},"value":null}}`
		}
		return `{"jsonrpc":"2.0","id":"1","result":{"context":{"slot":1},"value":{"data":["YWJj","base64"],"lamports":1}}}`
	})

	c := New(srv.URL, nil)
	got, err := c.AccountData(context.Background(), solana.TokenProgramID)
	if err != nil {
		t.Fatalf("AccountData: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("data=%q, want abc", got)
	}

	_, err = c.AccountData(context.Background(), solana.SystemProgramID)
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}

	exists, err := c.AccountExists(context.Background(), solana.SystemProgramID)
	if err != nil || exists {
		t.Fatalf("exists=%v err=%v", exists, err)
	}
}

func TestClient_AccountExists_PropagatesOtherErrors(t *testing.T) {
	srv := newRPCServer(t, func(string, []any) string {
		return `{"jsonrpc":"2.0","id":"1","error":{"code":-32602,"message":"Invalid param"}}`
	})
	c := New(srv.URL, nil)
	_, err := c.AccountExists(context.Background(), solana.TokenProgramID)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32602 {
		t.Fatalf("want RPCError -32602, got %v", err)
	}
	if !errors.Is(err, ErrRPCError) {
		t.Fatalf("want ErrRPCError in chain")
	}
}

func TestClient_LatestBlockhash(t *testing.T) {
	want := solana.TokenProgramID
	srv := newRPCServer(t, func(method string, params []any) string {
		if method != "getLatestBlockhash" {
			t.Errorf("method=%q", method)
		}
		cfg, _ := params[0].(map[string]any)
		if cfg["commitment"] != "finalized" {
			t.Errorf("commitment=%v", cfg["commitment"])
		}
		return `{"jsonrpc":"2.0","id":"1","result":{"context":{"slot":9},"value":{"blockhash":"` + want.Base58() + `","lastValidBlockHeight":777}}}`
	})

	got, err := New(srv.URL, nil).LatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("LatestBlockhash: %v", err)
	}
	if got.Hash != want || got.LastValidBlockHeight != 777 {
		t.Fatalf("got %+v", got)
	}
}

func TestClient_TokenAccountBalance(t *testing.T) {
	srv := newRPCServer(t, func(method string, _ []any) string {
		if method != "getTokenAccountBalance" {
			t.Errorf("method=%q", method)
		}
		return `{"jsonrpc":"2.0","id":"1","result":{"context":{"slot":1},"value":{"amount":"1250000000","decimals":9,"uiAmount":1.25,"uiAmountString":"1.25"}}}`
	})
	got, err := New(srv.URL, nil).TokenAccountBalance(context.Background(), solana.TokenProgramID)
	if err != nil {
		t.Fatalf("TokenAccountBalance: %v", err)
	}
	if got.Amount != 1_250_000_000 || got.Decimals != 9 {
		t.Fatalf("got %+v", got)
	}
}

func TestClient_SignatureStatuses(t *testing.T) {
	srv := newRPCServer(t, func(method string, params []any) string {
		if method != "getSignatureStatuses" {
			t.Errorf("method=%q", method)
		}
		return `{"jsonrpc":"2.0","id":"1","result":{"context":{"slot":1},"value":[null,{"slot":5,"confirmations":null,"err":null,"confirmationStatus":"finalized"}]}}`
	})
	got, err := New(srv.URL, nil).SignatureStatuses(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("SignatureStatuses: %v", err)
	}
	if got[0] != nil {
		t.Fatalf("first status should be nil")
	}
	if got[1] == nil || got[1].ConfirmationStatus != CommitmentFinalized || got[1].Slot != 5 {
		t.Fatalf("second status=%+v", got[1])
	}
}

func TestClient_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":{"context":{"slot":1},"value":42}}`))
	}))
	defer srv.Close()

	got, err := New(srv.URL, nil).BalanceLamports(context.Background(), solana.SystemProgramID)
	if err != nil {
		t.Fatalf("BalanceLamports: %v", err)
	}
	if got != 42 {
		t.Fatalf("balance=%d, want 42", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls=%d, want 2", calls.Load())
	}
}

func TestClient_MissingURL(t *testing.T) {
	_, err := New("  ", nil).MinimumBalanceForRentExemption(context.Background(), 165)
	if !errors.Is(err, ErrMissingRPCURL) {
		t.Fatalf("want ErrMissingRPCURL, got %v", err)
	}
}
