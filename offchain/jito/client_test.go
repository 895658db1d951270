package jito

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayRequest struct {
	JSONRPC string  `json:"jsonrpc"`
	Method  string  `json:"method"`
	Params  [][]any `json:"params"`
}

func newRelay(t *testing.T, handle func(req relayRequest) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, BundlePath, r.URL.Path)
		var req relayRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "2.0", req.JSONRPC)
		_, _ = w.Write([]byte(handle(req)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func statusBody(status string) string {
	return `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":10},"value":[{"bundle_id":"b1","transactions":["s"],"slot":9,"confirmation_status":"` + status + `","err":{"Ok":null}}]}}`
}

func TestSendBundle_EncodesBase58(t *testing.T) {
	tx := []byte{1, 2, 3, 4, 5}
	srv := newRelay(t, func(req relayRequest) string {
		assert.Equal(t, "sendBundle", req.Method)
		if assert.Len(t, req.Params, 1) && assert.Len(t, req.Params[0], 1) {
			assert.Equal(t, base58.Encode(tx), req.Params[0][0])
		}
		return `{"jsonrpc":"2.0","id":1,"result":"bundle-123"}`
	})

	c, err := New(Config{BlockEngineURL: srv.URL + "/"})
	require.NoError(t, err)
	id, err := c.SendBundle(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, "bundle-123", id)
}

func TestSendBundle_RelayError(t *testing.T) {
	srv := newRelay(t, func(relayRequest) string {
		return `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"bundle contains an expired blockhash"}}`
	})
	c, err := New(Config{BlockEngineURL: srv.URL})
	require.NoError(t, err)
	_, err = c.SendBundle(context.Background(), []byte{1})
	require.ErrorIs(t, err, ErrRelayError)
}

func TestConfirmBundle_Finalized(t *testing.T) {
	var polls atomic.Int32
	srv := newRelay(t, func(req relayRequest) string {
		assert.Equal(t, "getBundleStatuses", req.Method)
		switch polls.Add(1) {
		case 1:
			return `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[null]}}`
		case 2:
			return statusBody("confirmed")
		default:
			return statusBody("finalized")
		}
	})

	clock := clockwork.NewFakeClock()
	c, err := New(Config{BlockEngineURL: srv.URL, Clock: clock})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- c.ConfirmBundle(ctx, "b1") }()

	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 2))
		clock.Advance(DefaultPollInterval)
	}
	require.NoError(t, <-errCh)
	require.Equal(t, int32(3), polls.Load())
}

func TestConfirmBundle_TimesOutWhenNeverFinalized(t *testing.T) {
	var polls atomic.Int32
	srv := newRelay(t, func(relayRequest) string {
		polls.Add(1)
		return statusBody("confirmed")
	})

	clock := clockwork.NewFakeClock()
	start := clock.Now()
	c, err := New(Config{
		BlockEngineURL: srv.URL,
		Clock:          clock,
		PollInterval:   5 * time.Second,
		Timeout:        100 * time.Second,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- c.ConfirmBundle(ctx, "b1") }()

	for i := 0; i < 20; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 2))
		clock.Advance(5 * time.Second)
	}

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrBundleTimeout)
	case <-ctx.Done():
		t.Fatal("ConfirmBundle did not return after the timeout elapsed")
	}
	require.Equal(t, 100*time.Second, clock.Since(start))
	require.GreaterOrEqual(t, polls.Load(), int32(20))
	require.LessOrEqual(t, polls.Load(), int32(21))
}

func TestConfirmBundle_HTTPErrorEndsWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(Config{BlockEngineURL: srv.URL, Clock: clockwork.NewFakeClock()})
	require.NoError(t, err)
	err = c.ConfirmBundle(context.Background(), "b1")
	require.ErrorIs(t, err, ErrRelayError)
	require.NotErrorIs(t, err, ErrBundleTimeout)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	require.ErrorIs(t, cfg.Validate(), ErrMissingBlockEngineURL)

	cfg = Config{BlockEngineURL: " https://mainnet.block-engine.jito.wtf/ "}
	require.NoError(t, cfg.Validate())
	require.Equal(t, "https://mainnet.block-engine.jito.wtf", cfg.BlockEngineURL)
	require.Equal(t, DefaultPollInterval, cfg.PollInterval)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.NotNil(t, cfg.Clock)
}

func TestBundleStatus_CamelCase(t *testing.T) {
	srv := newRelay(t, func(relayRequest) string {
		return `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[{"bundle_id":"b1","confirmationStatus":"processed"}]}}`
	})
	c, err := New(Config{BlockEngineURL: srv.URL})
	require.NoError(t, err)
	st, err := c.BundleStatus(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, StatusProcessed, st.ConfirmationStatus())
}
