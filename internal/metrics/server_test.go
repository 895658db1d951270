package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServer_Routes(t *testing.T) {
	s, err := NewServer(ServerConfig{
		ListenAddr: "127.0.0.1:0",
		Status:     func() any { return map[string]int{"claimed": 3} },
	})
	require.NoError(t, err)
	AttemptsTotal.WithLabelValues("claim", "success").Inc()

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]int
	require.NoError(t, decodeJSON(resp, &body))
	require.Equal(t, 3, body["claimed"])

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerConfig_Validate(t *testing.T) {
	cfg := ServerConfig{}
	require.Error(t, cfg.Validate())
}

func decodeJSON(resp *http.Response, out any) error {
	return json.NewDecoder(resp.Body).Decode(out)
}
