// Package netproxy builds the per-wallet HTTP clients used for off-chain
// traffic and rotates mobile proxy exit addresses.
package netproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultTimeout = 30 * time.Second

var (
	ErrInvalidProxy = errors.New("invalid proxy")
	ErrSwapFailed   = errors.New("ip swap failed")
)

// ParseProxy accepts a proxy URL. A value without a scheme is taken as http.
func ParseProxy(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidProxy)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}
	if u.Host == "" || u.Port() == "" {
		return nil, fmt.Errorf("%w: missing host or port in %q", ErrInvalidProxy, u.Redacted())
	}
	return u, nil
}

// HTTPClient returns a client routed through proxy, or a direct client when
// proxy is empty.
func HTTPClient(proxy string, timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if strings.TrimSpace(proxy) != "" {
		u, err := ParseProxy(proxy)
		if err != nil {
			return nil, err
		}
		tr.Proxy = http.ProxyURL(u)
	}
	return &http.Client{Timeout: timeout, Transport: tr}, nil
}

// Rotator triggers the provider link that assigns a mobile proxy a new exit IP.
type Rotator struct {
	Log  *slog.Logger
	Link string
	HTTP *http.Client
}

func (r *Rotator) Swap(ctx context.Context) error {
	link := strings.TrimSpace(r.Link)
	if link == "" {
		return fmt.Errorf("%w: empty link", ErrSwapFailed)
	}
	hc := r.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	log := r.Log
	if log == nil {
		log = slog.Default()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSwapFailed, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: http %d: %s", ErrSwapFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	log.Info("netproxy: ip swapped", "response", strings.TrimSpace(string(body)))
	return nil
}
