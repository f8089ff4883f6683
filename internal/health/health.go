// Package health probes the diagnostic endpoint of a running instance.
package health

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/benaskins/fixturehost/internal/api"
	"github.com/benaskins/fixturehost/internal/certs"
)

// Status represents the outcome of a probe.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Config describes one listener to probe.
type Config struct {
	Name    string        // "http" | "https"
	URL     string        // base URL, e.g. https://localhost:8001
	Timeout time.Duration // max time for the request
	RootCAs *x509.CertPool
	// Insecure skips certificate verification, for self-signed certs
	// that are not in RootCAs.
	Insecure bool
}

// Result is the outcome of probing one listener.
type Result struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Status     Status    `json:"status"`
	Info       *api.Info `json:"info,omitempty"`
	TLSVersion string    `json:"tls_version,omitempty"`
	Message    string    `json:"message"`
}

// Probe fetches GET / from cfg.URL and checks that the reported port is the
// one the request was sent to.
func Probe(ctx context.Context, cfg Config) Result {
	res := Result{Name: cfg.Name, URL: cfg.URL, Status: StatusUnhealthy}

	info, state, err := fetchInfo(ctx, cfg)
	if state != nil {
		res.TLSVersion = certs.VersionName(state.Version)
	}
	if err != nil {
		res.Message = err.Error()
		return res
	}
	res.Info = info

	want, err := expectedPort(cfg.URL)
	if err != nil {
		res.Message = err.Error()
		return res
	}
	if info.Port != want {
		res.Message = fmt.Sprintf("reported port %d, want %d", info.Port, want)
		return res
	}

	res.Status = StatusHealthy
	res.Message = "ok"
	return res
}

func fetchInfo(ctx context.Context, cfg Config) (*api.Info, *tls.ConnectionState, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", cfg.URL+"/", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs:            cfg.RootCAs,
				InsecureSkipVerify: cfg.Insecure,
			},
		},
	}
	defer client.CloseIdleConnections()

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.TLS, fmt.Errorf("unhealthy status: %d", resp.StatusCode)
	}

	var info api.Info
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&info); err != nil {
		return nil, resp.TLS, fmt.Errorf("decoding response: %w", err)
	}
	return &info, resp.TLS, nil
}

func expectedPort(rawURL string) (int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", rawURL, err)
	}
	p := u.Port()
	if p == "" {
		switch u.Scheme {
		case "https":
			return 443, nil
		default:
			return 80, nil
		}
	}
	return strconv.Atoi(p)
}
