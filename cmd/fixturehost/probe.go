package main

import (
	"context"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/benaskins/fixturehost/internal/health"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check both listeners of a running instance",
	Long: "Request GET / on the plaintext and TLS listeners and verify each reports its own port.\n" +
		"The configured certificate is trusted as its own CA unless --insecure is set.",
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	f := probeCmd.Flags()
	f.String("host", "localhost", "Host the instance is reachable at")
	f.Bool("insecure", false, "Skip TLS certificate verification")
	f.Duration("timeout", 5*time.Second, "Per-request timeout")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	host, _ := cmd.Flags().GetString("host")
	insecure, _ := cmd.Flags().GetBool("insecure")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var roots *x509.CertPool
	if !insecure {
		pem, err := os.ReadFile(cfg.CertFile)
		if err != nil {
			return fmt.Errorf("reading certificate for verification: %w (use --insecure to skip)", err)
		}
		roots = x509.NewCertPool()
		if !roots.AppendCertsFromPEM(pem) {
			return fmt.Errorf("no certificates found in %s", cfg.CertFile)
		}
	}

	ctx := context.Background()
	results := []health.Result{
		health.Probe(ctx, health.Config{
			Name:    "http",
			URL:     listenerURL("http", host, cfg.HTTPPort),
			Timeout: timeout,
		}),
		health.Probe(ctx, health.Config{
			Name:     "https",
			URL:      listenerURL("https", host, cfg.HTTPSPort),
			Timeout:  timeout,
			RootCAs:  roots,
			Insecure: insecure,
		}),
	}

	var failed int
	for _, r := range results {
		if r.Status != health.StatusHealthy {
			failed++
		}
	}

	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Status == health.StatusHealthy {
				line := fmt.Sprintf("OK    %-6s %s domain=%s port=%d", r.Name, r.URL, r.Info.Domain, r.Info.Port)
				if r.TLSVersion != "" {
					line += " " + r.TLSVersion
				}
				fmt.Println(line)
			} else {
				fmt.Fprintf(os.Stderr, "FAIL  %-6s %s\n      %s\n", r.Name, r.URL, r.Message)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d listener(s) unhealthy", failed)
	}
	return nil
}

// listenerURL builds the base URL for one listener. IPv6 hosts are bracketed.
func listenerURL(scheme, host string, port int) string {
	u := url.URL{Scheme: scheme, Host: net.JoinHostPort(host, strconv.Itoa(port))}
	return u.String()
}
