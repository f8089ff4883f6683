package main

import (
	"fmt"
	"os"
	"time"

	"github.com/benaskins/fixturehost/internal/certs"
	"github.com/benaskins/fixturehost/internal/config"
	"github.com/benaskins/fixturehost/internal/port"
	"github.com/spf13/cobra"
)

type checkResult struct {
	Name   string `json:"name"`
	Detail string `json:"detail,omitempty"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate config, certificate and ports without serving",
	Long:  "Check that the config is valid, the static dir exists, the TLS key pair loads, and both ports can be bound.",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	var results []checkResult
	cfg, err := loadConfig(cmd)
	if err != nil {
		results = append(results, checkResult{Name: "config", Detail: configPath, Error: err.Error()})
	} else {
		results = append(results, checkResult{Name: "config", Detail: configPath, OK: true})
		results = append(results, checkStaticDir(cfg))
		results = append(results, checkCertificate(cfg))
		for _, st := range port.Check(map[string]string{
			"http_port":  cfg.HTTPAddr(),
			"https_port": cfg.HTTPSAddr(),
		}) {
			results = append(results, checkResult{Name: st.Name, Detail: st.Addr, OK: st.Available, Error: st.Error})
		}
	}

	var failed int
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}

	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.OK {
				fmt.Printf("OK    %-12s %s\n", r.Name, r.Detail)
			} else {
				fmt.Fprintf(os.Stderr, "FAIL  %-12s %s\n      %v\n", r.Name, r.Detail, r.Error)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func checkStaticDir(cfg *config.Config) checkResult {
	r := checkResult{Name: "static_dir", Detail: cfg.StaticDir}
	info, err := os.Stat(cfg.StaticDir)
	switch {
	case os.IsNotExist(err):
		// serve creates it on startup
		r.OK = true
		r.Detail += " (will be created)"
	case err != nil:
		r.Error = err.Error()
	case !info.IsDir():
		r.Error = "not a directory"
	default:
		r.OK = true
	}
	return r
}

func checkCertificate(cfg *config.Config) checkResult {
	r := checkResult{Name: "certificate", Detail: cfg.CertFile}
	_, info, err := certs.Load(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	if info.Expired(time.Now()) {
		r.Error = fmt.Sprintf("expired at %s", info.NotAfter.Format(time.RFC3339))
		return r
	}
	r.OK = true
	r.Detail = fmt.Sprintf("%s (%s, expires %s)", cfg.CertFile, info.Subject, info.NotAfter.Format("2006-01-02"))
	return r
}
