package main

import (
	"fmt"
	"time"

	"github.com/benaskins/fixturehost/internal/certs"
	"github.com/benaskins/fixturehost/internal/config"
	"github.com/spf13/cobra"
)

var gencertCmd = &cobra.Command{
	Use:   "gencert",
	Short: "Write a self-signed certificate and key for the TLS listener",
	Long:  "Generate a self-signed ECDSA certificate and private key as PEM files. Existing files are kept unless --force is given.",
	Args:  cobra.NoArgs,
	RunE:  runGencert,
}

func init() {
	f := gencertCmd.Flags()
	f.String("cert", "", "Certificate output path (default from config, cert.pem)")
	f.String("key", "", "Private key output path (default from config, key.pem)")
	f.StringSlice("host", certs.DefaultHosts, "DNS names and IPs the certificate covers")
	f.Duration("valid-for", 365*24*time.Hour, "Certificate lifetime")
	f.Bool("force", false, "Overwrite existing files")
	rootCmd.AddCommand(gencertCmd)
}

func runGencert(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	certFile, _ := cmd.Flags().GetString("cert")
	keyFile, _ := cmd.Flags().GetString("key")
	if certFile == "" {
		certFile = cfg.CertFile
	}
	if keyFile == "" {
		keyFile = cfg.KeyFile
	}
	hosts, _ := cmd.Flags().GetStringSlice("host")
	validFor, _ := cmd.Flags().GetDuration("valid-for")
	force, _ := cmd.Flags().GetBool("force")

	if err := certs.WriteFiles(certFile, keyFile, force, certs.Options{Hosts: hosts, ValidFor: validFor}); err != nil {
		return fmt.Errorf("generating certificate: %w", err)
	}

	fmt.Printf("Wrote %s and %s for %v\n", certFile, keyFile, hosts)
	return nil
}
