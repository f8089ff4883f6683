package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benaskins/fixturehost/internal/accesslog"
	"github.com/benaskins/fixturehost/internal/api"
	"github.com/benaskins/fixturehost/internal/certs"
	"github.com/benaskins/fixturehost/internal/config"
	"github.com/benaskins/fixturehost/internal/static"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and HTTPS listeners",
	Long: "Serve the static dir under /files/ and the diagnostic endpoint at GET / on both listeners.\n" +
		"The TLS key pair is loaded before anything is bound; a missing cert or key, or a port\n" +
		"already in use, stops startup.",
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.Int("http-port", config.DefaultHTTPPort, "Plaintext listener port")
	f.Int("https-port", config.DefaultHTTPSPort, "TLS listener port")
	f.String("bind", "", "Host to bind both listeners to (default all interfaces)")
	f.String("dir", config.DefaultStaticDir, "Directory served under /files/")
	f.String("cert", config.DefaultCertFile, "PEM certificate for the TLS listener")
	f.String("key", config.DefaultKeyFile, "PEM private key for the TLS listener")
	f.Bool("watch", false, "Log fixture files as they appear in the static dir")
	f.String("access-log", "", "Append one JSON line per request to this file")
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the config file and applies any flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	f := cmd.Flags()
	if f.Changed("http-port") {
		cfg.HTTPPort, _ = f.GetInt("http-port")
	}
	if f.Changed("https-port") {
		cfg.HTTPSPort, _ = f.GetInt("https-port")
	}
	if f.Changed("bind") {
		cfg.BindHost, _ = f.GetString("bind")
	}
	if f.Changed("dir") {
		cfg.StaticDir, _ = f.GetString("dir")
	}
	if f.Changed("cert") {
		cfg.CertFile, _ = f.GetString("cert")
	}
	if f.Changed("key") {
		cfg.KeyFile, _ = f.GetString("key")
	}
	if f.Changed("watch") {
		cfg.Watch, _ = f.GetBool("watch")
	}
	if f.Changed("access-log") {
		cfg.AccessLog, _ = f.GetString("access-log")
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		return err
	}

	slog.Info("fixturehost starting", "static_dir", cfg.StaticDir, "cert", cfg.CertFile)

	// Load the key pair before binding anything.
	tlsConfig, info, err := certs.Load(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return fmt.Errorf("loading TLS certificate: %w", err)
	}
	if info.Expired(time.Now()) {
		slog.Warn("TLS certificate has expired", "subject", info.Subject, "not_after", info.NotAfter)
	}

	if err := os.MkdirAll(cfg.StaticDir, 0755); err != nil {
		return fmt.Errorf("creating static dir: %w", err)
	}
	files, err := static.NewHandler(cfg.StaticDir)
	if err != nil {
		return err
	}
	defer files.Close()

	var handler http.Handler = api.NewHandler(config.FilesPrefix, files)
	if cfg.AccessLog != "" {
		al, err := accesslog.Open(cfg.AccessLog)
		if err != nil {
			return err
		}
		defer al.Close()
		handler = al.Middleware(handler)
	}

	srv := api.NewServer(handler, tlsConfig)
	if err := srv.Listen(cfg.HTTPAddr(), cfg.HTTPSAddr()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Watch {
		w := static.NewWatcher(files.Dir(), config.FilesPrefix, nil)
		go func() {
			if err := w.Run(ctx); err != nil {
				slog.Error("fixture watcher stopped", "error", err)
			}
		}()
	}

	slog.Info("fixturehost ready", "files", files.Dir(), "http_port", srv.HTTPPort(), "https_port", srv.HTTPSPort())

	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("serving: %w", err)
	}

	slog.Info("fixturehost stopped")
	return nil
}
