// Package main is the entry point for the contact-form mail relay.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shineum/mail-relay-lite/internal/config"
	"github.com/shineum/mail-relay-lite/internal/relay"
	"github.com/shineum/mail-relay-lite/internal/server"
	relaytls "github.com/shineum/mail-relay-lite/internal/tls"
	"github.com/shineum/mail-relay-lite/internal/transport"
	"github.com/shineum/mail-relay-lite/internal/transport/ethereal"
	"github.com/shineum/mail-relay-lite/internal/transport/ses"
	"github.com/shineum/mail-relay-lite/internal/transport/smtpout"
	"github.com/shineum/mail-relay-lite/internal/transport/stdout"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	flag.Parse()

	// A .env file is a dev convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	setupLogger(cfg.Logging.Level)

	if cfg.Server.APIKey == "" {
		slog.Warn("API_KEY is not set; all contact requests will be rejected")
	}

	// Load TLS certificates when HTTPS serving is configured
	tlsConfig, err := relaytls.Load(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.SelfSigned)
	if err != nil {
		slog.Error("failed to setup TLS", "error", err)
		os.Exit(1)
	}

	// Select the email dispatch transport
	tr, testMode := selectTransport(cfg)

	r := relay.New(tr, cfg.Mail.From, cfg.Mail.To, testMode)

	srv := server.New(server.Config{
		ListenAddr: cfg.Server.Listen,
		APIKey:     cfg.Server.APIKey,
		TLSConfig:  tlsConfig,
	}, r)

	slog.Info("starting mail-relay-lite",
		"listen", cfg.Server.Listen,
		"transport", tr.Name(),
		"test_mode", testMode,
	)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, initiating shutdown", "signal", sig)
		cancel()
	}()

	// Start the server (blocks until context is cancelled)
	if err := srv.ListenAndServe(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("mail-relay-lite stopped")
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectTransport chooses the dispatch backend based on configuration.
// If PROVIDER is set, it takes precedence. Otherwise auto-detection runs:
// configured SMTP, then SES, then the Ethereal test transport. The second
// return value reports test mode, where responses carry a preview link
// instead of real delivery.
func selectTransport(cfg *config.Config) (transport.Transport, bool) {
	switch cfg.Provider {
	case "smtp":
		if !cfg.SMTPConfigured() {
			slog.Error("smtp provider selected but SMTP_HOST is required")
			os.Exit(1)
		}
		return newSMTPTransport(cfg), false

	case "ses":
		if !cfg.SESConfigured() {
			slog.Error("ses provider selected but SES_REGION is required")
			os.Exit(1)
		}
		return newSESTransport(cfg), false

	case "ethereal":
		slog.Info("using ethereal test transport")
		return ethereal.New(), true

	case "stdout":
		slog.Info("using stdout transport")
		return stdout.New(), false

	case "":
		// Auto-detection
		if cfg.SMTPConfigured() {
			slog.Info("using configured SMTP transport",
				"host", cfg.SMTP.Host,
				"port", cfg.SMTP.Port,
				"secure", cfg.SMTP.Secure(),
			)
			return newSMTPTransport(cfg), false
		}
		if cfg.SESConfigured() {
			slog.Info("using AWS SES transport (auto-detected)",
				"region", cfg.SES.Region,
			)
			return newSESTransport(cfg), false
		}
		slog.Info("no SMTP host configured, routing through ethereal test mailboxes")
		return ethereal.New(), true

	default:
		slog.Error("unknown provider", "provider", cfg.Provider)
		os.Exit(1)
		return nil, false
	}
}

func newSMTPTransport(cfg *config.Config) *smtpout.Transport {
	return smtpout.New(smtpout.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		Secure:   cfg.SMTP.Secure(),
	})
}

func newSESTransport(cfg *config.Config) *ses.Transport {
	t, err := ses.New(context.Background(), ses.Config{
		Region:          cfg.SES.Region,
		AccessKeyID:     cfg.SES.AccessKeyID,
		SecretAccessKey: cfg.SES.SecretAccessKey,
	})
	if err != nil {
		slog.Error("failed to create SES transport", "error", err)
		os.Exit(1)
	}
	return t
}
