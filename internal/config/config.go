package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress            string
	DatabaseURI           string
	PublicBaseURL         string
	ProviderAPIAddress    string
	ProviderAPIKey        string
	ProviderWebhookSecret string
	PodAPIAddress         string
	PodAPIKey             string
	PodWebhookSecret      string
	MailRelayAddress      string
	CatalogAddress        string
	AdminToken            string
	DownloadTTL           time.Duration
	DownloadMaxUses       int
	ReconcileInterval     time.Duration
	ReconcileGrace        time.Duration
	ReconcileBatch        int
	WorkerPoolSize        int
	ShutdownTimeout       time.Duration
}

const (
	defaultRunAddress        = ":8080"
	defaultProviderAPI       = "https://api.payments.example.com"
	defaultDownloadTTL       = 24 * time.Hour
	defaultDownloadMaxUses   = 5
	defaultReconcileInterval = time.Minute
	defaultReconcileGrace    = 5 * time.Minute
	defaultReconcileBatch    = 32
	defaultWorkerPoolSize    = 4
	defaultShutdownTimeout   = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:            getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:           getString(lookup, "DATABASE_URI", ""),
		PublicBaseURL:         getString(lookup, "PUBLIC_BASE_URL", "http://localhost:8080"),
		ProviderAPIAddress:    getString(lookup, "PROVIDER_API_ADDRESS", defaultProviderAPI),
		ProviderAPIKey:        getString(lookup, "PROVIDER_API_KEY", ""),
		ProviderWebhookSecret: getString(lookup, "PROVIDER_WEBHOOK_SECRET", ""),
		PodAPIAddress:         getString(lookup, "POD_API_ADDRESS", ""),
		PodAPIKey:             getString(lookup, "POD_API_KEY", ""),
		PodWebhookSecret:      getString(lookup, "POD_WEBHOOK_SECRET", ""),
		MailRelayAddress:      getString(lookup, "MAIL_RELAY_ADDRESS", ""),
		CatalogAddress:        getString(lookup, "CATALOG_ADDRESS", ""),
		AdminToken:            getString(lookup, "ADMIN_TOKEN", ""),
		DownloadTTL:           getDuration(lookup, "DOWNLOAD_TTL", defaultDownloadTTL),
		DownloadMaxUses:       getInt(lookup, "DOWNLOAD_MAX_USES", defaultDownloadMaxUses),
		ReconcileInterval:     getDuration(lookup, "RECONCILE_INTERVAL", defaultReconcileInterval),
		ReconcileGrace:        getDuration(lookup, "RECONCILE_GRACE", defaultReconcileGrace),
		ReconcileBatch:        getInt(lookup, "RECONCILE_BATCH", defaultReconcileBatch),
		WorkerPoolSize:        getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ShutdownTimeout:       getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("bookpress", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		downloadTTLStr       = cfg.DownloadTTL.String()
		reconcileIntervalStr = cfg.ReconcileInterval.String()
		reconcileGraceStr    = cfg.ReconcileGrace.String()
		shutdownTimeoutStr   = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.PublicBaseURL, "base-url", cfg.PublicBaseURL, "Public base URL for download links")
	fs.StringVar(&cfg.ProviderAPIAddress, "provider-api", cfg.ProviderAPIAddress, "Payment provider API base URL")
	fs.StringVar(&cfg.PodAPIAddress, "pod-api", cfg.PodAPIAddress, "Print provider API base URL")
	fs.StringVar(&cfg.MailRelayAddress, "mail-relay", cfg.MailRelayAddress, "Mail relay base URL")
	fs.StringVar(&cfg.CatalogAddress, "catalog", cfg.CatalogAddress, "Catalog price oracle base URL")
	fs.IntVar(&cfg.DownloadMaxUses, "download-max-uses", cfg.DownloadMaxUses, "Maximum uses per download credential")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent reconcile workers")
	fs.IntVar(&cfg.ReconcileBatch, "reconcile-batch", cfg.ReconcileBatch, "Maximum ledger rows per reconcile sweep")
	fs.StringVar(&downloadTTLStr, "download-ttl", downloadTTLStr, "Lifetime of download credentials")
	fs.StringVar(&reconcileIntervalStr, "reconcile-interval", reconcileIntervalStr, "Interval between reconcile sweeps")
	fs.StringVar(&reconcileGraceStr, "reconcile-grace", reconcileGraceStr, "Age before an unprocessed event is re-driven")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.DownloadTTL, err = time.ParseDuration(downloadTTLStr); err != nil {
		return nil, fmt.Errorf("invalid download ttl: %w", err)
	}

	if cfg.ReconcileInterval, err = time.ParseDuration(reconcileIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile interval: %w", err)
	}

	if cfg.ReconcileGrace, err = time.ParseDuration(reconcileGraceStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile grace: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("PROVIDER_WEBHOOK_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read webhook secret file: %w", err)
		}
		cfg.ProviderWebhookSecret = string(content)
	}

	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = defaultDownloadTTL
	}

	if cfg.DownloadMaxUses <= 0 {
		cfg.DownloadMaxUses = defaultDownloadMaxUses
	}

	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}

	if cfg.ReconcileGrace <= 0 {
		cfg.ReconcileGrace = defaultReconcileGrace
	}

	if cfg.ReconcileBatch <= 0 {
		cfg.ReconcileBatch = defaultReconcileBatch
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.PodAPIAddress == "" {
		return nil, fmt.Errorf("print provider address must be provided")
	}

	if cfg.MailRelayAddress == "" {
		return nil, fmt.Errorf("mail relay address must be provided")
	}

	if cfg.CatalogAddress == "" {
		return nil, fmt.Errorf("catalog address must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
