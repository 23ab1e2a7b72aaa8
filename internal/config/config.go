package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string

	// Pathstore connection
	PathstoreURL    string
	PathstoreAPIKey string

	// Auth
	APIKey string

	// Pagination
	PageSize int

	// Sync worker pool
	WorkerCount  int
	MaxQueueSize int
	SyncRate     float64 // remote calls per second, 0 = unlimited
	SyncBurst    int

	// Outbox
	OutboxPath           string
	OutboxInMemory       bool
	OutboxReplayInterval time.Duration

	// Upload limits
	MaxUploadBytes int64

	// State lifetimes
	JobTTL       time.Duration
	WorkspaceTTL time.Duration
	PageCacheTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

// defaults keyed by environment variable name.
var defaults = map[string]any{
	"PORT":                   "8090",
	"PATHSTORE_URL":          "http://localhost:8080",
	"PAGE_SIZE":              3500,
	"WORKER_COUNT":           4,
	"MAX_QUEUE_SIZE":         100,
	"SYNC_RATE":              20.0,
	"SYNC_BURST":             5,
	"OUTBOX_PATH":            "data/outbox",
	"OUTBOX_IN_MEMORY":       false,
	"OUTBOX_REPLAY_INTERVAL": 30 * time.Second,
	"MAX_UPLOAD_BYTES":       int64(10 << 20), // 10MB
	"JOB_TTL":                time.Hour,
	"WORKSPACE_TTL":          2 * time.Hour,
	"PAGE_CACHE_TTL":         time.Hour,
	"PDF_FALLBACK_PDFTOTEXT": true,
}

// New returns a viper instance with defaults registered and the process
// environment bound. Callers may layer a config file or flags on top.
func New() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()
	return v
}

// Load resolves configuration from v. A nil v reads the environment.
func Load(v *viper.Viper) Config {
	if v == nil {
		v = New()
	}
	cfg := Config{
		Port: v.GetString("PORT"),

		PathstoreURL:    v.GetString("PATHSTORE_URL"),
		PathstoreAPIKey: v.GetString("PATHSTORE_API_KEY"),

		APIKey: v.GetString("CLOSEREADER_API_KEY"),

		PageSize: v.GetInt("PAGE_SIZE"),

		WorkerCount:  v.GetInt("WORKER_COUNT"),
		MaxQueueSize: v.GetInt("MAX_QUEUE_SIZE"),
		SyncRate:     v.GetFloat64("SYNC_RATE"),
		SyncBurst:    v.GetInt("SYNC_BURST"),

		OutboxPath:           v.GetString("OUTBOX_PATH"),
		OutboxInMemory:       v.GetBool("OUTBOX_IN_MEMORY"),
		OutboxReplayInterval: v.GetDuration("OUTBOX_REPLAY_INTERVAL"),

		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),

		JobTTL:       v.GetDuration("JOB_TTL"),
		WorkspaceTTL: v.GetDuration("WORKSPACE_TTL"),
		PageCacheTTL: v.GetDuration("PAGE_CACHE_TTL"),

		PDFFallbackPdftotext: v.GetBool("PDF_FALLBACK_PDFTOTEXT"),
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = 3500
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.SyncRate < 0 {
		cfg.SyncRate = 0
	}
	if cfg.SyncBurst <= 0 {
		cfg.SyncBurst = 1
	}
	if cfg.OutboxReplayInterval <= 0 {
		cfg.OutboxReplayInterval = 30 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	if cfg.WorkspaceTTL <= 0 {
		cfg.WorkspaceTTL = 2 * time.Hour
	}
	if cfg.PageCacheTTL <= 0 {
		cfg.PageCacheTTL = time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.PathstoreAPIKey == "" {
		return errors.New("PATHSTORE_API_KEY is required")
	}
	if c.APIKey == "" {
		return errors.New("CLOSEREADER_API_KEY is required")
	}
	if !c.OutboxInMemory && c.OutboxPath == "" {
		return errors.New("OUTBOX_PATH is required unless OUTBOX_IN_MEMORY is set")
	}
	return nil
}
