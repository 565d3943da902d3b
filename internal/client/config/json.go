package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/finnysync/internal/timex"
)

type fileS3 struct {
	Region       string `json:"region"`
	Bucket       string `json:"bucket"`
	Endpoint     string `json:"endpoint"`
	AccessKey    string `json:"access_key"`
	SecretKey    string `json:"secret_key"`
	UsePathStyle bool   `json:"use_path_style"`
	PublicURL    string `json:"public_url"`
}

type fileAzure struct {
	ServiceURL  string `json:"service_url"`
	AccountName string `json:"account_name"`
	AccountKey  string `json:"account_key"`
	Container   string `json:"container"`
}

type fileAttachments struct {
	Backend  string    `json:"backend"`
	Prefix   string    `json:"prefix"`
	MaxBytes int64     `json:"max_bytes"`
	S3       fileS3    `json:"s3"`
	Azure    fileAzure `json:"azure"`
}

type fileLog struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// fileConfig is the JSON form of Config. It is filled from the current
// values before decoding, so keys missing from the file keep them.
type fileConfig struct {
	ServerURL            string          `json:"server_url"`
	Transport            string          `json:"transport"`
	GRPCAddr             string          `json:"grpc_addr"`
	DBDriver             string          `json:"db_driver"`
	DSN                  string          `json:"db_dsn"`
	SyncInterval         timex.Duration  `json:"sync_interval"`
	RequireNetwork       bool            `json:"require_network"`
	RequestTimeout       timex.Duration  `json:"request_timeout"`
	OnlineCheckInterval  timex.Duration  `json:"online_check_interval"`
	RetryBaseDelay       timex.Duration  `json:"retry_base_delay"`
	RetryMaxDelay        timex.Duration  `json:"retry_max_delay"`
	PullPolicy           string          `json:"pull_policy"`
	PushAfterPullFailure bool            `json:"push_after_pull_failure"`
	Attachments          fileAttachments `json:"attachments"`
	Log                  fileLog         `json:"log"`
}

func toFile(c *Config) fileConfig {
	a := c.Attachments
	return fileConfig{
		ServerURL:            c.ServerURL,
		Transport:            c.Transport,
		GRPCAddr:             c.GRPCAddr,
		DBDriver:             c.DBDriver,
		DSN:                  c.DSN,
		SyncInterval:         timex.Duration{Duration: c.SyncInterval},
		RequireNetwork:       c.RequireNetwork,
		RequestTimeout:       timex.Duration{Duration: c.RequestTimeout},
		OnlineCheckInterval:  timex.Duration{Duration: c.OnlineCheckInterval},
		RetryBaseDelay:       timex.Duration{Duration: c.RetryBaseDelay},
		RetryMaxDelay:        timex.Duration{Duration: c.RetryMaxDelay},
		PullPolicy:           c.PullPolicy,
		PushAfterPullFailure: c.PushAfterPullFailure,
		Attachments: fileAttachments{
			Backend:  a.Backend,
			Prefix:   a.Prefix,
			MaxBytes: a.MaxBytes,
			S3:       fileS3(a.S3),
			Azure:    fileAzure(a.Azure),
		},
		Log: fileLog(c.Log),
	}
}

func (f fileConfig) apply(c *Config) {
	c.ServerURL = f.ServerURL
	c.Transport = f.Transport
	c.GRPCAddr = f.GRPCAddr
	c.DBDriver = f.DBDriver
	c.DSN = f.DSN
	c.SyncInterval = f.SyncInterval.Duration
	c.RequireNetwork = f.RequireNetwork
	c.RequestTimeout = f.RequestTimeout.Duration
	c.OnlineCheckInterval = f.OnlineCheckInterval.Duration
	c.RetryBaseDelay = f.RetryBaseDelay.Duration
	c.RetryMaxDelay = f.RetryMaxDelay.Duration
	c.PullPolicy = f.PullPolicy
	c.PushAfterPullFailure = f.PushAfterPullFailure
	c.Attachments = Attachments{
		Backend:  f.Attachments.Backend,
		Prefix:   f.Attachments.Prefix,
		MaxBytes: f.Attachments.MaxBytes,
		S3:       S3(f.Attachments.S3),
		Azure:    Azure(f.Attachments.Azure),
	}
	c.Log = Log(f.Log)
}

// loadJSON overlays cfg with the values present in the file at path.
func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	fc := toFile(cfg)
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	fc.apply(cfg)
	return nil
}
