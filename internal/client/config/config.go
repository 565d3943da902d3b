package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/attachments"
	"github.com/dmitrijs2005/finnysync/internal/client/syncer"
	"github.com/dmitrijs2005/finnysync/internal/dbx"
	"github.com/dmitrijs2005/finnysync/internal/logging"
	"go.uber.org/multierr"
)

const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

type S3 struct {
	Region       string
	Bucket       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PublicURL    string
}

type Azure struct {
	ServiceURL  string
	AccountName string
	AccountKey  string
	Container   string
}

type Attachments struct {
	Backend  string
	Prefix   string
	MaxBytes int64
	S3       S3
	Azure    Azure
}

type Log struct {
	Level  string
	Format string
	File   string
}

// Config holds runtime settings of the client.
type Config struct {
	ServerURL string
	Transport string
	GRPCAddr  string

	DBDriver string
	DSN      string

	SyncInterval         time.Duration
	RequireNetwork       bool
	RequestTimeout       time.Duration
	OnlineCheckInterval  time.Duration
	RetryBaseDelay       time.Duration
	RetryMaxDelay        time.Duration
	PullPolicy           string
	PushAfterPullFailure bool

	Attachments Attachments
	Log         Log
}

// DefaultDSN is the SQLite file under the user's config directory, or in the
// working directory when that cannot be determined.
func DefaultDSN() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "finny.db"
	}
	return filepath.Join(dir, "finnysync", "finny.db")
}

func Defaults() *Config {
	return &Config{
		ServerURL:           "http://127.0.0.1:8080/api",
		Transport:           TransportHTTP,
		GRPCAddr:            "127.0.0.1:50051",
		DBDriver:            string(dbx.SQLite),
		DSN:                 DefaultDSN(),
		SyncInterval:        15 * time.Minute,
		RequireNetwork:      true,
		RequestTimeout:      30 * time.Second,
		OnlineCheckInterval: 10 * time.Second,
		RetryBaseDelay:      30 * time.Second,
		RetryMaxDelay:       30 * time.Minute,
		PullPolicy:          syncer.LastPullWins.String(),
		Attachments: Attachments{
			Backend:  attachments.BackendAPI,
			Prefix:   "attachments",
			MaxBytes: 10 << 20,
			Azure:    Azure{Container: "attachments"},
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs error
	switch c.Transport {
	case TransportHTTP:
		if c.ServerURL == "" {
			errs = multierr.Append(errs, errors.New("server url is required for the http transport"))
		}
	case TransportGRPC:
		if c.GRPCAddr == "" {
			errs = multierr.Append(errs, errors.New("grpc address is required for the grpc transport"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	if _, err := dbx.ParseDialect(c.DBDriver); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.DSN == "" {
		errs = multierr.Append(errs, errors.New("database dsn is required"))
	}
	if _, err := syncer.ParsePullPolicy(c.PullPolicy); err != nil {
		errs = multierr.Append(errs, err)
	}
	for name, d := range map[string]time.Duration{
		"sync interval":         c.SyncInterval,
		"request timeout":       c.RequestTimeout,
		"online check interval": c.OnlineCheckInterval,
		"retry base delay":      c.RetryBaseDelay,
	} {
		if d <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		errs = multierr.Append(errs, errors.New("retry max delay must not be below the base delay"))
	}
	switch strings.ToLower(c.Attachments.Backend) {
	case attachments.BackendAPI:
	case attachments.BackendS3:
		if c.Attachments.S3.Bucket == "" {
			errs = multierr.Append(errs, errors.New("s3 bucket is required"))
		}
	case attachments.BackendAzure:
		if c.Attachments.Azure.ServiceURL == "" {
			errs = multierr.Append(errs, errors.New("azure service url is required"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown attachment backend %q", c.Attachments.Backend))
	}
	return errs
}

func (c *Config) Dialect() (dbx.Dialect, error) {
	return dbx.ParseDialect(c.DBDriver)
}

// SyncOptions converts the sync settings; call Validate first.
func (c *Config) SyncOptions() syncer.Options {
	p, _ := syncer.ParsePullPolicy(c.PullPolicy)
	return syncer.Options{
		PullPolicy:           p,
		PushAfterPullFailure: c.PushAfterPullFailure,
		MaxAttachmentBytes:   c.Attachments.MaxBytes,
	}
}

func (c *Config) AttachmentConfig() attachments.Config {
	a := c.Attachments
	return attachments.Config{
		Backend: a.Backend,
		Prefix:  a.Prefix,
		S3: attachments.S3Config{
			Region:       a.S3.Region,
			Bucket:       a.S3.Bucket,
			Endpoint:     a.S3.Endpoint,
			AccessKey:    a.S3.AccessKey,
			SecretKey:    a.S3.SecretKey,
			UsePathStyle: a.S3.UsePathStyle,
			PublicURL:    a.S3.PublicURL,
		},
		Azure: attachments.AzureConfig{
			ServiceURL:  a.Azure.ServiceURL,
			AccountName: a.Azure.AccountName,
			AccountKey:  a.Azure.AccountKey,
			Container:   a.Azure.Container,
		},
	}
}

func (c *Config) LogOptions() logging.Options {
	return logging.Options{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  20,
		MaxBackups: 3,
	}
}
