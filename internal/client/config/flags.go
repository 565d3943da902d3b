package config

import (
	"github.com/spf13/pflag"
)

// Loader binds command-line flags and builds the final Config from
// defaults, the JSON file and the flags the user actually set.
type Loader struct {
	fs         *pflag.FlagSet
	flags      *Config
	configFile string
}

// flagFields copies one flag's value from src to dst.
var flagFields = map[string]func(dst, src *Config){
	"server-url":              func(d, s *Config) { d.ServerURL = s.ServerURL },
	"transport":               func(d, s *Config) { d.Transport = s.Transport },
	"grpc-addr":               func(d, s *Config) { d.GRPCAddr = s.GRPCAddr },
	"db-driver":               func(d, s *Config) { d.DBDriver = s.DBDriver },
	"db-dsn":                  func(d, s *Config) { d.DSN = s.DSN },
	"sync-interval":           func(d, s *Config) { d.SyncInterval = s.SyncInterval },
	"require-network":         func(d, s *Config) { d.RequireNetwork = s.RequireNetwork },
	"request-timeout":         func(d, s *Config) { d.RequestTimeout = s.RequestTimeout },
	"online-check-interval":   func(d, s *Config) { d.OnlineCheckInterval = s.OnlineCheckInterval },
	"retry-base-delay":        func(d, s *Config) { d.RetryBaseDelay = s.RetryBaseDelay },
	"retry-max-delay":         func(d, s *Config) { d.RetryMaxDelay = s.RetryMaxDelay },
	"pull-policy":             func(d, s *Config) { d.PullPolicy = s.PullPolicy },
	"push-after-pull-failure": func(d, s *Config) { d.PushAfterPullFailure = s.PushAfterPullFailure },
	"attachment-backend":      func(d, s *Config) { d.Attachments.Backend = s.Attachments.Backend },
	"attachment-prefix":       func(d, s *Config) { d.Attachments.Prefix = s.Attachments.Prefix },
	"attachment-max-bytes":    func(d, s *Config) { d.Attachments.MaxBytes = s.Attachments.MaxBytes },
	"s3-region":               func(d, s *Config) { d.Attachments.S3.Region = s.Attachments.S3.Region },
	"s3-bucket":               func(d, s *Config) { d.Attachments.S3.Bucket = s.Attachments.S3.Bucket },
	"s3-endpoint":             func(d, s *Config) { d.Attachments.S3.Endpoint = s.Attachments.S3.Endpoint },
	"s3-path-style":           func(d, s *Config) { d.Attachments.S3.UsePathStyle = s.Attachments.S3.UsePathStyle },
	"s3-public-url":           func(d, s *Config) { d.Attachments.S3.PublicURL = s.Attachments.S3.PublicURL },
	"azure-service-url":       func(d, s *Config) { d.Attachments.Azure.ServiceURL = s.Attachments.Azure.ServiceURL },
	"azure-container":         func(d, s *Config) { d.Attachments.Azure.Container = s.Attachments.Azure.Container },
	"log-level":               func(d, s *Config) { d.Log.Level = s.Log.Level },
	"log-format":              func(d, s *Config) { d.Log.Format = s.Log.Format },
	"log-file":                func(d, s *Config) { d.Log.File = s.Log.File },
}

// BindFlags registers the configuration flags on fs, usually the root
// command's persistent flag set. Secrets are only read from the JSON file.
func BindFlags(fs *pflag.FlagSet) *Loader {
	l := &Loader{fs: fs, flags: Defaults()}
	c := l.flags

	fs.StringVarP(&l.configFile, "config", "c", "", "path to a JSON config file")

	fs.StringVar(&c.ServerURL, "server-url", c.ServerURL, "base URL of the HTTP API")
	fs.StringVar(&c.Transport, "transport", c.Transport, "remote transport: http or grpc")
	fs.StringVar(&c.GRPCAddr, "grpc-addr", c.GRPCAddr, "address of the gRPC endpoint")
	fs.StringVar(&c.DBDriver, "db-driver", c.DBDriver, "local store driver: sqlite or pgx")
	fs.StringVar(&c.DSN, "db-dsn", c.DSN, "local store data source name")

	fs.DurationVar(&c.SyncInterval, "sync-interval", c.SyncInterval, "period of recurring sync (minimum 15m)")
	fs.BoolVar(&c.RequireNetwork, "require-network", c.RequireNetwork, "hold scheduled syncs until the remote is reachable")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "timeout of a single remote call")
	fs.DurationVar(&c.OnlineCheckInterval, "online-check-interval", c.OnlineCheckInterval, "how often reachability is probed")
	fs.DurationVar(&c.RetryBaseDelay, "retry-base-delay", c.RetryBaseDelay, "first backoff delay of a failed sync")
	fs.DurationVar(&c.RetryMaxDelay, "retry-max-delay", c.RetryMaxDelay, "largest backoff delay of a failed sync")
	fs.StringVar(&c.PullPolicy, "pull-policy", c.PullPolicy, "last_pull_wins or skip_pending")
	fs.BoolVar(&c.PushAfterPullFailure, "push-after-pull-failure", c.PushAfterPullFailure, "push local changes even when the pull phase failed")

	fs.StringVar(&c.Attachments.Backend, "attachment-backend", c.Attachments.Backend, "where attachments go: api, s3 or azblob")
	fs.StringVar(&c.Attachments.Prefix, "attachment-prefix", c.Attachments.Prefix, "object key prefix for s3 and azblob")
	fs.Int64Var(&c.Attachments.MaxBytes, "attachment-max-bytes", c.Attachments.MaxBytes, "largest accepted attachment, 0 for no limit")
	fs.StringVar(&c.Attachments.S3.Region, "s3-region", c.Attachments.S3.Region, "S3 region")
	fs.StringVar(&c.Attachments.S3.Bucket, "s3-bucket", c.Attachments.S3.Bucket, "S3 bucket")
	fs.StringVar(&c.Attachments.S3.Endpoint, "s3-endpoint", c.Attachments.S3.Endpoint, "custom S3 endpoint, e.g. MinIO")
	fs.BoolVar(&c.Attachments.S3.UsePathStyle, "s3-path-style", c.Attachments.S3.UsePathStyle, "use path-style S3 addressing")
	fs.StringVar(&c.Attachments.S3.PublicURL, "s3-public-url", c.Attachments.S3.PublicURL, "base URL of stored objects")
	fs.StringVar(&c.Attachments.Azure.ServiceURL, "azure-service-url", c.Attachments.Azure.ServiceURL, "Azure blob service URL")
	fs.StringVar(&c.Attachments.Azure.Container, "azure-container", c.Attachments.Azure.Container, "Azure blob container")

	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "debug, info, warn or error")
	fs.StringVar(&c.Log.Format, "log-format", c.Log.Format, "text or json")
	fs.StringVar(&c.Log.File, "log-file", c.Log.File, "write logs to a rotated file instead of stderr")

	return l
}

// Load builds the Config. It must run after the flag set was parsed.
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()
	if l.configFile != "" {
		if err := loadJSON(l.configFile, cfg); err != nil {
			return nil, err
		}
	}
	// Changed lives on the shared *pflag.Flag, so this also sees flags that
	// cobra parsed through a subcommand's merged flag set.
	l.fs.VisitAll(func(f *pflag.Flag) {
		if apply, ok := flagFields[f.Name]; ok && f.Changed {
			apply(cfg, l.flags)
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
