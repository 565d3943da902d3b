package remotesim

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/flagx"
	"github.com/dmitrijs2005/finnysync/internal/logging"
	"github.com/dmitrijs2005/finnysync/internal/timex"
)

// Config holds the simulator settings.
type Config struct {
	HTTPAddr string
	GRPCAddr string
	// Prefix is the path the HTTP API is mounted under.
	Prefix string
	// PublicURL is the externally visible HTTP root used in image URLs.
	PublicURL string

	// AuthDisabled lets every request act as DefaultUser.
	AuthDisabled    bool
	SecretKey       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	PerPage   int
	LogLevel  string
	LogFormat string
}

// LoadDefaults fills development defaults. The secret is not for production.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.GRPCAddr = ":50051"
	c.Prefix = "/api"
	c.PublicURL = "http://127.0.0.1:8080"
	c.SecretKey = "remotesim-dev-secret"
	c.AccessTokenTTL = 15 * time.Minute
	c.RefreshTokenTTL = 24 * time.Hour
	c.PerPage = DefaultPerPage
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// FileURL is the image_url prefix of uploads.
func (c *Config) FileURL() string {
	return strings.TrimRight(c.PublicURL, "/") + "/" + strings.Trim(c.Prefix, "/") + "/files/"
}

func (c *Config) LogOptions() logging.Options {
	return logging.Options{Level: c.LogLevel, Format: c.LogFormat}
}

type jsonConfig struct {
	HTTPAddr        *string         `json:"http_addr"`
	GRPCAddr        *string         `json:"grpc_addr"`
	Prefix          *string         `json:"prefix"`
	PublicURL       *string         `json:"public_url"`
	AuthDisabled    *bool           `json:"auth_disabled"`
	SecretKey       *string         `json:"secret_key"`
	AccessTokenTTL  *timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL *timex.Duration `json:"refresh_token_ttl"`
	PerPage         *int            `json:"per_page"`
	LogLevel        *string         `json:"log_level"`
	LogFormat       *string         `json:"log_format"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// parseJSON overlays the keys present in the file at path.
func parseJSON(path string, c *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var j jsonConfig
	if err := json.Unmarshal(b, &j); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	set(&c.HTTPAddr, j.HTTPAddr)
	set(&c.GRPCAddr, j.GRPCAddr)
	set(&c.Prefix, j.Prefix)
	set(&c.PublicURL, j.PublicURL)
	set(&c.AuthDisabled, j.AuthDisabled)
	set(&c.SecretKey, j.SecretKey)
	set(&c.PerPage, j.PerPage)
	set(&c.LogLevel, j.LogLevel)
	set(&c.LogFormat, j.LogFormat)
	if j.AccessTokenTTL != nil {
		c.AccessTokenTTL = j.AccessTokenTTL.Duration
	}
	if j.RefreshTokenTTL != nil {
		c.RefreshTokenTTL = j.RefreshTokenTTL.Duration
	}
	return nil
}

var flagNames = []string{
	"-http", "-grpc", "-prefix", "-public-url", "-no-auth", "-s",
	"-access-ttl", "-refresh-ttl", "-per-page", "-log-level", "-log-format",
}

// parseFlags overlays the flags present in args. Unset flags keep the
// values already in c.
func parseFlags(args []string, c *Config) error {
	fs := flag.NewFlagSet("remotesim", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&c.HTTPAddr, "http", c.HTTPAddr, "HTTP listen address, empty to disable")
	fs.StringVar(&c.GRPCAddr, "grpc", c.GRPCAddr, "gRPC listen address, empty to disable")
	fs.StringVar(&c.Prefix, "prefix", c.Prefix, "path the HTTP API is mounted under")
	fs.StringVar(&c.PublicURL, "public-url", c.PublicURL, "externally visible HTTP root")
	fs.BoolVar(&c.AuthDisabled, "no-auth", c.AuthDisabled, "accept requests without a token")
	fs.StringVar(&c.SecretKey, "s", c.SecretKey, "JWT signing secret")
	fs.DurationVar(&c.AccessTokenTTL, "access-ttl", c.AccessTokenTTL, "access token lifetime")
	fs.DurationVar(&c.RefreshTokenTTL, "refresh-ttl", c.RefreshTokenTTL, "refresh token lifetime")
	fs.IntVar(&c.PerPage, "per-page", c.PerPage, "list page size")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "text or json")

	return fs.Parse(flagx.FilterArgs(args, flagNames))
}

func (c *Config) Validate() error {
	if c.HTTPAddr == "" && c.GRPCAddr == "" {
		return errors.New("at least one of -http and -grpc is required")
	}
	if !c.AuthDisabled && c.SecretKey == "" {
		return errors.New("secret key is required when auth is enabled")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	return nil
}

// LoadConfig applies defaults, then the JSON file named by -c/-config, then
// the command-line flags in args.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path := flagx.ConfigPath(args); path != "" {
		if err := parseJSON(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := parseFlags(args, cfg); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
