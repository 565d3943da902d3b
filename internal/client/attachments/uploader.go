package attachments

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"github.com/dmitrijs2005/finnysync/internal/filex"
)

const (
	BackendAPI   = "api"
	BackendS3    = "s3"
	BackendAzure = "azblob"
)

// Uploader stores an attachment and returns the URL the remote should keep.
type Uploader interface {
	Upload(ctx context.Context, a *filex.Attachment) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	Backend string
	Prefix  string
	S3      S3Config
	Azure   AzureConfig
}

// New builds the uploader named by cfg.Backend. api is used by the "api"
// backend and may be nil for the others.
func New(ctx context.Context, cfg Config, api ImageAPI) (Uploader, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendAPI:
		if api == nil {
			return nil, fmt.Errorf("attachment backend %q needs a remote client", BackendAPI)
		}
		return NewAPIUploader(api), nil
	case BackendS3:
		s3cfg := cfg.S3
		if s3cfg.Prefix == "" {
			s3cfg.Prefix = cfg.Prefix
		}
		u, err := NewS3Uploader(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		return u, nil
	case BackendAzure:
		azcfg := cfg.Azure
		if azcfg.Prefix == "" {
			azcfg.Prefix = cfg.Prefix
		}
		u, err := NewAzureUploader(azcfg)
		if err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, fmt.Errorf("unknown attachment backend %q", cfg.Backend)
	}
}

// ImageAPI is the part of remote.Client used for uploads.
type ImageAPI interface {
	UploadAttachment(ctx context.Context, name string, data []byte) remote.Result[remote.Attachment]
}
