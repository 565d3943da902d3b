package attachments

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/dmitrijs2005/finnysync/internal/cryptox"
	"github.com/dmitrijs2005/finnysync/internal/filex"
)

// AzureConfig addresses a blob container. With an empty AccountKey the
// default Azure credential chain is used.
type AzureConfig struct {
	ServiceURL  string
	AccountName string
	AccountKey  string
	Container   string
	Prefix      string
}

type blobAPI interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

var newDefaultAzureCredential = func() (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}

type AzureUploader struct {
	client blobAPI
	cfg    AzureConfig

	mu    sync.Mutex
	ready bool
}

func NewAzureUploader(cfg AzureConfig) (*AzureUploader, error) {
	if cfg.ServiceURL == "" || cfg.Container == "" {
		return nil, fmt.Errorf("azure uploader: service url and container are required")
	}

	var (
		client *azblob.Client
		err    error
	)
	if cfg.AccountKey != "" {
		cred, cerr := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if cerr != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", cerr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(cfg.ServiceURL, cred, nil)
	} else {
		cred, cerr := newDefaultAzureCredential()
		if cerr != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", cerr)
		}
		client, err = azblob.NewClient(cfg.ServiceURL, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return &AzureUploader{client: client, cfg: cfg}, nil
}

func (u *AzureUploader) ensureContainer(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.ready {
		return nil
	}
	_, err := u.client.CreateContainer(ctx, u.cfg.Container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", u.cfg.Container, err)
	}
	u.ready = true
	return nil
}

func (u *AzureUploader) Upload(ctx context.Context, a *filex.Attachment) (string, error) {
	if err := u.ensureContainer(ctx); err != nil {
		return "", err
	}

	name := cryptox.ObjectKey(u.cfg.Prefix, a.Data, a.Name)
	var opts *azblob.UploadBufferOptions
	if a.ContentType != "" {
		ct := a.ContentType
		opts = &azblob.UploadBufferOptions{HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &ct}}
	}
	if _, err := u.client.UploadBuffer(ctx, u.cfg.Container, name, a.Data, opts); err != nil {
		return "", fmt.Errorf("failed to upload blob %s/%s: %w", u.cfg.Container, name, err)
	}
	return strings.TrimRight(u.cfg.ServiceURL, "/") + "/" + u.cfg.Container + "/" + name, nil
}
