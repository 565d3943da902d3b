package attachments

import (
	"context"

	"github.com/dmitrijs2005/finnysync/internal/cryptox"
	"github.com/dmitrijs2005/finnysync/internal/filex"
)

// APIUploader posts attachments to the remote's image endpoint. Errors are
// the remote's *Error values, so callers can tell transport from business
// failures.
type APIUploader struct {
	api ImageAPI
}

func NewAPIUploader(api ImageAPI) *APIUploader {
	return &APIUploader{api: api}
}

func (u *APIUploader) Upload(ctx context.Context, a *filex.Attachment) (string, error) {
	att, err := u.api.UploadAttachment(ctx, cryptox.FileName(a.Data, a.Name), a.Data).Get()
	if err != nil {
		return "", err
	}
	return att.URL, nil
}
