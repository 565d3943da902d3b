package syncer

import (
	"context"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/mapper"
)

const (
	MetaLastSyncAt    = "last_sync_at"
	MetaLastSyncError = "last_sync_error"
)

// Status is the persisted outcome of the most recent pass.
type Status struct {
	At time.Time
	// Error is empty after a successful pass.
	Error string
}

// Never reports whether no pass has been recorded.
func (s Status) Never() bool {
	return s.At.IsZero()
}

// KV is the slice of the metadata repository used for status.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// record persists the pass outcome even when ctx has been cancelled.
func (o *Orchestrator) record(ctx context.Context, rep *Report) {
	if o.repos.Metadata == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := SaveStatus(ctx, o.repos.Metadata, rep); err != nil {
		o.log.Error(ctx, "failed to record sync status", "error", err)
	}
}

func SaveStatus(ctx context.Context, kv KV, rep *Report) error {
	if err := kv.Set(ctx, MetaLastSyncAt, []byte(mapper.FormatTime(rep.FinishedAt))); err != nil {
		return err
	}
	if rep.Err == nil {
		return kv.Delete(ctx, MetaLastSyncError)
	}
	return kv.Set(ctx, MetaLastSyncError, []byte(rep.Err.Error()))
}

// LastStatus reads what the last pass recorded.
func LastStatus(ctx context.Context, kv KV) (Status, error) {
	at, err := kv.Get(ctx, MetaLastSyncAt)
	if err != nil {
		return Status{}, err
	}
	msg, err := kv.Get(ctx, MetaLastSyncError)
	if err != nil {
		return Status{}, err
	}
	var st Status
	if len(at) > 0 {
		if st.At, err = mapper.ParseTime(string(at)); err != nil {
			return Status{}, err
		}
	}
	st.Error = string(msg)
	return st, nil
}
