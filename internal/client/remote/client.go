package remote

import (
	"context"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/logging"
)

// Client is the set of remote operations the sync engine relies on.
// The caller drives list pagination.
type Client interface {
	ListBudgets(ctx context.Context, page int) Result[Page[Budget]]
	CreateBudget(ctx context.Context, p BudgetPayload) Result[Budget]
	UpdateBudget(ctx context.Context, id string, p BudgetPayload) Result[Budget]
	DeleteBudget(ctx context.Context, id string) Result[struct{}]

	ListTransactions(ctx context.Context, page int) Result[Page[Transaction]]
	CreateTransaction(ctx context.Context, p TransactionPayload) Result[Transaction]
	UpdateTransaction(ctx context.Context, id string, p TransactionPayload) Result[Transaction]
	DeleteTransaction(ctx context.Context, id string) Result[struct{}]

	UploadAttachment(ctx context.Context, name string, data []byte) Result[Attachment]

	Ping(ctx context.Context) error
	Close() error
}

// DefaultTimeout bounds each remote call when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Options configures both client implementations.
type Options struct {
	Timeout time.Duration
	Tokens  *TokenStore
	Logger  logging.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}
