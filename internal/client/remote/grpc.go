package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/finnysync/internal/common"
	"github.com/dmitrijs2005/finnysync/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCClient implements Client over gRPC.
type GRPCClient struct {
	conn *grpc.ClientConn
	opts Options
	log  logging.Logger
}

var _ Client = (*GRPCClient)(nil)

// NewGRPCClient connects to target. Extra dial options are appended after the
// defaults (insecure transport credentials and the auth interceptor).
func NewGRPCClient(target string, opts Options, dialOpts ...grpc.DialOption) (*GRPCClient, error) {
	opts = opts.withDefaults()
	c := &GRPCClient{opts: opts, log: opts.Logger.With("component", "remote.grpc")}

	all := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, dialOpts...)

	conn, err := grpc.NewClient(target, all...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the bearer token and, when the server
// answers Unauthenticated, refreshes it once and retries the call.
func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if c.opts.Tokens == nil || method == GRPCMethod(MethodPing) || method == GRPCMethod(MethodRefresh) {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	token, err := c.opts.Tokens.AccessToken(ctx, c.refresh)
	if err != nil {
		return tokenStatus(err)
	}
	if token != "" {
		ctx = withAccessToken(ctx, token)
	}

	err = invoker(ctx, method, req, reply, cc, opts...)
	if status.Code(err) != codes.Unauthenticated {
		return err
	}

	c.log.Info(ctx, "access token rejected, refreshing", "method", method)
	token, rerr := c.opts.Tokens.Refresh(ctx, token, c.refresh)
	if rerr != nil {
		return tokenStatus(rerr)
	}
	return invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
}

func tokenStatus(err error) error {
	if IsRetryable(err) {
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Unauthenticated, err.Error())
}

func toStruct(v any) (*structpb.Struct, error) {
	st := &structpb.Struct{}
	if v == nil {
		return st, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if err := protojson.Unmarshal(b, st); err != nil {
		return nil, err
	}
	return st, nil
}

func fromStruct[T any](st *structpb.Struct) (T, error) {
	var v T
	b, err := protojson.Marshal(st)
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(b, &v)
	return v, err
}

func invokeGRPC[T any](ctx context.Context, c *GRPCClient, method string, req any) Result[T] {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	in, err := toStruct(req)
	if err != nil {
		return BusinessError[T](fmt.Sprintf("encode request: %v", err))
	}

	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, GRPCMethod(method), in, out); err != nil {
		return mapGRPCError[T](err)
	}

	v, err := fromStruct[T](out)
	if err != nil {
		return TransportError[T](fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	return Success(v)
}

// mapGRPCError sorts status codes into the result taxonomy.
func mapGRPCError[T any](err error) Result[T] {
	st, ok := status.FromError(err)
	if !ok {
		return TransportError[T](err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return unauthorized[T](st.Message())
	case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists,
		codes.FailedPrecondition, codes.OutOfRange:
		return BusinessError[T](st.Message())
	default:
		return TransportError[T](fmt.Errorf("rpc error: %w", err))
	}
}

func (c *GRPCClient) refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	return invokeGRPC[Tokens](ctx, c, MethodRefresh, RefreshRequest{RefreshToken: refreshToken}).Get()
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	return invokeGRPC[map[string]any](ctx, c, MethodPing, nil).Err()
}

func (c *GRPCClient) ListBudgets(ctx context.Context, page int) Result[Page[Budget]] {
	return invokeGRPC[Page[Budget]](ctx, c, MethodListBudgets, PageRequest{Page: page})
}

func (c *GRPCClient) CreateBudget(ctx context.Context, p BudgetPayload) Result[Budget] {
	return invokeGRPC[Budget](ctx, c, MethodCreateBudget, p)
}

func (c *GRPCClient) UpdateBudget(ctx context.Context, id string, p BudgetPayload) Result[Budget] {
	return invokeGRPC[Budget](ctx, c, MethodUpdateBudget, IDRequest[BudgetPayload]{ID: id, Payload: &p})
}

func (c *GRPCClient) DeleteBudget(ctx context.Context, id string) Result[struct{}] {
	return invokeGRPC[struct{}](ctx, c, MethodDeleteBudget, IDRequest[BudgetPayload]{ID: id})
}

func (c *GRPCClient) ListTransactions(ctx context.Context, page int) Result[Page[Transaction]] {
	return invokeGRPC[Page[Transaction]](ctx, c, MethodListTransactions, TransactionListRequest{Page: page})
}

func (c *GRPCClient) CreateTransaction(ctx context.Context, p TransactionPayload) Result[Transaction] {
	return invokeGRPC[Transaction](ctx, c, MethodCreateTransaction, p)
}

func (c *GRPCClient) UpdateTransaction(ctx context.Context, id string, p TransactionPayload) Result[Transaction] {
	return invokeGRPC[Transaction](ctx, c, MethodUpdateTransaction, IDRequest[TransactionPayload]{ID: id, Payload: &p})
}

func (c *GRPCClient) DeleteTransaction(ctx context.Context, id string) Result[struct{}] {
	return invokeGRPC[struct{}](ctx, c, MethodDeleteTransaction, IDRequest[TransactionPayload]{ID: id})
}

func (c *GRPCClient) UploadAttachment(ctx context.Context, name string, data []byte) Result[Attachment] {
	res := invokeGRPC[Attachment](ctx, c, MethodUploadAttachment, AttachmentUpload{Name: name, Content: data})
	if res.OK() && res.Value().URL == "" {
		return TransportError[Attachment](fmt.Errorf("%w: upload returned no image_url", ErrMalformedResponse))
	}
	return res
}
