package remotesim

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"github.com/dmitrijs2005/finnysync/internal/common"
	"github.com/dmitrijs2005/finnysync/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// syncService is the handler type of the hand-written service descriptor.
type syncService interface {
	serve(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error)
}

func unaryMethod(name string) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := &structpb.Struct{}
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(syncService)
			if interceptor == nil {
				return s.serve(ctx, name, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: remote.GRPCMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return s.serve(ctx, name, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: remote.GRPCServiceName,
	HandlerType: (*syncService)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(remote.MethodPing),
		unaryMethod(remote.MethodRefresh),
		unaryMethod(remote.MethodListBudgets),
		unaryMethod(remote.MethodCreateBudget),
		unaryMethod(remote.MethodUpdateBudget),
		unaryMethod(remote.MethodDeleteBudget),
		unaryMethod(remote.MethodListTransactions),
		unaryMethod(remote.MethodCreateTransaction),
		unaryMethod(remote.MethodUpdateTransaction),
		unaryMethod(remote.MethodDeleteTransaction),
		unaryMethod(remote.MethodUploadAttachment),
	},
	Streams: []grpc.StreamDesc{},
}

// GRPCServer serves the Struct-based gRPC API.
type GRPCServer struct {
	backend *Backend
	issuer  *Issuer
	log     logging.Logger
}

// NewGRPCServer wraps b. A nil issuer disables authentication.
func NewGRPCServer(b *Backend, issuer *Issuer, log logging.Logger) *GRPCServer {
	if log == nil {
		log = logging.NewNop()
	}
	return &GRPCServer{backend: b, issuer: issuer, log: log.With("module", "remotesim.grpc")}
}

// NewServer returns a grpc.Server with the service and the auth
// interceptor registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(s.accessTokenInterceptor)}, opts...)
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&serviceDesc, s)
	return srv
}

// Run listens on address until ctx is done.
func (s *GRPCServer) Run(ctx context.Context, address string) error {
	listen, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	srv := s.NewServer()
	go func() {
		<-ctx.Done()
		s.log.Info(ctx, "stopping gRPC server")
		srv.GracefulStop()
	}()

	s.log.Info(ctx, "starting gRPC server", "address", listen.Addr().String())
	return srv.Serve(listen)
}

var anonymousMethods = map[string]bool{
	remote.GRPCMethod(remote.MethodPing):    true,
	remote.GRPCMethod(remote.MethodRefresh): true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.issuer == nil || anonymousMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
			header = values[0]
		}
	}
	token, ok := strings.CutPrefix(header, common.BearerPrefix)
	if !ok || token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	userID, err := s.issuer.UserID(token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	return handler(context.WithValue(ctx, userKey{}, userID), req)
}

// grpcError maps backend errors onto status codes.
func grpcError(err error) error {
	if f, ok := AsFault(err); ok {
		switch f.Kind {
		case FaultTransport:
			return status.Error(codes.Unavailable, f.Error())
		case FaultUnauthorized:
			return status.Error(codes.Unauthenticated, f.Error())
		default:
			return status.Error(codes.InvalidArgument, f.Error())
		}
	}
	switch {
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func decodeStruct[T any](st *structpb.Struct) (T, error) {
	var v T
	b, err := protojson.Marshal(st)
	if err != nil {
		return v, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, status.Error(codes.InvalidArgument, err.Error())
	}
	return v, nil
}

func encodeStruct(v any, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, grpcError(err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(b, st); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}

func (s *GRPCServer) serve(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	user := userFrom(ctx)

	switch method {
	case remote.MethodPing:
		return encodeStruct(map[string]string{"status": "ok"}, nil)

	case remote.MethodRefresh:
		if s.issuer == nil {
			return nil, status.Error(codes.Unimplemented, "authentication disabled")
		}
		if err := s.backend.enter(remote.MethodRefresh); err != nil {
			return nil, grpcError(err)
		}
		req, err := decodeStruct[remote.RefreshRequest](in)
		if err != nil {
			return nil, err
		}
		return encodeStruct(s.issuer.Refresh(req.RefreshToken))

	case remote.MethodListBudgets:
		req, err := decodeStruct[remote.PageRequest](in)
		if err != nil {
			return nil, err
		}
		return encodeStruct(s.backend.ListBudgets(user, req.Page))

	case remote.MethodCreateBudget:
		p, err := decodeStruct[remote.BudgetPayload](in)
		if err != nil {
			return nil, err
		}
		return encodeStruct(s.backend.CreateBudget(user, p))

	case remote.MethodUpdateBudget:
		req, err := decodeStruct[remote.IDRequest[remote.BudgetPayload]](in)
		if err != nil {
			return nil, err
		}
		if req.Payload == nil {
			return nil, status.Error(codes.InvalidArgument, "payload is required")
		}
		return encodeStruct(s.backend.UpdateBudget(user, req.ID, *req.Payload))

	case remote.MethodDeleteBudget:
		req, err := decodeStruct[remote.IDRequest[remote.BudgetPayload]](in)
		if err != nil {
			return nil, err
		}
		return encodeStruct(struct{}{}, s.backend.DeleteBudget(user, req.ID))

	case remote.MethodListTransactions:
		req, err := decodeStruct[remote.TransactionListRequest](in)
		if err != nil {
			return nil, err
		}
		return encodeStruct(s.backend.ListTransactions(user, req.Page, req.Filter))

	case remote.MethodCreateTransaction:
		p, err := decodeStruct[remote.TransactionPayload](in)
		if err != nil {
			return nil, err
		}
		return encodeStruct(s.backend.CreateTransaction(user, p))

	case remote.MethodUpdateTransaction:
		req, err := decodeStruct[remote.IDRequest[remote.TransactionPayload]](in)
		if err != nil {
			return nil, err
		}
		if req.Payload == nil {
			return nil, status.Error(codes.InvalidArgument, "payload is required")
		}
		return encodeStruct(s.backend.UpdateTransaction(user, req.ID, *req.Payload))

	case remote.MethodDeleteTransaction:
		req, err := decodeStruct[remote.IDRequest[remote.TransactionPayload]](in)
		if err != nil {
			return nil, err
		}
		return encodeStruct(struct{}{}, s.backend.DeleteTransaction(user, req.ID))

	case remote.MethodUploadAttachment:
		req, err := decodeStruct[remote.AttachmentUpload](in)
		if err != nil {
			return nil, err
		}
		return encodeStruct(s.backend.Upload(req.Name, req.Content))
	}
	return nil, status.Errorf(codes.Unimplemented, "unknown method %s", method)
}
