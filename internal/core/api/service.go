// Package api implements the formatkeeper check service over gRPC.
//
// The service exchanges google.protobuf.Struct messages, so it is declared
// with a hand-written grpc.ServiceDesc instead of generated stubs.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/formatkeeper/internal/check"
	"github.com/solatis/formatkeeper/internal/core/db"
	"github.com/solatis/formatkeeper/internal/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "formatkeeper.check.v1.CheckService"

// CheckServer is the server API of the check service.
type CheckServer interface {
	CheckDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RunStore is the history the service records to and reads from.
// *db.Store satisfies it.
type RunStore interface {
	SaveRun(ctx context.Context, run *types.CheckRun) error
	ListRuns(ctx context.Context, limit int) ([]db.RunSummary, error)
	GetRun(ctx context.Context, id types.RunID) (*types.CheckRun, error)
}

// ServiceDesc registers a CheckServer with a grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CheckServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckDocument", Handler: unaryHandler("CheckDocument", CheckServer.CheckDocument)},
		{MethodName: "ListRuns", Handler: unaryHandler("ListRuns", CheckServer.ListRuns)},
		{MethodName: "GetRun", Handler: unaryHandler("GetRun", CheckServer.GetRun)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "formatkeeper/check/v1/check.proto",
}

func unaryHandler(method string, call func(CheckServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CheckServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CheckServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Options configures a CheckService.
type Options struct {
	// MaxDocumentBytes bounds decoded uploads. Zero means 32 MiB.
	MaxDocumentBytes int
	Logger           *slog.Logger
}

// CheckService implements CheckServer.
// Thin orchestration layer delegating to the checker and the history store.
type CheckService struct {
	checker  *check.Checker
	store    RunStore
	maxBytes int
	log      *slog.Logger
}

// NewCheckService creates service instance with dependencies. store may be
// nil; history methods then return UNAVAILABLE.
func NewCheckService(checker *check.Checker, store RunStore, opts Options) (*CheckService, error) {
	if checker == nil {
		return nil, fmt.Errorf("checker cannot be nil")
	}
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = 32 << 20
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &CheckService{
		checker:  checker,
		store:    store,
		maxBytes: opts.MaxDocumentBytes,
		log:      opts.Logger,
	}, nil
}

// Register adds the service to s.
func (s *CheckService) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&ServiceDesc, s)
}

// toStruct converts any JSON-tagged value to a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

// fromStruct decodes a Struct into a JSON-tagged value.
func fromStruct(s *structpb.Struct, v any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
